package demo

import (
	"math"
	"strconv"
	"time"

	"discord-dashboard/internal/model"
)

const (
	FallbackGuildName   = "Servidor de Prueba"
	FallbackMemberCount = 1

	SystemAuthor   = "Sistema"
	WelcomeContent = "Bienvenido al servidor"
	UserAuthor     = "Usuario"

	statsBase      = 150
	statsAmplitude = 20
)

// Short weekday labels as rendered by the es-ES locale, indexed by time.Weekday.
var shortWeekdays = [...]string{"dom", "lun", "mar", "mié", "jue", "vie", "sáb"}

// adminRoster and adminStatuses are static: nothing updates them at runtime.
var adminRoster = []model.AdminEntry{
	{ID: 1, Name: "Carlos_Admin"},
	{ID: 2, Name: "Ana_Moderator"},
	{ID: 3, Name: "Juan_Support"},
	{ID: 4, Name: "Maria_Manager"},
	{ID: 5, Name: "Pedro_Admin"},
}

var adminStatuses = map[string]string{
	"Carlos_Admin":  "offline",
	"Ana_Moderator": "online",
	"Juan_Support":  "offline",
	"Maria_Manager": "online",
	"Pedro_Admin":   "offline",
}

func GuildInfo() model.GuildInfo {
	return model.GuildInfo{
		ApproximateMemberCount: FallbackMemberCount,
		Name:                   FallbackGuildName,
	}
}

func WelcomeMessages(now time.Time) []model.RawMessage {
	return []model.RawMessage{{
		ID:        timeID(now),
		Author:    model.MessageAuthor{Username: SystemAuthor},
		Content:   WelcomeContent,
		Timestamp: now.UTC().Format(time.RFC3339Nano),
	}}
}

// EchoMessage stands in for a message the platform did not accept.
func EchoMessage(content string, now time.Time) model.RawMessage {
	return model.RawMessage{
		ID:        timeID(now),
		Author:    model.MessageAuthor{Username: UserAuthor},
		Content:   content,
		Timestamp: now.UTC().Format(time.RFC3339Nano),
	}
}

// ActivitySeries builds one entry per calendar day ending on the day of now,
// oldest first.
func ActivitySeries(days int, now time.Time) []model.DayCount {
	if days < 0 {
		days = 0
	}

	series := make([]model.DayCount, 0, days)
	for i := 0; i < days; i++ {
		date := now.AddDate(0, 0, -(days - 1 - i))
		series = append(series, model.DayCount{
			Day:      ShortWeekday(date.Weekday()),
			Messages: int(math.Round(statsBase + statsAmplitude*math.Sin(float64(i)/2))),
		})
	}
	return series
}

func ShortWeekday(day time.Weekday) string {
	return shortWeekdays[day%7]
}

// Admins returns the roster with each entry's status resolved by name.
func Admins() []model.AdminEntry {
	out := make([]model.AdminEntry, 0, len(adminRoster))
	for _, admin := range adminRoster {
		admin.Status = adminStatuses[admin.Name]
		out = append(out, admin)
	}
	return out
}

func timeID(now time.Time) string {
	return strconv.FormatInt(now.UnixMilli(), 10)
}
