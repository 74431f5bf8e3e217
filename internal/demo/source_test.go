package demo

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"discord-dashboard/internal/model"
)

func TestActivitySeriesCoversConsecutiveDaysEndingToday(t *testing.T) {
	// Thursday.
	now := time.Date(2026, 10, 15, 18, 30, 0, 0, time.UTC)

	series := ActivitySeries(7, now)
	require.Len(t, series, 7)

	wantDays := []string{"vie", "sáb", "dom", "lun", "mar", "mié", "jue"}
	for i, entry := range series {
		assert.Equal(t, wantDays[i], entry.Day, "day label at index %d", i)
		assert.Equal(t, int(math.Round(150+20*math.Sin(float64(i)/2))), entry.Messages, "messages at index %d", i)
	}
	assert.Equal(t, 150, series[0].Messages)
	assert.Equal(t, 160, series[1].Messages)
	assert.Equal(t, 167, series[2].Messages)
}

func TestActivitySeriesLength(t *testing.T) {
	now := time.Now()
	for _, days := range []int{0, 1, 3, 7, 30} {
		assert.Len(t, ActivitySeries(days, now), days)
	}
	assert.Empty(t, ActivitySeries(-4, now))
}

func TestActivitySeriesSingleDayIsToday(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	series := ActivitySeries(1, now)
	require.Len(t, series, 1)
	assert.Equal(t, "dom", series[0].Day)
}

func TestAdminsResolveStatusByName(t *testing.T) {
	admins := Admins()
	require.Len(t, admins, 5)

	statuses := map[string]string{}
	for _, admin := range admins {
		statuses[admin.Name] = admin.Status
	}
	assert.Equal(t, "online", statuses["Ana_Moderator"])
	assert.Equal(t, "online", statuses["Maria_Manager"])
	assert.Equal(t, "offline", statuses["Carlos_Admin"])
	assert.Equal(t, 1, admins[0].ID)

	admins[0].Status = "online"
	assert.Equal(t, "offline", Admins()[0].Status, "roster must not be mutated through returned slice")
}

func TestSourceServesFallbackData(t *testing.T) {
	src := NewSource(time.UTC)
	ctx := context.Background()

	guild := src.GuildInfo(ctx, "g")
	assert.True(t, guild.IsFallback())
	assert.Equal(t, model.GuildInfo{ApproximateMemberCount: 1, Name: "Servidor de Prueba"}, guild.Value)
	assert.ErrorIs(t, guild.Err, ErrOffline)

	messages := src.ChannelMessages(ctx, "c", 5)
	require.Len(t, messages.Value, 1)
	assert.Equal(t, "Sistema", messages.Value[0].Author.Username)
	assert.Equal(t, "Bienvenido al servidor", messages.Value[0].Content)

	sent := src.SendMessage(ctx, "c", "hola")
	assert.True(t, sent.IsFallback())
	assert.Equal(t, "Usuario", sent.Value.Author.Username)
	assert.Equal(t, "hola", sent.Value.Content)
	assert.NotEmpty(t, sent.Value.ID)

	_, err := time.Parse(time.RFC3339Nano, sent.Value.Timestamp)
	assert.NoError(t, err)

	assert.Len(t, src.ChannelStats("c", 7), 7)
}

func TestSourceStatsFollowConfiguredLocation(t *testing.T) {
	// Monday 23:30 UTC is already Tuesday at UTC+14.
	src := NewSource(time.FixedZone("UTC+14", 14*60*60))
	src.now = func() time.Time { return time.Date(2026, 1, 5, 23, 30, 0, 0, time.UTC) }

	series := src.ChannelStats("c", 1)
	require.Len(t, series, 1)
	assert.Equal(t, "mar", series[0].Day)
}
