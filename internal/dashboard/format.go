package dashboard

import (
	"strings"
	"time"

	"discord-dashboard/internal/model"
)

const displayTimeLayout = "15:04"

func formatMessage(raw model.RawMessage, loc *time.Location) model.ChatMessage {
	var timestamp string
	if parsed := parseTimestamp(raw.Timestamp); parsed != nil {
		timestamp = parsed.In(loc).Format(displayTimeLayout)
	}

	return model.ChatMessage{
		ID:        raw.ID,
		Author:    raw.Author.Username,
		Content:   raw.Content,
		Timestamp: timestamp,
	}
}

func parseTimestamp(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.999999999Z0700",
	}
	for _, format := range formats {
		parsed, err := time.Parse(format, value)
		if err == nil {
			utc := parsed.UTC()
			return &utc
		}
	}

	return nil
}
