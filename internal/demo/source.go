package demo

import (
	"context"
	"errors"
	"time"

	"discord-dashboard/internal/model"
)

// ErrOffline marks every value served by Source.
var ErrOffline = errors.New("demonstration mode: no bot token configured")

// Source answers every dashboard read with synthetic data and never touches
// the network. It is used when no bot token is configured.
type Source struct {
	now func() time.Time
	loc *time.Location
}

// NewSource creates a source whose activity days follow loc. A nil loc
// means time.Local.
func NewSource(loc *time.Location) *Source {
	if loc == nil {
		loc = time.Local
	}
	return &Source{now: time.Now, loc: loc}
}

func (s *Source) GuildInfo(ctx context.Context, guildID string) model.Result[model.GuildInfo] {
	return model.Fallback(GuildInfo(), ErrOffline)
}

func (s *Source) ChannelMessages(ctx context.Context, channelID string, limit int) model.Result[[]model.RawMessage] {
	return model.Fallback(WelcomeMessages(s.now()), ErrOffline)
}

func (s *Source) SendMessage(ctx context.Context, channelID, content string) model.Result[model.RawMessage] {
	return model.Fallback(EchoMessage(content, s.now()), ErrOffline)
}

func (s *Source) ChannelStats(channelID string, days int) []model.DayCount {
	return ActivitySeries(days, s.now().In(s.loc))
}
