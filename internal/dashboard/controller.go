package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"discord-dashboard/internal/demo"
	"discord-dashboard/internal/metrics"
	"discord-dashboard/internal/model"
	"discord-dashboard/internal/timer"
)

const (
	DefaultDebounce     = time.Second
	DefaultInterval     = time.Minute
	DefaultCooldown     = 500 * time.Millisecond
	DefaultMessageLimit = model.MaxMessages
	DefaultStatsDays    = 7

	RefreshErrorMessage = "Error al cargar los datos de Discord. Por favor, intenta de nuevo."
	SendErrorMessage    = "Error al enviar el mensaje. Por favor, intenta de nuevo."
)

const (
	outcomeApplied = "applied"
	outcomeFailed  = "failed"
	outcomeSkipped = "skipped"
)

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrSendInFlight = errors.New("a message is already being sent")
	ErrStopped      = errors.New("dashboard controller is stopped")
	ErrSendFailed   = errors.New("message could not be sent")
)

// Source is the data access the controller depends on. Implementations
// return substitute values instead of failing.
type Source interface {
	GuildInfo(ctx context.Context, guildID string) model.Result[model.GuildInfo]
	ChannelMessages(ctx context.Context, channelID string, limit int) model.Result[[]model.RawMessage]
	SendMessage(ctx context.Context, channelID, content string) model.Result[model.RawMessage]
	ChannelStats(channelID string, days int) []model.DayCount
}

type Options struct {
	GuildID      string
	ChannelID    string
	MessageLimit int
	StatsDays    int
	Debounce     time.Duration
	Interval     time.Duration
	Cooldown     time.Duration
	Location     *time.Location
	Logger       *zap.Logger
	Metrics      *metrics.Metrics
	// OnChange receives a copy of the state after every mutation.
	OnChange func(model.DashboardState)
}

// Controller owns the dashboard state. At most one refresh and one send are
// in flight at any time; the Loading and SendingMessage flags are the only
// exclusion between them.
type Controller struct {
	source   Source
	opts     Options
	log      *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
	debounce *timer.Debouncer

	lifetime context.Context
	cancel   context.CancelFunc

	mu       sync.Mutex
	state    model.DashboardState
	ready    bool
	started  bool
	closed   bool
	cooldown *time.Timer

	// publishMu orders OnChange calls; published is the highest version
	// handed out so far.
	publishMu sync.Mutex
	published uint64
}

func New(source Source, opts Options) *Controller {
	if opts.MessageLimit <= 0 || opts.MessageLimit > model.MaxMessages {
		opts.MessageLimit = DefaultMessageLimit
	}
	if opts.StatsDays < 0 {
		opts.StatsDays = 0
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Cooldown < 0 {
		opts.Cooldown = 0
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Controller{
		source:  source,
		opts:    opts,
		log:     logger,
		metrics: opts.Metrics,
		now:     time.Now,
	}
	c.lifetime, c.cancel = context.WithCancel(context.Background())
	c.debounce = timer.NewDebouncer(opts.Debounce, func() {
		c.Refresh(c.lifetime)
	})
	c.state = model.DashboardState{
		Snapshot: model.ServerSnapshot{
			TotalMembersDisplay: humanize.Comma(0),
			LastMessages:        []model.ChatMessage{},
			Admins:              demo.Admins(),
			ActivityData:        []model.DayCount{},
		},
		UpdatedAt: c.now().UTC(),
	}
	return c
}

// Start schedules the debounced initial refresh and the periodic one. The
// controller stops when ctx is cancelled or Stop is called.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started || c.closed {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	c.debounce.Trigger()

	ticker := time.NewTicker(c.opts.Interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				c.Stop()
				return
			case <-c.lifetime.Done():
				return
			case <-ticker.C:
				c.debounce.Trigger()
			}
		}
	}()
}

// Stop cancels pending timers and in-flight calls. Results that arrive
// afterwards are discarded.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.cooldown != nil {
		c.cooldown.Stop()
		c.cooldown = nil
	}
	c.mu.Unlock()

	c.debounce.Stop()
	c.cancel()
}

func (c *Controller) State() model.DashboardState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Ready reports whether a refresh has been applied at least once.
func (c *Controller) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

// RequestRefresh starts a refresh in the background unless one is already
// running. It reports whether a refresh was started.
func (c *Controller) RequestRefresh() bool {
	if !c.beginRefresh() {
		return false
	}
	go c.runRefresh(c.lifetime)
	return true
}

// Refresh runs a refresh synchronously. A call made while another refresh
// is running or cooling down is dropped and returns false.
func (c *Controller) Refresh(ctx context.Context) bool {
	if !c.beginRefresh() {
		return false
	}
	c.runRefresh(ctx)
	return true
}

func (c *Controller) beginRefresh() bool {
	c.mu.Lock()
	if c.closed || c.state.UI.Loading {
		c.mu.Unlock()
		c.metrics.ObserveRefresh(outcomeSkipped, 0)
		return false
	}
	c.state.UI.Loading = true
	state := c.touchLocked()
	c.mu.Unlock()

	c.notify(state)
	return true
}

func (c *Controller) runRefresh(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stopOnClose := context.AfterFunc(c.lifetime, cancel)
	defer stopOnClose()

	log := c.log.With(zap.String("refresh_id", uuid.NewString()))
	started := time.Now()
	data, err := c.fetch(ctx)
	elapsed := time.Since(started)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		log.Debug("controller stopped; discarding refresh results")
		return
	}
	outcome := outcomeApplied
	if err != nil {
		outcome = outcomeFailed
		msg := RefreshErrorMessage
		c.state.UI.Error = &msg
	} else {
		c.applyLocked(data)
		c.state.UI.Error = nil
		c.ready = true
	}
	c.cooldown = time.AfterFunc(c.opts.Cooldown, c.endCooldown)
	state := c.touchLocked()
	c.mu.Unlock()

	c.metrics.ObserveRefresh(outcome, elapsed)
	if err != nil {
		log.Error("dashboard refresh failed", zap.Error(err), zap.Duration("elapsed", elapsed))
	} else {
		log.Info("dashboard refreshed",
			zap.Int("total_members", state.Snapshot.TotalMembers),
			zap.Int("messages", len(state.Snapshot.LastMessages)),
			zap.String("guild_origin", string(data.guild.Origin)),
			zap.String("messages_origin", string(data.messages.Origin)),
			zap.Duration("elapsed", elapsed))
	}
	c.notify(state)
}

func (c *Controller) endCooldown() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.state.UI.Loading = false
	c.cooldown = nil
	state := c.touchLocked()
	c.mu.Unlock()

	c.notify(state)
}

type refreshData struct {
	guild    model.Result[model.GuildInfo]
	messages model.Result[[]model.RawMessage]
	stats    []model.DayCount
}

// fetch issues the three reads concurrently and succeeds only if all of
// them do.
func (c *Controller) fetch(ctx context.Context) (refreshData, error) {
	var data refreshData
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return guard("guild", func() {
			data.guild = c.source.GuildInfo(gctx, c.opts.GuildID)
		})
	})
	g.Go(func() error {
		return guard("messages", func() {
			data.messages = c.source.ChannelMessages(gctx, c.opts.ChannelID, c.opts.MessageLimit)
		})
	})
	g.Go(func() error {
		return guard("stats", func() {
			data.stats = c.source.ChannelStats(c.opts.ChannelID, c.opts.StatsDays)
		})
	})
	if err := g.Wait(); err != nil {
		return refreshData{}, err
	}
	if err := ctx.Err(); err != nil {
		return refreshData{}, fmt.Errorf("refresh interrupted: %w", err)
	}
	return data, nil
}

func (c *Controller) applyLocked(data refreshData) {
	members := data.guild.Value.ApproximateMemberCount
	if members < 0 {
		members = 0
	}

	messages := make([]model.ChatMessage, 0, len(data.messages.Value))
	for _, raw := range data.messages.Value {
		if len(messages) == model.MaxMessages {
			break
		}
		messages = append(messages, formatMessage(raw, c.opts.Location))
	}

	stats := append([]model.DayCount{}, data.stats...)

	c.state.Snapshot.TotalMembers = members
	c.state.Snapshot.TotalMembersDisplay = humanize.Comma(int64(members))
	c.state.Snapshot.LastMessages = messages
	c.state.Snapshot.ActivityData = stats
	c.state.Source = model.SourceStatus{
		Guild:    data.guild.Origin,
		Messages: data.messages.Origin,
		Stats:    model.OriginSynthetic,
	}
}

// SubmitMessage sends text to the channel and prepends the resulting
// message. Blank text and submissions made while another send is running
// are rejected without touching the state.
func (c *Controller) SubmitMessage(ctx context.Context, text string) (model.ChatMessage, error) {
	if strings.TrimSpace(text) == "" {
		return model.ChatMessage{}, ErrEmptyMessage
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return model.ChatMessage{}, ErrStopped
	}
	if c.state.UI.SendingMessage {
		c.mu.Unlock()
		return model.ChatMessage{}, ErrSendInFlight
	}
	c.state.UI.SendingMessage = true
	state := c.touchLocked()
	c.mu.Unlock()
	c.notify(state)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stopOnClose := context.AfterFunc(c.lifetime, cancel)
	defer stopOnClose()

	var sent model.Result[model.RawMessage]
	err := guard("send", func() {
		sent = c.source.SendMessage(ctx, c.opts.ChannelID, text)
	})

	var message model.ChatMessage
	c.mu.Lock()
	c.state.UI.SendingMessage = false
	if c.closed {
		c.mu.Unlock()
		return model.ChatMessage{}, ErrStopped
	}
	if err != nil {
		msg := SendErrorMessage
		c.state.UI.Error = &msg
	} else {
		message = formatMessage(sent.Value, c.opts.Location)
		c.state.Snapshot.LastMessages = prependCapped(c.state.Snapshot.LastMessages, message, model.MaxMessages)
		c.state.UI.ComposerText = ""
	}
	state = c.touchLocked()
	c.mu.Unlock()
	c.notify(state)

	if err != nil {
		c.log.Error("sending message failed", zap.Error(err))
		return model.ChatMessage{}, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	c.log.Info("message sent",
		zap.String("message_id", message.ID),
		zap.String("origin", string(sent.Origin)))
	return message, nil
}

// SetComposerText stores the draft typed into the message composer.
func (c *Controller) SetComposerText(text string) {
	c.mu.Lock()
	if c.state.UI.ComposerText == text {
		c.mu.Unlock()
		return
	}
	c.state.UI.ComposerText = text
	state := c.touchLocked()
	c.mu.Unlock()

	c.notify(state)
}

// DismissError clears the error banner.
func (c *Controller) DismissError() {
	c.mu.Lock()
	if c.state.UI.Error == nil {
		c.mu.Unlock()
		return
	}
	c.state.UI.Error = nil
	state := c.touchLocked()
	c.mu.Unlock()

	c.notify(state)
}

func (c *Controller) touchLocked() model.DashboardState {
	c.state.UpdatedAt = c.now().UTC()
	c.state.Version++
	return c.state.Clone()
}

// notify hands state to OnChange unless a newer version was already
// published. Calls never overlap, so the last state delivered is the
// latest one.
func (c *Controller) notify(state model.DashboardState) {
	if c.opts.OnChange == nil {
		return
	}
	c.publishMu.Lock()
	defer c.publishMu.Unlock()
	if state.Version <= c.published {
		return
	}
	c.published = state.Version
	c.opts.OnChange(state)
}

func guard(name string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: unexpected panic: %v", name, r)
		}
	}()
	fn()
	return nil
}

func prependCapped(messages []model.ChatMessage, message model.ChatMessage, limit int) []model.ChatMessage {
	keep := len(messages)
	if keep > limit-1 {
		keep = limit - 1
	}
	out := make([]model.ChatMessage, 0, keep+1)
	out = append(out, message)
	return append(out, messages[:keep]...)
}
