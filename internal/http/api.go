package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"discord-dashboard/internal/dashboard"
	"discord-dashboard/internal/model"
)

const maxBodyBytes = 8 << 10

type dashboardController interface {
	State() model.DashboardState
	Ready() bool
	RequestRefresh() bool
	SubmitMessage(ctx context.Context, text string) (model.ChatMessage, error)
	SetComposerText(text string)
	DismissError()
}

// Options carries the collaborators and branding served next to the state.
type Options struct {
	PageTitle    string
	PageSubtitle string
	PollInterval time.Duration
	WebDir       string

	// Stream serves GET /ws; Metrics serves GET /metrics. Either may be nil.
	Stream  http.Handler
	Metrics http.Handler

	// SendLimiter throttles POST /api/v1/messages. Nil disables throttling.
	SendLimiter *rate.Limiter
	Logger      *zap.Logger
}

// API hosts the dashboard endpoints, the live stream and the static UI.
type API struct {
	ctrl   dashboardController
	opts   Options
	log    *zap.Logger
	router chi.Router
}

func New(ctrl dashboardController, opts Options) *API {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.WebDir == "" {
		opts.WebDir = "web"
	}

	api := &API{
		ctrl: ctrl,
		opts: opts,
		log:  opts.Logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(api.logRequests)
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) { methodNotAllowed(w) })

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/dashboard", api.handleDashboard)
		r.Post("/refresh", api.handleRefresh)
		r.Post("/messages", api.handleSendMessage)
		r.Put("/composer", api.handleComposer)
		r.Delete("/error", api.handleDismissError)
	})
	if opts.Stream != nil {
		r.Get("/ws", opts.Stream.ServeHTTP)
	}
	if opts.Metrics != nil {
		r.Get("/metrics", opts.Metrics.ServeHTTP)
	}
	r.Get("/healthz", api.handleHealthz)
	r.Get("/readyz", api.handleReadyz)
	r.Handle("/*", http.FileServer(http.Dir(opts.WebDir)))

	api.router = r
	return api
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

func (a *API) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, a.dashboardResponse(a.ctrl.State()))
}

func (a *API) handleRefresh(w http.ResponseWriter, _ *http.Request) {
	started := a.ctrl.RequestRefresh()
	writeJSON(w, http.StatusAccepted, map[string]bool{"started": started})
}

func (a *API) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Content string `json:"content"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	// Blank text is rejected before it can spend a send token.
	if strings.TrimSpace(body.Content) == "" {
		writeJSON(w, http.StatusConflict, map[string]any{"sent": false, "error": dashboard.ErrEmptyMessage.Error()})
		return
	}

	if a.opts.SendLimiter != nil && !a.opts.SendLimiter.Allow() {
		a.log.Warn("message send rate limited", zap.String("request_id", middleware.GetReqID(r.Context())))
		w.Header().Set("Retry-After", "1")
		writeJSON(w, http.StatusTooManyRequests, map[string]any{"sent": false, "error": "too many messages"})
		return
	}

	message, err := a.ctrl.SubmitMessage(r.Context(), body.Content)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, sendResponse{
			Sent:           true,
			Message:        &message,
			DashboardState: a.ctrl.State(),
		})
	case errors.Is(err, dashboard.ErrEmptyMessage), errors.Is(err, dashboard.ErrSendInFlight):
		writeJSON(w, http.StatusConflict, map[string]any{"sent": false, "error": err.Error()})
	case errors.Is(err, dashboard.ErrStopped):
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"sent": false, "error": err.Error()})
	default:
		writeJSON(w, http.StatusBadGateway, sendResponse{DashboardState: a.ctrl.State()})
	}
}

func (a *API) handleComposer(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	a.ctrl.SetComposerText(body.Text)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleDismissError(w http.ResponseWriter, _ *http.Request) {
	a.ctrl.DismissError()
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (a *API) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	if !a.ctrl.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]bool{"ready": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ready": true})
}

func (a *API) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		a.log.Debug("http request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)))
	})
}

func (a *API) dashboardResponse(state model.DashboardState) dashboardResponse {
	return dashboardResponse{
		DashboardState: state,
		PageTitle:      a.opts.PageTitle,
		PageSubtitle:   a.opts.PageSubtitle,
		PollIntervalMS: a.opts.PollInterval.Milliseconds(),
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, out any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(out)
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type dashboardResponse struct {
	model.DashboardState
	PageTitle      string `json:"page_title"`
	PageSubtitle   string `json:"page_subtitle"`
	PollIntervalMS int64  `json:"poll_interval_ms"`
}

type sendResponse struct {
	model.DashboardState
	Sent    bool               `json:"sent"`
	Message *model.ChatMessage `json:"message,omitempty"`
}
