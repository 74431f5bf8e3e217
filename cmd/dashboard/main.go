package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"discord-dashboard/internal/config"
	"discord-dashboard/internal/dashboard"
	"discord-dashboard/internal/demo"
	"discord-dashboard/internal/discord"
	httpapi "discord-dashboard/internal/http"
	"discord-dashboard/internal/logging"
	"discord-dashboard/internal/metrics"
	"discord-dashboard/internal/model"
	"discord-dashboard/internal/stream"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("dashboard failed: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	m := metrics.New()

	var source dashboard.Source
	if cfg.DemoMode {
		logger.Warn("DISCORD_TOKEN is not set; running in demonstration mode")
		source = demo.NewSource(cfg.Location)
	} else {
		source = discord.NewClient(cfg.APIBaseURL, cfg.DiscordToken, cfg.APITimeout,
			discord.WithLogger(logger.Named("discord")),
			discord.WithMetrics(m),
			discord.WithLocation(cfg.Location))
	}

	var controller *dashboard.Controller
	hub := stream.NewHub(func() model.DashboardState { return controller.State() }, logger.Named("stream"), m)
	controller = dashboard.New(source, dashboard.Options{
		GuildID:      cfg.GuildID,
		ChannelID:    cfg.ChannelID,
		MessageLimit: cfg.MessageLimit,
		StatsDays:    cfg.StatsDays,
		Debounce:     cfg.Debounce,
		Interval:     cfg.PollInterval,
		Cooldown:     cfg.Cooldown,
		Location:     cfg.Location,
		Logger:       logger.Named("dashboard"),
		Metrics:      m,
		OnChange:     hub.Publish,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go hub.Run(ctx)
	controller.Start(ctx)
	defer controller.Stop()

	server := &http.Server{
		Addr: cfg.HTTPListenAddr,
		Handler: httpapi.New(controller, httpapi.Options{
			PageTitle:    cfg.PageTitle,
			PageSubtitle: cfg.PageSubtitle,
			PollInterval: cfg.PollInterval,
			WebDir:       cfg.WebDir,
			Stream:       hub,
			Metrics:      m.Handler(),
			SendLimiter:  rate.NewLimiter(rate.Limit(cfg.SendRate), cfg.SendBurst),
			Logger:       logger.Named("http"),
		}),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
	}

	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		defer close(shutdownDone)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", zap.Error(err))
		}
	}()

	logger.Info("discord dashboard listening",
		zap.String("addr", cfg.HTTPListenAddr),
		zap.Bool("demo_mode", cfg.DemoMode),
		zap.Duration("poll_interval", cfg.PollInterval))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	<-shutdownDone
	return nil
}
