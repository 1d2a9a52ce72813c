package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hamed0406/siteupbot/internal/chat"
	"github.com/hamed0406/siteupbot/internal/chat/discord"
	"github.com/hamed0406/siteupbot/internal/chat/telegram"
	"github.com/hamed0406/siteupbot/internal/config"
	"github.com/hamed0406/siteupbot/internal/domain"
	"github.com/hamed0406/siteupbot/internal/httpapi"
	"github.com/hamed0406/siteupbot/internal/logging"
	"github.com/hamed0406/siteupbot/internal/monitor"
	"github.com/hamed0406/siteupbot/internal/notify"
	"github.com/hamed0406/siteupbot/internal/probe"
	"github.com/hamed0406/siteupbot/internal/repo/memory"
	"github.com/hamed0406/siteupbot/internal/scheduler"
)

const openTimeout = 45 * time.Second

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect to chat and monitor until interrupted",
		Args:  cobra.NoArgs,
		RunE:  runBot,
	}
}

func newBackend(cfg config.Config, logger *zap.Logger, onError func(error)) (chat.Backend, error) {
	switch cfg.Backend {
	case config.BackendTelegram:
		return telegram.New(cfg.Token, logger, onError), nil
	default:
		return discord.New(cfg.Token, logger, onError)
	}
}

func sdNotify(logger *zap.Logger, state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		logger.Warn("sd_notify_error", zap.String("state", state), zap.Error(err))
		return
	}
	if sent {
		logger.Debug("sd_notify", zap.String("state", state))
	}
}

func runBot(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := logging.NewLogger(cfg.LogDir, cfg.Debug)
	if err != nil {
		return err
	}
	defer logger.Sync()
	logger.Info("config_loaded", zap.Any("config", cfg.Redacted()))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched := scheduler.New(logger.Named("scheduler"))
	sched.OnError(func(err error) {
		logger.Error("bot_error", zap.Error(err))
	})

	backend, err := newBackend(cfg, logger, sched.Report)
	if err != nil {
		return err
	}
	openCtx, cancel := context.WithTimeout(ctx, openTimeout)
	err = backend.Open(openCtx)
	cancel()
	if err != nil {
		logger.Error("chat_connect_failed", zap.String("backend", cfg.Backend), zap.Error(err))
		return fmt.Errorf("connect to %s: %w", cfg.Backend, err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Warn("chat_close_error", zap.Error(err))
		}
	}()

	store := memory.New()
	sinks := []notify.Sink{
		notify.NewChat(backend, cfg.ChannelID, cfg.UserID, cfg.NotifyRatePerSec, logger.Named("notify")),
	}
	if s := notify.NewSlack(cfg.SlackWebhook); s != nil {
		sinks = append(sinks, s)
	}
	if e := notify.NewEmail(cfg.SMTP); e != nil {
		sinks = append(sinks, e)
	}
	svc := notify.NewService(notify.Site{
		Name:     cfg.DisplayName,
		HomeURL:  cfg.HomeURL,
		CheckURL: cfg.TargetURL,
	}, sinks...)

	mon := monitor.New(
		logger.Named("monitor"),
		probe.NewHTTPChecker(cfg.DisplayName, cfg.ProbeTimeout),
		svc,
		store,
		cfg.TargetURL,
		cfg.FailureThreshold,
	)

	sched.OnReady(func(ctx context.Context) error {
		logger.Info("bot_ready",
			zap.String("identity", backend.Identity()),
			zap.String("backend", cfg.Backend),
			zap.String("url", cfg.TargetURL),
			zap.Duration("interval", cfg.CheckInterval),
			zap.Int("threshold", cfg.FailureThreshold),
		)
		sdNotify(logger, daemon.SdNotifyReady)
		return nil
	})

	var state domain.MonitorState
	sched.Every(cfg.CheckInterval, func(ctx context.Context) {
		state = mon.Cycle(ctx, state)
	})

	apiDone := make(chan struct{})
	if cfg.StatusAddr != "" {
		api := httpapi.NewServer(logger.Named("api"), store, httpapi.Options{
			Keys:           cfg.StatusAPIKeys,
			AllowedOrigins: cfg.StatusOrigins,
			ReqPerMin:      cfg.StatusRPM,
			Burst:          cfg.StatusBurst,
		})
		go func() {
			defer close(apiDone)
			if err := api.Serve(ctx, cfg.StatusAddr); err != nil {
				sched.Report(fmt.Errorf("status api: %w", err))
			}
		}()
	} else {
		close(apiDone)
	}

	err = sched.Run(ctx)
	sdNotify(logger, daemon.SdNotifyStopping)
	stop()
	<-apiDone
	logger.Info("bot_stopped")
	return err
}
