package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kleeedolinux/legacyio/nowplaying"
	"github.com/kleeedolinux/legacyio/socket"
	"github.com/kleeedolinux/legacyio/telemetry"
)

func listenCmd(flags *rootFlags) *cobra.Command {
	var (
		httpAddr       string
		reconnectDelay time.Duration
		pollInterval   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Stay connected and log events, reconnecting after failures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("http-addr") {
				cfg.HTTPAddr = httpAddr
			}
			if cmd.Flags().Changed("reconnect-delay") {
				cfg.ReconnectDelay = reconnectDelay
			}
			if cmd.Flags().Changed("poll-interval") {
				cfg.PollInterval = pollInterval
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := newLogger(os.Stdout, cfg)
			logger.Info("logger initialized", slog.String("level", cfg.LogLevel), slog.String("format", cfg.LogFormat))

			tcfg, err := telemetry.TracingConfigFromEnv("sioclient", version)
			if err != nil {
				return err
			}
			shutdownTracing, err := telemetry.InitTracing(cmd.Context(), tcfg)
			if err != nil {
				return err
			}
			defer func() {
				sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdownTracing(sctx); err != nil {
					logger.Error("tracer shutdown failed", slog.Any("err", err))
				}
			}()

			client, err := socket.NewClient(cfg.Origin,
				socket.WithNamespace(cfg.Namespace),
				socket.WithPollInterval(cfg.PollInterval),
				socket.WithLogger(logger))
			if err != nil {
				return err
			}

			tracker := nowplaying.NewTracker(nowplaying.WithLogger(logger))
			handler := logEvents(logger, tracker.Handle)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if cfg.HTTPAddr != "" {
				srv := &http.Server{
					Addr:              cfg.HTTPAddr,
					Handler:           newStatusRouter(client, tracker),
					ReadHeaderTimeout: 5 * time.Second,
				}
				go func() {
					logger.Info("status server listening", slog.String("addr", cfg.HTTPAddr))
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						logger.Error("status server failed", slog.Any("err", err))
					}
				}()
				defer func() {
					sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(sctx)
				}()
			}

			runListener(ctx, client, handler, cfg.ReconnectDelay, logger)
			logger.Info("shutting down")
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&httpAddr, "http-addr", "", "status server address, empty disables (HTTP_ADDR)")
	f.DurationVar(&reconnectDelay, "reconnect-delay", 0, "wait between connection attempts (SOCKETIO_RECONNECT_DELAY)")
	f.DurationVar(&pollInterval, "poll-interval", 0, "upper bound on one receive wait (SOCKETIO_POLL_INTERVAL)")

	return cmd
}

// runListener keeps client connected until ctx ends, waiting delay between
// attempts.
func runListener(ctx context.Context, client *socket.Client, handler socket.EventHandler, delay time.Duration, logger *slog.Logger) {
	for {
		err := client.Run(ctx, handler)
		if ctx.Err() != nil {
			return
		}
		logger.Warn("socket.io disconnected, reconnecting",
			slog.Any("err", err),
			slog.Duration("delay", delay))

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

// logEvents logs every event at debug level before passing it to next.
func logEvents(logger *slog.Logger, next socket.EventHandler) socket.EventHandler {
	return func(ev socket.Event) *socket.Message {
		logger.Debug("event received",
			slog.String("name", ev.Name),
			slog.String("endpoint", ev.Endpoint),
			slog.Int("args", len(ev.Args)))
		return next(ev)
	}
}
