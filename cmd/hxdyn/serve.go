package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pthm/hxdyn"
	"github.com/pthm/hxdyn/lib/fragment"
)

func serveCmd(g *globalFlags) *cobra.Command {
	var (
		listen    string
		dir       string
		key       string
		sensitive bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve HTML fragments from a directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(g.configPath)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("listen") {
				cfg.Serve.Listen = listen
			}
			if flags.Changed("dir") {
				cfg.Serve.Dir = dir
			}
			if flags.Changed("key") {
				cfg.Serve.Key = key
			}
			if flags.Changed("sensitive") {
				cfg.Serve.Sensitive = sensitive
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg.Serve, slog.Default())
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (default :8080)")
	cmd.Flags().StringVar(&dir, "dir", "", "Fragment directory (default .)")
	cmd.Flags().StringVar(&key, "key", "", "Key for fragment parameters (random when empty)")
	cmd.Flags().BoolVar(&sensitive, "sensitive", false, "Encrypt fragment parameters instead of signing them")
	return cmd
}

// newHandler builds the fragment server with /health and the metrics
// endpoint mounted next to it.
func newHandler(cfg ServeConfig, reg *prometheus.Registry, logger *slog.Logger) (http.Handler, error) {
	key := []byte(cfg.Key)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate key: %w", err)
		}
		logger.Warn("no fragment key configured, using a random one")
	}
	enc, err := hxdyn.NewEncoder(key)
	if err != nil {
		return nil, fmt.Errorf("create encoder: %w", err)
	}

	opts := []fragment.Option{
		fragment.WithLogger(logger),
		fragment.WithStatic(os.DirFS(cfg.Dir)),
		fragment.WithMetrics(reg),
	}
	if cfg.Sensitive {
		opts = append(opts, fragment.WithSensitiveParams())
	}
	srv := fragment.NewServer(enc, opts...)

	r := chi.NewRouter()
	if cfg.MetricsPath != "" {
		r.Handle(cfg.MetricsPath, promhttp.HandlerFor(reg, promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		}))
	}
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Mount("/", srv.Handler())
	return r, nil
}

func serve(ctx context.Context, cfg ServeConfig, logger *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	handler, err := newHandler(cfg, reg, logger)
	if err != nil {
		return err
	}
	server := &http.Server{
		Addr:              cfg.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("serving fragments", "listen", cfg.Listen, "dir", cfg.Dir, "metrics", cfg.MetricsPath)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Info("shutting down")
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
