package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"event-feedback-service/internal/app"
	"event-feedback-service/internal/config"
	"event-feedback-service/internal/metrics"
	transport "event-feedback-service/internal/transport/http"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the feedback server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	opts := []app.Option{
		app.WithGenerator(newGenerator(cfg)),
		app.WithMetrics(metrics.Default()),
		app.WithAnonymousDefault(cfg.AnonymousDefault()),
	}
	if cfg.AutoRotate() {
		opts = append(opts, app.WithAutoRotate(config.TTLDuration(cfg.Presenter.Interval, 30*time.Second)))
	}
	service := app.NewFeedbackService(b.store, b.sessions, b.templates, opts...)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     transport.NewRouter(service, prometheus.DefaultGatherer),
		ReadTimeout: 15 * time.Second,
		// generation calls can outlast a short write timeout
		WriteTimeout: 90 * time.Second,
	}

	go func() {
		log.Printf("starting feedback service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
