package cli

import (
	"context"
	"fmt"
	"log"
	"os"

	"event-feedback-service/internal/app"
	"event-feedback-service/internal/config"
	"github.com/spf13/cobra"
)

// NewExportCmd writes an event's responses as CSV from the configured store.
func NewExportCmd(configPath *string) *cobra.Command {
	var eventID, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export collected feedback of an event as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), *configPath, eventID, out)
		},
	}
	cmd.Flags().StringVar(&eventID, "event", "", "event id to export")
	cmd.Flags().StringVar(&out, "out", "", "output file (default: generated file name, - for stdout)")
	_ = cmd.MarkFlagRequired("event")
	return cmd
}

func runExport(ctx context.Context, configPath, eventID, out string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()
	if !b.durable {
		return fmt.Errorf("export needs postgres or redis configured; the memory store is empty outside the server")
	}

	service := app.NewFeedbackService(b.store, b.sessions, b.templates)
	return writeExport(ctx, service, eventID, out)
}

func writeExport(ctx context.Context, service *app.FeedbackService, eventID, out string) error {
	name, body, err := service.ExportCSV(ctx, eventID)
	if err != nil {
		return err
	}
	if out == "-" {
		_, err := fmt.Fprintln(os.Stdout, body)
		return err
	}
	if out == "" {
		out = name
	}
	if err := os.WriteFile(out, []byte(body), 0o644); err != nil {
		return err
	}
	log.Printf("exported event=%s to %s", eventID, out)
	return nil
}
