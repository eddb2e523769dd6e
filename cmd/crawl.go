package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/soccer-vault/internal/capture"
	"github.com/JakeFAU/soccer-vault/internal/worker"
)

func newCrawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Crawl the album listing and download product images",
		Long: `Opens the configured listing page, walks each album in order, saves the
first few full-size images of every album under the images directory, and
replaces the raw capture with the result.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			_, err = runCrawl(cmd.Context(), appInstance, cmd.OutOrStdout())
			return err
		},
	}
}

func runCrawl(ctx context.Context, a App, out io.Writer) (worker.Summary, error) {
	cfg := a.GetConfig()
	logger := a.StageLogger("crawl")

	session := a.NewSession(logger)
	defer func() {
		if err := session.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("Failed to close session", zap.Error(err))
		}
	}()

	w, err := a.NewWorker(session, logger)
	if err != nil {
		return worker.Summary{}, err
	}
	logger.Info("Starting crawl",
		zap.String("url", cfg.Scraper.ListingURL),
		zap.Int("max_albums", cfg.Scraper.MaxAlbums),
		zap.Int("max_images", cfg.Scraper.MaxImagesPerAlbum))

	raw, summary, err := w.Run(ctx, cfg.Scraper.ListingURL)
	if err != nil {
		return summary, fmt.Errorf("crawl: %w", err)
	}
	if err := capture.Save(cfg.Output.RawCapturePath, raw); err != nil {
		return summary, fmt.Errorf("save raw capture: %w", err)
	}
	logger.Info("Crawl complete",
		zap.Int("albums", summary.Recorded),
		zap.Int("images", summary.ImagesSaved),
		zap.String("path", cfg.Output.RawCapturePath),
		zap.Duration("duration", summary.Duration))

	t := newTable(out, "Crawl")
	t.AppendHeader(table.Row{"Albums found", "Processed", "Recorded", "Empty", "Failed", "Images saved", "Images failed", "Attempts"})
	t.AppendRow(table.Row{
		summary.Discovered, summary.Processed, summary.Recorded, summary.EmptyAlbums,
		summary.FailedAlbums, summary.ImagesSaved, summary.ImagesFailed, summary.ImageAttempts,
	})
	t.Render()
	return summary, nil
}
