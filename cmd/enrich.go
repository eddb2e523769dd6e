package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/soccer-vault/internal/capture"
	"github.com/JakeFAU/soccer-vault/internal/enrich"
	"github.com/JakeFAU/soccer-vault/internal/metrics"
)

func newEnrichCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enrich",
		Short: "Turn the raw capture into the product catalog",
		Long: `Classifies every album title, prices and tags the resulting products, and
replaces the catalog file. Albums whose title names no known club are skipped.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			_, err = runEnrich(cmd.Context(), appInstance, cmd.OutOrStdout())
			return err
		},
	}
}

func runEnrich(ctx context.Context, a App, out io.Writer) (enrich.Report, error) {
	cfg := a.GetConfig()
	logger := a.StageLogger("enrich")
	start := time.Now()

	raw, err := capture.Load(cfg.Output.RawCapturePath)
	if err != nil {
		return enrich.Report{}, err
	}
	pipeline, err := a.NewPipeline(logger)
	if err != nil {
		return enrich.Report{}, err
	}
	cat, report := pipeline.Enrich(raw)
	metrics.ObserveProduct("enriched", report.Enriched)
	metrics.ObserveProduct("skipped", len(report.Skipped))

	publishers, err := a.Publishers(ctx)
	if err != nil {
		return report, fmt.Errorf("open catalog publishers: %w", err)
	}
	for _, p := range publishers {
		if err := p.Publish(ctx, cat); err != nil {
			return report, fmt.Errorf("publish catalog to %s: %w", p.Name(), err)
		}
		logger.Info("Published catalog", zap.String("publisher", p.Name()), zap.Int("products", len(cat.Products)))
	}
	metrics.ObserveStage("enrich", time.Since(start))

	t := newTable(out, "Enrich")
	t.AppendHeader(table.Row{"Albums", "Products", "Skipped", "Clubs", "Leagues", "Categories"})
	t.AppendRow(table.Row{
		report.Input, report.Enriched, len(report.Skipped),
		len(report.Clubs), strings.Join(report.Leagues, ", "), strings.Join(report.Categories, ", "),
	})
	t.Render()
	return report, nil
}
