package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/soccer-vault/internal/capture"
	"github.com/JakeFAU/soccer-vault/internal/sink"
)

func newUploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload",
		Short: "Move local images to the configured image store",
		Long: `Uploads every local image referenced by the raw capture to the configured
sink and rewrites the references to hosted URLs. Images that are already hosted
are left alone, so the command can be re-run safely.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			_, _, err = runUpload(cmd.Context(), appInstance, cmd.OutOrStdout())
			return err
		},
	}
}

// runUpload reports uploaded=false when no sink is configured.
func runUpload(ctx context.Context, a App, out io.Writer) (sink.Summary, bool, error) {
	cfg := a.GetConfig()
	logger := a.StageLogger("upload")

	raw, err := capture.Load(cfg.Output.RawCapturePath)
	if err != nil {
		return sink.Summary{}, false, err
	}
	s, err := a.NewImageSink(ctx)
	if err != nil {
		return sink.Summary{}, false, fmt.Errorf("build image sink: %w", err)
	}
	if _, noop := s.(sink.Noop); noop {
		logger.Info("No image sink configured, keeping local image references")
		return sink.Summary{}, false, nil
	}

	rewriter, err := a.NewRewriter(s, logger)
	if err != nil {
		return sink.Summary{}, false, err
	}
	summary, err := rewriter.Rewrite(ctx, &raw)
	if err != nil {
		return summary, false, fmt.Errorf("rewrite image references: %w", err)
	}
	if err := capture.Save(cfg.Output.RawCapturePath, raw); err != nil {
		return summary, false, fmt.Errorf("save raw capture: %w", err)
	}
	logger.Info("Upload complete",
		zap.Int("uploaded", summary.Uploaded),
		zap.Int("failed", summary.Failed),
		zap.Int("missing", summary.Missing))

	t := newTable(out, "Upload")
	t.AppendHeader(table.Row{"Albums", "Uploaded", "Already hosted", "Missing", "Failed"})
	t.AppendRow(table.Row{summary.Albums, summary.Uploaded, summary.Remote, summary.Missing, summary.Failed})
	t.Render()
	return summary, true, nil
}
