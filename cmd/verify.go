package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/soccer-vault/internal/capture"
)

// verifyResult is what the verify command found on disk.
type verifyResult struct {
	Audit        capture.AuditReport
	CatalogBytes int64
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check the raw capture, local images and catalog file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			_, err = runVerify(appInstance, cmd.OutOrStdout())
			return err
		},
	}
}

func runVerify(a App, out io.Writer) (verifyResult, error) {
	cfg := a.GetConfig()
	logger := a.StageLogger("verify")

	raw, err := capture.Load(cfg.Output.RawCapturePath)
	if err != nil {
		return verifyResult{}, err
	}
	result := verifyResult{Audit: capture.Audit(raw, cfg.Output.ImagesDir)}
	for _, ref := range result.Audit.Missing {
		logger.Warn("Local image missing", zap.String("ref", ref))
	}

	catalogStatus := "ok"
	info, statErr := os.Stat(cfg.Output.CatalogPath)
	switch {
	case statErr != nil:
		catalogStatus = "missing, run `soccervault enrich`"
	case info.Size() == 0:
		catalogStatus = "empty"
	default:
		result.CatalogBytes = info.Size()
	}

	t := newTable(out, "Verify")
	t.AppendHeader(table.Row{"Check", "Result"})
	t.AppendRows([]table.Row{
		{"Raw capture", fmt.Sprintf("%d albums, scraped %s", result.Audit.Albums, raw.ScrapedAt.Format("2006-01-02 15:04"))},
		{"Images", result.Audit.Images},
		{"Hosted", result.Audit.RemoteRefs},
		{"Local", result.Audit.LocalRefs},
		{"Local missing", len(result.Audit.Missing)},
		{"Catalog", catalogStatus},
	})
	t.Render()
	return result, nil
}
