package cmd

import (
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Crawl, upload when a sink is configured, then enrich",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			ctx, out := cmd.Context(), cmd.OutOrStdout()
			if _, err := runCrawl(ctx, appInstance, out); err != nil {
				return err
			}
			if _, _, err := runUpload(ctx, appInstance, out); err != nil {
				return err
			}
			_, err = runEnrich(ctx, appInstance, out)
			return err
		},
	}
}
