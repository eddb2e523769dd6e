// Package cmd defines the soccervault CLI: one subcommand per pipeline stage.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/soccer-vault/internal/app"
	"github.com/JakeFAU/soccer-vault/internal/config"
	"github.com/JakeFAU/soccer-vault/internal/crawler"
	"github.com/JakeFAU/soccer-vault/internal/enrich"
	"github.com/JakeFAU/soccer-vault/internal/logging"
	"github.com/JakeFAU/soccer-vault/internal/sink"
	"github.com/JakeFAU/soccer-vault/internal/worker"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App is the container interface the subcommands use.
type App interface {
	Close()
	GetLogger() *zap.Logger
	GetConfig() config.Config
	StageLogger(stage string) *zap.Logger
	NewSession(logger *zap.Logger) crawler.Session
	NewWorker(session crawler.Session, logger *zap.Logger) (*worker.Worker, error)
	NewImageSink(ctx context.Context) (sink.ImageSink, error)
	NewRewriter(s sink.ImageSink, logger *zap.Logger) (*sink.Rewriter, error)
	NewPipeline(logger *zap.Logger) (*enrich.Pipeline, error)
	Publishers(ctx context.Context) ([]app.Publisher, error)
}

// newApp is the application factory. It's a variable so tests can swap it.
var newApp = func(_ context.Context, cfgFile string) (App, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	a, err := app.New(cfg, nil)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func newRootCmd() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "soccervault",
		Short: "Scrape, store, and enrich the soccer jersey catalog.",
		Long: `soccervault builds the storefront's product catalog offline.

It crawls the supplier's photo albums, saves up to a handful of images per
album, optionally moves them to a hosted image store, and turns the album
titles into classified, priced products.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cmd.Context(), cfgFile)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML, TOML or JSON)")

	cmd.AddCommand(
		newCrawlCmd(),
		newUploadCmd(),
		newEnrichCmd(),
		newRunCmd(),
		newVerifyCmd(),
		newVersionCmd(),
	)
	return cmd
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logger, logErr := logging.New(true)
		if logErr != nil {
			logger = zap.NewExample()
		}
		stop()
		logger.Fatal("Command execution failed", zap.Error(err))
	}
}
