package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/simroster/internal/catalog"
	"github.com/JonMunkholm/simroster/internal/config"
	"github.com/JonMunkholm/simroster/internal/core"
	"github.com/JonMunkholm/simroster/internal/logging"
)

// app is the state shared by every subcommand.
type app struct {
	cfg *config.Config

	catalogSource string
	logLevel      string
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "rosterctl",
		Short:         "Inspect the living persons of a save document",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// .env is optional; real environment variables win
			_ = godotenv.Load()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if a.catalogSource != "" {
				cfg.Catalog.Source = a.catalogSource
			}
			a.cfg = cfg

			logging.SetupWriter(cmd.ErrOrStderr(), a.logLevel, cfg.Logging.Format)
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.catalogSource, "catalog", "", "item catalog file or URL (default $CATALOG_SOURCE)")
	flags.StringVar(&a.logLevel, "log-level", "warn", "log level written to stderr")

	root.AddCommand(
		newViewCmd(a),
		newCatalogCmd(a),
		newColumnsCmd(a),
		newBrowseCmd(a),
		newHistoryCmd(a),
	)
	return root
}

func (a *app) fetcher() *catalog.Fetcher {
	return catalog.NewFetcher(catalog.FetcherConfig{
		Source:  a.cfg.Catalog.Source,
		Timeout: a.cfg.Catalog.FetchTimeout,
		MaxSize: a.cfg.Catalog.MaxSize,
	})
}

// newService builds a session without history; the CLI never writes to the
// database.
func (a *app) newService() (*core.Service, error) {
	return core.NewService(core.Options{
		Catalog:     a.fetcher(),
		MaxFileSize: a.cfg.Upload.MaxFileSize,
		LoadTimeout: a.cfg.Upload.Timeout,
	})
}

// loadSave reads the save at path into svc.
func loadSave(ctx context.Context, svc *core.Service, path string) (*core.LoadSummary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open save: %w", err)
	}
	defer f.Close()

	var size int64
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}
	return svc.Load(ctx, filepath.Base(path), f, size)
}
