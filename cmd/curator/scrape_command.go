package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"curator/internal/catalog"
	"curator/internal/config"
	"curator/internal/ingest"
	"curator/internal/logging"
	"curator/internal/quality"
	"curator/internal/services/extract"
	"curator/internal/services/render"
	"curator/internal/sources"
	"curator/internal/staging"
	"curator/internal/storage"
)

func newScrapeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "scrape <source-id|url>",
		Short: "Run the scrape pipeline for one source immediately",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *storage.Store) error {
				sourceStore := sources.NewStore(store)
				source, err := lookupSource(cmd, sourceStore, args[0])
				if err != nil {
					return err
				}

				extractor, err := extract.NewClient(cfg)
				if err != nil {
					return err
				}
				logger, err := logging.NewFromConfig(cfg)
				if err != nil {
					return err
				}
				runner := ingest.New(cfg,
					sourceStore,
					staging.NewStore(store),
					quality.New(catalog.NewStore(store), cfg),
					render.NewClient(cfg),
					extract.NewCleaner(cfg.Extraction.MaxTextChars),
					extractor,
					logger)

				summary, err := runner.Run(cmd.Context(), source)
				if summary != nil {
					out := cmd.OutOrStdout()
					fmt.Fprintf(out, "Source:     %s\n", summary.SourceURL)
					fmt.Fprintf(out, "Status:     %s\n", summary.Status)
					if summary.Detail != "" {
						fmt.Fprintf(out, "Detail:     %s\n", summary.Detail)
					}
					fmt.Fprintf(out, "Candidates: %d\n", summary.Candidates)
					fmt.Fprintf(out, "Staged:     %d\n", summary.RecordsCreated)
					fmt.Fprintf(out, "Duration:   %s\n", summary.Duration.Round(10*time.Millisecond))
				}
				return err
			})
		},
	}
}

func lookupSource(cmd *cobra.Command, store *sources.Store, key string) (*sources.Source, error) {
	key = strings.TrimSpace(key)
	var source *sources.Source
	var err error
	if id, parseErr := strconv.ParseInt(key, 10, 64); parseErr == nil {
		source, err = store.GetByID(cmd.Context(), id)
	} else {
		source, err = store.GetByURL(cmd.Context(), key)
	}
	if err != nil {
		return nil, err
	}
	if source == nil {
		return nil, fmt.Errorf("source %q not found", key)
	}
	return source, nil
}
