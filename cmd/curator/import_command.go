package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"curator/internal/catalog"
	"curator/internal/config"
	"curator/internal/promote"
	"curator/internal/staging"
	"curator/internal/storage"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var all bool
	var actor string

	cmd := &cobra.Command{
		Use:   "import [id]",
		Short: "Import validated records into the event catalog",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) == 1) {
				return fmt.Errorf("provide a record id or --all, not both")
			}
			return ctx.withStore(func(cfg *config.Config, store *storage.Store) error {
				service := promote.New(store, staging.NewStore(store), catalog.NewStore(store), nil)
				out := cmd.OutOrStdout()

				if all {
					outcomes, err := service.ImportAllValidated(cmd.Context(), actor)
					if err != nil {
						return err
					}
					imported := 0
					for _, outcome := range outcomes {
						if outcome.Err != nil {
							fmt.Fprintf(out, "Record %d failed: %v\n", outcome.RecordID, outcome.Err)
							continue
						}
						imported++
						fmt.Fprintf(out, "Record %d imported as event %d\n", outcome.RecordID, outcome.EventID)
					}
					fmt.Fprintf(out, "Imported %d of %d validated records\n", imported, len(outcomes))
					return nil
				}

				id, err := parseRecordID(args[0])
				if err != nil {
					return err
				}
				eventID, err := service.Import(cmd.Context(), id, actor)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Record %d imported as event %d\n", id, eventID)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Import every validated record")
	cmd.Flags().StringVar(&actor, "by", currentActor(), "Importer name")
	return cmd
}
