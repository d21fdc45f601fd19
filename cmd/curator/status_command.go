package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"curator/internal/classify"
	"curator/internal/config"
	"curator/internal/sources"
	"curator/internal/staging"
	"curator/internal/storage"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show staging queue and source health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *storage.Store) error {
				out := cmd.OutOrStdout()
				colorize := isTerminal(out)

				summary, err := staging.NewStore(store).Summary(cmd.Context())
				if err != nil {
					return err
				}
				for _, line := range renderSectionHeader("Staging", colorize) {
					fmt.Fprintln(out, line)
				}
				for _, status := range staging.AllStatuses() {
					kind := statusInfo
					if status == staging.StatusPending && summary[status] > 0 {
						kind = statusWarn
					}
					fmt.Fprintln(out, renderStatusLine(string(status), kind,
						fmt.Sprintf("%d records", summary[status]), colorize))
				}

				list, err := sources.NewStore(store).List(cmd.Context())
				if err != nil {
					return err
				}
				for _, line := range renderSectionHeader("Sources", colorize) {
					fmt.Fprintln(out, line)
				}
				if len(list) == 0 {
					fmt.Fprintln(out, renderStatusLine("registered", statusInfo, "none", colorize))
					return nil
				}
				for _, source := range list {
					kind := statusOK
					message := string(source.LastRunStatus)
					switch {
					case !source.Active:
						kind = statusInfo
						message = "disabled"
					case source.LastRunStatus == "":
						kind = statusInfo
						message = "never run"
					case source.LastRunStatus.IsDegraded():
						kind = statusError
						if source.LastRunStatus == classify.StatusLowDates || source.LastRunStatus == classify.StatusNoEvents {
							kind = statusWarn
						}
					}
					label := source.Name
					if label == "" {
						label = source.URL
					}
					fmt.Fprintln(out, renderStatusLine(label, kind, message, colorize))
				}
				return nil
			})
		},
	}
}
