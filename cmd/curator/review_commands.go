package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"curator/internal/catalog"
	"curator/internal/config"
	"curator/internal/promote"
	"curator/internal/quality"
	"curator/internal/staging"
	"curator/internal/storage"
)

func newReviewCommand(ctx *commandContext) *cobra.Command {
	reviewCmd := &cobra.Command{
		Use:   "review",
		Short: "Review staged records before import",
	}

	reviewCmd.AddCommand(newReviewListCommand(ctx))
	reviewCmd.AddCommand(newReviewShowCommand(ctx))
	reviewCmd.AddCommand(newReviewValidateCommand(ctx))
	reviewCmd.AddCommand(newReviewRejectCommand(ctx))
	reviewCmd.AddCommand(newReviewResetCommand(ctx))

	return reviewCmd
}

func newReviewListCommand(ctx *commandContext) *cobra.Command {
	var statusFlag string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List staged records",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, ok := staging.ParseStatus(statusFlag)
			if !ok {
				return fmt.Errorf("unknown status %q", statusFlag)
			}
			return ctx.withStore(func(cfg *config.Config, store *storage.Store) error {
				records, err := staging.NewStore(store).List(cmd.Context(), status, limit)
				if err != nil {
					return err
				}
				if len(records) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "No %s records\n", status)
					return nil
				}

				rows := make([][]string, 0, len(records))
				for _, record := range records {
					title := "(unparseable payload)"
					startDate := "-"
					if cand, err := record.Payload(); err == nil {
						title = cand.Event.Title
						if cand.Event.StartDate != "" {
							startDate = cand.Event.StartDate
						}
					}
					rows = append(rows, []string{
						strconv.FormatInt(record.ID, 10),
						title,
						startDate,
						record.SourceURL,
						strconv.Itoa(len(record.Flags)),
						yesNo(record.IsBlocked()),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(cmd.OutOrStdout(),
					[]string{"ID", "Title", "Start", "Source", "Flags", "Blocked"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft}))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&statusFlag, "status", string(staging.StatusPending), "Record status to list")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum records to show")
	return cmd
}

func newReviewShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one staged record with its quality flags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRecordID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *storage.Store) error {
				record, err := staging.NewStore(store).GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				if record == nil {
					return fmt.Errorf("record %d not found", id)
				}
				printRecord(cmd, record)
				return nil
			})
		},
	}
}

func printRecord(cmd *cobra.Command, record *staging.Record) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Record %d (%s)\n", record.ID, record.Status)
	fmt.Fprintf(out, "  Source:     %s\n", record.SourceURL)
	fmt.Fprintf(out, "  Scraped at: %s\n", record.ScrapedAt.Local().Format("2006-01-02 15:04"))

	cand, err := record.Payload()
	if err != nil {
		fmt.Fprintf(out, "  Payload:    unparseable: %v\n", err)
	} else {
		fmt.Fprintf(out, "  Title:      %s\n", cand.Event.Title)
		fmt.Fprintf(out, "  Teacher:    %s\n", cand.Teacher.FullName())
		fmt.Fprintf(out, "  Practice:   %s\n", cand.Event.Practice)
		fmt.Fprintf(out, "  Dates:      %s to %s\n", orDash(cand.Event.StartDate), orDash(cand.Event.EndDate))
		if cand.Event.IsOnline {
			fmt.Fprintf(out, "  Online:     %s\n", orDash(cand.Event.OnlineURL))
		} else if cand.Venue != nil {
			fmt.Fprintf(out, "  Venue:      %s, %s\n", cand.Venue.Name, cand.Venue.City)
		}
	}

	if len(record.Flags) == 0 {
		fmt.Fprintln(out, "  Flags:      none")
	} else {
		fmt.Fprintln(out, "  Flags:")
		for _, key := range record.Flags.Keys() {
			flag := record.Flags[key]
			fmt.Fprintf(out, "    [%s] %s: %s\n", flag.Severity, key, flag.Message)
		}
	}
	if record.ValidationNotes != "" {
		fmt.Fprintf(out, "  Notes:      %s\n", record.ValidationNotes)
	}
	if record.LastError != "" {
		fmt.Fprintf(out, "  Last error: %s\n", record.LastError)
	}
}

func newReviewValidateCommand(ctx *commandContext) *cobra.Command {
	var force bool
	var notes string
	var actor string

	cmd := &cobra.Command{
		Use:   "validate <id>",
		Short: "Approve a pending record for import",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRecordID(args[0])
			if err != nil {
				return err
			}
			if force && strings.TrimSpace(notes) == "" {
				return errors.New("--force requires --notes explaining the override")
			}
			return ctx.withStore(func(cfg *config.Config, store *storage.Store) error {
				records := staging.NewStore(store)
				record, err := records.GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				if record == nil {
					return fmt.Errorf("record %d not found", id)
				}

				// Re-run the gate so the decision is made against current
				// reference data, not flags from scrape time.
				if cand, err := record.Payload(); err == nil {
					gate := quality.New(catalog.NewStore(store), cfg)
					flags, err := gate.Check(cmd.Context(), cand)
					if err != nil {
						return err
					}
					if err := records.ReplaceFlags(cmd.Context(), id, flags); err != nil {
						return err
					}
				}

				record, err = records.Validate(cmd.Context(), id, actor, notes, force)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Record %d validated by %s\n", record.ID, actor)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Validate despite blocking flags (requires --notes)")
	cmd.Flags().StringVar(&notes, "notes", "", "Reviewer notes")
	cmd.Flags().StringVar(&actor, "by", currentActor(), "Reviewer name")
	return cmd
}

func newReviewRejectCommand(ctx *commandContext) *cobra.Command {
	var notes string
	var actor string

	cmd := &cobra.Command{
		Use:   "reject <id>",
		Short: "Reject a pending record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRecordID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *storage.Store) error {
				record, err := staging.NewStore(store).Reject(cmd.Context(), id, actor, notes)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Record %d rejected by %s\n", record.ID, actor)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&notes, "notes", "", "Reason for rejection (required)")
	cmd.Flags().StringVar(&actor, "by", currentActor(), "Reviewer name")
	return cmd
}

func newReviewResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <id>",
		Short: "Reset a record to pending, deleting any imported event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRecordID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *storage.Store) error {
				service := promote.New(store, staging.NewStore(store), catalog.NewStore(store), nil)
				if err := service.Reset(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Record %d reset to pending\n", id)
				return nil
			})
		},
	}
}

func parseRecordID(value string) (int64, error) {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid record id %q", value)
	}
	return id, nil
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
