package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"curator/internal/config"
	"curator/internal/sources"
	"curator/internal/storage"
)

func newSourcesCommand(ctx *commandContext) *cobra.Command {
	sourcesCmd := &cobra.Command{
		Use:   "sources",
		Short: "Manage registered scrape sources",
	}

	sourcesCmd.AddCommand(newSourcesAddCommand(ctx))
	sourcesCmd.AddCommand(newSourcesListCommand(ctx))
	sourcesCmd.AddCommand(newSourcesEnableCommand(ctx, true))
	sourcesCmd.AddCommand(newSourcesEnableCommand(ctx, false))

	return sourcesCmd
}

func newSourcesAddCommand(ctx *commandContext) *cobra.Command {
	var name string
	var siteType string
	var frequency string
	var ownerFirst string
	var ownerLast string

	cmd := &cobra.Command{
		Use:   "add <url>",
		Short: "Register a new scrape source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *storage.Store) error {
				parsedType, ok := sources.ParseSiteType(siteType)
				if !ok {
					return fmt.Errorf("unknown site type %q (single_teacher or multi_teacher)", siteType)
				}
				parsedFrequency, ok := sources.ParseFrequency(frequency)
				if !ok {
					return fmt.Errorf("unknown frequency %q (weekly or yearly)", frequency)
				}

				source, err := sources.NewStore(store).Add(cmd.Context(), sources.Source{
					URL:            args[0],
					Name:           name,
					SiteType:       parsedType,
					Frequency:      parsedFrequency,
					OwnerFirstName: ownerFirst,
					OwnerLastName:  ownerLast,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added source %d: %s\n", source.ID, source.URL)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name for the source")
	cmd.Flags().StringVar(&siteType, "type", string(sources.SiteSingleTeacher), "Site type (single_teacher or multi_teacher)")
	cmd.Flags().StringVar(&frequency, "frequency", string(sources.FrequencyWeekly), "Scrape frequency (weekly or yearly)")
	cmd.Flags().StringVar(&ownerFirst, "owner-first", "", "Owner teacher first name")
	cmd.Flags().StringVar(&ownerLast, "owner-last", "", "Owner teacher last name")
	return cmd
}

func newSourcesListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *storage.Store) error {
				list, err := sources.NewStore(store).List(cmd.Context())
				if err != nil {
					return err
				}
				if len(list) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No sources registered")
					return nil
				}

				rows := make([][]string, 0, len(list))
				for _, source := range list {
					rows = append(rows, []string{
						strconv.FormatInt(source.ID, 10),
						source.Name,
						source.URL,
						string(source.Frequency),
						yesNo(source.Active),
						string(source.LastRunStatus),
						formatTimePtr(source.LastRunFinishedAt),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(cmd.OutOrStdout(),
					[]string{"ID", "Name", "URL", "Frequency", "Active", "Last Status", "Last Run"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft}))
				return nil
			})
		},
	}
}

func newSourcesEnableCommand(ctx *commandContext, enable bool) *cobra.Command {
	use := "enable <id>"
	short := "Enable a source for scheduled runs"
	verb := "enabled"
	if !enable {
		use = "disable <id>"
		short = "Exclude a source from scheduled runs"
		verb = "disabled"
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid source id %q", args[0])
			}
			return ctx.withStore(func(cfg *config.Config, store *storage.Store) error {
				if err := sources.NewStore(store).SetActive(cmd.Context(), id, enable); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Source %d %s\n", id, verb)
				return nil
			})
		},
	}
}

func formatTimePtr(value *time.Time) string {
	if value == nil {
		return "-"
	}
	return value.Local().Format("2006-01-02 15:04")
}
