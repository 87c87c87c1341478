package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"platter/internal/disc"
	"platter/internal/ipc"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent backup runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.History(limit)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, resp)
				}
				stdout := cmd.OutOrStdout()
				if len(resp.Entries) == 0 {
					fmt.Fprintln(stdout, "No backups recorded")
					return nil
				}
				rows := make([][]string, 0, len(resp.Entries))
				for _, entry := range resp.Entries {
					outcome := "ok"
					if !entry.Success {
						outcome = "failed"
						if entry.Error != "" {
							outcome = entry.Error
						}
					}
					rows = append(rows, []string{
						formatTimestamp(entry.StartedAt),
						disc.PrettyLabel(entry.DiscName),
						entry.DiscType,
						entry.DriveLetter,
						strconv.Itoa(entry.SavedTitles),
						formatDuration(entry.StartedAt, entry.FinishedAt),
						outcome,
					})
				}
				table := renderTable(
					[]string{"Started", "Disc", "Type", "Drive", "Titles", "Duration", "Result"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				)
				fmt.Fprintln(stdout, table)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable output")
	return cmd
}
