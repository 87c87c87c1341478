package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"platter/internal/ipc"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "List optical drives with discs present",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Scan()
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, resp)
				}

				stdout := cmd.OutOrStdout()
				if len(resp.Drives) == 0 {
					fmt.Fprintln(stdout, "No discs detected")
				} else {
					rows := make([][]string, 0, len(resp.Drives))
					for _, drive := range resp.Drives {
						warning := drive.Warning
						if warning == "" {
							warning = "-"
						}
						rows = append(rows, []string{
							strconv.Itoa(drive.ID),
							drive.DriveLetter,
							drive.DiscName,
							string(drive.DiscType),
							humanSize(drive.DiscSizeBytes),
							strconv.Itoa(drive.ToolDiscIndex),
							warning,
						})
					}
					table := renderTable(
						[]string{"ID", "Drive", "Disc", "Type", "Size", "Index", "Warning"},
						rows,
						[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
					)
					fmt.Fprintln(stdout, table)
				}

				for _, detErr := range resp.Errors {
					if detErr.Drive != "" {
						fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s (%s): %s\n", detErr.Stage, detErr.Drive, detErr.Err)
						continue
					}
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s: %s\n", detErr.Stage, detErr.Err)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable output")
	return cmd
}
