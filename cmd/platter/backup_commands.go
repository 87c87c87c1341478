package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"platter/internal/backup"
	"platter/internal/disc"
	"platter/internal/ipc"
)

func newBackupCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Backup control",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newBackupStartCommand(ctx))
	cmd.AddCommand(newBackupCancelCommand(ctx))
	cmd.AddCommand(newBackupStatusCommand(ctx))
	cmd.AddCommand(newBackupAllCommand(ctx))
	return cmd
}

func newBackupStartCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "start <drive>",
		Short: "Start a backup for one drive from the current scan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				drive, err := resolveDrive(client, args[0])
				if err != nil {
					return err
				}
				resp, err := client.BackupStart(requestForDrive(drive))
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, resp)
				}
				return printStartOutcome(cmd, drive, resp)
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable output")
	return cmd
}

func newBackupAllCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Start backups for every detected disc",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				scan, err := client.Scan()
				if err != nil {
					return err
				}
				if len(scan.Drives) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No discs detected")
					return nil
				}
				for _, drive := range scan.Drives {
					resp, err := client.BackupStart(requestForDrive(drive))
					if err != nil {
						return err
					}
					if err := printStartOutcome(cmd, drive, resp); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newBackupCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <drive-id>",
		Short: "Cancel the backup running on a drive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			driveID, err := strconv.Atoi(strings.TrimSpace(args[0]))
			if err != nil {
				return fmt.Errorf("invalid drive id %q", args[0])
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.BackupCancel(driveID)
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if resp.Cancelled {
					fmt.Fprintf(stdout, "Cancelled backup on drive %d\n", driveID)
				} else {
					fmt.Fprintf(stdout, "No backup running on drive %d\n", driveID)
				}
				return nil
			})
		},
	}
}

func newBackupStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "List running backups",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.BackupStatus()
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, resp)
				}
				stdout := cmd.OutOrStdout()
				if len(resp.Backups) == 0 {
					fmt.Fprintln(stdout, "No backups running")
					return nil
				}
				rows := make([][]string, 0, len(resp.Backups))
				for _, status := range resp.Backups {
					rows = append(rows, []string{
						strconv.Itoa(status.DriveID),
						status.DriveLetter,
						status.DiscName,
						status.RunID,
						formatTimestamp(status.StartedAt),
					})
				}
				table := renderTable(
					[]string{"ID", "Drive", "Disc", "Run", "Started"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprintln(stdout, table)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable output")
	return cmd
}

// resolveDrive matches a scan entry by numeric ID or drive letter.
func resolveDrive(client *ipc.Client, arg string) (disc.Drive, error) {
	arg = strings.TrimSpace(arg)
	scan, err := client.Scan()
	if err != nil {
		return disc.Drive{}, err
	}

	if id, convErr := strconv.Atoi(arg); convErr == nil {
		for _, drive := range scan.Drives {
			if drive.ID == id {
				return drive, nil
			}
		}
		return disc.Drive{}, fmt.Errorf("no disc detected on drive %d; run `platter scan`", id)
	}

	letter := strings.ToUpper(strings.TrimSuffix(arg, ":"))
	for _, drive := range scan.Drives {
		if drive.DriveLetter == letter {
			return drive, nil
		}
	}
	return disc.Drive{}, fmt.Errorf("no disc detected in drive %s; run `platter scan`", letter)
}

func requestForDrive(drive disc.Drive) backup.Request {
	return backup.Request{
		DriveID:       drive.ID,
		ToolDiscIndex: drive.ToolDiscIndex,
		DiscName:      drive.DiscName,
		DiscType:      string(drive.DiscType),
		DiscSizeBytes: drive.DiscSizeBytes,
		DriveLetter:   drive.DriveLetter,
	}
}

func printStartOutcome(cmd *cobra.Command, drive disc.Drive, resp *ipc.BackupStartResponse) error {
	stdout := cmd.OutOrStdout()
	if resp.Message != "" {
		fmt.Fprintf(stdout, "Drive %d (%s): %s\n", drive.ID, drive.DiscName, resp.Message)
		return nil
	}
	fmt.Fprintf(stdout, "Started backup of %q on drive %d (run %s)\n",
		drive.DiscName, drive.ID, resp.Result.RunID)
	if fp := resp.Result.Fingerprint; fp.CacheKey() != "" {
		fmt.Fprintf(stdout, "Fingerprint: %s (%s)\n", fp.CacheKey(), fp.Type)
	}
	if match := resp.Result.Fingerprint.ARMMatch; match != nil {
		fmt.Fprintf(stdout, "Known disc: %s (%d)\n", match.Title, match.Year)
	}
	return nil
}
