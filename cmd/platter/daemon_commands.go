package main

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"platter/internal/ipc"
)

const (
	ansiReset = "\x1b[0m"
	ansiGreen = "\x1b[32m"
	ansiRed   = "\x1b[31m"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Daemon lifecycle",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newDaemonRunCommand(ctx))
	cmd.AddCommand(newDaemonStartCommand(ctx))
	cmd.AddCommand(newDaemonStopCommand(ctx))
	cmd.AddCommand(newDaemonStatusCommand(ctx))
	return cmd
}

func newDaemonStartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Launch the daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			if client, err := ctx.dialClient(); err == nil {
				client.Close()
				fmt.Fprintln(stdout, "Daemon already running")
				return nil
			}

			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolve executable: %w", err)
			}

			launchArgs := []string{"daemon", "run", "--socket", ctx.socketPath()}
			if ctx.configFlag != nil && strings.TrimSpace(*ctx.configFlag) != "" {
				launchArgs = append(launchArgs, "--config", *ctx.configFlag)
			}
			child := exec.Command(exe, launchArgs...)
			child.Stdout = nil
			child.Stderr = nil
			if err := child.Start(); err != nil {
				return fmt.Errorf("launch daemon: %w", err)
			}
			if err := child.Process.Release(); err != nil {
				return fmt.Errorf("detach daemon: %w", err)
			}

			deadline := time.Now().Add(10 * time.Second)
			for time.Now().Before(deadline) {
				if client, err := ctx.dialClient(); err == nil {
					client.Close()
					fmt.Fprintln(stdout, "Daemon started")
					return nil
				}
				time.Sleep(200 * time.Millisecond)
			}
			return fmt.Errorf("daemon did not come up within 10s; check logs under the configured log directory")
		},
	}
}

func newDaemonRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the platter daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemonProcess(cmd.Context(), ctx)
		},
	}
}

func newDaemonStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			client, err := ctx.dialClient()
			if err != nil {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			defer client.Close()

			resp, err := client.Stop()
			if err != nil {
				return err
			}
			if resp.Stopped {
				fmt.Fprintln(stdout, "Daemon stopped")
			} else {
				fmt.Fprintln(stdout, "Stop request sent")
			}
			return nil
		},
	}
}

func newDaemonStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			client, err := ctx.dialClient()
			if err != nil {
				if jsonOutput {
					return writeJSON(cmd, map[string]bool{"running": false})
				}
				fmt.Fprintln(stdout, renderStateLine("Daemon", false, "not running", isTerminal(stdout)))
				return nil
			}
			defer client.Close()

			return statusFromClient(cmd, client, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable output")
	return cmd
}

func statusFromClient(cmd *cobra.Command, client *ipc.Client, jsonOutput bool) error {
	resp, err := client.Status()
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(cmd, resp)
	}

	stdout := cmd.OutOrStdout()
	colorize := isTerminal(stdout)
	status := resp.Status

	detail := "not running"
	if status.Running {
		detail = fmt.Sprintf("running (pid %d)", status.PID)
	}
	fmt.Fprintln(stdout, renderStateLine("Daemon", status.Running, detail, colorize))
	fmt.Fprintf(stdout, "  Lock:      %s\n", status.LockPath)
	fmt.Fprintf(stdout, "  History:   %s\n", status.HistoryDBPath)
	fmt.Fprintf(stdout, "  Cache:     %s\n", yesNo(status.CacheEnabled))

	for _, dep := range status.Dependencies {
		detail := "ready"
		if !dep.Available {
			detail = dep.Detail
			if dep.Optional {
				detail += " (optional)"
			}
		}
		fmt.Fprintln(stdout, "  "+renderStateLine(dep.Name, dep.Available, detail, colorize))
	}

	for _, path := range status.Paths {
		detail := path.Path
		if !path.Writable {
			detail = detail + ": " + path.Detail
		}
		fmt.Fprintln(stdout, "  "+renderStateLine(path.Label, path.Writable, detail, colorize))
	}

	if len(status.ActiveBackups) == 0 {
		fmt.Fprintln(stdout, "  Backups:   none running")
		return nil
	}
	fmt.Fprintf(stdout, "  Backups:   %d running\n", len(status.ActiveBackups))
	for _, active := range status.ActiveBackups {
		fmt.Fprintf(stdout, "    drive %s (%s): %q since %s\n",
			strconv.Itoa(active.DriveID), active.DriveLetter, active.DiscName,
			formatTimestamp(active.StartedAt))
	}
	return nil
}

func renderStateLine(label string, healthy bool, detail string, colorize bool) string {
	marker := "x"
	color := ansiRed
	if healthy {
		marker = "+"
		color = ansiGreen
	}
	if colorize {
		return fmt.Sprintf("%s[%s]%s %s: %s", color, marker, ansiReset, label, detail)
	}
	return fmt.Sprintf("[%s] %s: %s", marker, label, detail)
}
