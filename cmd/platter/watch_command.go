package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"platter/internal/daemon"
	"platter/internal/events"
	"platter/internal/ipc"
)

const watchPollMillis = 5000

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var showLogs bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream backup events from the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return ctx.withClient(func(client *ipc.Client) error {
				stdout := cmd.OutOrStdout()
				fmt.Fprintln(stdout, "Watching for backup events (Ctrl-C to stop)")

				var afterSeq int64
				for {
					if err := signalCtx.Err(); err != nil {
						return nil
					}
					resp, err := client.Events(afterSeq, watchPollMillis)
					if err != nil {
						if signalCtx.Err() != nil {
							return nil
						}
						return err
					}
					for _, evt := range resp.Events {
						if !showLogs && evt.Type == string(events.TypeBackupLog) {
							continue
						}
						printEvent(stdout, evt)
					}
					afterSeq = resp.NextSeq
				}
			})
		},
	}

	cmd.Flags().BoolVar(&showLogs, "logs", false, "Include raw subprocess log lines")
	return cmd
}

func printEvent(out io.Writer, evt daemon.BufferedEvent) {
	stamp := evt.Timestamp.Local().Format("15:04:05")
	switch events.Type(evt.Type) {
	case events.TypeBackupStarted:
		var payload events.BackupStarted
		if decodePayload(evt.Payload, &payload) {
			fmt.Fprintf(out, "%s drive %d: backup of %q started (run %s)\n",
				stamp, payload.DriveID, payload.DiscName, payload.RunID)
			return
		}
	case events.TypeBackupProgress:
		var payload events.BackupProgress
		if decodePayload(evt.Payload, &payload) {
			if payload.Percent < 0 {
				fmt.Fprintf(out, "%s drive %d: %s\n", stamp, payload.DriveID, payload.Message)
			} else {
				fmt.Fprintf(out, "%s drive %d: %s %.1f%%\n", stamp, payload.DriveID, payload.Stage, payload.Percent)
			}
			return
		}
	case events.TypeBackupLog:
		var payload events.BackupLog
		if decodePayload(evt.Payload, &payload) {
			fmt.Fprintf(out, "%s drive %d: %s\n", stamp, payload.DriveID, payload.Line)
			return
		}
	case events.TypeBackupComplete:
		var payload events.BackupComplete
		if decodePayload(evt.Payload, &payload) {
			if payload.Success {
				fmt.Fprintf(out, "%s drive %d: backup complete (run %s)\n", stamp, payload.DriveID, payload.RunID)
			} else {
				fmt.Fprintf(out, "%s drive %d: backup failed: %s\n", stamp, payload.DriveID, payload.Error)
			}
			return
		}
	case events.TypeFingerprintMatch:
		var payload events.FingerprintMatch
		if decodePayload(evt.Payload, &payload) {
			fmt.Fprintf(out, "%s drive %d: known disc %s (%d)\n",
				stamp, payload.DriveID, payload.Match.Title, payload.Match.Year)
			return
		}
	case events.TypeMetadataUpdated:
		var payload events.MetadataUpdated
		if decodePayload(evt.Payload, &payload) {
			fmt.Fprintf(out, "%s metadata updated: %s\n", stamp, payload.Path)
			return
		}
	}
	fmt.Fprintf(out, "%s %s: %s\n", stamp, evt.Type, string(evt.Payload))
}

func decodePayload(raw json.RawMessage, v any) bool {
	return json.Unmarshal(raw, v) == nil
}
