package main

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"requestarr/internal/api"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and Audiobookshelf status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			status, err := client.Status(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Daemon running:        %s (pid %d)\n", yesNo(status.Running), status.PID)
			fmt.Fprintf(out, "Sync in progress:      %s\n", yesNo(status.SyncRunning))
			fmt.Fprintf(out, "Database:              %s\n", status.DatabasePath)
			fmt.Fprintf(out, "Lock file:             %s\n", status.LockFilePath)
			fmt.Fprintf(out, "ABS configured:        %s\n", yesNo(status.Audiobookshelf.Configured))
			fmt.Fprintf(out, "ABS reachable:         %s\n", yesNo(status.Audiobookshelf.Reachable))
			for _, lib := range status.Audiobookshelf.Libraries {
				fmt.Fprintf(out, "  library:             %s (%s)\n", lib.Name, lib.ID)
			}
			fmt.Fprintf(out, "Open requests:         %d\n", status.OpenRequests)

			rows := buildRequestCountRows(status.RequestCounts)
			if len(rows) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, renderTable(
					[]string{"Status", "Count"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				))
			}

			if status.LastSync != nil {
				fmt.Fprintln(out)
				printSyncSummary(out, *status.LastSync)
			} else {
				fmt.Fprintln(out, "No sync runs recorded yet")
			}
			return nil
		},
	}
}

func buildRequestCountRows(counts map[string]int) [][]string {
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{key, fmt.Sprintf("%d", counts[key])})
	}
	return rows
}

func printSyncSummary(out io.Writer, log api.SyncLogView) {
	fmt.Fprintf(out, "Last sync:             #%d (%s, %s)\n", log.ID, log.TriggeredBy, log.Outcome)
	fmt.Fprintf(out, "  started:             %s\n", formatWhen(log.StartedAt))
	if log.FinishedAt != "" {
		fmt.Fprintf(out, "  finished:            %s\n", formatWhen(log.FinishedAt))
	}
	fmt.Fprintf(out, "  checked %d, certain %d, possible %d, none %d, skipped %d\n",
		log.RequestsChecked, log.CertainMatches, log.PossibleMatches, log.NoMatches, log.SkippedItems)
	if log.ErrorMessage != "" {
		fmt.Fprintf(out, "  error:               %s\n", log.ErrorMessage)
	}
}

// formatWhen shortens an API timestamp for terminal output.
func formatWhen(value string) string {
	if value == "" {
		return ""
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return value
	}
	return parsed.Local().Format("2006-01-02 15:04:05")
}
