package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"requestarr/internal/api"
	"requestarr/internal/services"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Trigger and inspect library sync runs",
	}

	syncCmd.AddCommand(newSyncNowCommand(ctx))
	syncCmd.AddCommand(newSyncLogsCommand(ctx))
	syncCmd.AddCommand(newSyncShowCommand(ctx))

	return syncCmd
}

func newSyncNowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "now",
		Short: "Run a sync against Audiobookshelf immediately",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			log, err := client.Sync(cmd.Context())
			if err != nil {
				if errors.Is(err, services.ErrSyncAlreadyRunning) {
					fmt.Fprintln(cmd.OutOrStdout(), "A sync run is already in progress")
					return nil
				}
				return err
			}
			printSyncSummary(cmd.OutOrStdout(), log)
			return nil
		},
	}
}

func newSyncLogsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "List recent sync runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			logs, err := client.SyncLogs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(logs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No sync runs recorded yet")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Started", "Trigger", "Outcome", "Checked", "Certain", "Possible", "None"},
				buildSyncLogRows(logs),
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list")
	return cmd
}

func newSyncShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one sync run with its match details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid sync log id %q", args[0])
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			log, err := client.SyncLog(cmd.Context(), id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printSyncSummary(out, log)
			fmt.Fprintf(out, "  run id:              %s\n", log.RunID)
			if len(log.Details) == 0 {
				fmt.Fprintln(out, "No matches recorded for this run")
				return nil
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, renderTable(
				[]string{"Request", "Title", "Item", "Item Title", "Title Score", "Author Score", "Verdict", "Result"},
				buildSyncDetailRows(log.Details),
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
}

func buildSyncLogRows(logs []api.SyncLogView) [][]string {
	rows := make([][]string, 0, len(logs))
	for _, log := range logs {
		rows = append(rows, []string{
			strconv.FormatInt(log.ID, 10),
			formatWhen(log.StartedAt),
			log.TriggeredBy,
			log.Outcome,
			strconv.Itoa(log.RequestsChecked),
			strconv.Itoa(log.CertainMatches),
			strconv.Itoa(log.PossibleMatches),
			strconv.Itoa(log.NoMatches),
		})
	}
	return rows
}

func buildSyncDetailRows(details []api.MatchDetailView) [][]string {
	rows := make([][]string, 0, len(details))
	for _, detail := range details {
		rows = append(rows, []string{
			strconv.FormatInt(detail.RequestID, 10),
			truncate(detail.RequestTitle, 40),
			detail.ItemID,
			truncate(detail.ItemTitle, 40),
			formatScore(detail.TitleScore),
			formatScore(detail.AuthorScore),
			detail.Verdict,
			detail.ResultStatus,
		})
	}
	return rows
}
