package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"requestarr/internal/api"
)

func newRequestsCommand(ctx *commandContext) *cobra.Command {
	requestsCmd := &cobra.Command{
		Use:     "requests",
		Aliases: []string{"request"},
		Short:   "File and manage audiobook requests",
	}

	requestsCmd.AddCommand(newRequestsListCommand(ctx))
	requestsCmd.AddCommand(newRequestsShowCommand(ctx))
	requestsCmd.AddCommand(newRequestsAddCommand(ctx))
	requestsCmd.AddCommand(newRequestsSetStatusCommand(ctx))
	requestsCmd.AddCommand(newRequestsRemoveCommand(ctx))

	return requestsCmd
}

func newRequestsListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			views, err := client.Requests(cmd.Context(), statuses...)
			if err != nil {
				return err
			}
			if len(views) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No requests found")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Title", "Author", "Status", "Score", "Requested"},
				buildRequestRows(views),
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Filter by status (repeatable)")
	return cmd
}

func newRequestsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one request in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRequestID(args[0])
			if err != nil {
				return err
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			view, err := client.Request(cmd.Context(), id)
			if err != nil {
				return err
			}
			printRequest(cmd, view)
			return nil
		},
	}
}

func newRequestsAddCommand(ctx *commandContext) *cobra.Command {
	var input api.CreateRequestInput

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "File a new request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input.Title = args[0]
			client, err := ctx.client()
			if err != nil {
				return err
			}
			view, err := client.CreateRequest(cmd.Context(), input)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Filed request #%d: %s\n", view.ID, view.Title)
			return nil
		},
	}

	cmd.Flags().StringVar(&input.Author, "author", "", "Author name")
	cmd.Flags().StringVar(&input.Narrator, "narrator", "", "Narrator name")
	cmd.Flags().StringVar(&input.ISBN, "isbn", "", "ISBN")
	cmd.Flags().StringVar(&input.ASIN, "asin", "", "Audible ASIN")
	cmd.Flags().StringVar(&input.Source, "source", "", "Where the request came from")
	cmd.Flags().StringVar(&input.Requester, "requester", "", "Who asked for the book")
	cmd.Flags().StringVar(&input.UserNote, "note", "", "Free-form note from the requester")
	return cmd
}

func newRequestsSetStatusCommand(ctx *commandContext) *cobra.Command {
	var note string

	cmd := &cobra.Command{
		Use:   "set-status <id> <status>",
		Short: "Move a request to a new status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRequestID(args[0])
			if err != nil {
				return err
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			view, err := client.SetRequestStatus(cmd.Context(), id, api.SetStatusInput{
				Status:      args[1],
				ManagerNote: note,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Request #%d is now %s\n", view.ID, view.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&note, "note", "", "Note explaining the transition")
	return cmd
}

func newRequestsRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Delete a request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRequestID(args[0])
			if err != nil {
				return err
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			if err := client.RemoveRequest(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed request #%d\n", id)
			return nil
		},
	}
}

func parseRequestID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid request id %q", arg)
	}
	return id, nil
}

func buildRequestRows(views []api.RequestView) [][]string {
	rows := make([][]string, 0, len(views))
	for _, view := range views {
		rows = append(rows, []string{
			strconv.FormatInt(view.ID, 10),
			truncate(view.Title, 40),
			truncate(view.Author, 30),
			view.Status,
			formatScore(view.MatchScore),
			formatWhen(view.CreatedAt),
		})
	}
	return rows
}

func printRequest(cmd *cobra.Command, view api.RequestView) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Request #%d\n", view.ID)
	fmt.Fprintf(out, "  title:               %s\n", view.Title)
	if view.Author != "" {
		fmt.Fprintf(out, "  author:              %s\n", view.Author)
	}
	if view.Narrator != "" {
		fmt.Fprintf(out, "  narrator:            %s\n", view.Narrator)
	}
	if view.ISBN != "" {
		fmt.Fprintf(out, "  isbn:                %s\n", view.ISBN)
	}
	if view.ASIN != "" {
		fmt.Fprintf(out, "  asin:                %s\n", view.ASIN)
	}
	if view.Source != "" {
		fmt.Fprintf(out, "  source:              %s\n", view.Source)
	}
	if view.Requester != "" {
		fmt.Fprintf(out, "  requester:           %s\n", view.Requester)
	}
	fmt.Fprintf(out, "  status:              %s\n", view.Status)
	if view.UserNote != "" {
		fmt.Fprintf(out, "  user note:           %s\n", view.UserNote)
	}
	if view.ManagerNote != "" {
		fmt.Fprintf(out, "  manager note:        %s\n", view.ManagerNote)
	}
	if view.MatchedTitle != "" {
		fmt.Fprintf(out, "  matched title:       %s\n", view.MatchedTitle)
	}
	if view.MatchedAuthor != "" {
		fmt.Fprintf(out, "  matched author:      %s\n", view.MatchedAuthor)
	}
	if view.MatchScore > 0 {
		fmt.Fprintf(out, "  match score:         %s\n", formatScore(view.MatchScore))
	}
	fmt.Fprintf(out, "  fulfilled by sync:   %s\n", yesNo(view.FulfilledBySync))
	if view.LastSyncCheckedAt != "" {
		fmt.Fprintf(out, "  last sync check:     %s\n", formatWhen(view.LastSyncCheckedAt))
	}
	fmt.Fprintf(out, "  created:             %s\n", formatWhen(view.CreatedAt))
	fmt.Fprintf(out, "  updated:             %s\n", formatWhen(view.UpdatedAt))
}
