package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"requestarr/internal/daemonclient"
	"requestarr/internal/search"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var byAuthor bool
	var byNarrator bool
	var inLibrary bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search metadata providers for audiobooks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			if inLibrary {
				return runLibrarySearch(cmd, client, strings.Join(args, " "))
			}
			resp, err := client.Search(cmd.Context(), strings.Join(args, " "), byAuthor, byNarrator)
			if err != nil {
				return err
			}
			if len(resp.Results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No results")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Title", "Author", "Narrator", "Duration", "ASIN", "ISBN", "Source"},
				buildSearchRows(resp.Results),
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&byAuthor, "author", false, "Treat the query as an author name")
	cmd.Flags().BoolVar(&byNarrator, "narrator", false, "Treat the query as a narrator name")
	cmd.Flags().BoolVar(&inLibrary, "library", false, "Search the Audiobookshelf library instead of providers")
	return cmd
}

func runLibrarySearch(cmd *cobra.Command, client *daemonclient.Client, query string) error {
	resp, err := client.LibrarySearch(cmd.Context(), query)
	if err != nil {
		return err
	}
	if len(resp.Items) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No results")
		return nil
	}
	rows := make([][]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		rows = append(rows, []string{
			truncate(item.Title, 50),
			truncate(item.Author, 30),
			truncate(item.Narrator, 30),
			item.LibraryName,
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"Title", "Author", "Narrator", "Library"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
	))
	return nil
}

func buildSearchRows(results []search.Candidate) [][]string {
	rows := make([][]string, 0, len(results))
	for _, result := range results {
		rows = append(rows, []string{
			truncate(result.Title, 50),
			truncate(result.Author, 30),
			truncate(result.Narrator, 30),
			result.Duration,
			result.ASIN,
			result.ISBN,
			result.Source,
		})
	}
	return rows
}
