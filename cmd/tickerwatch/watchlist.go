package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newWatchlistCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watchlist",
		Short: "Manage followed stocks",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List followed stocks",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				list, err := a.api.ListWatchlist(cmd.Context())
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintf(w, "ID\tSTOCK\tNAME\tADDED\n")
				for _, item := range list.Items {
					name := item.StockName
					if name == "" {
						name = "-"
					}
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", item.ID, item.StockCode, name,
						item.CreatedAt.Local().Format(time.DateTime))
				}
				return w.Flush()
			},
		},
		&cobra.Command{
			Use:   "search <query>",
			Short: "Search stocks by code or name",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				result, err := a.api.SearchStocks(cmd.Context(), strings.Join(args, " "))
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintf(w, "STOCK\tNAME\tMARKET\n")
				for _, r := range result.Results {
					fmt.Fprintf(w, "%s\t%s\t%s\n", r.StockCode, r.StockName, r.Market)
				}
				return w.Flush()
			},
		},
		&cobra.Command{
			Use:   "add <stock-code> [name]",
			Short: "Follow a stock",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				name := ""
				if len(args) == 2 {
					name = args[1]
				}
				item, err := a.api.AddToWatchlist(cmd.Context(), args[0], name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "added %s (id %d)\n", item.StockCode, item.ID)
				return nil
			},
		},
		&cobra.Command{
			Use:   "remove <id>",
			Short: "Unfollow a stock by watchlist id",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid watchlist id %q", args[0])
				}
				if err := a.api.RemoveFromWatchlist(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d\n", id)
				return nil
			},
		},
	)
	return cmd
}
