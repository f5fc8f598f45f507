package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/phrazzld/tickerwatch/internal/client"
	"github.com/spf13/cobra"
)

func newHistoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse stored analysis reports",
	}

	var filter client.HistoryFilter
	list := &cobra.Command{
		Use:   "list",
		Short: "List stored reports, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			page, err := a.api.ListHistory(cmd.Context(), filter)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "QUERY\tSTOCK\tADVICE\tSCORE\tCREATED\n")
			for _, item := range page.Items {
				score := "-"
				if item.SentimentScore != nil {
					score = fmt.Sprintf("%.0f", *item.SentimentScore)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", item.QueryID, item.StockCode, item.OperationAdvice, score,
					item.CreatedAt.Local().Format(time.DateTime))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\npage %d of %d, %d total\n", page.Page, page.TotalPages, page.Total)
			return nil
		},
	}
	list.Flags().StringVar(&filter.StockCode, "stock", "", "only reports for this stock code")
	list.Flags().StringVar(&filter.StartDate, "from", "", "earliest report date (YYYY-MM-DD)")
	list.Flags().StringVar(&filter.EndDate, "to", "", "latest report date (YYYY-MM-DD)")
	list.Flags().IntVar(&filter.Page, "page", 0, "page number")
	list.Flags().IntVar(&filter.Limit, "limit", 0, "reports per page")

	var newsLimit int
	news := &cobra.Command{
		Use:   "news <query-id>",
		Short: "Show the news gathered for a report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			intel, err := a.api.HistoryNews(cmd.Context(), args[0], newsLimit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, item := range intel.Items {
				fmt.Fprintf(out, "%s  %s\n    %s\n", item.PublishedDate, item.Title, item.URL)
			}
			return nil
		},
	}
	news.Flags().IntVar(&newsLimit, "limit", 0, "maximum number of items")

	cmd.AddCommand(
		list,
		&cobra.Command{
			Use:   "show <query-id>",
			Short: "Show a stored report",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				report, err := a.api.HistoryDetail(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printReport(cmd.OutOrStdout(), report)
				return nil
			},
		},
		news,
	)
	return cmd
}

func newBacktestCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Evaluate past advice against later prices",
	}

	var run client.BacktestRun
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate stored reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			summary, err := a.api.RunBacktest(cmd.Context(), run)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d evaluated, %d skipped, %d failed of %d\n",
				summary.Evaluated, summary.Skipped, summary.Failed, summary.Total)
			return nil
		},
	}
	runCmd.Flags().StringVar(&run.Code, "code", "", "only reports for this stock code")
	runCmd.Flags().BoolVar(&run.Force, "force", false, "re-evaluate reports already evaluated")
	runCmd.Flags().IntVar(&run.EvalWindowDays, "window", 0, "evaluation window in days")
	runCmd.Flags().IntVar(&run.MinAgeDays, "min-age", 0, "skip reports younger than this many days")
	runCmd.Flags().IntVar(&run.Limit, "limit", 0, "maximum number of reports to evaluate")

	var filter client.BacktestFilter
	results := &cobra.Command{
		Use:   "results",
		Short: "List evaluations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			page, err := a.api.BacktestResults(cmd.Context(), filter)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "REPORT\tSTOCK\tDATE\tWINDOW\tADVICE\tRETURN\tOUTCOME\n")
			for _, r := range page.Items {
				ret := "-"
				if r.StockReturnPct != nil {
					ret = fmt.Sprintf("%+.2f%%", *r.StockReturnPct)
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%s\t%s\n",
					r.AnalysisHistoryID, r.Code, r.AnalysisDate, r.EvalWindowDays, r.OperationAdvice, ret, r.Outcome)
			}
			return w.Flush()
		},
	}
	results.Flags().StringVar(&filter.Code, "code", "", "only evaluations for this stock code")
	results.Flags().IntVar(&filter.EvalWindowDays, "window", 0, "only evaluations with this window")
	results.Flags().IntVar(&filter.Page, "page", 0, "page number")
	results.Flags().IntVar(&filter.Limit, "limit", 0, "evaluations per page")

	var window int
	performance := &cobra.Command{
		Use:   "performance [stock-code]",
		Short: "Show aggregated accuracy, overall or for one stock",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := ""
			if len(args) == 1 {
				code = args[0]
			}
			metrics, err := a.api.BacktestPerformance(cmd.Context(), code, window)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if metrics == nil {
				fmt.Fprintln(out, "no backtest data yet")
				return nil
			}
			fmt.Fprintf(out, "scope:       %s %s\n", metrics.Scope, metrics.Code)
			fmt.Fprintf(out, "window:      %d days\n", metrics.EvalWindowDays)
			fmt.Fprintf(out, "evaluations: %d (%d win, %d loss, %d neutral)\n",
				metrics.TotalEvaluations, metrics.WinCount, metrics.LossCount, metrics.NeutralCount)
			if metrics.WinRatePct != nil {
				fmt.Fprintf(out, "win rate:    %.2f%%\n", *metrics.WinRatePct)
			}
			if metrics.DirectionAccuracyPct != nil {
				fmt.Fprintf(out, "direction:   %.2f%%\n", *metrics.DirectionAccuracyPct)
			}
			return nil
		},
	}
	performance.Flags().IntVar(&window, "window", 0, "evaluation window in days")

	cmd.AddCommand(runCmd, results, performance)
	return cmd
}
