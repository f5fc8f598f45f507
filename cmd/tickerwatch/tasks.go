package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/phrazzld/tickerwatch/internal/client"
	"github.com/phrazzld/tickerwatch/internal/task"
	"github.com/spf13/cobra"
)

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status <task-id>",
		Short: "Show the status of one task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := a.api.TaskStatus(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "task:     %s\n", report.TaskID)
			fmt.Fprintf(out, "status:   %s\n", report.Status)
			fmt.Fprintf(out, "progress: %d%%\n", report.Progress)
			if report.Message != "" {
				fmt.Fprintf(out, "message:  %s\n", report.Message)
			}
			if report.Result != nil {
				printReport(out, report.Result)
			}
			return nil
		},
	}
}

func printReport(out io.Writer, r *client.AnalysisReport) {
	fmt.Fprintf(out, "stock:    %s %s\n", r.Meta.StockCode, r.Meta.StockName)
	fmt.Fprintf(out, "advice:   %s\n", r.Summary.OperationAdvice)
	fmt.Fprintf(out, "trend:    %s\n", r.Summary.TrendPrediction)
	fmt.Fprintf(out, "score:    %.0f %s\n", r.Summary.SentimentScore, r.Summary.SentimentLabel)
	fmt.Fprintf(out, "summary:  %s\n", r.Summary.AnalysisSummary)
}

func newTasksCmd(a *app) *cobra.Command {
	var (
		status string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List recent tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := a.api.ListTasks(cmd.Context(), client.TaskFilter{
				Status: task.Status(status),
				Limit:  limit,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printTasks(out, list.Tasks)
			fmt.Fprintf(out, "\n%d total, %d processing, %d pending\n",
				list.Total, list.ProcessingCount, list.PendingCount)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "only show tasks in this status")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of tasks")
	return cmd
}

func printTasks(out io.Writer, tasks []task.Task) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "TASK\tSTOCK\tSTATUS\tPROGRESS\tCREATED\n")
	for _, t := range tasks {
		created := "-"
		if !t.CreatedAt.IsZero() {
			created = t.CreatedAt.Local().Format(time.DateTime)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d%%\t%s\n", t.TaskID, t.StockCode, t.Status, t.Progress, created)
	}
	w.Flush()
}
