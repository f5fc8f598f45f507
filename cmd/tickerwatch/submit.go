package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/phrazzld/tickerwatch/internal/client"
	"github.com/phrazzld/tickerwatch/internal/monitor"
	"github.com/phrazzld/tickerwatch/internal/task"
	"github.com/spf13/cobra"
)

// followInterval is how often a followed task is checked, and polled when
// the stream is down. While the stream is up the task is still polled every
// connectedPollEvery checks, which recovers events the stream dropped.
const (
	followInterval     = 250 * time.Millisecond
	connectedPollEvery = 8
)

func newSubmitCmd(a *app) *cobra.Command {
	var (
		reportType string
		force      bool
		watch      bool
	)

	cmd := &cobra.Command{
		Use:   "submit <stock-code>",
		Short: "Submit a stock for analysis",
		Long: `Submit a stock for asynchronous analysis and print the task id.

If an analysis for the same stock is already pending or processing, the id of
that task is printed instead and the command exits with status 2.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := client.AnalysisRequest{
				StockCode:    args[0],
				ReportType:   task.ReportType(reportType),
				ForceRefresh: force,
			}
			out := cmd.OutOrStdout()

			if !watch {
				accepted, err := a.api.SubmitAnalysis(cmd.Context(), req)
				if err != nil {
					return reportSubmitError(out, err)
				}
				fmt.Fprintf(out, "task %s accepted (%s)\n", accepted.TaskID, accepted.Status)
				return nil
			}

			m, err := monitor.New(a.api, a.cfg.Stream, a.logger)
			if err != nil {
				return err
			}
			defer m.Close()

			// subscribe first so no lifecycle event is missed
			m.Start(cmd.Context())

			accepted, err := m.Submit(cmd.Context(), req)
			if err != nil {
				return reportSubmitError(out, err)
			}
			fmt.Fprintf(out, "task %s accepted (%s)\n", accepted.TaskID, accepted.Status)
			return follow(cmd.Context(), m, accepted.TaskID, out)
		},
	}

	cmd.Flags().StringVar(&reportType, "report-type", string(task.ReportSimple), "report type (simple or detailed)")
	cmd.Flags().BoolVar(&force, "force", false, "re-run the analysis even if a recent report exists")
	cmd.Flags().BoolVar(&watch, "watch", false, "follow the task until it finishes")
	return cmd
}

func reportSubmitError(out io.Writer, err error) error {
	var dup *client.DuplicateTaskError
	if errors.As(err, &dup) {
		fmt.Fprintf(out, "analysis for %s already in progress: task %s\n", dup.StockCode, dup.ExistingTaskID)
	}
	return err
}

// follow prints each change of the task until it reaches a terminal status.
// A failed task is returned as an error.
func follow(ctx context.Context, m *monitor.Monitor, taskID string, out io.Writer) error {
	ticker := time.NewTicker(followInterval)
	defer ticker.Stop()

	var last task.Task
	for checks := 0; ; checks++ {
		if !m.Connected() || checks%connectedPollEvery == connectedPollEvery-1 {
			if _, err := m.Refresh(ctx, taskID); err != nil && ctx.Err() == nil {
				fmt.Fprintf(out, "poll failed: %v\n", err)
			}
		}

		if t, ok := m.Task(taskID); ok && (t.Status != last.Status || t.Progress != last.Progress) {
			last = t
			fmt.Fprintf(out, "%s %3d%% %s\n", t.Status, t.Progress, t.Message)

			switch t.Status {
			case task.StatusCompleted:
				return nil
			case task.StatusFailed:
				if t.Error != "" {
					return fmt.Errorf("analysis %s failed: %s", taskID, t.Error)
				}
				return fmt.Errorf("analysis %s failed", taskID)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
