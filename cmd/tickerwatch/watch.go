package main

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/phrazzld/tickerwatch/internal/events"
	"github.com/phrazzld/tickerwatch/internal/monitor"
	"github.com/phrazzld/tickerwatch/internal/redact"
	"github.com/phrazzld/tickerwatch/internal/stream"
	"github.com/phrazzld/tickerwatch/internal/task"
	"github.com/spf13/cobra"
)

// eventPrinter writes one line per lifecycle event or connectivity change.
type eventPrinter struct {
	mu  sync.Mutex
	out io.Writer
}

func (p *eventPrinter) printf(format string, args ...interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format, args...)
}

func (p *eventPrinter) task(kind string, t task.Task) {
	line := fmt.Sprintf("%-9s %s %s %s %d%%", kind, t.TaskID, t.StockCode, t.Status, t.Progress)
	if t.Error != "" {
		line += " error=" + t.Error
	}
	p.printf("%s\n", line)
}

func (p *eventPrinter) handler() events.Handler {
	return events.HandlerFuncs{
		Created:   func(t task.Task) { p.task("created", t) },
		Started:   func(t task.Task) { p.task("started", t) },
		Completed: func(t task.Task) { p.task("completed", t) },
		Failed:    func(t task.Task) { p.task("failed", t) },
	}
}

func (p *eventPrinter) observer() stream.Observer {
	return stream.ObserverFuncs{
		Connected: func() { p.printf("connected\n") },
		Error:     func(err error) { p.printf("disconnected: %s\n", redact.Error(err)) },
	}
}

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print task lifecycle events until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !a.cfg.Stream.Enabled {
				return errors.New("the task stream is disabled (stream.enabled=false)")
			}

			printer := &eventPrinter{out: cmd.OutOrStdout()}
			m, err := monitor.New(a.api, a.cfg.Stream, a.logger,
				monitor.WithHandler(printer.handler()),
				monitor.WithObserver(printer.observer()))
			if err != nil {
				return err
			}
			defer m.Close()

			m.Start(cmd.Context())
			<-cmd.Context().Done()
			return nil
		},
	}
}
