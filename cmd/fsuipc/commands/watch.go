package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/voneiden/gofsuipc/pkg/monitor"
	"github.com/voneiden/gofsuipc/pkg/offsets"
)

// WatchOptions configures RunWatch.
type WatchOptions struct {
	Interval  time.Duration
	Heartbeat time.Duration
	Logger    *slog.Logger
}

// RunWatch prints notifications for defs until ctx is done. Poll errors
// are printed and polling continues.
func RunWatch(ctx context.Context, src monitor.Source, defs []offsets.Definition, opts WatchOptions, w io.Writer) error {
	watcher, err := monitor.NewWatcher(src, defs, monitor.Config{
		Interval:  opts.Interval,
		Heartbeat: opts.Heartbeat,
		Logger:    opts.Logger,
	})
	if err != nil {
		return err
	}
	watcher.OnNotification(func(n monitor.Notification) {
		PrintNotification(w, n)
	})
	watcher.OnError(func(err error) {
		fmt.Fprintf(w, "%s ERROR %v\n", time.Now().Format("15:04:05.000"), err)
	})

	err = watcher.Run(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// PrintNotification writes one line per value of n.
func PrintNotification(w io.Writer, n monitor.Notification) {
	stamp := n.Time.Format("15:04:05.000")
	for _, v := range n.Values {
		fmt.Fprintf(w, "%s %-9s %-24s %s\n", stamp, n.Kind, v.Def.Name, offsets.Format(v.Def, v.Value))
	}
}
