package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/rjeczalik/notify"
	"github.com/spf13/cobra"

	"github.com/ShammiG/comfy-readable-metadata/analyzer"
	"github.com/ShammiG/comfy-readable-metadata/container"
)

var watchCmd = &cobra.Command{
	Use:   "watch {dir}",
	Short: "Print a report whenever an image or video below a directory changes",
	Long: `Print a report whenever an image or video below a directory changes.

File system events are debounced by watch.settle_millis and the whole directory is
rescanned every watch.resync_seconds. A file is reported again only when its content
changed.`,
	Args: cobra.ExactArgs(1),
	RunE: doWatch,
}

var flagWatchSummary bool

func init() {
	watchCmd.Flags().BoolVar(&flagWatchSummary, "summary", false, "Print the concise summary lines instead of full reports")
	rootCmd.AddCommand(watchCmd)
}

type watcher struct {
	dir      string
	analyzer *analyzer.Analyzer
	cache    *analyzer.Cache
	settle   time.Duration
	emit     func(*analyzer.Analysis) error

	// pending maps a path to the time of its last event.
	pending map[string]time.Time
}

// process analyzes path when its change key differs from the last one seen.
func (w *watcher) process(ctx context.Context, path string) error {
	key, err := analyzer.ChangeKey(path)
	if err != nil {
		// the file may already be gone again
		slog.Debug("Cannot key file", "path", path, "error", err)
		return nil
	}
	if !w.cache.Changed(path, key) {
		return nil
	}
	an, err := w.analyzer.Analyze(ctx, path)
	switch {
	case errors.Is(err, container.ErrUnsupported):
		return nil
	case err != nil:
		slog.Warn("Failed to analyze file", "path", path, "error", err)
		// forget the key so the next event retries
		w.cache.Forget(path)
		return nil
	}
	return w.emit(an)
}

func (w *watcher) resync(ctx context.Context) error {
	files, err := regularFiles(w.dir)
	if err != nil {
		return err
	}
	for _, path := range files {
		if err := w.process(ctx, path); err != nil {
			return err
		}
	}
	return nil
}

func (w *watcher) event(ei notify.EventInfo, now time.Time) {
	if ei.Event()&(notify.Remove|notify.Rename) != 0 {
		// a rename delivers the old name; the new name arrives as its own create event
		w.cache.Forget(ei.Path())
		delete(w.pending, ei.Path())
		if ei.Event()&notify.Remove != 0 {
			return
		}
	}
	w.pending[ei.Path()] = now
}

// flush processes the pending paths that have been quiet for the settle period.
func (w *watcher) flush(ctx context.Context, now time.Time) error {
	for path, last := range w.pending {
		if now.Sub(last) < w.settle {
			continue
		}
		delete(w.pending, path)
		if err := w.process(ctx, path); err != nil {
			return err
		}
	}
	return nil
}

func (w *watcher) run(ctx context.Context, resyncEvery time.Duration) error {
	events := make(chan notify.EventInfo, 64)
	if err := notify.Watch(filepath.Join(w.dir, "..."), events, notify.Create, notify.Write, notify.Rename, notify.Remove); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	defer notify.Stop(events)

	if err := w.resync(ctx); err != nil {
		return err
	}

	var resync <-chan time.Time
	if resyncEvery > 0 {
		t := time.NewTicker(resyncEvery)
		defer t.Stop()
		resync = t.C
	}
	tick := w.settle / 2
	if tick < 50*time.Millisecond {
		tick = 50 * time.Millisecond
	}
	flush := time.NewTicker(tick)
	defer flush.Stop()

	slog.Info("Watching for changes", "dir", w.dir)
	for {
		select {
		case ei := <-events:
			w.event(ei, time.Now())
		case now := <-flush.C:
			if err := w.flush(ctx, now); err != nil {
				return err
			}
		case <-resync:
			if err := w.resync(ctx); err != nil {
				return err
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func doWatch(cmd *cobra.Command, args []string) error {
	a, err := newAnalyzer()
	if err != nil {
		return err
	}
	dir, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	w := &watcher{
		dir:      dir,
		analyzer: a,
		cache:    analyzer.NewCache(),
		settle:   time.Duration(cfg.Watch.SettleMillis) * time.Millisecond,
		pending:  make(map[string]time.Time),
		emit: func(an *analyzer.Analysis) error {
			return writeOutput(cmd, "-", section(an, flagWatchSummary), true)
		},
	}
	return w.run(cmd.Context(), time.Duration(cfg.Watch.ResyncSeconds)*time.Second)
}
