package runner

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	"github.com/sznuper/linkguard/internal/config"
	"github.com/sznuper/linkguard/internal/wait"
)

// Start runs cycles until ctx is canceled, driven by the configured trigger:
// interval runs a cycle and then sleeps the cooldown, cron fires on schedule
// and watch adds a cycle whenever the watched path is written. Overlapping
// triggers are skipped.
func (r *Runner) Start(ctx context.Context, opts RunOptions) error {
	t := r.cfg.Trigger
	log := r.logger.With("interval", t.Interval, "cron", t.Cron, "watch", t.Watch)
	log.Info("starting daemon")

	var wg sync.WaitGroup
	triggers := make(chan string, 1)

	if t.Interval != "" {
		interval := config.Duration(t.Interval, 3*time.Hour)
		wg.Go(func() {
			r.intervalLoop(ctx, interval, opts)
		})
	}

	if t.Cron != "" {
		sched, err := cron.ParseStandard(t.Cron)
		if err != nil {
			return fmt.Errorf("parsing cron %q: %w", t.Cron, err)
		}
		c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
		c.Schedule(sched, cron.FuncJob(func() { fire(triggers, "cron") }))
		c.Start()
		defer func() { <-c.Stop().Done() }()
	}

	if t.Watch != "" {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("creating watcher: %w", err)
		}
		defer w.Close()
		path := r.cfg.Path(t.Watch)
		// Watch the parent so the file may be created or replaced.
		if err := w.Add(filepath.Dir(path)); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		wg.Go(func() {
			r.watchLoop(ctx, w, path, triggers)
		})
	}

	if t.Cron != "" || t.Watch != "" {
		wg.Go(func() {
			for {
				select {
				case <-ctx.Done():
					return
				case source := <-triggers:
					r.logger.Info("trigger fired", "source", source)
					r.runAndLog(ctx, opts)
				}
			}
		})
	}

	wg.Wait()
	log.Info("daemon stopped")
	return nil
}

func (r *Runner) intervalLoop(ctx context.Context, interval time.Duration, opts RunOptions) {
	for {
		r.runAndLog(ctx, opts)
		r.logger.Info("waiting for next cycle", "cooldown", interval)
		if err := wait.Sleep(ctx, interval); err != nil {
			return
		}
	}
}

func (r *Runner) runAndLog(ctx context.Context, opts RunOptions) {
	if ctx.Err() != nil {
		return
	}
	res := r.RunOnce(ctx, opts)
	if res.Err != nil {
		r.logger.Error("run finished with error", "run", res.RunID, "stage", res.ErrStage, "error", res.Err)
	}
}

func (r *Runner) watchLoop(ctx context.Context, w *fsnotify.Watcher, path string, triggers chan<- string) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(path) {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				fire(triggers, "watch")
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			r.logger.Warn("watch error", "path", path, "error", err)
		}
	}
}

// fire queues a trigger unless one is already pending.
func fire(triggers chan<- string, source string) {
	select {
	case triggers <- source:
	default:
	}
}
