// Package watch keeps the synthesized index in sync with the artifact
// directory: filesystem events trigger debounced rebuilds and a scheduled
// periodic resync catches anything the watcher missed.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"git.home.luguber.info/inful/wheelhouse/internal/index"
	"git.home.luguber.info/inful/wheelhouse/internal/notify"
)

// Options configures a watcher.
type Options struct {
	ArtifactDir    string
	Debounce       time.Duration
	ResyncInterval time.Duration
}

// Watcher rebuilds the index on artifact changes.
type Watcher struct {
	opts        Options
	synthesizer *index.Synthesizer
	publisher   *notify.Publisher // optional
	watcher     *fsnotify.Watcher
	scheduler   gocron.Scheduler
	rebuildChan chan struct{}
}

// NewWatcher creates a watcher driving the given synthesizer. The publisher
// is optional; pass nil to disable rebuild notifications.
func NewWatcher(opts Options, synthesizer *index.Synthesizer, publisher *notify.Publisher) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		_ = fsWatcher.Close()
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	absDir, err := filepath.Abs(opts.ArtifactDir)
	if err != nil {
		_ = fsWatcher.Close()
		return nil, fmt.Errorf("failed to resolve artifact directory: %w", err)
	}
	opts.ArtifactDir = absDir

	return &Watcher{
		opts:        opts,
		synthesizer: synthesizer,
		publisher:   publisher,
		watcher:     fsWatcher,
		scheduler:   scheduler,
		rebuildChan: make(chan struct{}, 1),
	}, nil
}

// Run watches until the context is canceled. An initial rebuild runs before
// event processing starts so the index is never stale at startup.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.watcher.Add(w.opts.ArtifactDir); err != nil {
		return fmt.Errorf("failed to watch artifact directory %s: %w", w.opts.ArtifactDir, err)
	}

	if _, err := w.scheduler.NewJob(
		gocron.DurationJob(w.opts.ResyncInterval),
		gocron.NewTask(w.triggerRebuild),
		gocron.WithName("periodic-resync"),
	); err != nil {
		return fmt.Errorf("failed to schedule periodic resync: %w", err)
	}
	w.scheduler.Start()
	defer func() {
		if err := w.scheduler.Shutdown(); err != nil {
			slog.Warn("Failed to shut down scheduler", "error", err)
		}
		if err := w.watcher.Close(); err != nil {
			slog.Warn("Failed to close file watcher", "error", err)
		}
	}()

	slog.Info("Watching artifact directory",
		"dir", w.opts.ArtifactDir,
		"debounce", w.opts.Debounce,
		"resync_interval", w.opts.ResyncInterval)

	w.rebuild()

	go w.eventLoop(ctx)

	var debounce *time.Timer
	var debounceC <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.rebuildChan:
			if debounce == nil {
				debounce = time.NewTimer(w.opts.Debounce)
				debounceC = debounce.C
			} else {
				if !debounce.Stop() {
					<-debounceC
				}
				debounce.Reset(w.opts.Debounce)
			}
		case <-debounceC:
			debounce = nil
			debounceC = nil
			w.rebuild()
		}
	}
}

// eventLoop forwards relevant filesystem events into the rebuild channel.
func (w *Watcher) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, ".whl") {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				slog.Debug("Artifact change detected", "file", event.Name, "op", event.Op.String())
				w.triggerRebuild()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("File watcher error", "error", err)
		}
	}
}

// triggerRebuild requests a rebuild without blocking; a pending request
// already covers any number of triggers.
func (w *Watcher) triggerRebuild() {
	select {
	case w.rebuildChan <- struct{}{}:
	default:
	}
}

func (w *Watcher) rebuild() {
	runID := uuid.NewString()
	slog.Info("Rebuilding index", "run_id", runID)

	result, err := w.synthesizer.Synthesize()
	if err != nil {
		slog.Error("Index rebuild failed", "run_id", runID, "error", err)
		return
	}
	slog.Info("Index rebuilt",
		"run_id", runID,
		"packages", result.Packages,
		"wheels", result.Wheels,
		"skipped", len(result.Skipped))

	if w.publisher != nil {
		event := notify.RebuildEvent{
			RunID:     runID,
			Packages:  result.Packages,
			Wheels:    result.Wheels,
			Skipped:   len(result.Skipped),
			OutputDir: result.OutputDir,
			Timestamp: time.Now().UTC(),
		}
		if err := w.publisher.Publish(event); err != nil {
			slog.Warn("Failed to publish rebuild event", "run_id", runID, "error", err)
		}
	}
}
