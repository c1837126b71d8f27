// Package watcher drives ingestion from filesystem change events. Each
// watched file moves between two modes: watching the file's directory while
// the file is absent, and reacting to write events once it exists.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/duynguyen020304/pz-manager-sub001/internal/config"
	"github.com/duynguyen020304/pz-manager-sub001/internal/ingest"
	"github.com/duynguyen020304/pz-manager-sub001/internal/logging"
	"github.com/duynguyen020304/pz-manager-sub001/internal/metrics"
	"github.com/duynguyen020304/pz-manager-sub001/internal/models"
	"github.com/duynguyen020304/pz-manager-sub001/internal/stream"
)

// watchedFile tracks per-file ingestion state. All fields are guarded by
// the owning Watcher's mutex except where noted.
type watchedFile struct {
	path   string
	kind   models.ParserKind
	server string

	present    bool
	debounce   *time.Timer
	busy       bool
	rerun      bool
	lastIngest time.Time
}

// Watcher owns the fsnotify loop and the per-file debounce timers.
type Watcher struct {
	cfg     config.WatcherConfig
	manager *ingest.Manager
	streams *stream.Manager
	log     *logging.Logger

	fs *fsnotify.Watcher

	mu    sync.Mutex
	files map[string]*watchedFile
	dirs  map[string]struct{}

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New creates a watcher over the given ingest manager and stream buffers.
func New(cfg config.WatcherConfig, manager *ingest.Manager, streams *stream.Manager, log *logging.Logger) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		cfg:     cfg,
		manager: manager,
		streams: streams,
		log:     log.Component("watcher"),
		fs:      fs,
		files:   make(map[string]*watchedFile),
		dirs:    make(map[string]struct{}),
		stopCh:  make(chan struct{}),
	}, nil
}

// serverLogFiles maps the well-known Zomboid log file names to their
// dialect parsers.
var serverLogFiles = map[string]models.ParserKind{
	"user.txt":    models.KindPlayer,
	"chat.txt":    models.KindChat,
	"pvp.txt":     models.KindPVP,
	"PerkLog.txt": models.KindSkill,
	"server.txt":  models.KindServer,
}

// Start installs watches for every configured server and launches the event
// loop. Files that do not exist yet are picked up when they appear.
func (w *Watcher) Start(ctx context.Context) error {
	for _, server := range w.cfg.Servers {
		if err := w.RegisterServer(server); err != nil {
			return err
		}
	}

	w.wg.Add(1)
	go w.run(ctx)

	w.log.Info("watcher started", "servers", len(w.cfg.Servers), "files", len(w.files))
	return nil
}

// RegisterServer installs watches for every well-known log file of one
// server plus its backup manager log.
func (w *Watcher) RegisterServer(server string) error {
	for name, kind := range serverLogFiles {
		path := filepath.Join(w.cfg.LogDir, server, name)
		if err := w.WatchFile(path, kind, server); err != nil {
			return err
		}
	}
	backupPath := filepath.Join(w.cfg.BackupLogDir, server+".log")
	return w.WatchFile(backupPath, models.KindBackup, server)
}

// WatchFile registers one file for event-driven ingestion. The parent
// directory is watched so the file can be absent now and appear later.
func (w *Watcher) WatchFile(path string, kind models.ParserKind, server string) error {
	path = filepath.Clean(path)
	dir := filepath.Dir(path)

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.files[path]; ok {
		return nil
	}

	if _, ok := w.dirs[dir]; !ok {
		if err := w.fs.Add(dir); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
		w.dirs[dir] = struct{}{}
	}

	_, statErr := os.Stat(path)
	w.files[path] = &watchedFile{
		path:    path,
		kind:    kind,
		server:  server,
		present: statErr == nil,
	}
	metrics.WatchedFiles.Inc()

	if statErr != nil {
		w.log.Info("watching directory for file to appear", "file", path)
	}
	return nil
}

// UnwatchFile cancels the file's pending timer and removes it from the
// watch set. The directory watch is released when no sibling remains.
func (w *Watcher) UnwatchFile(path string) {
	path = filepath.Clean(path)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.removeLocked(path)
}

func (w *Watcher) removeLocked(path string) {
	f, ok := w.files[path]
	if !ok {
		return
	}
	if f.debounce != nil {
		f.debounce.Stop()
	}
	delete(w.files, path)
	metrics.WatchedFiles.Dec()

	dir := filepath.Dir(path)
	for other := range w.files {
		if filepath.Dir(other) == dir {
			return
		}
	}
	_ = w.fs.Remove(dir)
	delete(w.dirs, dir)
}

// Stop halts the event loop and cancels every pending timer. Safe to call
// more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		_ = w.fs.Close()
	})
	w.wg.Wait()

	w.mu.Lock()
	for path := range w.files {
		w.removeLocked(path)
	}
	w.mu.Unlock()
}

// IngestAll runs one parse-and-ingest cycle over every watched file,
// regardless of pending events. Used at startup and by the sweep command.
func (w *Watcher) IngestAll(ctx context.Context) {
	w.mu.Lock()
	files := make([]*watchedFile, 0, len(w.files))
	for _, f := range w.files {
		files = append(files, f)
	}
	w.mu.Unlock()

	for _, f := range files {
		w.ingest(ctx, f)
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Error("fsnotify error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	path := filepath.Clean(event.Name)

	w.mu.Lock()
	f, ok := w.files[path]
	w.mu.Unlock()
	if !ok {
		return
	}

	switch {
	case event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename):
		w.handleDisappear(ctx, f)
	case event.Op.Has(fsnotify.Create):
		w.mu.Lock()
		f.present = true
		w.mu.Unlock()
		w.log.Info("watched file appeared", "file", path)
		w.scheduleIngest(ctx, f)
	case event.Op.Has(fsnotify.Write):
		w.scheduleIngest(ctx, f)
	}
}

// scheduleIngest arms the file's debounce timer, restarting it if a burst
// of writes is in progress. Ingestion runs once the writes quiet down.
func (w *Watcher) scheduleIngest(ctx context.Context, f *watchedFile) {
	w.mu.Lock()
	defer w.mu.Unlock()

	delay := w.cfg.Debounce

	// Writes that arrive too soon after the last cycle wait out the
	// remainder of the minimum interval instead.
	if min := w.cfg.MinIngestInterval; min > 0 && !f.lastIngest.IsZero() {
		if remaining := min - time.Since(f.lastIngest); remaining > delay {
			delay = remaining
		}
	}

	if f.debounce != nil {
		f.debounce.Reset(delay)
		return
	}
	f.debounce = time.AfterFunc(delay, func() {
		select {
		case <-w.stopCh:
			return
		default:
		}
		w.ingest(ctx, f)
	})
}

// ingest runs one cycle for the file. A cycle already in flight marks the
// file for one follow-up run instead of overlapping.
func (w *Watcher) ingest(ctx context.Context, f *watchedFile) {
	w.mu.Lock()
	if f.busy {
		f.rerun = true
		w.mu.Unlock()
		return
	}
	f.busy = true
	f.debounce = nil
	w.mu.Unlock()

	res, err := w.manager.ParseAndIngestFile(ctx, f.path, f.kind, f.server)
	if err != nil {
		w.log.Error("ingest cycle failed", "file", f.path, "error", err)
	} else if res.EntriesAdded > 0 {
		w.log.Info("ingested log entries",
			"file", f.path, "entries", res.EntriesAdded, "bytes", res.BytesProcessed)
		w.streams.Queue(f.server, res.Entries)
	}

	w.mu.Lock()
	f.busy = false
	f.lastIngest = time.Now()
	rerun := f.rerun
	f.rerun = false
	w.mu.Unlock()

	if rerun {
		w.scheduleIngest(ctx, f)
	}
}

// handleDisappear reacts to the watched file being removed or renamed away:
// drain what the final version held, rewind the watermark, then poll for the
// replacement to show up.
func (w *Watcher) handleDisappear(ctx context.Context, f *watchedFile) {
	w.mu.Lock()
	f.present = false
	if f.debounce != nil {
		f.debounce.Stop()
		f.debounce = nil
	}
	w.mu.Unlock()

	w.log.Info("watched file disappeared, rewinding position", "file", f.path)

	// Final cycle for bytes appended since the last debounce fired. If the
	// path is already gone this is a zero-effect attempt.
	w.ingest(ctx, f)

	if err := w.manager.ResetPosition(ctx, f.path, f.kind); err != nil {
		w.log.Error("failed to reset position", "file", f.path, "error", err)
	}

	w.wg.Add(1)
	go w.pollReappear(ctx, f)
}

func (w *Watcher) pollReappear(ctx context.Context, f *watchedFile) {
	defer w.wg.Done()

	deadline := time.Now().Add(w.cfg.ReappearTimeout)
	ticker := time.NewTicker(w.cfg.ReappearPoll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			if _, err := os.Stat(f.path); err == nil {
				w.mu.Lock()
				f.present = true
				w.mu.Unlock()
				w.log.Info("watched file reappeared", "file", f.path)
				w.scheduleIngest(ctx, f)
				return
			}
			if time.Now().After(deadline) {
				w.log.Warn("watched file did not reappear, still watching directory",
					"file", f.path, "timeout", w.cfg.ReappearTimeout)
				return
			}
		}
	}
}
