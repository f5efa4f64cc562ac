// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package voicedrop watches a directory for new audio recordings.
//
// Recorders usually write a file in several chunks, so a path is emitted
// only after it has been quiet for the debounce interval and is non-empty.
// Each path is emitted once until it is removed.
package voicedrop

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long a file must stay unchanged before it is emitted.
const DefaultDebounce = 500 * time.Millisecond

var audioExtensions = map[string]struct{}{
	".wav":  {},
	".webm": {},
	".mp3":  {},
	".ogg":  {},
	".m4a":  {},
	".flac": {},
}

// IsAudioFile reports whether path has a supported audio extension.
func IsAudioFile(path string) bool {
	_, ok := audioExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

const minTick = time.Millisecond

// Option customizes a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before a file is emitted.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the watcher's logger.
func WithLogger(logger *zap.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// Watcher emits audio files dropped into a directory.
type Watcher struct {
	dir      string
	debounce time.Duration
	logger   *zap.Logger

	fsw     *fsnotify.Watcher
	out     chan string
	pending map[string]time.Time
	emitted map[string]struct{}
}

// New creates the directory if needed and starts watching it. Events are
// buffered until Run is called.
func New(dir string, opts ...Option) (*Watcher, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("voicedrop: directory is empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("voicedrop: create %s: %w", dir, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("voicedrop: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("voicedrop: watch %s: %w", dir, err)
	}

	w := &Watcher{
		dir:      dir,
		debounce: DefaultDebounce,
		logger:   zap.NewNop(),
		fsw:      fsw,
		out:      make(chan string, 16),
		pending:  make(map[string]time.Time),
		emitted:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Paths returns the channel of settled audio files. It is closed when Run
// returns.
func (w *Watcher) Paths() <-chan string {
	return w.out
}

// Run processes events until ctx is done. It closes the underlying watcher
// and the Paths channel on return. Run must be called at most once.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.out)
	defer w.fsw.Close()

	ticker := time.NewTicker(tickInterval(w.debounce))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("voice drop watcher error", zap.Error(err))

		case now := <-ticker.C:
			for _, path := range w.settled(now) {
				select {
				case w.out <- path:
				case <-ctx.Done():
					return nil
				}
			}
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !IsAudioFile(event.Name) {
		return
	}
	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		// A rename event names the old path; the new one arrives as Create.
		delete(w.pending, event.Name)
		delete(w.emitted, event.Name)
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		if _, done := w.emitted[event.Name]; done {
			return
		}
		w.pending[event.Name] = time.Now()
	}
}

// tickInterval is how often pending files are checked. NewTicker panics on
// a non-positive interval, so tiny debounce values are floored.
func tickInterval(debounce time.Duration) time.Duration {
	if d := debounce / 2; d >= minTick {
		return d
	}
	return minTick
}

// settled returns pending paths that have been quiet for the debounce
// interval and marks them emitted.
func (w *Watcher) settled(now time.Time) []string {
	var ready []string
	for path, last := range w.pending {
		if now.Sub(last) < w.debounce {
			continue
		}
		delete(w.pending, path)

		info, err := os.Stat(path)
		if err != nil || info.IsDir() || info.Size() == 0 {
			continue
		}
		w.emitted[path] = struct{}{}
		w.logger.Debug("voice file ready", zap.String("path", path), zap.Int64("bytes", info.Size()))
		ready = append(ready, path)
	}
	return ready
}
