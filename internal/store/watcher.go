// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// BOT HISTORY WATCHER
// =============================================================================

// DefaultDebounce coalesces bursts of file events into one signal.
const DefaultDebounce = 250 * time.Millisecond

// Watcher reports external changes to one namespace's bot history file, so
// a second running instance sharing the data dir converges on what the
// first one wrote. Optional; enabled by storage.watch.
type Watcher struct {
	store    *BotStore
	key      string
	debounce time.Duration

	watcher *fsnotify.Watcher
	events  chan struct{}

	mu      sync.Mutex
	pending bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewWatcher starts watching the history file for key. Changed() fires at
// most once per debounce window; rewrites via rename (the atomic write
// pattern) count as changes.
func NewWatcher(store *BotStore, key string, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory, not the file: atomic rename replaces the inode
	// and a file watch would silently die on the first save.
	dir := filepath.Dir(store.FilePath(key))
	if err := os.MkdirAll(dir, 0755); err != nil {
		fsw.Close()
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		store:    store,
		key:      key,
		debounce: debounce,
		watcher:  fsw,
		events:   make(chan struct{}, 1),
		ctx:      ctx,
		cancel:   cancel,
	}
	go w.processEvents()
	go w.processPending()
	return w, nil
}

// Changed delivers a signal after the history file was modified externally.
func (w *Watcher) Changed() <-chan struct{} {
	return w.events
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	w.cancel()
	return w.watcher.Close()
}

func (w *Watcher) processEvents() {
	target := w.store.FilePath(w.key)
	for {
		select {
		case <-w.ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Name != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			w.mu.Lock()
			w.pending = true
			w.mu.Unlock()
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Watch errors are not actionable here; the next poll-free
			// reload still happens on the following event.
		}
	}
}

func (w *Watcher) processPending() {
	// Sole sender on events; closing here lets channel pumps drain out
	// instead of blocking forever after Close.
	defer close(w.events)
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()
	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.mu.Lock()
			fire := w.pending
			w.pending = false
			w.mu.Unlock()
			if !fire {
				continue
			}
			select {
			case w.events <- struct{}{}:
			default: // listener busy, signal already queued
			}
		}
	}
}
