// Package watcher provides file system watching for session storage directories.
// It turns raw fsnotify events into normalized storage events.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"claudeweb/internal/logger"
	"claudeweb/internal/types"
)

// =============================================================================
// EVENT MAPPING
// =============================================================================

// Mapping describes how file events in one storage directory translate to
// storage events.
type Mapping struct {
	// Ext is the session file extension, including the dot.
	Ext string
	// IndexFile, when set, is a file whose changes mean "re-list".
	IndexFile string
	// Modified is the event emitted when a session file is written.
	Modified types.StorageEventType
	// SkipPrefix excludes files such as subagent logs.
	SkipPrefix string
}

// NativeMapping applies to the agent's project log directory.
var NativeMapping = Mapping{
	Ext:        ".jsonl",
	IndexFile:  "sessions-index.json",
	Modified:   types.MessageAdded,
	SkipPrefix: "agent-",
}

// FallbackMapping applies to the file-per-session store.
var FallbackMapping = Mapping{
	Ext:      ".json",
	Modified: types.SessionUpdated,
}

// Translate maps one fsnotify event to a storage event. The second return
// is false when the event is not interesting.
func (m Mapping) Translate(event fsnotify.Event) (types.StorageEvent, bool) {
	base := filepath.Base(event.Name)

	if m.IndexFile != "" && base == m.IndexFile {
		if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) || event.Has(fsnotify.Remove) {
			return types.StorageEvent{Type: types.SessionUpdated}, true
		}
		return types.StorageEvent{}, false
	}

	if !strings.HasSuffix(base, m.Ext) {
		return types.StorageEvent{}, false
	}
	if m.SkipPrefix != "" && strings.HasPrefix(base, m.SkipPrefix) {
		return types.StorageEvent{}, false
	}
	id := strings.TrimSuffix(base, m.Ext)
	if id == "" {
		return types.StorageEvent{}, false
	}

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return types.StorageEvent{Type: types.SessionDeleted, SessionID: id}, true
	case event.Has(fsnotify.Create):
		return types.StorageEvent{Type: types.SessionAdded, SessionID: id}, true
	case event.Has(fsnotify.Write):
		return types.StorageEvent{Type: m.Modified, SessionID: id}, true
	}
	return types.StorageEvent{}, false
}

// =============================================================================
// SUBSCRIPTION
// =============================================================================

// Subscription owns one OS watch on one directory and the goroutine that
// delivers its events. A slow handler only delays its own subscription.
type Subscription struct {
	watcher *fsnotify.Watcher
	mapping Mapping
	handler func(types.StorageEvent)
	log     *log.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Subscribe starts watching dir (non-recursively) and calls handler for
// every translated event, sequentially, from a dedicated goroutine.
func Subscribe(dir string, mapping Mapping, handler func(types.StorageEvent)) (*Subscription, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Subscription{
		watcher: w,
		mapping: mapping,
		handler: handler,
		log:     logger.New("watcher"),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go s.run()
	return s, nil
}

// run processes file system events.
func (s *Subscription) run() {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if ev, ok := s.mapping.Translate(event); ok {
				s.deliver(ev)
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				// Events were dropped; ask consumers to re-list.
				s.deliver(types.StorageEvent{Type: types.SessionUpdated})
				continue
			}
			s.log.Warn("watch error", "err", err)
		}
	}
}

func (s *Subscription) deliver(ev types.StorageEvent) {
	if s.ctx.Err() != nil {
		return
	}
	s.handler(ev)
}

// Close stops the watch and waits for the delivery goroutine to exit. It is
// safe to call more than once but must not be called from the handler.
func (s *Subscription) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		err = s.watcher.Close()
		<-s.done
	})
	return err
}
