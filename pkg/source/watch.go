package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"tableflip.dev/acctview/pkg/store"
)

// EventType describes the nature of a change notification.
type EventType int

const (
	// EventCollectionChanged means records of Event.Collection were added,
	// edited or removed.
	EventCollectionChanged EventType = iota

	// EventInvalidated means the change could not be classified and both
	// collections should be reloaded.
	EventInvalidated
)

// Event is emitted by Watch when the tree changes.
type Event struct {
	Type       EventType
	Collection Collection
}

// Watch streams change events until ctx is cancelled. The channel is closed
// once ctx is done or the watcher fails. Events are dropped while the reader
// is busy; a later event triggers the same reload.
func (d *Disk) Watch(ctx context.Context) (<-chan Event, error) {
	if err := os.MkdirAll(d.basePath, 0o755); err != nil {
		return nil, fmt.Errorf("source: ensure base path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("source: create watcher: %w", err)
	}
	var closeOnce sync.Once
	closeWatcher := func() {
		closeOnce.Do(func() {
			if err := watcher.Close(); err != nil {
				d.log.Warn("watcher close", "err", err)
			}
		})
	}

	dirs, err := collectDirs(d.basePath)
	if err != nil {
		closeWatcher()
		return nil, fmt.Errorf("source: enumerate directories: %w", err)
	}
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			closeWatcher()
			return nil, fmt.Errorf("source: watch %s: %w", dir, err)
		}
	}

	events := make(chan Event, 16)

	var (
		sendMu sync.Mutex
		done   bool
	)
	go func() {
		defer func() {
			sendMu.Lock()
			done = true
			close(events)
			sendMu.Unlock()
		}()
		defer closeWatcher()

		watched := make(map[string]struct{}, len(dirs))
		for _, dir := range dirs {
			watched[dir] = struct{}{}
		}

		// A settle timer may still fire after the loop exits.
		send := func(ev Event) {
			sendMu.Lock()
			defer sendMu.Unlock()
			if done {
				return
			}
			select {
			case events <- ev:
			default:
			}
		}

		changes := newChangeSet(settleDelay, maxSettle, send)
		defer changes.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				d.log.Warn("watcher error", "err", err)
				changes.Mark(Event{Type: EventInvalidated})
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if evt.Op&fsnotify.Create == fsnotify.Create {
					// diskv creates the collection directory on first write.
					if info, err := os.Stat(evt.Name); err == nil && info.IsDir() {
						dir := filepath.Clean(evt.Name)
						if _, found := watched[dir]; !found {
							if err := watcher.Add(dir); err != nil {
								d.log.Warn("watch directory", "dir", dir, "err", err)
							} else {
								watched[dir] = struct{}{}
							}
						}
					}
				}
				changes.Mark(d.eventForPath(evt.Name))
			}
		}
	}()

	return events, nil
}

// Feed loads both collections into st and reloads whichever collection
// changes on disk until ctx is done.
func (d *Disk) Feed(ctx context.Context, st *store.Store) error {
	events, err := d.Watch(ctx)
	if err != nil {
		return err
	}
	if err := d.refresh(ctx, st, Event{Type: EventInvalidated}); err != nil {
		return err
	}
	for ev := range events {
		if err := d.refresh(ctx, st, ev); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
	}
	return nil
}

func (d *Disk) refresh(ctx context.Context, st *store.Store, ev Event) error {
	if ev.Type == EventInvalidated || ev.Collection == Accounts {
		list, err := d.Accounts(ctx)
		if err != nil {
			return err
		}
		st.SetAccounts(list)
	}
	if ev.Type == EventInvalidated || ev.Collection == Balances {
		list, err := d.Balances(ctx)
		if err != nil {
			return err
		}
		st.SetBalances(list)
	}
	return nil
}

// collectDirs walks base and returns all directories that should be watched.
func collectDirs(base string) ([]string, error) {
	dirs := []string{base}
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() && path != base {
			dirs = append(dirs, path)
		}
		return nil
	})
	return dirs, err
}

// eventForPath maps a changed path to the collection directory it lives in.
func (d *Disk) eventForPath(path string) Event {
	rel, err := filepath.Rel(d.basePath, path)
	if err != nil || rel == "." {
		return Event{Type: EventInvalidated}
	}
	parts := strings.Split(rel, string(os.PathSeparator))
	switch c := Collection(parts[0]); c {
	case Accounts, Balances:
		return Event{Type: EventCollectionChanged, Collection: c}
	default:
		return Event{Type: EventInvalidated}
	}
}

const (
	settleDelay = 100 * time.Millisecond
	maxSettle   = time.Second
)

// changeSet collects dirty collections until the tree has been quiet for the
// settle delay, then emits one event per collection. A steady stream of
// writes is flushed at least once per max settle period.
type changeSet struct {
	mu     sync.Mutex
	settle time.Duration
	limit  time.Duration
	emit   func(Event)

	timer   *time.Timer
	first   time.Time
	dirty   map[Collection]bool
	reload  bool
	stopped bool
}

func newChangeSet(settle, limit time.Duration, emit func(Event)) *changeSet {
	return &changeSet{
		settle: settle,
		limit:  limit,
		emit:   emit,
		dirty:  make(map[Collection]bool, 2),
	}
}

// Mark records ev and pushes the flush back by the settle delay.
func (c *changeSet) Mark(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	if ev.Type == EventInvalidated {
		c.reload = true
	} else {
		c.dirty[ev.Collection] = true
	}

	now := time.Now()
	if c.timer == nil {
		c.first = now
		c.timer = time.AfterFunc(c.settle, c.flush)
		return
	}
	wait := c.settle
	if left := c.limit - now.Sub(c.first); left < wait {
		wait = max(left, 0)
	}
	c.timer.Reset(wait)
}

func (c *changeSet) flush() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	reload, dirty := c.reload, c.dirty
	c.reload = false
	c.dirty = make(map[Collection]bool, 2)
	c.timer = nil
	c.mu.Unlock()

	if reload {
		c.emit(Event{Type: EventInvalidated})
		return
	}
	for _, col := range []Collection{Accounts, Balances} {
		if dirty[col] {
			c.emit(Event{Type: EventCollectionChanged, Collection: col})
		}
	}
}

// Stop drops anything not yet flushed.
func (c *changeSet) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
