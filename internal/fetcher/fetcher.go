// Package fetcher coalesces bursts of search-triggered fetches. Each key keeps
// only its newest request: older in-flight fetches are cancelled and their
// results discarded, so the last keystroke is always the one that renders.
package fetcher

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrSuperseded is returned to callers whose request was replaced by a newer
// one for the same key before it could complete.
var ErrSuperseded = errors.New("fetcher: superseded by a newer request")

type Func func(ctx context.Context) (interface{}, error)

type task struct {
	gen      uint64
	cancel   context.CancelFunc
	lastSeen time.Time
}

// Group debounces and serializes fetches per key. The window is the quiet
// period that must elapse after the last call before the fetch fires.
type Group struct {
	mu     sync.Mutex
	window time.Duration
	tasks  map[string]*task
}

func New(window time.Duration) *Group {
	g := &Group{
		window: window,
		tasks:  make(map[string]*task),
	}
	go g.cleanup()
	return g
}

// Do registers a new generation for key, waits out the debounce window, then
// runs fn. Any previous in-flight fn for the same key is cancelled. Only the
// newest generation's result is returned; stale ones get ErrSuperseded.
func (g *Group) Do(ctx context.Context, key string, fn Func) (interface{}, error) {
	g.mu.Lock()
	t, ok := g.tasks[key]
	if !ok {
		t = &task{}
		g.tasks[key] = t
	}
	t.gen++
	t.lastSeen = time.Now()
	gen := t.gen
	if t.cancel != nil {
		t.cancel()
	}
	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	g.mu.Unlock()

	if g.window > 0 {
		timer := time.NewTimer(g.window)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-runCtx.Done():
			return nil, g.finish(key, gen, runCtx)
		}
	}

	res, err := fn(runCtx)
	if ferr := g.finish(key, gen, runCtx); ferr != nil {
		return nil, ferr
	}
	return res, err
}

// finish reports whether gen is still the key's newest generation, releasing
// the cancel slot when it is.
func (g *Group) finish(key string, gen uint64, runCtx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	t, ok := g.tasks[key]
	if !ok || t.gen != gen {
		return ErrSuperseded
	}
	t.cancel = nil
	return runCtx.Err()
}

// cleanup drops idle keys so one entry per abandoned session cannot
// accumulate forever.
func (g *Group) cleanup() {
	for {
		time.Sleep(time.Minute)
		cutoff := time.Now().Add(-10 * time.Minute)
		g.mu.Lock()
		for key, t := range g.tasks {
			if t.cancel == nil && t.lastSeen.Before(cutoff) {
				delete(g.tasks, key)
			}
		}
		g.mu.Unlock()
	}
}
