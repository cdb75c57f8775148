/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package db

import (
	"fmt"
	"sort"
	"sync"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
)

// Runtime is the explicitly constructed driver runtime. It owns the backend
// registry and the process-wide busy coordinator that SQLite connections
// park on while another connection holds a lock. Whoever assembles the
// connections creates it, registers the backends and shuts it down.
type Runtime struct {
	factories cmap.ConcurrentMap[string, BackendFactory]

	mu     sync.Mutex
	refs   int
	closed bool

	busyMu   sync.Mutex
	busyCond *sync.Cond
	busyGen  uint64
}

func NewRuntime() *Runtime {
	rt := &Runtime{
		factories: cmap.New[BackendFactory](),
	}
	rt.busyCond = sync.NewCond(&rt.busyMu)
	return rt
}

// Register makes a backend available under name, replacing any previous
// registration.
func (rt *Runtime) Register(name string, factory BackendFactory) {
	rt.factories.Set(name, factory)
}

// Backends returns the registered backend names, sorted.
func (rt *Runtime) Backends() []string {
	names := rt.factories.Keys()
	sort.Strings(names)
	return names
}

// NewBackend instantiates the named backend.
func (rt *Runtime) NewBackend(name string) (Backend, error) {
	rt.mu.Lock()
	closed := rt.closed
	rt.mu.Unlock()
	if closed {
		return nil, Errorf("runtime is shut down")
	}
	factory, ok := rt.factories.Get(name)
	if !ok {
		return nil, Errorf("no backend named %q (have %v)", name, rt.Backends())
	}
	return factory(rt), nil
}

// Acquire registers a live user (a connected Connection) of the runtime.
func (rt *Runtime) Acquire() error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.closed {
		return Errorf("runtime is shut down")
	}
	rt.refs++
	return nil
}

func (rt *Runtime) Release() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.refs > 0 {
		rt.refs--
	}
}

// Shutdown closes the runtime. It fails while connections are still live.
func (rt *Runtime) Shutdown() error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.refs > 0 {
		return fmt.Errorf("%w: runtime still has %d live connections", ErrUnknown, rt.refs)
	}
	rt.closed = true
	rt.factories.Clear()
	rt.BusyBroadcast()
	return nil
}

// BusyWait parks the caller until another statement finishes (BusyBroadcast)
// or until granularity has passed, whichever comes first, and reports
// whether the caller should retry. It returns false without waiting once
// deadline has passed.
func (rt *Runtime) BusyWait(deadline time.Time, granularity time.Duration) bool {
	wait := time.Until(deadline)
	if wait <= 0 {
		return false
	}
	if granularity > 0 && granularity < wait {
		wait = granularity
	}

	rt.busyMu.Lock()
	gen := rt.busyGen
	expired := false
	t := time.AfterFunc(wait, func() {
		rt.busyMu.Lock()
		expired = true
		rt.busyMu.Unlock()
		rt.busyCond.Broadcast()
	})
	for gen == rt.busyGen && !expired {
		rt.busyCond.Wait()
	}
	rt.busyMu.Unlock()
	t.Stop()
	return true
}

// BusyBroadcast wakes every goroutine parked in BusyWait. Backends call it
// whenever a statement is finalized or a transaction ends.
func (rt *Runtime) BusyBroadcast() {
	rt.busyMu.Lock()
	rt.busyGen++
	rt.busyMu.Unlock()
	rt.busyCond.Broadcast()
}
