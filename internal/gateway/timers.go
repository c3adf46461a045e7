// Copyright (C) 2026 Hearth
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"sync"
	"time"
)

// Named timers managed by the registry. At most one timer per name is
// outstanding: scheduling under an existing name cancels the pending one.
const (
	timerReconnect = "reconnect"
	timerGrace     = "grace"
)

// timerRegistry tracks named, independently cancellable scheduled tasks.
type timerRegistry struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

func newTimerRegistry() *timerRegistry {
	return &timerRegistry{timers: make(map[string]*time.Timer)}
}

// Schedule arms fn to run after d, replacing any pending timer of the same
// name.
func (r *timerRegistry) Schedule(name string, d time.Duration, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.timers[name]; ok {
		t.Stop()
	}

	var t *time.Timer
	t = time.AfterFunc(d, func() {
		r.mu.Lock()
		if r.timers[name] == t {
			delete(r.timers, name)
		}
		r.mu.Unlock()
		fn()
	})
	r.timers[name] = t
}

// Cancel stops the named timer if one is pending.
func (r *timerRegistry) Cancel(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.timers[name]; ok {
		t.Stop()
		delete(r.timers, name)
	}
}

// CancelAll stops every pending timer.
func (r *timerRegistry) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, t := range r.timers {
		t.Stop()
		delete(r.timers, name)
	}
}

// Pending reports whether the named timer is armed. Used by tests.
func (r *timerRegistry) Pending(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.timers[name]
	return ok
}
