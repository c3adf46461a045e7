// Copyright (C) 2026 Hearth
// SPDX-License-Identifier: AGPL-3.0-or-later

package transcript

import "sync"

// Snapshot is a short-lived capture of transcript state taken when the chat
// view is torn down mid-flight, restored one-shot on the next mount so an
// in-progress answer survives navigating away and back without a reconnect.
type Snapshot struct {
	Turns     []Turn
	Buffer    []Entry
	Answering bool
	SessionID string
}

// SnapshotCache holds at most one snapshot. Take is destructive: a snapshot
// restores exactly once, it is not a history.
type SnapshotCache struct {
	mu   sync.Mutex
	snap *Snapshot
}

// NewSnapshotCache creates an empty cache.
func NewSnapshotCache() *SnapshotCache {
	return &SnapshotCache{}
}

// Put replaces any previously stored snapshot.
func (c *SnapshotCache) Put(s *Snapshot) {
	c.mu.Lock()
	c.snap = s
	c.mu.Unlock()
}

// Take returns and clears the stored snapshot, or nil when none exists.
func (c *SnapshotCache) Take() *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.snap
	c.snap = nil
	return s
}

// Snapshot captures the store's state when there is something worth keeping:
// a mid-flight answer or a non-empty transcript. Returns nil otherwise.
func (s *Store) Snapshot(sessionID string) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.answering && len(s.turns) == 0 {
		return nil
	}
	return &Snapshot{
		Turns:     append([]Turn(nil), s.turns...),
		Buffer:    append([]Entry(nil), s.buffer...),
		Answering: s.answering,
		SessionID: sessionID,
	}
}

// Restore loads a snapshot back into the store, replacing current state.
func (s *Store) Restore(snap *Snapshot) {
	if snap == nil {
		return
	}
	s.mu.Lock()
	s.turns = append([]Turn(nil), snap.Turns...)
	s.buffer = append([]Entry(nil), snap.Buffer...)
	s.answering = snap.Answering
	s.mu.Unlock()
	s.notify(Change{Type: TurnUpdated})
}
