package keypoints

import (
	"sort"
	"sync"
)

// SeenSet records the normalized points already emitted in one session.
//
// Keys accepted by AcceptUnique are reserved under a batch id until the
// caller confirms the batch (persisted) or rolls it back (nothing persisted).
// Reserved keys already count as seen, so a repeat arriving while its batch is
// in flight is dropped. SeenSet is safe for concurrent use; rollbacks arrive
// from persistence goroutines.
type SeenSet struct {
	mu        sync.Mutex
	confirmed map[string]struct{}
	reserved  map[string]uint64
	pending   map[uint64][]string
	lastID    uint64
}

// NewSeenSet returns a set holding keys as confirmed.
func NewSeenSet(keys ...string) *SeenSet {
	s := &SeenSet{}
	s.Reset(keys...)
	return s
}

// Reset drops every key and reservation, then seeds the set with keys.
// Batches reserved before the reset can no longer be confirmed.
func (s *SeenSet) Reset(keys ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.confirmed = make(map[string]struct{}, len(keys))
	s.reserved = make(map[string]uint64)
	s.pending = make(map[uint64][]string)
	for _, k := range keys {
		if k != "" {
			s.confirmed[k] = struct{}{}
		}
	}
}

// Add merges keys into the confirmed set.
func (s *SeenSet) Add(keys ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked()

	for _, k := range keys {
		if k != "" {
			s.confirmed[k] = struct{}{}
		}
	}
}

// Contains reports whether key is confirmed or reserved.
func (s *SeenSet) Contains(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.containsLocked(key)
}

func (s *SeenSet) ensureLocked() {
	if s.confirmed == nil {
		s.confirmed = make(map[string]struct{})
		s.reserved = make(map[string]uint64)
		s.pending = make(map[uint64][]string)
	}
}

func (s *SeenSet) containsLocked(key string) bool {
	if _, ok := s.confirmed[key]; ok {
		return true
	}
	_, ok := s.reserved[key]
	return ok
}

// Keys returns the confirmed keys, sorted.
func (s *SeenSet) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.confirmed))
	for k := range s.confirmed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len counts confirmed and reserved keys.
func (s *SeenSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.confirmed) + len(s.reserved)
}

// Pending counts batches awaiting Confirm or Rollback.
func (s *SeenSet) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Confirm makes a batch's reservations permanent.
func (s *SeenSet) Confirm(b Batch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked()

	keys, ok := s.pending[b.ID]
	if !ok {
		return
	}
	for _, k := range keys {
		delete(s.reserved, k)
		s.confirmed[k] = struct{}{}
	}
	delete(s.pending, b.ID)
}

// Rollback releases a batch's reservations so the same content can be
// accepted again by a later fragment.
func (s *SeenSet) Rollback(b Batch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys, ok := s.pending[b.ID]
	if !ok {
		return
	}
	for _, k := range keys {
		if s.reserved[k] == b.ID {
			delete(s.reserved, k)
		}
	}
	delete(s.pending, b.ID)
}
