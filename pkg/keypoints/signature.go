package keypoints

import (
	"sort"
	"strings"
	"sync"
)

// SummarySignature identifies a summary by its normalized topic and the
// sorted normalized points, so reordering points does not change it.
func SummarySignature(topic string, points []string) string {
	keys := make([]string, len(points))
	for i, p := range points {
		keys[i] = Normalize(p)
	}
	sort.Strings(keys)
	return Normalize(topic) + "|" + strings.Join(keys, "||")
}

// SignatureSet tracks summary signatures already persisted.
type SignatureSet struct {
	mu   sync.Mutex
	sigs map[string]struct{}
}

// NewSignatureSet returns a set seeded with sigs.
func NewSignatureSet(sigs ...string) *SignatureSet {
	s := &SignatureSet{sigs: make(map[string]struct{}, len(sigs))}
	for _, sig := range sigs {
		s.sigs[sig] = struct{}{}
	}
	return s
}

// Contains reports whether sig was recorded.
func (s *SignatureSet) Contains(sig string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sigs[sig]
	return ok
}

// Add records sig and reports whether it was new.
func (s *SignatureSet) Add(sig string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sigs[sig]; ok {
		return false
	}
	s.sigs[sig] = struct{}{}
	return true
}

// Remove forgets sig, used when the save it guarded failed.
func (s *SignatureSet) Remove(sig string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sigs, sig)
}
