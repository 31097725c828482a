package keypoints

// MaxPointsPerFragment caps the notes created from a single fragment.
const MaxPointsPerFragment = 4

// Batch is the set of points accepted from one fragment. Points keep their
// original text; Keys are the matching normalized keys, index-aligned.
type Batch struct {
	ID     uint64
	Points []string
	Keys   []string
}

// Empty reports whether nothing was accepted.
func (b Batch) Empty() bool {
	return len(b.Points) == 0
}

// AcceptUnique walks scored candidates in order and accepts those whose
// normalized key is not yet in seen, up to maxOut (never more than
// MaxPointsPerFragment). Accepted keys are reserved in seen immediately; the
// returned batch must later be passed to seen.Confirm or seen.Rollback.
func AcceptUnique(scored []ScoredCandidate, seen *SeenSet, maxOut int) Batch {
	if maxOut <= 0 || maxOut > MaxPointsPerFragment {
		maxOut = MaxPointsPerFragment
	}

	seen.mu.Lock()
	defer seen.mu.Unlock()
	seen.ensureLocked()

	var b Batch
	for _, sc := range scored {
		if len(b.Points) >= maxOut {
			break
		}

		key := Normalize(sc.Text)
		if key == "" || seen.containsLocked(key) {
			continue
		}

		if b.ID == 0 {
			seen.lastID++
			b.ID = seen.lastID
		}
		seen.reserved[key] = b.ID
		b.Points = append(b.Points, sc.Text)
		b.Keys = append(b.Keys, key)
	}

	if !b.Empty() {
		seen.pending[b.ID] = b.Keys
	}
	return b
}
