package keypoints

import "companion-notes/pkg/domain"

// Extract runs one fragment through generation, ranking and deduplication.
// Only assistant fragments are mined. The result's keys are reserved in seen.
func Extract(fragment domain.TranscriptFragment, seen *SeenSet, ctx Context) Batch {
	if fragment.Role != domain.RoleAssistant {
		return Batch{}
	}

	cands := GenerateCandidates(fragment.Text, fragment.Index, ctx)
	if len(cands) == 0 {
		return Batch{}
	}

	return AcceptUnique(RankAndFilter(cands, ctx), seen, MaxPointsPerFragment)
}
