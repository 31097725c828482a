// Package keypoints extracts educationally significant take-aways from live
// tutoring transcripts.
//
// A finalized assistant fragment flows through three stages:
//
//	GenerateCandidates -> RankAndFilter -> AcceptUnique
//
// Candidates come from explicit list items, keyword-anchored sentences and,
// when those yield little, generic explanatory sentences. The ranker scores
// them with a table of named weighted rules and drops anything below MinScore.
// The deduplicator compares normalized keys against a per-session SeenSet and
// reserves the accepted ones until the caller confirms or rolls back the batch
// depending on whether persistence succeeded.
package keypoints
