package keypoints

import "regexp"

var (
	// bulletPattern matches a leading bullet (-, *, •) or numbered marker
	// (1. 2) 3- 4:) followed by the item text.
	bulletPattern = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)\-:])\s+(.+)$`)

	// strongPattern matches explicit pedagogical markers.
	strongPattern = regexp.MustCompile(`(?i)\b(key\s*points?|important|remember|takeaways?|crucial|essential|main\s*ideas?|fundamental|keep\s+in\s+mind|note\s+that)\b`)

	// definitionPattern is the broad definition signal used for scoring.
	definitionPattern = regexp.MustCompile(`(?i)\b(is|are|means|refers?\s+to|defined\s+as|is\s+called|known\s+as|stands\s+for)\b`)

	// definitionAnchorPattern is the narrow definition signal that anchors a
	// sentence on its own; bare "is"/"are" would anchor almost everything.
	definitionAnchorPattern = regexp.MustCompile(`(?i)\b(means|refers?\s+to|defined\s+as|is\s+defined|(is|are)\s+called|known\s+as|stands\s+for)\b`)

	// causalPattern matches causal or explanatory connectives.
	causalPattern = regexp.MustCompile(`(?i)\b(because|causes?|results?\s+in|leads?\s+to|due\s+to|which\s+is\s+why|so\s+that|converts?|produces?|allows?|enables?)\b`)

	examplePattern = regexp.MustCompile(`(?i)(\bfor\s+example\b|\bsuch\s+as\b|\blike\b|\bincluding\b|\be\.g\.)`)

	// substantivePattern marks a sentence that states something rather than
	// steering the conversation.
	substantivePattern = regexp.MustCompile(`(?i)\b(is|are|was|were|means|refers|defined|causes|results|affects|includes|such\s+as|because|when|if|can|will|shows|indicates|describes|represents|explains|determines|depends)\b`)

	transitionalPattern = regexp.MustCompile(`(?i)^(so|and|but|however|therefore|thus|first|second|next|finally|in\s+conclusion)\b`)
)
