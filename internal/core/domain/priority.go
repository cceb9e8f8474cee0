package domain

// Priority orders access to the serialized inference backend.
// Lower values are served first.
type Priority int

const (
	// PriorityQuery is for interactive query embedding and generation.
	// A human is waiting on these.
	PriorityQuery Priority = iota

	// PriorityEmbedding is for document embedding during ingestion.
	PriorityEmbedding

	// PriorityTagging is for auto-tag generation. Nice-to-have work
	// that should never delay anything else.
	PriorityTagging
)

// String returns a human-readable priority name.
func (p Priority) String() string {
	switch p {
	case PriorityQuery:
		return "query"
	case PriorityEmbedding:
		return "embedding"
	case PriorityTagging:
		return "tagging"
	default:
		return "unknown"
	}
}
