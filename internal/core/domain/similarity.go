package domain

// SimilarityNode is one document in the corpus similarity graph.
type SimilarityNode struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	SourceType string `json:"source_type"`
	ChunkCount int    `json:"chunk_count"`
}

// SimilarityEdge connects two documents whose embedding centroids are
// at least Threshold apart in cosine similarity.
type SimilarityEdge struct {
	Source     string  `json:"source"`
	Target     string  `json:"target"`
	Similarity float64 `json:"similarity"`
}

// SimilarityGraph is the pairwise document similarity result.
type SimilarityGraph struct {
	Nodes     []SimilarityNode `json:"nodes"`
	Edges     []SimilarityEdge `json:"edges"`
	Threshold float64          `json:"threshold"`
}
