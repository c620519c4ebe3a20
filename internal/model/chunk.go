package model

// Chunk is the atomic retrieval unit: a bounded span of document text plus
// its embedding. The embedding is retained so the owning index can rebuild
// without re-computation after a delete.
type Chunk struct {
	Position     int       `json:"position"`
	DocumentID   int64     `json:"document_id"`
	DocumentName string    `json:"document_name"`
	Text         string    `json:"text"`
	Embedding    []float32 `json:"embedding"`
}
