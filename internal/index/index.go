// Package index maintains per-namespace nearest-neighbor structures over
// chunk embeddings. The default backend is a flat exhaustive index persisted
// as one snapshot blob per namespace; a pgvector backend with native delete
// is available for larger deployments.
package index

import "context"

// Hit is one search result: chunk metadata annotated with squared Euclidean
// distance and a derived similarity in (0, 1].
type Hit struct {
	Text         string  `json:"text"`
	DocumentID   int64   `json:"document_id"`
	DocumentName string  `json:"document_name"`
	Position     int     `json:"position"`
	Distance     float64 `json:"distance"`
	Similarity   float64 `json:"similarity"`
}

type Index interface {
	// Insert appends chunks for a document at monotonically increasing
	// positions and persists the namespace durably. texts and embeddings
	// must be the same length and every embedding must have the configured
	// dimension.
	Insert(ctx context.Context, namespaceID, documentID int64, documentName string, texts []string, embeddings [][]float32) (int, error)

	// RemoveDocument drops every chunk owned by the document. No-op when the
	// document owns no chunks in the namespace.
	RemoveDocument(ctx context.Context, namespaceID, documentID int64) error

	// Search returns up to k hits ordered by ascending distance. With a nil
	// namespaceID every resident namespace is searched and results merged.
	Search(ctx context.Context, namespaceID *int64, query []float32, k int) ([]Hit, error)

	// DropNamespace discards the namespace's chunks and durable state.
	DropNamespace(ctx context.Context, namespaceID int64) error
}

func similarity(distance float64) float64 {
	return 1.0 / (1.0 + distance)
}

func squaredL2(a []float32, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
