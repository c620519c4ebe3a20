package model

const (
	DocumentStatusPending    = "pending"
	DocumentStatusProcessing = "processing"
	DocumentStatusProcessed  = "processed"
	DocumentStatusError      = "error"
)

type Document struct {
	ID          int64  `json:"id"`
	Filename    string `json:"filename"`
	Format      string `json:"format"`
	SizeBytes   int64  `json:"size_bytes"`
	BlobKey     string `json:"blob_key"`
	NamespaceID int64  `json:"namespace_id"`
	Status      string `json:"status"`
	ChunkCount  int    `json:"chunk_count"`
	AccessCount int64  `json:"access_count"`
	ErrorMsg    string `json:"error_message,omitempty"`
	UploadedAt  int64  `json:"uploaded_at"`
	ProcessedAt int64  `json:"processed_at,omitempty"`
}
