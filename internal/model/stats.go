package model

// QueryStats aggregates the audit log for the analytics dashboard.
type QueryStats struct {
	Total         int64            `json:"total"`
	FallbackCount int64            `json:"fallback_count"`
	AvgResponseMs float64          `json:"avg_response_ms"`
	ByIntent      map[string]int64 `json:"by_intent"`
	ByChannel     map[string]int64 `json:"by_channel"`
}

// KBUsage summarizes one namespace for the usage report.
type KBUsage struct {
	NamespaceID   int64  `json:"namespace_id"`
	NamespaceName string `json:"namespace_name"`
	DocumentCount int64  `json:"document_count"`
	ChunkCount    int64  `json:"chunk_count"`
	AccessCount   int64  `json:"access_count"`
}
