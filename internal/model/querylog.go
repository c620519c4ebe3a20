package model

const (
	QueryStatusSuccess  = "success"
	QueryStatusFallback = "fallback"
)

// QueryLog is the append-only audit record of one answered query. It doubles
// as the conversation history source: recent rows for the same (user, channel)
// are replayed as prior turns.
type QueryLog struct {
	ID             int64   `json:"id"`
	Timestamp      int64   `json:"timestamp"`
	UserQuery      string  `json:"user_query"`
	AgentResponse  string  `json:"agent_response"`
	DetectedIntent string  `json:"detected_intent"`
	Confidence     float64 `json:"confidence_score"`
	SourceDocs     string  `json:"source_documents"` // JSON array of filenames
	ResponseStatus string  `json:"response_status"`
	Channel        string  `json:"channel"`
	UserID         string  `json:"user_id,omitempty"`
	ResponseTimeMs int64   `json:"response_time_ms"`
}

// ConversationTurn is one prior (query, answer) exchange, oldest first when
// assembled into history.
type ConversationTurn struct {
	Query  string
	Answer string
}
