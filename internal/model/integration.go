package model

const (
	IntegrationStatusConnected    = "connected"
	IntegrationStatusDisconnected = "disconnected"
	IntegrationStatusError        = "error"
)

type Integration struct {
	ID           int64  `json:"id"`
	Channel      string `json:"channel"`
	Name         string `json:"name"`
	TokenLast4   string `json:"token_last4,omitempty"`
	Status       string `json:"status"`
	LastActiveAt int64  `json:"last_active_at,omitempty"`
	ErrorMsg     string `json:"error_message,omitempty"`
	UpdatedAt    int64  `json:"updated_at"`
}
