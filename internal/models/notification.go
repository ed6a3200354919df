// internal/models/notification.go
package models

// Digest is a delivered (or attempted) ranking digest. The send-digest
// worker assembles one per job; Status mirrors what actually went out.
type Digest struct {
	ID          string   `json:"id"`
	RecipientID string   `json:"recipientId"`
	Priority    string   `json:"priority,omitempty"`
	Summary     string   `json:"summary"`
	Channels    []string `json:"channels,omitempty"` // "email", "sms"
	Status      string   `json:"status"`             // "sent", "disabled"
	SentAt      string   `json:"sentAt"`             // ISO 8601
}
