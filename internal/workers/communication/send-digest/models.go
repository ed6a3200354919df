// internal/workers/communication/send-digest/models.go
package senddigest

type Input struct {
	RecipientID    string          `json:"recipientId"`
	Priority       string          `json:"priority,omitempty"` // "high" adds an SMS
	Summary        string          `json:"summary"`
	RankedProjects []DigestProject `json:"rankedProjects,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

type DigestProject struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

type Output struct {
	DigestID string `json:"digestId"`
	Status   string `json:"status"` // "sent", "disabled"
	SentAt   string `json:"sentAt"` // ISO 8601
}

// Statuses
const (
	StatusSent     = "sent"
	StatusDisabled = "disabled"
)

const PriorityHigh = "high"
