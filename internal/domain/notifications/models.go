package notifications

import (
	"time"

	"selfeval/internal/platform/docstore"
)

const (
	TypeResponseApproved = "response.approved"
	TypeResponseRejected = "response.rejected"
)

type Notification struct {
	ID        string    `json:"id,omitempty"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

func CollectionFor(userID string) string {
	return docstore.Path("users", userID, "notifications")
}
