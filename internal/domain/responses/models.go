package responses

import (
	"time"

	"selfeval/internal/platform/docstore"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func (s Status) Valid() bool {
	return s == StatusPending || s == StatusApproved || s == StatusRejected
}

type Article struct {
	Title   string  `json:"title"`
	Journal string  `json:"journal,omitempty"`
	Year    int     `json:"year,omitempty"`
	Points  float64 `json:"points"`
}

type Response struct {
	ID               string     `json:"id,omitempty"`
	QuestionID       string     `json:"questionId"`
	QuestionTitle    string     `json:"questionTitle"`
	Points           float64    `json:"points"`
	Category         string     `json:"category"`
	Status           Status     `json:"status"`
	LibraryEvaluated bool       `json:"libraryEvaluated"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
	VerifiedBy       string     `json:"verifiedBy,omitempty"`
	VerifiedAt       *time.Time `json:"verifiedAt,omitempty"`
	RejectionReason  string     `json:"rejectionReason,omitempty"`
	Articles         []Article  `json:"articles,omitempty"`
}

// ArticlePoints sums the points of every article.
func (r Response) ArticlePoints() float64 {
	var total float64
	for _, a := range r.Articles {
		total += a.Points
	}
	return total
}

// Patch carries the fields a form save writes.
type Patch struct {
	QuestionTitle    string
	Category         string
	Points           float64
	LibraryEvaluated bool
}

// Ref addresses one response of one user.
type Ref struct {
	UserID     string `json:"userId"`
	ResponseID string `json:"responseId"`
}

const (
	OutcomeApproved = "approved"
	OutcomeSkipped  = "skipped"
	OutcomeFailed   = "failed"
)

type BatchOutcome struct {
	Ref
	Outcome string  `json:"outcome"`
	Reason  string  `json:"reason,omitempty"`
	Points  float64 `json:"points,omitempty"`
}

type QueueFilter struct {
	Status      Status
	Category    string
	LibraryOnly bool
}

type QueueItem struct {
	UserID   string   `json:"userId"`
	Response Response `json:"response"`
}

// CollectionFor is the per-user responses collection path.
func CollectionFor(userID string) string {
	return docstore.Path("users", userID, "responses")
}
