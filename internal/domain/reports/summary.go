package reports

import "selfeval/internal/domain/responses"

type CategorySummary struct {
	Count          int     `json:"count"`
	TotalPoints    float64 `json:"totalPoints"`
	ApprovedPoints float64 `json:"approvedPoints"`
}

type UserSummary struct {
	TotalPoints    float64 `json:"totalPoints"`
	ApprovedPoints float64 `json:"approvedPoints"`
	PendingCount   int     `json:"pendingCount"`
	ApprovedCount  int     `json:"approvedCount"`
	RejectedCount  int     `json:"rejectedCount"`
}

func SummarizeByCategory(list []responses.Response) map[string]CategorySummary {
	out := map[string]CategorySummary{}
	for _, r := range list {
		s := out[r.Category]
		s.Count++
		s.TotalPoints += r.Points
		if r.Status == responses.StatusApproved {
			s.ApprovedPoints += r.Points
		}
		out[r.Category] = s
	}
	return out
}

func SummarizeUser(list []responses.Response) UserSummary {
	var s UserSummary
	for _, r := range list {
		s.TotalPoints += r.Points
		switch r.Status {
		case responses.StatusApproved:
			s.ApprovedCount++
			s.ApprovedPoints += r.Points
		case responses.StatusRejected:
			s.RejectedCount++
		default:
			s.PendingCount++
		}
	}
	return s
}
