package reports

import (
	"testing"

	"selfeval/internal/domain/responses"
)

func TestSummarizeByCategory(t *testing.T) {
	list := []responses.Response{
		{Category: "A", Points: 3, Status: responses.StatusApproved},
		{Category: "A", Points: 2, Status: responses.StatusPending},
		{Category: "B", Points: 5, Status: responses.StatusApproved},
	}
	got := SummarizeByCategory(list)

	want := map[string]CategorySummary{
		"A": {Count: 2, TotalPoints: 5, ApprovedPoints: 3},
		"B": {Count: 1, TotalPoints: 5, ApprovedPoints: 5},
	}
	if len(got) != len(want) {
		t.Fatalf("unexpected categories %v", got)
	}
	for k, w := range want {
		if got[k] != w {
			t.Fatalf("category %s: got %+v want %+v", k, got[k], w)
		}
	}
}

func TestSummarizeUser(t *testing.T) {
	got := SummarizeUser([]responses.Response{
		{Points: 3, Status: responses.StatusApproved},
		{Points: 2, Status: responses.StatusPending},
		{Points: 1.5, Status: responses.StatusRejected},
		{Points: 4, Status: responses.StatusApproved},
	})
	want := UserSummary{TotalPoints: 10.5, ApprovedPoints: 7, PendingCount: 1, ApprovedCount: 2, RejectedCount: 1}
	if got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}
	if empty := SummarizeUser(nil); empty != (UserSummary{}) {
		t.Fatalf("expected zero summary, got %+v", empty)
	}
}
