// Package reconcile merges a category's catalog questions with a user's saved
// responses into an editable form, and turns local edits into store writes.
package reconcile

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"selfeval/internal/domain/catalog"
	"selfeval/internal/domain/responses"
)

var (
	ErrInvalidPoints   = errors.New("invalid point value")
	ErrUnknownQuestion = errors.New("question is not part of this form")
)

type State string

const (
	StateUnchecked       State = "unchecked"
	StateCheckedPending  State = "checked_pending"
	StateCheckedApproved State = "checked_approved"
	StateCheckedRejected State = "checked_rejected"
)

func stateFor(status responses.Status) State {
	switch status {
	case responses.StatusApproved:
		return StateCheckedApproved
	case responses.StatusRejected:
		return StateCheckedRejected
	default:
		return StateCheckedPending
	}
}

type Item struct {
	QuestionID       string             `json:"questionId"`
	Title            string             `json:"title"`
	Category         string             `json:"category"`
	CatalogPoints    catalog.PointValue `json:"catalogPoints"`
	Tooltip          []string           `json:"tooltip,omitempty"`
	LibraryEvaluated bool               `json:"libraryEvaluated"`
	State            State              `json:"state"`
	Checked          bool               `json:"checked"`
	Value            string             `json:"value"`
	ResponseID       string             `json:"responseId,omitempty"`
	RejectionReason  string             `json:"rejectionReason,omitempty"`
}

// Locked items mirror an approved response and accept no edits.
func (i Item) Locked() bool { return i.State == StateCheckedApproved }

func (i *Item) reset() {
	i.State = StateUnchecked
	i.Checked = false
	i.Value = i.CatalogPoints.Default()
	i.ResponseID = ""
	i.RejectionReason = ""
}

type Form struct {
	Category string `json:"category"`
	Items    []Item `json:"items"`
}

// Reconcile builds the form for questions, in catalog order. A question with a
// saved response starts checked with the response's points; any other starts
// unchecked with the catalog default.
func Reconcile(questions []catalog.Question, saved []responses.Response) *Form {
	byQuestion := make(map[string]responses.Response, len(saved))
	for _, r := range saved {
		if _, dup := byQuestion[r.QuestionID]; !dup {
			byQuestion[r.QuestionID] = r
		}
	}

	form := &Form{Items: make([]Item, 0, len(questions))}
	for _, q := range questions {
		item := Item{
			QuestionID:       q.ID,
			Title:            q.Title,
			Category:         q.Category,
			CatalogPoints:    q.Points,
			Tooltip:          q.Tooltip,
			LibraryEvaluated: q.LibraryEvaluated,
		}
		if r, ok := byQuestion[q.ID]; ok {
			item.State = stateFor(r.Status)
			item.Checked = true
			item.Value = FormatPoints(r.Points)
			item.ResponseID = r.ID
			item.RejectionReason = r.RejectionReason
		} else {
			item.reset()
		}
		form.Items = append(form.Items, item)
		if form.Category == "" {
			form.Category = q.Category
		}
	}
	return form
}

func (f *Form) item(questionID string) (*Item, error) {
	for i := range f.Items {
		if f.Items[i].QuestionID == questionID {
			return &f.Items[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownQuestion, questionID)
}

// Item returns a copy of the question's form item.
func (f *Form) Item(questionID string) (Item, bool) {
	it, err := f.item(questionID)
	if err != nil {
		return Item{}, false
	}
	return *it, true
}

// Toggle flips the local checked flag only; nothing is written.
func (f *Form) Toggle(questionID string, checked bool) error {
	it, err := f.item(questionID)
	if err != nil {
		return err
	}
	if it.Locked() {
		if checked {
			return nil
		}
		return responses.ErrEditForbidden
	}
	it.Checked = checked
	return nil
}

// SetValue replaces the locally typed value. Parsing is deferred to Plan.
func (f *Form) SetValue(questionID, raw string) error {
	it, err := f.item(questionID)
	if err != nil {
		return err
	}
	if it.Locked() {
		if raw == it.Value {
			return nil
		}
		return responses.ErrEditForbidden
	}
	it.Value = raw
	return nil
}

type Op string

const (
	OpUpsert  Op = "upsert"
	OpSkip    Op = "skip"
	OpInvalid Op = "invalid"
)

type Action struct {
	Item   Item
	Op     Op
	Points float64
	Err    error
}

// Plan lists what a save does for every checked item: approved items are
// skipped, unparsable values fail alone, everything else is upserted.
// Unchecked items produce no action; unchecking never deletes.
func (f *Form) Plan() []Action {
	var actions []Action
	for _, it := range f.Items {
		if !it.Checked {
			continue
		}
		if it.Locked() {
			actions = append(actions, Action{Item: it, Op: OpSkip})
			continue
		}
		points, err := ParsePoints(it.Value)
		if err != nil {
			actions = append(actions, Action{Item: it, Op: OpInvalid, Err: err})
			continue
		}
		actions = append(actions, Action{Item: it, Op: OpUpsert, Points: points})
	}
	return actions
}

// ParsePoints accepts plain decimals with a dot or comma separator ("2,5" is 2.5).
// Empty and negative values are rejected, as are exponents, hex and other
// forms ParseFloat would otherwise take.
func ParsePoints(raw string) (float64, error) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidPoints)
	}
	if !plainDecimal(s) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPoints, raw)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPoints, raw)
	}
	if v < 0 {
		return 0, fmt.Errorf("%w: %q is negative", ErrInvalidPoints, raw)
	}
	return v, nil
}

// plainDecimal matches an optional sign, digits and at most one dot.
func plainDecimal(s string) bool {
	if s[0] == '+' || s[0] == '-' {
		s = s[1:]
	}
	digits, dots := 0, 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.':
			dots++
		default:
			return false
		}
	}
	return digits > 0 && dots <= 1
}

func FormatPoints(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
