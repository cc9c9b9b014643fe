package reconcile

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"

	"selfeval/internal/domain/auth"
	"selfeval/internal/domain/catalog"
	"selfeval/internal/domain/responses"
	"selfeval/internal/platform/docstore"
	"selfeval/internal/platform/events"
)

type CatalogReader interface {
	ListByCategory(ctx context.Context, category string) ([]catalog.Question, error)
}

type ResponseWriter interface {
	ListForUser(ctx context.Context, actor auth.Actor, userID, category string) ([]responses.Response, error)
	UpsertByQuestion(ctx context.Context, actor auth.Actor, userID, questionID string, patch responses.Patch) (responses.Response, error)
	Remove(ctx context.Context, actor auth.Actor, userID, responseID string) error
}

const (
	OutcomeSaved   = "saved"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

type ItemOutcome struct {
	QuestionID string `json:"questionId"`
	Outcome    string `json:"outcome"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message,omitempty"`
}

type SaveResult struct {
	Items   []ItemOutcome `json:"items"`
	Saved   int           `json:"saved"`
	Skipped int           `json:"skipped"`
	Failed  int           `json:"failed"`
}

func (r *SaveResult) add(o ItemOutcome) {
	r.Items = append(r.Items, o)
	switch o.Outcome {
	case OutcomeSaved:
		r.Saved++
	case OutcomeSkipped:
		r.Skipped++
	default:
		r.Failed++
	}
}

// Edit is one client-side change to a form item.
type Edit struct {
	QuestionID string `json:"questionId"`
	Checked    bool   `json:"checked"`
	Value      string `json:"value"`
}

type Engine struct {
	catalog   CatalogReader
	responses ResponseWriter
	events    events.Publisher
	group     singleflight.Group

	// OnSaveOutcome, when set, receives per-outcome counts after each save.
	OnSaveOutcome func(outcome string, n int)
}

func NewEngine(c CatalogReader, r ResponseWriter, pub events.Publisher) *Engine {
	if pub == nil {
		pub = events.Discard{}
	}
	return &Engine{catalog: c, responses: r, events: pub}
}

// Load fetches the category's questions and the actor's responses and reconciles them.
// Identical loads in flight for the same user and category share one fetch.
func (e *Engine) Load(ctx context.Context, actor auth.Actor, category string) (*Form, error) {
	if err := auth.Require(actor, auth.PermFormFill); err != nil {
		return nil, err
	}
	key := auth.NormalizeEmail(actor.Email) + "\x00" + category
	detached := context.WithoutCancel(ctx)
	ch := e.group.DoChan(key, func() (any, error) {
		questions, err := e.catalog.ListByCategory(detached, category)
		if err != nil {
			return nil, err
		}
		saved, err := e.responses.ListForUser(detached, actor, actor.Email, category)
		if err != nil {
			return nil, err
		}
		form := Reconcile(questions, saved)
		form.Category = category
		return form, nil
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load form %s: %w", category, ctx.Err())
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, fmt.Errorf("load form %s: %w", category, res.Err)
	}
	return res.Val.(*Form).clone(), nil
}

// Save executes the form's plan as independent writes. A failed item does not
// stop the others and nothing is rolled back.
func (e *Engine) Save(ctx context.Context, actor auth.Actor, form *Form) (SaveResult, error) {
	result, err := e.save(ctx, actor, form)
	if err != nil {
		return SaveResult{}, err
	}
	e.observe(result)
	return result, nil
}

func (e *Engine) save(ctx context.Context, actor auth.Actor, form *Form) (SaveResult, error) {
	if err := auth.Require(actor, auth.PermFormFill); err != nil {
		return SaveResult{}, err
	}
	var result SaveResult
	for _, action := range form.Plan() {
		qid := action.Item.QuestionID
		switch action.Op {
		case OpSkip:
			result.add(ItemOutcome{QuestionID: qid, Outcome: OutcomeSkipped, Code: "approved"})
		case OpInvalid:
			result.add(failure(qid, action.Err))
		case OpUpsert:
			saved, err := e.responses.UpsertByQuestion(ctx, actor, actor.Email, qid, responses.Patch{
				QuestionTitle:    action.Item.Title,
				Category:         form.Category,
				Points:           action.Points,
				LibraryEvaluated: action.Item.LibraryEvaluated,
			})
			if err != nil {
				if errors.Is(err, responses.ErrEditForbidden) {
					e.markApproved(form, qid, saved)
				}
				result.add(failure(qid, err))
				continue
			}
			if it, err := form.item(qid); err == nil {
				it.State = StateCheckedPending
				it.ResponseID = saved.ID
				it.Value = FormatPoints(saved.Points)
				it.RejectionReason = ""
			}
			result.add(ItemOutcome{QuestionID: qid, Outcome: OutcomeSaved})
		}
	}
	return result, nil
}

// SaveEdits loads the category, applies the client edits and saves. Edits that
// cannot be applied are reported as failed items alongside the save outcomes.
func (e *Engine) SaveEdits(ctx context.Context, actor auth.Actor, category string, edits []Edit) (*Form, SaveResult, error) {
	form, err := e.Load(ctx, actor, category)
	if err != nil {
		return nil, SaveResult{}, err
	}
	rejected := map[string]ItemOutcome{}
	for _, edit := range edits {
		if err := form.Toggle(edit.QuestionID, edit.Checked); err != nil {
			rejected[edit.QuestionID] = failure(edit.QuestionID, err)
			continue
		}
		if !edit.Checked {
			continue
		}
		if err := form.SetValue(edit.QuestionID, edit.Value); err != nil {
			rejected[edit.QuestionID] = failure(edit.QuestionID, err)
		}
	}

	saved, err := e.save(ctx, actor, form)
	if err != nil {
		return nil, SaveResult{}, err
	}
	if len(rejected) == 0 {
		e.observe(saved)
		return form, saved, nil
	}

	var result SaveResult
	for _, o := range saved.Items {
		if r, ok := rejected[o.QuestionID]; ok {
			result.add(r)
			delete(rejected, o.QuestionID)
			continue
		}
		result.add(o)
	}
	for _, edit := range edits {
		if r, ok := rejected[edit.QuestionID]; ok {
			result.add(r)
			delete(rejected, edit.QuestionID)
		}
	}
	e.observe(result)
	return form, result, nil
}

// Delete removes the response behind a form item and resets the item to unchecked.
func (e *Engine) Delete(ctx context.Context, actor auth.Actor, form *Form, questionID string) error {
	it, err := form.item(questionID)
	if err != nil {
		return err
	}
	if it.Locked() {
		return responses.ErrEditForbidden
	}
	if it.ResponseID != "" {
		if err := e.responses.Remove(ctx, actor, actor.Email, it.ResponseID); err != nil && !errors.Is(err, responses.ErrNotFound) {
			return err
		}
	}
	it.reset()
	return nil
}

// Switch reloads the form for the category being switched to and announces the switch.
func (e *Engine) Switch(ctx context.Context, actor auth.Actor, from, to string) (*Form, error) {
	form, err := e.Load(ctx, actor, to)
	if err != nil {
		return nil, err
	}
	e.events.Publish(ctx, events.CategorySwitched{UserID: auth.NormalizeEmail(actor.Email), From: from, To: to})
	return form, nil
}

func (e *Engine) markApproved(form *Form, questionID string, current responses.Response) {
	it, err := form.item(questionID)
	if err != nil {
		return
	}
	it.State = StateCheckedApproved
	it.Checked = true
	if current.ID != "" {
		it.ResponseID = current.ID
		it.Value = FormatPoints(current.Points)
	}
}

func (e *Engine) observe(r SaveResult) {
	if e.OnSaveOutcome == nil {
		return
	}
	e.OnSaveOutcome(OutcomeSaved, r.Saved)
	e.OnSaveOutcome(OutcomeSkipped, r.Skipped)
	e.OnSaveOutcome(OutcomeFailed, r.Failed)
}

func failure(questionID string, err error) ItemOutcome {
	return ItemOutcome{QuestionID: questionID, Outcome: OutcomeFailed, Code: ErrorCode(err), Message: err.Error()}
}

// ErrorCode names the failure class of a per-item error.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidPoints):
		return "invalid_points"
	case errors.Is(err, ErrUnknownQuestion):
		return "unknown_question"
	case errors.Is(err, responses.ErrEditForbidden):
		return "edit_forbidden"
	case errors.Is(err, docstore.ErrUnavailable):
		return "store_unavailable"
	case errors.Is(err, auth.ErrForbidden):
		return "forbidden"
	default:
		return "error"
	}
}

func (f *Form) clone() *Form {
	out := &Form{Category: f.Category, Items: make([]Item, len(f.Items))}
	copy(out.Items, f.Items)
	return out
}
