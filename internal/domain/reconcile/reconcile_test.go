package reconcile

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"selfeval/internal/domain/auth"
	"selfeval/internal/domain/catalog"
	"selfeval/internal/domain/responses"
	"selfeval/internal/platform/docstore/memory"
	"selfeval/internal/platform/events"
)

var (
	employee = auth.Actor{Email: "jan@uni.edu"}
	dean     = auth.Actor{Email: "dean@uni.edu", Roles: []string{auth.RoleDean}}
)

type stubCatalog map[string][]catalog.Question

func (s stubCatalog) ListByCategory(_ context.Context, category string) ([]catalog.Question, error) {
	return s[category], nil
}

// gatedCatalog blocks reads until release is closed, honouring ctx meanwhile.
type gatedCatalog struct {
	stubCatalog
	calls   atomic.Int32
	release chan struct{}
}

func (g *gatedCatalog) ListByCategory(ctx context.Context, category string) ([]catalog.Question, error) {
	g.calls.Add(1)
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return g.stubCatalog.ListByCategory(ctx, category)
}

type stubUsers []string

func (s stubUsers) Emails(context.Context) ([]string, error) { return s, nil }

func fixture() (*Engine, *responses.Service, *events.Bus) {
	questions := stubCatalog{
		"Publikacje": {
			{ID: "Q1", Title: "Monografia", Category: "Publikacje", Points: catalog.Points(5)},
			{ID: "Q2", Title: "Rozdział", Category: "Publikacje", Points: catalog.Points(2)},
			{ID: "Q3", Title: "Artykuł", Category: "Publikacje", Points: catalog.Formula("wg listy"), LibraryEvaluated: true},
		},
		"Dydaktyka": {
			{ID: "Q9", Title: "Wykład", Category: "Dydaktyka", Points: catalog.Points(1)},
		},
	}
	bus := events.NewBus()
	svc := responses.NewService(responses.NewStore(memory.New()), stubUsers{employee.Email}, bus)
	return NewEngine(questions, svc, bus), svc, bus
}

func TestParsePoints(t *testing.T) {
	cases := map[string]float64{"2,5": 2.5, "3": 3, " 0.75 ": 0.75, "0": 0, "+1,5": 1.5, ",5": 0.5}
	for raw, want := range cases {
		got, err := ParsePoints(raw)
		if err != nil || got != want {
			t.Errorf("ParsePoints(%q) = %v, %v; want %v", raw, got, err, want)
		}
	}
	for _, raw := range []string{"", "abc", "NaN", "Inf", "-1", "1,2,3", "0x1p3", "1e2", "1_000", "+", ".", "--1"} {
		if _, err := ParsePoints(raw); !errors.Is(err, ErrInvalidPoints) {
			t.Errorf("ParsePoints(%q) expected ErrInvalidPoints, got %v", raw, err)
		}
	}
}

func TestReconcileInitialStates(t *testing.T) {
	questions := []catalog.Question{
		{ID: "Q1", Points: catalog.Points(5)},
		{ID: "Q2", Points: catalog.Points(2)},
		{ID: "Q3", Points: catalog.Formula("wg listy")},
		{ID: "Q4", Points: catalog.Points(1)},
	}
	saved := []responses.Response{
		{ID: "r1", QuestionID: "Q1", Points: 4.5, Status: responses.StatusApproved},
		{ID: "r2", QuestionID: "Q2", Points: 1, Status: responses.StatusRejected, RejectionReason: "brak"},
		{ID: "r4", QuestionID: "Q4", Points: 1, Status: responses.StatusPending},
	}
	form := Reconcile(questions, saved)

	want := []struct {
		state State
		value string
	}{
		{StateCheckedApproved, "4.5"},
		{StateCheckedRejected, "1"},
		{StateUnchecked, "0"},
		{StateCheckedPending, "1"},
	}
	for i, w := range want {
		it := form.Items[i]
		if it.State != w.state || it.Value != w.value {
			t.Errorf("item %s: got %s/%q, want %s/%q", it.QuestionID, it.State, it.Value, w.state, w.value)
		}
	}
	if form.Items[2].Checked || !form.Items[0].Checked {
		t.Fatal("checked flags do not follow saved responses")
	}
}

func TestToggleIsLocalOnly(t *testing.T) {
	engine, svc, _ := fixture()
	ctx := context.Background()
	form, err := engine.Load(ctx, employee, "Publikacje")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := form.Toggle("Q1", true); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	saved, _ := svc.ListForUser(ctx, employee, employee.Email, "")
	if len(saved) != 0 {
		t.Fatalf("toggle must not write, found %d responses", len(saved))
	}
	if err := form.Toggle("nope", true); !errors.Is(err, ErrUnknownQuestion) {
		t.Fatalf("expected ErrUnknownQuestion, got %v", err)
	}
}

func TestApprovedItemIsLockedAfterReload(t *testing.T) {
	engine, svc, _ := fixture()
	ctx := context.Background()

	form, _ := engine.Load(ctx, employee, "Publikacje")
	_ = form.Toggle("Q1", true)
	res, err := engine.Save(ctx, employee, form)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if res.Saved != 1 {
		t.Fatalf("expected one saved item, got %+v", res)
	}

	saved, _ := svc.ListForUser(ctx, employee, employee.Email, "Publikacje")
	if len(saved) != 1 || saved[0].QuestionID != "Q1" || saved[0].Points != 5 || saved[0].Status != responses.StatusPending {
		t.Fatalf("unexpected persisted response %+v", saved)
	}

	approved, err := svc.SetStatus(ctx, dean, employee.Email, saved[0].ID, responses.StatusApproved, "")
	if err != nil || approved.VerifiedBy != dean.Email {
		t.Fatalf("approve: %+v err=%v", approved, err)
	}

	form, _ = engine.Load(ctx, employee, "Publikacje")
	q1, _ := form.Item("Q1")
	if q1.State != StateCheckedApproved || !q1.Locked() {
		t.Fatalf("expected Q1 locked as approved, got %+v", q1)
	}
	if err := form.Toggle("Q1", false); !errors.Is(err, responses.ErrEditForbidden) {
		t.Fatalf("uncheck of approved item should fail, got %v", err)
	}
	if err := form.SetValue("Q1", "9"); !errors.Is(err, responses.ErrEditForbidden) {
		t.Fatalf("edit of approved item should fail, got %v", err)
	}
	if err := engine.Delete(ctx, employee, form, "Q1"); !errors.Is(err, responses.ErrEditForbidden) {
		t.Fatalf("delete of approved item should fail, got %v", err)
	}

	res, _ = engine.Save(ctx, employee, form)
	if res.Skipped != 1 || res.Saved != 0 {
		t.Fatalf("approved item should be skipped silently, got %+v", res)
	}
}

func TestExplicitDeleteOnly(t *testing.T) {
	engine, svc, _ := fixture()
	ctx := context.Background()

	form, _ := engine.Load(ctx, employee, "Publikacje")
	_ = form.Toggle("Q2", true)
	_ = form.SetValue("Q2", "3")
	if _, err := engine.Save(ctx, employee, form); err != nil {
		t.Fatalf("save: %v", err)
	}

	_ = form.Toggle("Q2", false)
	if _, err := engine.Save(ctx, employee, form); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := engine.Switch(ctx, employee, "Publikacje", "Dydaktyka"); err != nil {
		t.Fatalf("switch: %v", err)
	}
	saved, _ := svc.ListForUser(ctx, employee, employee.Email, "Publikacje")
	if len(saved) != 1 || saved[0].Points != 3 {
		t.Fatalf("unchecking or navigating must not delete, got %+v", saved)
	}

	if err := engine.Delete(ctx, employee, form, "Q2"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	saved, _ = svc.ListForUser(ctx, employee, employee.Email, "Publikacje")
	if len(saved) != 0 {
		t.Fatalf("expected response removed, got %+v", saved)
	}

	form, _ = engine.Load(ctx, employee, "Publikacje")
	q2, _ := form.Item("Q2")
	if q2.State != StateUnchecked || q2.Value != "2" || q2.Checked {
		t.Fatalf("expected Q2 unchecked with default value, got %+v", q2)
	}
}

func TestSaveFailsBadValuesIndividually(t *testing.T) {
	engine, svc, _ := fixture()
	ctx := context.Background()
	var counted = map[string]int{}
	engine.OnSaveOutcome = func(outcome string, n int) { counted[outcome] += n }

	form, res, err := engine.SaveEdits(ctx, employee, "Publikacje", []Edit{
		{QuestionID: "Q1", Checked: true, Value: "abc"},
		{QuestionID: "Q2", Checked: true, Value: "2,5"},
		{QuestionID: "Q404", Checked: true, Value: "1"},
	})
	if err != nil {
		t.Fatalf("save edits: %v", err)
	}
	if res.Saved != 1 || res.Failed != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	codes := map[string]string{}
	for _, o := range res.Items {
		codes[o.QuestionID] = o.Code
	}
	if codes["Q1"] != "invalid_points" || codes["Q404"] != "unknown_question" {
		t.Fatalf("unexpected failure codes %v", codes)
	}

	saved, _ := svc.ListForUser(ctx, employee, employee.Email, "Publikacje")
	if len(saved) != 1 || saved[0].QuestionID != "Q2" || saved[0].Points != 2.5 {
		t.Fatalf("expected only Q2 persisted with 2.5, got %+v", saved)
	}
	q2, _ := form.Item("Q2")
	if q2.State != StateCheckedPending || q2.ResponseID == "" {
		t.Fatalf("form not updated after save: %+v", q2)
	}
	if counted[OutcomeSaved] != res.Saved || counted[OutcomeFailed] != res.Failed {
		t.Fatalf("unexpected observed outcomes %v", counted)
	}
}

func TestSwitchPublishesEvent(t *testing.T) {
	engine, _, bus := fixture()
	var got []events.CategorySwitched
	events.On(bus, func(_ context.Context, e events.CategorySwitched) error {
		got = append(got, e)
		return nil
	})

	form, err := engine.Switch(context.Background(), employee, "Publikacje", "Dydaktyka")
	if err != nil {
		t.Fatalf("switch: %v", err)
	}
	if form.Category != "Dydaktyka" || len(form.Items) != 1 {
		t.Fatalf("unexpected form %+v", form)
	}
	if len(got) != 1 || got[0].From != "Publikacje" || got[0].To != "Dydaktyka" {
		t.Fatalf("unexpected events %+v", got)
	}
}

func TestLoadSurvivesCancelledTabSharingTheFetch(t *testing.T) {
	base, svc, bus := fixture()
	gate := &gatedCatalog{stubCatalog: base.catalog.(stubCatalog), release: make(chan struct{})}
	engine := NewEngine(gate, svc, bus)

	tab, closeTab := context.WithCancel(context.Background())
	tabErr := make(chan error, 1)
	go func() {
		_, err := engine.Load(tab, employee, "Publikacje")
		tabErr <- err
	}()
	for gate.calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	other := make(chan error, 1)
	go func() {
		form, err := engine.Load(context.Background(), employee, "Publikacje")
		if err == nil && len(form.Items) != 3 {
			err = errors.New("unexpected form")
		}
		other <- err
	}()
	time.Sleep(20 * time.Millisecond)

	closeTab()
	if err := <-tabErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("closed tab should see its own cancellation, got %v", err)
	}
	close(gate.release)
	if err := <-other; err != nil {
		t.Fatalf("second tab must get the shared form: %v", err)
	}
	if n := gate.calls.Load(); n != 1 {
		t.Fatalf("expected one shared fetch, got %d", n)
	}
}

func TestLoadRequiresIdentity(t *testing.T) {
	engine, _, _ := fixture()
	if _, err := engine.Load(context.Background(), auth.Actor{}, "Publikacje"); !errors.Is(err, auth.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}
