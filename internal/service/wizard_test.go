package service_test

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	appErrors "github.com/unclebandit/remarketing-console/internal/errors"
	"github.com/unclebandit/remarketing-console/internal/model"
	"github.com/unclebandit/remarketing-console/internal/service"
)

// --- Stubs ---

type stubDispatcher struct {
	mu      sync.Mutex
	subs    []model.Submission
	err     error
	entered chan struct{}
	release chan struct{}
}

func (d *stubDispatcher) SubmitCampaign(ctx context.Context, sub *model.Submission) (*model.DispatchResult, error) {
	d.mu.Lock()
	d.subs = append(d.subs, *sub)
	err := d.err
	d.mu.Unlock()

	if d.entered != nil {
		d.entered <- struct{}{}
	}
	if d.release != nil {
		<-d.release
	}
	if err != nil {
		return nil, err
	}
	return &model.DispatchResult{Accepted: true, RecipientCount: 12}, nil
}

func (d *stubDispatcher) submissions() []model.Submission {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]model.Submission(nil), d.subs...)
}

type stubCatalog struct{}

func (stubCatalog) ListPlans(ctx context.Context, botID string) ([]model.Plan, error) {
	return catalog, nil
}

type stubResetter struct {
	mu    sync.Mutex
	calls int
}

func (r *stubResetter) ResetToFirstPage(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return nil
}

func newWizard(d service.Dispatcher) (*service.Wizard, *stubResetter) {
	history := &stubResetter{}
	w := service.NewWizard("bot-1", d, stubCatalog{}, history)
	w.Now = func() time.Time { return now }
	return w, history
}

// toReview fills a valid draft and walks it to the review step.
func toReview(t *testing.T, w *service.Wizard, target model.Target, message string, offer *model.OfferSpec) {
	t.Helper()
	if err := w.SetTarget(target); err != nil {
		t.Fatal(err)
	}
	if err := w.Next(); err != nil {
		t.Fatalf("audience -> content: %v", err)
	}
	if err := w.SetContent(message, ""); err != nil {
		t.Fatal(err)
	}
	if err := w.SetOffer(offer); err != nil {
		t.Fatal(err)
	}
	if err := w.Next(); err != nil {
		t.Fatalf("content -> review: %v", err)
	}
}

func validationField(err error) string {
	var verr *appErrors.ValidationError
	if errors.As(err, &verr) {
		return verr.Field
	}
	return ""
}

// --- Transitions ---

func TestAudienceRequiresTarget(t *testing.T) {
	w, _ := newWizard(&stubDispatcher{})

	err := w.Next()
	if validationField(err) != "target" {
		t.Fatalf("expected target validation error, got %v", err)
	}
	view := w.View()
	if view.State != service.StateAudience || view.Errors["target"] == "" {
		t.Errorf("expected to stay on audience with an inline error, got %+v", view)
	}

	if err := w.SetTarget("everyone"); validationField(err) != "target" {
		t.Errorf("expected unknown target to be refused, got %v", err)
	}
}

func TestContentRequiresMessage(t *testing.T) {
	w, _ := newWizard(&stubDispatcher{})
	w.SetTarget(model.TargetPending)
	w.Next()

	for _, msg := range []string{"", "   \n"} {
		w.SetContent(msg, "https://cdn.example.com/a.png")
		if err := w.Next(); validationField(err) != "message" {
			t.Errorf("message %q: expected message validation error, got %v", msg, err)
		}
		if got := w.View().State; got != service.StateContent {
			t.Errorf("expected to stay on content, got %s", got)
		}
	}
}

func TestContentRejectsInvalidOffer(t *testing.T) {
	w, _ := newWizard(&stubDispatcher{})
	w.SetTarget(model.TargetPaying)
	w.Next()
	w.SetContent("Upgrade now", "")

	offers := []*model.OfferSpec{
		{PriceMode: model.PriceOriginal, ExpirationMode: model.ExpireNever},
		{PlanRef: "P1", PriceMode: model.PriceCustom, ExpirationMode: model.ExpireNever},
		{PlanRef: "P1", PriceMode: model.PriceOriginal, ExpirationMode: model.ExpireDays},
	}
	for i, offer := range offers {
		w.SetOffer(offer)
		err := w.Next()
		if validationField(err) != "offer" {
			t.Errorf("offer %d: expected offer validation error, got %v", i, err)
		}
		var offerErr *appErrors.InvalidOfferError
		if !errors.As(err, &offerErr) {
			t.Errorf("offer %d: expected wrapped InvalidOfferError, got %v", i, err)
		}
	}
	if got := w.View().State; got != service.StateContent {
		t.Errorf("expected to stay on content, got %s", got)
	}

	w.SetOffer(nil)
	if err := w.Next(); err != nil {
		t.Errorf("expected removing the offer to unblock review, got %v", err)
	}
}

func TestBackNavigationKeepsDraft(t *testing.T) {
	w, _ := newWizard(&stubDispatcher{})
	toReview(t, w, model.TargetExpired, "Come back", nil)

	if err := w.Back(); err != nil || w.View().State != service.StateContent {
		t.Fatalf("expected review -> content, got %s (%v)", w.View().State, err)
	}
	if err := w.JumpTo(service.StateReview); err == nil {
		t.Errorf("expected forward jump to be refused")
	}
	if err := w.JumpTo(service.StateAudience); err != nil {
		t.Fatalf("expected jump back to audience, got %v", err)
	}
	draft := w.View().Draft
	if draft.Target != model.TargetExpired || draft.Message != "Come back" {
		t.Errorf("expected draft preserved, got %+v", draft)
	}
}

// --- Review ---

func TestReviewComputesOffer(t *testing.T) {
	w, _ := newWizard(&stubDispatcher{})
	toReview(t, w, model.TargetPaying, "Upgrade", &model.OfferSpec{
		PlanRef:         "P1",
		PriceMode:       model.PriceOriginal,
		ExpirationMode:  model.ExpireHours,
		ExpirationValue: 6,
	})
	before := w.View().Draft

	summary, err := w.Review(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Segment != "active_subscribers" || summary.Offer == nil {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.Offer.PlanName != "Premium" || summary.Offer.ExpiryLabel != "6 hours" {
		t.Errorf("unexpected offer review: %+v", summary.Offer)
	}
	if !summary.Total.Equal(decimal.RequireFromString("19.90")) {
		t.Errorf("expected total 19.90, got %s", summary.Total)
	}
	if !reflect.DeepEqual(before, w.View().Draft) {
		t.Errorf("review must not change the draft")
	}
}

// --- Submission ---

func TestFullSendResetsWizard(t *testing.T) {
	d := &stubDispatcher{}
	w, history := newWizard(d)
	toReview(t, w, model.TargetAll, "Promo!", nil)

	result, err := w.SubmitFull(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RecipientCount != 12 {
		t.Errorf("expected 12 recipients, got %d", result.RecipientCount)
	}

	view := w.View()
	if view.State != service.StateAudience || !view.Draft.IsEmpty() {
		t.Errorf("expected empty draft at audience, got %+v", view)
	}
	if view.Notice == "" {
		t.Errorf("expected a success notice")
	}
	if history.calls != 1 {
		t.Errorf("expected history reset to page 1 once, got %d", history.calls)
	}

	subs := d.submissions()
	if len(subs) != 1 {
		t.Fatalf("expected one submission, got %d", len(subs))
	}
	if subs[0].Segment != "all_contacts" || subs[0].Mode != model.SendFull || subs[0].Key == uuid.Nil {
		t.Errorf("unexpected submission: %+v", subs[0])
	}
}

func TestTestSendKeepsDraft(t *testing.T) {
	d := &stubDispatcher{}
	w, history := newWizard(d)
	toReview(t, w, model.TargetPending, "Finish your payment", nil)

	if _, err := w.SubmitTest(context.Background(), " "); validationField(err) != "test_recipient" {
		t.Errorf("expected recipient validation error, got %v", err)
	}
	if _, err := w.SubmitTest(context.Background(), "@operator"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	view := w.View()
	if view.State != service.StateReview || view.Draft.Message != "Finish your payment" {
		t.Errorf("expected draft kept at review, got %+v", view)
	}
	if history.calls != 0 {
		t.Errorf("test send must not touch history")
	}
	if subs := d.submissions(); len(subs) != 1 || subs[0].TestRecipient != "@operator" || subs[0].Mode != model.SendTest {
		t.Errorf("unexpected submissions: %+v", subs)
	}
}

func TestFailedFullSendKeepsDraftAndKey(t *testing.T) {
	d := &stubDispatcher{err: errors.New("connection reset")}
	w, history := newWizard(d)
	toReview(t, w, model.TargetPaying, "Renew", nil)

	_, err := w.SubmitFull(context.Background())
	var derr *appErrors.DispatchError
	if !errors.As(err, &derr) {
		t.Fatalf("expected DispatchError, got %v", err)
	}
	view := w.View()
	if view.State != service.StateReview || view.Draft.Message != "Renew" || view.Notice == "" {
		t.Errorf("expected draft kept at review with a notice, got %+v", view)
	}
	if history.calls != 0 {
		t.Errorf("failed send must not reset history")
	}

	w.SubmitFull(context.Background())
	subs := d.submissions()
	if len(subs) != 2 || subs[0].Key != subs[1].Key {
		t.Fatalf("expected the retry to reuse the submission key, got %+v", subs)
	}

	w.SetContent("Renew today", "")
	if w.View().Draft.SubmissionKey != uuid.Nil {
		t.Errorf("expected an edit to drop the submission key")
	}
}

func TestSubmitOnlyFromReview(t *testing.T) {
	w, _ := newWizard(&stubDispatcher{})
	if _, err := w.SubmitFull(context.Background()); !errors.Is(err, appErrors.ErrNotInReview) {
		t.Errorf("expected ErrNotInReview, got %v", err)
	}
}

func TestSecondSubmitRejectedWhileInFlight(t *testing.T) {
	d := &stubDispatcher{entered: make(chan struct{}), release: make(chan struct{})}
	w, _ := newWizard(d)
	toReview(t, w, model.TargetAll, "Promo!", nil)

	done := make(chan error, 1)
	go func() {
		_, err := w.SubmitFull(context.Background())
		done <- err
	}()
	<-d.entered

	if !w.View().Pending || w.View().State != service.StateSubmitting {
		t.Errorf("expected a pending submission, got %+v", w.View())
	}
	if _, err := w.SubmitTest(context.Background(), "@op"); !errors.Is(err, appErrors.ErrSubmissionInFlight) {
		t.Errorf("expected ErrSubmissionInFlight, got %v", err)
	}
	if err := w.SetContent("changed", ""); !errors.Is(err, appErrors.ErrSubmissionInFlight) {
		t.Errorf("expected edits to be refused while submitting, got %v", err)
	}
	if err := w.Back(); !errors.Is(err, appErrors.ErrSubmissionInFlight) {
		t.Errorf("expected navigation to be refused while submitting, got %v", err)
	}

	close(d.release)
	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := len(d.submissions()); n != 1 {
		t.Errorf("expected exactly one dispatch, got %d", n)
	}
}

func TestDiscardDropsLateResult(t *testing.T) {
	d := &stubDispatcher{entered: make(chan struct{}), release: make(chan struct{})}
	w, history := newWizard(d)
	toReview(t, w, model.TargetAll, "Promo!", nil)

	done := make(chan error, 1)
	go func() {
		_, err := w.SubmitFull(context.Background())
		done <- err
	}()
	<-d.entered

	w.Discard()
	if err := w.SetTarget(model.TargetPaying); err != nil {
		t.Fatalf("expected the fresh draft to be editable, got %v", err)
	}

	close(d.release)
	if err := <-done; !errors.Is(err, appErrors.ErrSubmissionDiscarded) {
		t.Fatalf("expected ErrSubmissionDiscarded, got %v", err)
	}

	view := w.View()
	if view.Draft.Target != model.TargetPaying || view.State != service.StateAudience || view.Notice != "" {
		t.Errorf("late result leaked into the fresh draft: %+v", view)
	}
	if history.calls != 0 {
		t.Errorf("late result must not reset history")
	}
}

// --- Reuse ---

func TestSeedEditIsDeterministic(t *testing.T) {
	w, _ := newWizard(&stubDispatcher{})
	record := model.CampaignRecord{
		ID:              "r1",
		Target:          model.TargetExpired,
		ContentSnapshot: `{"message":"We miss you","media_url":"https://cdn.example.com/x.jpg","has_offer":true}`,
	}

	if err := w.Seed(record, service.ReuseEdit); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first := w.View()
	if err := w.Seed(record, service.ReuseEdit); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second := w.View()

	if !reflect.DeepEqual(first.Draft, second.Draft) {
		t.Errorf("expected identical drafts, got %+v and %+v", first.Draft, second.Draft)
	}
	if first.State != service.StateContent || first.Draft.Offer != nil {
		t.Errorf("expected content step with no offer, got %+v", first)
	}
	if first.Draft.Message != "We miss you" || first.Draft.MediaURL != "https://cdn.example.com/x.jpg" {
		t.Errorf("unexpected seeded draft: %+v", first.Draft)
	}
}

func TestSeedDirectGoesToReview(t *testing.T) {
	w, _ := newWizard(&stubDispatcher{})
	record := model.CampaignRecord{ID: "r2", Target: model.TargetAll, ContentSnapshot: `{"message":"Again"}`}
	if err := w.Seed(record, service.ReuseDirect); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := w.View().State; got != service.StateReview {
		t.Errorf("expected review, got %s", got)
	}

	empty := model.CampaignRecord{ID: "r3", Target: model.TargetAll, ContentSnapshot: `{"message":""}`}
	if err := w.Seed(empty, service.ReuseDirect); validationField(err) != "message" {
		t.Errorf("expected message validation error, got %v", err)
	}
	if got := w.View().State; got != service.StateContent {
		t.Errorf("expected content, got %s", got)
	}
}

func TestSeedEditRequiresKnownTarget(t *testing.T) {
	w, _ := newWizard(&stubDispatcher{})
	record := model.CampaignRecord{ID: "r4", Target: "lapsed", ContentSnapshot: `{"message":"Come back"}`}

	if err := w.Seed(record, service.ReuseEdit); validationField(err) != "target" {
		t.Fatalf("expected target validation error, got %v", err)
	}
	view := w.View()
	if view.State != service.StateAudience || view.Draft.Message != "Come back" {
		t.Errorf("expected audience step with the message kept, got %+v", view)
	}
	if err := w.Next(); validationField(err) != "target" {
		t.Errorf("expected the audience step to stay blocked, got %v", err)
	}
}

func TestSeedCorruptSnapshot(t *testing.T) {
	w, _ := newWizard(&stubDispatcher{})
	w.SetTarget(model.TargetPending)
	before := w.View()

	err := w.Seed(model.CampaignRecord{ID: "bad", Target: model.TargetAll, ContentSnapshot: "{not valid json"}, service.ReuseEdit)
	var corrupt *appErrors.CorruptSnapshotError
	if !errors.As(err, &corrupt) || corrupt.RecordID != "bad" {
		t.Fatalf("expected CorruptSnapshotError, got %v", err)
	}
	if !reflect.DeepEqual(before, w.View()) {
		t.Errorf("expected wizard untouched, got %+v", w.View())
	}
}
