package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/unclebandit/remarketing-console/internal/handler"
	"github.com/unclebandit/remarketing-console/internal/model"
	"github.com/unclebandit/remarketing-console/internal/service"
)

type MockDispatcher struct {
	subs []*model.Submission
	err  error
}

func (m *MockDispatcher) SubmitCampaign(ctx context.Context, sub *model.Submission) (*model.DispatchResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.subs = append(m.subs, sub)
	return &model.DispatchResult{Accepted: true, RecipientCount: 42}, nil
}

type MockCatalog struct{}

func (MockCatalog) ListPlans(ctx context.Context, botID string) ([]model.Plan, error) {
	return []model.Plan{{ID: "p1", DisplayName: "Premium", CurrentPrice: decimal.RequireFromString("9.99")}}, nil
}

type MockStore struct {
	lists int
}

func (m *MockStore) ListCampaigns(ctx context.Context, botID string, page, pageSize int) (*model.CampaignPage, error) {
	m.lists++
	return &model.CampaignPage{}, nil
}

func (m *MockStore) DeleteCampaign(ctx context.Context, id string) error { return nil }

func setup(dispatcher service.Dispatcher) (http.Handler, *service.Console, *MockStore) {
	store := &MockStore{}
	registry := service.NewConsoleRegistry(dispatcher, MockCatalog{}, store)
	console := registry.Open(context.Background(), "bot-1")

	h := handler.NewWizardHandler(registry)
	r := chi.NewRouter()
	r.Route("/consoles/{id}/wizard", func(r chi.Router) {
		r.Get("/", h.GetWizardHandler)
		r.Delete("/", h.DiscardHandler)
		r.Put("/audience", h.SetAudienceHandler)
		r.Put("/content", h.SetContentHandler)
		r.Put("/offer", h.SetOfferHandler)
		r.Delete("/offer", h.RemoveOfferHandler)
		r.Post("/next", h.NextHandler)
		r.Post("/back", h.BackHandler)
		r.Post("/jump", h.JumpHandler)
		r.Get("/review", h.ReviewHandler)
		r.Post("/submit", h.SubmitHandler)
	})
	return r, console, store
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string            `json:"code"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func call(t *testing.T, h http.Handler, method, path string, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, path, &buf))

	var env envelope
	if err := json.NewDecoder(w.Body).Decode(&env); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return w.Code, env
}

func TestWizardFullSendFlow(t *testing.T) {
	dispatcher := &MockDispatcher{}
	h, console, store := setup(dispatcher)
	base := "/consoles/" + console.ID.String() + "/wizard"

	steps := []struct {
		method string
		path   string
		body   interface{}
	}{
		{"PUT", "/audience", map[string]string{"target": "expired"}},
		{"POST", "/next", nil},
		{"PUT", "/content", map[string]string{"message": "We miss you"}},
		{"PUT", "/offer", map[string]interface{}{
			"plan_ref": "p1", "price_mode": "original",
			"expiration_mode": "days", "expiration_value": 3,
		}},
		{"POST", "/next", nil},
	}
	for _, s := range steps {
		if code, env := call(t, h, s.method, base+s.path, s.body); code != http.StatusOK {
			t.Fatalf("%s %s: expected 200, got %d %+v", s.method, s.path, code, env.Error)
		}
	}

	_, env := call(t, h, "GET", base+"/review", nil)
	var review service.ReviewSummary
	if err := json.Unmarshal(env.Data, &review); err != nil {
		t.Fatalf("decode review: %v", err)
	}
	if review.Segment != "expired_subscribers" || review.Offer == nil {
		t.Fatalf("unexpected review: %+v", review)
	}
	if !review.Offer.Price.Equal(decimal.RequireFromString("9.99")) || review.Offer.ExpiryLabel != "3 days" {
		t.Errorf("unexpected offer review: %+v", review.Offer)
	}

	listsBefore := store.lists
	code, env := call(t, h, "POST", base+"/submit", map[string]string{"mode": "full"})
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d %+v", code, env.Error)
	}
	var res struct {
		Result model.DispatchResult `json:"result"`
		Wizard service.WizardView   `json:"wizard"`
	}
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatalf("decode submit: %v", err)
	}
	if res.Result.RecipientCount != 42 {
		t.Errorf("expected 42 recipients, got %d", res.Result.RecipientCount)
	}
	if res.Wizard.State != service.StateAudience || !res.Wizard.Draft.IsEmpty() {
		t.Errorf("expected a fresh wizard, got %+v", res.Wizard)
	}
	if store.lists != listsBefore+1 {
		t.Errorf("expected history to reload once, got %d loads", store.lists-listsBefore)
	}
	if len(dispatcher.subs) != 1 || dispatcher.subs[0].Offer == nil {
		t.Fatalf("expected one submission with an offer, got %+v", dispatcher.subs)
	}
}

func TestWizardRejectsIncompleteSteps(t *testing.T) {
	h, console, _ := setup(&MockDispatcher{})
	base := "/consoles/" + console.ID.String() + "/wizard"

	code, env := call(t, h, "POST", base+"/next", nil)
	if code != http.StatusUnprocessableEntity || env.Error.Details["target"] == "" {
		t.Errorf("expected target error, got %d %+v", code, env.Error)
	}

	code, env = call(t, h, "PUT", base+"/audience", map[string]string{"target": "everyone"})
	if code != http.StatusUnprocessableEntity || env.Error.Details["target"] == "" {
		t.Errorf("expected invalid target, got %d %+v", code, env.Error)
	}

	code, _ = call(t, h, "POST", base+"/submit", map[string]string{"mode": "full"})
	if code != http.StatusConflict {
		t.Errorf("expected 409 outside review, got %d", code)
	}

	code, env = call(t, h, "POST", base+"/submit", map[string]string{"mode": "test"})
	if code != http.StatusUnprocessableEntity || env.Error.Details["test_recipient"] == "" {
		t.Errorf("expected test_recipient error, got %d %+v", code, env.Error)
	}

	code, _ = call(t, h, "POST", base+"/jump", map[string]string{"state": "review"})
	if code != http.StatusUnprocessableEntity {
		t.Errorf("expected forward jump to be refused, got %d", code)
	}
}

func TestWizardDispatchFailureKeepsDraft(t *testing.T) {
	h, console, _ := setup(&MockDispatcher{err: errors.New("upstream down")})
	base := "/consoles/" + console.ID.String() + "/wizard"

	call(t, h, "PUT", base+"/audience", map[string]string{"target": "paying"})
	call(t, h, "POST", base+"/next", nil)
	call(t, h, "PUT", base+"/content", map[string]string{"message": "Renew today"})
	call(t, h, "POST", base+"/next", nil)

	code, env := call(t, h, "POST", base+"/submit", map[string]string{"mode": "full"})
	if code != http.StatusBadGateway || env.Error.Code != "DISPATCH_FAILED" {
		t.Fatalf("expected 502, got %d %+v", code, env.Error)
	}

	view := console.Wizard.View()
	if view.State != service.StateReview || view.Draft.Message != "Renew today" {
		t.Errorf("expected draft kept at review, got %+v", view)
	}
	if view.Draft.SubmissionKey.String() == "00000000-0000-0000-0000-000000000000" {
		t.Errorf("expected the submission key to be kept for a retry")
	}

	call(t, h, "DELETE", base+"/", nil)
	if !console.Wizard.View().Draft.IsEmpty() {
		t.Errorf("expected discard to empty the draft")
	}
}
