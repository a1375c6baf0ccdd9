package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	appErrors "github.com/unclebandit/remarketing-console/internal/errors"
	"github.com/unclebandit/remarketing-console/internal/model"
)

type WizardState string

const (
	StateAudience   WizardState = "audience"
	StateContent    WizardState = "content"
	StateReview     WizardState = "review"
	StateSubmitting WizardState = "submitting"
)

// ReuseMode selects how a history record re-seeds the wizard.
type ReuseMode string

const (
	ReuseEdit   ReuseMode = "edit"
	ReuseDirect ReuseMode = "direct"
)

// Wizard collects audience, content and offer for one bot and submits the
// result. It owns its draft exclusively; all methods are safe for concurrent
// use and no lock is held while a collaborator is called.
type Wizard struct {
	Dispatcher Dispatcher
	Catalog    PlanCatalog
	History    HistoryResetter
	Now        func() time.Time

	mu         sync.Mutex
	botID      string
	state      WizardState
	draft      model.CampaignDraft
	errs       map[string]string
	notice     string
	inFlight   bool
	generation uint64
}

// WizardView is what the console renders.
type WizardView struct {
	BotID   string              `json:"bot_id"`
	State   WizardState         `json:"state"`
	Draft   model.CampaignDraft `json:"draft"`
	Segment string              `json:"segment,omitempty"`
	Errors  map[string]string   `json:"errors,omitempty"`
	Notice  string              `json:"notice,omitempty"`
	Pending bool                `json:"pending"`
}

// OfferReview is the computed offer shown at the review step.
type OfferReview struct {
	PlanRef     string          `json:"plan_ref"`
	PlanName    string          `json:"plan_name,omitempty"`
	Price       decimal.Decimal `json:"price"`
	ExpiryLabel string          `json:"expiry_label"`
	ExpiresAt   *time.Time      `json:"expires_at,omitempty"`
}

// ReviewSummary is the read-only review of the current draft.
type ReviewSummary struct {
	Target   model.Target    `json:"target"`
	Segment  string          `json:"segment"`
	Message  string          `json:"message"`
	MediaURL string          `json:"media_url,omitempty"`
	Offer    *OfferReview    `json:"offer,omitempty"`
	Total    decimal.Decimal `json:"total"`
}

func NewWizard(botID string, dispatcher Dispatcher, catalog PlanCatalog, history HistoryResetter) *Wizard {
	return &Wizard{
		Dispatcher: dispatcher,
		Catalog:    catalog,
		History:    history,
		Now:        time.Now,
		botID:      botID,
		state:      StateAudience,
	}
}

func (w *Wizard) now() time.Time {
	if w.Now == nil {
		return time.Now()
	}
	return w.Now()
}

// View returns a copy of the wizard state for rendering.
func (w *Wizard) View() WizardView {
	w.mu.Lock()
	defer w.mu.Unlock()

	v := WizardView{
		BotID:   w.botID,
		State:   w.state,
		Draft:   w.draft.Clone(),
		Segment: ResolveAudience(w.draft.Target),
		Notice:  w.notice,
		Pending: w.inFlight,
	}
	if len(w.errs) > 0 {
		v.Errors = make(map[string]string, len(w.errs))
		for k, msg := range w.errs {
			v.Errors[k] = msg
		}
	}
	return v
}

func (w *Wizard) BotID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.botID
}

// ====================== Draft editing ======================

func (w *Wizard) SetTarget(t model.Target) error {
	if t != "" && !t.IsValid() {
		return appErrors.NewValidation("target", fmt.Sprintf("unknown audience %q", t))
	}
	return w.edit(func(d *model.CampaignDraft) { d.Target = t })
}

// SetContent replaces message and media of the draft. An empty message is a
// valid intermediate state.
func (w *Wizard) SetContent(message, mediaURL string) error {
	return w.edit(func(d *model.CampaignDraft) {
		d.Message = message
		d.MediaURL = strings.TrimSpace(mediaURL)
	})
}

// SetOffer attaches an offer; nil removes it.
func (w *Wizard) SetOffer(spec *model.OfferSpec) error {
	return w.edit(func(d *model.CampaignDraft) {
		if spec == nil {
			d.Offer = nil
			return
		}
		o := *spec
		d.Offer = &o
	})
}

func (w *Wizard) edit(fn func(d *model.CampaignDraft)) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state == StateSubmitting {
		return appErrors.ErrSubmissionInFlight
	}
	fn(&w.draft)
	// A changed draft is a different campaign.
	w.draft.SubmissionKey = uuid.Nil
	return nil
}

// ====================== Transitions ======================

// Next advances one step. When the current step is incomplete the wizard
// stays where it is and the violated rule is returned and kept for display.
func (w *Wizard) Next() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.state {
	case StateAudience:
		if err := validateAudience(w.draft); err != nil {
			w.fail(err)
			return err
		}
		w.moveTo(StateContent)
	case StateContent:
		if err := validateContent(w.draft); err != nil {
			w.fail(err)
			return err
		}
		w.moveTo(StateReview)
	case StateSubmitting:
		return appErrors.ErrSubmissionInFlight
	}
	return nil
}

// Back moves one step towards the audience screen keeping the draft.
func (w *Wizard) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.state {
	case StateReview:
		w.moveTo(StateContent)
	case StateContent:
		w.moveTo(StateAudience)
	case StateSubmitting:
		return appErrors.ErrSubmissionInFlight
	}
	return nil
}

// JumpTo navigates back to an earlier step. Forward jumps go through Next so
// that validation always runs.
func (w *Wizard) JumpTo(target WizardState) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state == StateSubmitting {
		return appErrors.ErrSubmissionInFlight
	}
	if stepIndex(target) < 0 || stepIndex(target) > stepIndex(w.state) {
		return appErrors.NewValidation("state", fmt.Sprintf("cannot jump from %s to %s", w.state, target))
	}
	w.moveTo(target)
	return nil
}

// Discard throws the draft away. A submission still in flight will not be
// applied to the fresh draft.
func (w *Wizard) Discard() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reset("")
}

// SwitchBot discards the draft and binds the wizard to another bot.
func (w *Wizard) SwitchBot(botID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.botID = botID
	w.reset("")
}

func stepIndex(s WizardState) int {
	switch s {
	case StateAudience:
		return 0
	case StateContent:
		return 1
	case StateReview:
		return 2
	}
	return -1
}

// callers hold w.mu
func (w *Wizard) moveTo(s WizardState) {
	w.state = s
	w.errs = nil
	w.notice = ""
}

// callers hold w.mu
func (w *Wizard) fail(err error) {
	var verr *appErrors.ValidationError
	if errors.As(err, &verr) {
		w.errs = map[string]string{verr.Field: verr.Message}
		return
	}
	w.errs = map[string]string{"_": err.Error()}
}

// callers hold w.mu
func (w *Wizard) reset(notice string) {
	w.generation++
	w.draft = model.CampaignDraft{}
	w.state = StateAudience
	w.errs = nil
	w.notice = notice
}

func validateAudience(d model.CampaignDraft) error {
	if !d.Target.IsValid() {
		return appErrors.NewValidation("target", "choose who should receive the campaign")
	}
	return nil
}

func validateContent(d model.CampaignDraft) error {
	if strings.TrimSpace(d.Message) == "" {
		return appErrors.NewValidation("message", "message cannot be empty")
	}
	if d.Offer != nil {
		if strings.TrimSpace(d.Offer.PlanRef) == "" {
			return appErrors.WrapValidation("offer", appErrors.NewInvalidOffer("plan_ref", "choose the plan to offer"))
		}
		if err := ValidateOffer(d.Offer); err != nil {
			return appErrors.WrapValidation("offer", err)
		}
	}
	return nil
}

// ====================== Review ======================

// Review computes price, expiry and total for the current draft. It loads
// the catalog only when an offer is attached and never changes the draft.
func (w *Wizard) Review(ctx context.Context) (*ReviewSummary, error) {
	w.mu.Lock()
	draft := w.draft.Clone()
	botID := w.botID
	w.mu.Unlock()

	summary := &ReviewSummary{
		Target:   draft.Target,
		Segment:  ResolveAudience(draft.Target),
		Message:  draft.Message,
		MediaURL: draft.MediaURL,
		Total:    BaseMessageCost,
	}
	if draft.Offer == nil {
		return summary, nil
	}

	catalog, err := w.loadCatalog(ctx, botID)
	if err != nil {
		return nil, err
	}
	terms, err := ResolveOffer(draft.Offer, catalog, w.now())
	if err != nil {
		return nil, err
	}
	plan, _ := catalog.Lookup(terms.PlanRef)
	summary.Offer = &OfferReview{
		PlanRef:     terms.PlanRef,
		PlanName:    plan.DisplayName,
		Price:       terms.Price,
		ExpiryLabel: terms.ExpiryLabel,
		ExpiresAt:   terms.ExpiresAt,
	}
	summary.Total = BaseMessageCost.Add(terms.Price)
	return summary, nil
}

func (w *Wizard) loadCatalog(ctx context.Context, botID string) (model.Catalog, error) {
	if w.Catalog == nil {
		return nil, fmt.Errorf("no plan catalog configured")
	}
	plans, err := w.Catalog.ListPlans(ctx, botID)
	if err != nil {
		return nil, fmt.Errorf("load plan catalog: %w", err)
	}
	return model.Catalog(plans), nil
}

// ====================== Submission ======================

// SubmitTest sends the draft to a single recipient. The draft is kept and the
// wizard stays at review.
func (w *Wizard) SubmitTest(ctx context.Context, recipient string) (*model.DispatchResult, error) {
	if strings.TrimSpace(recipient) == "" {
		return nil, appErrors.NewValidation("test_recipient", "a test recipient is required")
	}
	return w.submit(ctx, model.SendTest, strings.TrimSpace(recipient))
}

// SubmitFull sends the draft to the whole audience. On success the wizard
// starts over with an empty draft and history goes back to page 1; on
// failure the draft is kept for a retry.
func (w *Wizard) SubmitFull(ctx context.Context) (*model.DispatchResult, error) {
	return w.submit(ctx, model.SendFull, "")
}

func (w *Wizard) submit(ctx context.Context, mode model.SendMode, recipient string) (*model.DispatchResult, error) {
	w.mu.Lock()
	if w.inFlight {
		w.mu.Unlock()
		return nil, appErrors.ErrSubmissionInFlight
	}
	if w.state != StateReview {
		w.mu.Unlock()
		return nil, appErrors.ErrNotInReview
	}
	if err := validateAudience(w.draft); err != nil {
		w.fail(err)
		w.mu.Unlock()
		return nil, err
	}
	if err := validateContent(w.draft); err != nil {
		w.fail(err)
		w.mu.Unlock()
		return nil, err
	}

	key := uuid.New()
	if mode == model.SendFull {
		if w.draft.SubmissionKey == uuid.Nil {
			w.draft.SubmissionKey = key
		}
		key = w.draft.SubmissionKey
	}
	draft := w.draft.Clone()
	botID := w.botID
	gen := w.generation
	w.inFlight = true
	w.state = StateSubmitting
	w.errs = nil
	w.notice = ""
	w.mu.Unlock()

	logger := log.With().
		Str("bot_id", botID).
		Str("mode", string(mode)).
		Str("submission_key", key.String()).
		Logger()

	result, err := w.dispatch(ctx, key, botID, mode, recipient, draft)

	w.mu.Lock()
	w.inFlight = false
	if gen != w.generation {
		w.mu.Unlock()
		logger.Warn().Err(err).Msg("Wizard moved on while submitting, result dropped")
		return nil, appErrors.ErrSubmissionDiscarded
	}

	if err != nil {
		w.state = StateReview
		var verr *appErrors.ValidationError
		if errors.As(err, &verr) {
			w.fail(err)
			w.mu.Unlock()
			return nil, err
		}
		derr := appErrors.NewDispatch(botID, string(mode), err)
		w.notice = derr.Error()
		w.mu.Unlock()
		logger.Error().Err(err).Msg("Campaign submission failed")
		return nil, derr
	}

	if mode == model.SendTest {
		w.state = StateReview
		w.notice = fmt.Sprintf("Test message sent to %s", recipient)
		w.mu.Unlock()
		logger.Info().Str("recipient", recipient).Msg("Test campaign sent")
		return result, nil
	}

	w.reset(fmt.Sprintf("Campaign sent to %d recipients", result.RecipientCount))
	history := w.History
	w.mu.Unlock()
	logger.Info().Int("recipients", result.RecipientCount).Msg("Campaign sent")

	if history != nil {
		if err := history.ResetToFirstPage(ctx); err != nil {
			logger.Warn().Err(err).Msg("Failed to refresh campaign history after send")
		}
	}
	return result, nil
}

func (w *Wizard) dispatch(ctx context.Context, key uuid.UUID, botID string, mode model.SendMode, recipient string, draft model.CampaignDraft) (*model.DispatchResult, error) {
	if w.Dispatcher == nil {
		return nil, fmt.Errorf("no dispatcher configured")
	}

	now := w.now()
	sub := &model.Submission{
		Key:           key,
		BotID:         botID,
		Mode:          mode,
		TestRecipient: recipient,
		Target:        draft.Target,
		Segment:       ResolveAudience(draft.Target),
		Message:       draft.Message,
		MediaURL:      draft.MediaURL,
		SubmittedAt:   now,
	}

	if draft.Offer != nil {
		catalog, err := w.loadCatalog(ctx, botID)
		if err != nil {
			return nil, err
		}
		terms, err := ResolveOffer(draft.Offer, catalog, now)
		if err != nil {
			return nil, appErrors.WrapValidation("offer", err)
		}
		sub.Offer = terms
	}

	result, err := w.Dispatcher.SubmitCampaign(ctx, sub)
	if err != nil {
		return nil, err
	}
	if result == nil || !result.Accepted {
		return nil, fmt.Errorf("campaign was not accepted")
	}
	return result, nil
}

// ====================== Reuse ======================

// Seed loads a past record into a fresh draft. Only plain content is carried
// over: the offer is always cleared. Edit mode lands on the content step,
// direct mode on review. An unreadable snapshot leaves the wizard untouched.
func (w *Wizard) Seed(record model.CampaignRecord, mode ReuseMode) error {
	var snap model.ContentSnapshot
	if err := json.Unmarshal([]byte(record.ContentSnapshot), &snap); err != nil {
		log.Error().Err(err).Str("campaign_id", record.ID).Msg("Campaign history snapshot is corrupt, reuse aborted")
		return appErrors.NewCorruptSnapshot(record.ID, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.reset("")
	w.draft = model.CampaignDraft{
		Target:   record.Target,
		Message:  snap.Message,
		MediaURL: snap.MediaURL,
	}

	// Both modes skip the audience step, so the recorded target must hold.
	if err := validateAudience(w.draft); err != nil {
		w.fail(err)
		return err
	}
	if mode != ReuseDirect {
		w.state = StateContent
		return nil
	}

	if err := validateContent(w.draft); err != nil {
		w.state = StateContent
		w.fail(err)
		return err
	}
	w.state = StateReview
	return nil
}
