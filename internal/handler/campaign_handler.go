// internal/handler/campaign_handler.go
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/unclebandit/remarketing-console/internal/model"
	"github.com/unclebandit/remarketing-console/internal/pkg/response"
	"github.com/unclebandit/remarketing-console/internal/pkg/validator"
	"github.com/unclebandit/remarketing-console/internal/service"
)

// WizardHandler serves the campaign wizard of an open console.
type WizardHandler struct {
	Consoles *service.ConsoleRegistry
}

func NewWizardHandler(consoles *service.ConsoleRegistry) *WizardHandler {
	return &WizardHandler{Consoles: consoles}
}

type audienceRequest struct {
	Target string `json:"target" validate:"required,target"`
}

type contentRequest struct {
	Message  string `json:"message" validate:"max=4096"`
	MediaURL string `json:"media_url" validate:"omitempty,url"`
}

type offerRequest struct {
	PlanRef         string          `json:"plan_ref"`
	PriceMode       string          `json:"price_mode" validate:"price_mode"`
	CustomPrice     decimal.Decimal `json:"custom_price"`
	ExpirationMode  string          `json:"expiration_mode" validate:"expiration_mode"`
	ExpirationValue int             `json:"expiration_value"`
}

type jumpRequest struct {
	State string `json:"state" validate:"required,oneof=audience content review"`
}

type submitRequest struct {
	Mode          string `json:"mode" validate:"required,send_mode"`
	TestRecipient string `json:"test_recipient" validate:"required_if=Mode test"`
}

func (h *WizardHandler) wizard(w http.ResponseWriter, r *http.Request) (*service.Wizard, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid console id")
		return nil, false
	}
	console, ok := h.Consoles.Get(id)
	if !ok {
		response.NotFound(w, "console not found")
		return nil, false
	}
	return console.Wizard, true
}

// decode reads and validates a request body; it writes the error response
// itself and reports whether the handler may continue.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := response.DecodeJSON(r.Body, v); err != nil {
		response.BadRequest(w, "invalid request body: "+err.Error())
		return false
	}
	if errs := validator.Validate(v); errs != nil {
		response.ValidationError(w, errs)
		return false
	}
	return true
}

// GetWizardHandler returns the current step and draft.
func (h *WizardHandler) GetWizardHandler(w http.ResponseWriter, r *http.Request) {
	wiz, ok := h.wizard(w, r)
	if !ok {
		return
	}
	response.OK(w, wiz.View())
}

func (h *WizardHandler) SetAudienceHandler(w http.ResponseWriter, r *http.Request) {
	wiz, ok := h.wizard(w, r)
	if !ok {
		return
	}
	var req audienceRequest
	if !decode(w, r, &req) {
		return
	}
	if err := wiz.SetTarget(model.Target(req.Target)); err != nil {
		response.FromError(w, err)
		return
	}
	response.OK(w, wiz.View())
}

func (h *WizardHandler) SetContentHandler(w http.ResponseWriter, r *http.Request) {
	wiz, ok := h.wizard(w, r)
	if !ok {
		return
	}
	var req contentRequest
	if !decode(w, r, &req) {
		return
	}
	if err := wiz.SetContent(req.Message, req.MediaURL); err != nil {
		response.FromError(w, err)
		return
	}
	response.OK(w, wiz.View())
}

func (h *WizardHandler) SetOfferHandler(w http.ResponseWriter, r *http.Request) {
	wiz, ok := h.wizard(w, r)
	if !ok {
		return
	}
	var req offerRequest
	if !decode(w, r, &req) {
		return
	}
	spec := &model.OfferSpec{
		PlanRef:         req.PlanRef,
		PriceMode:       model.PriceMode(req.PriceMode),
		CustomPrice:     req.CustomPrice,
		ExpirationMode:  model.ExpirationMode(req.ExpirationMode),
		ExpirationValue: req.ExpirationValue,
	}
	if err := wiz.SetOffer(spec); err != nil {
		response.FromError(w, err)
		return
	}
	response.OK(w, wiz.View())
}

func (h *WizardHandler) RemoveOfferHandler(w http.ResponseWriter, r *http.Request) {
	wiz, ok := h.wizard(w, r)
	if !ok {
		return
	}
	if err := wiz.SetOffer(nil); err != nil {
		response.FromError(w, err)
		return
	}
	response.OK(w, wiz.View())
}

func (h *WizardHandler) NextHandler(w http.ResponseWriter, r *http.Request) {
	wiz, ok := h.wizard(w, r)
	if !ok {
		return
	}
	if err := wiz.Next(); err != nil {
		response.FromError(w, err)
		return
	}
	response.OK(w, wiz.View())
}

func (h *WizardHandler) BackHandler(w http.ResponseWriter, r *http.Request) {
	wiz, ok := h.wizard(w, r)
	if !ok {
		return
	}
	if err := wiz.Back(); err != nil {
		response.FromError(w, err)
		return
	}
	response.OK(w, wiz.View())
}

func (h *WizardHandler) JumpHandler(w http.ResponseWriter, r *http.Request) {
	wiz, ok := h.wizard(w, r)
	if !ok {
		return
	}
	var req jumpRequest
	if !decode(w, r, &req) {
		return
	}
	if err := wiz.JumpTo(service.WizardState(req.State)); err != nil {
		response.FromError(w, err)
		return
	}
	response.OK(w, wiz.View())
}

// ReviewHandler returns the computed price, expiry and total of the draft.
func (h *WizardHandler) ReviewHandler(w http.ResponseWriter, r *http.Request) {
	wiz, ok := h.wizard(w, r)
	if !ok {
		return
	}
	summary, err := wiz.Review(r.Context())
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.OK(w, summary)
}

func (h *WizardHandler) SubmitHandler(w http.ResponseWriter, r *http.Request) {
	wiz, ok := h.wizard(w, r)
	if !ok {
		return
	}
	var req submitRequest
	if !decode(w, r, &req) {
		return
	}

	var (
		result *model.DispatchResult
		err    error
	)
	if model.SendMode(req.Mode) == model.SendTest {
		result, err = wiz.SubmitTest(r.Context(), req.TestRecipient)
	} else {
		result, err = wiz.SubmitFull(r.Context())
	}
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.OK(w, map[string]interface{}{
		"result": result,
		"wizard": wiz.View(),
	})
}

// DiscardHandler throws the draft away and returns to the audience step.
func (h *WizardHandler) DiscardHandler(w http.ResponseWriter, r *http.Request) {
	wiz, ok := h.wizard(w, r)
	if !ok {
		return
	}
	wiz.Discard()
	response.OK(w, wiz.View())
}
