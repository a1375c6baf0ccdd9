// internal/controller/campaign_controller.go
package controller

import (
    "net/http"
    "strconv"

    "github.com/go-chi/chi/v5"
    "github.com/google/uuid"

    "github.com/unclebandit/remarketing-console/internal/pkg/response"
    "github.com/unclebandit/remarketing-console/internal/pkg/validator"
    "github.com/unclebandit/remarketing-console/internal/service"
)

// HistoryController serves console sessions and their campaign history.
type HistoryController struct {
    Consoles *service.ConsoleRegistry
}

type openConsoleRequest struct {
    BotID string `json:"bot_id" validate:"required"`
}

type reuseRequest struct {
    Mode string `json:"mode" validate:"required,reuse_mode"`
}

func (c *HistoryController) console(w http.ResponseWriter, r *http.Request) (*service.Console, bool) {
    id, err := uuid.Parse(chi.URLParam(r, "id"))
    if err != nil {
        response.BadRequest(w, "invalid console id")
        return nil, false
    }
    console, ok := c.Consoles.Get(id)
    if !ok {
        response.NotFound(w, "console not found")
        return nil, false
    }
    return console, true
}

func consoleView(console *service.Console) map[string]interface{} {
    return map[string]interface{}{
        "id":      console.ID,
        "wizard":  console.Wizard.View(),
        "history": console.History.View(),
    }
}

// OpenConsole starts a session for a bot. History that fails to load shows
// up as an empty page with a notice.
func (c *HistoryController) OpenConsole(w http.ResponseWriter, r *http.Request) {
    var body openConsoleRequest
    if err := response.DecodeJSON(r.Body, &body); err != nil {
        response.BadRequest(w, "invalid body")
        return
    }
    if errs := validator.Validate(body); errs != nil {
        response.ValidationError(w, errs)
        return
    }

    console := c.Consoles.Open(r.Context(), body.BotID)
    response.Created(w, consoleView(console))
}

func (c *HistoryController) CloseConsole(w http.ResponseWriter, r *http.Request) {
    console, ok := c.console(w, r)
    if !ok {
        return
    }
    c.Consoles.Close(console.ID)
    w.WriteHeader(http.StatusNoContent)
}

// SelectBot discards the draft and reloads history for the new bot.
func (c *HistoryController) SelectBot(w http.ResponseWriter, r *http.Request) {
    console, ok := c.console(w, r)
    if !ok {
        return
    }
    var body openConsoleRequest
    if err := response.DecodeJSON(r.Body, &body); err != nil {
        response.BadRequest(w, "invalid body")
        return
    }
    if errs := validator.Validate(body); errs != nil {
        response.ValidationError(w, errs)
        return
    }

    if err := console.SelectBot(r.Context(), body.BotID); err != nil {
        response.FromError(w, err)
        return
    }
    response.OK(w, consoleView(console))
}

func (c *HistoryController) Targets(w http.ResponseWriter, r *http.Request) {
    response.OK(w, c.Consoles.Targets())
}

func (c *HistoryController) GetHistory(w http.ResponseWriter, r *http.Request) {
    console, ok := c.console(w, r)
    if !ok {
        return
    }
    response.OK(w, console.History.View())
}

// GoToPage handles page/prev/next. Paging past either end is a no-op.
func (c *HistoryController) GoToPage(w http.ResponseWriter, r *http.Request) {
    console, ok := c.console(w, r)
    if !ok {
        return
    }

    var err error
    switch p := chi.URLParam(r, "ref"); p {
    case "next":
        err = console.History.NextPage(r.Context())
    case "prev":
        err = console.History.PrevPage(r.Context())
    default:
        page, convErr := strconv.Atoi(p)
        if convErr != nil || page < 1 {
            response.BadRequest(w, "invalid page")
            return
        }
        err = console.History.GoToPage(r.Context(), page)
    }
    if err != nil {
        response.FromError(w, err)
        return
    }
    response.OK(w, console.History.View())
}

func (c *HistoryController) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
    console, ok := c.console(w, r)
    if !ok {
        return
    }
    if err := console.History.Delete(r.Context(), chi.URLParam(r, "ref")); err != nil {
        response.FromError(w, err)
        return
    }
    response.OK(w, console.History.View())
}

// ReuseCampaign seeds the wizard from a record on the displayed page.
func (c *HistoryController) ReuseCampaign(w http.ResponseWriter, r *http.Request) {
    console, ok := c.console(w, r)
    if !ok {
        return
    }
    var body reuseRequest
    if err := response.DecodeJSON(r.Body, &body); err != nil {
        response.BadRequest(w, "invalid body")
        return
    }
    if errs := validator.Validate(body); errs != nil {
        response.ValidationError(w, errs)
        return
    }

    // A direct reuse that stops short of review still seeds the draft; the
    // 422 tells the operator which step needs attention.
    if err := console.Reuse(chi.URLParam(r, "ref"), service.ReuseMode(body.Mode)); err != nil {
        response.FromError(w, err)
        return
    }
    response.OK(w, console.Wizard.View())
}
