package service

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	appErrors "github.com/unclebandit/remarketing-console/internal/errors"
	"github.com/unclebandit/remarketing-console/internal/model"
)

// HistoryManager is a paginated, non-authoritative view over the campaigns a
// bot has sent. Page fetches may overlap; only the most recently requested
// one is allowed to update the view.
type HistoryManager struct {
	Store HistoryStore

	mu      sync.Mutex
	botID   string
	window  model.PageWindow
	items   []model.CampaignRecord
	seq     uint64
	loading bool
	notice  string
}

// HistoryView is what the console renders.
type HistoryView struct {
	BotID   string                 `json:"bot_id"`
	Items   []model.CampaignRecord `json:"items"`
	Window  model.PageWindow       `json:"pagination"`
	Loading bool                   `json:"loading"`
	Notice  string                 `json:"notice,omitempty"`
}

func NewHistoryManager(store HistoryStore, botID string) *HistoryManager {
	return &HistoryManager{
		Store:  store,
		botID:  botID,
		window: model.PageWindow{PageNumber: 1, PageSize: model.DefaultPageSize},
	}
}

func (h *HistoryManager) View() HistoryView {
	h.mu.Lock()
	defer h.mu.Unlock()

	items := make([]model.CampaignRecord, len(h.items))
	copy(items, h.items)
	return HistoryView{
		BotID:   h.botID,
		Items:   items,
		Window:  h.window,
		Loading: h.loading,
		Notice:  h.notice,
	}
}

// ListPage fetches one page straight from the store. It fails soft: on error
// the returned page is empty and the error is a HistoryFetchError.
func (h *HistoryManager) ListPage(ctx context.Context, botID string, page, pageSize int) (*model.CampaignPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = model.DefaultPageSize
	}

	result, err := h.Store.ListCampaigns(ctx, botID, page, pageSize)
	if err != nil {
		log.Error().Err(err).Str("bot_id", botID).Int("page", page).Msg("Failed to fetch campaign history")
		return &model.CampaignPage{Items: []model.CampaignRecord{}}, appErrors.NewHistoryFetch(botID, page, err)
	}
	if result == nil {
		result = &model.CampaignPage{}
	}
	if result.Items == nil {
		result.Items = []model.CampaignRecord{}
	}
	if result.TotalPages == 0 && result.Total > 0 {
		result.TotalPages = model.TotalPagesFor(result.Total, pageSize)
	}
	return result, nil
}

// GoToPage loads page into the view. A response that arrives after a newer
// request was issued is dropped. If the store reports fewer pages than
// requested the view is clamped to the last page.
func (h *HistoryManager) GoToPage(ctx context.Context, page int) error {
	if page < 1 {
		page = 1
	}

	h.mu.Lock()
	h.seq++
	seq := h.seq
	botID := h.botID
	pageSize := h.window.PageSize
	h.loading = true
	h.mu.Unlock()

	result, err := h.ListPage(ctx, botID, page, pageSize)

	h.mu.Lock()
	if seq != h.seq {
		h.mu.Unlock()
		log.Debug().Str("bot_id", botID).Int("page", page).Msg("Dropping stale campaign history response")
		return nil
	}
	h.loading = false

	if err != nil {
		// Pagination is not advanced; the empty list doubles as a retry prompt.
		h.items = result.Items
		h.notice = err.Error()
		h.mu.Unlock()
		return err
	}

	h.items = result.Items
	h.notice = ""
	h.window.TotalCount = result.Total
	h.window.TotalPages = result.TotalPages
	h.window.PageNumber = page
	last := h.window.LastPage()
	h.mu.Unlock()

	if page > last {
		return h.GoToPage(ctx, last)
	}
	return nil
}

// Refresh reloads the current page.
func (h *HistoryManager) Refresh(ctx context.Context) error {
	h.mu.Lock()
	page := h.window.PageNumber
	h.mu.Unlock()
	return h.GoToPage(ctx, page)
}

// NextPage is a no-op on the last page.
func (h *HistoryManager) NextPage(ctx context.Context) error {
	h.mu.Lock()
	page := h.window.PageNumber
	last := h.window.LastPage()
	h.mu.Unlock()

	if page >= last {
		return nil
	}
	return h.GoToPage(ctx, page+1)
}

// PrevPage is a no-op on the first page.
func (h *HistoryManager) PrevPage(ctx context.Context) error {
	h.mu.Lock()
	page := h.window.PageNumber
	h.mu.Unlock()

	if page <= 1 {
		return nil
	}
	return h.GoToPage(ctx, page-1)
}

// ResetToFirstPage is called after a new campaign was sent.
func (h *HistoryManager) ResetToFirstPage(ctx context.Context) error {
	return h.GoToPage(ctx, 1)
}

// SelectBot switches the view to another bot, starting at page 1.
func (h *HistoryManager) SelectBot(ctx context.Context, botID string) error {
	h.mu.Lock()
	h.seq++ // responses for the previous bot are stale from here on
	h.botID = botID
	h.items = nil
	h.window = model.PageWindow{PageNumber: 1, PageSize: h.window.PageSize}
	h.mu.Unlock()
	return h.GoToPage(ctx, 1)
}

// Delete removes a record and reloads the current page so counts stay
// authoritative.
func (h *HistoryManager) Delete(ctx context.Context, id string) error {
	if err := h.Store.DeleteCampaign(ctx, id); err != nil {
		log.Error().Err(err).Str("campaign_id", id).Msg("Failed to delete campaign")
		h.mu.Lock()
		h.notice = err.Error()
		h.mu.Unlock()
		return err
	}
	log.Info().Str("campaign_id", id).Msg("Campaign deleted")
	return h.Refresh(ctx)
}

// Find returns a record from the currently displayed page.
func (h *HistoryManager) Find(id string) (model.CampaignRecord, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, r := range h.items {
		if r.ID == id {
			return r, true
		}
	}
	return model.CampaignRecord{}, false
}
