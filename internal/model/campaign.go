// internal/model/campaign.go
package model

import (
	"github.com/google/uuid"
)

// Target is the audience category a campaign is sent to.
type Target string

const (
	TargetAll     Target = "all"
	TargetPending Target = "pending"
	TargetPaying  Target = "paying"
	TargetExpired Target = "expired"
)

// IsValid reports whether t is one of the four known categories. The empty
// Target means "not chosen yet".
func (t Target) IsValid() bool {
	switch t {
	case TargetAll, TargetPending, TargetPaying, TargetExpired:
		return true
	}
	return false
}

// CampaignDraft is the in-progress campaign owned by a single wizard.
type CampaignDraft struct {
	Target   Target     `json:"target"`
	Message  string     `json:"message"`
	MediaURL string     `json:"media_url,omitempty"`
	Offer    *OfferSpec `json:"offer,omitempty"`

	// SubmissionKey is minted on the first submit attempt and reused on
	// retries so the backend can drop duplicates.
	SubmissionKey uuid.UUID `json:"submission_key,omitempty"`
}

// Clone returns a deep copy so callers can render the draft without sharing
// the wizard's offer pointer.
func (d CampaignDraft) Clone() CampaignDraft {
	if d.Offer != nil {
		o := *d.Offer
		d.Offer = &o
	}
	return d
}

// IsEmpty reports whether nothing has been entered yet.
func (d CampaignDraft) IsEmpty() bool {
	return d.Target == "" && d.Message == "" && d.MediaURL == "" && d.Offer == nil
}

// CampaignRecord is a previously submitted campaign as reported by the
// history store. Records are never edited; reuse creates a new submission.
type CampaignRecord struct {
	ID              string `db:"id" json:"id"`
	BotID           string `db:"bot_id" json:"bot_id"`
	CreatedAt       string `db:"created_at" json:"created_at"`
	Target          Target `db:"target" json:"target"`
	RecipientCount  int    `db:"recipient_count" json:"recipient_count"`
	BlockedCount    int    `db:"blocked_count" json:"blocked_count"`
	ContentSnapshot string `db:"content_snapshot" json:"content_snapshot"`
}

// ContentSnapshot is the JSON document stored in CampaignRecord.ContentSnapshot.
type ContentSnapshot struct {
	Message  string `json:"message"`
	MediaURL string `json:"media_url,omitempty"`
	HasOffer bool   `json:"has_offer"`
}

// CampaignPage is one page of history as returned by the history store.
type CampaignPage struct {
	Items      []CampaignRecord `json:"items"`
	Total      int              `json:"total"`
	TotalPages int              `json:"total_pages"`
}

// DefaultPageSize is the fixed history page size.
const DefaultPageSize = 10

// PageWindow is the pagination state of a history view.
type PageWindow struct {
	PageNumber int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}

// LastPage is the highest valid page number, never below 1.
func (w PageWindow) LastPage() int {
	if w.TotalPages < 1 {
		return 1
	}
	return w.TotalPages
}

// TotalPagesFor returns ceil(total/pageSize).
func TotalPagesFor(total, pageSize int) int {
	if pageSize < 1 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}
