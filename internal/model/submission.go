package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SendMode distinguishes a single-recipient test from a full broadcast.
type SendMode string

const (
	SendTest SendMode = "test"
	SendFull SendMode = "full"
)

// OfferTerms is the resolved offer sent with a submission.
type OfferTerms struct {
	PlanRef     string          `json:"plan_ref"`
	Price       decimal.Decimal `json:"price"`
	ExpiresAt   *time.Time      `json:"expires_at,omitempty"`
	ExpiryLabel string          `json:"expiry_label"`
}

// Submission is the payload handed to the campaign dispatch collaborator.
type Submission struct {
	Key           uuid.UUID   `json:"key"`
	BotID         string      `json:"bot_id"`
	Mode          SendMode    `json:"mode"`
	TestRecipient string      `json:"test_recipient,omitempty"`
	Target        Target      `json:"target"`
	Segment       string      `json:"segment"`
	Message       string      `json:"message"`
	MediaURL      string      `json:"media_url,omitempty"`
	Offer         *OfferTerms `json:"offer,omitempty"`
	SubmittedAt   time.Time   `json:"submitted_at"`
}

// Snapshot builds the content document stored with the resulting record.
func (s *Submission) Snapshot() ContentSnapshot {
	return ContentSnapshot{
		Message:  s.Message,
		MediaURL: s.MediaURL,
		HasOffer: s.Offer != nil,
	}
}

// DispatchResult is the collaborator's answer to a submission.
type DispatchResult struct {
	Accepted       bool `json:"accepted"`
	RecipientCount int  `json:"recipient_count"`
}
