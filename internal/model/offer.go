package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PriceMode string

const (
	PriceOriginal PriceMode = "original"
	PriceCustom   PriceMode = "custom"
)

type ExpirationMode string

const (
	ExpireNever   ExpirationMode = "none"
	ExpireMinutes ExpirationMode = "minutes"
	ExpireHours   ExpirationMode = "hours"
	ExpireDays    ExpirationMode = "days"
)

// Unit returns the duration of one expiration step, or 0 for ExpireNever and
// unknown modes.
func (m ExpirationMode) Unit() time.Duration {
	switch m {
	case ExpireMinutes:
		return time.Minute
	case ExpireHours:
		return time.Hour
	case ExpireDays:
		return 24 * time.Hour
	}
	return 0
}

// OfferSpec is the optional upsell attached to a draft.
type OfferSpec struct {
	PlanRef         string          `json:"plan_ref" validate:"required"`
	PriceMode       PriceMode       `json:"price_mode" validate:"price_mode"`
	CustomPrice     decimal.Decimal `json:"custom_price"`
	ExpirationMode  ExpirationMode  `json:"expiration_mode" validate:"expiration_mode"`
	ExpirationValue int             `json:"expiration_value"`
}

// Plan is one entry of the plan catalog snapshot.
type Plan struct {
	ID           string          `db:"id" json:"id"`
	DisplayName  string          `db:"display_name" json:"display_name"`
	CurrentPrice decimal.Decimal `db:"current_price" json:"current_price"`
}

// Catalog is a read-only snapshot of a bot's plans.
type Catalog []Plan

// Lookup finds a plan by id.
func (c Catalog) Lookup(id string) (Plan, bool) {
	for _, p := range c {
		if p.ID == id {
			return p, true
		}
	}
	return Plan{}, false
}
