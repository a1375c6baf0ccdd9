package service

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	appErrors "github.com/unclebandit/remarketing-console/internal/errors"
	"github.com/unclebandit/remarketing-console/internal/model"
	"github.com/unclebandit/remarketing-console/internal/pkg/validator"
)

// NeverExpires is the expiry label of an offer without a deadline.
const NeverExpires = "never"

// BaseMessageCost is what the plain broadcast costs. Only the upsell is priced.
var BaseMessageCost = decimal.Zero

// ComputePrice returns the effective price of the offer.
func ComputePrice(spec *model.OfferSpec, catalog model.Catalog) (decimal.Decimal, error) {
	if spec == nil {
		return decimal.Zero, appErrors.NewInvalidOffer("offer", "no offer selected")
	}

	switch spec.PriceMode {
	case model.PriceCustom:
		if !spec.CustomPrice.IsPositive() {
			return decimal.Zero, appErrors.NewInvalidOffer("custom_price", "must be greater than 0")
		}
		return spec.CustomPrice, nil
	case model.PriceOriginal:
		plan, ok := catalog.Lookup(spec.PlanRef)
		if !ok {
			return decimal.Zero, appErrors.NewInvalidOffer("plan_ref", fmt.Sprintf("plan %q is not in the catalog", spec.PlanRef))
		}
		return plan.CurrentPrice, nil
	}
	return decimal.Zero, appErrors.NewInvalidOffer("price_mode", fmt.Sprintf("unknown price mode %q", spec.PriceMode))
}

// ComputeExpiryLabel returns a human readable validity period such as
// "3 days", or "never".
func ComputeExpiryLabel(spec *model.OfferSpec, now time.Time) (string, error) {
	if err := checkExpiration(spec); err != nil {
		return "", err
	}
	if spec.ExpirationMode == model.ExpireNever {
		return NeverExpires, nil
	}

	unit := map[model.ExpirationMode]string{
		model.ExpireMinutes: "minute",
		model.ExpireHours:   "hour",
		model.ExpireDays:    "day",
	}[spec.ExpirationMode]
	if spec.ExpirationValue != 1 {
		unit += "s"
	}
	return fmt.Sprintf("%d %s", spec.ExpirationValue, unit), nil
}

// ComputeExpiresAt returns the moment the offer stops being valid, or nil
// when it never expires.
func ComputeExpiresAt(spec *model.OfferSpec, now time.Time) (*time.Time, error) {
	if err := checkExpiration(spec); err != nil {
		return nil, err
	}
	if spec.ExpirationMode == model.ExpireNever {
		return nil, nil
	}
	at := now.Add(time.Duration(spec.ExpirationValue) * spec.ExpirationMode.Unit())
	return &at, nil
}

// MaxExpirationValue is the largest validity period expressible in mode.
func MaxExpirationValue(mode model.ExpirationMode) int64 {
	unit := mode.Unit()
	if unit <= 0 {
		return 0
	}
	return math.MaxInt64 / int64(unit)
}

func checkExpiration(spec *model.OfferSpec) error {
	if spec == nil {
		return appErrors.NewInvalidOffer("offer", "no offer selected")
	}
	switch spec.ExpirationMode {
	case model.ExpireNever:
		return nil
	case model.ExpireMinutes, model.ExpireHours, model.ExpireDays:
		if spec.ExpirationValue <= 0 {
			return appErrors.NewInvalidOffer("expiration_value", "must be a positive number")
		}
		if limit := MaxExpirationValue(spec.ExpirationMode); int64(spec.ExpirationValue) > limit {
			return appErrors.NewInvalidOffer("expiration_value", fmt.Sprintf("must be at most %d %s", limit, spec.ExpirationMode))
		}
		return nil
	}
	return appErrors.NewInvalidOffer("expiration_mode", fmt.Sprintf("unknown expiration mode %q", spec.ExpirationMode))
}

// ValidateOffer checks everything that can be decided without the catalog.
func ValidateOffer(spec *model.OfferSpec) error {
	if spec == nil {
		return nil
	}
	if errs := validator.Validate(spec); errs != nil {
		for _, field := range []string{"plan_ref", "price_mode", "expiration_mode"} {
			if msg, ok := errs[field]; ok {
				return appErrors.NewInvalidOffer(field, msg)
			}
		}
	}
	if spec.PriceMode == model.PriceCustom && !spec.CustomPrice.IsPositive() {
		return appErrors.NewInvalidOffer("custom_price", "must be greater than 0")
	}
	return checkExpiration(spec)
}

// TotalValue is the amount shown at review: base message cost plus the offer
// price when an offer is attached.
func TotalValue(spec *model.OfferSpec, catalog model.Catalog) (decimal.Decimal, error) {
	if spec == nil {
		return BaseMessageCost, nil
	}
	price, err := ComputePrice(spec, catalog)
	if err != nil {
		return decimal.Zero, err
	}
	return BaseMessageCost.Add(price), nil
}

// ResolveOffer computes the terms sent with a submission.
func ResolveOffer(spec *model.OfferSpec, catalog model.Catalog, now time.Time) (*model.OfferTerms, error) {
	if spec == nil {
		return nil, nil
	}
	price, err := ComputePrice(spec, catalog)
	if err != nil {
		return nil, err
	}
	label, err := ComputeExpiryLabel(spec, now)
	if err != nil {
		return nil, err
	}
	expiresAt, err := ComputeExpiresAt(spec, now)
	if err != nil {
		return nil, err
	}
	return &model.OfferTerms{
		PlanRef:     spec.PlanRef,
		Price:       price,
		ExpiresAt:   expiresAt,
		ExpiryLabel: label,
	}, nil
}
