package service

import "github.com/unclebandit/remarketing-console/internal/model"

// segments maps every audience category to the selector the dispatch backend
// understands. Adding a category means adding it here and to model.Target.
var segments = map[model.Target]string{
	model.TargetAll:     "all_contacts",
	model.TargetPending: "pending_payment",
	model.TargetPaying:  "active_subscribers",
	model.TargetExpired: "expired_subscribers",
}

// ResolveAudience returns the segment selector for t. An unset or unknown
// target yields "", which callers treat as an incomplete draft.
func ResolveAudience(t model.Target) string {
	return segments[t]
}

// Targets lists the selectable categories in display order.
func Targets() []model.Target {
	return []model.Target{model.TargetAll, model.TargetPending, model.TargetPaying, model.TargetExpired}
}
