package appErrors

import (
	"errors"
	"fmt"
)

// ErrCampaignNotFound is returned when a history record does not exist.
type ErrCampaignNotFound struct {
	CampaignID string
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign with ID %s not found", e.CampaignID)
}

// Helper constructor
func NewCampaignNotFound(id string) error {
	return &ErrCampaignNotFound{CampaignID: id}
}

var (
	ErrSubmissionInFlight = errors.New("a submission is already in flight")
	ErrNotInReview        = errors.New("campaign can only be submitted from the review step")

	// ErrSubmissionDiscarded is returned when the wizard moved on to another
	// draft while the submission was in flight; its result was not applied.
	ErrSubmissionDiscarded = errors.New("submission result discarded: wizard moved on")
)

// ValidationError blocks a wizard transition. It is decided locally, before
// any network call, and leaves the draft untouched.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func NewValidation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// WrapValidation turns a lower level error (usually an InvalidOfferError)
// into a ValidationError for the screen that triggered it.
func WrapValidation(field string, err error) error {
	return &ValidationError{Field: field, Message: err.Error(), Err: err}
}

// InvalidOfferError is raised by the offer composer.
type InvalidOfferError struct {
	Field  string
	Reason string
}

func (e *InvalidOfferError) Error() string {
	return fmt.Sprintf("invalid offer %s: %s", e.Field, e.Reason)
}

func NewInvalidOffer(field, reason string) error {
	return &InvalidOfferError{Field: field, Reason: reason}
}

// DispatchError covers a rejected submission and transport failures.
type DispatchError struct {
	BotID string
	Mode  string
	Err   error
}

func (e *DispatchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s send for bot %s was rejected", e.Mode, e.BotID)
	}
	return fmt.Sprintf("%s send for bot %s failed: %v", e.Mode, e.BotID, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

func NewDispatch(botID, mode string, err error) error {
	return &DispatchError{BotID: botID, Mode: mode, Err: err}
}

// HistoryFetchError is reported when a history page cannot be loaded.
type HistoryFetchError struct {
	BotID string
	Page  int
	Err   error
}

func (e *HistoryFetchError) Error() string {
	return fmt.Sprintf("failed to load campaign history page %d for bot %s: %v", e.Page, e.BotID, e.Err)
}

func (e *HistoryFetchError) Unwrap() error { return e.Err }

func NewHistoryFetch(botID string, page int, err error) error {
	return &HistoryFetchError{BotID: botID, Page: page, Err: err}
}

// CorruptSnapshotError means a stored record's content could not be parsed.
type CorruptSnapshotError struct {
	RecordID string
	Err      error
}

func (e *CorruptSnapshotError) Error() string {
	return fmt.Sprintf("campaign %s has an unreadable content snapshot: %v", e.RecordID, e.Err)
}

func (e *CorruptSnapshotError) Unwrap() error { return e.Err }

func NewCorruptSnapshot(recordID string, err error) error {
	return &CorruptSnapshotError{RecordID: recordID, Err: err}
}
