package response

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	appErrors "github.com/unclebandit/remarketing-console/internal/errors"
)

// DecodeJSON decodes JSON from request body into the provided struct
func DecodeJSON(body io.ReadCloser, v interface{}) error {
	defer body.Close()
	return json.NewDecoder(body).Decode(v)
}

// Response represents a standard API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo represents error details
type ErrorInfo struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// JSON sends a JSON response
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	json.NewEncoder(w).Encode(Response{
		Success: status >= 200 && status < 300,
		Data:    data,
	})
}

func OK(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, data)
}

func Created(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusCreated, data)
}

// ErrorWithDetails sends an error response with details
func ErrorWithDetails(w http.ResponseWriter, status int, code, message string, details map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	json.NewEncoder(w).Encode(Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

func Error(w http.ResponseWriter, status int, code, message string) {
	ErrorWithDetails(w, status, code, message, nil)
}

func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, "BAD_REQUEST", message)
}

func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, "NOT_FOUND", message)
}

// ValidationError sends a 422 Unprocessable Entity response
func ValidationError(w http.ResponseWriter, details map[string]string) {
	ErrorWithDetails(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Validation failed", details)
}

func InternalError(w http.ResponseWriter) {
	Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred")
}

// FromError maps a console error to its HTTP status.
func FromError(w http.ResponseWriter, err error) {
	var (
		validation *appErrors.ValidationError
		offer      *appErrors.InvalidOfferError
		notFound   *appErrors.ErrCampaignNotFound
		dispatch   *appErrors.DispatchError
		history    *appErrors.HistoryFetchError
		corrupt    *appErrors.CorruptSnapshotError
	)

	switch {
	case errors.As(err, &validation):
		ValidationError(w, map[string]string{validation.Field: validation.Message})
	case errors.As(err, &offer):
		ValidationError(w, map[string]string{offer.Field: offer.Reason})
	case errors.As(err, &corrupt):
		Error(w, http.StatusUnprocessableEntity, "CORRUPT_SNAPSHOT", err.Error())
	case errors.As(err, &notFound):
		NotFound(w, err.Error())
	case errors.Is(err, appErrors.ErrSubmissionInFlight),
		errors.Is(err, appErrors.ErrSubmissionDiscarded):
		Error(w, http.StatusConflict, "CONFLICT", err.Error())
	case errors.Is(err, appErrors.ErrNotInReview):
		Error(w, http.StatusConflict, "NOT_IN_REVIEW", err.Error())
	case errors.As(err, &dispatch):
		Error(w, http.StatusBadGateway, "DISPATCH_FAILED", err.Error())
	case errors.As(err, &history):
		Error(w, http.StatusBadGateway, "HISTORY_UNAVAILABLE", err.Error())
	default:
		log.Error().Err(err).Msg("Unhandled console error")
		InternalError(w)
	}
}
