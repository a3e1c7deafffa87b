package helpers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"consultations/internal/domain"
)

// Error codes for API error responses. Use these with WriteJSONError.
const (
	ErrCodeBadRequest           = "bad_request"
	ErrCodeValidationFailed     = "validation_failed"
	ErrCodeInvalidRange         = "invalid_range"
	ErrCodeUnauthorized         = "unauthorized"
	ErrCodePermissionDenied     = "permission_denied"
	ErrCodeNotFound             = "not_found"
	ErrCodeSlotInactive         = "slot_inactive"
	ErrCodeSlotFull             = "slot_full"
	ErrCodePastSlot             = "past_slot"
	ErrCodeDuplicateReservation = "duplicate_reservation"
	ErrCodeInvalidTransition    = "invalid_transition"
	ErrCodeCapacityExceeded     = "capacity_exceeded"
	ErrCodeTooLateToCancel      = "too_late_to_cancel"
	ErrCodeMeetingNotYetOver    = "meeting_not_yet_over"
	ErrCodeRateLimited          = "rate_limited"
	ErrCodeInternalError        = "internal_error"
)

// APIError is the error object in the standardized API response envelope.
// swagger:model APIError
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIResponse is the standardized envelope for all API responses.
// On success: Data is set, Error is nil. On error: Data is nil, Error is set.
// swagger:model APIResponse
type APIResponse struct {
	Data  any       `json:"data"`
	Error *APIError `json:"error"`
}

// WriteJSONSuccess sets Content-Type to application/json, writes statusCode, and
// encodes an APIResponse with the given data and error set to nil.
func WriteJSONSuccess(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(APIResponse{Data: data, Error: nil})
}

// WriteJSONError sets Content-Type to application/json, writes statusCode, and
// encodes an APIResponse with data nil and the given error code and message.
func WriteJSONError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(APIResponse{
		Data:  nil,
		Error: &APIError{Code: code, Message: message},
	})
}

type errorMapping struct {
	err    error
	status int
	code   string
}

// domainErrors is checked in order; the first match wins.
var domainErrors = []errorMapping{
	{domain.ErrInvalidRange, http.StatusBadRequest, ErrCodeInvalidRange},
	{domain.ErrValidation, http.StatusBadRequest, ErrCodeValidationFailed},
	{domain.ErrPermissionDenied, http.StatusForbidden, ErrCodePermissionDenied},
	{domain.ErrNotFound, http.StatusNotFound, ErrCodeNotFound},
	{domain.ErrSlotInactive, http.StatusConflict, ErrCodeSlotInactive},
	{domain.ErrSlotFull, http.StatusConflict, ErrCodeSlotFull},
	{domain.ErrPastSlot, http.StatusConflict, ErrCodePastSlot},
	{domain.ErrDuplicateReservation, http.StatusConflict, ErrCodeDuplicateReservation},
	{domain.ErrInvalidTransition, http.StatusConflict, ErrCodeInvalidTransition},
	{domain.ErrCapacityExceeded, http.StatusConflict, ErrCodeCapacityExceeded},
	{domain.ErrTooLateToCancel, http.StatusConflict, ErrCodeTooLateToCancel},
	{domain.ErrMeetingNotYetOver, http.StatusConflict, ErrCodeMeetingNotYetOver},
}

// StatusForError returns the HTTP status and error code for err. Unknown
// errors map to 500 internal_error.
func StatusForError(err error) (int, string) {
	for _, m := range domainErrors {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, ErrCodeInternalError
}

// WriteDomainError writes err with the status and code it maps to. Internal
// errors are logged and their message is not exposed.
func WriteDomainError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, code := StatusForError(err)
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		WriteJSONError(w, status, code, "internal server error")
		return
	}
	WriteJSONError(w, status, code, err.Error())
}
