package controllers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"consultations/internal/delivery/http/helpers"
	"consultations/internal/domain"
)

// CreateReservationRequest is the request body for POST /reservations.
type CreateReservationRequest struct {
	SlotID      string   `json:"slot_id" validate:"required,uuid"`
	Topic       string   `json:"topic"`
	Notes       string   `json:"notes"`
	Attachments []string `json:"attachments" validate:"omitempty,dive,required"`
}

// RejectReservationRequest is the optional request body for POST /reservations/{reservationID}/reject.
type RejectReservationRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// MarkOutcomeRequest is the request body for POST /reservations/{reservationID}/outcome.
type MarkOutcomeRequest struct {
	Outcome string `json:"outcome" validate:"required,oneof=completed no_show_student no_show_lecturer"`
}

// ReservationSuccessResponse is the success response envelope for endpoints returning one reservation.
type ReservationSuccessResponse struct {
	Data  *domain.Reservation `json:"data"`
	Error *helpers.APIError   `json:"error"`
}

// ListStudentReservationsSuccessResponse is the success response envelope for GET /student/reservations (200).
type ListStudentReservationsSuccessResponse struct {
	Data  []*domain.Reservation `json:"data"`
	Error *helpers.APIError     `json:"error"`
}

// ListLecturerReservationsResponse is the data payload for GET /lecturer/reservations (200).
type ListLecturerReservationsResponse = helpers.PageResponse[*domain.Reservation]

// ListLecturerReservationsSuccessResponse is the success response envelope for GET /lecturer/reservations (200).
type ListLecturerReservationsSuccessResponse struct {
	Data  ListLecturerReservationsResponse `json:"data"`
	Error *helpers.APIError                `json:"error"`
}

// ReservationController handles the reservation lifecycle endpoints.
type ReservationController struct {
	Logger  *slog.Logger
	Service domain.ReservationService
}

// NewReservationController creates a ReservationController with the given logger and service.
func NewReservationController(logger *slog.Logger, svc domain.ReservationService) *ReservationController {
	return &ReservationController{
		Logger:  logger,
		Service: svc,
	}
}

// CreateReservation godoc
// @Summary Reserve a slot
// @Description Students request a place on a slot. The reservation starts pending and is rejected automatically if the lecturer does not answer within 24 hours.
// @Tags reservations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateReservationRequest true "Reservation data"
// @Success 201 {object} controllers.ReservationSuccessResponse "data contains the pending reservation"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request or validation_failed"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: permission_denied"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: slot_inactive, slot_full, past_slot or duplicate_reservation"
// @Failure 429 {object} helpers.APIResponse "error.code: rate_limited"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /reservations [post]
func (c *ReservationController) CreateReservation(w http.ResponseWriter, r *http.Request) {
	actor, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	var req CreateReservationRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	res, err := c.Service.Create(r.Context(), actor, strings.TrimSpace(req.SlotID), domain.ReservationDraft{
		Topic:       req.Topic,
		Notes:       req.Notes,
		Attachments: req.Attachments,
	})
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, res)
}

// GetReservation godoc
// @Summary Get a reservation
// @Description Visible to the student who made it and the lecturer who owns the slot.
// @Tags reservations
// @Produce json
// @Security BearerAuth
// @Param reservationID path string true "Reservation ID (UUID)"
// @Success 200 {object} controllers.ReservationSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: permission_denied"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /reservations/{reservationID} [get]
func (c *ReservationController) GetReservation(w http.ResponseWriter, r *http.Request) {
	actor, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "reservationID")
	if !ok {
		return
	}
	res, err := c.Service.Get(r.Context(), actor, id)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, res)
}

// AcceptReservation godoc
// @Summary Accept a pending reservation
// @Tags lecturer
// @Produce json
// @Security BearerAuth
// @Param reservationID path string true "Reservation ID (UUID)"
// @Success 200 {object} controllers.ReservationSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: permission_denied"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: invalid_transition or capacity_exceeded"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /reservations/{reservationID}/accept [post]
func (c *ReservationController) AcceptReservation(w http.ResponseWriter, r *http.Request) {
	actor, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "reservationID")
	if !ok {
		return
	}
	res, err := c.Service.Accept(r.Context(), actor, id)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, res)
}

// RejectReservation godoc
// @Summary Reject a pending reservation
// @Description The body is optional; reason is shown to the student.
// @Tags lecturer
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param reservationID path string true "Reservation ID (UUID)"
// @Param body body RejectReservationRequest false "Rejection reason"
// @Success 200 {object} controllers.ReservationSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request or validation_failed"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: permission_denied"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: invalid_transition"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /reservations/{reservationID}/reject [post]
func (c *ReservationController) RejectReservation(w http.ResponseWriter, r *http.Request) {
	actor, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "reservationID")
	if !ok {
		return
	}
	var req RejectReservationRequest
	if r.ContentLength != 0 {
		if !helpers.DecodeAndValidate(w, r, &req) {
			return
		}
	}
	res, err := c.Service.Reject(r.Context(), actor, id, strings.TrimSpace(req.Reason))
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, res)
}

// CancelReservation godoc
// @Summary Cancel my reservation
// @Description Pending or accepted reservations can be cancelled until one hour before the slot starts.
// @Tags reservations
// @Produce json
// @Security BearerAuth
// @Param reservationID path string true "Reservation ID (UUID)"
// @Success 200 {object} controllers.ReservationSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: permission_denied"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: invalid_transition or too_late_to_cancel"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /reservations/{reservationID}/cancel [post]
func (c *ReservationController) CancelReservation(w http.ResponseWriter, r *http.Request) {
	actor, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "reservationID")
	if !ok {
		return
	}
	res, err := c.Service.Cancel(r.Context(), actor, id)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, res)
}

// MarkOutcome godoc
// @Summary Record how the meeting went
// @Description Only for accepted reservations whose slot has ended.
// @Tags lecturer
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param reservationID path string true "Reservation ID (UUID)"
// @Param body body MarkOutcomeRequest true "Outcome"
// @Success 200 {object} controllers.ReservationSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request or validation_failed"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: permission_denied"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: invalid_transition or meeting_not_yet_over"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /reservations/{reservationID}/outcome [post]
func (c *ReservationController) MarkOutcome(w http.ResponseWriter, r *http.Request) {
	actor, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "reservationID")
	if !ok {
		return
	}
	var req MarkOutcomeRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	res, err := c.Service.MarkOutcome(r.Context(), actor, id, domain.ReservationStatus(req.Outcome))
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, res)
}

// ListStudentReservations godoc
// @Summary List my reservations
// @Tags reservations
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.ListStudentReservationsSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: permission_denied"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /student/reservations [get]
func (c *ReservationController) ListStudentReservations(w http.ResponseWriter, r *http.Request) {
	actor, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	list, err := c.Service.ListForStudent(r.Context(), actor)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	if list == nil {
		list = []*domain.Reservation{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, list)
}

// ListLecturerReservations godoc
// @Summary List reservations on my slots
// @Description Paginated, newest first. Optional status filter.
// @Tags lecturer
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending, accepted, rejected, cancelled, completed, no_show_student or no_show_lecturer"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.ListLecturerReservationsSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: validation_failed"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: permission_denied"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /lecturer/reservations [get]
func (c *ReservationController) ListLecturerReservations(w http.ResponseWriter, r *http.Request) {
	actor, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	var filter domain.ReservationFilter
	if s := strings.TrimSpace(r.URL.Query().Get("status")); s != "" {
		status, ok := domain.ParseReservationStatus(s)
		if !ok {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeValidationFailed, "unknown status "+strconv.Quote(s))
			return
		}
		filter.Status = status
	}
	params := helpers.ParsePagination(r)
	page, err := c.Service.ListForLecturer(r.Context(), actor, filter, params)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, helpers.NewPageResponse(page, params))
}
