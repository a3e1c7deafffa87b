package controllers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"consultations/internal/delivery/http/helpers"
	"consultations/internal/domain"
)

// CreateSlotRequest is the request body for POST /lecturer/slots.
type CreateSlotRequest struct {
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required"`
	// Capacity defaults to 1 when omitted.
	Capacity *int   `json:"capacity,omitempty"`
	Location string `json:"location" validate:"max=255"`
	Subject  string `json:"subject" validate:"max=255"`
}

// SlotSuccessResponse is the success response envelope for endpoints returning one slot.
type SlotSuccessResponse struct {
	Data  *domain.Slot      `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// ListSlotsSuccessResponse is the success response envelope for GET /slots (200).
type ListSlotsSuccessResponse struct {
	Data  []*domain.Slot    `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// ListLecturerSlotsResponse is the data payload for GET /lecturer/slots (200).
type ListLecturerSlotsResponse = helpers.PageResponse[*domain.Slot]

// ListLecturerSlotsSuccessResponse is the success response envelope for GET /lecturer/slots (200).
type ListLecturerSlotsSuccessResponse struct {
	Data  ListLecturerSlotsResponse `json:"data"`
	Error *helpers.APIError         `json:"error"`
}

// RemainingCapacityResponse is the data payload for GET /slots/{slotID}/remaining-capacity (200).
type RemainingCapacityResponse struct {
	SlotID    string `json:"slot_id"`
	Remaining int    `json:"remaining"`
}

// StatusResponse is the data payload for endpoints that only report success.
type StatusResponse struct {
	Status string `json:"status"`
}

// SlotController handles slot publishing and browsing endpoints.
type SlotController struct {
	Logger  *slog.Logger
	Service domain.SlotService
}

// NewSlotController creates a SlotController with the given logger and service.
func NewSlotController(logger *slog.Logger, svc domain.SlotService) *SlotController {
	return &SlotController{
		Logger:  logger,
		Service: svc,
	}
}

// CreateSlot godoc
// @Summary Publish a consultation slot
// @Description Lecturers publish a bookable time window. start_time must be before end_time; capacity defaults to 1.
// @Tags lecturer
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateSlotRequest true "Slot data"
// @Success 201 {object} controllers.SlotSuccessResponse "data contains the created slot"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request, validation_failed or invalid_range"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: permission_denied"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /lecturer/slots [post]
func (c *SlotController) CreateSlot(w http.ResponseWriter, r *http.Request) {
	actor, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	var req CreateSlotRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	capacity := 1
	if req.Capacity != nil {
		capacity = *req.Capacity
	}
	slot, err := c.Service.CreateSlot(r.Context(), actor, domain.CreateSlotInput{
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Capacity:  capacity,
		Location:  req.Location,
		Subject:   req.Subject,
	})
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, slot)
}

// ListPublicSlots godoc
// @Summary List bookable slots
// @Description Returns active slots that have not started yet, ordered by start time. Optional lecturer_id filter.
// @Tags slots
// @Produce json
// @Param lecturer_id query string false "Only slots of this lecturer"
// @Success 200 {object} controllers.ListSlotsSuccessResponse "data contains the slots"
// @Failure 400 {object} helpers.APIResponse "error.code: validation_failed"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /slots [get]
func (c *SlotController) ListPublicSlots(w http.ResponseWriter, r *http.Request) {
	lecturerID := strings.TrimSpace(r.URL.Query().Get("lecturer_id"))
	if lecturerID != "" && uuid.Validate(lecturerID) != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeValidationFailed, "lecturer_id must be a valid UUID")
		return
	}
	slots := []*domain.Slot{}
	for slot, err := range c.Service.ListPublicSlots(r.Context(), lecturerID) {
		if err != nil {
			helpers.WriteDomainError(w, r, c.Logger, err)
			return
		}
		slots = append(slots, slot)
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, slots)
}

// GetSlot godoc
// @Summary Get a slot
// @Tags slots
// @Produce json
// @Param slotID path string true "Slot ID (UUID)"
// @Success 200 {object} controllers.SlotSuccessResponse "data contains the slot"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /slots/{slotID} [get]
func (c *SlotController) GetSlot(w http.ResponseWriter, r *http.Request) {
	slotID, ok := pathID(w, r, "slotID")
	if !ok {
		return
	}
	slot, err := c.Service.GetSlot(r.Context(), slotID)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, slot)
}

// RemainingCapacity godoc
// @Summary Remaining capacity of a slot
// @Description capacity minus pending and accepted reservations, never below zero.
// @Tags slots
// @Produce json
// @Param slotID path string true "Slot ID (UUID)"
// @Success 200 {object} controllers.RemainingCapacityResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /slots/{slotID}/remaining-capacity [get]
func (c *SlotController) RemainingCapacity(w http.ResponseWriter, r *http.Request) {
	slotID, ok := pathID(w, r, "slotID")
	if !ok {
		return
	}
	remaining, err := c.Service.RemainingCapacity(r.Context(), slotID)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, RemainingCapacityResponse{SlotID: slotID, Remaining: remaining})
}

// ListLecturerSlots godoc
// @Summary List my slots
// @Description The caller's own slots, active or not, newest start first. Use page and page_size query params.
// @Tags lecturer
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.ListLecturerSlotsSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: permission_denied"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /lecturer/slots [get]
func (c *SlotController) ListLecturerSlots(w http.ResponseWriter, r *http.Request) {
	actor, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	params := helpers.ParsePagination(r)
	page, err := c.Service.ListLecturerSlots(r.Context(), actor, params)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, helpers.NewPageResponse(page, params))
}

// DeactivateSlot godoc
// @Summary Deactivate a slot
// @Description Stops new bookings. Students holding active reservations are notified. Only the owning lecturer can deactivate.
// @Tags lecturer
// @Produce json
// @Security BearerAuth
// @Param slotID path string true "Slot ID (UUID)"
// @Success 200 {object} controllers.StatusResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: permission_denied"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /lecturer/slots/{slotID}/deactivate [post]
func (c *SlotController) DeactivateSlot(w http.ResponseWriter, r *http.Request) {
	actor, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	slotID, ok := pathID(w, r, "slotID")
	if !ok {
		return
	}
	if err := c.Service.Deactivate(r.Context(), actor, slotID); err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, StatusResponse{Status: "deactivated"})
}

// DeleteSlot godoc
// @Summary Delete a slot
// @Description Removes the slot and all its reservations. Only the owning lecturer can delete.
// @Tags lecturer
// @Produce json
// @Security BearerAuth
// @Param slotID path string true "Slot ID (UUID)"
// @Success 200 {object} controllers.StatusResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: permission_denied"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /lecturer/slots/{slotID} [delete]
func (c *SlotController) DeleteSlot(w http.ResponseWriter, r *http.Request) {
	actor, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	slotID, ok := pathID(w, r, "slotID")
	if !ok {
		return
	}
	if err := c.Service.DeleteSlot(r.Context(), actor, slotID); err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, StatusResponse{Status: "deleted"})
}
