package controllers

import (
	"log/slog"
	"net/http"

	"consultations/internal/delivery/http/helpers"
	"consultations/internal/domain"
)

// ListNotificationsResponse is the data payload for GET /notifications (200).
type ListNotificationsResponse = helpers.PageResponse[*domain.Notification]

// ListNotificationsSuccessResponse is the success response envelope for GET /notifications (200).
type ListNotificationsSuccessResponse struct {
	Data  ListNotificationsResponse `json:"data"`
	Error *helpers.APIError         `json:"error"`
}

// UnseenCountResponse is the data payload for GET /notifications/unseen-count (200).
type UnseenCountResponse struct {
	Unseen int `json:"unseen"`
}

// NotificationController handles the in-app notification endpoints.
type NotificationController struct {
	Logger  *slog.Logger
	Service domain.NotificationService
}

func NewNotificationController(logger *slog.Logger, svc domain.NotificationService) *NotificationController {
	return &NotificationController{
		Logger:  logger,
		Service: svc,
	}
}

// ListNotifications godoc
// @Summary List my notifications
// @Description Newest first. Use page and page_size query params.
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.ListNotificationsSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /notifications [get]
func (c *NotificationController) ListNotifications(w http.ResponseWriter, r *http.Request) {
	actor, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	params := helpers.ParsePagination(r)
	page, err := c.Service.List(r.Context(), actor, params)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, helpers.NewPageResponse(page, params))
}

// UnseenCount godoc
// @Summary Count my unseen notifications
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.UnseenCountResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /notifications/unseen-count [get]
func (c *NotificationController) UnseenCount(w http.ResponseWriter, r *http.Request) {
	actor, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	n, err := c.Service.UnseenCount(r.Context(), actor)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, UnseenCountResponse{Unseen: n})
}

// MarkSeen godoc
// @Summary Mark a notification as seen
// @Description Only the recipient can mark it. Marking twice is allowed.
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param notificationID path string true "Notification ID (UUID)"
// @Success 200 {object} controllers.StatusResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: permission_denied"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /notifications/{notificationID}/seen [patch]
func (c *NotificationController) MarkSeen(w http.ResponseWriter, r *http.Request) {
	actor, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "notificationID")
	if !ok {
		return
	}
	if err := c.Service.MarkSeen(r.Context(), actor, id); err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, StatusResponse{Status: "seen"})
}
