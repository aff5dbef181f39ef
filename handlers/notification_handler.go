package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"gritfulAPI/internal/logger"
	"gritfulAPI/internal/notification"
	"gritfulAPI/services"
)

type NotificationHandler struct {
	notificationService *services.NotificationService
	log                 *logger.Logger
}

func NewNotificationHandler(notificationService *services.NotificationService, log *logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		log:                 log,
	}
}

// GET /api/v1/notifications
func (h *NotificationHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	unreadOnly := r.URL.Query().Get("unread_only") == "true"

	response, err := h.notificationService.GetNotifications(ctx, caller.ClerkID, page, pageSize, unreadOnly)
	if err != nil {
		respondWithServiceError(w, h.log, "GetNotifications", err)
		return
	}

	respondWithJSON(w, http.StatusOK, response)
}

// GET /api/v1/notifications/unread-count
func (h *NotificationHandler) GetUnreadCount(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	count, err := h.notificationService.GetUnreadCount(ctx, caller.ClerkID)
	if err != nil {
		respondWithServiceError(w, h.log, "GetUnreadCount", err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]int{"unread_count": count})
}

// PUT /api/v1/notifications/{id}/read
func (h *NotificationHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.notificationService.MarkAsRead(ctx, id, caller.ClerkID); err != nil {
		respondWithServiceError(w, h.log, "MarkAsRead", err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// PUT /api/v1/notifications/read-all
func (h *NotificationHandler) MarkAllAsRead(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	updated, err := h.notificationService.MarkAllAsRead(ctx, caller.ClerkID)
	if err != nil {
		respondWithServiceError(w, h.log, "MarkAllAsRead", err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]int64{"updated": updated})
}

// DELETE /api/v1/notifications/{id}
func (h *NotificationHandler) DeleteNotification(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.notificationService.DeleteNotification(ctx, id, caller.ClerkID); err != nil {
		respondWithServiceError(w, h.log, "DeleteNotification", err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// POST /api/v1/notifications/register-device
func (h *NotificationHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	var req notification.RegisterDeviceRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.notificationService.RegisterDevice(ctx, caller.ClerkID, &req); err != nil {
		respondWithServiceError(w, h.log, "RegisterDevice", err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}
