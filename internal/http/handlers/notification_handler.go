// Notification HTTP handlers.
//
// This file exposes the derived-notification endpoints:
//   - GET /notifications      (current reminders for the user)
//   - GET /notifications/{id} (single reminder)
//
// Notifications are recomputed from the capsule snapshot on every read, so
// an id can stop resolving once time moves past its window.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/evoris-app/go-capsule-backend/internal/services"
	"github.com/evoris-app/go-capsule-backend/internal/utils"
)

const defaultNotificationLimit = 50

// ListNotificationsResponse wraps the user's current notifications.
type ListNotificationsResponse struct {
	Notifications []services.Notification `json:"notifications"`
	Total         int                     `json:"total"`
}

// ListNotifications handles GET /notifications. An optional ?limit= caps the
// number of reminders returned; the total reflects everything derived.
func (h *Handlers) ListNotifications(c *gin.Context) {
	items, err := h.notifSvc.List(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	total := len(items)
	limit := utils.AtoiDefault(c.Query("limit"), defaultNotificationLimit)
	if limit < 1 {
		limit = defaultNotificationLimit
	}
	if len(items) > limit {
		items = items[:limit]
	}
	ok(c, http.StatusOK, ListNotificationsResponse{Notifications: items, Total: total})
}

// GetNotification handles GET /notifications/{id}.
func (h *Handlers) GetNotification(c *gin.Context) {
	n, err := h.notifSvc.Get(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrNotificationNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "notification not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, n)
}
