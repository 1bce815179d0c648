package notifications

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/ecomstack/notification-service/internal/auth"
	"github.com/ecomstack/notification-service/internal/httputil"
)

// Handlers provides the HTTP surface for notifications.
type Handlers struct {
	store *NotificationStore
	hub   Broadcaster
}

// NewHandlers creates a new Handlers.
func NewHandlers(store *NotificationStore, hub Broadcaster) *Handlers {
	return &Handlers{store: store, hub: hub}
}

// RegisterRoutes wires the notification endpoints. The notify endpoint is
// public (it is called service-to-service); everything else requires an
// authenticated user.
func (h *Handlers) RegisterRoutes(public, protected *mux.Router) {
	public.HandleFunc("/api/notifications/notify", h.Notify).Methods(http.MethodPost)
	protected.HandleFunc("/api/notifications", h.List).Methods(http.MethodGet)
	protected.HandleFunc("/api/notifications/{id}/read", h.MarkRead).Methods(http.MethodPut)
	protected.HandleFunc("/api/notifications/{id}", h.Delete).Methods(http.MethodDelete)
}

// getUserID extracts the user ID from the JWT claims in the request context.
func getUserID(r *http.Request) string {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		return ""
	}
	return claims.UserID
}

// Notify handles POST /api/notifications/notify: direct creation of a
// notification outside the event pipeline.
func (h *Handlers) Notify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID  string `json:"userId"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.Message == "" {
		httputil.WriteError(w, http.StatusBadRequest, "userId and message are required")
		return
	}

	n := &Notification{
		UserID:    req.UserID,
		Message:   req.Message,
		Read:      false,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := h.store.Insert(r.Context(), n); err != nil {
		log.Printf("notifications: failed to create notification for user %s: %v", req.UserID, err)
		httputil.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, n)
}

// List handles GET /api/notifications: the authenticated user's
// notifications, newest first.
func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	userID := getUserID(r)
	if userID == "" {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	notifications, total, err := h.store.List(r.Context(), userID, limit, offset)
	if err != nil {
		log.Printf("notifications: failed to list for user %s: %v", userID, err)
		httputil.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"notifications": notifications,
		"total":         total,
	})
}

// MarkRead handles PUT /api/notifications/{id}/read.
func (h *Handlers) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := getUserID(r)
	if userID == "" {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := mux.Vars(r)["id"]
	n, err := h.store.MarkRead(r.Context(), userID, id)
	if errors.Is(err, ErrNotificationNotFound) {
		httputil.WriteError(w, http.StatusNotFound, "notification not found")
		return
	}
	if err != nil {
		log.Printf("notifications: failed to mark %s read for user %s: %v", id, userID, err)
		httputil.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, n)
}

// Delete handles DELETE /api/notifications/{id}. On success it broadcasts a
// notificationDeleted event so connected clients refresh.
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	userID := getUserID(r)
	if userID == "" {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := mux.Vars(r)["id"]
	err := h.store.Delete(r.Context(), userID, id)
	if errors.Is(err, ErrNotificationNotFound) {
		httputil.WriteError(w, http.StatusNotFound, "notification not found")
		return
	}
	if err != nil {
		log.Printf("notifications: failed to delete %s for user %s: %v", id, userID, err)
		httputil.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if err := h.hub.Publish(EventNotificationDeleted, NotificationDeleted{NotificationID: id}); err != nil {
		// Publish only fails when the hub was never started, which is a
		// wiring bug.
		log.Printf("notifications: BUG: broadcast hub used before start: %v", err)
		httputil.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	httputil.WriteMessage(w, http.StatusOK, "Notification deleted successfully")
}
