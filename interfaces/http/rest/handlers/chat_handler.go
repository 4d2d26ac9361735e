package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"knkt-backend/application/services"
	"knkt-backend/pkg/auth"
	"knkt-backend/pkg/common"
	appErrors "knkt-backend/pkg/errors"
	"knkt-backend/pkg/utils"
)

// ChatHandler handles room and message HTTP requests
type ChatHandler struct {
	chat   *services.ChatService
	errors *appErrors.ErrorHandler
	logger *zap.Logger
}

func NewChatHandler(chat *services.ChatService, errorHandler *appErrors.ErrorHandler, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		chat:   chat,
		errors: errorHandler,
		logger: logger,
	}
}

// OpenRoomRequest names the other participant
type OpenRoomRequest struct {
	UID string `json:"uid" validate:"required"`
}

// PostMessageRequest is the request body for sending a message
type PostMessageRequest struct {
	Content string `json:"content" validate:"required,max=4000"`
}

// OpenRoom handles POST /rooms
func (h *ChatHandler) OpenRoom(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errors.Handle(w, r, appErrors.NewUnauthorizedError("authentication required"))
		return
	}

	var req OpenRoomRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		h.errors.Handle(w, r, appErrors.NewValidationError("invalid request body: "+err.Error()))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, appErrors.NewValidationError(err.Error()))
		return
	}

	room, err := h.chat.GetOrCreateRoom(r.Context(), user.UserID, req.UID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, room)
}

// GetRoom handles GET /rooms/{roomID}
func (h *ChatHandler) GetRoom(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errors.Handle(w, r, appErrors.NewUnauthorizedError("authentication required"))
		return
	}

	roomID := chi.URLParam(r, "roomID")
	if roomID == "" {
		h.errors.Handle(w, r, appErrors.NewValidationError("room ID is required"))
		return
	}

	room, err := h.chat.GetRoom(r.Context(), roomID, user.UserID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, room)
}

// ListRooms handles GET /rooms
func (h *ChatHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errors.Handle(w, r, appErrors.NewUnauthorizedError("authentication required"))
		return
	}

	rooms, err := h.chat.ListRoomsForUser(r.Context(), user.UserID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"rooms": rooms,
		"count": len(rooms),
	})
}

// PostMessage handles POST /rooms/{roomID}/messages
func (h *ChatHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errors.Handle(w, r, appErrors.NewUnauthorizedError("authentication required"))
		return
	}

	roomID := chi.URLParam(r, "roomID")
	if roomID == "" {
		h.errors.Handle(w, r, appErrors.NewValidationError("room ID is required"))
		return
	}

	var req PostMessageRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		h.errors.Handle(w, r, appErrors.NewValidationError("invalid request body: "+err.Error()))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, appErrors.NewValidationError(err.Error()))
		return
	}

	msg, err := h.chat.PostMessage(r.Context(), roomID, user.UserID, req.Content)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, msg)
}

// ListMessages handles GET /rooms/{roomID}/messages
func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errors.Handle(w, r, appErrors.NewUnauthorizedError("authentication required"))
		return
	}

	roomID := chi.URLParam(r, "roomID")
	if roomID == "" {
		h.errors.Handle(w, r, appErrors.NewValidationError("room ID is required"))
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 200 {
			h.errors.Handle(w, r, appErrors.NewValidationError("limit must be between 1 and 200"))
			return
		}
		limit = parsed
	}

	var before *time.Time
	if raw := r.URL.Query().Get("before"); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			h.errors.Handle(w, r, appErrors.NewValidationError("before must be an RFC3339 timestamp"))
			return
		}
		before = &parsed
	}

	page, err := h.chat.ListMessages(r.Context(), roomID, user.UserID, limit, before)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"messages": page.Messages,
		"total":    page.Total,
	})
}
