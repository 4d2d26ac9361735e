package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"knkt-backend/application/services"
	"knkt-backend/domain/connection"
	"knkt-backend/pkg/auth"
	"knkt-backend/pkg/common"
	appErrors "knkt-backend/pkg/errors"
	"knkt-backend/pkg/utils"
)

// ConnectionHandler handles connection lifecycle HTTP requests
type ConnectionHandler struct {
	connections *services.ConnectionService
	errors      *appErrors.ErrorHandler
	logger      *zap.Logger
}

func NewConnectionHandler(connections *services.ConnectionService, errorHandler *appErrors.ErrorHandler, logger *zap.Logger) *ConnectionHandler {
	return &ConnectionHandler{
		connections: connections,
		errors:      errorHandler,
		logger:      logger,
	}
}

// ProposeConnectionRequest names the other participant
type ProposeConnectionRequest struct {
	UID string `json:"uid" validate:"required"`
}

// connectionView is a connection as seen by one participant. The
// summary field carries the text written about the other person.
type connectionView struct {
	ConnectionID    string     `json:"connection_id"`
	OtherUID        string     `json:"other_uid"`
	State           string     `json:"state"`
	Accepted        bool       `json:"accepted"`
	OtherAccepted   bool       `json:"other_accepted"`
	MatchPercentage float64    `json:"match_percentage"`
	Summary         *string    `json:"summary,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}

func viewFor(c *connection.Connection, viewerUID string) connectionView {
	field := c.AcceptanceField(viewerUID)
	accepted := (field == "uid1_accepted" && c.UID1Accepted) || (field == "uid2_accepted" && c.UID2Accepted)
	otherAccepted := (field == "uid1_accepted" && c.UID2Accepted) || (field == "uid2_accepted" && c.UID1Accepted)

	return connectionView{
		ConnectionID:    c.ConnectionID,
		OtherUID:        c.Other(viewerUID),
		State:           string(c.State()),
		Accepted:        accepted,
		OtherAccepted:   otherAccepted,
		MatchPercentage: c.MatchPercentage,
		Summary:         c.SummaryFor(viewerUID),
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

// ProposeConnection handles POST /connections
func (h *ConnectionHandler) ProposeConnection(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errors.Handle(w, r, appErrors.NewUnauthorizedError("authentication required"))
		return
	}

	var req ProposeConnectionRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		h.errors.Handle(w, r, appErrors.NewValidationError("invalid request body: "+err.Error()))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, appErrors.NewValidationError(err.Error()))
		return
	}

	conn, err := h.connections.Propose(r.Context(), user.UserID, req.UID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, viewFor(conn, user.UserID))
}

// AcceptConnection handles POST /connections/{connectionID}/accept
func (h *ConnectionHandler) AcceptConnection(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errors.Handle(w, r, appErrors.NewUnauthorizedError("authentication required"))
		return
	}

	connectionID := chi.URLParam(r, "connectionID")
	if connectionID == "" {
		h.errors.Handle(w, r, appErrors.NewValidationError("connection ID is required"))
		return
	}

	conn, err := h.connections.Accept(r.Context(), connectionID, user.UserID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, viewFor(conn, user.UserID))
}

// NotifyNearby handles POST /connections/{connectionID}/nearby
func (h *ConnectionHandler) NotifyNearby(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errors.Handle(w, r, appErrors.NewUnauthorizedError("authentication required"))
		return
	}

	connectionID := chi.URLParam(r, "connectionID")
	if connectionID == "" {
		h.errors.Handle(w, r, appErrors.NewValidationError("connection ID is required"))
		return
	}

	conn, err := h.connections.NotifyNearby(r.Context(), connectionID, user.UserID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, viewFor(conn, user.UserID))
}

// GetConnection handles GET /connections/{connectionID}
func (h *ConnectionHandler) GetConnection(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errors.Handle(w, r, appErrors.NewUnauthorizedError("authentication required"))
		return
	}

	connectionID := chi.URLParam(r, "connectionID")
	if connectionID == "" {
		h.errors.Handle(w, r, appErrors.NewValidationError("connection ID is required"))
		return
	}

	conn, err := h.connections.Get(r.Context(), connectionID, user.UserID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, viewFor(conn, user.UserID))
}

// ListConnections handles GET /connections
func (h *ConnectionHandler) ListConnections(w http.ResponseWriter, r *http.Request) {
	h.listConnections(w, r, false)
}

// ListAcceptedConnections handles GET /connections/accepted
func (h *ConnectionHandler) ListAcceptedConnections(w http.ResponseWriter, r *http.Request) {
	h.listConnections(w, r, true)
}

func (h *ConnectionHandler) listConnections(w http.ResponseWriter, r *http.Request, acceptedOnly bool) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errors.Handle(w, r, appErrors.NewUnauthorizedError("authentication required"))
		return
	}

	var conns []*connection.Connection
	if acceptedOnly {
		conns, err = h.connections.ListAcceptedForUser(r.Context(), user.UserID)
	} else {
		conns, err = h.connections.ListForUser(r.Context(), user.UserID)
	}
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	views := make([]connectionView, len(conns))
	for i, c := range conns {
		views[i] = viewFor(c, user.UserID)
	}
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"connections": views,
		"count":       len(views),
	})
}
