// Package handlers contains the REST request handlers.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"knkt-backend/application/services"
	"knkt-backend/domain/profile"
	"knkt-backend/pkg/auth"
	appErrors "knkt-backend/pkg/errors"
	"knkt-backend/pkg/common"
	"knkt-backend/pkg/utils"
)

const maxBodyBytes = 1 << 20

// ProfileHandler handles profile-related HTTP requests
type ProfileHandler struct {
	profiles *services.ProfileService
	errors   *appErrors.ErrorHandler
	logger   *zap.Logger
}

func NewProfileHandler(profiles *services.ProfileService, errorHandler *appErrors.ErrorHandler, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{
		profiles: profiles,
		errors:   errorHandler,
		logger:   logger,
	}
}

// CreateProfileRequest is the request body for creating a profile
type CreateProfileRequest struct {
	Identity   profile.Identity `json:"identity" validate:"required"`
	FocusAreas []string         `json:"focus_areas" validate:"required,min=1,dive,oneof=startup research side_project open_source looking"`
	Project    *profile.Project `json:"project,omitempty"`
	Skills     profile.Skills   `json:"skills"`
}

// UpdateProfileRequest is the request body for partial profile updates
type UpdateProfileRequest struct {
	Identity   *profile.Identity `json:"identity,omitempty"`
	FocusAreas []string          `json:"focus_areas,omitempty" validate:"omitempty,dive,oneof=startup research side_project open_source looking"`
	Project    *profile.Project  `json:"project,omitempty"`
	Skills     *profile.Skills   `json:"skills,omitempty"`
}

// DeviceTokenRequest registers a push-notification token
type DeviceTokenRequest struct {
	DeviceToken string `json:"device_token" validate:"required"`
}

// CreateProfile handles POST /profiles
func (h *ProfileHandler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	var req CreateProfileRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		h.errors.Handle(w, r, appErrors.NewValidationError("invalid request body: "+err.Error()))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, appErrors.NewValidationError(err.Error()))
		return
	}

	focusAreas := make([]profile.FocusArea, len(req.FocusAreas))
	for i, fa := range req.FocusAreas {
		focusAreas[i] = profile.FocusArea(fa)
	}

	p, err := h.profiles.Create(r.Context(), services.CreateProfileInput{
		Identity:   req.Identity,
		FocusAreas: focusAreas,
		Project:    req.Project,
		Skills:     req.Skills,
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, p)
}

// GetMyProfile handles GET /profiles/me
func (h *ProfileHandler) GetMyProfile(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errors.Handle(w, r, appErrors.NewUnauthorizedError("authentication required"))
		return
	}

	p, err := h.profiles.Get(r.Context(), user.UserID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, p)
}

// GetProfile handles GET /profiles/{uid}
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	if uid == "" {
		h.errors.Handle(w, r, appErrors.NewValidationError("uid is required"))
		return
	}

	p, err := h.profiles.Get(r.Context(), uid)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, p)
}

// UpdateMyProfile handles PUT /profiles/me
func (h *ProfileHandler) UpdateMyProfile(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errors.Handle(w, r, appErrors.NewUnauthorizedError("authentication required"))
		return
	}

	var req UpdateProfileRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		h.errors.Handle(w, r, appErrors.NewValidationError("invalid request body: "+err.Error()))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, appErrors.NewValidationError(err.Error()))
		return
	}

	input := services.UpdateProfileInput{
		Identity: req.Identity,
		Project:  req.Project,
		Skills:   req.Skills,
	}
	if req.FocusAreas != nil {
		input.FocusAreas = make([]profile.FocusArea, len(req.FocusAreas))
		for i, fa := range req.FocusAreas {
			input.FocusAreas[i] = profile.FocusArea(fa)
		}
	}

	p, err := h.profiles.Update(r.Context(), user.UserID, input)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, p)
}

// DeleteMyProfile handles DELETE /profiles/me
func (h *ProfileHandler) DeleteMyProfile(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errors.Handle(w, r, appErrors.NewUnauthorizedError("authentication required"))
		return
	}

	if err := h.profiles.Delete(r.Context(), user.UserID); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetDeviceToken handles PUT /profiles/me/device-token
func (h *ProfileHandler) SetDeviceToken(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errors.Handle(w, r, appErrors.NewUnauthorizedError("authentication required"))
		return
	}

	var req DeviceTokenRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		h.errors.Handle(w, r, appErrors.NewValidationError("invalid request body: "+err.Error()))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, appErrors.NewValidationError(err.Error()))
		return
	}

	if err := h.profiles.SetDeviceToken(r.Context(), user.UserID, req.DeviceToken); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "registered"})
}
