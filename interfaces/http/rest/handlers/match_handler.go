package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"knkt-backend/application/services"
	"knkt-backend/domain/matching"
	"knkt-backend/pkg/auth"
	"knkt-backend/pkg/common"
	appErrors "knkt-backend/pkg/errors"
)

// MatchHandler handles match-query HTTP requests
type MatchHandler struct {
	matches          *services.MatchService
	defaultLimit     int
	defaultThreshold float64
	errors           *appErrors.ErrorHandler
	logger           *zap.Logger
}

func NewMatchHandler(matches *services.MatchService, defaultLimit int, defaultThreshold float64, errorHandler *appErrors.ErrorHandler, logger *zap.Logger) *MatchHandler {
	return &MatchHandler{
		matches:          matches,
		defaultLimit:     defaultLimit,
		defaultThreshold: defaultThreshold,
		errors:           errorHandler,
		logger:           logger,
	}
}

// matchEntry is one ranked candidate in the response
type matchEntry struct {
	UID             string   `json:"uid"`
	FullName        string   `json:"full_name"`
	University      string   `json:"university"`
	Score           float64  `json:"score"`
	Complementarity float64  `json:"complementarity"`
	HelpTheyGiveYou float64  `json:"help_they_give_you"`
	HelpYouGiveThem float64  `json:"help_you_give_them"`
	FocusOverlap    float64  `json:"focus_overlap"`
	IndustryOverlap float64  `json:"industry_overlap"`
	MatchedSkills   []string `json:"matched_skills"`
	SkillsYouOffer  []string `json:"skills_you_offer"`
}

// matchResponse is the full ranking response
type matchResponse struct {
	UID            string       `json:"uid"`
	CandidateCount int          `json:"candidate_count"`
	Matches        []matchEntry `json:"matches"`
}

// FindMatches handles GET /matches
func (h *MatchHandler) FindMatches(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errors.Handle(w, r, appErrors.NewUnauthorizedError("authentication required"))
		return
	}

	limit := h.defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 100 {
			h.errors.Handle(w, r, appErrors.NewValidationError("limit must be between 1 and 100"))
			return
		}
		limit = parsed
	}

	threshold := h.defaultThreshold
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 || parsed > 1 {
			h.errors.Handle(w, r, appErrors.NewValidationError("threshold must be between 0 and 1"))
			return
		}
		threshold = parsed
	}

	weights, err := h.parseWeights(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	result, err := h.matches.FindMatches(r.Context(), user.UserID, limit, threshold, weights)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	entries := make([]matchEntry, len(result.Matches))
	for i, m := range result.Matches {
		entries[i] = matchEntry{
			UID:             m.Profile.UID,
			FullName:        m.Profile.Identity.FullName,
			University:      m.Profile.Identity.University,
			Score:           m.Score.Score,
			Complementarity: m.Score.Complementarity,
			HelpTheyGiveYou: m.Score.HelpTheyGiveYou,
			HelpYouGiveThem: m.Score.HelpYouGiveThem,
			FocusOverlap:    m.Score.FocusOverlap,
			IndustryOverlap: m.Score.IndustryOverlap,
			MatchedSkills:   m.Score.MatchedSkills,
			SkillsYouOffer:  m.Score.SkillsYouOffer,
		}
	}

	common.RespondJSON(w, http.StatusOK, matchResponse{
		UID:            user.UserID,
		CandidateCount: result.CandidateCount,
		Matches:        entries,
	})
}

// parseWeights reads optional weight overrides from the query string.
// Omitted components keep their default; the service renormalizes the
// combination.
func (h *MatchHandler) parseWeights(r *http.Request) (matching.Weights, error) {
	weights := matching.DefaultWeights()
	for raw, target := range map[string]*float64{
		"w_complementarity": &weights.Complementarity,
		"w_focus":           &weights.Focus,
		"w_industry":        &weights.Industry,
	} {
		value := r.URL.Query().Get(raw)
		if value == "" {
			continue
		}
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil || parsed < 0 {
			return matching.Weights{}, appErrors.NewValidationError(raw + " must be a non-negative number")
		}
		*target = parsed
	}
	return weights, nil
}
