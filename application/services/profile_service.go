// Package services contains the application services orchestrating
// domain logic against the ports.
package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"knkt-backend/application/ports"
	"knkt-backend/domain/profile"
	appErrors "knkt-backend/pkg/errors"
)

const embedTimeout = 15 * time.Second

// ProfileService owns the participant-profile lifecycle, including
// keeping the embedding bundle in sync with the skill inventory.
type ProfileService struct {
	profiles ports.ProfileRepository
	conns    ports.ConnectionRepository
	embedder ports.EmbeddingProvider
	logger   *zap.Logger
}

func NewProfileService(
	profiles ports.ProfileRepository,
	conns ports.ConnectionRepository,
	embedder ports.EmbeddingProvider,
	logger *zap.Logger,
) *ProfileService {
	return &ProfileService{
		profiles: profiles,
		conns:    conns,
		embedder: embedder,
		logger:   logger,
	}
}

// CreateProfileInput carries the caller-supplied profile fields.
type CreateProfileInput struct {
	Identity   profile.Identity
	FocusAreas []profile.FocusArea
	Project    *profile.Project
	Skills     profile.Skills
}

func (s *ProfileService) Create(ctx context.Context, input CreateProfileInput) (*profile.Profile, error) {
	for _, fa := range input.FocusAreas {
		if !fa.IsValid() {
			return nil, appErrors.NewValidationError("invalid focus area: " + string(fa))
		}
	}

	now := time.Now().UTC()
	p := &profile.Profile{
		UID:        uuid.New().String(),
		CreatedAt:  now,
		Identity:   input.Identity,
		FocusAreas: input.FocusAreas,
		Project:    input.Project,
		Skills:     input.Skills,
	}
	s.reindex(ctx, p, now)

	if err := s.profiles.Save(ctx, p); err != nil {
		return nil, appErrors.Wrap(err, "failed to save profile")
	}
	s.logger.Info("profile created", zap.String("uid", p.UID))
	return p, nil
}

func (s *ProfileService) Get(ctx context.Context, uid string) (*profile.Profile, error) {
	p, err := s.profiles.GetByUID(ctx, uid)
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to load profile")
	}
	if p == nil {
		return nil, appErrors.NewNotFoundError("profile not found: " + uid)
	}
	return p, nil
}

// UpdateProfileInput applies partial updates; nil fields are left
// untouched.
type UpdateProfileInput struct {
	Identity   *profile.Identity
	FocusAreas []profile.FocusArea
	Project    *profile.Project
	Skills     *profile.Skills
}

func (s *ProfileService) Update(ctx context.Context, uid string, input UpdateProfileInput) (*profile.Profile, error) {
	p, err := s.Get(ctx, uid)
	if err != nil {
		return nil, err
	}

	skillsChanged := false
	if input.Identity != nil {
		p.Identity = *input.Identity
	}
	if input.FocusAreas != nil {
		for _, fa := range input.FocusAreas {
			if !fa.IsValid() {
				return nil, appErrors.NewValidationError("invalid focus area: " + string(fa))
			}
		}
		p.FocusAreas = input.FocusAreas
	}
	if input.Project != nil {
		p.Project = input.Project
		skillsChanged = true
	}
	if input.Skills != nil {
		p.Skills = *input.Skills
		skillsChanged = true
	}

	now := time.Now().UTC()
	p.UpdatedAt = &now
	if skillsChanged {
		s.reindex(ctx, p, now)
	}

	if err := s.profiles.Save(ctx, p); err != nil {
		return nil, appErrors.Wrap(err, "failed to save profile")
	}
	return p, nil
}

// Delete removes the profile and cascades over its connections.
func (s *ProfileService) Delete(ctx context.Context, uid string) error {
	deleted, err := s.profiles.Delete(ctx, uid)
	if err != nil {
		return appErrors.Wrap(err, "failed to delete profile")
	}
	if !deleted {
		return appErrors.NewNotFoundError("profile not found: " + uid)
	}

	removed, err := s.conns.DeleteForUser(ctx, uid)
	if err != nil {
		// The profile is already gone; orphaned connections are
		// harmless and cleaned up on the next delete attempt.
		s.logger.Warn("connection cascade failed",
			zap.String("uid", uid), zap.Error(err))
		return nil
	}
	s.logger.Info("profile deleted",
		zap.String("uid", uid), zap.Int("connections_removed", removed))
	return nil
}

// SetDeviceToken registers the push-notification token for a user.
func (s *ProfileService) SetDeviceToken(ctx context.Context, uid, token string) error {
	if token == "" {
		return appErrors.NewValidationError("device token must not be empty")
	}
	if _, err := s.Get(ctx, uid); err != nil {
		return err
	}
	if err := s.profiles.SetDeviceToken(ctx, uid, token); err != nil {
		return appErrors.Wrap(err, "failed to store device token")
	}
	return nil
}

// reindex regenerates the embedding bundle from the current skill
// inventory. When the provider yields nothing the bundle falls back to
// lexical vectors over normalized skill names, so matching always has
// something to compare.
func (s *ProfileService) reindex(ctx context.Context, p *profile.Profile, now time.Time) {
	possessed := s.embed(ctx, p.PossessedText(), p.PossessedNames())
	needed := s.embed(ctx, p.NeededText(), p.NeededNames())
	p.Embeddings = &profile.EmbeddingBundle{
		PossessedVector: possessed,
		NeededVector:    needed,
		LastIndexedAt:   &now,
	}
}

func (s *ProfileService) embed(ctx context.Context, text string, names []string) profile.Vector {
	if text == "" {
		return profile.LexicalVector(names)
	}
	ctx, cancel := context.WithTimeout(ctx, embedTimeout)
	defer cancel()

	vec, err := s.embedder.Embed(ctx, text)
	if err != nil || vec.IsEmpty() {
		if err != nil {
			s.logger.Warn("embedding generation failed, using lexical fallback",
				zap.Error(err))
		}
		return profile.LexicalVector(names)
	}
	return vec
}
