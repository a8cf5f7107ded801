package inboxes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"filedrop/internal/engine/cascade"
	"filedrop/internal/engine/quota"
	"filedrop/internal/pkg/errors"
	"filedrop/internal/pkg/metrics"
	"filedrop/internal/pkg/validator"
	"filedrop/internal/platform/cache"
	"filedrop/internal/platform/database"
	"filedrop/internal/platform/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// maxSlugAttempts bounds retries when a generated slug collides.
const maxSlugAttempts = 5

type InboxStore interface {
	Create(ctx context.Context, inbox *models.Inbox) error
	GetByID(ctx context.Context, id string) (*models.Inbox, error)
	GetBySlug(ctx context.Context, slug string) (*models.Inbox, error)
	ListByCreator(ctx context.Context, creatorID string) ([]*models.Inbox, error)
	CountByCreator(ctx context.Context, creatorID string) (int64, error)
	Update(ctx context.Context, inbox *models.Inbox) (bool, error)
	TogglePause(ctx context.Context, id, creatorID string) (bool, error)
}

type ProfileStore interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)
}

// Deleter runs the deletion cascade for an inbox.
type Deleter interface {
	DeleteInbox(ctx context.Context, inboxID, actorID string) (*cascade.Outcome, error)
}

type Service struct {
	inboxes  InboxStore
	profiles ProfileStore
	deleter  Deleter
	cache    cache.InboxCache
	notifier cache.Notifier
	metrics  *metrics.Metrics
	siteURL  string
	generate func() string
}

func NewService(
	inboxes InboxStore,
	profiles ProfileStore,
	deleter Deleter,
	inboxCache cache.InboxCache,
	notifier cache.Notifier,
	m *metrics.Metrics,
	siteURL string,
) *Service {
	return &Service{
		inboxes:  inboxes,
		profiles: profiles,
		deleter:  deleter,
		cache:    inboxCache,
		notifier: notifier,
		metrics:  m,
		siteURL:  strings.TrimRight(siteURL, "/"),
		generate: quota.GenerateSlug,
	}
}

type CreateInput struct {
	Title              string  `json:"title"`
	Description        *string `json:"description"`
	Slug               string  `json:"slug"`
	Icon               string  `json:"icon"`
	AllowMultipleFiles bool    `json:"allow_multiple_files"`
}

// EditInput carries a partial update; nil fields are left alone.
type EditInput struct {
	Title              *string `json:"title"`
	Description        *string `json:"description"`
	Icon               *string `json:"icon"`
	AllowMultipleFiles *bool   `json:"allow_multiple_files"`
}

func (s *Service) Create(ctx context.Context, creatorID string, in CreateInput) (*models.Inbox, error) {
	inbox, err := s.create(ctx, creatorID, in)
	s.metrics.Inbox("create", err)
	return inbox, err
}

func (s *Service) create(ctx context.Context, creatorID string, in CreateInput) (*models.Inbox, error) {
	title, err := validator.Title(in.Title, quota.TitleMaxLength)
	if err != nil {
		return nil, err
	}

	profile, err := s.profile(ctx, creatorID)
	if err != nil {
		return nil, err
	}

	count, err := s.inboxes.CountByCreator(ctx, creatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to count inboxes: %w", err)
	}
	if err := quota.CanCreateInbox(profile.SubscriptionTier, count); err != nil {
		return nil, err
	}

	icon, err := validator.Icon(in.Icon)
	if err != nil {
		return nil, err
	}
	if icon != validator.DefaultIcon {
		if err := quota.CanUseGatedFeature(profile.SubscriptionTier, errors.FeatureCustomIcon); err != nil {
			return nil, err
		}
	}

	requested := strings.TrimSpace(in.Slug)
	now := time.Now().Unix()
	inbox := &models.Inbox{
		ID:                 uuid.New().String(),
		CreatorID:          creatorID,
		Title:              title,
		Description:        validator.Description(in.Description),
		Icon:               icon,
		IsActive:           true,
		IsPaused:           false,
		AllowMultipleFiles: in.AllowMultipleFiles,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	for attempt := 1; ; attempt++ {
		slug, generated, err := quota.EffectiveSlug(profile.SubscriptionTier, requested, s.generate)
		if err != nil {
			return nil, err
		}
		inbox.Slug = slug

		err = s.inboxes.Create(ctx, inbox)
		if err == nil {
			break
		}
		if !database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("failed to create inbox: %w", err)
		}
		if !generated {
			return nil, &errors.ConflictError{Message: "This slug is already taken. Please choose a different one."}
		}
		if attempt >= maxSlugAttempts {
			return nil, &errors.ConflictError{Message: "Could not allocate a unique link, please try again"}
		}
		log.Debug().Str("slug", slug).Int("attempt", attempt).Msg("generated slug collided, retrying")
	}

	s.refresh(ctx, creatorID)
	log.Info().Str("inbox_id", inbox.ID).Str("creator_id", creatorID).Str("slug", inbox.Slug).Msg("inbox created")

	return inbox, nil
}

func (s *Service) Edit(ctx context.Context, actorID, inboxID string, in EditInput) (*models.Inbox, error) {
	inbox, err := s.owned(ctx, actorID, inboxID)
	if err != nil {
		return nil, err
	}

	if in.Icon != nil && *in.Icon != inbox.Icon {
		profile, err := s.profile(ctx, actorID)
		if err != nil {
			return nil, err
		}
		if err := quota.CanUseGatedFeature(profile.SubscriptionTier, errors.FeatureCustomIcon); err != nil {
			return nil, err
		}
		icon, err := validator.Icon(*in.Icon)
		if err != nil {
			return nil, err
		}
		inbox.Icon = icon
	}

	if in.Title != nil {
		title, err := validator.Title(*in.Title, quota.TitleMaxLength)
		if err != nil {
			return nil, err
		}
		inbox.Title = title
	}
	if in.Description != nil {
		inbox.Description = validator.Description(in.Description)
	}
	if in.AllowMultipleFiles != nil {
		inbox.AllowMultipleFiles = *in.AllowMultipleFiles
	}

	ok, err := s.inboxes.Update(ctx, inbox)
	if err != nil {
		return nil, fmt.Errorf("failed to update inbox: %w", err)
	}
	if !ok {
		return nil, &errors.UnauthorizedError{Resource: "inbox", ID: inboxID}
	}

	s.cache.Invalidate(ctx, inbox.Slug)
	s.refresh(ctx, actorID)
	s.metrics.Inbox("edit", nil)

	return inbox, nil
}

func (s *Service) TogglePause(ctx context.Context, actorID, inboxID string) (*models.Inbox, error) {
	inbox, err := s.owned(ctx, actorID, inboxID)
	if err != nil {
		return nil, err
	}

	profile, err := s.profile(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if err := quota.CanUseGatedFeature(profile.SubscriptionTier, errors.FeaturePause); err != nil {
		return nil, err
	}

	ok, err := s.inboxes.TogglePause(ctx, inboxID, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to toggle pause: %w", err)
	}
	if !ok {
		return nil, &errors.UnauthorizedError{Resource: "inbox", ID: inboxID}
	}

	s.cache.Invalidate(ctx, inbox.Slug)
	s.refresh(ctx, actorID)
	s.metrics.Inbox("pause", nil)

	updated, err := s.inboxes.GetByID(ctx, inboxID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload inbox: %w", err)
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, actorID, inboxID string) (*cascade.Outcome, error) {
	outcome, err := s.deleter.DeleteInbox(ctx, inboxID, actorID)
	s.metrics.Inbox("delete", err)
	return outcome, err
}

func (s *Service) List(ctx context.Context, creatorID string) ([]*models.Inbox, error) {
	return s.inboxes.ListByCreator(ctx, creatorID)
}

func (s *Service) Get(ctx context.Context, actorID, inboxID string) (*models.Inbox, error) {
	return s.owned(ctx, actorID, inboxID)
}

// Public is what an anonymous visitor of the share link sees.
type Public struct {
	ID                   string  `json:"id"`
	Title                string  `json:"title"`
	Description          *string `json:"description,omitempty"`
	Slug                 string  `json:"slug"`
	Icon                 string  `json:"icon"`
	AllowMultipleFiles   bool    `json:"allow_multiple_files"`
	AcceptingSubmissions bool    `json:"accepting_submissions"`
}

// GetPublic resolves a share link. Inactive inboxes look exactly like missing ones.
func (s *Service) GetPublic(ctx context.Context, slug string) (*Public, error) {
	inbox, err := s.BySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	accepting := !inbox.IsPaused
	if accepting {
		profile, err := s.profiles.GetByID(ctx, inbox.CreatorID)
		if err != nil {
			return nil, fmt.Errorf("failed to load creator: %w", err)
		}
		if profile != nil && quota.IsWithinStorageLimit(profile.SubscriptionTier, profile.TotalStorageBytes) != nil {
			accepting = false
		}
	}

	return &Public{
		ID:                   inbox.ID,
		Title:                inbox.Title,
		Description:          inbox.Description,
		Slug:                 inbox.Slug,
		Icon:                 inbox.Icon,
		AllowMultipleFiles:   inbox.AllowMultipleFiles,
		AcceptingSubmissions: accepting,
	}, nil
}

// BySlug returns an active inbox through the slug cache.
func (s *Service) BySlug(ctx context.Context, slug string) (*models.Inbox, error) {
	if inbox, ok := s.cache.Get(ctx, slug); ok {
		return inbox, nil
	}

	inbox, err := s.inboxes.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to load inbox: %w", err)
	}
	if inbox == nil || !inbox.IsActive {
		return nil, &errors.InboxUnavailableError{Reason: errors.InboxNotFound}
	}

	s.cache.Set(ctx, inbox)
	return inbox, nil
}

// ShareURL is the public link submitters open.
func (s *Service) ShareURL(slug string) string {
	return s.siteURL + "/submit/" + slug
}

func (s *Service) QRCode(ctx context.Context, actorID, inboxID string, size int) ([]byte, error) {
	inbox, err := s.owned(ctx, actorID, inboxID)
	if err != nil {
		return nil, err
	}
	return GenerateQRCode(s.ShareURL(inbox.Slug), size)
}

func (s *Service) owned(ctx context.Context, actorID, inboxID string) (*models.Inbox, error) {
	inbox, err := s.inboxes.GetByID(ctx, inboxID)
	if err != nil {
		return nil, fmt.Errorf("failed to load inbox: %w", err)
	}
	if inbox == nil || inbox.CreatorID != actorID {
		return nil, &errors.UnauthorizedError{Resource: "inbox", ID: inboxID}
	}
	return inbox, nil
}

func (s *Service) profile(ctx context.Context, id string) (*models.Profile, error) {
	profile, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if profile == nil {
		return nil, &errors.UnauthorizedError{Resource: "profile", ID: id}
	}
	return profile, nil
}

func (s *Service) refresh(ctx context.Context, creatorID string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Refresh(ctx, creatorID); err != nil {
		log.Warn().Err(err).Str("creator_id", creatorID).Msg("failed to publish refresh")
	}
}
