package profiles

import (
	"context"
	"fmt"

	"filedrop/internal/engine/quota"
	"filedrop/internal/pkg/errors"
	"filedrop/internal/pkg/metrics"
	"filedrop/internal/pkg/validator"
	"filedrop/internal/platform/auth"
	"filedrop/internal/platform/models"

	"github.com/rs/zerolog/log"
)

type ProfileStore interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	EnsureExists(ctx context.Context, id, email string) (*models.Profile, error)
	UpdateFullName(ctx context.Context, id, fullName string) error
	RecomputeCounters(ctx context.Context, id string) (bool, error)
	ListIDs(ctx context.Context) ([]string, error)
}

type InboxCounter interface {
	CountByCreator(ctx context.Context, creatorID string) (int64, error)
}

type Service struct {
	profiles ProfileStore
	inboxes  InboxCounter
	metrics  *metrics.Metrics
}

func NewService(profiles ProfileStore, inboxes InboxCounter, m *metrics.Metrics) *Service {
	return &Service{profiles: profiles, inboxes: inboxes, metrics: m}
}

// EnsureProfile provisions a basic profile on first sight of an identity.
func (s *Service) EnsureProfile(ctx context.Context, id *auth.Identity) (*models.Profile, error) {
	profile, err := s.profiles.EnsureExists(ctx, id.UserID, id.Email)
	if err != nil {
		return nil, &errors.ExternalServiceError{Service: "database", Err: err}
	}
	return profile, nil
}

func (s *Service) Get(ctx context.Context, userID string) (*models.Profile, error) {
	profile, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if profile == nil {
		return nil, &errors.UnauthorizedError{Resource: "profile", ID: userID}
	}
	return profile, nil
}

func (s *Service) UpdateFullName(ctx context.Context, userID, name string) (*models.Profile, error) {
	name, err := validator.FullName(name)
	if err != nil {
		return nil, err
	}
	if err := s.profiles.UpdateFullName(ctx, userID, name); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return s.Get(ctx, userID)
}

func (s *Service) Usage(ctx context.Context, userID string) (*models.Usage, error) {
	profile, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	count, err := s.inboxes.CountByCreator(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count inboxes: %w", err)
	}

	limits := quota.LimitsFor(profile.SubscriptionTier)
	usage := &models.Usage{
		Tier:              profile.SubscriptionTier,
		InboxCount:        count,
		MaxInboxes:        limits.MaxInboxes,
		TotalSubmissions:  profile.TotalSubmissions,
		TotalStorageBytes: profile.TotalStorageBytes,
		StorageLimitBytes: limits.StorageBytes,
	}
	if limits.StorageBytes > 0 {
		usage.StoragePercent = float64(profile.TotalStorageBytes) / float64(limits.StorageBytes) * 100
		if usage.StoragePercent > 100 {
			usage.StoragePercent = 100
		}
	}
	usage.LimitReached = quota.IsWithinStorageLimit(profile.SubscriptionTier, profile.TotalStorageBytes) != nil

	return usage, nil
}

// Reconcile rebuilds a profile's cached counters from its submissions.
func (s *Service) Reconcile(ctx context.Context, userID string) (*models.Profile, error) {
	ok, err := s.profiles.RecomputeCounters(ctx, userID)
	s.metrics.Reconciliation(err)
	if err != nil {
		return nil, fmt.Errorf("failed to reconcile counters: %w", err)
	}
	if !ok {
		return nil, &errors.UnauthorizedError{Resource: "profile", ID: userID}
	}
	return s.Get(ctx, userID)
}

// ReconcileAll walks every profile. A failing profile is logged and skipped.
func (s *Service) ReconcileAll(ctx context.Context) (int, error) {
	ids, err := s.profiles.ListIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list profiles: %w", err)
	}

	done := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		if _, err := s.Reconcile(ctx, id); err != nil {
			log.Error().Err(err).Str("profile_id", id).Msg("reconcile failed")
			continue
		}
		done++
	}
	return done, nil
}
