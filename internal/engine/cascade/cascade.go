package cascade

import (
	"context"
	"fmt"
	"sync"

	"filedrop/internal/pkg/errors"
	"filedrop/internal/pkg/metrics"
	"filedrop/internal/platform/cache"
	"filedrop/internal/platform/models"
	"filedrop/internal/platform/storage"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// blobDeleteLimit bounds concurrent object store deletes during an inbox cascade.
const blobDeleteLimit = 8

type InboxStore interface {
	GetByID(ctx context.Context, id string) (*models.Inbox, error)
	Delete(ctx context.Context, id, creatorID string) (bool, error)
}

type SubmissionStore interface {
	GetByID(ctx context.Context, id string) (*models.Submission, error)
	ListByInbox(ctx context.Context, inboxID string) ([]*models.Submission, error)
	DeleteByInbox(ctx context.Context, inboxID string) (int64, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type CounterStore interface {
	AdjustCounters(ctx context.Context, profileID string, submissions, bytes int64) error
}

type Service struct {
	inboxes     InboxStore
	submissions SubmissionStore
	counters    CounterStore
	store       storage.ObjectStore
	cache       cache.InboxCache
	notifier    cache.Notifier
	metrics     *metrics.Metrics
}

func NewService(
	inboxes InboxStore,
	submissions SubmissionStore,
	counters CounterStore,
	store storage.ObjectStore,
	inboxCache cache.InboxCache,
	notifier cache.Notifier,
	m *metrics.Metrics,
) *Service {
	return &Service{
		inboxes:     inboxes,
		submissions: submissions,
		counters:    counters,
		store:       store,
		cache:       inboxCache,
		notifier:    notifier,
		metrics:     m,
	}
}

// FileFailure is a blob that could not be removed and is now orphaned.
type FileFailure struct {
	SubmissionID string `json:"submission_id"`
	FileURL      string `json:"file_url"`
	Error        string `json:"error"`
}

// Outcome reports what an inbox cascade removed.
type Outcome struct {
	InboxID            string        `json:"inbox_id"`
	Slug               string        `json:"slug"`
	DeletedSubmissions int64         `json:"deleted_submissions"`
	DeletedFiles       int           `json:"deleted_files"`
	FailedFiles        []FileFailure `json:"failed_files,omitempty"`
}

// DeleteInbox removes an inbox, its submissions and their stored files. Blob
// failures are collected in the outcome and never stop the row deletes.
func (s *Service) DeleteInbox(ctx context.Context, inboxID, actorID string) (*Outcome, error) {
	inbox, err := s.inboxes.GetByID(ctx, inboxID)
	if err != nil {
		return nil, fmt.Errorf("failed to load inbox: %w", err)
	}
	if inbox == nil || inbox.CreatorID != actorID {
		return nil, &errors.UnauthorizedError{Resource: "inbox", ID: inboxID}
	}

	subs, err := s.submissions.ListByInbox(ctx, inboxID)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}

	outcome := &Outcome{InboxID: inbox.ID, Slug: inbox.Slug}
	outcome.FailedFiles = s.deleteBlobs(ctx, subs)
	outcome.DeletedFiles = len(subs) - len(outcome.FailedFiles)

	deleted, err := s.submissions.DeleteByInbox(ctx, inboxID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete submissions: %w", err)
	}
	outcome.DeletedSubmissions = deleted

	ok, err := s.inboxes.Delete(ctx, inboxID, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete inbox: %w", err)
	}
	if !ok {
		// ownership changed between the read and the delete
		return nil, &errors.UnauthorizedError{Resource: "inbox", ID: inboxID}
	}

	var bytes int64
	for _, sub := range subs {
		bytes += sub.FileSize
	}
	s.adjustCounters(ctx, actorID, -deleted, -bytes)

	s.cache.Invalidate(ctx, inbox.Slug)
	s.refresh(ctx, actorID)

	log.Info().
		Str("inbox_id", inboxID).
		Int64("submissions", deleted).
		Int("orphaned_files", len(outcome.FailedFiles)).
		Msg("inbox deleted")

	return outcome, nil
}

func (s *Service) deleteBlobs(ctx context.Context, subs []*models.Submission) []FileFailure {
	var (
		mu       sync.Mutex
		failures []FileFailure
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(blobDeleteLimit)

	for _, sub := range subs {
		sub := sub
		g.Go(func() error {
			err := s.store.Delete(gctx, sub.FileURL)
			s.metrics.Storage("delete", err)
			if err != nil {
				s.metrics.OrphanedBlob()
				log.Warn().Err(err).
					Str("submission_id", sub.ID).
					Str("file_url", sub.FileURL).
					Msg("orphaned blob during inbox delete")

				mu.Lock()
				failures = append(failures, FileFailure{SubmissionID: sub.ID, FileURL: sub.FileURL, Error: err.Error()})
				mu.Unlock()
			}
			// never cancel siblings
			return nil
		})
	}
	_ = g.Wait()

	return failures
}

// DeleteSubmission removes one submission. The blob goes first; if storage
// fails, the row is left untouched.
func (s *Service) DeleteSubmission(ctx context.Context, actorID, submissionID string) error {
	sub, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		return fmt.Errorf("failed to load submission: %w", err)
	}
	if sub == nil {
		return &errors.UnauthorizedError{Resource: "submission", ID: submissionID}
	}

	inbox, err := s.inboxes.GetByID(ctx, sub.InboxID)
	if err != nil {
		return fmt.Errorf("failed to load inbox: %w", err)
	}
	if inbox == nil || inbox.CreatorID != actorID {
		return &errors.UnauthorizedError{Resource: "submission", ID: submissionID}
	}

	err = s.store.Delete(ctx, sub.FileURL)
	s.metrics.Storage("delete", err)
	if err != nil {
		var storageErr *errors.StorageError
		if !errors.As(err, &storageErr) {
			err = &errors.StorageError{Op: "delete", Err: err}
		}
		return err
	}

	if _, err := s.submissions.Delete(ctx, submissionID); err != nil {
		return fmt.Errorf("failed to delete submission: %w", err)
	}

	s.adjustCounters(ctx, inbox.CreatorID, -1, -sub.FileSize)
	s.refresh(ctx, inbox.CreatorID)

	return nil
}

func (s *Service) adjustCounters(ctx context.Context, profileID string, submissions, bytes int64) {
	if submissions == 0 && bytes == 0 {
		return
	}
	if err := s.counters.AdjustCounters(ctx, profileID, submissions, bytes); err != nil {
		log.Warn().Err(err).Str("profile_id", profileID).Msg("failed to adjust usage counters")
	}
}

func (s *Service) refresh(ctx context.Context, creatorID string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Refresh(ctx, creatorID); err != nil {
		log.Warn().Err(err).Str("creator_id", creatorID).Msg("failed to publish refresh")
	}
}
