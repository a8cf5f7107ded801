package submissions

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"filedrop/internal/engine/quota"
	"filedrop/internal/pkg/errors"
	"filedrop/internal/pkg/metrics"
	"filedrop/internal/pkg/parser"
	"filedrop/internal/pkg/validator"
	"filedrop/internal/platform/cache"
	"filedrop/internal/platform/models"
	"filedrop/internal/platform/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// sniffLen is how much of a file is peeked at for MIME detection.
const sniffLen = 3072

// InboxResolver finds the target of a submission.
type InboxResolver interface {
	BySlug(ctx context.Context, slug string) (*models.Inbox, error)
}

type InboxStore interface {
	GetByID(ctx context.Context, id string) (*models.Inbox, error)
}

type SubmissionStore interface {
	Create(ctx context.Context, s *models.Submission) error
	ListByInbox(ctx context.Context, inboxID string) ([]*models.Submission, error)
}

type ProfileStore interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	AdjustCounters(ctx context.Context, id string, submissions, bytes int64) error
}

type Service struct {
	resolver    InboxResolver
	inboxes     InboxStore
	submissions SubmissionStore
	profiles    ProfileStore
	store       storage.ObjectStore
	notifier    cache.Notifier
	metrics     *metrics.Metrics
	now         func() time.Time
}

func NewService(
	resolver InboxResolver,
	inboxes InboxStore,
	submissions SubmissionStore,
	profiles ProfileStore,
	store storage.ObjectStore,
	notifier cache.Notifier,
	m *metrics.Metrics,
) *Service {
	return &Service{
		resolver:    resolver,
		inboxes:     inboxes,
		submissions: submissions,
		profiles:    profiles,
		store:       store,
		notifier:    notifier,
		metrics:     m,
		now:         time.Now,
	}
}

// File is one uploaded part. Open is called at most once.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

type SubmitInput struct {
	// Slug or InboxID selects the target; Slug wins when both are set.
	Slug          string
	InboxID       string
	SubmitterName string
	SubmitterID   *string
	Files         []File
}

// FailedFile names the file a submit stopped on. Error is safe to show the
// submitter; Err keeps the cause for logs and status mapping.
type FailedFile struct {
	Name  string `json:"name"`
	Error string `json:"error"`
	Err   error  `json:"-"`
}

// Result is the structured outcome of a submit. Files before a failure stay
// committed; files after it are listed as skipped.
type Result struct {
	InboxID  string               `json:"inbox_id"`
	Accepted []*models.Submission `json:"accepted"`
	Failed   *FailedFile          `json:"failed,omitempty"`
	Skipped  []string             `json:"skipped,omitempty"`
}

func (r *Result) Partial() bool {
	return r.Failed != nil && len(r.Accepted) > 0
}

// Submit validates the request, then uploads and records files one at a time.
// A precondition failure is returned as an error with nothing written.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*Result, error) {
	inbox, err := s.target(ctx, in)
	if err != nil {
		return nil, err
	}
	if inbox.IsPaused {
		return nil, &errors.InboxUnavailableError{Reason: errors.InboxPaused}
	}

	creator, err := s.profiles.GetByID(ctx, inbox.CreatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load creator: %w", err)
	}
	if creator != nil && quota.IsWithinStorageLimit(creator.SubscriptionTier, creator.TotalStorageBytes) != nil {
		return nil, &errors.InboxUnavailableError{Reason: errors.InboxPaused}
	}

	name, err := validator.SubmitterName(in.SubmitterName)
	if err != nil {
		return nil, err
	}

	files := in.Files
	if len(files) == 0 {
		return nil, errors.NewValidation("files", "Please select at least one file")
	}
	if !inbox.AllowMultipleFiles {
		files = files[:1]
	}

	for _, f := range files {
		if err := quota.CheckFileSize(f.Name, f.Size); err != nil {
			s.metrics.Submission("rejected", 0)
			return nil, err
		}
	}

	result := &Result{InboxID: inbox.ID, Accepted: []*models.Submission{}}
	var bytes int64

	for i, f := range files {
		sub, err := s.upload(ctx, inbox, name, in.SubmitterID, f)
		if err != nil {
			s.metrics.Submission("failed", 0)
			log.Warn().Err(err).
				Str("inbox_id", inbox.ID).
				Str("file", f.Name).
				Int("accepted", len(result.Accepted)).
				Msg("submission stopped on failed file")

			result.Failed = &FailedFile{Name: f.Name, Error: errors.PublicMessage(err), Err: err}
			for _, rest := range files[i+1:] {
				result.Skipped = append(result.Skipped, rest.Name)
			}
			break
		}

		s.metrics.Submission("accepted", sub.FileSize)
		result.Accepted = append(result.Accepted, sub)
		bytes += sub.FileSize
	}

	if n := int64(len(result.Accepted)); n > 0 {
		if err := s.profiles.AdjustCounters(ctx, inbox.CreatorID, n, bytes); err != nil {
			log.Warn().Err(err).Str("profile_id", inbox.CreatorID).Msg("failed to adjust usage counters")
		}
		if s.notifier != nil {
			if err := s.notifier.Refresh(ctx, inbox.CreatorID); err != nil {
				log.Warn().Err(err).Str("creator_id", inbox.CreatorID).Msg("failed to publish refresh")
			}
		}
	}

	return result, nil
}

func (s *Service) target(ctx context.Context, in SubmitInput) (*models.Inbox, error) {
	if in.Slug != "" {
		return s.resolver.BySlug(ctx, in.Slug)
	}

	inbox, err := s.inboxes.GetByID(ctx, in.InboxID)
	if err != nil {
		return nil, fmt.Errorf("failed to load inbox: %w", err)
	}
	if inbox == nil || !inbox.IsActive {
		return nil, &errors.InboxUnavailableError{Reason: errors.InboxNotFound}
	}
	return inbox, nil
}

// upload puts a single file in the object store and records it.
func (s *Service) upload(ctx context.Context, inbox *models.Inbox, submitter string, submitterID *string, f File) (*models.Submission, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.Name, err)
	}
	defer rc.Close()

	br := bufio.NewReaderSize(rc, sniffLen)
	head, _ := br.Peek(sniffLen)
	contentType := parser.ContentType(f.ContentType, head)

	id := uuid.New().String()
	now := s.now()
	url, err := s.store.Put(ctx, parser.ObjectName(now, id, f.Name), contentType, br, f.Size)
	s.metrics.Storage("put", err)
	if err != nil {
		var storageErr *errors.StorageError
		if !errors.As(err, &storageErr) {
			err = &errors.StorageError{Op: "put", Err: err}
		}
		return nil, err
	}

	sub := &models.Submission{
		ID:              id,
		InboxID:         inbox.ID,
		SubmitterName:   submitter,
		SubmitterUserID: submitterID,
		FileURL:         url,
		FileName:        f.Name,
		FileSize:        f.Size,
		FileType:        contentType,
		CreatedAt:       now.Unix(),
	}
	if err := s.submissions.Create(ctx, sub); err != nil {
		if delErr := s.store.Delete(ctx, url); delErr != nil {
			s.metrics.OrphanedBlob()
			log.Warn().Err(delErr).Str("file_url", url).Msg("failed to remove blob after insert error")
		}
		return nil, fmt.Errorf("failed to record submission: %w", err)
	}

	return sub, nil
}

// ListByInbox returns an inbox's submissions to its creator.
func (s *Service) ListByInbox(ctx context.Context, actorID, inboxID string) ([]*models.Submission, error) {
	inbox, err := s.inboxes.GetByID(ctx, inboxID)
	if err != nil {
		return nil, fmt.Errorf("failed to load inbox: %w", err)
	}
	if inbox == nil || inbox.CreatorID != actorID {
		return nil, &errors.UnauthorizedError{Resource: "inbox", ID: inboxID}
	}
	return s.submissions.ListByInbox(ctx, inboxID)
}
