package repositories

import (
	"context"
	"database/sql"

	"filedrop/internal/platform/models"

	"github.com/jmoiron/sqlx"
)

const submissionColumns = `id, inbox_id, submitter_name, submitter_user_id, file_url, file_name,
	file_size, file_type, created_at`

type SubmissionRepository struct {
	db *sqlx.DB
}

func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

func (r *SubmissionRepository) Create(ctx context.Context, s *models.Submission) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO submissions (
			id, inbox_id, submitter_name, submitter_user_id, file_url, file_name,
			file_size, file_type, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`),
		s.ID,
		s.InboxID,
		s.SubmitterName,
		s.SubmitterUserID,
		s.FileURL,
		s.FileName,
		s.FileSize,
		s.FileType,
		s.CreatedAt,
	)
	return err
}

func (r *SubmissionRepository) GetByID(ctx context.Context, id string) (*models.Submission, error) {
	s := &models.Submission{}
	query := r.db.Rebind(`SELECT ` + submissionColumns + ` FROM submissions WHERE id = ?`)
	if err := r.db.GetContext(ctx, s, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

func (r *SubmissionRepository) ListByInbox(ctx context.Context, inboxID string) ([]*models.Submission, error) {
	submissions := []*models.Submission{}
	query := r.db.Rebind(`SELECT ` + submissionColumns + ` FROM submissions WHERE inbox_id = ? ORDER BY created_at DESC, id`)
	if err := r.db.SelectContext(ctx, &submissions, query, inboxID); err != nil {
		return nil, err
	}
	return submissions, nil
}

func (r *SubmissionRepository) DeleteByInbox(ctx context.Context, inboxID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM submissions WHERE inbox_id = ?`), inboxID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *SubmissionRepository) Delete(ctx context.Context, id string) (bool, error) {
	return affected(r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM submissions WHERE id = ?`), id))
}
