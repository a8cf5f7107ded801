package repositories

import (
	"context"
	"database/sql"
	"time"

	"filedrop/internal/platform/models"

	"github.com/jmoiron/sqlx"
)

const inboxColumns = `id, creator_id, title, description, slug, icon, is_active, is_paused,
	allow_multiple_files, created_at, updated_at`

type InboxRepository struct {
	db *sqlx.DB
}

func NewInboxRepository(db *sqlx.DB) *InboxRepository {
	return &InboxRepository{db: db}
}

func (r *InboxRepository) Create(ctx context.Context, inbox *models.Inbox) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO inboxes (
			id, creator_id, title, description, slug, icon, is_active, is_paused,
			allow_multiple_files, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`),
		inbox.ID,
		inbox.CreatorID,
		inbox.Title,
		inbox.Description,
		inbox.Slug,
		inbox.Icon,
		inbox.IsActive,
		inbox.IsPaused,
		inbox.AllowMultipleFiles,
		inbox.CreatedAt,
		inbox.UpdatedAt,
	)
	return err
}

func (r *InboxRepository) get(ctx context.Context, where string, args ...interface{}) (*models.Inbox, error) {
	inbox := &models.Inbox{}
	query := r.db.Rebind(`SELECT ` + inboxColumns + ` FROM inboxes WHERE ` + where)
	if err := r.db.GetContext(ctx, inbox, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return inbox, nil
}

func (r *InboxRepository) GetByID(ctx context.Context, id string) (*models.Inbox, error) {
	return r.get(ctx, "id = ?", id)
}

func (r *InboxRepository) GetBySlug(ctx context.Context, slug string) (*models.Inbox, error) {
	return r.get(ctx, "slug = ?", slug)
}

func (r *InboxRepository) ListByCreator(ctx context.Context, creatorID string) ([]*models.Inbox, error) {
	inboxes := []*models.Inbox{}
	query := r.db.Rebind(`SELECT ` + inboxColumns + ` FROM inboxes WHERE creator_id = ? ORDER BY created_at DESC, id`)
	if err := r.db.SelectContext(ctx, &inboxes, query, creatorID); err != nil {
		return nil, err
	}
	return inboxes, nil
}

func (r *InboxRepository) CountByCreator(ctx context.Context, creatorID string) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, r.db.Rebind(`SELECT COUNT(*) FROM inboxes WHERE creator_id = ?`), creatorID)
	return count, err
}

// Update writes the editable fields, scoped to the owner.
func (r *InboxRepository) Update(ctx context.Context, inbox *models.Inbox) (bool, error) {
	inbox.UpdatedAt = time.Now().Unix()
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE inboxes SET
			title = ?, description = ?, icon = ?, allow_multiple_files = ?, updated_at = ?
		WHERE id = ? AND creator_id = ?
	`),
		inbox.Title,
		inbox.Description,
		inbox.Icon,
		inbox.AllowMultipleFiles,
		inbox.UpdatedAt,
		inbox.ID,
		inbox.CreatorID,
	)
	return affected(res, err)
}

func (r *InboxRepository) TogglePause(ctx context.Context, id, creatorID string) (bool, error) {
	return affected(r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE inboxes SET is_paused = NOT is_paused, updated_at = ? WHERE id = ? AND creator_id = ?
	`), time.Now().Unix(), id, creatorID))
}

func (r *InboxRepository) Delete(ctx context.Context, id, creatorID string) (bool, error) {
	return affected(r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM inboxes WHERE id = ? AND creator_id = ?`), id, creatorID))
}
