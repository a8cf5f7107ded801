package repositories

import (
	"context"
	"database/sql"
	"time"

	"filedrop/internal/platform/models"

	"github.com/jmoiron/sqlx"
)

const profileColumns = `id, email, full_name, subscription_tier, stripe_customer_id, stripe_subscription_id,
	total_submissions, total_storage_bytes, created_at, updated_at`

type ProfileRepository struct {
	db *sqlx.DB
}

func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) get(ctx context.Context, where string, arg interface{}) (*models.Profile, error) {
	profile := &models.Profile{}
	query := r.db.Rebind(`SELECT ` + profileColumns + ` FROM profiles WHERE ` + where)
	if err := r.db.GetContext(ctx, profile, query, arg); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return profile, nil
}

func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	return r.get(ctx, "id = ?", id)
}

func (r *ProfileRepository) GetByStripeCustomerID(ctx context.Context, customerID string) (*models.Profile, error) {
	return r.get(ctx, "stripe_customer_id = ?", customerID)
}

// EnsureExists inserts a basic-tier profile for id unless one is already stored.
func (r *ProfileRepository) EnsureExists(ctx context.Context, id, email string) (*models.Profile, error) {
	now := time.Now().Unix()
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO profiles (id, email, full_name, subscription_tier, created_at, updated_at)
		VALUES (?, ?, '', ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`), id, email, models.TierBasic, now, now)
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *ProfileRepository) UpdateFullName(ctx context.Context, id, fullName string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE profiles SET full_name = ?, updated_at = ? WHERE id = ?`),
		fullName, time.Now().Unix(), id)
	return err
}

func (r *ProfileRepository) SetStripeCustomerID(ctx context.Context, id, customerID string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE profiles SET stripe_customer_id = ?, updated_at = ? WHERE id = ?`),
		customerID, time.Now().Unix(), id)
	return err
}

// ActivateSubscription stores the subscription for a user id. The bool reports
// whether a profile matched.
func (r *ProfileRepository) ActivateSubscription(ctx context.Context, userID, subscriptionID, customerID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE profiles
		SET subscription_tier = ?, stripe_subscription_id = ?, stripe_customer_id = ?, updated_at = ?
		WHERE id = ?
	`), models.TierUnlimited, subscriptionID, customerID, time.Now().Unix(), userID)
	return affected(res, err)
}

func (r *ProfileRepository) SetTierByCustomer(ctx context.Context, customerID string, tier models.Tier) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE profiles SET subscription_tier = ?, updated_at = ? WHERE stripe_customer_id = ?
	`), tier, time.Now().Unix(), customerID)
	return affected(res, err)
}

func (r *ProfileRepository) CancelSubscriptionByCustomer(ctx context.Context, customerID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE profiles
		SET subscription_tier = ?, stripe_subscription_id = NULL, updated_at = ?
		WHERE stripe_customer_id = ?
	`), models.TierBasic, time.Now().Unix(), customerID)
	return affected(res, err)
}

// AdjustCounters applies deltas in a single statement; counters never drop below zero.
func (r *ProfileRepository) AdjustCounters(ctx context.Context, id string, submissions, bytes int64) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE profiles SET
			total_submissions = CASE WHEN total_submissions + ? < 0 THEN 0 ELSE total_submissions + ? END,
			total_storage_bytes = CASE WHEN total_storage_bytes + ? < 0 THEN 0 ELSE total_storage_bytes + ? END
		WHERE id = ?
	`), submissions, submissions, bytes, bytes, id)
	return err
}

// RecomputeCounters overwrites the cached counters with the creator's
// submission totals. The aggregate and the write are one statement, so a
// concurrent AdjustCounters is either included or applied afterwards.
func (r *ProfileRepository) RecomputeCounters(ctx context.Context, id string) (bool, error) {
	return affected(r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE profiles SET
			total_submissions = (
				SELECT COUNT(s.id) FROM submissions s
				JOIN inboxes i ON i.id = s.inbox_id
				WHERE i.creator_id = ?
			),
			total_storage_bytes = (
				SELECT COALESCE(SUM(s.file_size), 0) FROM submissions s
				JOIN inboxes i ON i.id = s.inbox_id
				WHERE i.creator_id = ?
			),
			updated_at = ?
		WHERE id = ?
	`), id, id, time.Now().Unix(), id))
}

func (r *ProfileRepository) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids, `SELECT id FROM profiles ORDER BY id`)
	return ids, err
}

func affected(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
