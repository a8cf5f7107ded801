package audit

import (
	"context"
	"database/sql"
	"time"

	"filedrop/internal/platform/models"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

// Logger keeps a row per payment processor event delivery.
type Logger struct {
	db *sqlx.DB
}

func NewLogger(db *sqlx.DB) *Logger {
	return &Logger{db: db}
}

// Received records a delivery and returns how many times the event has now been seen.
func (l *Logger) Received(ctx context.Context, eventID, eventType, customerID string) (int, error) {
	var customer *string
	if customerID != "" {
		customer = &customerID
	}

	_, err := l.db.ExecContext(ctx, l.db.Rebind(`
		INSERT INTO billing_events (id, event_type, customer_id, deliveries, received_at)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT (id) DO UPDATE SET
			deliveries = billing_events.deliveries + 1,
			received_at = excluded.received_at
	`), eventID, eventType, customer, time.Now().Unix())
	if err != nil {
		return 0, err
	}

	var deliveries int
	err = l.db.GetContext(ctx, &deliveries, l.db.Rebind(`SELECT deliveries FROM billing_events WHERE id = ?`), eventID)
	return deliveries, err
}

// Processed stamps the outcome of applying an event. Failures here are only logged.
func (l *Logger) Processed(ctx context.Context, eventID string, procErr error) {
	var errText *string
	if procErr != nil {
		s := procErr.Error()
		errText = &s
	}

	_, err := l.db.ExecContext(ctx, l.db.Rebind(`
		UPDATE billing_events SET processed_at = ?, error = ? WHERE id = ?
	`), time.Now().Unix(), errText, eventID)
	if err != nil {
		log.Warn().Err(err).Str("event_id", eventID).Msg("failed to record billing event outcome")
	}
}

func (l *Logger) Get(ctx context.Context, eventID string) (*models.BillingEvent, error) {
	event := &models.BillingEvent{}
	err := l.db.GetContext(ctx, event, l.db.Rebind(`
		SELECT id, event_type, customer_id, deliveries, received_at, processed_at, error
		FROM billing_events WHERE id = ?
	`), eventID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return event, nil
}
