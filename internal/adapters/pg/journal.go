package pg

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Journal durably records confirmation failures: payment has succeeded but the
// backend could not produce booking records. These rows are what support works
// from when reconciling manually, so they must outlive the session.
type Journal struct {
	pool *pgxpool.Pool
}

func NewJournal(pool *pgxpool.Pool) *Journal {
	return &Journal{pool: pool}
}

type ReconciliationRecord struct {
	ID          uuid.UUID
	SessionID   string
	HoldGroupID string
	PaymentRef  string
	GuestName   string
	GuestEmail  string
	GuestPhone  string
	AmountMinor int64
	Cause       string
	CreatedAt   time.Time
	Resolved    bool
}

func (j *Journal) EnsureSchema(ctx context.Context) error {
	_, err := j.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS reconciliation_journal (
			id UUID PRIMARY KEY,
			session_id TEXT NOT NULL,
			hold_group_id TEXT NOT NULL,
			payment_ref TEXT NOT NULL,
			guest_name TEXT NOT NULL,
			guest_email TEXT NOT NULL,
			guest_phone TEXT NOT NULL,
			amount_minor BIGINT NOT NULL,
			cause TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			resolved BOOLEAN NOT NULL DEFAULT FALSE
		)
	`)
	return errors.Wrap(err, "ensure reconciliation_journal schema")
}

func (j *Journal) Record(ctx context.Context, rec ReconciliationRecord) error {
	if rec.ID == (uuid.UUID{}) {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := j.pool.Exec(ctx, `
		INSERT INTO reconciliation_journal
			(id, session_id, hold_group_id, payment_ref, guest_name, guest_email, guest_phone, amount_minor, cause, created_at, resolved)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, FALSE)
	`, rec.ID, rec.SessionID, rec.HoldGroupID, rec.PaymentRef, rec.GuestName, rec.GuestEmail, rec.GuestPhone, rec.AmountMinor, rec.Cause, rec.CreatedAt)
	return errors.Wrap(err, "record reconciliation entry")
}

// RecordFailure is the flat-argument form used by the workflow, which does not
// build journal records itself.
func (j *Journal) RecordFailure(ctx context.Context, sessionID, holdGroupID, paymentRef, guestName, guestEmail, guestPhone string, amountMinor int64, cause string) error {
	return j.Record(ctx, ReconciliationRecord{
		SessionID:   sessionID,
		HoldGroupID: holdGroupID,
		PaymentRef:  paymentRef,
		GuestName:   guestName,
		GuestEmail:  guestEmail,
		GuestPhone:  guestPhone,
		AmountMinor: amountMinor,
		Cause:       cause,
	})
}

func (j *Journal) Open(ctx context.Context) ([]ReconciliationRecord, error) {
	rows, err := j.pool.Query(ctx, `
		SELECT id, session_id, hold_group_id, payment_ref, guest_name, guest_email, guest_phone, amount_minor, cause, created_at, resolved
		FROM reconciliation_journal WHERE resolved = FALSE ORDER BY created_at
	`)
	if err != nil {
		return nil, errors.Wrap(err, "list open reconciliation entries")
	}
	defer rows.Close()

	var recs []ReconciliationRecord
	for rows.Next() {
		var rec ReconciliationRecord
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.HoldGroupID, &rec.PaymentRef, &rec.GuestName, &rec.GuestEmail, &rec.GuestPhone, &rec.AmountMinor, &rec.Cause, &rec.CreatedAt, &rec.Resolved); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (j *Journal) MarkResolved(ctx context.Context, id uuid.UUID) error {
	result, err := j.pool.Exec(ctx, `
		UPDATE reconciliation_journal SET resolved = TRUE WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return errors.Newf("reconciliation entry %s not found", id)
	}
	return nil
}
