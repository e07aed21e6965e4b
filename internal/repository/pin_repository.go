package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/tapcore/tap-access/internal/model"
)

// PinRepo provides access to the pins table.  All mutating methods run
// inside the caller's transaction: a PIN is only ever created, consumed
// or invalidated while the owning access record's row lock is held, so
// "at most one unused PIN per record" holds without any lock of its own.
type PinRepo struct {
	db *sql.DB
}

// NewPinRepo returns a new PinRepo bound to the given database.
func NewPinRepo(db *sql.DB) *PinRepo { return &PinRepo{db: db} }

// CountUnusedTx returns the number of unused PINs owned by the record.
// Under the invariant this is zero or one; the issuer uses it to decide
// whether a fresh active-PIN slot must be reserved.
func (r *PinRepo) CountUnusedTx(ctx context.Context, tx *sql.Tx, accessID string) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pins WHERE access_id = ? AND used = false`,
		accessID,
	).Scan(&n)
	return n, err
}

// HasUnused reports whether the record currently owns an unused PIN.
// Read path for status; no transaction required.
func (r *PinRepo) HasUnused(ctx context.Context, accessID string) (bool, error) {
	var id string
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM pins WHERE access_id = ? AND used = false ORDER BY created_at DESC LIMIT 1`,
		accessID,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// DeleteUnusedTx invalidates every unused PIN owned by the record and
// returns how many were removed, so the caller can release the
// active-PIN slots they held.
func (r *PinRepo) DeleteUnusedTx(ctx context.Context, tx *sql.Tx, accessID string) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`DELETE FROM pins WHERE access_id = ? AND used = false`,
		accessID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CreateTx persists a fresh unused PIN for the record and returns its id.
func (r *PinRepo) CreateTx(ctx context.Context, tx *sql.Tx, accessID, code string) (string, error) {
	id := uuid.NewString()
	_, err := tx.ExecContext(ctx,
		`INSERT INTO pins (id, access_id, pin_code, used) VALUES (?, ?, ?, false)`,
		id, accessID, code,
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

// FindUnusedByCodeTx returns the newest unused PIN of the record whose
// code equals the submitted value, or ErrInvalidPin when none matches.
// The lookup is scoped to one access record, never global: a code
// issued to another identity can never unlock this one.
func (r *PinRepo) FindUnusedByCodeTx(ctx context.Context, tx *sql.Tx, accessID, code string) (*model.Pin, error) {
	const q = `SELECT id, access_id, pin_code, used, used_at, created_at
			   FROM pins
			   WHERE access_id = ? AND pin_code = ? AND used = false
			   ORDER BY created_at DESC LIMIT 1`
	var p model.Pin
	var usedAt sql.NullTime
	err := tx.QueryRowContext(ctx, q, accessID, code).Scan(
		&p.ID, &p.AccessID, &p.Code, &p.Used, &usedAt, &p.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrInvalidPin
	}
	if err != nil {
		return nil, err
	}
	if usedAt.Valid {
		t := usedAt.Time
		p.UsedAt = &t
	}
	return &p, nil
}

// MarkUsedTx consumes a PIN.  A consumed PIN never comes back: the
// unlock transition commits in the same transaction or neither does.
func (r *PinRepo) MarkUsedTx(ctx context.Context, tx *sql.Tx, id string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE pins SET used = true, used_at = UTC_TIMESTAMP() WHERE id = ?`,
		id,
	)
	return err
}
