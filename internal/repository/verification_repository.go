package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/tapcore/tap-access/internal/model"
)

// VerificationRepo provides access to pending email-ownership challenges.
// A pair holds at most one pending code: Replace deletes before it
// inserts, so requesting a new code always invalidates the previous one
// (last-writer-wins).  Expiry is enforced lazily when a code is
// submitted; a hygiene sweep may delete stale rows but correctness does
// not depend on it.
type VerificationRepo struct {
	db *sql.DB
}

// NewVerificationRepo returns a new VerificationRepo bound to the given database.
func NewVerificationRepo(db *sql.DB) *VerificationRepo { return &VerificationRepo{db: db} }

// Replace removes any pending code for (albumID, email) and persists a
// fresh one, returning the generated verification id.  Both statements
// run in one transaction so racing requests for the same pair cannot
// interleave and leave two pending rows.
func (r *VerificationRepo) Replace(ctx context.Context, albumID, email, code string, expiresAt time.Time) (string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM verifications WHERE album_id = ? AND email = ?`,
		albumID, email,
	); err != nil {
		return "", err
	}
	id := uuid.NewString()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO verifications (id, album_id, email, code, expires_at) VALUES (?, ?, ?, ?, ?)`,
		id, albumID, email, code, expiresAt.UTC().Format("2006-01-02 15:04:05"),
	); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	committed = true
	return id, nil
}

// Get loads one pending verification by id.  It returns
// ErrVerificationNotFound for unknown or already-consumed ids.
func (r *VerificationRepo) Get(ctx context.Context, id string) (*model.Verification, error) {
	const q = `SELECT id, album_id, email, code, expires_at, created_at FROM verifications WHERE id = ?`
	var v model.Verification
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&v.ID, &v.AlbumID, &v.Email, &v.Code, &v.ExpiresAt, &v.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrVerificationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Delete removes a pending verification by id.  Deleting an id that is
// already gone is not an error; two racing verify calls both reach here
// and only one of them will have seen the row.
func (r *VerificationRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM verifications WHERE id = ?`, id)
	return err
}

// DeleteExpired removes all pending rows past their TTL.  Optional
// hygiene for a periodic sweep; returns the number of rows removed.
func (r *VerificationRepo) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM verifications WHERE expires_at <= UTC_TIMESTAMP()`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
