package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/tapcore/tap-access/internal/model"
)

// AccessRepo provides persistence for access records, the per
// (album, email) verification and unlock state.  Records are created
// lazily on first touch.  Methods with a Tx suffix run inside a
// caller-managed transaction; the ForUpdate variants additionally take
// the row-level exclusive lock that serializes concurrent issue and
// redeem calls for the same pair.
type AccessRepo struct {
	db *sql.DB
}

// NewAccessRepo returns a new AccessRepo bound to the given database.
func NewAccessRepo(db *sql.DB) *AccessRepo { return &AccessRepo{db: db} }

const accessColumns = `id, album_id, email, verified, verified_at, unlocked, unlocked_at, remaining, created_at, updated_at`

func scanAccess(row *sql.Row) (*model.AccessRecord, error) {
	var rec model.AccessRecord
	var verifiedAt, unlockedAt sql.NullTime
	err := row.Scan(
		&rec.ID, &rec.AlbumID, &rec.Email, &rec.Verified, &verifiedAt,
		&rec.Unlocked, &unlockedAt, &rec.Remaining, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if verifiedAt.Valid {
		t := verifiedAt.Time
		rec.VerifiedAt = &t
	}
	if unlockedAt.Valid {
		t := unlockedAt.Time
		rec.UnlockedAt = &t
	}
	return &rec, nil
}

// Get loads the record for (albumID, email) without locking.  It
// returns sql.ErrNoRows when the pair has never been touched.
func (r *AccessRepo) Get(ctx context.Context, albumID, email string) (*model.AccessRecord, error) {
	const q = `SELECT ` + accessColumns + ` FROM access_records WHERE album_id = ? AND email = ?`
	return scanAccess(r.db.QueryRowContext(ctx, q, albumID, email))
}

// GetOrCreate loads the record for (albumID, email), creating it with
// the full redemption budget when absent.  Used by read paths (status)
// that do not need the row lock.
func (r *AccessRepo) GetOrCreate(ctx context.Context, albumID, email string, budget int) (*model.AccessRecord, error) {
	rec, err := r.Get(ctx, albumID, email)
	if err == nil {
		return rec, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}
	if err := r.insert(ctx, r.db, albumID, email, budget); err != nil {
		return nil, err
	}
	return r.Get(ctx, albumID, email)
}

// GetForUpdateTx loads the record for (albumID, email) with a
// SELECT ... FOR UPDATE lock.  It returns sql.ErrNoRows when the pair
// has never been touched; redemption and admin reset never create rows.
func (r *AccessRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, albumID, email string) (*model.AccessRecord, error) {
	const q = `SELECT ` + accessColumns + ` FROM access_records WHERE album_id = ? AND email = ? FOR UPDATE`
	return scanAccess(tx.QueryRowContext(ctx, q, albumID, email))
}

// GetOrCreateForUpdateTx loads the record for (albumID, email) with a
// SELECT ... FOR UPDATE lock, creating it first when absent.  Every
// issue and redeem transaction starts here; the lock is held until the
// caller commits or rolls back, totally ordering operations on one pair
// while leaving unrelated pairs fully concurrent.
func (r *AccessRepo) GetOrCreateForUpdateTx(ctx context.Context, tx *sql.Tx, albumID, email string, budget int) (*model.AccessRecord, error) {
	const q = `SELECT ` + accessColumns + ` FROM access_records WHERE album_id = ? AND email = ? FOR UPDATE`
	rec, err := scanAccess(tx.QueryRowContext(ctx, q, albumID, email))
	if err == nil {
		return rec, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}
	if err := r.insert(ctx, tx, albumID, email, budget); err != nil {
		return nil, err
	}
	return scanAccess(tx.QueryRowContext(ctx, q, albumID, email))
}

func (r *AccessRepo) insert(ctx context.Context, run execer, albumID, email string, budget int) error {
	const q = `INSERT INTO access_records (id, album_id, email, verified, unlocked, remaining)
			   VALUES (?, ?, ?, false, false, ?)`
	_, err := run.ExecContext(ctx, q, uuid.NewString(), albumID, email, budget)
	return err
}

// MarkVerified flips the record to verified and stamps verified_at.
// This is the sole path by which verified becomes true.
func (r *AccessRepo) MarkVerified(ctx context.Context, id string) error {
	const q = `UPDATE access_records
			   SET verified = true, verified_at = UTC_TIMESTAMP()
			   WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}

// UnlockTx performs the atomic unlock transition: unlocked becomes
// true, unlocked_at is stamped and the redemption budget is decremented
// by exactly one, floored at zero in the same statement.  The caller
// holds the row lock and commits together with the PIN consumption and
// the capacity bookkeeping, so no partial state is ever visible.
func (r *AccessRepo) UnlockTx(ctx context.Context, tx *sql.Tx, id string) error {
	const q = `UPDATE access_records
			   SET unlocked = true,
				   unlocked_at = UTC_TIMESTAMP(),
				   remaining = GREATEST(remaining - 1, 0)
			   WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, id)
	return err
}

// DeleteTx removes the record, forcing the pair through verification
// again.  Admin security reset is the only caller.
func (r *AccessRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM access_records WHERE id = ?`, id)
	return err
}
