package repository

import (
	"context"
	"database/sql"

	"github.com/tapcore/tap-access/internal/model"
)

// CapacityStats reports the state of one album counter after a
// reservation attempt or a read.  Remaining is always Limit-Used,
// floored at zero.
type CapacityStats struct {
	Used      uint32 `json:"used"`
	Remaining uint32 `json:"remaining"`
	Limit     uint32 `json:"limit"`
}

// AlbumCapacity bundles both counters for responses and status reads.
type AlbumCapacity struct {
	Unlocks    CapacityStats `json:"unlocks"`
	ActivePins CapacityStats `json:"active_pins"`
}

// AlbumRepo is the capacity governor.  The counters live on the albums
// row itself, so each reservation is one conditional UPDATE that
// increments only while below the ceiling.  There is no read-then-write
// window: two concurrent reservations for the same album serialize on
// the row and the loser of the race observes RowsAffected == 0.
type AlbumRepo struct {
	db *sql.DB
}

// NewAlbumRepo returns a new AlbumRepo bound to the given database.
func NewAlbumRepo(db *sql.DB) *AlbumRepo { return &AlbumRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions
// spanning several repositories.
func (r *AlbumRepo) DB() *sql.DB { return r.db }

// Ensure upserts the album row this service owns for a given album id.
// The surrounding product calls this when an album is published; the
// counters are preserved on conflict, only slug and gating flag follow
// the caller.
func (r *AlbumRepo) Ensure(ctx context.Context, id, slug string, gateEnabled bool, maxUnlocks, maxActivePins uint32) error {
	const q = `INSERT INTO albums (id, slug, email_gate_enabled, max_unlocks, max_active_pins)
			   VALUES (?, ?, ?, ?, ?)
			   ON DUPLICATE KEY UPDATE slug = VALUES(slug),
									   email_gate_enabled = VALUES(email_gate_enabled),
									   max_unlocks = VALUES(max_unlocks),
									   max_active_pins = VALUES(max_active_pins)`
	_, err := r.db.ExecContext(ctx, q, id, slug, gateEnabled, maxUnlocks, maxActivePins)
	return err
}

// Get loads one album row.  It returns ErrAlbumNotFound when the id is
// unknown.
func (r *AlbumRepo) Get(ctx context.Context, id string) (*model.Album, error) {
	const q = `SELECT id, slug, email_gate_enabled, unlock_count, active_pin_count,
					  max_unlocks, max_active_pins, created_at, updated_at
			   FROM albums WHERE id = ?`
	var a model.Album
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&a.ID, &a.Slug, &a.EmailGateEnabled, &a.UnlockCount, &a.ActivePinCount,
		&a.MaxUnlocks, &a.MaxActivePins, &a.CreatedAt, &a.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrAlbumNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Delete removes an album row; access records and pins cascade.
func (r *AlbumRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM albums WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAlbumNotFound
	}
	return nil
}

// execer lets every reservation primitive run either on the pool or
// inside a caller-managed transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// ReserveUnlockSlot atomically increments unlock_count if and only if
// it is below the album's ceiling.  The returned stats reflect the
// counter after the attempt; ok is false when the ceiling is saturated.
// Unknown albums yield ErrAlbumNotFound.
func (r *AlbumRepo) ReserveUnlockSlot(ctx context.Context, albumID string) (bool, CapacityStats, error) {
	return r.reserveUnlockSlot(ctx, r.db, albumID)
}

// ReserveUnlockSlotTx is ReserveUnlockSlot inside an existing transaction.
func (r *AlbumRepo) ReserveUnlockSlotTx(ctx context.Context, tx *sql.Tx, albumID string) (bool, CapacityStats, error) {
	return r.reserveUnlockSlot(ctx, tx, albumID)
}

func (r *AlbumRepo) reserveUnlockSlot(ctx context.Context, run execer, albumID string) (bool, CapacityStats, error) {
	const q = `UPDATE albums
			   SET unlock_count = unlock_count + 1
			   WHERE id = ? AND unlock_count < max_unlocks`
	res, err := run.ExecContext(ctx, q, albumID)
	if err != nil {
		return false, CapacityStats{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, CapacityStats{}, err
	}
	stats, err := readStats(ctx, run, albumID, `unlock_count`, `max_unlocks`)
	if err != nil {
		return false, CapacityStats{}, err
	}
	return n > 0, stats, nil
}

// ReserveActivePinSlot atomically increments active_pin_count if and
// only if it is below the album's ceiling.
func (r *AlbumRepo) ReserveActivePinSlot(ctx context.Context, albumID string) (bool, CapacityStats, error) {
	return r.reserveActivePinSlot(ctx, r.db, albumID)
}

// ReserveActivePinSlotTx is ReserveActivePinSlot inside an existing transaction.
func (r *AlbumRepo) ReserveActivePinSlotTx(ctx context.Context, tx *sql.Tx, albumID string) (bool, CapacityStats, error) {
	return r.reserveActivePinSlot(ctx, tx, albumID)
}

func (r *AlbumRepo) reserveActivePinSlot(ctx context.Context, run execer, albumID string) (bool, CapacityStats, error) {
	const q = `UPDATE albums
			   SET active_pin_count = active_pin_count + 1
			   WHERE id = ? AND active_pin_count < max_active_pins`
	res, err := run.ExecContext(ctx, q, albumID)
	if err != nil {
		return false, CapacityStats{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, CapacityStats{}, err
	}
	stats, err := readStats(ctx, run, albumID, `active_pin_count`, `max_active_pins`)
	if err != nil {
		return false, CapacityStats{}, err
	}
	return n > 0, stats, nil
}

// ReleaseActivePinSlots decrements active_pin_count by count, floored
// at zero.  Used when a PIN is redeemed or superseded.
func (r *AlbumRepo) ReleaseActivePinSlots(ctx context.Context, albumID string, count uint32) error {
	return releaseActivePinSlots(ctx, r.db, albumID, count)
}

// ReleaseActivePinSlotsTx is ReleaseActivePinSlots inside an existing transaction.
func (r *AlbumRepo) ReleaseActivePinSlotsTx(ctx context.Context, tx *sql.Tx, albumID string, count uint32) error {
	return releaseActivePinSlots(ctx, tx, albumID, count)
}

func releaseActivePinSlots(ctx context.Context, run execer, albumID string, count uint32) error {
	if count == 0 {
		return nil
	}
	// LEAST() floors the counter at zero inside the same statement.
	const q = `UPDATE albums
			   SET active_pin_count = active_pin_count - LEAST(active_pin_count, ?)
			   WHERE id = ?`
	_, err := run.ExecContext(ctx, q, count, albumID)
	return err
}

// Capacity returns both counters without mutating anything.
func (r *AlbumRepo) Capacity(ctx context.Context, albumID string) (AlbumCapacity, error) {
	return capacity(ctx, r.db, albumID)
}

// CapacityTx is Capacity inside an existing transaction.
func (r *AlbumRepo) CapacityTx(ctx context.Context, tx *sql.Tx, albumID string) (AlbumCapacity, error) {
	return capacity(ctx, tx, albumID)
}

func capacity(ctx context.Context, run execer, albumID string) (AlbumCapacity, error) {
	const q = `SELECT unlock_count, max_unlocks, active_pin_count, max_active_pins
			   FROM albums WHERE id = ?`
	var ac AlbumCapacity
	err := run.QueryRowContext(ctx, q, albumID).Scan(
		&ac.Unlocks.Used, &ac.Unlocks.Limit,
		&ac.ActivePins.Used, &ac.ActivePins.Limit,
	)
	if err == sql.ErrNoRows {
		return AlbumCapacity{}, ErrAlbumNotFound
	}
	if err != nil {
		return AlbumCapacity{}, err
	}
	ac.Unlocks.Remaining = headroom(ac.Unlocks)
	ac.ActivePins.Remaining = headroom(ac.ActivePins)
	return ac, nil
}

func readStats(ctx context.Context, run execer, albumID, usedCol, limitCol string) (CapacityStats, error) {
	q := `SELECT ` + usedCol + `, ` + limitCol + ` FROM albums WHERE id = ?`
	var s CapacityStats
	err := run.QueryRowContext(ctx, q, albumID).Scan(&s.Used, &s.Limit)
	if err == sql.ErrNoRows {
		return CapacityStats{}, ErrAlbumNotFound
	}
	if err != nil {
		return CapacityStats{}, err
	}
	s.Remaining = headroom(s)
	return s, nil
}

func headroom(s CapacityStats) uint32 {
	if s.Used >= s.Limit {
		return 0
	}
	return s.Limit - s.Used
}
