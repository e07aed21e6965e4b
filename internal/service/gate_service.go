package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/tapcore/tap-access/internal/repository"
	"github.com/tapcore/tap-access/internal/utils"
)

// GateService runs the PIN lifecycle: issuing a fresh single-use PIN to
// a verified visitor and redeeming it to unlock the album. Both paths
// are transaction scripts that lock the (album, email) access record
// with SELECT ... FOR UPDATE before touching pins or counters, so a
// visitor hammering both endpoints concurrently still serializes on
// their own record.
type GateService struct {
	db     *sql.DB
	albums *repository.AlbumRepo
	access *repository.AccessRepo
	pins   *repository.PinRepo
}

// NewGateService wires the PIN lifecycle over a shared database handle.
func NewGateService(albums *repository.AlbumRepo, access *repository.AccessRepo, pins *repository.PinRepo) *GateService {
	return &GateService{
		db:     albums.DB(),
		albums: albums,
		access: access,
		pins:   pins,
	}
}

// IssueResult carries the freshly minted PIN plus the visitor's quota
// and the album's counters after the issue.
type IssueResult struct {
	Pin       string
	Remaining int
	Capacity  repository.AlbumCapacity
}

// Issue mints a new PIN for a verified, not-yet-unlocked access record.
// Any prior unused PINs for the record are superseded: they are deleted
// and their active-pin slots released, so a record never holds more
// than one live slot. Reissuing therefore never consumes extra
// capacity; only the first PIN for a record reserves a slot.
func (s *GateService) Issue(ctx context.Context, albumID, email string, budget int) (*IssueResult, error) {
	normalized := utils.NormalizeEmail(email)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	record, err := s.access.GetOrCreateForUpdateTx(ctx, tx, albumID, normalized, budget)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrNotVerified
		}
		return nil, err
	}
	if !record.Verified {
		return nil, repository.ErrNotVerified
	}
	if record.Unlocked {
		return nil, repository.ErrAlreadyUnlocked
	}
	if record.Remaining <= 0 {
		return nil, repository.ErrQuotaExhausted
	}

	// An exhausted unlock pool makes any new PIN unredeemable, so the
	// issue is refused up front without reserving anything.
	capBefore, err := s.albums.CapacityTx(ctx, tx, albumID)
	if err != nil {
		return nil, err
	}
	if capBefore.Unlocks.Remaining == 0 {
		return nil, repository.ErrCapacityReached
	}

	unused, err := s.pins.CountUnusedTx(ctx, tx, record.ID)
	if err != nil {
		return nil, err
	}

	reserved := false
	if unused == 0 {
		ok, _, err := s.albums.ReserveActivePinSlotTx(ctx, tx, albumID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, repository.ErrCapacityReached
		}
		reserved = true
	}

	deleted, err := s.pins.DeleteUnusedTx(ctx, tx, record.ID)
	if err != nil {
		return nil, err
	}

	// The record now holds `held` slots but must end the transaction
	// holding exactly one.
	held := deleted
	if reserved {
		held++
	}
	if surplus := held - 1; surplus > 0 {
		if err := s.albums.ReleaseActivePinSlotsTx(ctx, tx, albumID, uint32(surplus)); err != nil {
			return nil, err
		}
	}

	code, err := utils.GenerateCode()
	if err != nil {
		return nil, err
	}
	if _, err := s.pins.CreateTx(ctx, tx, record.ID, code); err != nil {
		return nil, err
	}

	capAfter, err := s.albums.CapacityTx(ctx, tx, albumID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	return &IssueResult{Pin: code, Remaining: record.Remaining, Capacity: capAfter}, nil
}

// RedeemResult reports the outcome of a redemption. AlreadyUnlocked is
// true when the record was unlocked before this call; the operation is
// idempotent in that case and consumes nothing.
type RedeemResult struct {
	Remaining       int
	AlreadyUnlocked bool
	Capacity        repository.AlbumCapacity
}

// Redeem consumes an unused PIN, flips the access record to unlocked,
// reserves one unlock slot and releases the PIN's active-pin slot. The
// three counter movements and the row updates commit atomically or not
// at all.
func (s *GateService) Redeem(ctx context.Context, albumID, email, pin string) (*RedeemResult, error) {
	normalized := utils.NormalizeEmail(email)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	record, err := s.access.GetForUpdateTx(ctx, tx, albumID, normalized)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrNotVerified
		}
		return nil, err
	}
	if !record.Verified {
		return nil, repository.ErrNotVerified
	}

	if record.Unlocked {
		// Already through the gate: report current state, move nothing.
		ac, err := s.albums.CapacityTx(ctx, tx, albumID)
		if err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		committed = true
		return &RedeemResult{Remaining: record.Remaining, AlreadyUnlocked: true, Capacity: ac}, nil
	}

	match, err := s.pins.FindUnusedByCodeTx(ctx, tx, record.ID, strings.TrimSpace(pin))
	if err != nil {
		return nil, err
	}

	ok, _, err := s.albums.ReserveUnlockSlotTx(ctx, tx, albumID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, repository.ErrCapacityReached
	}

	if err := s.pins.MarkUsedTx(ctx, tx, match.ID); err != nil {
		return nil, err
	}
	if err := s.albums.ReleaseActivePinSlotsTx(ctx, tx, albumID, 1); err != nil {
		return nil, err
	}
	if err := s.access.UnlockTx(ctx, tx, record.ID); err != nil {
		return nil, err
	}

	ac, err := s.albums.CapacityTx(ctx, tx, albumID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	remaining := record.Remaining - 1
	if remaining < 0 {
		remaining = 0
	}
	return &RedeemResult{Remaining: remaining, Capacity: ac}, nil
}

// StatusResult is the read-only view of one visitor's standing on one
// album, plus the album's shared counters.
type StatusResult struct {
	Verified  bool
	Unlocked  bool
	Remaining int
	ActivePin bool
	Capacity  repository.AlbumCapacity
}

// Status reads the visitor's record and the album counters without
// locking anything. The record is created on first sight so a verified
// token always maps to a concrete quota.
func (s *GateService) Status(ctx context.Context, albumID, email string, budget int) (*StatusResult, error) {
	normalized := utils.NormalizeEmail(email)

	ac, err := s.albums.Capacity(ctx, albumID)
	if err != nil {
		return nil, err
	}

	record, err := s.access.GetOrCreate(ctx, albumID, normalized, budget)
	if err != nil {
		return nil, err
	}

	active, err := s.pins.HasUnused(ctx, record.ID)
	if err != nil {
		return nil, err
	}

	return &StatusResult{
		Verified:  record.Verified,
		Unlocked:  record.Unlocked,
		Remaining: record.Remaining,
		ActivePin: active,
		Capacity:  ac,
	}, nil
}

// ResetAccess wipes one visitor's record for an album: unused PIN slots
// are released back to the pool, then the record and its pins are
// removed. A missing record is a no-op so the operation is safe to
// repeat.
func (s *GateService) ResetAccess(ctx context.Context, albumID, email string) error {
	normalized := utils.NormalizeEmail(email)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	record, err := s.access.GetForUpdateTx(ctx, tx, albumID, normalized)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil
		}
		return err
	}

	unused, err := s.pins.CountUnusedTx(ctx, tx, record.ID)
	if err != nil {
		return err
	}
	if unused > 0 {
		if err := s.albums.ReleaseActivePinSlotsTx(ctx, tx, albumID, uint32(unused)); err != nil {
			return err
		}
	}

	// Pins cascade with the record.
	if err := s.access.DeleteTx(ctx, tx, record.ID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
