package model

import "time"

// Album is the protected content unit referenced by this service.  The
// surrounding product owns its editorial data; only the gating flag and
// the two capacity counters live here.  Both counters are mutated
// exclusively through single conditional UPDATE statements so that
// concurrent reservations can never overshoot their ceilings.
//
// Fields:
//  ID               – external album identifier.
//  Slug             – public URL slug used when building deep links.
//  EmailGateEnabled – when false, assets are signed without verification.
//  UnlockCount      – cumulative successful PIN redemptions.
//  ActivePinCount   – currently outstanding, unredeemed PINs.
//  MaxUnlocks       – ceiling for UnlockCount.
//  MaxActivePins    – ceiling for ActivePinCount.
type Album struct {
	ID               string    // albums.id
	Slug             string    // albums.slug
	EmailGateEnabled bool      // albums.email_gate_enabled
	UnlockCount      uint32    // albums.unlock_count
	ActivePinCount   uint32    // albums.active_pin_count
	MaxUnlocks       uint32    // albums.max_unlocks
	MaxActivePins    uint32    // albums.max_active_pins
	CreatedAt        time.Time // albums.created_at
	UpdatedAt        time.Time // albums.updated_at
}
