package model

import "time"

// AccessRecord tracks the verification and unlock state of one
// (album, email) pair.  Records are created lazily on first touch with
// the full redemption budget and are only removed when the album is
// deleted or an admin resets security for the pair.
//
// Invariants: Unlocked implies Verified; Remaining only ever decreases,
// by exactly one per successful redemption, and never drops below zero.
type AccessRecord struct {
	ID         string     // access_records.id
	AlbumID    string     // access_records.album_id
	Email      string     // access_records.email (normalized)
	Verified   bool       // access_records.verified
	VerifiedAt *time.Time // access_records.verified_at (nullable)
	Unlocked   bool       // access_records.unlocked
	UnlockedAt *time.Time // access_records.unlocked_at (nullable)
	Remaining  int        // access_records.remaining
	CreatedAt  time.Time  // access_records.created_at
	UpdatedAt  time.Time  // access_records.updated_at
}
