package model

import "time"

// Verification is a pending email-ownership challenge ("magic code").
// At most one pending row exists per (album, email) pair; requesting a
// new code replaces the prior one.  Expiry is checked lazily when the
// code is submitted, so no background sweep is required for correctness.
type Verification struct {
	ID        string    // verifications.id (opaque verification id)
	AlbumID   string    // verifications.album_id
	Email     string    // verifications.email (normalized)
	Code      string    // verifications.code (6 ASCII digits)
	ExpiresAt time.Time // verifications.expires_at
	CreatedAt time.Time // verifications.created_at
}
