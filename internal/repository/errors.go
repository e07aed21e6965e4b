// Package repository defines the data access layer and the sentinel
// errors shared across it. The sentinels form the user-facing error
// taxonomy of the access protocol: handlers translate them into HTTP
// responses with errors.Is, and services return them for every expected
// failure so that nothing in the core uses panics or generic errors for
// ordinary control flow ("wrong PIN" is an outcome, not an exception).
package repository

import "errors"

// ErrAlbumNotFound is returned when an operation references an album
// this service has never been told about.
var ErrAlbumNotFound = errors.New("album not found")

// ErrVerificationNotFound is returned when a verification id does not
// resolve to a pending code, including ids already consumed once.
var ErrVerificationNotFound = errors.New("verification not found")

// ErrVerificationExpired is returned when a pending code is submitted
// after its TTL. The pending row is deleted as a side effect.
var ErrVerificationExpired = errors.New("verification expired")

// ErrCodeMismatch is returned when the submitted code differs from the
// pending one. The pending row survives so the visitor can retry.
var ErrCodeMismatch = errors.New("verification code mismatch")

// ErrInvalidPin is returned when the submitted PIN does not match the
// active PIN for the caller's access record. The comparison is local to
// the record, so PINs issued to other identities never match.
var ErrInvalidPin = errors.New("invalid pin")

// ErrNotVerified is returned when a PIN operation is attempted before
// the email has been verified (or with no usable session token at all).
var ErrNotVerified = errors.New("email not verified")

// ErrAlreadyUnlocked is returned when a PIN is issued against a record
// that has already redeemed its unlock.
var ErrAlreadyUnlocked = errors.New("album already unlocked for this email")

// ErrQuotaExhausted is returned when the per-email redemption budget is
// spent.
var ErrQuotaExhausted = errors.New("no remaining pin uses")

// ErrCapacityReached is returned when an album-wide ceiling (unlocks or
// active PINs) is saturated.
var ErrCapacityReached = errors.New("album capacity reached")
