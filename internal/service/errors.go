// Package service implements the access protocol on top of the
// repository layer: verification, PIN issuance and redemption, status
// reads and asset gating.
package service

import "errors"

// ErrNotConfigured is returned when a required collaborator is absent
// in production, currently only the notifier for code requests. It is
// fatal to the request, never to the process.
var ErrNotConfigured = errors.New("collaborator not configured")
