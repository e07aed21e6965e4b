package model

import "time"

// Pin is a single-use numeric credential owned by an AccessRecord.  At
// most one unused Pin exists per record at any time: issuing a new one
// invalidates the previous unused one.  A Pin is consumed exactly once,
// by the redemption transaction that also flips the record to unlocked.
type Pin struct {
	ID        string     // pins.id
	AccessID  string     // pins.access_id
	Code      string     // pins.pin_code (6 ASCII digits)
	Used      bool       // pins.used
	UsedAt    *time.Time // pins.used_at (nullable)
	CreatedAt time.Time  // pins.created_at
}
