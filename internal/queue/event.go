// Package queue defines message payloads exchanged over the message broker
// and the background consumer that drains them.
package queue

// VerificationRequestedEvent is published when a visitor asks for an
// email-ownership code. It carries everything a downstream mailer needs
// to deliver the message without querying the primary database.
type VerificationRequestedEvent struct {
	VerificationID string `json:"verification_id"`
	AlbumID        string `json:"album_id"`
	AlbumSlug      string `json:"album_slug"`
	Email          string `json:"email"`
	Code           string `json:"code"`
	Link           string `json:"link"`
	ExpiresAt      string `json:"expires_at"`
	RequestedAt    string `json:"requested_at"`
}
