package service

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/tapcore/tap-access/internal/config"
	"github.com/tapcore/tap-access/internal/queue"
	"github.com/tapcore/tap-access/internal/repository"
	"github.com/tapcore/tap-access/internal/utils"
)

// Notifier is the collaborator that delivers verification codes to the
// visitor. The production implementation publishes to RabbitMQ; tests
// substitute a recorder.
type Notifier interface {
	Configured() bool
	Publish(ctx context.Context, event queue.VerificationRequestedEvent) error
}

// VerificationService proves that a visitor controls a claimed email
// address. It owns the pending-code lifecycle and is the sole path by
// which an access record becomes verified.
type VerificationService struct {
	cfg           config.Config
	albums        *repository.AlbumRepo
	access        *repository.AccessRepo
	verifications *repository.VerificationRepo
	notifier      Notifier
}

// NewVerificationService wires the verification flow.
func NewVerificationService(cfg config.Config, albums *repository.AlbumRepo, access *repository.AccessRepo, verifications *repository.VerificationRepo, notifier Notifier) *VerificationService {
	return &VerificationService{
		cfg:           cfg,
		albums:        albums,
		access:        access,
		verifications: verifications,
		notifier:      notifier,
	}
}

// RequestCodeResult is returned by RequestCode. DevCode is populated
// outside production only, so local tooling can complete the flow
// without a mailbox.
type RequestCodeResult struct {
	VerificationID string
	DevCode        string
}

// RequestCode replaces any pending code for (albumID, email) with a
// fresh 6-digit one and dispatches it through the notifier. The new
// code always invalidates the prior one for the pair. In production a
// missing notifier fails the request with ErrNotConfigured; elsewhere
// the deep link is logged and the code returned in-band.
func (s *VerificationService) RequestCode(ctx context.Context, albumID, email string) (*RequestCodeResult, error) {
	normalized := utils.NormalizeEmail(email)

	album, err := s.albums.Get(ctx, albumID)
	if err != nil {
		return nil, err
	}

	code, err := utils.GenerateCode()
	if err != nil {
		return nil, err
	}
	expiresAt := time.Now().UTC().Add(s.cfg.CodeTTL)

	id, err := s.verifications.Replace(ctx, albumID, normalized, code, expiresAt)
	if err != nil {
		return nil, err
	}

	link := s.buildLink(album.Slug, id, code, albumID)
	event := queue.VerificationRequestedEvent{
		VerificationID: id,
		AlbumID:        albumID,
		AlbumSlug:      album.Slug,
		Email:          normalized,
		Code:           code,
		Link:           link,
		ExpiresAt:      expiresAt.Format(time.RFC3339),
		RequestedAt:    time.Now().UTC().Format(time.RFC3339),
	}

	if s.notifier != nil && s.notifier.Configured() {
		if err := s.notifier.Publish(ctx, event); err != nil {
			return nil, err
		}
	} else {
		if s.cfg.IsProd() {
			return nil, ErrNotConfigured
		}
		log.Printf("[DEV] verification link: %s", link)
	}

	res := &RequestCodeResult{VerificationID: id}
	if !s.cfg.IsProd() {
		res.DevCode = code
	}
	return res, nil
}

// buildLink renders the deep link embedded in the verification email:
// <appURL>/<slug>?verify=<id>&code=<code>&albumId=<id>.
func (s *VerificationService) buildLink(slug, verificationID, code, albumID string) string {
	if s.cfg.AppURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s?verify=%s&code=%s&albumId=%s",
		s.cfg.AppURL, slug, verificationID, code, url.QueryEscape(albumID))
}

// VerifyCodeResult is returned on successful verification: the session
// token plus the current state of the pair's access record.
type VerifyCodeResult struct {
	Token     string
	Email     string
	AlbumID   string
	Remaining int
	Unlocked  bool
}

// VerifyCode checks a submitted code against the pending verification.
// The pending row is consumed on success and on expiry; a plain
// mismatch leaves it in place so the visitor can correct a typo within
// the TTL. On success the access record is upserted, marked verified,
// and a visitor session token is minted.
func (s *VerificationService) VerifyCode(ctx context.Context, verificationID, code string) (*VerifyCodeResult, error) {
	pending, err := s.verifications.Get(ctx, verificationID)
	if err != nil {
		return nil, err
	}

	if time.Now().UTC().After(pending.ExpiresAt) {
		if err := s.verifications.Delete(ctx, verificationID); err != nil {
			return nil, err
		}
		return nil, repository.ErrVerificationExpired
	}

	if utils.NormalizeCode(code) != pending.Code {
		return nil, repository.ErrCodeMismatch
	}

	// Single use: the id never resolves again, regardless of outcome
	// downstream.
	if err := s.verifications.Delete(ctx, verificationID); err != nil {
		return nil, err
	}

	record, err := s.access.GetOrCreate(ctx, pending.AlbumID, pending.Email, s.cfg.MaxPerEmail)
	if err != nil {
		return nil, err
	}
	if err := s.access.MarkVerified(ctx, record.ID); err != nil {
		return nil, err
	}

	token, err := utils.NewVisitorToken(s.cfg.JWTSecret, record.Email, s.cfg.VisitorTokenTTL)
	if err != nil {
		return nil, err
	}

	if !s.cfg.IsProd() {
		log.Printf("[DEV] verify-code success album=%s email=%s", pending.AlbumID, record.Email)
	}

	return &VerifyCodeResult{
		Token:     token,
		Email:     record.Email,
		AlbumID:   pending.AlbumID,
		Remaining: record.Remaining,
		Unlocked:  record.Unlocked,
	}, nil
}
