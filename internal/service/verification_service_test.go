package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/tapcore/tap-access/internal/config"
	"github.com/tapcore/tap-access/internal/queue"
	"github.com/tapcore/tap-access/internal/repository"
	"github.com/tapcore/tap-access/internal/utils"
)

// fakeNotifier records published events instead of dialing RabbitMQ.
type fakeNotifier struct {
	configured bool
	events     []queue.VerificationRequestedEvent
	err        error
}

func (f *fakeNotifier) Configured() bool { return f.configured }
func (f *fakeNotifier) Publish(_ context.Context, e queue.VerificationRequestedEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, e)
	return nil
}

func testConfig(env string) config.Config {
	return config.Config{
		Env:             env,
		JWTSecret:       "test-secret",
		VisitorTokenTTL: time.Hour,
		CodeTTL:         15 * time.Minute,
		MaxPerEmail:     5,
		AppURL:          "https://listen.example.com",
	}
}

func newVerification(db *sql.DB, cfg config.Config, n Notifier) *VerificationService {
	return NewVerificationService(cfg,
		repository.NewAlbumRepo(db),
		repository.NewAccessRepo(db),
		repository.NewVerificationRepo(db),
		n,
	)
}

func albumRows(slug string, gated bool) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "slug", "email_gate_enabled", "unlock_count", "active_pin_count",
		"max_unlocks", "max_active_pins", "created_at", "updated_at",
	}).AddRow("album-1", slug, gated, 0, 0, 10, 5, now, now)
}

func expectAlbumGet(mock sqlmock.Sqlmock, rows *sqlmock.Rows) {
	mock.ExpectQuery(`SELECT id, slug, email_gate_enabled`).
		WithArgs("album-1").
		WillReturnRows(rows)
}

func TestRequestCodePublishesEvent(t *testing.T) {
	db, mock := newMockDB(t)
	notifier := &fakeNotifier{configured: true}
	svc := newVerification(db, testConfig("dev"), notifier)

	expectAlbumGet(mock, albumRows("midnight-tapes", true))
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM verifications WHERE album_id = \? AND email = \?`).
		WithArgs("album-1", "fan@example.com").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO verifications`).
		WithArgs(sqlmock.AnyArg(), "album-1", "fan@example.com", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := svc.RequestCode(context.Background(), "album-1", " Fan@Example.com ")
	require.NoError(t, err)
	require.NotEmpty(t, res.VerificationID)
	require.Regexp(t, `^[0-9]{6}$`, res.DevCode)

	require.Len(t, notifier.events, 1)
	event := notifier.events[0]
	require.Equal(t, "fan@example.com", event.Email)
	require.Equal(t, res.DevCode, event.Code)
	require.Contains(t, event.Link, "https://listen.example.com/midnight-tapes?verify="+res.VerificationID)
	require.Contains(t, event.Link, "albumId=album-1")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestCodeUnknownAlbum(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newVerification(db, testConfig("dev"), &fakeNotifier{configured: true})

	mock.ExpectQuery(`SELECT id, slug, email_gate_enabled`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := svc.RequestCode(context.Background(), "ghost", "fan@example.com")
	require.ErrorIs(t, err, repository.ErrAlbumNotFound)
}

func TestRequestCodeProdRequiresNotifier(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newVerification(db, testConfig("prod"), &fakeNotifier{configured: false})

	expectAlbumGet(mock, albumRows("midnight-tapes", true))
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM verifications`).
		WithArgs("album-1", "fan@example.com").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO verifications`).
		WithArgs(sqlmock.AnyArg(), "album-1", "fan@example.com", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	_, err := svc.RequestCode(context.Background(), "album-1", "fan@example.com")
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestRequestCodeHidesDevCodeInProd(t *testing.T) {
	db, mock := newMockDB(t)
	notifier := &fakeNotifier{configured: true}
	svc := newVerification(db, testConfig("prod"), notifier)

	expectAlbumGet(mock, albumRows("midnight-tapes", true))
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM verifications`).
		WithArgs("album-1", "fan@example.com").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO verifications`).
		WithArgs(sqlmock.AnyArg(), "album-1", "fan@example.com", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := svc.RequestCode(context.Background(), "album-1", "fan@example.com")
	require.NoError(t, err)
	require.Empty(t, res.DevCode)
	require.Len(t, notifier.events, 1)
}

func verificationRows(code string, expiresAt time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "album_id", "email", "code", "expires_at", "created_at"}).
		AddRow("ver-1", "album-1", "fan@example.com", code, expiresAt, time.Now().UTC())
}

func expectVerificationGet(mock sqlmock.Sqlmock, rows *sqlmock.Rows) {
	mock.ExpectQuery(`SELECT id, album_id, email, code, expires_at, created_at FROM verifications`).
		WithArgs("ver-1").
		WillReturnRows(rows)
}

func TestVerifyCodeSuccess(t *testing.T) {
	db, mock := newMockDB(t)
	cfg := testConfig("dev")
	svc := newVerification(db, cfg, &fakeNotifier{})

	expectVerificationGet(mock, verificationRows("123456", time.Now().UTC().Add(10*time.Minute)))
	mock.ExpectExec(`DELETE FROM verifications WHERE id = \?`).
		WithArgs("ver-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT id, album_id, email, verified`).
		WithArgs("album-1", "fan@example.com").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(`INSERT INTO access_records`).
		WithArgs(sqlmock.AnyArg(), "album-1", "fan@example.com", 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT id, album_id, email, verified`).
		WithArgs("album-1", "fan@example.com").
		WillReturnRows(accessRows(false, false, 5))
	mock.ExpectExec(`UPDATE access_records\s+SET verified = true`).
		WithArgs("rec-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	res, err := svc.VerifyCode(context.Background(), "ver-1", " 123456 ")
	require.NoError(t, err)
	require.Equal(t, "fan@example.com", res.Email)
	require.Equal(t, "album-1", res.AlbumID)
	require.Equal(t, 5, res.Remaining)
	require.False(t, res.Unlocked)

	payload := utils.ParseToken(cfg.JWTSecret, res.Token)
	require.NotNil(t, payload)
	require.Equal(t, "fan@example.com", payload.Email)
	require.False(t, payload.IsAdmin())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyCodeMismatchKeepsPending(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newVerification(db, testConfig("dev"), &fakeNotifier{})

	// No DELETE expectation: a typo must leave the pending row alive so
	// the visitor can retry within the TTL.
	expectVerificationGet(mock, verificationRows("123456", time.Now().UTC().Add(10*time.Minute)))

	_, err := svc.VerifyCode(context.Background(), "ver-1", "654321")
	require.ErrorIs(t, err, repository.ErrCodeMismatch)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyCodeExpiredConsumesPending(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newVerification(db, testConfig("dev"), &fakeNotifier{})

	expectVerificationGet(mock, verificationRows("123456", time.Now().UTC().Add(-time.Minute)))
	mock.ExpectExec(`DELETE FROM verifications WHERE id = \?`).
		WithArgs("ver-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := svc.VerifyCode(context.Background(), "ver-1", "123456")
	require.ErrorIs(t, err, repository.ErrVerificationExpired)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyCodeUnknownID(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newVerification(db, testConfig("dev"), &fakeNotifier{})

	mock.ExpectQuery(`SELECT id, album_id, email, code, expires_at, created_at FROM verifications`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := svc.VerifyCode(context.Background(), "ghost", "123456")
	require.ErrorIs(t, err, repository.ErrVerificationNotFound)
}
