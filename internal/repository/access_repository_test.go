package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func accessRows(t *testing.T, id string, verified, unlocked bool, remaining int) *sqlmock.Rows {
	t.Helper()
	now := time.Now().UTC()
	var verifiedAt, unlockedAt interface{}
	if verified {
		verifiedAt = now
	}
	if unlocked {
		unlockedAt = now
	}
	return sqlmock.NewRows([]string{
		"id", "album_id", "email", "verified", "verified_at",
		"unlocked", "unlocked_at", "remaining", "created_at", "updated_at",
	}).AddRow(id, "album-1", "fan@example.com", verified, verifiedAt, unlocked, unlockedAt, remaining, now, now)
}

func TestGetOrCreateInsertsWhenAbsent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAccessRepo(db)

	mock.ExpectQuery(`SELECT id, album_id, email, verified`).
		WithArgs("album-1", "fan@example.com").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(`INSERT INTO access_records`).
		WithArgs(sqlmock.AnyArg(), "album-1", "fan@example.com", 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT id, album_id, email, verified`).
		WithArgs("album-1", "fan@example.com").
		WillReturnRows(accessRows(t, "rec-1", false, false, 5))

	rec, err := repo.GetOrCreate(context.Background(), "album-1", "fan@example.com", 5)
	require.NoError(t, err)
	require.Equal(t, "rec-1", rec.ID)
	require.False(t, rec.Verified)
	require.Equal(t, 5, rec.Remaining)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrCreateReturnsExisting(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAccessRepo(db)

	mock.ExpectQuery(`SELECT id, album_id, email, verified`).
		WithArgs("album-1", "fan@example.com").
		WillReturnRows(accessRows(t, "rec-1", true, false, 3))

	rec, err := repo.GetOrCreate(context.Background(), "album-1", "fan@example.com", 5)
	require.NoError(t, err)
	require.True(t, rec.Verified)
	require.Equal(t, 3, rec.Remaining)
	require.NotNil(t, rec.VerifiedAt)
	require.Nil(t, rec.UnlockedAt)
}

func TestGetForUpdateTxMissingRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAccessRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, album_id, email, verified.* FOR UPDATE`).
		WithArgs("album-1", "fan@example.com").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)
	defer tx.Rollback()

	_, err = repo.GetForUpdateTx(context.Background(), tx, "album-1", "fan@example.com")
	require.ErrorIs(t, err, sql.ErrNoRows)
}
