package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestReplaceDeletesBeforeInsert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewVerificationRepo(db)

	expires := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM verifications WHERE album_id = \? AND email = \?`).
		WithArgs("album-1", "fan@example.com").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO verifications`).
		WithArgs(sqlmock.AnyArg(), "album-1", "fan@example.com", "123456", "2026-02-01 12:00:00").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	id, err := repo.Replace(context.Background(), "album-1", "fan@example.com", "123456", expires)
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceRollsBackOnInsertFailure(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewVerificationRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM verifications WHERE album_id = \? AND email = \?`).
		WithArgs("album-1", "fan@example.com").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO verifications`).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	_, err := repo.Replace(context.Background(), "album-1", "fan@example.com", "123456", time.Now().Add(15*time.Minute))
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetVerificationNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewVerificationRepo(db)

	mock.ExpectQuery(`SELECT id, album_id, email, code, expires_at, created_at FROM verifications`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrVerificationNotFound)
}

func TestDeleteVerificationIdempotent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewVerificationRepo(db)

	mock.ExpectExec(`DELETE FROM verifications WHERE id = \?`).
		WithArgs("gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), "gone"))
}
