package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tapcore/tap-access/internal/config"
	"github.com/tapcore/tap-access/internal/repository"
	"github.com/tapcore/tap-access/internal/utils"
)

// fakeSigner resolves keys without touching a blob store.
type fakeSigner struct{}

func (fakeSigner) Sign(_ context.Context, key string) (string, error) {
	return "signed://" + key, nil
}

func newAssets(db *sql.DB, passthrough bool) *AssetService {
	cfg := config.Config{CoverPassthrough: passthrough}
	return NewAssetService(cfg,
		repository.NewAlbumRepo(db),
		repository.NewAccessRepo(db),
		fakeSigner{},
	)
}

func refsOf(assets []SignedAsset) []string {
	out := make([]string, 0, len(assets))
	for _, a := range assets {
		out = append(out, a.Ref)
	}
	return out
}

func TestSignUngatedAlbumSignsEverything(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newAssets(db, true)

	expectAlbumGet(mock, albumRows("midnight-tapes", false))

	assets, err := svc.Sign(context.Background(), "album-1", []string{
		"asset:media/album-1/track01.mp3",
		"asset:media/album-1/cover.jpg",
	}, nil)
	require.NoError(t, err)
	require.Equal(t, []string{
		"asset:media/album-1/track01.mp3",
		"asset:media/album-1/cover.jpg",
	}, refsOf(assets))
	require.Equal(t, "signed://media/album-1/track01.mp3", assets[0].URL)
}

func TestSignLockedVisitorGetsCoversOnly(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newAssets(db, true)

	expectAlbumGet(mock, albumRows("midnight-tapes", true))

	assets, err := svc.Sign(context.Background(), "album-1", []string{
		"asset:media/album-1/track01.mp3",
		"asset:media/album-1/cover.jpg",
	}, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"asset:media/album-1/cover.jpg"}, refsOf(assets))
}

func TestSignLockedVisitorNoPassthrough(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newAssets(db, false)

	expectAlbumGet(mock, albumRows("midnight-tapes", true))

	assets, err := svc.Sign(context.Background(), "album-1", []string{
		"asset:media/album-1/cover.jpg",
	}, nil)
	require.NoError(t, err)
	require.Empty(t, assets)
}

func TestSignAdminBypassesGate(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newAssets(db, true)

	expectAlbumGet(mock, albumRows("midnight-tapes", true))

	admin := &utils.TokenPayload{Role: utils.RoleAdmin}
	assets, err := svc.Sign(context.Background(), "album-1", []string{
		"asset:media/album-1/track01.mp3",
	}, admin)
	require.NoError(t, err)
	require.Len(t, assets, 1)
}

func TestSignUnlockedVisitorGetsAudio(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newAssets(db, true)

	expectAlbumGet(mock, albumRows("midnight-tapes", true))
	mock.ExpectQuery(`SELECT id, album_id, email, verified`).
		WithArgs("album-1", "fan@example.com").
		WillReturnRows(accessRows(true, true, 4))

	visitor := &utils.TokenPayload{Email: "Fan@Example.com"}
	assets, err := svc.Sign(context.Background(), "album-1", []string{
		"asset:media/album-1/track01.flac",
	}, visitor)
	require.NoError(t, err)
	require.Len(t, assets, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSignLockedRecordStillFilters(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newAssets(db, true)

	expectAlbumGet(mock, albumRows("midnight-tapes", true))
	mock.ExpectQuery(`SELECT id, album_id, email, verified`).
		WithArgs("album-1", "fan@example.com").
		WillReturnRows(accessRows(true, false, 4))

	visitor := &utils.TokenPayload{Email: "fan@example.com"}
	assets, err := svc.Sign(context.Background(), "album-1", []string{
		"asset:media/album-1/track01.mp3",
		"asset:media/album-1/cover.jpg",
	}, visitor)
	require.NoError(t, err)
	require.Equal(t, []string{"asset:media/album-1/cover.jpg"}, refsOf(assets))
}

func TestSignDropsMalformedRefs(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newAssets(db, true)

	expectAlbumGet(mock, albumRows("midnight-tapes", false))

	assets, err := svc.Sign(context.Background(), "album-1", []string{
		"media/album-1/cover.jpg",                // missing asset: prefix
		"asset:media/album-1/../secret/key.mp3",  // traversal
		"asset:media/other-album/track01.mp3",    // foreign album namespace
		"asset:media/album-1/no-extension",       // no extension
		"asset:media/album-1/bad key.jpg",        // illegal charset
		"asset:",                                 // empty key
		"asset:media/album-1/ok.jpg",
	}, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"asset:media/album-1/ok.jpg"}, refsOf(assets))
}

func TestSignUnknownAlbum(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newAssets(db, true)

	mock.ExpectQuery(`SELECT id, slug, email_gate_enabled`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := svc.Sign(context.Background(), "ghost", []string{"asset:media/ghost/a.jpg"}, nil)
	require.ErrorIs(t, err, repository.ErrAlbumNotFound)
}
