package service

import (
	"context"
	"path"
	"regexp"
	"strings"

	"github.com/tapcore/tap-access/internal/config"
	"github.com/tapcore/tap-access/internal/repository"
	"github.com/tapcore/tap-access/internal/utils"
)

// URLSigner turns a storage key into a fetchable URL. Satisfied by
// storage.Signer; tests substitute a stub.
type URLSigner interface {
	Sign(ctx context.Context, key string) (string, error)
}

// assetRefPrefix marks a protected reference. Anything else in a sign
// request is ignored rather than rejected.
const assetRefPrefix = "asset:"

// safeKeyPattern is the whole allowed alphabet for storage keys.
var safeKeyPattern = regexp.MustCompile(`^[a-zA-Z0-9/_\-.]+$`)

// audioExtensions lists the extensions treated as gated audio. Every
// other extension is a cover-style asset and may pass through the gate
// when cover passthrough is enabled.
var audioExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".m4a":  true,
	".aac":  true,
	".ogg":  true,
	".flac": true,
}

// SignedAsset pairs an incoming reference with its resolved URL.
type SignedAsset struct {
	Ref string `json:"ref"`
	URL string `json:"url"`
}

// AssetService resolves protected asset references into signed URLs,
// dropping anything the caller is not entitled to. Filtering is silent:
// an audio ref from a locked visitor disappears from the response
// instead of failing the whole batch.
type AssetService struct {
	cfg    config.Config
	albums *repository.AlbumRepo
	access *repository.AccessRepo
	signer URLSigner
}

// NewAssetService wires the asset gate.
func NewAssetService(cfg config.Config, albums *repository.AlbumRepo, access *repository.AccessRepo, signer URLSigner) *AssetService {
	return &AssetService{cfg: cfg, albums: albums, access: access, signer: signer}
}

// Sign resolves each reference in refs for the given album. Entitlement
// is decided once per call: a disabled gate, an admin token, or an
// unlocked access record for the token's email grants full access;
// otherwise only non-audio assets survive, and only when cover
// passthrough is on. Malformed refs and keys that escape the album's
// own prefix are dropped.
func (s *AssetService) Sign(ctx context.Context, albumID string, refs []string, payload *utils.TokenPayload) ([]SignedAsset, error) {
	album, err := s.albums.Get(ctx, albumID)
	if err != nil {
		return nil, err
	}

	unlocked := !album.EmailGateEnabled
	if !unlocked && payload != nil {
		if payload.IsAdmin() {
			unlocked = true
		} else if payload.Email != "" {
			record, err := s.access.Get(ctx, albumID, utils.NormalizeEmail(payload.Email))
			if err == nil && record.Unlocked {
				unlocked = true
			}
		}
	}

	out := make([]SignedAsset, 0, len(refs))
	for _, ref := range refs {
		key, ok := s.keyFor(ref, albumID)
		if !ok {
			continue
		}
		if !unlocked {
			if isAudioKey(key) || !s.cfg.CoverPassthrough {
				continue
			}
		}
		signed, err := s.signer.Sign(ctx, key)
		if err != nil {
			return nil, err
		}
		out = append(out, SignedAsset{Ref: ref, URL: signed})
	}
	return out, nil
}

// keyFor validates one reference and extracts its storage key. The key
// must stay inside the requested album's namespace: path traversal,
// foreign-album keys and extensionless keys are all rejected.
func (s *AssetService) keyFor(ref, albumID string) (string, bool) {
	if !strings.HasPrefix(ref, assetRefPrefix) {
		return "", false
	}
	key := strings.TrimPrefix(ref, assetRefPrefix)
	if key == "" || !safeKeyPattern.MatchString(key) {
		return "", false
	}
	if strings.Contains(key, "..") {
		return "", false
	}
	if path.Ext(key) == "" {
		return "", false
	}
	if !strings.Contains(key, "/"+albumID+"/") {
		return "", false
	}
	return key, true
}

func isAudioKey(key string) bool {
	return audioExtensions[strings.ToLower(path.Ext(key))]
}
