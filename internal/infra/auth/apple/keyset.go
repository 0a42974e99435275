// Package apple verifies Apple identity tokens against Apple's published key set.
package apple

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"math/big"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"

	"lookbook/config"
	domainerrors "lookbook/internal/domain/errors"
)

const (
	defaultFetchTimeout   = 10 * time.Second
	defaultKeySetCacheTTL = 5 * time.Minute

	keySetCacheKey = "apple:keyset"
)

// KeySetEntry is one candidate public key from Apple's JWKS document.
type KeySetEntry struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n"` // base64url modulus
	E   string `json:"e"` // base64url exponent
}

type keySetDocument struct {
	Keys []KeySetEntry `json:"keys"`
}

// KeySetSource fetches Apple's signing keys and caches them for a short TTL.
// The TTL bounds staleness: a key rotated at Apple becomes usable within one
// TTL, and a kid missing from a cached set triggers one forced fresh fetch
// before the lookup is declared a miss.
type KeySetSource struct {
	endpoint string
	client   *http.Client
	cache    *gocache.Cache
	logger   *slog.Logger
}

// NewKeySetSource is the constructor for KeySetSource.
func NewKeySetSource(cfg *config.Config, logger *slog.Logger) *KeySetSource {
	fetchTimeout := defaultFetchTimeout
	cacheTTL := defaultKeySetCacheTTL
	endpoint := ""
	if cfg.Apple != nil {
		endpoint = cfg.Apple.KeySetURL
		if cfg.Apple.FetchTimeout > 0 {
			fetchTimeout = cfg.Apple.FetchTimeout
		}
		if cfg.Apple.KeySetCacheTTL > 0 {
			cacheTTL = cfg.Apple.KeySetCacheTTL
		}
	}

	return &KeySetSource{
		endpoint: endpoint,
		client:   &http.Client{Timeout: fetchTimeout},
		cache:    gocache.New(cacheTTL, time.Minute),
		logger:   logger,
	}
}

// PublicKey returns the RSA public key for the given kid.
func (s *KeySetSource) PublicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	keys, cached, err := s.keySet(ctx)
	if err != nil {
		return nil, err
	}

	entry, found := findEntry(keys, kid)
	if !found && cached {
		// The cached set may predate a key rotation; retry once with a fresh fetch.
		s.logger.Debug("Key id missing from cached key set, refetching", slog.String("kid", kid))
		keys, err = s.fetch(ctx)
		if err != nil {
			return nil, err
		}
		entry, found = findEntry(keys, kid)
	}
	if !found {
		return nil, domainerrors.ErrKeyNotFound.WrapMessage("no key set entry for kid " + kid)
	}

	return reconstructPublicKey(entry)
}

// keySet returns the current key set, serving from cache when fresh.
// The cached flag tells the caller whether a kid miss may be staleness.
func (s *KeySetSource) keySet(ctx context.Context) (keys []KeySetEntry, cached bool, err error) {
	if raw, ok := s.cache.Get(keySetCacheKey); ok {
		if keys, ok := raw.([]KeySetEntry); ok {
			return keys, true, nil
		}
	}

	keys, err = s.fetch(ctx)
	if err != nil {
		return nil, false, err
	}

	return keys, false, nil
}

// fetch retrieves the key set from Apple and refreshes the cache.
func (s *KeySetSource) fetch(ctx context.Context) ([]KeySetEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return nil, domainerrors.ErrKeySetUnavailable.WrapMessage("failed to build key set request")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("Key set fetch failed", slog.String("endpoint", s.endpoint), slog.Any("error", err))

		return nil, domainerrors.ErrKeySetUnavailable.WrapMessage("failed to fetch key set")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		s.logger.Warn("Key set endpoint returned non-2xx", slog.Int("status", resp.StatusCode))

		return nil, errors.Wrapf(domainerrors.ErrKeySetUnavailable, "key set endpoint returned %d", resp.StatusCode)
	}

	var doc keySetDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, domainerrors.ErrKeySetUnavailable.WrapMessage("failed to decode key set document")
	}

	s.cache.SetDefault(keySetCacheKey, doc.Keys)

	return doc.Keys, nil
}

func findEntry(keys []KeySetEntry, kid string) (KeySetEntry, bool) {
	for _, entry := range keys {
		if entry.Kid == kid {
			return entry, true
		}
	}

	return KeySetEntry{}, false
}

// reconstructPublicKey builds an RSA public key from a key set entry's modulus
// and exponent. Both are unsigned big-endian integers, so the sign is forced
// positive by construction.
func reconstructPublicKey(entry KeySetEntry) (*rsa.PublicKey, error) {
	if entry.Kty != "RSA" {
		return nil, errors.Wrapf(domainerrors.ErrUnsupportedKeyType, "unsupported kty %q", entry.Kty)
	}

	nBytes, err := base64.RawURLEncoding.DecodeString(entry.N)
	if err != nil {
		return nil, domainerrors.ErrKeySetUnavailable.WrapMessage("failed to decode key modulus")
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(entry.E)
	if err != nil {
		return nil, domainerrors.ErrKeySetUnavailable.WrapMessage("failed to decode key exponent")
	}

	n := new(big.Int).SetBytes(nBytes)
	e := new(big.Int).SetBytes(eBytes)

	return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil
}
