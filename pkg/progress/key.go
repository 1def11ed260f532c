package progress

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// KeyFor returns configured when set, otherwise a key derived from seedURL.
// The cursor indexes one listing, so each seed gets its own state.
func KeyFor(configured, seedURL string) string {
	if configured != "" {
		return configured
	}
	seed := canonicalSeed(seedURL)
	if seed == "" {
		return DefaultKey
	}
	sum := sha256.Sum256([]byte(seed))
	return DefaultKey + "-" + hex.EncodeToString(sum[:8])
}

// canonicalSeed lowercases scheme and host, drops the fragment and a trailing
// slash, and sorts query parameters
func canonicalSeed(seedURL string) string {
	seedURL = strings.TrimSpace(seedURL)
	if seedURL == "" {
		return ""
	}
	u, err := url.Parse(seedURL)
	if err != nil || u.Host == "" {
		return seedURL
	}

	out := strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host) + strings.TrimRight(u.EscapedPath(), "/")
	if q := u.Query(); len(q) > 0 {
		out += "?" + q.Encode()
	}
	return out
}
