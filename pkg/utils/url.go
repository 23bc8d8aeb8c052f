package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// HashURL creates a SHA256 hash of a URL string, for use as a fixed-length cache key.
func HashURL(rawURL string) string {
	h := sha256.Sum256([]byte(rawURL))
	return hex.EncodeToString(h[:])
}

// ResolveLink turns href into an absolute URL relative to base.
// Fragment-only and javascript: links resolve to the empty string.
func ResolveLink(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return ""
	}
	rel, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if rel.IsAbs() {
		return rel.String()
	}
	baseURL, err := url.Parse(base)
	if err != nil || !baseURL.IsAbs() {
		return rel.String()
	}
	return baseURL.ResolveReference(rel).String()
}
