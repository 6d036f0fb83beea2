// Package delivery turns storage keys into public URLs.
package delivery

import (
	"fmt"
	"strings"
)

// Config is the static input for URL construction.
type Config struct {
	// CDNDomain, when set, fronts every URL.
	CDNDomain string
	Bucket    string
	Region    string
	// Endpoint overrides the direct storage host, e.g. a MinIO server.
	Endpoint string
	// PathStyle puts the bucket in the path instead of the host.
	PathStyle bool
}

// Builder builds absolute delivery URLs. It performs no I/O.
type Builder struct {
	base string
}

// NewBuilder validates cfg and precomputes the URL prefix.
func NewBuilder(cfg Config) (*Builder, error) {
	cdn := strings.TrimSuffix(strings.TrimSpace(cfg.CDNDomain), "/")
	cdn = strings.TrimPrefix(strings.TrimPrefix(cdn, "https://"), "http://")
	if cdn != "" {
		return &Builder{base: "https://" + cdn + "/"}, nil
	}

	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket is required when no CDN domain is configured")
	}

	if cfg.Endpoint != "" {
		endpoint := strings.TrimSuffix(cfg.Endpoint, "/")
		if !strings.Contains(endpoint, "://") {
			endpoint = "https://" + endpoint
		}
		if cfg.PathStyle {
			return &Builder{base: endpoint + "/" + cfg.Bucket + "/"}, nil
		}
		scheme, host, _ := strings.Cut(endpoint, "://")
		return &Builder{base: scheme + "://" + cfg.Bucket + "." + host + "/"}, nil
	}

	if cfg.Region == "" {
		return nil, fmt.Errorf("region is required when no CDN domain is configured")
	}
	return &Builder{base: fmt.Sprintf("https://%s.s3.%s.amazonaws.com/", cfg.Bucket, cfg.Region)}, nil
}

// URL returns the public URL for key.
func (b *Builder) URL(key string) string {
	return b.base + EscapeKey(key)
}

// Base returns the URL prefix every key is appended to.
func (b *Builder) Base() string {
	return b.base
}

const upperhex = "0123456789ABCDEF"

// EscapeKey percent-encodes every byte outside the RFC 3986 unreserved
// set, leaving '/' separators intact.
func EscapeKey(key string) string {
	n := 0
	for i := 0; i < len(key); i++ {
		if !keep(key[i]) {
			n++
		}
	}
	if n == 0 {
		return key
	}

	var sb strings.Builder
	sb.Grow(len(key) + 2*n)
	for i := 0; i < len(key); i++ {
		c := key[i]
		if keep(c) {
			sb.WriteByte(c)
			continue
		}
		sb.WriteByte('%')
		sb.WriteByte(upperhex[c>>4])
		sb.WriteByte(upperhex[c&15])
	}
	return sb.String()
}

func keep(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '.', c == '_', c == '~', c == '/':
		return true
	}
	return false
}
