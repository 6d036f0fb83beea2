package types

import (
	"path"
	"strings"
	"time"
)

// ObjectInfo represents metadata about a stored object
type ObjectInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
	ETag         string    `json:"etag"`
	ContentType  string    `json:"content_type,omitempty"`
	CacheControl string    `json:"cache_control,omitempty"`
}

// PutOptions carries the HTTP headers stored with an object
type PutOptions struct {
	ContentType  string `json:"content_type"`
	CacheControl string `json:"cache_control"`
}

// CacheStats represents existence cache statistics
type CacheStats struct {
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	Evictions uint64  `json:"evictions"`
	Entries   int     `json:"entries"`
	Capacity  int     `json:"capacity"`
	HitRate   float64 `json:"hit_rate"`
}

// MatchesExtension reports whether key ends in one of extensions,
// compared case-insensitively. Directory placeholder keys never match.
func MatchesExtension(key string, extensions []string) bool {
	if strings.HasSuffix(key, "/") {
		return false
	}
	if len(extensions) == 0 {
		return true
	}
	ext := strings.ToLower(path.Ext(key))
	for _, e := range extensions {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}
