package browsecache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// SearchType narrows what a search query matches.
type SearchType string

const (
	SearchTypeAll     SearchType = "all"
	SearchTypeFiles   SearchType = "files"
	SearchTypeFolders SearchType = "folders"
)

const (
	// maxComponentLen bounds a single sanitized key component. Longer
	// components are collapsed to a content hash so key length, and with it
	// storage path length, stays bounded.
	maxComponentLen = 64

	keySeparator = "_"
	placeholder  = "_"
)

// KeyGenerator builds deterministic, bounded-length cache keys from domain
// parameters. Identical inputs always yield identical keys. Generation never
// fails: internal errors fall back to a clock-based unique key, trading a
// cache miss for a crash.
type KeyGenerator struct {
	stats  *Stats
	logger Logger
}

// NewKeyGenerator creates a key generator. stats and logger may be nil.
func NewKeyGenerator(stats *Stats, logger Logger) *KeyGenerator {
	if logger == nil {
		logger = NoOpLogger{}
	}
	return &KeyGenerator{stats: stats, logger: logger}
}

// FileListKey builds the key for a directory listing of path on the given
// connection, e.g. "files_conn_C1_path_docs".
func (g *KeyGenerator) FileListKey(connectionID, path string) string {
	return g.build("files", func() string {
		return strings.Join([]string{
			"files",
			"conn", sanitizeComponent(connectionID),
			"path", sanitizeComponent(path),
		}, keySeparator)
	})
}

// SearchKey builds the key for a search query rooted at path.
func (g *KeyGenerator) SearchKey(connectionID, path, query string, searchType SearchType, includeSubfolders bool) string {
	return g.build("search", func() string {
		return strings.Join([]string{
			"search",
			"conn", sanitizeComponent(connectionID),
			"path", sanitizeComponent(path),
			"q", sanitizeComponent(query),
			"type", sanitizeComponent(string(searchType)),
			"sub", fmt.Sprintf("%t", includeSubfolders),
		}, keySeparator)
	})
}

// GenericKey builds a key from an arbitrary prefix and parameters.
func (g *KeyGenerator) GenericKey(prefix string, params ...string) string {
	return g.build(prefix, func() string {
		parts := make([]string, 0, len(params)+1)
		parts = append(parts, sanitizeComponent(prefix))
		for _, p := range params {
			parts = append(parts, sanitizeComponent(p))
		}
		return strings.Join(parts, keySeparator)
	})
}

// InvalidationPattern builds the substring shared by every key scoped to the
// given connection and path, e.g. "conn_C1_path_docs". Passing it to
// InvalidatePattern removes file-list and search entries alike.
func (g *KeyGenerator) InvalidationPattern(connectionID, path string) string {
	return g.build("conn", func() string {
		return strings.Join([]string{
			"conn", sanitizeComponent(connectionID),
			"path", sanitizeComponent(path),
		}, keySeparator)
	})
}

// ConnectionPattern builds the substring shared by every key scoped to the
// given connection, e.g. "conn_C1_". The trailing separator keeps the
// pattern from matching other connections whose IDs share a prefix, such as
// "C12" when invalidating "C1".
func (g *KeyGenerator) ConnectionPattern(connectionID string) string {
	return g.build("conn", func() string {
		return strings.Join([]string{
			"conn", sanitizeComponent(connectionID),
		}, keySeparator) + keySeparator
	})
}

// build runs fn, falling back to a prefixed clock-based key if it panics.
func (g *KeyGenerator) build(prefix string, fn func() string) (key string) {
	defer func() {
		if r := recover(); r != nil {
			key = fmt.Sprintf("fallback_%s_%d", prefix, time.Now().UnixNano())
			if g.stats != nil {
				g.stats.incKeyGenFallbacks()
			}
			g.logger.Warn("key generation failed, using fallback key",
				F("prefix", prefix),
				F("panic", r),
				F("fallbackKey", key),
			)
		}
	}()
	return fn()
}

// sanitizeComponent normalizes one key component: path separators and
// whitespace are trimmed, disallowed characters become placeholders, runs of
// placeholders collapse to one, and over-long results are replaced by a
// fixed-width content hash.
func sanitizeComponent(s string) string {
	s = strings.Trim(s, "/\\ \t")
	if s == "" {
		return "root"
	}

	var b strings.Builder
	b.Grow(len(s))
	lastPlaceholder := false
	for _, r := range s {
		if allowedKeyRune(r) {
			b.WriteRune(r)
			lastPlaceholder = false
			continue
		}
		if !lastPlaceholder {
			b.WriteString(placeholder)
			lastPlaceholder = true
		}
	}
	out := strings.Trim(b.String(), placeholder)
	if out == "" {
		return "root"
	}
	if len(out) > maxComponentLen {
		sum := sha256.Sum256([]byte(out))
		return hex.EncodeToString(sum[:])[:maxComponentLen]
	}
	return out
}

func allowedKeyRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '.' || r == '-':
		return true
	default:
		return false
	}
}
