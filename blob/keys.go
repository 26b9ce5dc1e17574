package blob

import (
	"mime"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NormalizeKey strips leading slashes from a key. Internal empty segments
// are preserved: "a//b" normalizes to "a//b", not "a/b".
func NormalizeKey(key string) string {
	return strings.TrimLeft(key, "/")
}

// WithRandomSuffix inserts a unique token before the key's extension, so
// repeated uploads of the same logical name never collide. Only the last
// dot of the final path segment counts as the extension separator:
// "shot.png" becomes "shot-<token>.png" and "shot" becomes "shot-<token>".
func WithRandomSuffix(key string) string {
	ext := path.Ext(key)
	base := strings.TrimSuffix(key, ext)
	return base + "-" + randomToken() + ext
}

// randomToken combines the current time with random entropy. The time part
// keeps tokens roughly sortable; the entropy part carries uniqueness.
func randomToken() string {
	entropy := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return strconv.FormatInt(time.Now().UnixMilli(), 36) + "-" + entropy
}

// encodeKeyPath percent-encodes each segment of a key independently,
// preserving the "/" separators.
func encodeKeyPath(key string) string {
	segments := strings.Split(key, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}

// decodeKeyPath reverses encodeKeyPath. Segments that fail to decode are
// kept as-is rather than failing the whole key.
func decodeKeyPath(encoded string) string {
	segments := strings.Split(encoded, "/")
	for i, segment := range segments {
		if decoded, err := url.PathUnescape(segment); err == nil {
			segments[i] = decoded
		}
	}
	return strings.Join(segments, "/")
}

// detectContentType returns a MIME type based on the key's extension,
// falling back to application/octet-stream.
func detectContentType(key string) string {
	ext := path.Ext(key)
	if ext == "" {
		return "application/octet-stream"
	}

	mimeType := mime.TypeByExtension(ext)
	if mimeType == "" {
		return "application/octet-stream"
	}

	return mimeType
}
