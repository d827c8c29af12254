package archive

import (
	"context"
	"path"
	"regexp"
	"strings"
	"time"
)

// DefaultPrefix is the object key prefix of archived statements.
const DefaultPrefix = "statements"

// Archiver stores raw statement files verbatim for audit.
type Archiver interface {
	// Archive writes data under key and returns the object URI.
	Archive(ctx context.Context, key, contentType string, data []byte) (string, error)
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ObjectKey builds <prefix>/<user>/<yyyy>/<mm>/<id>-<file name> for an upload.
func ObjectKey(prefix, userID, fileName, id string, at time.Time) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return path.Join(
		strings.Trim(prefix, "/"),
		SanitizeName(userID),
		at.UTC().Format("2006"),
		at.UTC().Format("01"),
		id+"-"+SanitizeName(path.Base(fileName)),
	)
}

// SanitizeName replaces characters that are unsafe in object keys.
func SanitizeName(name string) string {
	s := strings.Trim(unsafeChars.ReplaceAllString(strings.TrimSpace(name), "_"), "_.")
	if s == "" {
		return "unnamed"
	}
	return s
}
