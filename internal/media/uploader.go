// Package media resolves local file references on queued messages to remote
// URLs. A message carrying a file:// ref is not syncable until its upload
// succeeds.
package media

import (
	"context"
	"errors"
	"strings"
)

const localScheme = "file://"

// Uploader turns a local file path into a durable remote URL.
type Uploader interface {
	Upload(ctx context.Context, localPath string) (string, error)
}

// IsLocalRef reports whether ref still points at an on-device file.
func IsLocalRef(ref string) bool {
	return strings.HasPrefix(ref, localScheme)
}

// LocalRef builds a local reference from a file path.
func LocalRef(path string) string {
	return localScheme + path
}

// LocalPath extracts the file path from a local reference.
func LocalPath(ref string) string {
	return strings.TrimPrefix(ref, localScheme)
}

// ErrNotConfigured is returned by Disabled for every upload attempt.
var ErrNotConfigured = errors.New("media: uploader not configured")

// Disabled is the Uploader used when no upload backend is configured.
// Operations carrying local media stay queued until one is.
type Disabled struct{}

func (Disabled) Upload(context.Context, string) (string, error) {
	return "", ErrNotConfigured
}
