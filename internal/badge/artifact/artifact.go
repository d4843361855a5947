// Package artifact persists rendered badge files and returns their public URLs.
// Uploads overwrite: storing the same key twice replaces the prior content.
package artifact

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"badgeworks/internal/badge/models"
)

// Store accepts rendered bytes under a content key and returns where they
// can be fetched from.
type Store interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// Extension maps a supported content type to its file extension.
func Extension(contentType string) (string, error) {
	switch contentType {
	case models.ContentTypePNG:
		return "png", nil
	case models.ContentTypePDF:
		return "pdf", nil
	default:
		return "", fmt.Errorf("artifact: unsupported content type %q", contentType)
	}
}

// ObjectKey returns "<key>.<ext>" for the given content type.
func ObjectKey(key, contentType string) (string, error) {
	key = strings.Trim(strings.TrimSpace(key), "/")
	if key == "" {
		return "", fmt.Errorf("artifact: empty key")
	}
	ext, err := Extension(contentType)
	if err != nil {
		return "", err
	}
	return key + "." + ext, nil
}

// PublicURL returns https://<host>/<objectKey> with the key path-escaped.
func PublicURL(host, objectKey string) string {
	u := url.URL{Scheme: "https", Host: host, Path: "/" + objectKey}
	return u.String()
}
