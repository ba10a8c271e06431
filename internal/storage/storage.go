// Package storage is a disk-backed object store for ticket image attachments.
// Objects are keyed {userID}/{timestamp}-{random}.{ext} and served under a
// public URL prefix, matching the bucket layout of the hosted object storage
// it stands in for.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxImageSize caps uploaded ticket images
const MaxImageSize = 10 << 20 // 10 MiB

// allowed image content types and their canonical extensions
var imageExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// ErrUnsupportedType is returned for non-image uploads
var ErrUnsupportedType = fmt.Errorf("unsupported image type (want JPEG, PNG, GIF or WebP)")

// ErrTooLarge is returned when an upload exceeds MaxImageSize
var ErrTooLarge = fmt.Errorf("image exceeds the %d MiB limit", MaxImageSize>>20)

// Store writes objects to a local directory and maps them to public URLs
type Store struct {
	dir       string
	publicURL string
}

// New creates the store, ensuring the backing directory exists
func New(dir, publicURL string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &Store{
		dir:       dir,
		publicURL: strings.TrimRight(publicURL, "/"),
	}, nil
}

// Dir returns the backing directory, for mounting as a static route
func (s *Store) Dir() string {
	return s.dir
}

// Object describes a stored image
type Object struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// SaveImage stores an uploaded image under the user's prefix and returns its
// public URL. Content type and size are enforced here, not trusted from the caller.
func (s *Store) SaveImage(userID, contentType string, r io.Reader) (*Object, error) {
	ext, ok := imageExtensions[strings.ToLower(contentType)]
	if !ok {
		return nil, ErrUnsupportedType
	}

	key := fmt.Sprintf("%s/%d-%s.%s", userID, time.Now().UnixMilli(), uuid.NewString()[:8], ext)

	dir := filepath.Join(s.dir, userID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create user directory: %w", err)
	}

	path := filepath.Join(s.dir, filepath.FromSlash(key))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create object: %w", err)
	}
	defer f.Close()

	// One extra byte past the cap detects oversize without buffering the upload
	written, err := io.Copy(f, io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to write object: %w", err)
	}
	if written > MaxImageSize {
		os.Remove(path)
		return nil, ErrTooLarge
	}

	return &Object{
		Key:         key,
		URL:         s.publicURL + "/" + key,
		Size:        written,
		ContentType: contentType,
	}, nil
}
