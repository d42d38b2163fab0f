// Package covers resolves local cover-photo references into durable remote
// URLs. Uploads are keyed per user, book and slot so a retake never
// collides with a previous object.
package covers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"
)

// ErrUploadFailed indicates the object store write (or reading the local
// source) failed. Callers treat this as non-fatal to the enclosing record
// mutation: the cover field is simply left absent.
var ErrUploadFailed = errors.New("cover upload failed")

// Slot identifies which side of the book a cover image belongs to.
type Slot string

const (
	SlotFront Slot = "front"
	SlotBack  Slot = "back"
)

// Valid reports whether the slot is front or back.
func (s Slot) Valid() bool {
	return s == SlotFront || s == SlotBack
}

// IsRemoteURL reports whether the reference is already a fully-qualified
// remote URL and therefore needs no upload.
func IsRemoteURL(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// Uploader converts local image references into remote URLs via an
// ObjectStore.
type Uploader struct {
	store ObjectStore
}

// NewUploader creates an uploader backed by the given object store.
func NewUploader(store ObjectStore) *Uploader {
	return &Uploader{store: store}
}

// Upload resolves localURI into a durable remote URL for the given
// user/book/slot. Passing an http(s) URL returns it unchanged, since edit
// flows re-submit previously-resolved URLs.
func (u *Uploader) Upload(ctx context.Context, userID, bookID, localURI string, slot Slot) (string, error) {
	if IsRemoteURL(localURI) {
		return localURI, nil
	}
	if localURI == "" {
		return "", fmt.Errorf("%w: empty source reference", ErrUploadFailed)
	}
	if !slot.Valid() {
		return "", fmt.Errorf("%w: unknown cover slot %q", ErrUploadFailed, slot)
	}
	if userID == "" || bookID == "" {
		return "", fmt.Errorf("%w: missing user or book id", ErrUploadFailed)
	}

	path, cleanup, err := materialize(localURI)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	defer cleanup()

	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	defer src.Close()

	key := objectKey(userID, bookID, slot)
	remoteURL, err := u.store.Put(ctx, key, "image/jpeg", src)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	return remoteURL, nil
}

// objectKey derives a storage path deterministic in user, book and slot,
// with a timestamp token to avoid collisions on retake.
func objectKey(userID, bookID string, slot Slot) string {
	return fmt.Sprintf("users/%s/books/%s/%s-%d.jpg", userID, bookID, slot, time.Now().UnixNano())
}

// materialize turns a local reference into a readable filesystem path.
//
// Plain paths and file:// URIs are readable directly. Other schemes
// (content-provider style references) are not readable by the upload
// transport, so the referenced file is copied into a temporary file first;
// the returned cleanup removes that copy on both success and failure
// paths.
func materialize(ref string) (path string, cleanup func(), err error) {
	noop := func() {}

	parsed, parseErr := url.Parse(ref)
	if parseErr != nil || parsed.Scheme == "" {
		return ref, noop, nil
	}

	switch parsed.Scheme {
	case "file":
		return parsed.Path, noop, nil
	default:
		srcPath := parsed.Path
		if srcPath == "" {
			srcPath = parsed.Opaque
		}
		if srcPath == "" {
			return "", noop, fmt.Errorf("unreadable reference %q", ref)
		}

		src, err := os.Open(srcPath)
		if err != nil {
			return "", noop, err
		}
		defer src.Close()

		tmp, err := os.CreateTemp("", "cover_src_*")
		if err != nil {
			return "", noop, err
		}
		remove := func() { os.Remove(tmp.Name()) }

		if _, err := io.Copy(tmp, src); err != nil {
			tmp.Close()
			remove()
			return "", noop, err
		}
		if err := tmp.Close(); err != nil {
			remove()
			return "", noop, err
		}

		return tmp.Name(), remove, nil
	}
}
