// Package audio stores synthesized audio behind caller-owned handles.
package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/google/uuid"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // file:// buckets
	_ "gocloud.dev/blob/memblob"  // mem:// buckets
	"gocloud.dev/gcerrors"

	"github.com/enhasa/enhasa/internal/speech/engine"
)

const (
	keyPrefix    = "audio/"
	metaDuration = "duration"
)

// ErrNotFound is returned for handles that were never issued or were released.
var ErrNotFound = errors.New("audio handle not found")

// Handle references playable audio. The caller that receives a handle owns
// it and must Release it when done.
type Handle struct {
	ID          string  `json:"id"`
	ContentType string  `json:"contentType"`
	Size        int64   `json:"size"`
	Duration    float64 `json:"duration"`
}

// Store issues handles for audio kept in a blob bucket.
type Store struct {
	bucket *blob.Bucket
}

// OpenStore opens the bucket at bucketURL (mem://, file:///path, ...).
func OpenStore(ctx context.Context, bucketURL string) (*Store, error) {
	if bucketURL == "" {
		bucketURL = "mem://"
	}
	b, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("open audio bucket: %w", err)
	}
	return NewStore(b), nil
}

// NewStore wraps an open bucket.
func NewStore(b *blob.Bucket) *Store {
	return &Store{bucket: b}
}

// Put writes a copy of a and returns a fresh handle for it. Handle ids are
// random v4 UUIDs; holding an id is what grants access to the audio.
func (s *Store) Put(ctx context.Context, a engine.Audio) (Handle, error) {
	id := uuid.NewString()
	opts := &blob.WriterOptions{
		ContentType: a.ContentType,
		Metadata: map[string]string{
			metaDuration: strconv.FormatFloat(a.Duration, 'f', -1, 64),
		},
	}
	if err := s.bucket.WriteAll(ctx, keyPrefix+id, a.Data, opts); err != nil {
		return Handle{}, fmt.Errorf("write audio: %w", err)
	}
	return Handle{
		ID:          id,
		ContentType: a.ContentType,
		Size:        int64(len(a.Data)),
		Duration:    a.Duration,
	}, nil
}

// Stat returns the handle metadata for id.
func (s *Store) Stat(ctx context.Context, id string) (Handle, error) {
	if !validID(id) {
		return Handle{}, ErrNotFound
	}
	attrs, err := s.bucket.Attributes(ctx, keyPrefix+id)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return Handle{}, ErrNotFound
		}
		return Handle{}, fmt.Errorf("stat audio: %w", err)
	}
	h := Handle{ID: id, ContentType: attrs.ContentType, Size: attrs.Size}
	if v, ok := attrs.Metadata[metaDuration]; ok {
		h.Duration, _ = strconv.ParseFloat(v, 64)
	}
	return h, nil
}

// Open returns a reader over the audio for id.
func (s *Store) Open(ctx context.Context, id string) (io.ReadCloser, Handle, error) {
	h, err := s.Stat(ctx, id)
	if err != nil {
		return nil, Handle{}, err
	}
	r, err := s.bucket.NewReader(ctx, keyPrefix+id, nil)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, Handle{}, ErrNotFound
		}
		return nil, Handle{}, fmt.Errorf("open audio: %w", err)
	}
	return r, h, nil
}

// Release frees the audio for id. Releasing an unknown or already released
// handle is a no-op.
func (s *Store) Release(ctx context.Context, id string) error {
	if !validID(id) {
		return nil
	}
	err := s.bucket.Delete(ctx, keyPrefix+id)
	if err != nil && gcerrors.Code(err) != gcerrors.NotFound {
		return fmt.Errorf("release audio: %w", err)
	}
	return nil
}

// Close closes the underlying bucket.
func (s *Store) Close() error {
	return s.bucket.Close()
}

// validID accepts only the canonical form Put issues, so one handle maps to
// one blob key.
func validID(id string) bool {
	u, err := uuid.Parse(id)
	return err == nil && u.Version() == 4 && u.String() == id
}
