package repository

import (
	"context"
	"errors"
	"fmt"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	"github.com/enhasa/enhasa/internal/speech/cache"
	"github.com/enhasa/enhasa/internal/speech/engine"
)

const archivePrefix = "archive/"

// Archive is the durable cache tier: records in the datastore, bytes in
// the blob bucket.
type Archive struct {
	repo   *Repository
	bucket *blob.Bucket
}

// NewArchive creates an archive over repo and bucket.
func NewArchive(repo *Repository, bucket *blob.Bucket) *Archive {
	return &Archive{repo: repo, bucket: bucket}
}

// Load returns the archived audio for key.
func (a *Archive) Load(ctx context.Context, key cache.Key) (engine.Audio, bool, error) {
	rec, err := a.repo.GetByCacheKey(ctx, key.Digest())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return engine.Audio{}, false, nil
		}
		return engine.Audio{}, false, fmt.Errorf("load audio record: %w", err)
	}

	data, err := a.bucket.ReadAll(ctx, rec.BlobKey)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			// The record outlived its bytes; drop it so the next Store rewrites both.
			if derr := a.repo.DeleteByCacheKey(ctx, rec.CacheKey); derr != nil {
				return engine.Audio{}, false, fmt.Errorf("drop orphaned audio record: %w", derr)
			}
			return engine.Audio{}, false, nil
		}
		return engine.Audio{}, false, fmt.Errorf("read archived audio: %w", err)
	}
	return engine.Audio{Data: data, ContentType: rec.ContentType, Duration: rec.DurationSeconds}, true, nil
}

// Store archives audio under key, replacing any earlier entry.
func (a *Archive) Store(ctx context.Context, key cache.Key, audio engine.Audio) error {
	digest := key.Digest()
	blobKey := archivePrefix + digest
	if err := a.bucket.WriteAll(ctx, blobKey, audio.Data, &blob.WriterOptions{ContentType: audio.ContentType}); err != nil {
		return fmt.Errorf("write archived audio: %w", err)
	}
	return a.repo.Upsert(ctx, &AudioRecord{
		CacheKey:        digest,
		Provider:        string(key.Provider),
		Voice:           key.Voice,
		TextLength:      len(key.Text),
		ContentType:     audio.ContentType,
		SizeBytes:       int64(len(audio.Data)),
		DurationSeconds: audio.Duration,
		BlobKey:         blobKey,
	})
}

// Counts returns how many entries each provider has archived.
func (a *Archive) Counts(ctx context.Context) (map[engine.ProviderID]int64, error) {
	byName, err := a.repo.CountByProvider(ctx)
	if err != nil {
		return nil, fmt.Errorf("count archived audio: %w", err)
	}
	out := make(map[engine.ProviderID]int64, len(byName))
	for p, n := range byName {
		out[engine.ProviderID(p)] = n
	}
	return out, nil
}
