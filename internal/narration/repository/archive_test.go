package repository

import (
	"path/filepath"
	"testing"

	"gocloud.dev/blob"
	"gocloud.dev/blob/memblob"

	"github.com/enhasa/enhasa/internal/speech/cache"
	"github.com/enhasa/enhasa/internal/speech/engine"
)

func newTestArchive(t *testing.T) (*Archive, *Repository, *blob.Bucket) {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo := NewRepository(db)
	if err := repo.Migrate(t.Context()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	bucket := memblob.OpenBucket(nil)
	t.Cleanup(func() { bucket.Close() })
	return NewArchive(repo, bucket), repo, bucket
}

func TestArchiveRoundTrip(t *testing.T) {
	archive, _, _ := newTestArchive(t)
	key := cache.Key{Provider: engine.PlayHT, Voice: "jack", Text: "The butler did it."}

	if _, ok, err := archive.Load(t.Context(), key); err != nil || ok {
		t.Fatalf("Load on empty archive = %v, %v", ok, err)
	}

	err := archive.Store(t.Context(), key, engine.Audio{Data: []byte("mp3"), ContentType: "audio/mpeg", Duration: 2.5})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}

	got, ok, err := archive.Load(t.Context(), key)
	if err != nil || !ok {
		t.Fatalf("Load = %v, %v", ok, err)
	}
	if string(got.Data) != "mp3" || got.ContentType != "audio/mpeg" || got.Duration != 2.5 {
		t.Errorf("audio = %+v", got)
	}

	counts, err := archive.Counts(t.Context())
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if counts[engine.PlayHT] != 1 || counts[engine.ElevenLabs] != 0 {
		t.Errorf("counts = %v", counts)
	}
}

func TestArchiveLastWriterWins(t *testing.T) {
	archive, repo, _ := newTestArchive(t)
	key := cache.Key{Provider: engine.ElevenLabs, Voice: "v", Text: "x"}

	archive.Store(t.Context(), key, engine.Audio{Data: []byte("one"), ContentType: "audio/mpeg"})
	if err := archive.Store(t.Context(), key, engine.Audio{Data: []byte("two!"), ContentType: "audio/mpeg"}); err != nil {
		t.Fatalf("second Store: %v", err)
	}

	got, _, _ := archive.Load(t.Context(), key)
	if string(got.Data) != "two!" {
		t.Errorf("data = %q, want two!", got.Data)
	}
	rec, err := repo.GetByCacheKey(t.Context(), key.Digest())
	if err != nil {
		t.Fatalf("GetByCacheKey: %v", err)
	}
	if rec.SizeBytes != 4 {
		t.Errorf("size = %d, want 4", rec.SizeBytes)
	}
}

func TestArchiveMissingBlobIsMiss(t *testing.T) {
	archive, repo, bucket := newTestArchive(t)
	key := cache.Key{Provider: engine.ElevenLabs, Voice: "v", Text: "gone"}
	archive.Store(t.Context(), key, engine.Audio{Data: []byte("x")})
	if err := bucket.Delete(t.Context(), archivePrefix+key.Digest()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, err := archive.Load(t.Context(), key); ok || err != nil {
		t.Errorf("Load = %v, %v; want clean miss", ok, err)
	}
	if _, err := repo.GetByCacheKey(t.Context(), key.Digest()); err != ErrNotFound {
		t.Errorf("orphaned record kept: GetByCacheKey = %v, want ErrNotFound", err)
	}
}

func TestArchiveAsDurableCacheTier(t *testing.T) {
	archive, _, _ := newTestArchive(t)
	key := cache.Key{Provider: engine.PlayHT, Voice: "sophie", Text: "Once upon a time"}

	warm, _ := cache.New(4, cache.WithDurable(archive))
	warm.Put(t.Context(), key, engine.Audio{Data: []byte("story"), ContentType: "audio/mpeg"})

	// A fresh memory tier, as after a restart.
	cold, _ := cache.New(4, cache.WithDurable(archive))
	got, ok := cold.Get(t.Context(), key)
	if !ok || string(got.Data) != "story" {
		t.Errorf("Get = %q, %v", got.Data, ok)
	}
}

func TestDeleteByCacheKey(t *testing.T) {
	archive, repo, _ := newTestArchive(t)
	key := cache.Key{Provider: engine.PlayHT, Voice: "mike", Text: "Go!"}
	archive.Store(t.Context(), key, engine.Audio{Data: []byte("x")})
	if err := repo.DeleteByCacheKey(t.Context(), key.Digest()); err != nil {
		t.Fatalf("DeleteByCacheKey: %v", err)
	}
	if _, err := repo.GetByCacheKey(t.Context(), key.Digest()); err != ErrNotFound {
		t.Errorf("GetByCacheKey after delete = %v, want ErrNotFound", err)
	}
}
