package audio

import (
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/enhasa/enhasa/internal/speech/engine"
)

func newMemStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(t.Context(), "mem://")
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutOpen(t *testing.T) {
	s := newMemStore(t)
	h, err := s.Put(t.Context(), engine.Audio{Data: []byte("mp3"), ContentType: "audio/mpeg", Duration: 12.5})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if h.Size != 3 || h.Duration != 12.5 {
		t.Errorf("handle = %+v", h)
	}

	r, got, err := s.Open(t.Context(), h.ID)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()
	data, _ := io.ReadAll(r)
	if string(data) != "mp3" {
		t.Errorf("data = %q", data)
	}
	if got.ContentType != "audio/mpeg" || got.Duration != 12.5 {
		t.Errorf("opened handle = %+v", got)
	}
}

func TestEachPutMintsNewHandle(t *testing.T) {
	s := newMemStore(t)
	a := engine.Audio{Data: []byte("x"), ContentType: "audio/mpeg"}
	h1, _ := s.Put(t.Context(), a)
	h2, _ := s.Put(t.Context(), a)
	if h1.ID == h2.ID {
		t.Fatal("handles share an id")
	}
	if err := s.Release(t.Context(), h1.ID); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, _, err := s.Open(t.Context(), h2.ID); err != nil {
		t.Errorf("releasing one handle affected another: %v", err)
	}
}

func TestRelease(t *testing.T) {
	s := newMemStore(t)
	h, _ := s.Put(t.Context(), engine.Audio{Data: []byte("x"), ContentType: "audio/mpeg"})
	if err := s.Release(t.Context(), h.ID); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, _, err := s.Open(t.Context(), h.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Open after release = %v, want ErrNotFound", err)
	}
	if err := s.Release(t.Context(), h.ID); err != nil {
		t.Errorf("double release = %v, want nil", err)
	}
	if err := s.Release(t.Context(), "../../etc/passwd"); err != nil {
		t.Errorf("release of malformed id = %v, want nil", err)
	}
}

func TestOpenUnknown(t *testing.T) {
	s := newMemStore(t)
	if _, _, err := s.Open(t.Context(), "6f1c2a9e-3b4d-4e5f-8a7b-9c0d1e2f3a4b"); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
	if _, err := s.Stat(t.Context(), "not-an-id"); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestHandleIDsAreRandomUUIDs(t *testing.T) {
	s := newMemStore(t)
	a := engine.Audio{Data: []byte("x"), ContentType: "audio/mpeg"}
	h1, _ := s.Put(t.Context(), a)
	h2, _ := s.Put(t.Context(), a)

	for _, id := range []string{h1.ID, h2.ID} {
		u, err := uuid.Parse(id)
		if err != nil || u.Version() != 4 {
			t.Errorf("id %q is not a v4 UUID (%v)", id, err)
		}
	}
	if h1.ID[:8] == h2.ID[:8] {
		t.Errorf("consecutive ids share a prefix: %q %q", h1.ID, h2.ID)
	}

	// Non-canonical spellings of an issued id are rejected.
	upper := strings.ToUpper(h1.ID)
	if _, err := s.Stat(t.Context(), upper); !errors.Is(err, ErrNotFound) {
		t.Errorf("Stat(%q) = %v, want ErrNotFound", upper, err)
	}
}

func TestFileBucket(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenStore(t.Context(), "file://"+filepath.ToSlash(dir))
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer s.Close()

	h, err := s.Put(t.Context(), engine.Audio{Data: []byte("wav"), ContentType: "audio/wav"})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Stat(t.Context(), h.ID)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if got.Size != 3 || got.ContentType != "audio/wav" {
		t.Errorf("stat = %+v", got)
	}
}
