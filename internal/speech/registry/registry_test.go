package registry

import (
	"errors"
	"testing"
)

func TestRegistryCreate(t *testing.T) {
	r := New[string, string]()
	r.Register("echo", func(cfg string) (string, error) {
		return "echo:" + cfg, nil
	})

	got, err := r.Create("echo", "hello")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got != "echo:hello" {
		t.Errorf("Create = %q, want %q", got, "echo:hello")
	}
}

func TestRegistryUnknown(t *testing.T) {
	r := New[string, int]()
	r.Register("playht", func(string) (int, error) { return 0, nil })
	r.Register("elevenlabs", func(string) (int, error) { return 0, nil })
	_, err := r.Create("missing", "")
	if err == nil {
		t.Fatal("expected error for unknown backend")
	}
	if want := `unknown backend "missing" (registered: elevenlabs, playht)`; err.Error() != want {
		t.Errorf("error = %q, want %q", err, want)
	}
	if r.Has("missing") {
		t.Error("Has should be false for unknown backend")
	}
}

func TestRegistryFactoryError(t *testing.T) {
	r := New[string, int]()
	boom := errors.New("boom")
	r.Register("bad", func(string) (int, error) { return 0, boom })

	if _, err := r.Create("bad", ""); !errors.Is(err, boom) {
		t.Errorf("Create error = %v, want %v", err, boom)
	}
}

func TestRegistryListSorted(t *testing.T) {
	r := New[string, int]()
	for _, name := range []string{"playht", "elevenlabs"} {
		r.Register(name, func(string) (int, error) { return 0, nil })
	}
	names := r.List()
	if len(names) != 2 || names[0] != "elevenlabs" || names[1] != "playht" {
		t.Errorf("List = %v, want [elevenlabs playht]", names)
	}
}

func TestRegistryCreateAllKeepsOrder(t *testing.T) {
	r := New[int, string]()
	r.Register("a", func(n int) (string, error) { return "a", nil })
	r.Register("b", func(n int) (string, error) { return "b", nil })

	got, err := r.CreateAll(1, "b", "a")
	if err != nil {
		t.Fatalf("CreateAll: %v", err)
	}
	if len(got) != 2 || got[0] != "b" || got[1] != "a" {
		t.Errorf("CreateAll = %v, want [b a]", got)
	}

	if _, err := r.CreateAll(1, "a", "missing"); err == nil {
		t.Error("expected error for unknown backend")
	}
}
