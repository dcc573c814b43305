package restutil

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDoJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Content-Type = %q", r.Header.Get("Content-Type"))
		}
		if r.Header.Get("X-Test") != "yes" {
			t.Error("missing custom header")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"job-1"}`))
	}))
	defer ts.Close()

	c := New(5 * time.Second)
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.DoJSON(t.Context(), http.MethodPost, ts.URL, map[string]string{"X-Test": "yes"}, map[string]string{"a": "b"}, &resp); err != nil {
		t.Fatalf("DoJSON: %v", err)
	}
	if resp.ID != "job-1" {
		t.Errorf("id = %q, want %q", resp.ID, "job-1")
	}
}

func TestDoJSONStatusError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer ts.Close()

	err := New(time.Second).DoJSON(t.Context(), http.MethodGet, ts.URL, nil, nil, nil)
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("error = %v, want *HTTPError", err)
	}
	if httpErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d, want %d", httpErr.StatusCode, http.StatusTooManyRequests)
	}
}

func TestDownload(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("ID3audio"))
	}))
	defer ts.Close()

	data, ct, err := New(time.Second).Download(t.Context(), http.MethodGet, ts.URL, nil, nil)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if string(data) != "ID3audio" {
		t.Errorf("data = %q", data)
	}
	if ct != "audio/mpeg" {
		t.Errorf("content type = %q, want audio/mpeg", ct)
	}
}
