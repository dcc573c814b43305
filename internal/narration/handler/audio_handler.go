package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/enhasa/enhasa/internal/speech/audio"
)

// AudioPathPrefix is where audio handles are served.
const AudioPathPrefix = "/api/v1/audio/"

// AudioSource reads issued audio handles.
type AudioSource interface {
	Open(ctx context.Context, id string) (io.ReadCloser, audio.Handle, error)
}

// Releaser frees audio handles.
type Releaser interface {
	Release(ctx context.Context, id string, correlationID string) error
}

// AudioHandler serves and releases audio handles over plain HTTP.
type AudioHandler struct {
	source   AudioSource
	releaser Releaser
}

// NewAudioHandler creates a new audio handler.
func NewAudioHandler(source AudioSource, releaser Releaser) *AudioHandler {
	return &AudioHandler{source: source, releaser: releaser}
}

// Register mounts the audio routes on mux.
func (h *AudioHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET "+AudioPathPrefix+"{id}", h.serve)
	mux.HandleFunc("DELETE "+AudioPathPrefix+"{id}", h.release)
}

func (h *AudioHandler) serve(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rc, info, err := h.source.Open(r.Context(), id)
	if err != nil {
		if errors.Is(err, audio.ErrNotFound) {
			http.Error(w, "audio not found", http.StatusNotFound)
			return
		}
		slog.ErrorContext(r.Context(), "audio: open failed", slog.String("audio_id", id), slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer rc.Close()

	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if info.Duration > 0 {
		w.Header().Set("X-Audio-Duration", strconv.FormatFloat(info.Duration, 'f', 3, 64))
	}
	if _, err := io.Copy(w, rc); err != nil {
		slog.WarnContext(r.Context(), "audio: stream interrupted", slog.String("audio_id", id), slog.String("error", err.Error()))
	}
}

func (h *AudioHandler) release(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.releaser.Release(r.Context(), id, r.Header.Get(RequestIDHeader)); err != nil {
		slog.ErrorContext(r.Context(), "audio: release failed", slog.String("audio_id", id), slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
