package events

import (
	"encoding/json"
	"time"
)

// EventType identifies the kind of event flowing through the system.
type EventType string

const (
	SynthesisStarted    EventType = "narration.synthesis.started"
	ProviderFailed      EventType = "narration.provider.failed"
	NarrationCompleted  EventType = "narration.completed"
	NarrationFailed     EventType = "narration.failed"
	AudioReleased       EventType = "audio.released"
	PregenerationQueued EventType = "pregeneration.queued"
	PregenerationDone   EventType = "pregeneration.done"
	PregenerationFailed EventType = "pregeneration.failed"
)

// Envelope is the standard event wrapper published to the event bus.
type Envelope struct {
	ID            string            `json:"id"`
	Type          EventType         `json:"type"`
	Source        string            `json:"source"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Timestamp     time.Time         `json:"timestamp"`
	Data          json.RawMessage   `json:"data"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// SynthesisStartedData is the payload for narration.synthesis.started events.
type SynthesisStartedData struct {
	Provider   string `json:"provider"`
	Voice      string `json:"voice"`
	TextLength int    `json:"text_length"`
}

// ProviderFailedData is the payload for narration.provider.failed events.
type ProviderFailedData struct {
	Provider string `json:"provider"`
	Voice    string `json:"voice"`
	Error    string `json:"error"`
	Attempt  int    `json:"attempt"`
}

// NarrationCompletedData is the payload for narration.completed events.
type NarrationCompletedData struct {
	Provider        string  `json:"provider"`
	Voice           string  `json:"voice"`
	AudioID         string  `json:"audio_id"`
	Cached          bool    `json:"cached"`
	DurationSeconds float64 `json:"duration_seconds"`
	LatencyMs       int64   `json:"latency_ms"`
}

// NarrationFailedData is the payload for narration.failed events, emitted
// when no provider produced audio.
type NarrationFailedData struct {
	Attempted  []string `json:"attempted"`
	TextLength int      `json:"text_length"`
}

// AudioReleasedData is the payload for audio.released events.
type AudioReleasedData struct {
	AudioID string `json:"audio_id"`
}

// PregenerationData is the payload for pregeneration events.
type PregenerationData struct {
	BookID    string `json:"book_id"`
	ChapterID string `json:"chapter_id"`
	Segments  int    `json:"segments"`
	Provider  string `json:"provider,omitempty"`
}
