// Package narrationv1 defines the NarrationService API: its messages and
// the Connect handler and client bindings.
package narrationv1

import "github.com/enhasa/enhasa/pkg/transcript"

// GenerateOptions tune provider and voice selection.
type GenerateOptions struct {
	// PreferredProvider is "elevenlabs", "playht" or "auto".
	PreferredProvider string `json:"preferredProvider,omitempty"`
	// Voices maps a provider id to the voice to use with it.
	Voices  map[string]string `json:"voices,omitempty"`
	Genre   string            `json:"genre,omitempty"`
	Quality string            `json:"quality,omitempty"`
}

// Audio describes a caller-owned audio handle. URL serves the bytes until
// the handle is released.
type Audio struct {
	ID          string  `json:"id"`
	ContentType string  `json:"contentType"`
	Size        int64   `json:"size"`
	Duration    float64 `json:"duration"`
	URL         string  `json:"url"`
}

type GenerateRequest struct {
	Text    string          `json:"text"`
	Options GenerateOptions `json:"options"`
}

// GenerateResponse carries a nil Audio when no provider produced audio.
type GenerateResponse struct {
	Audio    *Audio `json:"audio"`
	Provider string `json:"provider,omitempty"`
	Voice    string `json:"voice,omitempty"`
	Cached   bool   `json:"cached"`
}

type GenerateFromTranscriptRequest struct {
	Segments []transcript.Segment `json:"segments"`
	Options  GenerateOptions      `json:"options"`
}

type NarrateRequest struct {
	Segments []transcript.Segment `json:"segments"`
	Options  GenerateOptions      `json:"options"`
}

type NarrateResponse struct {
	Audio    *Audio               `json:"audio"`
	Provider string               `json:"provider,omitempty"`
	Voice    string               `json:"voice,omitempty"`
	Cached   bool                 `json:"cached"`
	Segments []transcript.Segment `json:"segments"`
}

type ActiveSegmentRequest struct {
	Segments    []transcript.Segment `json:"segments"`
	CurrentTime float64              `json:"currentTime"`
}

// ActiveSegmentResponse has a nil Segment and Index -1 when nothing is playing.
type ActiveSegmentResponse struct {
	Segment *transcript.Segment `json:"segment"`
	Index   int                 `json:"index"`
}

type DeriveTimestampsRequest struct {
	Segments      []transcript.Segment `json:"segments"`
	TotalDuration float64              `json:"totalDuration"`
}

type DeriveTimestampsResponse struct {
	Segments []transcript.Segment `json:"segments"`
}

type ListVoicesRequest struct {
	// Provider filters the listing; empty lists every provider.
	Provider string `json:"provider,omitempty"`
}

type Voice struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Description    string   `json:"description,omitempty"`
	SuitableGenres []string `json:"suitableGenres,omitempty"`
}

type Model struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	IsDefault   bool   `json:"isDefault"`
}

type ProviderVoices struct {
	Provider     string  `json:"provider"`
	Available    bool    `json:"available"`
	Breaker      string  `json:"breaker"`
	DefaultVoice string  `json:"defaultVoice"`
	Voices       []Voice `json:"voices"`
	Models       []Model `json:"models"`
	Archived     int64   `json:"archived,omitempty"`
}

type ListVoicesResponse struct {
	Providers     []ProviderVoices `json:"providers"`
	CachedEntries int              `json:"cachedEntries"`
}

type ReleaseAudioRequest struct {
	AudioID string `json:"audioId"`
}

type ReleaseAudioResponse struct {
	Released bool `json:"released"`
}

// PregenerateRequest asks for a chapter to be narrated in the background
// so later requests are served from the cache.
type PregenerateRequest struct {
	BookID    string               `json:"bookId"`
	ChapterID string               `json:"chapterId"`
	Segments  []transcript.Segment `json:"segments"`
	Options   GenerateOptions      `json:"options"`

	// CallbackURL, when set, receives a signed POST once the job finishes.
	CallbackURL string `json:"callbackUrl,omitempty"`
}

type PregenerateResponse struct {
	Accepted bool   `json:"accepted"`
	JobID    string `json:"jobId"`
}
