package engine

import "context"

// ProviderID identifies one of the speech-synthesis backends.
type ProviderID string

const (
	ElevenLabs ProviderID = "elevenlabs"
	PlayHT     ProviderID = "playht"
)

// SynthesisRequest is a single call to a provider.
type SynthesisRequest struct {
	Text    string
	VoiceID string
	Quality string
}

// Audio is synthesized speech as returned by a provider.
// Duration is in seconds and is zero when it could not be measured.
type Audio struct {
	Data        []byte
	ContentType string
	Duration    float64
}

// ModelInfo describes an available model for a backend.
type ModelInfo struct {
	ID          string
	DisplayName string
	IsDefault   bool
}

// Provider synthesizes speech from text.
//
// Available reports whether the provider has its credentials and is enabled.
// Synthesize returns ErrUnavailable without touching the network when it is not.
type Provider interface {
	ID() ProviderID
	Available() bool
	Synthesize(ctx context.Context, req SynthesisRequest) (*Audio, error)
	Models() []ModelInfo
	Close() error
}
