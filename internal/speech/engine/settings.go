package engine

import "time"

// Settings is the provider configuration resolved once at startup and
// handed to every provider factory.
type Settings struct {
	ElevenLabs  ElevenLabsSettings
	PlayHT      PlayHTSettings
	HTTPTimeout time.Duration
}

// ElevenLabsSettings configures the synchronous provider.
type ElevenLabsSettings struct {
	APIKey          string
	Enabled         bool
	BaseURL         string
	ModelID         string
	Stability       float64
	SimilarityBoost float64
}

// Configured reports whether the credentials are present and the provider is enabled.
func (s ElevenLabsSettings) Configured() bool {
	return s.Enabled && s.APIKey != ""
}

// PlayHTSettings configures the asynchronous job provider.
type PlayHTSettings struct {
	SecretKey    string
	UserID       string
	Enabled      bool
	BaseURL      string
	Quality      string
	OutputFormat string

	MaxPollAttempts     int
	PollInitialInterval time.Duration
	PollMultiplier      float64
	PollMaxInterval     time.Duration

	// AllowPrivateDownloads lets completed jobs point at private addresses.
	AllowPrivateDownloads bool
}

// Configured reports whether both keys are present and the provider is enabled.
func (s PlayHTSettings) Configured() bool {
	return s.Enabled && s.SecretKey != "" && s.UserID != ""
}
