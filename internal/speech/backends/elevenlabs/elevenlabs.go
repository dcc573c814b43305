// Package elevenlabs implements the synchronous ElevenLabs text-to-speech API.
package elevenlabs

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/enhasa/enhasa/internal/speech/backends/restutil"
	"github.com/enhasa/enhasa/internal/speech/engine"
	"github.com/enhasa/enhasa/internal/speech/registry"
)

const (
	DefaultBaseURL = "https://api.elevenlabs.io/v1"
	DefaultModel   = "eleven_multilingual_v2"
	// DefaultVoice is Rachel.
	DefaultVoice = "21m00Tcm4TlvDq8ikWAM"
)

func init() {
	registry.TTS.Register(string(engine.ElevenLabs), func(s engine.Settings) (engine.Provider, error) {
		return New(s.ElevenLabs, restutil.New(s.HTTPTimeout)), nil
	})
}

type ttsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// Provider synthesizes speech with a single blocking request.
type Provider struct {
	settings engine.ElevenLabsSettings
	client   *restutil.Client
}

// New creates the provider. Missing optional settings fall back to the
// public API defaults.
func New(s engine.ElevenLabsSettings, client *restutil.Client) *Provider {
	if s.BaseURL == "" {
		s.BaseURL = DefaultBaseURL
	}
	s.BaseURL = strings.TrimRight(s.BaseURL, "/")
	if s.ModelID == "" {
		s.ModelID = DefaultModel
	}
	if s.Stability == 0 && s.SimilarityBoost == 0 {
		s.Stability, s.SimilarityBoost = 0.5, 0.75
	}
	return &Provider{settings: s, client: client}
}

func (p *Provider) ID() engine.ProviderID { return engine.ElevenLabs }

func (p *Provider) Available() bool { return p.settings.Configured() }

func (p *Provider) Synthesize(ctx context.Context, req engine.SynthesisRequest) (*engine.Audio, error) {
	if !p.Available() {
		return nil, engine.ErrUnavailable
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, engine.ErrEmptyText
	}
	voice := req.VoiceID
	if voice == "" {
		voice = DefaultVoice
	}

	body, err := restutil.JSONBody(ttsRequest{
		Text:    req.Text,
		ModelID: p.settings.ModelID,
		VoiceSettings: voiceSettings{
			Stability:       p.settings.Stability,
			SimilarityBoost: p.settings.SimilarityBoost,
		},
	})
	if err != nil {
		return nil, &engine.RequestError{Provider: engine.ElevenLabs, Op: "synthesize", Err: err}
	}

	apiURL := fmt.Sprintf("%s/text-to-speech/%s", p.settings.BaseURL, url.PathEscape(voice))
	headers := map[string]string{
		"xi-api-key":   p.settings.APIKey,
		"Content-Type": "application/json",
		"Accept":       "audio/mpeg",
	}

	data, contentType, err := p.client.Download(ctx, http.MethodPost, apiURL, headers, body)
	if err != nil {
		return nil, &engine.RequestError{Provider: engine.ElevenLabs, Op: "synthesize", Err: err}
	}
	if contentType == "" {
		contentType = "audio/mpeg"
	}
	return &engine.Audio{Data: data, ContentType: contentType}, nil
}

func (p *Provider) Models() []engine.ModelInfo {
	return []engine.ModelInfo{
		{ID: "eleven_multilingual_v2", DisplayName: "Multilingual v2", IsDefault: p.settings.ModelID == "eleven_multilingual_v2"},
		{ID: "eleven_monolingual_v1", DisplayName: "Monolingual v1", IsDefault: p.settings.ModelID == "eleven_monolingual_v1"},
		{ID: "eleven_turbo_v2", DisplayName: "Turbo v2", IsDefault: p.settings.ModelID == "eleven_turbo_v2"},
	}
}

func (p *Provider) Close() error {
	return nil
}
