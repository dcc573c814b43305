// Package playht implements the asynchronous PlayHT job API: a synthesis job
// is submitted, polled until it settles, and the finished audio downloaded.
package playht

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/enhasa/enhasa/internal/speech/backends/restutil"
	"github.com/enhasa/enhasa/internal/speech/engine"
	"github.com/enhasa/enhasa/internal/speech/registry"
	"github.com/enhasa/enhasa/pkg/urlvalidation"
)

const (
	DefaultBaseURL      = "https://api.play.ht/api/v2"
	DefaultVoice        = "jennifer"
	DefaultQuality      = "premium"
	DefaultOutputFormat = "mp3"

	DefaultMaxPollAttempts     = 30
	DefaultPollInitialInterval = time.Second
	DefaultPollMultiplier      = 1.5
	DefaultPollMaxInterval     = 5 * time.Second
)

// Job statuses reported by the poll endpoint.
const (
	StatusQueued    = "QUEUED"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

func init() {
	registry.TTS.Register(string(engine.PlayHT), func(s engine.Settings) (engine.Provider, error) {
		return New(s.PlayHT, restutil.New(s.HTTPTimeout)), nil
	})
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type submitRequest struct {
	Text         string `json:"text"`
	Voice        string `json:"voice"`
	Quality      string `json:"quality"`
	OutputFormat string `json:"output_format"`
}

type submitResponse struct {
	ID string `json:"id"`
}

type jobStatus struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	URL    string `json:"url,omitempty"`
}

// Option configures a Provider.
type Option func(*Provider)

// WithSleeper replaces the wait between poll attempts.
func WithSleeper(s Sleeper) Option {
	return func(p *Provider) { p.sleep = s }
}

// Provider synthesizes speech through submit-then-poll jobs.
type Provider struct {
	settings engine.PlayHTSettings
	client   *restutil.Client
	sleep    Sleeper
}

// New creates the provider, filling unset poll and request settings with
// the API defaults.
func New(s engine.PlayHTSettings, client *restutil.Client, opts ...Option) *Provider {
	if s.BaseURL == "" {
		s.BaseURL = DefaultBaseURL
	}
	s.BaseURL = strings.TrimRight(s.BaseURL, "/")
	if s.Quality == "" {
		s.Quality = DefaultQuality
	}
	if s.OutputFormat == "" {
		s.OutputFormat = DefaultOutputFormat
	}
	if s.MaxPollAttempts <= 0 {
		s.MaxPollAttempts = DefaultMaxPollAttempts
	}
	if s.PollInitialInterval <= 0 {
		s.PollInitialInterval = DefaultPollInitialInterval
	}
	if s.PollMultiplier < 1 {
		s.PollMultiplier = DefaultPollMultiplier
	}
	if s.PollMaxInterval <= 0 {
		s.PollMaxInterval = DefaultPollMaxInterval
	}

	p := &Provider{settings: s, client: client, sleep: sleepContext}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) ID() engine.ProviderID { return engine.PlayHT }

func (p *Provider) Available() bool { return p.settings.Configured() }

func (p *Provider) Synthesize(ctx context.Context, req engine.SynthesisRequest) (*engine.Audio, error) {
	if !p.Available() {
		return nil, engine.ErrUnavailable
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, engine.ErrEmptyText
	}

	jobID, err := p.submit(ctx, req)
	if err != nil {
		return nil, &engine.RequestError{Provider: engine.PlayHT, Op: "submit", Err: err}
	}

	audioURL, err := p.awaitJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	return p.download(ctx, audioURL)
}

func (p *Provider) headers() map[string]string {
	return map[string]string{
		"Authorization": p.settings.SecretKey,
		"X-User-ID":     p.settings.UserID,
	}
}

func (p *Provider) submit(ctx context.Context, req engine.SynthesisRequest) (string, error) {
	voice := req.VoiceID
	if voice == "" {
		voice = DefaultVoice
	}
	quality := req.Quality
	if quality == "" {
		quality = p.settings.Quality
	}

	var resp submitResponse
	err := p.client.DoJSON(ctx, http.MethodPost, p.settings.BaseURL+"/tts", p.headers(), submitRequest{
		Text:         req.Text,
		Voice:        voice,
		Quality:      quality,
		OutputFormat: p.settings.OutputFormat,
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", errors.New("job id missing from response")
	}
	return resp.ID, nil
}

// awaitJob polls the job until it completes with a URL, fails, or the
// attempt budget runs out. A wait precedes every attempt. Errors from a
// single poll are logged and count as a used attempt.
func (p *Provider) awaitJob(ctx context.Context, jobID string) (string, error) {
	schedule := &backoff.ExponentialBackOff{
		InitialInterval:     p.settings.PollInitialInterval,
		RandomizationFactor: 0,
		Multiplier:          p.settings.PollMultiplier,
		MaxInterval:         p.settings.PollMaxInterval,
	}
	schedule.Reset()

	statusURL := fmt.Sprintf("%s/tts/%s", p.settings.BaseURL, url.PathEscape(jobID))

	for attempt := 1; attempt <= p.settings.MaxPollAttempts; attempt++ {
		if err := p.sleep(ctx, schedule.NextBackOff()); err != nil {
			return "", err
		}

		var status jobStatus
		if err := p.client.DoJSON(ctx, http.MethodGet, statusURL, p.headers(), nil, &status); err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			slog.WarnContext(ctx, "playht: poll attempt failed",
				slog.String("job_id", jobID),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
			continue
		}

		switch status.Status {
		case StatusCompleted:
			if status.URL != "" {
				return status.URL, nil
			}
		case StatusFailed:
			return "", fmt.Errorf("playht job %s: %w", jobID, engine.ErrJobFailed)
		}
	}

	return "", fmt.Errorf("playht job %s after %d attempts: %w", jobID, p.settings.MaxPollAttempts, engine.ErrTimeout)
}

func (p *Provider) download(ctx context.Context, audioURL string) (*engine.Audio, error) {
	var opts []urlvalidation.Option
	if p.settings.AllowPrivateDownloads {
		opts = append(opts, urlvalidation.AllowPrivateIPs())
	}
	if err := urlvalidation.ValidateOutboundURL(ctx, audioURL, opts...); err != nil {
		return nil, &engine.RequestError{Provider: engine.PlayHT, Op: "download", Err: err}
	}

	data, contentType, err := p.client.Download(ctx, http.MethodGet, audioURL, nil, nil)
	if err != nil {
		return nil, &engine.RequestError{Provider: engine.PlayHT, Op: "download", Err: err}
	}
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = contentTypeFor(p.settings.OutputFormat)
	}
	return &engine.Audio{Data: data, ContentType: contentType}, nil
}

func contentTypeFor(format string) string {
	switch strings.ToLower(format) {
	case "wav":
		return "audio/wav"
	case "ogg":
		return "audio/ogg"
	case "flac":
		return "audio/flac"
	default:
		return "audio/mpeg"
	}
}

func (p *Provider) Models() []engine.ModelInfo {
	return []engine.ModelInfo{
		{ID: "premium", DisplayName: "Premium", IsDefault: p.settings.Quality == "premium"},
		{ID: "high", DisplayName: "High", IsDefault: p.settings.Quality == "high"},
		{ID: "medium", DisplayName: "Medium", IsDefault: p.settings.Quality == "medium"},
		{ID: "draft", DisplayName: "Draft", IsDefault: p.settings.Quality == "draft"},
	}
}

func (p *Provider) Close() error {
	return nil
}
