// Package orchestrator turns text into narration audio across the speech
// providers: it orders the candidates, resolves voices, consults the audio
// cache and falls back to the next provider on failure.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/enhasa/enhasa/internal/speech/audio"
	"github.com/enhasa/enhasa/internal/speech/cache"
	"github.com/enhasa/enhasa/internal/speech/codec"
	"github.com/enhasa/enhasa/internal/speech/engine"
	"github.com/enhasa/enhasa/pkg/events"
	"github.com/enhasa/enhasa/pkg/transcript"
)

// Auto lets the orchestrator pick the first available provider.
const Auto = "auto"

const (
	DefaultFailureThreshold = 5
	DefaultResetTimeout     = 60 * time.Second
)

// AudioCache memoizes provider output.
type AudioCache interface {
	Get(ctx context.Context, key cache.Key) (engine.Audio, bool)
	Put(ctx context.Context, key cache.Key, a engine.Audio)
}

// HandleStore issues and frees caller-owned audio handles.
type HandleStore interface {
	Put(ctx context.Context, a engine.Audio) (audio.Handle, error)
	Release(ctx context.Context, id string) error
}

// CatalogSource supplies the voice catalog of a provider.
type CatalogSource interface {
	Catalog(provider engine.ProviderID) (engine.VoiceCatalog, bool)
}

// Emitter publishes lifecycle events.
type Emitter interface {
	Emit(ctx context.Context, eventType events.EventType, correlationID string, data any) error
}

// Options tune a single generation.
type Options struct {
	// PreferredProvider is a provider id or "auto". Unknown values behave as auto.
	PreferredProvider string
	// Voices holds an explicit voice per provider.
	Voices        map[engine.ProviderID]string
	Genre         string
	Quality       string
	CorrelationID string
}

// Result is the outcome of a generation. The zero value means no provider
// produced audio.
type Result struct {
	Handle   *audio.Handle
	Provider engine.ProviderID
	Voice    string
	Cached   bool
}

// OK reports whether audio was produced.
func (r Result) OK() bool {
	return r.Handle != nil
}

// ProviderStatus describes one provider for API listings.
type ProviderStatus struct {
	ID        engine.ProviderID
	Available bool
	Breaker   string
	Models    []engine.ModelInfo
}

type guarded struct {
	provider engine.Provider
	breaker  *gobreaker.CircuitBreaker[*engine.Audio]
}

// usable reports whether the provider is configured and its breaker is not open.
func (g *guarded) usable() bool {
	return g.provider.Available() && g.breaker.State() != gobreaker.StateOpen
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithEmitter publishes lifecycle events to e.
func WithEmitter(e Emitter) Option {
	return func(o *Orchestrator) { o.events = e }
}

// WithBreaker sets how many consecutive failures open a provider's breaker
// and how long it stays open.
func WithBreaker(failureThreshold uint32, resetTimeout time.Duration) Option {
	return func(o *Orchestrator) {
		if failureThreshold > 0 {
			o.failureThreshold = failureThreshold
		}
		if resetTimeout > 0 {
			o.resetTimeout = resetTimeout
		}
	}
}

// WithDefaultProvider sets the preference used when a request names none.
func WithDefaultProvider(p string) Option {
	return func(o *Orchestrator) { o.defaultProvider = p }
}

// Orchestrator generates narration audio. It is safe for concurrent use.
type Orchestrator struct {
	providers []*guarded
	cache     AudioCache
	store     HandleStore
	catalogs  CatalogSource
	events    Emitter

	defaultProvider  string
	failureThreshold uint32
	resetTimeout     time.Duration
}

// New creates an orchestrator. The order of providers is the tie-break
// order for automatic selection.
func New(providers []engine.Provider, c AudioCache, store HandleStore, catalogs CatalogSource, opts ...Option) (*Orchestrator, error) {
	if len(providers) == 0 {
		return nil, errors.New("orchestrator: no providers")
	}
	if c == nil || store == nil {
		return nil, errors.New("orchestrator: cache and handle store are required")
	}

	o := &Orchestrator{
		cache:            c,
		store:            store,
		catalogs:         catalogs,
		defaultProvider:  Auto,
		failureThreshold: DefaultFailureThreshold,
		resetTimeout:     DefaultResetTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}

	seen := make(map[engine.ProviderID]bool, len(providers))
	for _, p := range providers {
		if seen[p.ID()] {
			return nil, errors.New("orchestrator: duplicate provider " + string(p.ID()))
		}
		seen[p.ID()] = true
		o.providers = append(o.providers, &guarded{provider: p, breaker: o.newBreaker(p.ID())})
	}
	return o, nil
}

func (o *Orchestrator) newBreaker(id engine.ProviderID) *gobreaker.CircuitBreaker[*engine.Audio] {
	threshold := o.failureThreshold
	return gobreaker.NewCircuitBreaker[*engine.Audio](gobreaker.Settings{
		Name:    string(id),
		Timeout: o.resetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("narration: provider breaker state changed",
				slog.String("provider", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})
}

// Generate synthesizes text. Provider failures are logged and the next
// candidate tried; when every candidate fails the zero Result is returned.
func (o *Orchestrator) Generate(ctx context.Context, text string, opts Options) Result {
	if strings.TrimSpace(text) == "" {
		return Result{}
	}

	started := time.Now()
	var attempted []string

	for attempt, g := range o.candidates(opts.PreferredProvider) {
		id := g.provider.ID()
		voice := o.resolveVoice(ctx, id, opts)
		key := cache.Key{Provider: id, Voice: voice, Text: text}

		if a, ok := o.cache.Get(ctx, key); ok {
			res, err := o.issue(ctx, id, voice, a, true)
			if err == nil {
				o.completed(ctx, opts, res, started)
				return res
			}
			slog.ErrorContext(ctx, "narration: issue cached audio failed",
				slog.String("provider", string(id)), slog.String("error", err.Error()))
		}

		attempted = append(attempted, string(id))

		a, err := o.synthesize(ctx, g, engine.SynthesisRequest{Text: text, VoiceID: voice, Quality: opts.Quality}, opts.CorrelationID)
		if err != nil {
			o.providerFailed(ctx, opts, id, voice, attempt+1, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}

		if a.Duration == 0 {
			a.Duration = codec.Duration(*a)
		}
		o.cache.Put(ctx, key, *a)

		res, err := o.issue(ctx, id, voice, *a, false)
		if err != nil {
			o.providerFailed(ctx, opts, id, voice, attempt+1, err)
			continue
		}
		o.completed(ctx, opts, res, started)
		return res
	}

	slog.WarnContext(ctx, "narration: no provider produced audio",
		slog.Any("attempted", attempted),
		slog.Int("text_length", len(text)))
	o.emit(ctx, events.NarrationFailed, opts.CorrelationID, events.NarrationFailedData{
		Attempted:  attempted,
		TextLength: len(text),
	})
	return Result{}
}

// GenerateFromTranscript synthesizes the transcript text joined with spaces.
func (o *Orchestrator) GenerateFromTranscript(ctx context.Context, segments []transcript.Segment, opts Options) Result {
	if len(segments) == 0 {
		return Result{}
	}
	return o.Generate(ctx, transcript.JoinText(segments), opts)
}

// Narrate generates audio for the transcript and returns the transcript
// timed against the measured audio duration. When the duration is unknown
// the transcript is returned unchanged.
func (o *Orchestrator) Narrate(ctx context.Context, segments []transcript.Segment, opts Options) (Result, []transcript.Segment) {
	res := o.GenerateFromTranscript(ctx, segments, opts)
	if !res.OK() || res.Handle.Duration <= 0 {
		return res, segments
	}
	return res, transcript.DeriveTimestamps(segments, res.Handle.Duration)
}

// Release frees a handle previously returned in a Result.
func (o *Orchestrator) Release(ctx context.Context, id string, correlationID string) error {
	if err := o.store.Release(ctx, id); err != nil {
		return err
	}
	o.emit(ctx, events.AudioReleased, correlationID, events.AudioReleasedData{AudioID: id})
	return nil
}

// Providers reports every provider in tie-break order.
func (o *Orchestrator) Providers() []ProviderStatus {
	out := make([]ProviderStatus, 0, len(o.providers))
	for _, g := range o.providers {
		out = append(out, ProviderStatus{
			ID:        g.provider.ID(),
			Available: g.provider.Available(),
			Breaker:   g.breaker.State().String(),
			Models:    g.provider.Models(),
		})
	}
	return out
}

// candidates orders the providers for one request. An explicit preference
// goes first and the rest follow in tie-break order. With auto the first
// usable provider goes first; when none or all are usable the order is
// unchanged.
func (o *Orchestrator) candidates(preferred string) []*guarded {
	if preferred == "" {
		preferred = o.defaultProvider
	}

	first := -1
	for i, g := range o.providers {
		if string(g.provider.ID()) == preferred {
			first = i
			break
		}
	}
	if first < 0 {
		for i, g := range o.providers {
			if g.usable() {
				first = i
				break
			}
		}
	}
	if first <= 0 {
		return o.providers
	}

	out := make([]*guarded, 0, len(o.providers))
	out = append(out, o.providers[first])
	for i, g := range o.providers {
		if i != first {
			out = append(out, g)
		}
	}
	return out
}

// resolveVoice picks the explicit voice, else the genre recommendation,
// else the catalog default. Explicit voices outside the catalog are passed
// through; providers offer more voices than the catalog lists.
func (o *Orchestrator) resolveVoice(ctx context.Context, id engine.ProviderID, opts Options) string {
	var (
		c  engine.VoiceCatalog
		ok bool
	)
	if o.catalogs != nil {
		c, ok = o.catalogs.Catalog(id)
	}

	if v := opts.Voices[id]; v != "" {
		if ok {
			if _, known := c.Lookup(v); !known {
				slog.DebugContext(ctx, "narration: voice not in catalog",
					slog.String("provider", string(id)), slog.String("voice", v))
			}
		}
		return v
	}
	if !ok {
		return ""
	}
	return c.Recommend(opts.Genre)
}

func (o *Orchestrator) synthesize(ctx context.Context, g *guarded, req engine.SynthesisRequest, correlationID string) (*engine.Audio, error) {
	if !g.provider.Available() {
		return nil, engine.ErrUnavailable
	}
	o.emit(ctx, events.SynthesisStarted, correlationID, events.SynthesisStartedData{
		Provider:   string(g.provider.ID()),
		Voice:      req.VoiceID,
		TextLength: len(req.Text),
	})
	return g.breaker.Execute(func() (*engine.Audio, error) {
		return g.provider.Synthesize(ctx, req)
	})
}

func (o *Orchestrator) issue(ctx context.Context, id engine.ProviderID, voice string, a engine.Audio, cached bool) (Result, error) {
	h, err := o.store.Put(ctx, a)
	if err != nil {
		return Result{}, err
	}
	return Result{Handle: &h, Provider: id, Voice: voice, Cached: cached}, nil
}

func (o *Orchestrator) providerFailed(ctx context.Context, opts Options, id engine.ProviderID, voice string, attempt int, err error) {
	level := slog.LevelWarn
	if errors.Is(err, engine.ErrUnavailable) || errors.Is(err, gobreaker.ErrOpenState) {
		level = slog.LevelInfo
	}
	slog.Log(ctx, level, "narration: provider failed, trying next",
		slog.String("provider", string(id)),
		slog.String("voice", voice),
		slog.Int("attempt", attempt),
		slog.String("error", err.Error()))
	o.emit(ctx, events.ProviderFailed, opts.CorrelationID, events.ProviderFailedData{
		Provider: string(id),
		Voice:    voice,
		Error:    err.Error(),
		Attempt:  attempt,
	})
}

func (o *Orchestrator) completed(ctx context.Context, opts Options, res Result, started time.Time) {
	o.emit(ctx, events.NarrationCompleted, opts.CorrelationID, events.NarrationCompletedData{
		Provider:        string(res.Provider),
		Voice:           res.Voice,
		AudioID:         res.Handle.ID,
		Cached:          res.Cached,
		DurationSeconds: res.Handle.Duration,
		LatencyMs:       time.Since(started).Milliseconds(),
	})
}

func (o *Orchestrator) emit(ctx context.Context, eventType events.EventType, correlationID string, data any) {
	if o.events == nil {
		return
	}
	if err := o.events.Emit(ctx, eventType, correlationID, data); err != nil {
		slog.WarnContext(ctx, "narration: emit event failed",
			slog.String("event_type", string(eventType)),
			slog.String("error", err.Error()))
	}
}
