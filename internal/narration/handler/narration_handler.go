package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"connectrpc.com/connect"
	"github.com/rs/xid"

	"github.com/enhasa/enhasa/internal/narration/orchestrator"
	"github.com/enhasa/enhasa/internal/narration/worker"
	"github.com/enhasa/enhasa/internal/speech/engine"
	"github.com/enhasa/enhasa/pkg/events"
	"github.com/enhasa/enhasa/pkg/narrationv1"
	"github.com/enhasa/enhasa/pkg/transcript"
	"github.com/enhasa/enhasa/pkg/urlvalidation"
)

// Ensure we implement the interface.
var _ narrationv1.NarrationServiceHandler = (*NarrationHandler)(nil)

// DefaultMaxTextRunes bounds the text of a single request.
const DefaultMaxTextRunes = 100_000

// RequestIDHeader carries the caller's correlation id.
const RequestIDHeader = "X-Request-ID"

// Service is the orchestration the handler exposes.
type Service interface {
	Generate(ctx context.Context, text string, opts orchestrator.Options) orchestrator.Result
	GenerateFromTranscript(ctx context.Context, segments []transcript.Segment, opts orchestrator.Options) orchestrator.Result
	Narrate(ctx context.Context, segments []transcript.Segment, opts orchestrator.Options) (orchestrator.Result, []transcript.Segment)
	Release(ctx context.Context, id string, correlationID string) error
	Providers() []orchestrator.ProviderStatus
}

// Catalogs supplies the active voice catalogs.
type Catalogs interface {
	Catalog(provider engine.ProviderID) (engine.VoiceCatalog, bool)
}

// CacheSizer reports how many entries the memory cache holds.
type CacheSizer interface {
	Len() int
}

// ArchiveCounter reports how many entries each provider has archived.
type ArchiveCounter interface {
	Counts(ctx context.Context) (map[engine.ProviderID]int64, error)
}

// NarrationHandler implements narrationv1.NarrationServiceHandler.
type NarrationHandler struct {
	svc          Service
	catalogs     Catalogs
	dispatcher   worker.Dispatcher
	events       orchestrator.Emitter
	cache        CacheSizer
	archive      ArchiveCounter
	audioPath    string
	maxTextRunes int
}

// Option configures a NarrationHandler.
type Option func(*NarrationHandler)

// WithDispatcher enables the Pregenerate RPC.
func WithDispatcher(d worker.Dispatcher) Option {
	return func(h *NarrationHandler) { h.dispatcher = d }
}

// WithEmitter publishes pregeneration events.
func WithEmitter(e orchestrator.Emitter) Option {
	return func(h *NarrationHandler) { h.events = e }
}

// WithCache reports the memory cache size in ListVoices.
func WithCache(c CacheSizer) Option {
	return func(h *NarrationHandler) { h.cache = c }
}

// WithArchive reports per-provider archive counts in ListVoices.
func WithArchive(a ArchiveCounter) Option {
	return func(h *NarrationHandler) { h.archive = a }
}

// WithMaxTextRunes overrides DefaultMaxTextRunes.
func WithMaxTextRunes(n int) Option {
	return func(h *NarrationHandler) {
		if n > 0 {
			h.maxTextRunes = n
		}
	}
}

// NewNarrationHandler creates a new narration service handler.
func NewNarrationHandler(svc Service, catalogs Catalogs, opts ...Option) *NarrationHandler {
	h := &NarrationHandler{
		svc:          svc,
		catalogs:     catalogs,
		audioPath:    AudioPathPrefix,
		maxTextRunes: DefaultMaxTextRunes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *NarrationHandler) Generate(ctx context.Context, req *connect.Request[narrationv1.GenerateRequest]) (*connect.Response[narrationv1.GenerateResponse], error) {
	if err := h.checkText(req.Msg.Text); err != nil {
		return nil, err
	}
	res := h.svc.Generate(ctx, req.Msg.Text, h.options(req.Msg.Options, req.Header().Get(RequestIDHeader)))
	return connect.NewResponse(h.generateResponse(res)), nil
}

func (h *NarrationHandler) GenerateFromTranscript(ctx context.Context, req *connect.Request[narrationv1.GenerateFromTranscriptRequest]) (*connect.Response[narrationv1.GenerateResponse], error) {
	if err := h.checkSegments(req.Msg.Segments); err != nil {
		return nil, err
	}
	res := h.svc.GenerateFromTranscript(ctx, req.Msg.Segments, h.options(req.Msg.Options, req.Header().Get(RequestIDHeader)))
	return connect.NewResponse(h.generateResponse(res)), nil
}

func (h *NarrationHandler) Narrate(ctx context.Context, req *connect.Request[narrationv1.NarrateRequest]) (*connect.Response[narrationv1.NarrateResponse], error) {
	if err := h.checkSegments(req.Msg.Segments); err != nil {
		return nil, err
	}
	res, timed := h.svc.Narrate(ctx, req.Msg.Segments, h.options(req.Msg.Options, req.Header().Get(RequestIDHeader)))
	g := h.generateResponse(res)
	return connect.NewResponse(&narrationv1.NarrateResponse{
		Audio:    g.Audio,
		Provider: g.Provider,
		Voice:    g.Voice,
		Cached:   g.Cached,
		Segments: timed,
	}), nil
}

func (h *NarrationHandler) ActiveSegment(_ context.Context, req *connect.Request[narrationv1.ActiveSegmentRequest]) (*connect.Response[narrationv1.ActiveSegmentResponse], error) {
	if math.IsNaN(req.Msg.CurrentTime) || math.IsInf(req.Msg.CurrentTime, 0) {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("current_time must be finite"))
	}
	i := transcript.ActiveIndex(req.Msg.Segments, req.Msg.CurrentTime)
	resp := &narrationv1.ActiveSegmentResponse{Index: i}
	if i >= 0 {
		seg := req.Msg.Segments[i]
		resp.Segment = &seg
	}
	return connect.NewResponse(resp), nil
}

func (h *NarrationHandler) DeriveTimestamps(_ context.Context, req *connect.Request[narrationv1.DeriveTimestampsRequest]) (*connect.Response[narrationv1.DeriveTimestampsResponse], error) {
	d := req.Msg.TotalDuration
	if d < 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("total_duration must be a non-negative number"))
	}
	return connect.NewResponse(&narrationv1.DeriveTimestampsResponse{
		Segments: transcript.DeriveTimestamps(req.Msg.Segments, d),
	}), nil
}

func (h *NarrationHandler) ListVoices(ctx context.Context, req *connect.Request[narrationv1.ListVoicesRequest]) (*connect.Response[narrationv1.ListVoicesResponse], error) {
	filter := engine.ProviderID(req.Msg.Provider)
	resp := &narrationv1.ListVoicesResponse{}
	found := filter == ""

	if h.cache != nil {
		resp.CachedEntries = h.cache.Len()
	}
	var archived map[engine.ProviderID]int64
	if h.archive != nil {
		counts, err := h.archive.Counts(ctx)
		if err != nil {
			slog.WarnContext(ctx, "list voices: archive counts unavailable", slog.String("error", err.Error()))
		}
		archived = counts
	}

	for _, st := range h.svc.Providers() {
		if filter != "" && st.ID != filter {
			continue
		}
		found = true
		pv := narrationv1.ProviderVoices{
			Provider:  string(st.ID),
			Available: st.Available,
			Breaker:   st.Breaker,
			Archived:  archived[st.ID],
		}
		if c, ok := h.catalogs.Catalog(st.ID); ok {
			pv.DefaultVoice = c.DefaultVoice
			for _, v := range c.Voices {
				pv.Voices = append(pv.Voices, narrationv1.Voice{
					ID:             v.ID,
					Name:           v.Name,
					Description:    v.Description,
					SuitableGenres: v.SuitableGenres,
				})
			}
		}
		for _, m := range st.Models {
			pv.Models = append(pv.Models, narrationv1.Model{ID: m.ID, DisplayName: m.DisplayName, IsDefault: m.IsDefault})
		}
		resp.Providers = append(resp.Providers, pv)
	}

	if !found {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("unknown provider %q", filter))
	}
	return connect.NewResponse(resp), nil
}

func (h *NarrationHandler) ReleaseAudio(ctx context.Context, req *connect.Request[narrationv1.ReleaseAudioRequest]) (*connect.Response[narrationv1.ReleaseAudioResponse], error) {
	if req.Msg.AudioID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("audio_id is required"))
	}
	if err := h.svc.Release(ctx, req.Msg.AudioID, req.Header().Get(RequestIDHeader)); err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(&narrationv1.ReleaseAudioResponse{Released: true}), nil
}

func (h *NarrationHandler) Pregenerate(ctx context.Context, req *connect.Request[narrationv1.PregenerateRequest]) (*connect.Response[narrationv1.PregenerateResponse], error) {
	if h.dispatcher == nil {
		return nil, connect.NewError(connect.CodeUnavailable, errors.New("pregeneration is not enabled"))
	}
	if req.Msg.BookID == "" || req.Msg.ChapterID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("book_id and chapter_id are required"))
	}
	if err := h.checkSegments(req.Msg.Segments); err != nil {
		return nil, err
	}
	if u := req.Msg.CallbackURL; u != "" {
		// Addresses are checked again when the callback is delivered.
		if err := urlvalidation.ValidateOutboundURL(ctx, u, urlvalidation.AllowPrivateIPs()); err != nil {
			return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("callback_url: %w", err))
		}
	}

	job := worker.PregenerateJob{
		ID:        xid.New().String(),
		BookID:    req.Msg.BookID,
		ChapterID: req.Msg.ChapterID,
		Segments:  req.Msg.Segments,
		Options: worker.JobOptions{
			PreferredProvider: req.Msg.Options.PreferredProvider,
			Voices:            req.Msg.Options.Voices,
			Genre:             req.Msg.Options.Genre,
			Quality:           req.Msg.Options.Quality,
		},
		CallbackURL: req.Msg.CallbackURL,
		RequestedAt: time.Now().UTC(),
	}
	if err := h.dispatcher.Dispatch(ctx, job); err != nil {
		return nil, connect.NewError(connect.CodeUnavailable, fmt.Errorf("dispatch job: %w", err))
	}

	if h.events != nil {
		_ = h.events.Emit(ctx, events.PregenerationQueued, job.ID, events.PregenerationData{
			BookID:    job.BookID,
			ChapterID: job.ChapterID,
			Segments:  len(job.Segments),
		})
	}
	return connect.NewResponse(&narrationv1.PregenerateResponse{Accepted: true, JobID: job.ID}), nil
}

func (h *NarrationHandler) checkText(text string) error {
	if strings.TrimSpace(text) == "" {
		return connect.NewError(connect.CodeInvalidArgument, errors.New("text is required"))
	}
	if n := utf8.RuneCountInString(text); n > h.maxTextRunes {
		return connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("text exceeds %d characters", h.maxTextRunes))
	}
	return nil
}

func (h *NarrationHandler) checkSegments(segments []transcript.Segment) error {
	if len(segments) == 0 {
		return connect.NewError(connect.CodeInvalidArgument, errors.New("segments are required"))
	}
	total := 0
	for _, s := range segments {
		total += utf8.RuneCountInString(s.Text)
	}
	if total > h.maxTextRunes {
		return connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("transcript exceeds %d characters", h.maxTextRunes))
	}
	return nil
}

func (h *NarrationHandler) options(o narrationv1.GenerateOptions, requestID string) orchestrator.Options {
	if requestID == "" {
		requestID = xid.New().String()
	}
	voices := make(map[engine.ProviderID]string, len(o.Voices))
	for p, v := range o.Voices {
		voices[engine.ProviderID(p)] = v
	}
	return orchestrator.Options{
		PreferredProvider: o.PreferredProvider,
		Voices:            voices,
		Genre:             o.Genre,
		Quality:           o.Quality,
		CorrelationID:     requestID,
	}
}

func (h *NarrationHandler) generateResponse(res orchestrator.Result) *narrationv1.GenerateResponse {
	if !res.OK() {
		return &narrationv1.GenerateResponse{}
	}
	return &narrationv1.GenerateResponse{
		Audio: &narrationv1.Audio{
			ID:          res.Handle.ID,
			ContentType: res.Handle.ContentType,
			Size:        res.Handle.Size,
			Duration:    res.Handle.Duration,
			URL:         h.audioPath + res.Handle.ID,
		},
		Provider: string(res.Provider),
		Voice:    res.Voice,
		Cached:   res.Cached,
	}
}
