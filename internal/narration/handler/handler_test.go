package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"connectrpc.com/connect"

	"github.com/enhasa/enhasa/internal/connectutil"
	"github.com/enhasa/enhasa/internal/narration/orchestrator"
	"github.com/enhasa/enhasa/internal/narration/worker"
	"github.com/enhasa/enhasa/internal/speech/audio"
	"github.com/enhasa/enhasa/internal/speech/cache"
	"github.com/enhasa/enhasa/internal/speech/engine"
	"github.com/enhasa/enhasa/internal/speech/voices"
	"github.com/enhasa/enhasa/pkg/events"
	"github.com/enhasa/enhasa/pkg/narrationv1"
	"github.com/enhasa/enhasa/pkg/transcript"
)

type stubProvider struct {
	id        engine.ProviderID
	available bool
	n         atomic.Int32
}

func (p *stubProvider) ID() engine.ProviderID { return p.id }
func (p *stubProvider) Available() bool { return p.available }
func (p *stubProvider) Models() []engine.ModelInfo { return []engine.ModelInfo{{ID: "v2", DisplayName: "V2", IsDefault: true}} }
func (p *stubProvider) Close() error { return nil }

func (p *stubProvider) calls() int { return int(p.n.Load()) }

func (p *stubProvider) Synthesize(_ context.Context, req engine.SynthesisRequest) (*engine.Audio, error) {
	p.n.Add(1)
	return &engine.Audio{
		Data:        []byte(req.VoiceID + ":" + req.Text),
		ContentType: "audio/wav",
		Duration:    10,
	}, nil
}

type recordingDispatcher struct {
	mu   sync.Mutex
	jobs []worker.PregenerateJob
	err  error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, job worker.PregenerateJob) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.jobs = append(d.jobs, job)
	return nil
}

type harness struct {
	server   *httptest.Server
	client   narrationv1.NarrationServiceClient
	provider *stubProvider
	pub      *events.Publisher
}

func newHarness(t *testing.T, dispatcher worker.Dispatcher, extra ...Option) *harness {
	t.Helper()

	h := &harness{provider: &stubProvider{id: engine.ElevenLabs, available: true}}

	c, err := cache.New(8)
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	store, err := audio.OpenStore(t.Context(), "mem://")
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	catalogs := voices.NewLoader("")
	h.pub = events.NewPublisher(nil, "narration", "")
	orch, err := orchestrator.New([]engine.Provider{h.provider}, c, store, catalogs, orchestrator.WithEmitter(h.pub))
	if err != nil {
		t.Fatalf("orchestrator.New: %v", err)
	}

	opts := []Option{WithEmitter(h.pub), WithMaxTextRunes(64), WithCache(c)}
	if dispatcher != nil {
		opts = append(opts, WithDispatcher(dispatcher))
	}
	opts = append(opts, extra...)

	mux := http.NewServeMux()
	path, svc := narrationv1.NewNarrationServiceHandler(NewNarrationHandler(orch, catalogs, opts...), connectutil.DefaultOptions()...)
	mux.Handle(path, svc)
	NewAudioHandler(store, orch).Register(mux)

	h.server = httptest.NewServer(mux)
	t.Cleanup(h.server.Close)
	h.client = narrationv1.NewNarrationServiceClient(h.server.Client(), h.server.URL, connectutil.DefaultClientOptions()...)
	return h
}

func (h *harness) fetch(t *testing.T, method, path string) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(t.Context(), method, h.server.URL+path, nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	resp, err := h.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func wantCode(t *testing.T, err error, code connect.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", code)
	}
	if got := connect.CodeOf(err); got != code {
		t.Fatalf("code = %v, want %v (err: %v)", got, code, err)
	}
}

func TestGenerateServesAndReleasesAudio(t *testing.T) {
	h := newHarness(t, nil)

	resp, err := h.client.Generate(t.Context(), connect.NewRequest(&narrationv1.GenerateRequest{
		Text:    "It was a dark and stormy night.",
		Options: narrationv1.GenerateOptions{Voices: map[string]string{"elevenlabs": "Rachel"}},
	}))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	a := resp.Msg.Audio
	if a == nil {
		t.Fatal("expected audio")
	}
	if resp.Msg.Provider != "elevenlabs" || resp.Msg.Voice != "Rachel" || resp.Msg.Cached {
		t.Errorf("response = %+v", resp.Msg)
	}
	if a.URL != AudioPathPrefix+a.ID {
		t.Errorf("url = %q", a.URL)
	}

	got := h.fetch(t, http.MethodGet, a.URL)
	if got.StatusCode != http.StatusOK {
		t.Fatalf("GET status = %d", got.StatusCode)
	}
	if ct := got.Header.Get("Content-Type"); ct != "audio/wav" {
		t.Errorf("content type = %q", ct)
	}
	body, _ := io.ReadAll(got.Body)
	if string(body) != "Rachel:It was a dark and stormy night." {
		t.Errorf("body = %q", body)
	}

	if del := h.fetch(t, http.MethodDelete, a.URL); del.StatusCode != http.StatusNoContent {
		t.Fatalf("DELETE status = %d", del.StatusCode)
	}
	if gone := h.fetch(t, http.MethodGet, a.URL); gone.StatusCode != http.StatusNotFound {
		t.Errorf("GET after release status = %d, want 404", gone.StatusCode)
	}
}

func TestGenerateSecondCallIsCached(t *testing.T) {
	h := newHarness(t, nil)
	req := &narrationv1.GenerateRequest{Text: "Once upon a time."}

	first, err := h.client.Generate(t.Context(), connect.NewRequest(req))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	second, err := h.client.Generate(t.Context(), connect.NewRequest(req))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !second.Msg.Cached {
		t.Error("second response should be cached")
	}
	if first.Msg.Audio.ID == second.Msg.Audio.ID {
		t.Error("each call should issue its own handle")
	}
}

func TestGenerateValidation(t *testing.T) {
	h := newHarness(t, nil)

	_, err := h.client.Generate(t.Context(), connect.NewRequest(&narrationv1.GenerateRequest{}))
	wantCode(t, err, connect.CodeInvalidArgument)

	_, err = h.client.Generate(t.Context(), connect.NewRequest(&narrationv1.GenerateRequest{Text: " \t\n "}))
	wantCode(t, err, connect.CodeInvalidArgument)
	if h.provider.calls() != 0 {
		t.Errorf("provider called %d times for blank text", h.provider.calls())
	}

	long := make([]byte, 65)
	for i := range long {
		long[i] = 'a'
	}
	_, err = h.client.Generate(t.Context(), connect.NewRequest(&narrationv1.GenerateRequest{Text: string(long)}))
	wantCode(t, err, connect.CodeInvalidArgument)
}

func TestGenerateNullResultIsNotAnError(t *testing.T) {
	h := newHarness(t, nil)
	h.provider.available = false

	resp, err := h.client.Generate(t.Context(), connect.NewRequest(&narrationv1.GenerateRequest{Text: "hello"}))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Msg.Audio != nil {
		t.Errorf("audio = %+v, want nil", resp.Msg.Audio)
	}
}

func TestNarrateReturnsTimedSegments(t *testing.T) {
	h := newHarness(t, nil)

	resp, err := h.client.Narrate(t.Context(), connect.NewRequest(&narrationv1.NarrateRequest{
		Segments: []transcript.Segment{{ID: "1", Text: "abcd"}, {ID: "2", Text: "efghijkl"}, {ID: "3", Text: "mnop"}},
	}))
	if err != nil {
		t.Fatalf("Narrate: %v", err)
	}
	if resp.Msg.Audio == nil {
		t.Fatal("expected audio")
	}
	segs := resp.Msg.Segments
	if len(segs) != 3 || !transcript.HasTimestamps(segs) {
		t.Fatalf("segments = %+v", segs)
	}
	if *segs[0].StartTime != 0 || *segs[2].EndTime != 10 {
		t.Errorf("bounds = %v..%v, want 0..10", *segs[0].StartTime, *segs[2].EndTime)
	}
}

func TestGenerateFromTranscriptRequiresSegments(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.client.GenerateFromTranscript(t.Context(), connect.NewRequest(&narrationv1.GenerateFromTranscriptRequest{}))
	wantCode(t, err, connect.CodeInvalidArgument)
}

func TestActiveSegment(t *testing.T) {
	h := newHarness(t, nil)
	segs := []transcript.Segment{
		transcript.Timed("a", "first", 0, 5),
		transcript.Timed("b", "second", 5, 10),
	}

	tests := []struct {
		name  string
		at    float64
		index int
	}{
		{"inside first", 2, 0},
		{"shared boundary", 5, 1},
		{"past the end", 12, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := h.client.ActiveSegment(t.Context(), connect.NewRequest(&narrationv1.ActiveSegmentRequest{
				Segments:    segs,
				CurrentTime: tt.at,
			}))
			if err != nil {
				t.Fatalf("ActiveSegment: %v", err)
			}
			if resp.Msg.Index != tt.index {
				t.Errorf("index = %d, want %d", resp.Msg.Index, tt.index)
			}
			if (resp.Msg.Segment != nil) != (tt.index >= 0) {
				t.Errorf("segment = %+v", resp.Msg.Segment)
			}
		})
	}
}

func TestDeriveTimestamps(t *testing.T) {
	h := newHarness(t, nil)

	resp, err := h.client.DeriveTimestamps(t.Context(), connect.NewRequest(&narrationv1.DeriveTimestampsRequest{
		Segments:      []transcript.Segment{{ID: "1", Text: "ab"}, {ID: "2", Text: "cd"}},
		TotalDuration: 4,
	}))
	if err != nil {
		t.Fatalf("DeriveTimestamps: %v", err)
	}
	if got := resp.Msg.Segments; len(got) != 2 || *got[1].StartTime != 2 || *got[1].EndTime != 4 {
		t.Errorf("segments = %+v", got)
	}

	_, err = h.client.DeriveTimestamps(t.Context(), connect.NewRequest(&narrationv1.DeriveTimestampsRequest{TotalDuration: -1}))
	wantCode(t, err, connect.CodeInvalidArgument)
}

func TestListVoices(t *testing.T) {
	h := newHarness(t, nil)

	resp, err := h.client.ListVoices(t.Context(), connect.NewRequest(&narrationv1.ListVoicesRequest{}))
	if err != nil {
		t.Fatalf("ListVoices: %v", err)
	}
	if len(resp.Msg.Providers) != 1 {
		t.Fatalf("providers = %+v", resp.Msg.Providers)
	}
	p := resp.Msg.Providers[0]
	if p.Provider != "elevenlabs" || !p.Available || p.Breaker != "closed" {
		t.Errorf("provider = %+v", p)
	}
	if p.DefaultVoice != "21m00Tcm4TlvDq8ikWAM" || len(p.Voices) == 0 || len(p.Models) != 1 {
		t.Errorf("catalog = %+v", p)
	}

	_, err = h.client.ListVoices(t.Context(), connect.NewRequest(&narrationv1.ListVoicesRequest{Provider: "playht"}))
	wantCode(t, err, connect.CodeInvalidArgument)
}

type fixedArchive map[engine.ProviderID]int64

func (a fixedArchive) Counts(context.Context) (map[engine.ProviderID]int64, error) {
	return a, nil
}

func TestListVoicesReportsStorage(t *testing.T) {
	h := newHarness(t, nil, WithArchive(fixedArchive{engine.ElevenLabs: 3}))

	if _, err := h.client.Generate(t.Context(), connect.NewRequest(&narrationv1.GenerateRequest{Text: "hello"})); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	resp, err := h.client.ListVoices(t.Context(), connect.NewRequest(&narrationv1.ListVoicesRequest{}))
	if err != nil {
		t.Fatalf("ListVoices: %v", err)
	}
	if resp.Msg.CachedEntries != 1 {
		t.Errorf("cached entries = %d, want 1", resp.Msg.CachedEntries)
	}
	if got := resp.Msg.Providers[0].Archived; got != 3 {
		t.Errorf("archived = %d, want 3", got)
	}
}

func TestReleaseAudio(t *testing.T) {
	h := newHarness(t, nil)
	released := h.pub.Subscribe("test", 8)
	defer h.pub.Unsubscribe("test")

	gen, err := h.client.Generate(t.Context(), connect.NewRequest(&narrationv1.GenerateRequest{Text: "hello"}))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	req := connect.NewRequest(&narrationv1.ReleaseAudioRequest{AudioID: gen.Msg.Audio.ID})
	req.Header().Set(RequestIDHeader, "req-42")
	resp, err := h.client.ReleaseAudio(t.Context(), req)
	if err != nil {
		t.Fatalf("ReleaseAudio: %v", err)
	}
	if !resp.Msg.Released {
		t.Error("expected released")
	}

	found := false
	for len(released) > 0 {
		e := <-released
		if e.Type == events.AudioReleased && e.CorrelationID == "req-42" {
			found = true
		}
	}
	if !found {
		t.Error("expected an audio.released event carrying the request id")
	}

	_, err = h.client.ReleaseAudio(t.Context(), connect.NewRequest(&narrationv1.ReleaseAudioRequest{}))
	wantCode(t, err, connect.CodeInvalidArgument)
}

func TestPregenerate(t *testing.T) {
	d := &recordingDispatcher{}
	h := newHarness(t, d)

	resp, err := h.client.Pregenerate(t.Context(), connect.NewRequest(&narrationv1.PregenerateRequest{
		BookID:      "moby-dick",
		ChapterID:   "1",
		Segments:    []transcript.Segment{{ID: "1", Text: "Call me Ishmael."}},
		Options:     narrationv1.GenerateOptions{PreferredProvider: "playht", Genre: "classic"},
		CallbackURL: "https://hooks.example.com/done",
	}))
	if err != nil {
		t.Fatalf("Pregenerate: %v", err)
	}
	if !resp.Msg.Accepted || resp.Msg.JobID == "" {
		t.Errorf("response = %+v", resp.Msg)
	}
	if len(d.jobs) != 1 {
		t.Fatalf("jobs = %d, want 1", len(d.jobs))
	}
	job := d.jobs[0]
	if job.ID != resp.Msg.JobID || job.BookID != "moby-dick" || job.Options.PreferredProvider != "playht" || job.CallbackURL == "" {
		t.Errorf("job = %+v", job)
	}

	_, err = h.client.Pregenerate(t.Context(), connect.NewRequest(&narrationv1.PregenerateRequest{
		Segments: []transcript.Segment{{ID: "1", Text: "x"}},
	}))
	wantCode(t, err, connect.CodeInvalidArgument)

	_, err = h.client.Pregenerate(t.Context(), connect.NewRequest(&narrationv1.PregenerateRequest{
		BookID:      "b",
		ChapterID:   "c",
		Segments:    []transcript.Segment{{ID: "1", Text: "x"}},
		CallbackURL: "ftp://hooks.example.com/done",
	}))
	wantCode(t, err, connect.CodeInvalidArgument)

	d.err = errors.New("queue down")
	_, err = h.client.Pregenerate(t.Context(), connect.NewRequest(&narrationv1.PregenerateRequest{
		BookID: "b", ChapterID: "c", Segments: []transcript.Segment{{ID: "1", Text: "x"}},
	}))
	wantCode(t, err, connect.CodeUnavailable)
}

func TestPregenerateDisabled(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.client.Pregenerate(t.Context(), connect.NewRequest(&narrationv1.PregenerateRequest{
		BookID: "b", ChapterID: "c", Segments: []transcript.Segment{{ID: "1", Text: "x"}},
	}))
	wantCode(t, err, connect.CodeUnavailable)
}

func TestAudioNotFound(t *testing.T) {
	h := newHarness(t, nil)
	if resp := h.fetch(t, http.MethodGet, AudioPathPrefix+"not-an-id"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}
