package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/pitabwire/util"

	"github.com/enhasa/enhasa/internal/narration/orchestrator"
	"github.com/enhasa/enhasa/pkg/events"
	"github.com/enhasa/enhasa/pkg/transcript"
)

const callbackSource = "narration"

// ErrNoAudio is returned when no provider could narrate a job.
var ErrNoAudio = errors.New("no provider produced audio")

// Narrator is the part of the orchestrator a job needs.
type Narrator interface {
	Narrate(ctx context.Context, segments []transcript.Segment, opts orchestrator.Options) (orchestrator.Result, []transcript.Segment)
	Release(ctx context.Context, id string, correlationID string) error
}

// Notifier delivers job outcomes to the caller's callback URL.
type Notifier interface {
	Notify(ctx context.Context, url string, env events.Envelope) error
}

// Subscriber implements queue.SubscribeWorker for pregeneration jobs.
type Subscriber struct {
	Narrator  Narrator
	Events    orchestrator.Emitter
	Callbacks Notifier
}

// Handle is called by frame's pub/sub for each job message.
func (s *Subscriber) Handle(ctx context.Context, _ map[string]string, message []byte) error {
	var job PregenerateJob
	if err := json.Unmarshal(message, &job); err != nil {
		util.Log(ctx).WithError(err).Error("pregenerate subscriber: unmarshal job")
		return err
	}
	err := s.Run(ctx, job)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNoAudio):
		// Already reported through the failed event and callback.
		util.Log(ctx).WithError(err).Warn("pregenerate subscriber: job settled without audio")
		return nil
	default:
		util.Log(ctx).WithError(err).Error("pregenerate subscriber: run job")
		return err
	}
}

// Run narrates the job's chapter and releases the resulting handle; the
// audio stays in the cache.
func (s *Subscriber) Run(ctx context.Context, job PregenerateJob) error {
	if len(job.Segments) == 0 {
		slog.InfoContext(ctx, "pregenerate: empty chapter skipped",
			slog.String("book_id", job.BookID), slog.String("chapter_id", job.ChapterID))
		return nil
	}

	res, _ := s.Narrator.Narrate(ctx, job.Segments, job.Options.Orchestration(job.ID))
	if !res.OK() {
		s.finish(ctx, job, events.PregenerationFailed, events.PregenerationData{
			BookID:    job.BookID,
			ChapterID: job.ChapterID,
			Segments:  len(job.Segments),
		})
		return ErrNoAudio
	}
	if err := s.Narrator.Release(ctx, res.Handle.ID, job.ID); err != nil {
		slog.WarnContext(ctx, "pregenerate: release handle failed",
			slog.String("audio_id", res.Handle.ID), slog.String("error", err.Error()))
	}

	slog.InfoContext(ctx, "pregenerate: chapter ready",
		slog.String("job_id", job.ID),
		slog.String("book_id", job.BookID),
		slog.String("chapter_id", job.ChapterID),
		slog.String("provider", string(res.Provider)),
		slog.Bool("cached", res.Cached))

	s.finish(ctx, job, events.PregenerationDone, events.PregenerationData{
		BookID:    job.BookID,
		ChapterID: job.ChapterID,
		Segments:  len(job.Segments),
		Provider:  string(res.Provider),
	})
	return nil
}

// finish publishes the job outcome and calls the job's callback. Neither
// failure fails the job: the audio is already cached.
func (s *Subscriber) finish(ctx context.Context, job PregenerateJob, eventType events.EventType, data events.PregenerationData) {
	if s.Events != nil {
		if err := s.Events.Emit(ctx, eventType, job.ID, data); err != nil {
			slog.WarnContext(ctx, "pregenerate: emit event failed", slog.String("error", err.Error()))
		}
	}

	if job.CallbackURL == "" || s.Callbacks == nil {
		return
	}
	env, err := events.NewEnvelope(callbackSource, eventType, job.ID, data)
	if err == nil {
		err = s.Callbacks.Notify(ctx, job.CallbackURL, env)
	}
	if err != nil {
		slog.WarnContext(ctx, "pregenerate: callback failed",
			slog.String("job_id", job.ID), slog.String("error", err.Error()))
	}
}
