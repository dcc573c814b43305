// Package worker narrates chapters in the background so later requests hit
// the audio cache.
package worker

import (
	"time"

	"github.com/enhasa/enhasa/internal/narration/orchestrator"
	"github.com/enhasa/enhasa/internal/speech/engine"
	"github.com/enhasa/enhasa/pkg/transcript"
)

// PregenerateJob is the queue message for one chapter.
type PregenerateJob struct {
	ID          string               `json:"id"`
	BookID      string               `json:"book_id"`
	ChapterID   string               `json:"chapter_id"`
	Segments    []transcript.Segment `json:"segments"`
	Options     JobOptions           `json:"options"`
	CallbackURL string               `json:"callback_url,omitempty"`
	RequestedAt time.Time            `json:"requested_at"`
}

// JobOptions mirrors orchestrator.Options in a queue-friendly form.
type JobOptions struct {
	PreferredProvider string            `json:"preferred_provider,omitempty"`
	Voices            map[string]string `json:"voices,omitempty"`
	Genre             string            `json:"genre,omitempty"`
	Quality           string            `json:"quality,omitempty"`
}

// Orchestration converts the job options for the orchestrator.
func (o JobOptions) Orchestration(correlationID string) orchestrator.Options {
	voices := make(map[engine.ProviderID]string, len(o.Voices))
	for p, v := range o.Voices {
		voices[engine.ProviderID(p)] = v
	}
	return orchestrator.Options{
		PreferredProvider: o.PreferredProvider,
		Voices:            voices,
		Genre:             o.Genre,
		Quality:           o.Quality,
		CorrelationID:     correlationID,
	}
}
