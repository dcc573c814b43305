// Package transcript keeps narration text in step with audio playback.
package transcript

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

// Segment is one ordered piece of a chapter transcript. StartTime and
// EndTime are seconds from the start of the audio; both are set or both are
// nil.
type Segment struct {
	ID        string   `json:"id,omitempty"`
	Text      string   `json:"text"`
	StartTime *float64 `json:"startTime,omitempty"`
	EndTime   *float64 `json:"endTime,omitempty"`
}

// Timed creates a segment with timestamps.
func Timed(id, text string, start, end float64) Segment {
	return Segment{ID: id, Text: text, StartTime: &start, EndTime: &end}
}

// HasTime reports whether both timestamps are set.
func (s Segment) HasTime() bool {
	return s.StartTime != nil && s.EndTime != nil
}

// Bounds returns the timestamps, or zeros when the segment is untimed.
func (s Segment) Bounds() (start, end float64) {
	if !s.HasTime() {
		return 0, 0
	}
	return *s.StartTime, *s.EndTime
}

// Position is the playback state of the audio element.
type Position struct {
	CurrentTime float64 `json:"currentTime"`
	Duration    float64 `json:"duration"`
}

// Progress returns CurrentTime/Duration clamped to [0, 1].
func (p Position) Progress() float64 {
	if p.Duration <= 0 || math.IsNaN(p.Duration) || math.IsNaN(p.CurrentTime) {
		return 0
	}
	return math.Min(1, math.Max(0, p.CurrentTime/p.Duration))
}

// ActiveIndex returns the index of the segment playing at currentTime, or -1.
//
// Segments are scanned in order and match when start <= t <= end. When t
// sits exactly on a boundary shared with the next segment, the next segment
// wins. A gap between segments matches nothing.
func ActiveIndex(segments []Segment, currentTime float64) int {
	if math.IsNaN(currentTime) {
		return -1
	}
	for i, s := range segments {
		if !s.HasTime() {
			continue
		}
		start, end := s.Bounds()
		if currentTime < start || currentTime > end {
			continue
		}
		if currentTime == end && i+1 < len(segments) {
			if ns, ne := segments[i+1].Bounds(); segments[i+1].HasTime() && ns == currentTime && currentTime <= ne {
				return i + 1
			}
		}
		return i
	}
	return -1
}

// Active returns the segment playing at currentTime.
func Active(segments []Segment, currentTime float64) (Segment, bool) {
	i := ActiveIndex(segments, currentTime)
	if i < 0 {
		return Segment{}, false
	}
	return segments[i], true
}

// HasTimestamps reports whether every segment is timed. An empty
// transcript has none.
func HasTimestamps(segments []Segment) bool {
	if len(segments) == 0 {
		return false
	}
	for _, s := range segments {
		if !s.HasTime() {
			return false
		}
	}
	return true
}

// DeriveTimestamps returns the transcript with timestamps. A fully timed
// transcript is returned as is. Otherwise any existing timestamps are
// discarded and totalDuration is split in proportion to each segment's
// character count, back to back from zero, with the last segment ending at
// totalDuration. When no segment has text every segment gets [0, 0].
func DeriveTimestamps(segments []Segment, totalDuration float64) []Segment {
	if len(segments) == 0 {
		return []Segment{}
	}
	if HasTimestamps(segments) {
		return segments
	}
	if totalDuration < 0 || math.IsNaN(totalDuration) || math.IsInf(totalDuration, 0) {
		totalDuration = 0
	}

	totalChars := 0
	for _, s := range segments {
		totalChars += utf8.RuneCountInString(s.Text)
	}

	out := make([]Segment, len(segments))
	if totalChars == 0 {
		for i, s := range segments {
			out[i] = Timed(s.ID, s.Text, 0, 0)
		}
		return out
	}

	perChar := totalDuration / float64(totalChars)
	current := 0.0
	for i, s := range segments {
		end := current + float64(utf8.RuneCountInString(s.Text))*perChar
		if i == len(segments)-1 {
			end = totalDuration
		}
		out[i] = Timed(s.ID, s.Text, current, end)
		current = end
	}
	return out
}

// JoinText concatenates segment text with single spaces, the form sent to
// the speech providers.
func JoinText(segments []Segment) string {
	parts := make([]string, len(segments))
	for i, s := range segments {
		parts[i] = s.Text
	}
	return strings.Join(parts, " ")
}

// FormatTime renders seconds as MM:SS. Invalid or non-positive input
// renders as 00:00.
func FormatTime(seconds float64) string {
	if seconds <= 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return "00:00"
	}
	total := int64(seconds)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
