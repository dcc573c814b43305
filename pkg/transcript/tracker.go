package transcript

// Tracker follows playback and reports when the active segment changes.
// It is not safe for concurrent use.
type Tracker struct {
	segments []Segment
	current  int
}

// NewTracker creates a tracker over segments.
func NewTracker(segments []Segment) *Tracker {
	return &Tracker{segments: segments, current: -1}
}

// Update moves the tracker to pos. It returns the active segment, whether
// one is active, and whether the active segment differs from the previous
// update.
func (t *Tracker) Update(pos Position) (seg Segment, ok bool, changed bool) {
	i := ActiveIndex(t.segments, pos.CurrentTime)
	changed = i != t.current
	t.current = i
	if i < 0 {
		return Segment{}, false, changed
	}
	return t.segments[i], true, changed
}

// Index returns the index of the active segment, or -1.
func (t *Tracker) Index() int {
	return t.current
}

// Reset replaces the transcript and clears the active segment.
func (t *Tracker) Reset(segments []Segment) {
	t.segments = segments
	t.current = -1
}
