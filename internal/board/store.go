package board

import (
	"sync"
)

// Store holds the canonical ordered stroke list for the active slide of one
// session. One instance is constructed per session and injected wherever the
// session's state is read or mutated; there is no process-wide board.
//
// Mutations arrive both from locally-originated input and from decoded
// transport events, on different goroutines, so every operation locks.
// Within a single peer that serializes application; cross-peer consistency is
// eventual only, through the broadcast stream.
type Store struct {
	mu      sync.RWMutex
	strokes []Stroke
	slide   int
}

// NewStore creates an empty board at slide 0
func NewStore() *Store {
	return &Store{strokes: make([]Stroke, 0, 16)}
}

// AddStroke appends a stroke to the ordered collection. No deduplication by
// id: callers that may deliver the same add twice (local apply plus loopback)
// are expected to suppress the duplicate themselves.
func (s *Store) AddStroke(st Stroke) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strokes = append(s.strokes, st.clone())
}

// UpdateStroke merges a partial update into the stroke with the given id.
// Unknown ids are a no-op: a late joiner may receive updates for strokes
// whose add it never saw. Returns whether a stroke matched.
func (s *Store) UpdateStroke(id string, upd StrokeUpdate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.strokes {
		if s.strokes[i].ID != id {
			continue
		}
		if upd.Points != nil {
			pts := make([]Point, len(*upd.Points))
			copy(pts, *upd.Points)
			s.strokes[i].Points = pts
		}
		if upd.Size != nil {
			s.strokes[i].Size = *upd.Size
		}
		if upd.Color != nil {
			s.strokes[i].Color = *upd.Color
		}
		if upd.Text != nil {
			s.strokes[i].Text = *upd.Text
		}
		return true
	}
	return false
}

// AppendPoints extends a stroke's polyline in place. Unknown ids are a no-op,
// matching UpdateStroke. This is the delta path for long freehand strokes;
// the full-replace contract of UpdateStroke stays the fallback.
func (s *Store) AppendPoints(id string, pts []Point) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.strokes {
		if s.strokes[i].ID == id {
			s.strokes[i].Points = append(s.strokes[i].Points, pts...)
			return true
		}
	}
	return false
}

// Clear empties the collection unconditionally
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strokes = s.strokes[:0]
}

// ReplaceAll swaps the whole collection; used on slide change, never for
// incremental sync
func (s *Store) ReplaceAll(strokes []Stroke) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strokes = make([]Stroke, 0, len(strokes))
	for _, st := range strokes {
		s.strokes = append(s.strokes, st.clone())
	}
}

// Strokes returns a deep copy of the ordered collection
func (s *Store) Strokes() []Stroke {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Stroke, 0, len(s.strokes))
	for _, st := range s.strokes {
		out = append(out, st.clone())
	}
	return out
}

// Len returns the number of strokes on the active slide
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.strokes)
}

// Contains reports whether a stroke with the given id exists
func (s *Store) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.strokes {
		if s.strokes[i].ID == id {
			return true
		}
	}
	return false
}

// CurrentSlide returns the active slide index
func (s *Store) CurrentSlide() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slide
}

// SetSlide moves to a new slide and discards the previous slide's strokes.
// Slide content is ephemeral: navigating away drops the annotations.
func (s *Store) SetSlide(index int) {
	if index < 0 {
		index = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slide = index
	s.strokes = s.strokes[:0]
}
