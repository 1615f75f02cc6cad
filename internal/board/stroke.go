package board

// LogicalWidth is the fixed virtual canvas width. All stroke coordinates are
// expressed in this space; renderers rescale by viewportWidth / LogicalWidth.
const LogicalWidth = 1920.0

// Tool identifies the drawing primitive a stroke was made with
type Tool string

const (
	ToolPen         Tool = "pen"
	ToolHighlighter Tool = "highlighter"
	ToolEraser      Tool = "eraser"
	ToolLine        Tool = "line"
	ToolRectangle   Tool = "rectangle"
	ToolCircle      Tool = "circle"
	ToolText        Tool = "text"
)

// Valid reports whether the tool is one of the known values
func (t Tool) Valid() bool {
	switch t {
	case ToolPen, ToolHighlighter, ToolEraser, ToolLine, ToolRectangle, ToolCircle, ToolText:
		return true
	}
	return false
}

// IsShape reports whether only the first and last point define the stroke's
// extent. Polyline tools interpret the full ordered point sequence.
func (t Tool) IsShape() bool {
	return t == ToolLine || t == ToolRectangle || t == ToolCircle
}

// Point is a 2D coordinate in logical canvas space
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Stroke is a single drawing action with a session-unique identifier
type Stroke struct {
	ID     string  `json:"id"`
	Tool   Tool    `json:"tool"`
	Points []Point `json:"points"`
	Size   float64 `json:"size"`
	Color  string  `json:"color"`
	// Text is set only for the text tool, anchored at Points[0]
	Text string `json:"text,omitempty"`
}

// StrokeUpdate is a field-level partial update. Nil fields are left
// untouched; Points replaces the whole array rather than merging.
type StrokeUpdate struct {
	Points *[]Point `json:"points,omitempty"`
	Size   *float64 `json:"size,omitempty"`
	Color  *string  `json:"color,omitempty"`
	Text   *string  `json:"text,omitempty"`
}

// clone returns a deep copy so callers can hand strokes out without sharing
// the points slice with the store
func (s Stroke) clone() Stroke {
	c := s
	c.Points = make([]Point, len(s.Points))
	copy(c.Points, s.Points)
	return c
}
