// Package render composes board state and slide content into a drawable
// frame. It is a pure projection: no store mutation, no I/O. Actual pixel
// output is left to whatever 2D layer consumes the frame.
package render

import (
	"liveboard/internal/board"
	"liveboard/internal/model"
)

// ShapeKind classifies how a shape's points should be interpreted
type ShapeKind string

const (
	KindPolyline ShapeKind = "polyline" // full ordered point sequence
	KindLine     ShapeKind = "line"     // extent: first and last point
	KindRect     ShapeKind = "rect"
	KindEllipse  ShapeKind = "ellipse"
	KindText     ShapeKind = "text" // anchored at the single point
)

// Shape is one stroke projected into viewport coordinates
type Shape struct {
	ID          string        `json:"id"`
	Kind        ShapeKind     `json:"kind"`
	Points      []board.Point `json:"points"`
	StrokeWidth float64       `json:"strokeWidth"`
	Color       string        `json:"color"`
	Opacity     float64       `json:"opacity"`
	Text        string        `json:"text,omitempty"`
}

// QuestionPane is the slide-level content rendered under the strokes
type QuestionPane struct {
	Index    int     `json:"index"`
	Prompt   string  `json:"prompt"`
	Options  string  `json:"options"`
	ImageURL *string `json:"imageUrl,omitempty"`
}

// Frame is one fully composed visual layer
type Frame struct {
	ViewportWidth float64       `json:"viewportWidth"`
	Scale         float64       `json:"scale"`
	Shapes        []Shape       `json:"shapes"`
	Question      *QuestionPane `json:"question,omitempty"`
}

// Compose projects strokes into viewport space and attaches the question for
// the current slide when one exists. Every coordinate and stroke width is
// scaled by viewportWidth / board.LogicalWidth.
func Compose(strokes []board.Stroke, slideIndex int, questions []model.Question, viewportWidth float64) Frame {
	if viewportWidth <= 0 {
		viewportWidth = board.LogicalWidth
	}
	scale := viewportWidth / board.LogicalWidth

	frame := Frame{
		ViewportWidth: viewportWidth,
		Scale:         scale,
		Shapes:        make([]Shape, 0, len(strokes)),
	}

	for _, st := range strokes {
		if len(st.Points) == 0 {
			continue
		}
		frame.Shapes = append(frame.Shapes, projectStroke(st, scale))
	}

	if slideIndex >= 0 && slideIndex < len(questions) {
		q := questions[slideIndex]
		frame.Question = &QuestionPane{
			Index:    slideIndex,
			Prompt:   q.Prompt,
			Options:  q.Options,
			ImageURL: q.ImageURL,
		}
	}

	return frame
}

func projectStroke(st board.Stroke, scale float64) Shape {
	shape := Shape{
		ID:          st.ID,
		Kind:        kindFor(st.Tool),
		StrokeWidth: st.Size * scale,
		Color:       st.Color,
		Opacity:     opacityFor(st.Tool),
		Text:        st.Text,
	}

	switch {
	case st.Tool.IsShape():
		// only the extent matters for shape tools
		shape.Points = []board.Point{
			scalePoint(st.Points[0], scale),
			scalePoint(st.Points[len(st.Points)-1], scale),
		}
	case st.Tool == board.ToolText:
		shape.Points = []board.Point{scalePoint(st.Points[0], scale)}
	default:
		shape.Points = make([]board.Point, 0, len(st.Points))
		for _, p := range st.Points {
			shape.Points = append(shape.Points, scalePoint(p, scale))
		}
	}
	return shape
}

func scalePoint(p board.Point, scale float64) board.Point {
	return board.Point{X: p.X * scale, Y: p.Y * scale}
}

func kindFor(t board.Tool) ShapeKind {
	switch t {
	case board.ToolLine:
		return KindLine
	case board.ToolRectangle:
		return KindRect
	case board.ToolCircle:
		return KindEllipse
	case board.ToolText:
		return KindText
	default:
		return KindPolyline
	}
}

// opacityFor gives the highlighter its translucency; the eraser paints in
// background color at full opacity
func opacityFor(t board.Tool) float64 {
	if t == board.ToolHighlighter {
		return 0.4
	}
	return 1.0
}
