package render_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liveboard/internal/board"
	"liveboard/internal/model"
	"liveboard/internal/render"
)

func TestComposeScalesToViewport(t *testing.T) {
	strokes := []board.Stroke{{
		ID:     "a",
		Tool:   board.ToolPen,
		Points: []board.Point{{X: 960, Y: 540}, {X: 1920, Y: 0}},
		Size:   8,
		Color:  "#000000",
	}}

	// half-width viewport halves every coordinate and the stroke width
	frame := render.Compose(strokes, 0, nil, 960)
	require.Len(t, frame.Shapes, 1)
	assert.Equal(t, 0.5, frame.Scale)

	sh := frame.Shapes[0]
	assert.Equal(t, 480.0, sh.Points[0].X)
	assert.Equal(t, 270.0, sh.Points[0].Y)
	assert.Equal(t, 960.0, sh.Points[1].X)
	assert.Equal(t, 4.0, sh.StrokeWidth)
}

func TestComposeTwoViewportsShowSameRelativeImage(t *testing.T) {
	strokes := []board.Stroke{{
		ID:     "a",
		Tool:   board.ToolPen,
		Points: []board.Point{{X: 100, Y: 200}},
		Size:   4,
		Color:  "#000000",
	}}

	wide := render.Compose(strokes, 0, nil, 1920)
	narrow := render.Compose(strokes, 0, nil, 384)

	// position relative to the viewport is identical on both screens
	assert.InDelta(t,
		wide.Shapes[0].Points[0].X/wide.ViewportWidth,
		narrow.Shapes[0].Points[0].X/narrow.ViewportWidth,
		1e-9)
}

func TestComposeShapeToolsUseExtentOnly(t *testing.T) {
	strokes := []board.Stroke{{
		ID:   "r",
		Tool: board.ToolRectangle,
		// intermediate drag points are irrelevant for shapes
		Points: []board.Point{{X: 0, Y: 0}, {X: 50, Y: 50}, {X: 100, Y: 100}},
		Size:   2,
		Color:  "#0000ff",
	}}

	frame := render.Compose(strokes, 0, nil, board.LogicalWidth)
	require.Len(t, frame.Shapes, 1)

	sh := frame.Shapes[0]
	assert.Equal(t, render.KindRect, sh.Kind)
	require.Len(t, sh.Points, 2)
	assert.Equal(t, 0.0, sh.Points[0].X)
	assert.Equal(t, 100.0, sh.Points[1].X)
}

func TestComposeTextAnchorsAtFirstPoint(t *testing.T) {
	strokes := []board.Stroke{{
		ID:     "t",
		Tool:   board.ToolText,
		Points: []board.Point{{X: 10, Y: 20}},
		Size:   16,
		Color:  "#000000",
		Text:   "read this",
	}}

	frame := render.Compose(strokes, 0, nil, board.LogicalWidth)
	require.Len(t, frame.Shapes, 1)
	assert.Equal(t, render.KindText, frame.Shapes[0].Kind)
	assert.Equal(t, "read this", frame.Shapes[0].Text)
	require.Len(t, frame.Shapes[0].Points, 1)
}

func TestComposeHighlighterIsTranslucent(t *testing.T) {
	strokes := []board.Stroke{
		{ID: "h", Tool: board.ToolHighlighter, Points: []board.Point{{X: 1, Y: 1}}, Size: 12, Color: "#ffff00"},
		{ID: "p", Tool: board.ToolPen, Points: []board.Point{{X: 1, Y: 1}}, Size: 4, Color: "#000000"},
	}

	frame := render.Compose(strokes, 0, nil, board.LogicalWidth)
	require.Len(t, frame.Shapes, 2)
	assert.Equal(t, 0.4, frame.Shapes[0].Opacity)
	assert.Equal(t, 1.0, frame.Shapes[1].Opacity)
}

func TestComposeAttachesQuestionForSlide(t *testing.T) {
	questions := []model.Question{
		{Position: 0, Prompt: "first", Options: `["a","b"]`},
		{Position: 1, Prompt: "second", Options: `["c","d"]`},
	}

	frame := render.Compose(nil, 1, questions, board.LogicalWidth)
	require.NotNil(t, frame.Question)
	assert.Equal(t, "second", frame.Question.Prompt)
	assert.Equal(t, 1, frame.Question.Index)

	// slide beyond the set renders strokes only
	frame = render.Compose(nil, 5, questions, board.LogicalWidth)
	assert.Nil(t, frame.Question)
}

func TestComposeSkipsEmptyStrokes(t *testing.T) {
	strokes := []board.Stroke{
		{ID: "empty", Tool: board.ToolPen},
		{ID: "ok", Tool: board.ToolPen, Points: []board.Point{{X: 1, Y: 1}}},
	}

	frame := render.Compose(strokes, 0, nil, board.LogicalWidth)
	require.Len(t, frame.Shapes, 1)
	assert.Equal(t, "ok", frame.Shapes[0].ID)
}

func TestComposeDefaultsViewportToLogicalWidth(t *testing.T) {
	frame := render.Compose(nil, 0, nil, 0)
	assert.Equal(t, 1.0, frame.Scale)
	assert.Equal(t, float64(board.LogicalWidth), frame.ViewportWidth)
}
