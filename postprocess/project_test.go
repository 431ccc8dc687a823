package postprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docsight-ai/go-docscan/classes"
	"github.com/docsight-ai/go-docscan/common"
	"github.com/docsight-ai/go-docscan/preprocess"
)

func TestProject_RemapsAndLabels(t *testing.T) {
	// 800x600 source letterboxed into 640: scale 0.8, vertical pad 80.
	lb := preprocess.Letterbox{
		Scale: 0.8, PadX: 0, PadY: 80,
		Size: 640, SourceWidth: 800, SourceHeight: 600,
	}
	table := classes.Default()

	// Model-space box centered at (320,320) sized 160x160 maps back to
	// (300,200)-(500,400) in the original image.
	candidates := []Candidate{
		{X: 320, Y: 320, W: 160, H: 160, Class: 1, Score: 0.75},
	}

	detections := Project(candidates, lb, table)
	require.Len(t, detections, 1)

	d := detections[0]
	assert.Equal(t, common.LabelDocument, d.Label)
	assert.Equal(t, float32(0.75), d.Score)
	assert.InDelta(t, 300, d.Box.X1, 1)
	assert.InDelta(t, 200, d.Box.Y1, 1)
	assert.InDelta(t, 500, d.Box.X2, 1)
	assert.InDelta(t, 400, d.Box.Y2, 1)
	require.NotNil(t, d.Meta)
	assert.Equal(t, common.SourceDetector, d.Meta.Source)
	assert.False(t, d.Meta.Synthetic)
	assert.Empty(t, d.Meta.Reason)
}

func TestProject_ClampsIntoBounds(t *testing.T) {
	lb := preprocess.Letterbox{
		Scale: 0.8, PadX: 0, PadY: 80,
		Size: 640, SourceWidth: 800, SourceHeight: 600,
	}

	// A box hanging off the left edge of the frame.
	candidates := []Candidate{
		{X: 0, Y: 320, W: 100, H: 100, Class: 0, Score: 0.5},
	}

	detections := Project(candidates, lb, classes.Default())
	require.Len(t, detections, 1)
	assert.Equal(t, 0, detections[0].Box.X1)
	assert.GreaterOrEqual(t, detections[0].Box.X2, 0)
	assert.LessOrEqual(t, detections[0].Box.X2, 800)
}

func TestProject_FlagsDegenerateBox(t *testing.T) {
	lb := preprocess.Letterbox{
		Scale: 0.8, PadX: 0, PadY: 80,
		Size: 640, SourceWidth: 800, SourceHeight: 600,
	}

	// Entirely inside the top pad band: clamps to a zero-area box.
	candidates := []Candidate{
		{X: 320, Y: 20, W: 100, H: 30, Class: 2, Score: 0.4},
	}

	detections := Project(candidates, lb, classes.Default())
	require.Len(t, detections, 1)
	assert.Equal(t, 0, detections[0].Box.Area())
	assert.NotEmpty(t, detections[0].Meta.Reason, "degenerate boxes are kept but flagged")
}
