package postprocess

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

// anchorRows is test scaffolding: each row is one anchor's channel values
// [cx, cy, w, h, class scores...].
func channelMajorTensor(t *testing.T, rows [][]float32) *tensor.Dense {
	t.Helper()
	require.NotEmpty(t, rows)

	channels := len(rows[0])
	anchors := len(rows)
	data := make([]float32, channels*anchors)
	for i, row := range rows {
		require.Len(t, row, channels)
		for c, v := range row {
			data[c*anchors+i] = v
		}
	}
	return tensor.New(tensor.WithShape(1, channels, anchors), tensor.WithBacking(data))
}

func anchorMajorTensor(t *testing.T, rows [][]float32) *tensor.Dense {
	t.Helper()
	require.NotEmpty(t, rows)

	channels := len(rows[0])
	anchors := len(rows)
	data := make([]float32, 0, channels*anchors)
	for _, row := range rows {
		require.Len(t, row, channels)
		data = append(data, row...)
	}
	return tensor.New(tensor.WithShape(1, anchors, channels), tensor.WithBacking(data))
}

func TestDecode_BothLayoutsAgree(t *testing.T) {
	// 5 classes, channels = 9. Three anchors: one valid, one with zero
	// width, one with no positive class score.
	rows := [][]float32{
		{320, 320, 100, 80, 0.1, 0.9, 0.2, 0, 0},
		{100, 100, 0, 50, 0.5, 0.5, 0.5, 0.5, 0.5},
		{200, 200, 40, 40, 0, -0.2, 0, -1, 0},
	}

	fromChannelMajor, err := Decode(channelMajorTensor(t, rows), 5)
	require.NoError(t, err)
	fromAnchorMajor, err := Decode(anchorMajorTensor(t, rows), 5)
	require.NoError(t, err)

	assert.Equal(t, fromChannelMajor, fromAnchorMajor,
		"the same logical data must decode identically in both layouts")

	require.Len(t, fromChannelMajor, 1)
	got := fromChannelMajor[0]
	assert.Equal(t, float32(320), got.X)
	assert.Equal(t, float32(320), got.Y)
	assert.Equal(t, float32(100), got.W)
	assert.Equal(t, float32(80), got.H)
	assert.Equal(t, 1, got.Class, "argmax class")
	assert.Equal(t, float32(0.9), got.Score)
}

func TestDecode_RawScoresNotNormalized(t *testing.T) {
	// Scores above 1 pass through untouched: they are raw values, not
	// probabilities.
	rows := [][]float32{
		{50, 50, 20, 20, 3.5, 1.0},
	}
	cands, err := Decode(channelMajorTensor(t, rows), 2)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, float32(3.5), cands[0].Score)
	assert.Equal(t, 0, cands[0].Class)
}

func TestDecode_AnchorOrderPreserved(t *testing.T) {
	rows := [][]float32{
		{10, 10, 5, 5, 0.5, 0.1},
		{20, 20, 5, 5, 0.5, 0.1},
		{30, 30, 5, 5, 0.5, 0.1},
	}
	cands, err := Decode(channelMajorTensor(t, rows), 2)
	require.NoError(t, err)
	require.Len(t, cands, 3)
	assert.Equal(t, float32(10), cands[0].X)
	assert.Equal(t, float32(20), cands[1].X)
	assert.Equal(t, float32(30), cands[2].X)
}

func TestDecode_ShapeMismatch(t *testing.T) {
	tests := []struct {
		name  string
		shape []int
	}{
		{"wrong channel count both dims", []int{1, 7, 100}},
		{"two dims", []int{9, 100}},
		{"batch not 1", []int{2, 9, 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size := 1
			for _, d := range tt.shape {
				size *= d
			}
			dense := tensor.New(
				tensor.WithShape(tt.shape...),
				tensor.WithBacking(make([]float32, size)),
			)
			_, err := Decode(dense, 5)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrShapeMismatch), "expected ErrShapeMismatch, got %v", err)
		})
	}
}

func TestDecode_SquareOutputPrefersChannelMajor(t *testing.T) {
	// channels == anchors == 6 with 2 classes: ambiguous. Channel-major
	// interpretation wins.
	channels := 6
	data := make([]float32, channels*channels)
	// In channel-major terms: anchor 0 gets cx=11, cy=12, w=13, h=14,
	// scores (0.8, 0.2).
	data[0*channels+0] = 11
	data[1*channels+0] = 12
	data[2*channels+0] = 13
	data[3*channels+0] = 14
	data[4*channels+0] = 0.8
	data[5*channels+0] = 0.2

	dense := tensor.New(tensor.WithShape(1, channels, channels), tensor.WithBacking(data))
	cands, err := Decode(dense, 2)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, float32(11), cands[0].X)
	assert.Equal(t, float32(13), cands[0].W)
	assert.Equal(t, float32(0.8), cands[0].Score)
}

func TestDecode_InvalidClassCount(t *testing.T) {
	dense := tensor.New(tensor.WithShape(1, 4, 10), tensor.WithBacking(make([]float32, 40)))
	_, err := Decode(dense, 0)
	require.Error(t, err)
}
