package postprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuppress_RemovesSameClassOverlap(t *testing.T) {
	candidates := []Candidate{
		{X: 100, Y: 100, W: 80, H: 80, Class: 0, Score: 0.9},
		{X: 105, Y: 105, W: 80, H: 80, Class: 0, Score: 0.7}, // heavy overlap, same class
		{X: 400, Y: 400, W: 80, H: 80, Class: 0, Score: 0.6}, // far away
	}

	kept := Suppress(candidates, 0.45)
	require.Len(t, kept, 2)
	assert.Equal(t, float32(0.9), kept[0].Score)
	assert.Equal(t, float32(0.6), kept[1].Score)
}

// TestSuppress_ClassIsolation verifies candidates of differing classes never
// suppress one another regardless of overlap.
func TestSuppress_ClassIsolation(t *testing.T) {
	candidates := []Candidate{
		{X: 100, Y: 100, W: 80, H: 80, Class: 0, Score: 0.9},
		{X: 100, Y: 100, W: 80, H: 80, Class: 1, Score: 0.8}, // identical box, other class
		{X: 100, Y: 100, W: 80, H: 80, Class: 2, Score: 0.7},
	}

	kept := Suppress(candidates, 0.1)
	assert.Len(t, kept, 3, "perfect overlap across classes must survive")
}

// TestSuppress_Idempotence verifies suppress(suppress(S,τ),τ) == suppress(S,τ).
func TestSuppress_Idempotence(t *testing.T) {
	candidates := []Candidate{
		{X: 100, Y: 100, W: 80, H: 80, Class: 0, Score: 0.9},
		{X: 110, Y: 110, W: 80, H: 80, Class: 0, Score: 0.85},
		{X: 120, Y: 100, W: 90, H: 70, Class: 1, Score: 0.8},
		{X: 300, Y: 300, W: 50, H: 50, Class: 0, Score: 0.7},
		{X: 305, Y: 305, W: 50, H: 50, Class: 1, Score: 0.65},
		{X: 310, Y: 300, W: 55, H: 45, Class: 0, Score: 0.6},
	}

	for _, threshold := range []float32{0.1, 0.45, 0.7, 0.99} {
		once := Suppress(candidates, threshold)
		twice := Suppress(once, threshold)
		assert.Equal(t, once, twice, "threshold %f", threshold)
	}
}

func TestSuppress_StableTieBreak(t *testing.T) {
	// Equal scores: the earlier anchor wins and suppresses the later one.
	candidates := []Candidate{
		{X: 100, Y: 100, W: 80, H: 80, Class: 0, Score: 0.5},
		{X: 102, Y: 102, W: 80, H: 80, Class: 0, Score: 0.5},
	}

	kept := Suppress(candidates, 0.45)
	require.Len(t, kept, 1)
	assert.Equal(t, float32(100), kept[0].X)
}

func TestSuppress_Empty(t *testing.T) {
	assert.Nil(t, Suppress(nil, 0.45))
	assert.Nil(t, Suppress([]Candidate{}, 0.45))
}

func TestSuppress_DoesNotMutateInput(t *testing.T) {
	candidates := []Candidate{
		{X: 10, Y: 10, W: 5, H: 5, Class: 0, Score: 0.2},
		{X: 100, Y: 100, W: 80, H: 80, Class: 0, Score: 0.9},
	}
	snapshot := make([]Candidate, len(candidates))
	copy(snapshot, candidates)

	Suppress(candidates, 0.45)
	assert.Equal(t, snapshot, candidates)
}

func TestCandidateIoU_Degenerate(t *testing.T) {
	zero := Candidate{X: 10, Y: 10, W: 0, H: 0}
	normal := Candidate{X: 10, Y: 10, W: 20, H: 20}
	assert.Equal(t, float32(0), candidateIoU(zero, normal))
	assert.Equal(t, float32(0), candidateIoU(zero, zero))
}
