// Package postprocess - Decoding, suppression and remapping of raw detector
// output.
//
// The decoder consumes the inference output tensor and produces ephemeral
// Candidates in padded model space; suppression prunes redundant overlaps
// per class; projection turns survivors into public Detections in original
// image coordinates. Candidates never escape this package.
package postprocess

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// ErrShapeMismatch is returned when the inference output tensor matches
// neither supported layout.
var ErrShapeMismatch = errors.New("output tensor shape mismatch")

// Candidate is one raw detector anchor: box center and size in padded model
// pixels, the argmax class and its raw score. Scores are compared directly
// against thresholds and are never passed through a sigmoid or softmax.
type Candidate struct {
	X, Y, W, H float32
	Class      int
	Score      float32
}

// corners returns the candidate's box as corner coordinates.
func (c Candidate) corners() (x1, y1, x2, y2 float32) {
	return c.X - c.W/2, c.Y - c.H/2, c.X + c.W/2, c.Y + c.H/2
}

// Decode turns an inference output tensor into candidates.
//
// The tensor must have channel count 4+numClasses laid out as either
// [1, channels, N] (channel-major, the usual export layout) or
// [1, N, channels] (anchor-major); the layout is chosen by inspecting the
// dimensions. When the output is square and both interpretations fit,
// channel-major wins. Per anchor: the first four fields are box center x,y
// and size w,h in padded pixel space; anchors with non-positive size are
// discarded; the class of the maximum raw score is picked and the candidate
// kept iff that score is positive.
//
// Candidates are emitted in ascending anchor-index order, which is the
// deterministic tie-break order for equal scores in later stages.
//
// Arguments:
//   - out: The raw inference output tensor.
//   - numClasses: Number of classes the detector was trained with.
//
// Returns:
//   - []Candidate: Surviving candidates in anchor order.
//   - error: ErrShapeMismatch (wrapped with the observed shape) when the
//     tensor fits neither layout.
func Decode(out *tensor.Dense, numClasses int) ([]Candidate, error) {
	if numClasses <= 0 {
		return nil, errors.Errorf("invalid class count %d", numClasses)
	}

	channels := 4 + numClasses
	shape := out.Shape()
	data, ok := out.Data().([]float32)
	if !ok {
		return nil, errors.Errorf("output tensor holds %T, expected []float32", out.Data())
	}

	if len(shape) != 3 || shape[0] != 1 {
		return nil, errors.Wrapf(ErrShapeMismatch,
			"got shape %v, expected [1,%d,N] or [1,N,%d]", shape, channels, channels)
	}

	// Pick the layout by inspecting which dimension carries the channels.
	var anchors int
	var at func(channel, anchor int) float32
	switch {
	case shape[1] == channels:
		anchors = shape[2]
		at = func(channel, anchor int) float32 { return data[channel*anchors+anchor] }
	case shape[2] == channels:
		anchors = shape[1]
		at = func(channel, anchor int) float32 { return data[anchor*channels+channel] }
	default:
		return nil, errors.Wrapf(ErrShapeMismatch,
			"got shape %v, expected [1,%d,N] or [1,N,%d]", shape, channels, channels)
	}

	if len(data) < channels*anchors {
		return nil, errors.Wrapf(ErrShapeMismatch,
			"tensor data has %d values, shape %v needs %d", len(data), shape, channels*anchors)
	}

	candidates := make([]Candidate, 0, anchors)
	for i := 0; i < anchors; i++ {
		w := at(2, i)
		h := at(3, i)
		if w <= 0 || h <= 0 {
			continue
		}

		classID := 0
		maxScore := at(4, i)
		for c := 5; c < channels; c++ {
			if score := at(c, i); score > maxScore {
				maxScore = score
				classID = c - 4
			}
		}
		if maxScore <= 0 {
			continue
		}

		candidates = append(candidates, Candidate{
			X:     at(0, i),
			Y:     at(1, i),
			W:     w,
			H:     h,
			Class: classID,
			Score: maxScore,
		})
	}

	return candidates, nil
}
