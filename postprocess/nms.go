package postprocess

import (
	"sort"

	"github.com/chewxy/math32"
)

// Suppress performs greedy per-class Non-Maximum Suppression.
//
// Candidates are sorted descending by score (stable, so the original anchor
// order breaks ties deterministically). The highest-scoring remaining
// candidate is kept; every other remaining candidate of the same class with
// IoU ≥ iouThreshold against it is removed. Candidates of different classes
// never suppress each other.
//
// Suppression is idempotent: running it on its own output with the same
// threshold returns the same set unchanged.
//
// Arguments:
//   - candidates: The decoded candidates, in anchor order.
//   - iouThreshold: Overlap threshold at or above which same-class
//     candidates are suppressed.
//
// Returns:
//   - []Candidate: Kept candidates in descending score order. Nil input
//     yields nil.
func Suppress(candidates []Candidate, iouThreshold float32) []Candidate {
	n := len(candidates)
	if n == 0 {
		return nil
	}

	sorted := make([]Candidate, n)
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	kept := make([]Candidate, 0, n)
	used := make([]bool, n)

	for i := 0; i < n; i++ {
		if used[i] {
			continue
		}

		anchor := sorted[i]
		kept = append(kept, anchor)
		used[i] = true

		for j := i + 1; j < n; j++ {
			if used[j] || sorted[j].Class != anchor.Class {
				continue
			}
			if candidateIoU(anchor, sorted[j]) >= iouThreshold {
				used[j] = true
			}
		}
	}

	return kept
}

// candidateIoU computes IoU between two candidates in model space.
// Degenerate boxes yield 0.
func candidateIoU(a, b Candidate) float32 {
	ax1, ay1, ax2, ay2 := a.corners()
	bx1, by1, bx2, by2 := b.corners()

	interW := math32.Min(ax2, bx2) - math32.Max(ax1, bx1)
	interH := math32.Min(ay2, by2) - math32.Max(ay1, by1)
	if interW <= 0 || interH <= 0 {
		return 0.0
	}
	inter := interW * interH

	union := a.W*a.H + b.W*b.H - inter
	if union <= 0 {
		return 0.0
	}
	return inter / union
}
