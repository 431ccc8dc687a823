package refine

import (
	"fmt"

	"github.com/docsight-ai/go-docscan/common"
	"github.com/docsight-ai/go-docscan/images"
)

// screenshotSelectBoost is the comparison-score boost Screenshot receives
// during main-type selection when any UI bar was detected. It affects only
// the ranking, never a stored score.
const screenshotSelectBoost = 0.05

// documentAspectMin is the minimum width/height ratio for the Document
// tie-break during main-type selection.
const documentAspectMin = 0.65

// Refine corrects a classification result through an ordered sequence of
// deterministic rule stages: main-type selection, conditional retype,
// primary-box establishment, bar segregation, screenshot handling,
// Document/Receipt conflict resolution, primary-box correction, the
// unknown-type fallback, the primary-detection invariant, and diagnostics.
// The stage order is load-bearing.
//
// Refine is pure: the input result is deep-cloned before any work, so the
// caller's detections and summary are never touched, and identical inputs
// always produce identical outputs. Heuristic ambiguity never fails; when
// evidence is missing the prior values are preserved.
//
// Arguments:
//   - in: The analysis result to refine.
//   - cfg: Tolerances and flags for this call.
//
// Returns:
//   - *common.Result: A fresh result with corrected summary and finalized
//     detection list.
func Refine(in *common.Result, cfg Config) *common.Result {
	w := &working{
		res: in.Clone(),
		cfg: cfg,
	}

	w.selectMainType()
	w.applyRetype()
	w.establishPrimaryBox()
	w.segregateBars()
	w.handleScreenshot()
	w.resolveDocumentReceipt()
	w.correctPrimaryBox()
	w.unknownFallback()
	w.ensurePrimaryDetection()
	w.emitDiagnostics()

	return w.res
}

// working is the in-progress result threaded through the stages.
type working struct {
	res *common.Result
	cfg Config

	notes []string

	// bars holds segregated bar detections between stages 4 and 5.
	bars []common.Detection

	// selection is the stage-1 outcome; nil when no main-type detection
	// existed.
	selection *common.Detection
}

func (w *working) note(format string, args ...interface{}) {
	w.notes = append(w.notes, fmt.Sprintf(format, args...))
}

// bestByLabel returns the highest-scoring detection with the given label,
// or nil. Ties keep the earliest detection.
func bestByLabel(detections []common.Detection, label string) *common.Detection {
	var best *common.Detection
	for i := range detections {
		if detections[i].Label != label {
			continue
		}
		if best == nil || detections[i].Score > best.Score {
			best = &detections[i]
		}
	}
	return best
}

func hasBarLabel(detections []common.Detection) bool {
	for i := range detections {
		if common.IsBarLabel(detections[i].Label) {
			return true
		}
	}
	return false
}

// ranked pairs a main-type candidate with its comparison score.
type ranked struct {
	det     common.Detection
	boosted float32
}

// Stage 1: pick the best main-type candidate from the raw detections.
func (w *working) selectMainType() {
	barPresent := hasBarLabel(w.res.Detections)

	var candidates []ranked
	for _, label := range []string{common.LabelReceipt, common.LabelDocument, common.LabelScreenshot} {
		best := bestByLabel(w.res.Detections, label)
		if best == nil {
			continue
		}
		boosted := best.Score
		if label == common.LabelScreenshot && barPresent {
			boosted += screenshotSelectBoost
		}
		candidates = append(candidates, ranked{det: *best, boosted: boosted})
	}

	if len(candidates) == 0 {
		w.note("no main-type detections; keeping incoming classification %s", w.res.Summary.DocumentType)
		return
	}

	// Stable insertion order (Receipt, Document, Screenshot) breaks exact
	// score ties deterministically.
	for i := 1; i < len(candidates); i++ {
		for j := i; j > 0 && candidates[j].boosted > candidates[j-1].boosted; j-- {
			candidates[j], candidates[j-1] = candidates[j-1], candidates[j]
		}
	}

	pick := candidates[0]
	if len(candidates) >= 2 && candidates[0].boosted-candidates[1].boosted < w.cfg.Tolerances.ClassMargin {
		pick = w.breakSelectionTie(barPresent, candidates)
	}

	det := pick.det.Clone()
	w.selection = &det
	w.note("selected %s (score %.3f) as main type", det.Label, det.Score)
}

func (w *working) breakSelectionTie(barPresent bool, candidates []ranked) ranked {
	byLabel := func(label string) *ranked {
		for i := range candidates {
			if candidates[i].det.Label == label {
				return &candidates[i]
			}
		}
		return nil
	}

	if barPresent {
		if ss := byLabel(common.LabelScreenshot); ss != nil {
			w.note("tie-break: preferring Screenshot because a UI bar is present")
			return *ss
		}
	}

	aspect := float32(0)
	if w.res.Height > 0 {
		aspect = float32(w.res.Width) / float32(w.res.Height)
	}
	if aspect >= documentAspectMin {
		if doc := byLabel(common.LabelDocument); doc != nil {
			w.note("tie-break: preferring Document at aspect ratio %.2f", aspect)
			return *doc
		}
	}

	return candidates[0]
}

// Stage 2: overwrite the classification when selection disagrees and
// retyping is allowed.
func (w *working) applyRetype() {
	if w.selection == nil || !w.cfg.AllowRetype {
		return
	}

	selected := common.TypeForLabel(w.selection.Label)
	if selected == w.res.Summary.DocumentType {
		return
	}

	w.note("retyped %s -> %s (score %.3f)", w.res.Summary.DocumentType, selected, w.selection.Score)
	w.res.Summary.DocumentType = selected
	w.res.Summary.Confidence = w.selection.Score
}

// Stage 3: establish and clamp the primary box, recompute coverage and the
// partial-capture flag.
func (w *working) establishPrimaryBox() {
	summary := &w.res.Summary

	if summary.PrimaryBox == nil && w.selection != nil {
		box := w.selection.Box
		summary.PrimaryBox = &box
		w.note("adopted %s detection box as primary", w.selection.Label)
	}
	if summary.PrimaryBox == nil {
		return
	}

	clamped := summary.PrimaryBox.Clamp(w.res.Width, w.res.Height)
	*summary.PrimaryBox = clamped

	coverage := images.Coverage(clamped, w.res.Width, w.res.Height)
	partial := coverage < w.cfg.Tolerances.MinPrimaryAreaFrac
	if partial != summary.Quality.IsPartial {
		w.note("partial-capture flag %t -> %t (coverage %.2f)", summary.Quality.IsPartial, partial, coverage)
	}
	summary.Quality.IsPartial = partial
}

// Stage 4: split UI bars out of the working list; drop them outright unless
// the image is a screenshot.
func (w *working) segregateBars() {
	var bars, rest []common.Detection
	for _, d := range w.res.Detections {
		if common.IsBarLabel(d.Label) {
			bars = append(bars, d)
		} else {
			rest = append(rest, d)
		}
	}
	w.res.Detections = rest

	if len(bars) == 0 {
		return
	}
	if w.res.Summary.DocumentType != common.TypeScreenshot {
		w.note("dropped %d bar detection(s): type is %s", len(bars), w.res.Summary.DocumentType)
		return
	}
	w.bars = bars
}

// Stage 5: screenshot-specific evidence weighing.
func (w *working) handleScreenshot() {
	if w.res.Summary.DocumentType != common.TypeScreenshot {
		return
	}
	tol := w.cfg.Tolerances
	summary := &w.res.Summary

	ssDet := bestByLabel(w.res.Detections, common.LabelScreenshot)
	container := images.FullFrame(w.res.Width, w.res.Height)
	if ssDet != nil {
		container = ssDet.Box
	}
	containerCoverage := images.Coverage(container, w.res.Width, w.res.Height)

	validBars, validTop, validBottom := w.validateBars(container)

	acceptance := summary.Confidence
	bonusBars := len(validBars)
	if bonusBars > 2 {
		bonusBars = 2
	}
	acceptance += tol.ScreenshotBarBonus * float32(bonusBars)
	if validTop && validBottom {
		acceptance += tol.ScreenshotBothBarsBonus
	}
	if containerCoverage >= tol.ScreenshotMinCoverFrac {
		acceptance += tol.ScreenshotCoverBonus
	}

	alt := w.bestAlternative()

	if containerCoverage < tol.ScreenshotMinCoverFrac && alt != nil {
		altScore := alt.Score + 0.5*images.CalculateIoU(alt.Box, container)
		if altScore >= acceptance-tol.AltCandidateMaxDelta {
			w.note("screenshot container covers only %.2f; switching to %s (alt score %.3f vs acceptance %.3f)",
				containerCoverage, alt.Label, altScore, acceptance)
			summary.DocumentType = common.TypeForLabel(alt.Label)
			summary.Confidence = alt.Score
			box := alt.Box
			summary.PrimaryBox = &box
			w.bars = nil
			return
		}
	}

	// Staying a screenshot.
	if ssDet == nil || containerCoverage < tol.ScreenshotMinCoverFrac {
		full := images.FullFrame(w.res.Width, w.res.Height)
		summary.PrimaryBox = &full
		w.note("forced primary box to full frame (screenshot evidence covers %.2f)", containerCoverage)
	} else {
		box := container
		summary.PrimaryBox = &box
	}
	summary.Confidence = acceptance
	w.note("screenshot acceptance score %.3f (%d valid bar(s), coverage %.2f)",
		acceptance, len(validBars), containerCoverage)

	// Validated bars rejoin the working list unchanged.
	w.res.Detections = append(w.res.Detections, validBars...)
	w.bars = nil
}

// validateBars checks each segregated bar against the container without
// moving its stored coordinates. Valid bars get an annotation record.
func (w *working) validateBars(container images.Rect) (valid []common.Detection, top, bottom bool) {
	tol := w.cfg.Tolerances
	cw := float32(container.Width())
	ch := float32(container.Height())
	band := tol.TopBottomBandFrac * ch

	for _, bar := range w.bars {
		inter := bar.Box.Intersect(container)
		reason := ""
		switch {
		case inter.Area() == 0:
			reason = "no overlap with container"
		case float32(inter.Width()) < tol.MinBarWidthFrac*cw:
			reason = fmt.Sprintf("intersection width %d below %.0f%% of container width %d",
				inter.Width(), tol.MinBarWidthFrac*100, container.Width())
		case float32(inter.Height()) > tol.MaxBarHeightFrac*ch:
			reason = fmt.Sprintf("intersection height %d above %.0f%% of container height %d",
				inter.Height(), tol.MaxBarHeightFrac*100, container.Height())
		default:
			_, cy := inter.Center()
			if bar.Label == common.LabelTopBar && float32(cy-container.Y1) > band {
				reason = "center outside the top edge band"
			}
			if bar.Label == common.LabelBottomBar && float32(container.Y2-cy) > band {
				reason = "center outside the bottom edge band"
			}
		}

		if reason != "" {
			w.note("rejected %s: %s", bar.Label, reason)
			continue
		}

		annotated := bar.Clone()
		if annotated.Meta == nil {
			annotated.Meta = &common.DetectionMeta{Source: common.SourceDetector}
		}
		annotated.Meta.Reason = "validated within screenshot container"
		valid = append(valid, annotated)
		if bar.Label == common.LabelTopBar {
			top = true
		}
		if bar.Label == common.LabelBottomBar {
			bottom = true
		}
	}
	return valid, top, bottom
}

// bestAlternative returns the strongest Document-or-Receipt detection by
// raw score, or nil.
func (w *working) bestAlternative() *common.Detection {
	doc := bestByLabel(w.res.Detections, common.LabelDocument)
	rec := bestByLabel(w.res.Detections, common.LabelReceipt)
	switch {
	case doc == nil:
		return rec
	case rec == nil:
		return doc
	case rec.Score > doc.Score:
		return rec
	default:
		return doc
	}
}

// Stage 6: when Document and Receipt detections both survive, keep the
// label that agrees best with the primary box.
func (w *working) resolveDocumentReceipt() {
	if !w.cfg.AllowRetype || w.res.Summary.PrimaryBox == nil {
		return
	}
	doc := bestByLabel(w.res.Detections, common.LabelDocument)
	rec := bestByLabel(w.res.Detections, common.LabelReceipt)
	if doc == nil || rec == nil {
		return
	}

	primary := *w.res.Summary.PrimaryBox
	score := func(label string) (float32, float32) {
		var maxScore, maxIoU float32
		for _, d := range w.res.Detections {
			if d.Label != label {
				continue
			}
			if d.Score > maxScore {
				maxScore = d.Score
			}
			if iou := images.CalculateIoU(d.Box, primary); iou > maxIoU {
				maxIoU = iou
			}
		}
		return maxScore, maxIoU
	}

	docScore, docIoU := score(common.LabelDocument)
	recScore, recIoU := score(common.LabelReceipt)

	winner, winnerScore := common.LabelDocument, docScore
	loser := common.LabelReceipt
	if recScore+recIoU > docScore+docIoU {
		winner, winnerScore = common.LabelReceipt, recScore
		loser = common.LabelDocument
	}

	kept := w.res.Detections[:0:0]
	dropped := 0
	for _, d := range w.res.Detections {
		if d.Label == loser {
			dropped++
			continue
		}
		kept = append(kept, d)
	}
	w.res.Detections = kept
	w.note("resolved %s/%s conflict for %s; dropped %d detection(s)",
		common.LabelDocument, common.LabelReceipt, winner, dropped)

	winnerType := common.TypeForLabel(winner)
	current := w.res.Summary.DocumentType
	if (current == common.TypeDocument || current == common.TypeReceipt) && current != winnerType {
		w.note("retyped %s -> %s after conflict resolution", current, winnerType)
		w.res.Summary.DocumentType = winnerType
		w.res.Summary.Confidence = winnerScore
	}
}

// Stage 7: trust fresh detector evidence over a stale primary box.
func (w *working) correctPrimaryBox() {
	if !w.cfg.AllowRetype || w.res.Summary.PrimaryBox == nil {
		return
	}

	primary := *w.res.Summary.PrimaryBox
	evidence := w.res.Summary.DocumentType.EvidenceLabel()

	var best *common.Detection
	var bestScore, bestIoU float32
	for i := range w.res.Detections {
		d := &w.res.Detections[i]
		if d.Label != evidence {
			continue
		}
		iou := images.CalculateIoU(d.Box, primary)
		combined := d.Score + 0.5*iou
		if best == nil || combined > bestScore {
			best = d
			bestScore = combined
			bestIoU = iou
		}
	}

	if best != nil && bestIoU < 0.5 {
		w.note("replaced primary box with %s detection (IoU %.2f with previous)", best.Label, bestIoU)
		box := best.Box
		w.res.Summary.PrimaryBox = &box
	}
}

// Stage 8: the unknown-type fallback guarantees downstream consumers a
// usable document region even without detector evidence.
func (w *working) unknownFallback() {
	if w.res.Summary.DocumentType != common.TypeUnknown {
		return
	}

	full := images.FullFrame(w.res.Width, w.res.Height)

	covered := false
	for _, d := range w.res.Detections {
		if d.Label != common.LabelDocument && d.Label != common.LabelScreenshot {
			continue
		}
		if images.CalculateIoU(d.Box, full) >= 0.95 {
			covered = true
			break
		}
	}

	if !covered {
		synthetic := common.Detection{
			Label: common.LabelDocument,
			Score: 0,
			Box:   full,
			Meta: &common.DetectionMeta{
				Synthetic: true,
				Source:    common.SourceFallback,
				Reason:    "no usable detections; assuming full-frame document",
			},
		}
		w.res.Detections = append([]common.Detection{synthetic}, w.res.Detections...)
		w.note("synthesized full-frame Document detection for unknown type")
	}

	if w.res.Summary.PrimaryBox == nil {
		box := full
		w.res.Summary.PrimaryBox = &box
		w.note("set primary box to full frame for unknown type")
	}
	w.res.Summary.Quality.IsPartial = false
}

// Stage 9: the final list must contain a detection matching the final type
// that agrees with the primary box.
func (w *working) ensurePrimaryDetection() {
	summary := w.res.Summary
	if summary.PrimaryBox == nil {
		return
	}

	evidence := summary.DocumentType.EvidenceLabel()
	for _, d := range w.res.Detections {
		if d.Label == evidence && images.CalculateIoU(d.Box, *summary.PrimaryBox) >= 0.90 {
			return
		}
	}

	box := *summary.PrimaryBox
	w.res.Detections = append(w.res.Detections, common.Detection{
		Label: evidence,
		Score: summary.Confidence,
		Box:   box,
		Meta: &common.DetectionMeta{
			Synthetic: true,
			Source:    common.SourceRefine,
			Reason:    "no detection matched the final classification and primary box",
		},
	})
	w.note("synthesized %s detection to back the final classification", evidence)
}

// Stage 10: publish the ordered trace.
func (w *working) emitDiagnostics() {
	if w.cfg.Log != nil {
		for _, n := range w.notes {
			w.cfg.Log.WithField("stage", "refine").Debug(n)
		}
	}
	if !w.cfg.KeepDiagnostics {
		return
	}
	w.res.Signals = append(w.res.Signals, w.notes...)
}
