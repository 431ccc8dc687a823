// Package refine - Deterministic rule-based refinement of document
// classification results.
package refine

import (
	"github.com/sirupsen/logrus"
)

// Tolerances are the numeric knobs of the refinement engine. Every field
// can be overridden independently; values are plain data and are never
// modified during a refinement call.
type Tolerances struct {
	// MinBarWidthFrac is the minimum fraction of the container width a
	// bar's intersection must span to count as a valid UI bar.
	MinBarWidthFrac float32 `json:"minBarWidthFrac" yaml:"minBarWidthFrac"`
	// TopBottomBandFrac is the height fraction of the container forming
	// the edge band a bar's center must fall into.
	TopBottomBandFrac float32 `json:"topBottomBandFrac" yaml:"topBottomBandFrac"`
	// MaxBarHeightFrac is the maximum fraction of the container height a
	// bar's intersection may occupy.
	MaxBarHeightFrac float32 `json:"maxBarHeightFrac" yaml:"maxBarHeightFrac"`
	// ClassMargin is the score difference below which the two top
	// main-type candidates are considered tied.
	ClassMargin float32 `json:"classMargin" yaml:"classMargin"`
	// MinPrimaryAreaFrac is the minimum frame coverage of the primary box
	// for the capture to count as complete.
	MinPrimaryAreaFrac float32 `json:"minPrimaryAreaFrac" yaml:"minPrimaryAreaFrac"`
	// ScreenshotMinCoverFrac is the minimum container coverage for a
	// screenshot classification to stand on its own.
	ScreenshotMinCoverFrac float32 `json:"screenshotMinCoverFrac" yaml:"screenshotMinCoverFrac"`
	// ScreenshotBarBonus is added to the acceptance score per valid bar.
	ScreenshotBarBonus float32 `json:"screenshotBarBonus" yaml:"screenshotBarBonus"`
	// ScreenshotBothBarsBonus is added when both bars validate.
	ScreenshotBothBarsBonus float32 `json:"screenshotBothBarsBonus" yaml:"screenshotBothBarsBonus"`
	// ScreenshotCoverBonus is added when the container covers enough of
	// the frame.
	ScreenshotCoverBonus float32 `json:"screenshotCoverBonus" yaml:"screenshotCoverBonus"`
	// AltCandidateMaxDelta is how far below the acceptance score an
	// alternative candidate may score and still win the switch.
	AltCandidateMaxDelta float32 `json:"altCandidateMaxDelta" yaml:"altCandidateMaxDelta"`
}

// DefaultTolerances returns the frozen default knob values.
func DefaultTolerances() Tolerances {
	return Tolerances{
		MinBarWidthFrac:         0.80,
		TopBottomBandFrac:       0.12,
		MaxBarHeightFrac:        0.15,
		ClassMargin:             0.07,
		MinPrimaryAreaFrac:      0.20,
		ScreenshotMinCoverFrac:  0.80,
		ScreenshotBarBonus:      0.05,
		ScreenshotBothBarsBonus: 0.03,
		ScreenshotCoverBonus:    0.05,
		AltCandidateMaxDelta:    0.06,
	}
}

// Config configures one refinement call.
type Config struct {
	Tolerances Tolerances `json:"tolerances" yaml:"tolerances"`
	// AllowRetype gates every reclassification the engine may perform.
	AllowRetype bool `json:"allowRetype" yaml:"allowRetype"`
	// KeepDiagnostics appends the ordered trace notes to the output's
	// signal bundle.
	KeepDiagnostics bool `json:"keepDiagnostics" yaml:"keepDiagnostics"`
	// Log receives each trace note at debug level when set. The engine
	// never logs through a global.
	Log logrus.FieldLogger `json:"-" yaml:"-"`
}

// DefaultConfig returns the default refinement configuration.
func DefaultConfig() Config {
	return Config{
		Tolerances:      DefaultTolerances(),
		AllowRetype:     true,
		KeepDiagnostics: true,
	}
}
