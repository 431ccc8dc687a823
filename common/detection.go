// Package common - Shared data model for document analysis.
package common

import (
	"fmt"

	"github.com/docsight-ai/go-docscan/images"
)

// Canonical detector labels. The class-name table maps detector class ids to
// these strings; refinement matches on them.
const (
	LabelReceipt    = "Receipt"
	LabelDocument   = "Document"
	LabelScreenshot = "Screenshot"
	LabelTopBar     = "Top status bar"
	LabelBottomBar  = "Bottom nav bar"
)

// Source identifies which pipeline stage produced a detection.
type Source string

const (
	// SourceDetector marks detections decoded from raw model output.
	SourceDetector Source = "detector"
	// SourceRefine marks detections synthesized by the refinement engine.
	SourceRefine Source = "refine"
	// SourceFallback marks detections synthesized by the unknown-type fallback.
	SourceFallback Source = "fallback"
)

// DetectionMeta carries provenance for a detection.
type DetectionMeta struct {
	// Synthetic is true when the detection was not produced by the detector.
	Synthetic bool `json:"synthetic,omitempty" yaml:"synthetic,omitempty"`
	// Adjusted is true when refinement changed the detection's role or box.
	Adjusted bool `json:"adjusted,omitempty" yaml:"adjusted,omitempty"`
	// Source records the stage that produced the detection.
	Source Source `json:"source" yaml:"source"`
	// Reason is an optional human-readable explanation.
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Detection is a single labeled region of the analyzed image.
//
// Score is the detector's raw output value, compared directly against
// thresholds. In practice it is typically within [0,1], but it is not a
// normalized probability and no guarantee is made.
type Detection struct {
	Label string         `json:"label" yaml:"label"`
	Score float32        `json:"score" yaml:"score"`
	Box   images.Rect    `json:"box" yaml:"box"`
	Meta  *DetectionMeta `json:"meta,omitempty" yaml:"meta,omitempty"`
}

// Clone returns a deep copy of the detection.
func (d Detection) Clone() Detection {
	out := d
	if d.Meta != nil {
		meta := *d.Meta
		out.Meta = &meta
	}
	return out
}

func (d Detection) String() string {
	return fmt.Sprintf("Detection %s (score %f): (%d, %d), (%d, %d)",
		d.Label, d.Score, d.Box.X1, d.Box.Y1, d.Box.X2, d.Box.Y2)
}

// DocumentType is the closed set of document classifications.
type DocumentType int

const (
	// TypeUnknown means no classification could be established.
	TypeUnknown DocumentType = iota
	// TypeReceipt is a printed till or purchase receipt.
	TypeReceipt
	// TypeDocument is a general paper document.
	TypeDocument
	// TypeScreenshot is a captured device screen.
	TypeScreenshot
)

// String returns the display name of the document type.
func (t DocumentType) String() string {
	switch t {
	case TypeReceipt:
		return "Receipt"
	case TypeDocument:
		return "Document"
	case TypeScreenshot:
		return "Screenshot"
	default:
		return "Unknown"
	}
}

// EvidenceLabel returns the detection label that counts as evidence for the
// type. Unknown maps to the Document label, matching the fallback synthesis
// used when no detector evidence exists.
func (t DocumentType) EvidenceLabel() string {
	switch t {
	case TypeReceipt:
		return LabelReceipt
	case TypeScreenshot:
		return LabelScreenshot
	default:
		return LabelDocument
	}
}

// TypeForLabel maps a detection label to its document type. Labels that do
// not name a main document class (including the bar labels) map to Unknown.
func TypeForLabel(label string) DocumentType {
	switch label {
	case LabelReceipt:
		return TypeReceipt
	case LabelDocument:
		return TypeDocument
	case LabelScreenshot:
		return TypeScreenshot
	default:
		return TypeUnknown
	}
}

// IsBarLabel reports whether the label names a screenshot UI bar.
func IsBarLabel(label string) bool {
	return label == LabelTopBar || label == LabelBottomBar
}

// Quality holds per-image quality signals.
type Quality struct {
	EdgeIntensity    float64 `json:"edgeIntensity" yaml:"edgeIntensity"`
	Clarity          float64 `json:"clarity" yaml:"clarity"`
	ReadabilityScore float64 `json:"readabilityScore" yaml:"readabilityScore"`
	// IsPartial is true when the primary document region covers too little
	// of the frame to be considered fully captured.
	IsPartial bool `json:"isPartial" yaml:"isPartial"`
}

// Summary is the per-image classification verdict.
type Summary struct {
	DocumentType DocumentType `json:"documentType" yaml:"documentType"`
	// Confidence is the score of the decision basis, not a probability.
	Confidence float32 `json:"confidence" yaml:"confidence"`
	// PrimaryBox is the single region deemed the main document, if any.
	PrimaryBox *images.Rect `json:"primaryBox,omitempty" yaml:"primaryBox,omitempty"`
	Quality    Quality      `json:"quality" yaml:"quality"`
}

// Result is the externally visible outcome of analyzing one image.
type Result struct {
	// Width and Height are the original image dimensions in pixels.
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`

	Summary    Summary     `json:"summary" yaml:"summary"`
	Detections []Detection `json:"detections" yaml:"detections"`

	// Signals is the diagnostics bundle; refinement appends its ordered
	// trace notes here and never replaces existing entries.
	Signals []string `json:"signals,omitempty" yaml:"signals,omitempty"`
}

// Clone returns a deep copy of the result. Refinement clones its input
// before working so callers keep ownership of what they passed in.
func (r *Result) Clone() *Result {
	out := &Result{
		Width:   r.Width,
		Height:  r.Height,
		Summary: r.Summary,
	}
	if r.Summary.PrimaryBox != nil {
		box := *r.Summary.PrimaryBox
		out.Summary.PrimaryBox = &box
	}
	if r.Detections != nil {
		out.Detections = make([]Detection, len(r.Detections))
		for i, d := range r.Detections {
			out.Detections[i] = d.Clone()
		}
	}
	if r.Signals != nil {
		out.Signals = make([]string, len(r.Signals))
		copy(out.Signals, r.Signals)
	}
	return out
}
