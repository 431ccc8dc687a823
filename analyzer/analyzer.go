// Package analyzer - Orchestrates the document classification pipeline.
//
// The analyzer is the only place that waits on collaborators (codec,
// inference engine); every core stage below it runs to completion
// synchronously. Each Analyze call is independent: all mutation happens on
// freshly built values, so concurrent calls with disjoint inputs never
// interact.
package analyzer

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorgonia.org/tensor"

	"github.com/docsight-ai/go-docscan/classes"
	"github.com/docsight-ai/go-docscan/codec"
	"github.com/docsight-ai/go-docscan/common"
	"github.com/docsight-ai/go-docscan/inference"
	"github.com/docsight-ai/go-docscan/postprocess"
	"github.com/docsight-ai/go-docscan/preprocess"
	"github.com/docsight-ai/go-docscan/quality"
	"github.com/docsight-ai/go-docscan/refine"
)

// Config configures an Analyzer.
type Config struct {
	// Classes resolves detector class ids to labels. Required.
	Classes *classes.Table `json:"-" yaml:"-"`
	// InputSize is the square model input side length; 0 means 640.
	InputSize int `json:"inputSize" yaml:"inputSize"`
	// IoUThreshold drives per-class suppression; 0 means 0.45.
	IoUThreshold float32 `json:"iouThreshold" yaml:"iouThreshold"`
	// Tolerances configures the refinement engine; the zero value means
	// the frozen defaults.
	Tolerances refine.Tolerances `json:"tolerances" yaml:"tolerances"`
	// AllowRetype gates refinement reclassification.
	AllowRetype bool `json:"allowRetype" yaml:"allowRetype"`
	// KeepDiagnostics keeps refinement trace notes on the result.
	KeepDiagnostics bool `json:"keepDiagnostics" yaml:"keepDiagnostics"`
	// Log receives pipeline debug output when set.
	Log logrus.FieldLogger `json:"-" yaml:"-"`
}

// DefaultConfig returns the default analyzer configuration with the given
// class table.
func DefaultConfig(table *classes.Table) Config {
	return Config{
		Classes:         table,
		InputSize:       640,
		IoUThreshold:    0.45,
		Tolerances:      refine.DefaultTolerances(),
		AllowRetype:     true,
		KeepDiagnostics: true,
	}
}

// Analyzer classifies document photographs.
type Analyzer struct {
	codec  codec.Codec
	engine inference.Engine
	cfg    Config
}

// New builds an analyzer.
//
// Arguments:
//   - c: The image codec collaborator.
//   - e: The inference engine collaborator.
//   - cfg: Pipeline configuration; Classes must be a non-empty table.
//
// Returns:
//   - *Analyzer: The constructed analyzer.
//   - error: A configuration error when a collaborator or the class table
//     is missing.
func New(c codec.Codec, e inference.Engine, cfg Config) (*Analyzer, error) {
	if c == nil {
		return nil, errors.New("codec is required")
	}
	if e == nil {
		return nil, errors.New("inference engine is required")
	}
	if cfg.Classes == nil || cfg.Classes.Len() == 0 {
		return nil, errors.Wrap(classes.ErrEmptyTable, "analyzer configuration")
	}
	if cfg.InputSize == 0 {
		cfg.InputSize = 640
	}
	if cfg.IoUThreshold == 0 {
		cfg.IoUThreshold = 0.45
	}
	return &Analyzer{codec: c, engine: e, cfg: cfg}, nil
}

// Analyze classifies one image. A failure aborts only this image's
// analysis; batch-level continuation is the caller's responsibility.
//
// Arguments:
//   - ctx: Context for the inference call.
//   - data: Raw encoded image bytes.
//
// Returns:
//   - *common.Result: The refined classification result.
//   - error: A wrapped decode, preparation or inference error.
func (a *Analyzer) Analyze(ctx context.Context, data []byte) (*common.Result, error) {
	img, info, err := a.codec.Decode(data)
	if err != nil {
		return nil, errors.Wrap(err, "decoding image")
	}

	qual := quality.Measure(img)

	input, lb, err := preprocess.Prepare(img, a.cfg.InputSize, a.codec)
	if err != nil {
		return nil, errors.Wrap(err, "preparing input tensor")
	}

	outputs, err := a.engine.Infer(ctx, input)
	if err != nil {
		return nil, errors.Wrap(err, "running inference")
	}
	output, err := pickOutput(outputs)
	if err != nil {
		return nil, err
	}

	candidates, err := postprocess.Decode(output, a.cfg.Classes.Len())
	if err != nil {
		return nil, errors.Wrap(err, "decoding detector output")
	}
	kept := postprocess.Suppress(candidates, a.cfg.IoUThreshold)
	detections := postprocess.Project(kept, lb, a.cfg.Classes)

	if a.cfg.Log != nil {
		a.cfg.Log.WithFields(logrus.Fields{
			"width":      info.Width,
			"height":     info.Height,
			"format":     info.Format,
			"candidates": len(candidates),
			"kept":       len(detections),
		}).Debug("decoded detector output")
	}

	initial := &common.Result{
		Width:  info.Width,
		Height: info.Height,
		Summary: common.Summary{
			DocumentType: common.TypeUnknown,
			Quality:      qual,
		},
		Detections: detections,
	}

	refined := refine.Refine(initial, refine.Config{
		Tolerances:      a.cfg.Tolerances,
		AllowRetype:     a.cfg.AllowRetype,
		KeepDiagnostics: a.cfg.KeepDiagnostics,
		Log:             a.cfg.Log,
	})
	return refined, nil
}

// pickOutput selects the detector head from the engine's named outputs.
func pickOutput(outputs map[string]*tensor.Dense) (*tensor.Dense, error) {
	if len(outputs) == 0 {
		return nil, errors.New("engine returned no outputs")
	}
	if out, ok := outputs["output0"]; ok {
		return out, nil
	}
	if len(outputs) == 1 {
		for _, out := range outputs {
			return out, nil
		}
	}
	names := make([]string, 0, len(outputs))
	for name := range outputs {
		names = append(names, name)
	}
	return nil, errors.Errorf("cannot pick detector output among %v", names)
}
