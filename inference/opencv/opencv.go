// Package opencv - Inference engine backed by OpenCV's DNN module.
//
// An alternative to the ONNX Runtime engine for environments that ship
// OpenCV but no onnxruntime shared library. Same interface, same
// configuration error semantics.
package opencv

import (
	"context"
	"encoding/binary"
	"math"
	"os"
	"sync"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
	"gorgonia.org/tensor"

	"github.com/docsight-ai/go-docscan/inference"
)

// Engine runs the detector through gocv.Net. Forward passes are serialized
// by an internal mutex; the underlying network is not reentrant.
type Engine struct {
	cfg inference.Config

	mu  sync.Mutex
	net gocv.Net
}

// New loads the ONNX model into OpenCV's DNN module.
//
// Arguments:
//   - cfg: Engine configuration; zero-valued fields get defaults.
//
// Returns:
//   - *Engine: The constructed engine.
//   - error: inference.ErrModelNotFound when the artifact is missing, or
//     a load error.
func New(cfg inference.Config) (*Engine, error) {
	cfg = cfg.WithDefaults()
	if cfg.NumClasses <= 0 {
		return nil, errors.Errorf("invalid class count %d", cfg.NumClasses)
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, errors.Wrapf(inference.ErrModelNotFound, "%s", cfg.ModelPath)
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, errors.Errorf("OpenCV failed to load model %s", cfg.ModelPath)
	}

	return &Engine{cfg: cfg, net: net}, nil
}

// Infer feeds the planar tensor through the network and returns the output
// in a fresh tensor the caller owns.
func (e *Engine) Infer(ctx context.Context, input *tensor.Dense) (map[string]*tensor.Dense, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	data, ok := input.Data().([]float32)
	if !ok {
		return nil, errors.Errorf("input tensor holds %T, expected []float32", input.Data())
	}

	raw := make([]byte, 4*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
	}

	blob, err := gocv.NewMatWithSizesFromBytes(input.Shape(), gocv.MatTypeCV32F, raw)
	if err != nil {
		return nil, errors.Wrap(err, "building input blob")
	}
	defer blob.Close()

	e.net.SetInput(blob, e.cfg.InputName)
	out := e.net.Forward(e.cfg.OutputName)
	defer out.Close()

	values, err := out.DataPtrFloat32()
	if err != nil {
		return nil, errors.Wrap(err, "reading network output")
	}
	owned := make([]float32, len(values))
	copy(owned, values)

	shape := out.Size()
	if len(shape) == 0 {
		return nil, errors.New("network produced an empty output")
	}

	return map[string]*tensor.Dense{
		e.cfg.OutputName: tensor.New(tensor.WithShape(shape...), tensor.WithBacking(owned)),
	}, nil
}

// Close releases the network.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.net.Close()
}
