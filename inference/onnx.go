package inference

import (
	"context"
	"os"
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"gorgonia.org/tensor"
)

// ortInitMu guards ONNX Runtime environment initialization, which is
// process-wide.
var ortInitMu sync.Mutex

func initRuntime(libraryPath string) error {
	ortInitMu.Lock()
	defer ortInitMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}
	if _, err := os.Stat(libraryPath); err != nil {
		return errors.Wrapf(err, "ONNX Runtime library not found at %s", libraryPath)
	}
	ort.SetSharedLibraryPath(libraryPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return errors.Wrap(err, "initializing ORT environment")
	}
	return nil
}

// ONNX is an Engine backed by ONNX Runtime through a preallocated
// AdvancedSession. Sessions are not reentrant, so concurrent Infer calls
// are serialized by an internal mutex.
type ONNX struct {
	cfg Config

	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

// NewONNX creates an ONNX Runtime engine for the configured model.
//
// Arguments:
//   - cfg: Engine configuration; zero-valued fields get defaults.
//
// Returns:
//   - *ONNX: The constructed engine.
//   - error: ErrModelNotFound when the model artifact is missing, or a
//     wrapped runtime/session construction error.
func NewONNX(cfg Config) (*ONNX, error) {
	cfg = cfg.WithDefaults()
	if cfg.NumClasses <= 0 {
		return nil, errors.Errorf("invalid class count %d", cfg.NumClasses)
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, errors.Wrapf(ErrModelNotFound, "%s", cfg.ModelPath)
	}

	libraryPath := cfg.LibraryPath
	if libraryPath == "" {
		libraryPath = sharedLibraryPath()
	}
	if err := initRuntime(libraryPath); err != nil {
		return nil, err
	}

	inputShape := ort.NewShape(1, 3, int64(cfg.InputSize), int64(cfg.InputSize))
	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, errors.Wrap(err, "creating input tensor")
	}

	outputShape := ort.NewShape(1, int64(4+cfg.NumClasses), int64(cfg.AnchorCount))
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, errors.Wrap(err, "creating output tensor")
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, errors.Wrap(err, "creating session options")
	}
	defer options.Destroy()

	options.SetIntraOpNumThreads(cfg.IntraOpThreads)
	options.SetInterOpNumThreads(cfg.InterOpThreads)
	options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableExtended)

	session, err := ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{cfg.InputName},
		[]string{cfg.OutputName},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
		options,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, errors.Wrap(err, "creating ORT session")
	}

	return &ONNX{
		cfg:     cfg,
		session: session,
		input:   inputTensor,
		output:  outputTensor,
	}, nil
}

// Infer copies the prepared tensor into the session input, runs the model,
// and returns the output in a fresh tensor the caller owns.
func (o *ONNX) Infer(ctx context.Context, input *tensor.Dense) (map[string]*tensor.Dense, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	data, ok := input.Data().([]float32)
	if !ok {
		return nil, errors.Errorf("input tensor holds %T, expected []float32", input.Data())
	}
	dst := o.input.GetData()
	if len(data) != len(dst) {
		return nil, errors.Errorf("input tensor has %d values, session expects %d", len(data), len(dst))
	}
	copy(dst, data)

	if err := o.session.Run(); err != nil {
		return nil, errors.Wrap(err, "running inference")
	}

	src := o.output.GetData()
	out := make([]float32, len(src))
	copy(out, src)

	shape64 := o.output.GetShape()
	shape := make([]int, len(shape64))
	for i, d := range shape64 {
		shape[i] = int(d)
	}

	return map[string]*tensor.Dense{
		o.cfg.OutputName: tensor.New(tensor.WithShape(shape...), tensor.WithBacking(out)),
	}, nil
}

// Close releases the session and its tensors.
func (o *ONNX) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.input != nil {
		o.input.Destroy()
		o.input = nil
	}
	if o.output != nil {
		o.output.Destroy()
		o.output = nil
	}
	if o.session != nil {
		o.session.Destroy()
		o.session = nil
	}
	return nil
}
