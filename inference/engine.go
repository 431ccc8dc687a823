// Package inference - Inference engine collaborator for the document
// detector.
package inference

import (
	"context"
	"runtime"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// ErrModelNotFound is returned when the model artifact is missing at
// construction time. This is a fatal configuration error; there is no
// retry.
var ErrModelNotFound = errors.New("model artifact not found")

// Engine runs the detector model. Given a planar float32 input tensor of
// shape [1,3,T,T] it returns named float32 output tensors carrying shape
// metadata. Implementations serialize concurrent calls internally; the
// returned tensors are owned by the caller.
type Engine interface {
	Infer(ctx context.Context, input *tensor.Dense) (map[string]*tensor.Dense, error)
	Close() error
}

// Config configures an inference engine.
type Config struct {
	// ModelPath is the path to the ONNX model artifact.
	ModelPath string `json:"modelPath" yaml:"modelPath"`
	// LibraryPath overrides the ONNX Runtime shared library location.
	// Empty selects a platform default.
	LibraryPath string `json:"libraryPath" yaml:"libraryPath"`
	// InputName is the model's input tensor name.
	InputName string `json:"inputName" yaml:"inputName"`
	// OutputName is the model's output tensor name.
	OutputName string `json:"outputName" yaml:"outputName"`
	// InputSize is the square model input side length.
	InputSize int `json:"inputSize" yaml:"inputSize"`
	// NumClasses is the number of classes the model emits.
	NumClasses int `json:"numClasses" yaml:"numClasses"`
	// AnchorCount is the anchor dimension of the output tensor; 0 derives
	// it from InputSize.
	AnchorCount int `json:"anchorCount" yaml:"anchorCount"`
	// IntraOpThreads parallelizes execution within graph nodes; 0 uses
	// the runtime default.
	IntraOpThreads int `json:"intraOpThreads" yaml:"intraOpThreads"`
	// InterOpThreads parallelizes execution across graph nodes; 0 uses
	// the runtime default.
	InterOpThreads int `json:"interOpThreads" yaml:"interOpThreads"`
}

// WithDefaults fills the zero-valued fields with the standard detector
// export conventions.
func (c Config) WithDefaults() Config {
	if c.InputName == "" {
		c.InputName = "images"
	}
	if c.OutputName == "" {
		c.OutputName = "output0"
	}
	if c.InputSize == 0 {
		c.InputSize = 640
	}
	if c.AnchorCount == 0 {
		c.AnchorCount = AnchorCount(c.InputSize)
	}
	return c
}

// AnchorCount returns the anchor dimension a standard three-stride detector
// head produces for a square input: one anchor per cell at strides 8, 16
// and 32.
func AnchorCount(inputSize int) int {
	s8 := inputSize / 8
	s16 := inputSize / 16
	s32 := inputSize / 32
	return s8*s8 + s16*s16 + s32*s32
}

// sharedLibraryPath returns the platform default ONNX Runtime shared
// library location relative to the working directory.
func sharedLibraryPath() string {
	switch runtime.GOOS {
	case "windows":
		return "third_party/onnxruntime.dll"
	case "darwin":
		return "third_party/libonnxruntime.dylib"
	default:
		if runtime.GOARCH == "arm64" {
			return "third_party/onnxruntime_arm64.so"
		}
		return "third_party/onnxruntime.so"
	}
}
