package inference

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{NumClasses: 5}.WithDefaults()
	assert.Equal(t, "images", cfg.InputName)
	assert.Equal(t, "output0", cfg.OutputName)
	assert.Equal(t, 640, cfg.InputSize)
	assert.Equal(t, 8400, cfg.AnchorCount)
}

func TestConfigWithDefaults_KeepsOverrides(t *testing.T) {
	cfg := Config{
		InputName:   "input",
		OutputName:  "detections",
		InputSize:   320,
		NumClasses:  5,
		AnchorCount: 100,
	}.WithDefaults()
	assert.Equal(t, "input", cfg.InputName)
	assert.Equal(t, "detections", cfg.OutputName)
	assert.Equal(t, 320, cfg.InputSize)
	assert.Equal(t, 100, cfg.AnchorCount)
}

func TestAnchorCount(t *testing.T) {
	// 80^2 + 40^2 + 20^2 for the standard 640 input.
	assert.Equal(t, 8400, AnchorCount(640))
	// 40^2 + 20^2 + 10^2.
	assert.Equal(t, 2100, AnchorCount(320))
}

func TestNewONNX_MissingModel(t *testing.T) {
	_, err := NewONNX(Config{ModelPath: "/nonexistent/model.onnx", NumClasses: 5})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrModelNotFound))
}

func TestNewONNX_InvalidClassCount(t *testing.T) {
	_, err := NewONNX(Config{ModelPath: "model.onnx"})
	require.Error(t, err)
}
