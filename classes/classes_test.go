package classes

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docsight-ai/go-docscan/common"
)

func TestNew(t *testing.T) {
	table, err := New([]string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, 3, table.Len())
	assert.Equal(t, "b", table.Name(1))
}

func TestNew_Empty(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyTable))
}

func TestNew_CopiesInput(t *testing.T) {
	labels := []string{"a", "b"}
	table, err := New(labels)
	require.NoError(t, err)

	labels[0] = "mutated"
	assert.Equal(t, "a", table.Name(0), "table must not alias the caller's slice")
}

func TestName_OutOfRange(t *testing.T) {
	table, err := New([]string{"only"})
	require.NoError(t, err)
	assert.Equal(t, "class 7", table.Name(7))
	assert.Equal(t, "class -1", table.Name(-1))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classes.txt")
	content := "Receipt\n\nDocument\n  Screenshot  \n\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	table, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, table.Len())
	assert.Equal(t, []string{"Receipt", "Document", "Screenshot"}, table.Labels())
}

func TestLoad_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classes.txt")
	require.NoError(t, os.WriteFile(path, []byte("\n\n  \n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyTable))
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.txt"))
	require.Error(t, err)
}

func TestDefault(t *testing.T) {
	table := Default()
	require.Equal(t, 5, table.Len())
	assert.Equal(t, common.LabelReceipt, table.Name(0))
	assert.Equal(t, common.LabelDocument, table.Name(1))
	assert.Equal(t, common.LabelScreenshot, table.Name(2))
	assert.Equal(t, common.LabelTopBar, table.Name(3))
	assert.Equal(t, common.LabelBottomBar, table.Name(4))
}
