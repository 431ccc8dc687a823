// Package classes - Class-name tables mapping detector class ids to labels.
package classes

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/docsight-ai/go-docscan/common"
)

// ErrEmptyTable is returned when a table is constructed from no labels.
// An empty class table is a configuration error: every detector output
// needs a label to become a detection.
var ErrEmptyTable = errors.New("class table is empty")

// Table is an ordered, immutable mapping from detector class id to label.
type Table struct {
	labels []string
}

// New builds a table from an ordered list of labels.
//
// Arguments:
//   - labels: The class names, in detector output order.
//
// Returns:
//   - *Table: The constructed table.
//   - error: ErrEmptyTable if the list is empty.
func New(labels []string) (*Table, error) {
	if len(labels) == 0 {
		return nil, ErrEmptyTable
	}
	own := make([]string, len(labels))
	copy(own, labels)
	return &Table{labels: own}, nil
}

// Load reads a table from a plain-text file, one label per line. Blank
// lines are ignored; surrounding whitespace is trimmed.
//
// Arguments:
//   - path: Path to the class-name file.
//
// Returns:
//   - *Table: The loaded table.
//   - error: A wrapped read error, or ErrEmptyTable if no labels remain.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading class table %s", path)
	}

	var labels []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		labels = append(labels, line)
	}
	if len(labels) == 0 {
		return nil, errors.Wrapf(ErrEmptyTable, "class table %s", path)
	}
	return &Table{labels: labels}, nil
}

// Default returns the canonical five-class document table, in the order the
// document detector emits them.
func Default() *Table {
	return &Table{labels: []string{
		common.LabelReceipt,
		common.LabelDocument,
		common.LabelScreenshot,
		common.LabelTopBar,
		common.LabelBottomBar,
	}}
}

// Name returns the label for a class id. Out-of-range ids get a stable
// fallback label rather than an error; decode output should never be lost
// to a table mismatch.
func (t *Table) Name(id int) string {
	if id < 0 || id >= len(t.labels) {
		return fmt.Sprintf("class %d", id)
	}
	return t.labels[id]
}

// Len returns the number of classes in the table.
func (t *Table) Len() int {
	return len(t.labels)
}

// Labels returns a copy of the ordered label list.
func (t *Table) Labels() []string {
	out := make([]string, len(t.labels))
	copy(out, t.labels)
	return out
}
