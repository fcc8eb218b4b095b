package output

import (
	"io"
	"strings"

	"github.com/phyten/monostyle/internal/engine"
	"github.com/phyten/monostyle/internal/textutil"
)

// WriteTSV writes one header line and one line per item. Tabs and newlines inside
// values become spaces.
func WriteTSV(w io.Writer, items []engine.Item, sel FieldSelection) error {
	if _, err := io.WriteString(w, strings.Join(Headers(sel.Fields), "\t")+"\n"); err != nil {
		return err
	}
	for _, it := range items {
		row := RowValues(it, sel.Fields)
		for i := range row {
			row[i] = textutil.OneLine(row[i])
		}
		if _, err := io.WriteString(w, strings.Join(row, "\t")+"\n"); err != nil {
			return err
		}
	}
	return nil
}
