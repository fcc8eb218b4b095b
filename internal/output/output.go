// Package output は lint 結果を各形式で書き出します。
package output

import (
	"fmt"
	"io"

	"github.com/phyten/monostyle/internal/engine"
	"github.com/phyten/monostyle/internal/termcolor"
)

type Options struct {
	// Format は正規化済みの形式名（engine/opts.NormalizeOutput の結果）
	Format          string
	Fields          FieldSelection
	Styler          *termcolor.Styler
	MaxMessageWidth int
	DryRun          bool
}

func Write(w io.Writer, res *engine.Result, opts Options) error {
	if res == nil {
		res = &engine.Result{}
	}
	sel := opts.Fields
	if len(sel.Fields) == 0 {
		sel = DefaultFields()
	}
	switch opts.Format {
	case "", "table":
		if err := WriteTable(w, res.Items, sel, TableOptions{Styler: opts.Styler, MaxMessageWidth: opts.MaxMessageWidth}); err != nil {
			return err
		}
		return WriteSummary(w, res, opts.Styler, opts.DryRun)
	case "tsv":
		return WriteTSV(w, res.Items, sel)
	case "json":
		return WriteJSON(w, res)
	case "ndjson":
		return WriteNDJSON(w, res.Items, res.Errors)
	case "csv":
		return WriteCSV(w, res.Items, sel)
	case "markdown":
		return WriteMarkdownTable(w, res.Items, sel)
	default:
		return fmt.Errorf("unsupported output format: %s", opts.Format)
	}
}
