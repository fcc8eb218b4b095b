package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/phyten/monostyle/internal/engine"
	"github.com/phyten/monostyle/internal/termcolor"
	"github.com/phyten/monostyle/internal/textutil"
)

const columnGap = "  "

type TableOptions struct {
	Styler *termcolor.Styler
	// MaxMessageWidth が正なら MESSAGE 列をその表示幅で切り詰める
	MaxMessageWidth int
}

// WriteTable は表示幅で揃えた表を書きます。指摘が無ければ何も書きません。
func WriteTable(w io.Writer, items []engine.Item, sel FieldSelection, opts TableOptions) error {
	if len(items) == 0 {
		return nil
	}
	headers := Headers(sel.Fields)
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = textutil.VisibleWidth(h)
	}
	rows := make([][]string, len(items))
	for r, it := range items {
		row := RowValues(it, sel.Fields)
		for i, f := range sel.Fields {
			row[i] = textutil.OneLine(row[i])
			if f.Key == "message" && opts.MaxMessageWidth > 0 {
				row[i] = textutil.TruncateByWidth(row[i], opts.MaxMessageWidth, "…")
			}
			if cw := textutil.VisibleWidth(row[i]); cw > widths[i] {
				widths[i] = cw
			}
		}
		rows[r] = row
	}

	styler := opts.Styler
	cells := make([]string, len(headers))
	for i, h := range headers {
		cells[i] = styler.Header(h)
	}
	if err := writeRow(w, cells, widths); err != nil {
		return err
	}
	for r, row := range rows {
		it := items[r]
		for i, f := range sel.Fields {
			switch f.Key {
			case "severity":
				cells[i] = styler.Severity(string(it.Severity), row[i])
			case "rule", "message_id":
				cells[i] = styler.Dim(row[i])
			case "fixable":
				if it.Fixable {
					cells[i] = styler.Fixable(row[i])
				} else {
					cells[i] = row[i]
				}
			default:
				cells[i] = row[i]
			}
		}
		if err := writeRow(w, cells, widths); err != nil {
			return err
		}
	}
	return nil
}

func writeRow(w io.Writer, cells []string, widths []int) error {
	var b strings.Builder
	for i, c := range cells {
		if i > 0 {
			b.WriteString(columnGap)
		}
		if i == len(cells)-1 {
			b.WriteString(c)
			continue
		}
		b.WriteString(textutil.PadRight(c, widths[i]))
	}
	b.WriteByte('\n')
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteSummary は表の後ろに件数のまとめを書きます。
func WriteSummary(w io.Writer, res *engine.Result, styler *termcolor.Styler, dryRun bool) error {
	var lines []string
	if res.Total == 0 {
		lines = append(lines, fmt.Sprintf("No problems found (%s checked)", plural(res.Files, "file")))
	} else {
		severity := "warning"
		if res.ErrorCount > 0 {
			severity = "error"
		}
		head := fmt.Sprintf("✖ %s (%s, %s)", plural(res.Total, "problem"), plural(res.ErrorCount, "error"), plural(res.WarningCount, "warning"))
		lines = append(lines, "", styler.Severity(severity, head))
		if res.FixableCount > 0 {
			lines = append(lines, styler.Fixable(fmt.Sprintf("  %s potentially fixable with --fix", plural(res.FixableCount, "problem"))))
		}
	}
	if n := len(res.Fixed); n > 0 {
		verb := "Fixed"
		if dryRun {
			verb = "Would fix"
		}
		lines = append(lines, fmt.Sprintf("%s %s", verb, plural(n, "file")))
	}
	if n := len(res.Errors); n > 0 {
		lines = append(lines, styler.Severity("error", fmt.Sprintf("%s could not be linted", plural(n, "file"))))
	}
	_, err := io.WriteString(w, strings.Join(lines, "\n")+"\n")
	return err
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
