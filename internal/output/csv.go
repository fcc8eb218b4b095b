package output

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/phyten/monostyle/internal/engine"
)

// WriteCSV は指摘を RFC 4180 形式（CRLF 改行）で書き出します。
//
// ファイル名やメッセージはリポジトリ側の文字列なので、表計算ソフトで数式として
// 解釈される先頭文字（= + - @ タブ CR）を持つセルには ' を前置します。
// 数値列（line, column）はそのまま出します。
func WriteCSV(w io.Writer, items []engine.Item, sel FieldSelection) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	if err := cw.Write(Headers(sel.Fields)); err != nil {
		return err
	}
	row := make([]string, len(sel.Fields))
	for _, it := range items {
		for i, v := range RowValues(it, sel.Fields) {
			row[i] = csvCell(v, sel.Fields[i].Key)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvCell(v, key string) string {
	if v == "" || numericField(key) {
		return v
	}
	if strings.ContainsRune("=+-@\t\r", rune(v[0])) {
		return "'" + v
	}
	return v
}

func numericField(key string) bool {
	switch key {
	case "line", "column":
		return true
	}
	return false
}
