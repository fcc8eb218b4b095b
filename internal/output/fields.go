package output

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/phyten/monostyle/internal/engine"
)

type Field struct {
	Key    string
	Header string
}

type FieldSelection struct {
	Fields []Field
}

var fieldRegistry = map[string]string{
	"severity":   "SEVERITY",
	"location":   "LOCATION",
	"file":       "FILE",
	"line":       "LINE",
	"column":     "COLUMN",
	"rule":       "RULE",
	"message":    "MESSAGE",
	"message_id": "MESSAGE_ID",
	"fixable":    "FIXABLE",
	"url":        "URL",
}

var defaultFieldKeys = []string{"severity", "location", "rule", "message"}

// FieldNames は指定可能な列名を返します。
func FieldNames() []string {
	return []string{"severity", "location", "file", "line", "column", "rule", "message", "message_id", "fixable", "url"}
}

// ResolveFields は "--fields" の値を列に変換します。空なら既定の列です。
func ResolveFields(raw string) (FieldSelection, error) {
	raw = strings.TrimSpace(raw)
	keys := defaultFieldKeys
	if raw != "" {
		keys = strings.Split(raw, ",")
	}
	sel := FieldSelection{Fields: make([]Field, 0, len(keys))}
	for _, part := range keys {
		name := strings.TrimSpace(part)
		if name == "" {
			return FieldSelection{}, fmt.Errorf("invalid fields: empty entry")
		}
		key := strings.ReplaceAll(strings.ToLower(name), "-", "_")
		header, ok := fieldRegistry[key]
		if !ok {
			return FieldSelection{}, fmt.Errorf("unknown field: %s (supported: %s)", name, strings.Join(FieldNames(), ", "))
		}
		sel.Fields = append(sel.Fields, Field{Key: key, Header: header})
	}
	return sel, nil
}

// Has は列が選択されているかを返します。
func (s FieldSelection) Has(key string) bool {
	for _, f := range s.Fields {
		if f.Key == key {
			return true
		}
	}
	return false
}

func DefaultFields() FieldSelection {
	sel, _ := ResolveFields("")
	return sel
}

func Headers(fields []Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Header
	}
	return out
}

func RowValues(it engine.Item, fields []Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = FieldValue(it, f.Key)
	}
	return out
}

func FieldValue(it engine.Item, key string) string {
	switch key {
	case "severity":
		return string(it.Severity)
	case "location":
		return Location(it)
	case "file":
		return it.File
	case "line":
		return strconv.Itoa(it.Line)
	case "column":
		return strconv.Itoa(it.Column)
	case "rule":
		return it.Rule
	case "message":
		return it.Message
	case "message_id":
		return it.MessageID
	case "fixable":
		if it.Fixable {
			return "yes"
		}
		return "no"
	case "url":
		return it.URL
	default:
		return ""
	}
}

// Location は "file:line:column" 形式の位置です。
func Location(it engine.Item) string {
	return fmt.Sprintf("%s:%d:%d", it.File, it.Line, it.Column)
}
