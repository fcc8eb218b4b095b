package output

import (
	"encoding/json"
	"io"

	"github.com/phyten/monostyle/internal/engine"
)

// WriteNDJSON streams items as newline-delimited JSON objects.
// Per-file errors follow the items as {"error": {...}} lines.
func WriteNDJSON(w io.Writer, items []engine.Item, errs []engine.ItemError) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, it := range items {
		if err := enc.Encode(it); err != nil {
			return err
		}
	}
	for _, e := range errs {
		if err := enc.Encode(struct {
			Error engine.ItemError `json:"error"`
		}{e}); err != nil {
			return err
		}
	}
	return nil
}
