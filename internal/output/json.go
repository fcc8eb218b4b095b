package output

import (
	"encoding/json"
	"io"

	"github.com/phyten/monostyle/internal/engine"
)

// WriteJSON writes the whole result as one indented document.
func WriteJSON(w io.Writer, res *engine.Result) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if res.Items == nil {
		copied := *res
		copied.Items = []engine.Item{}
		res = &copied
	}
	return enc.Encode(res)
}
