package surface

import (
	"encoding/json"
	"io"

	"github.com/siteaudit/siteaudit/pkg/audit"
)

// JSONRenderer marshals the payload to indented JSON.
type JSONRenderer struct{}

func (r *JSONRenderer) Render(w io.Writer, p *audit.Payload) error {
	return WriteJSON(w, p)
}

// WriteJSON writes any value as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
