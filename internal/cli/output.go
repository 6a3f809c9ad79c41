package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// writeOutput encodes v to w in the format selected by --format.
func (a *app) writeOutput(w io.Writer, v any) error {
	switch a.flags.format {
	case formatMsgpack:
		enc := msgpack.NewEncoder(w)
		enc.SetCustomStructTag("json")
		enc.SetSortMapKeys(true)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode msgpack: %w", err)
		}
		return nil
	default:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		if _, err := fmt.Fprintln(w, string(data)); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		return nil
	}
}
