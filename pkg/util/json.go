package util

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// PrintPrettyJSON prints a raw API payload with indentation. Printing the
// original bytes rather than re-marshaling a struct keeps fields the backend
// sent that our types do not model.
func PrintPrettyJSON(raw []byte) error {
	if len(raw) == 0 {
		fmt.Println("{}")
		return nil
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return err
	}
	fmt.Println(buf.String())
	return nil
}
