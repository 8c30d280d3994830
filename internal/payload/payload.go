// Package payload normalizes JSON documents that may arrive either as an
// object or as a string holding the encoded object.
package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrEmpty is returned for blank input.
var ErrEmpty = errors.New("payload: empty document")

// maxUnwrap bounds how many string layers are peeled off.
const maxUnwrap = 2

// Canonical returns the object form of raw. A JSON string whose contents
// are themselves JSON is decoded and returned in its place.
func Canonical(raw []byte) ([]byte, error) {
	doc := bytes.TrimSpace(raw)
	for i := 0; i <= maxUnwrap; i++ {
		if len(doc) == 0 {
			return nil, ErrEmpty
		}
		if doc[0] != '"' {
			if !json.Valid(doc) {
				return nil, fmt.Errorf("payload: invalid json document")
			}
			return doc, nil
		}
		var inner string
		if err := json.Unmarshal(doc, &inner); err != nil {
			return nil, fmt.Errorf("payload: decode string form: %w", err)
		}
		doc = bytes.TrimSpace([]byte(inner))
	}
	return nil, fmt.Errorf("payload: too many string layers")
}
