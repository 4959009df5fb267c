package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/factory/internal/ir"
)

// marshalMsg converts a raw message to canonical JSON TEXT for storage so
// logged messages compare byte-for-byte regardless of the caller's key order.
func marshalMsg(msg json.RawMessage) (string, error) {
	if len(msg) == 0 {
		return "{}", nil
	}
	data, err := ir.CanonicalizeJSON(msg)
	if err == nil {
		return string(data), nil
	}
	// Messages that failed to decode are still logged: valid JSON the
	// canonicalizer rejects (floats) is kept verbatim, anything else is
	// stored as a JSON string.
	if json.Valid(msg) {
		return string(msg), nil
	}
	quoted, err := json.Marshal(string(msg))
	if err != nil {
		return "", fmt.Errorf("marshal msg: %w", err)
	}
	return string(quoted), nil
}

// marshalAttributes converts attributes to canonical JSON TEXT.
func marshalAttributes(attrs []ir.Attribute) (string, error) {
	if attrs == nil {
		attrs = []ir.Attribute{}
	}
	data, err := ir.MarshalCanonical(attrs)
	if err != nil {
		return "", fmt.Errorf("marshal attributes: %w", err)
	}
	return string(data), nil
}

// unmarshalAttributes parses attribute JSON TEXT.
// Returns an empty slice (not nil) for an empty list.
func unmarshalAttributes(data string) ([]ir.Attribute, error) {
	attrs := []ir.Attribute{}
	if data == "" || data == "[]" {
		return attrs, nil
	}
	if err := json.Unmarshal([]byte(data), &attrs); err != nil {
		return nil, fmt.Errorf("unmarshal attributes: %w", err)
	}
	return attrs, nil
}
