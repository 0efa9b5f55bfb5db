// Package source decodes raw bill records and discovers bill files on disk.
package source

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Decoding errors.
var (
	ErrInvalidJSON   = errors.New("bill record is not valid JSON")
	ErrNotJSONObject = errors.New("bill record is not a JSON object")
)

// Keys checked for the enhanced marker.
var markerKeys = []string{"analysisType", "extractionMethod"}

// Envelope keys some extractors wrap the record in.
var envelopeKeys = []string{"analysis", "data", "result"}

// Decode parses a bill record and decides its variant. It unwraps a single
// envelope object ({"analysis": {...}}) when the top level has no phoneLines.
func Decode(data []byte) (RawBillRecord, error) {
	if !gjson.ValidBytes(data) {
		return RawBillRecord{}, ErrInvalidJSON
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return RawBillRecord{}, ErrNotJSONObject
	}
	root = unwrapEnvelope(root)

	var rec RawBillRecord
	if err := json.Unmarshal([]byte(root.Raw), &rec); err != nil {
		return RawBillRecord{}, fmt.Errorf("decoding bill record: %w", err)
	}
	rec.Variant = Classify(root, len(rec.PhoneLines))
	return rec, nil
}

// Classify returns VariantEnhanced when the record carries the enhanced
// marker and at least one phone line.
func Classify(root gjson.Result, lines int) Variant {
	if lines > 0 && HasEnhancedMarker(root) {
		return VariantEnhanced
	}
	return VariantMinimal
}

// HasEnhancedMarker reports whether root carries "enhanced": true or a marker
// key whose value mentions "enhanced".
func HasEnhancedMarker(root gjson.Result) bool {
	if root.Get("enhanced").Type == gjson.True {
		return true
	}
	for _, key := range markerKeys {
		v := root.Get(key)
		if v.Type == gjson.String && strings.Contains(strings.ToLower(v.Str), "enhanced") {
			return true
		}
	}
	return false
}

func unwrapEnvelope(root gjson.Result) gjson.Result {
	if root.Get("phoneLines").Exists() {
		return root
	}
	for _, key := range envelopeKeys {
		inner := root.Get(key)
		if inner.IsObject() && inner.Get("phoneLines").Exists() {
			return inner
		}
	}
	return root
}
