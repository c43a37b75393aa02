// Package utils holds the JSON plumbing shared by the CLI, the API
// layer, and the connectors: a lenient parsing ladder for human-written
// assumption documents and a sanitizer that keeps NaN/Inf out of wire
// responses.
package utils

import (
	"encoding/json"
	"fmt"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

// RepairJSON attempts to fix common JSON errors in hand-edited or scraped
// documents: single quotes, unquoted keys, trailing commas, unclosed
// containers, comments, markdown fences.
func RepairJSON(malformed string) (string, error) {
	repaired, err := jsonrepair.RepairJSON(malformed)
	if err != nil {
		return "", fmt.Errorf("json repair failed: %v", err)
	}
	return repaired, nil
}

// SanitizeFragment repairs a carved-out JSON fragment (e.g. a window cut
// from an embedded script blob) into standalone parseable JSON. Returns
// an empty object when the fragment is unrecoverable.
func SanitizeFragment(fragment string) string {
	repaired, err := jsonrepair.RepairJSON(fragment)
	if err != nil {
		return "{}"
	}
	return repaired
}

// ParseHJSON parses Hjson (comments, unquoted keys/strings, optional
// commas, multiline strings) and returns standard JSON.
func ParseHJSON(data string) (string, error) {
	var result interface{}
	if err := hjson.Unmarshal([]byte(data), &result); err != nil {
		return "", fmt.Errorf("hjson parse error: %v", err)
	}
	jsonBytes, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("json marshal error: %v", err)
	}
	return string(jsonBytes), nil
}

// ParseHJSONToStruct parses Hjson directly into a Go struct. Preferred
// when the schema is known, e.g. CLI valuation documents.
func ParseHJSONToStruct(data string, schema interface{}) error {
	if err := hjson.Unmarshal([]byte(data), schema); err != nil {
		return fmt.Errorf("hjson unmarshal error: %v", err)
	}
	return nil
}

// SmartParse tries multiple strategies to extract valid JSON from a
// document of unknown hygiene: strict JSON, then repair, then Hjson.
// Returns the normalized JSON that parsed.
func SmartParse(input string, schema interface{}) (string, error) {
	if err := json.Unmarshal([]byte(input), schema); err == nil {
		return input, nil
	}

	if repaired, err := RepairJSON(input); err == nil {
		if err := json.Unmarshal([]byte(repaired), schema); err == nil {
			return repaired, nil
		}
	}

	if normalized, err := ParseHJSON(input); err == nil {
		if err := json.Unmarshal([]byte(normalized), schema); err == nil {
			return normalized, nil
		}
	}

	return "", fmt.Errorf("smart parse failed: all parsing strategies failed")
}
