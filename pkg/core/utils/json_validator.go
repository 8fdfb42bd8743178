package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

// Format records which strategy decoded an input document.
type Format string

const (
	FormatJSON     Format = "json"
	FormatHJSON    Format = "hjson"
	FormatRepaired Format = "repaired"
)

// ErrUndecodable is returned when every enabled strategy fails.
var ErrUndecodable = errors.New("input is not valid JSON or Hjson")

// DecodeStrict unmarshals JSON and rejects unknown fields and trailing data.
func DecodeStrict(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("JSON_STRUCTURAL_ERROR: %w", err)
	}
	if dec.More() {
		return errors.New("JSON_STRUCTURAL_ERROR: trailing data after document")
	}
	return nil
}

// RepairJSON fixes common hand-editing mistakes:
// - Missing quotes around keys
// - Single quotes instead of double quotes
// - Unclosed arrays/objects
// - Trailing commas
func RepairJSON(malformed string) (string, error) {
	repaired, err := jsonrepair.RepairJSON(malformed)
	if err != nil {
		return "", fmt.Errorf("JSON_REPAIR_FAILED: %w", err)
	}
	return repaired, nil
}

// ParseHJSON parses Human-friendly JSON (Hjson) and returns standard JSON.
// Hjson supports comments, unquoted keys and optional commas, which suits
// hand-written assumption files.
func ParseHJSON(data string) (string, error) {
	var result interface{}
	if err := hjson.Unmarshal([]byte(data), &result); err != nil {
		return "", fmt.Errorf("HJSON_PARSE_ERROR: %w", err)
	}
	out, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("JSON_MARSHAL_ERROR: %w", err)
	}
	return string(out), nil
}

// Decode tries multiple parsing strategies for a CLI input document.
// Order of attempts:
// 1. Strict JSON
// 2. Hjson
// 3. JSON repair (only when lenient)
//
// Every strategy ends in a strict decode so that a misspelled field is an
// error rather than a silently zero assumption. Each attempt decodes into a
// fresh value; v is only written by the attempt that succeeds.
func Decode(data []byte, v interface{}, lenient bool) (Format, error) {
	// Try 1: Standard JSON
	strictErr := decodeInto(data, v)
	if strictErr == nil {
		return FormatJSON, nil
	}

	// Try 2: Hjson
	if converted, err := ParseHJSON(string(data)); err == nil {
		if err := decodeInto([]byte(converted), v); err == nil {
			return FormatHJSON, nil
		} else if !lenient {
			return "", err
		}
	}

	// Try 3: Repair
	if lenient {
		repaired, err := RepairJSON(string(data))
		if err == nil {
			if err := decodeInto([]byte(repaired), v); err == nil {
				return FormatRepaired, nil
			}
		}
	}

	return "", fmt.Errorf("%w: %v", ErrUndecodable, strictErr)
}

// decodeInto strict-decodes into a zero value of v's element type and copies
// it into v on success, so a failed attempt leaves no partial fields behind.
func decodeInto(data []byte, v interface{}) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return DecodeStrict(data, v)
	}
	fresh := reflect.New(rv.Elem().Type())
	if err := DecodeStrict(data, fresh.Interface()); err != nil {
		return err
	}
	rv.Elem().Set(fresh.Elem())
	return nil
}
