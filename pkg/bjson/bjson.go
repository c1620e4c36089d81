// Package bjson converts between bencode values and JSON.
//
// Integers map to JSON numbers, lists to arrays and dictionaries to objects
// with keys in canonical order. Byte strings that are valid UTF-8 map to JSON
// strings; any other byte string maps to a marker object:
//
//	{"$base64": "AP8="}
//
// JSON has no counterpart for booleans, null or fractional numbers in
// bencode, so FromJSON rejects them with ErrUnsupportedJSON.
//
// A dictionary key spelled "$base64", optionally with more leading "$", is
// written with one extra "$" and read back without it. A real dictionary entry
// therefore never reads back as the byte string marker.
package bjson

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ssargent/bencodec/pkg/bencode"
)

// Base64Key marks an object holding raw bytes.
const Base64Key = "$base64"

var (
	ErrUnsupportedJSON = errors.New("bjson: unsupported json value")
	ErrUnrepresentable = errors.New("bjson: value has no json form")
)

// ToJSON converts v into plain Go values accepted by encoding/json.
func ToJSON(v bencode.Value) (any, error) {
	if err := bencode.CheckAcyclic(v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnrepresentable, err)
	}
	return toJSON(v)
}

func toJSON(v bencode.Value) (any, error) {
	switch v.Kind() {
	case bencode.KindInteger:
		n, _ := v.AsInteger()
		return n, nil
	case bencode.KindByteString:
		s, _ := v.AsByteString()
		if utf8.Valid(s) {
			return string(s), nil
		}
		return map[string]any{Base64Key: base64.StdEncoding.EncodeToString(s)}, nil
	case bencode.KindList:
		items, _ := v.AsList()
		out := make([]any, 0, len(items))
		for i, item := range items {
			j, err := toJSON(item)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out = append(out, j)
		}
		return out, nil
	case bencode.KindDictionary:
		d, _ := v.AsDictionary()
		out := make(map[string]any, d.Len())
		var rangeErr error
		d.Range(func(key string, e *bencode.Value) bool {
			if !utf8.ValidString(key) {
				rangeErr = fmt.Errorf("%w: dictionary key %x is not utf-8", ErrUnrepresentable, key)
				return false
			}
			j, err := toJSON(*e)
			if err != nil {
				rangeErr = fmt.Errorf("key %q: %w", key, err)
				return false
			}
			out[escapeKey(key)] = j
			return true
		})
		if rangeErr != nil {
			return nil, rangeErr
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: empty value", ErrUnrepresentable)
	}
}

// Marshal returns the JSON text for v. encoding/json writes object keys in
// sorted order, which matches the canonical bencode key order.
func Marshal(v bencode.Value) ([]byte, error) {
	j, err := ToJSON(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(j)
}

func MarshalIndent(v bencode.Value, prefix, indent string) ([]byte, error) {
	j, err := ToJSON(v)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(j, prefix, indent)
}

// FromJSON parses a single JSON document into a bencode value.
func FromJSON(data []byte) (bencode.Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var x any
	if err := dec.Decode(&x); err != nil {
		return bencode.Value{}, fmt.Errorf("invalid json: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return bencode.Value{}, fmt.Errorf("invalid json: trailing data after document")
	}
	return FromAny(x)
}

// FromAny converts the output of encoding/json (with or without UseNumber)
// into a bencode value.
func FromAny(x any) (bencode.Value, error) {
	switch t := x.(type) {
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return bencode.Value{}, fmt.Errorf("%w: number %s is not a 64-bit integer", ErrUnsupportedJSON, t)
		}
		return bencode.NewInteger(n), nil
	case float64:
		n := int64(t)
		if float64(n) != t {
			return bencode.Value{}, fmt.Errorf("%w: number %v is not an integer", ErrUnsupportedJSON, t)
		}
		return bencode.NewInteger(n), nil
	case int64:
		return bencode.NewInteger(t), nil
	case int:
		return bencode.NewInteger(int64(t)), nil
	case string:
		return bencode.NewString(t), nil
	case []any:
		out := bencode.NewList()
		for i, item := range t {
			v, err := FromAny(item)
			if err != nil {
				return bencode.Value{}, fmt.Errorf("index %d: %w", i, err)
			}
			_ = out.Append(v)
		}
		return out, nil
	case map[string]any:
		if raw, ok := base64Marker(t); ok {
			b, err := base64.StdEncoding.DecodeString(raw)
			if err != nil {
				return bencode.Value{}, fmt.Errorf("%w: bad %s payload: %v", ErrUnsupportedJSON, Base64Key, err)
			}
			return bencode.NewByteString(b), nil
		}
		out := bencode.NewDictionary()
		for k, item := range t {
			v, err := FromAny(item)
			if err != nil {
				return bencode.Value{}, fmt.Errorf("key %q: %w", k, err)
			}
			_ = out.Set(unescapeKey(k), v)
		}
		return out, nil
	case nil:
		return bencode.Value{}, fmt.Errorf("%w: null", ErrUnsupportedJSON)
	case bool:
		return bencode.Value{}, fmt.Errorf("%w: boolean", ErrUnsupportedJSON)
	default:
		return bencode.Value{}, fmt.Errorf("%w: %T", ErrUnsupportedJSON, x)
	}
}

func base64Marker(m map[string]any) (string, bool) {
	if len(m) != 1 {
		return "", false
	}
	s, ok := m[Base64Key].(string)
	return s, ok
}

func isMarkerKey(k string) bool {
	return strings.HasSuffix(k, Base64Key) && strings.Trim(k[:len(k)-len(Base64Key)], "$") == ""
}

func escapeKey(k string) string {
	if isMarkerKey(k) {
		return "$" + k
	}
	return k
}

func unescapeKey(k string) string {
	if isMarkerKey(k) && len(k) > len(Base64Key) {
		return k[1:]
	}
	return k
}
