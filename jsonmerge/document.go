package jsonmerge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/Ironwood-Cyber/decorator-demo/errors"
)

// Document is a decoded JSON object.
type Document = map[string]any

// Parse decodes data as a single JSON object. Empty input, trailing data and
// non-object values are rejected with errors.ErrInvalidData.
func Parse(data []byte) (Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty document: %w", errors.ErrInvalidData)
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrParsingFailed, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("trailing data after document: %w", errors.ErrInvalidData)
	}

	doc, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("document is %T, not an object: %w", v, errors.ErrInvalidData)
	}
	return doc, nil
}

// IsNull reports whether data is empty or the JSON literal null.
func IsNull(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// Clone returns a deep copy of a decoded JSON value.
func Clone(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return CloneDocument(val)
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = Clone(elem)
		}
		return out
	default:
		// strings, json.Number, float64, bool and nil are immutable
		return val
	}
}

// CloneDocument returns a deep copy of doc. A nil doc yields an empty document.
func CloneDocument(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = Clone(v)
	}
	return out
}

// Int64 interprets a decoded JSON value as an integer. Integral floats such as
// 1.0 and numeric strings are accepted; fractional or non-numeric values are not.
func Int64(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return integral(f)
	case float64:
		return integral(n)
	case int:
		return int64(n), true
	case int64:
		return n, true
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}

func integral(f float64) (int64, bool) {
	if math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) ||
		f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}
