package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Encode converts a typed record into a Document through its JSON form.
func Encode(v any) (Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return decodeRaw(raw)
}

// Decode fills out from doc through its JSON form.
func Decode(doc Document, out any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

func decodeRaw(raw []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

// StripBinary returns a copy of doc without any []byte values, at any depth.
func StripBinary(doc Document) Document {
	out, _ := stripBinary(map[string]any(doc)).(map[string]any)
	return Document(out)
}

func stripBinary(v any) any {
	switch t := v.(type) {
	case Document:
		return stripBinary(map[string]any(t))
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if _, isBin := val.([]byte); isBin {
				continue
			}
			out[k] = stripBinary(val)
		}
		return out
	case []any:
		out := make([]any, 0, len(t))
		for _, val := range t {
			if _, isBin := val.([]byte); isBin {
				continue
			}
			out = append(out, stripBinary(val))
		}
		return out
	default:
		return v
	}
}

// clone deep-copies a document so callers never share maps with a backend.
func clone(doc Document) Document {
	if doc == nil {
		return nil
	}
	out, _ := cloneValue(map[string]any(doc)).(map[string]any)
	return Document(out)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Document:
		return cloneValue(map[string]any(t))
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	case []byte:
		return append([]byte(nil), t...)
	default:
		return v
	}
}

// normalize turns a Go value into the shape it would have inside a Document.
func normalize(v any) (any, error) {
	switch t := v.(type) {
	case nil, string, bool, json.Number, []byte:
		return v, nil
	case decimal.Decimal:
		return json.Number(t.String()), nil
	case *decimal.Decimal:
		if t == nil {
			return nil, nil
		}
		return json.Number(t.String()), nil
	case Document:
		return normalize(map[string]any(t))
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			n, err := normalize(val)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			n, err := normalize(val)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// withID makes sure doc carries a key, generating one when needed.
func withID(coll Collection, doc Document) (Document, string, error) {
	out := Document{}
	for k, v := range doc {
		n, err := normalize(v)
		if err != nil {
			return nil, "", fmt.Errorf("field %q: %w", k, err)
		}
		out[k] = n
	}
	id := out.ID(coll)
	if id == "" {
		id = uuid.NewString()
		out[coll.IDField()] = id
	}
	return out, id, nil
}

// merge applies fields over doc, skipping the key field.
func merge(coll Collection, doc, fields Document) (Document, error) {
	out := clone(doc)
	for k, v := range fields {
		if k == coll.IDField() {
			continue
		}
		n, err := normalize(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		out[k] = n
	}
	return out, nil
}

// valuesEqual compares two document values. Numbers compare by exact
// decimal value so 10, 10.0 and json.Number("10.00") are all equal.
func valuesEqual(a, b any) bool {
	da, aNum := asDecimal(a)
	db, bNum := asDecimal(b)
	if aNum || bNum {
		return aNum && bNum && da.Equal(db)
	}
	return reflect.DeepEqual(a, b)
}

func asDecimal(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		return d, err == nil
	case decimal.Decimal:
		return t, true
	case int:
		return decimal.NewFromInt(int64(t)), true
	case int32:
		return decimal.NewFromInt(int64(t)), true
	case int64:
		return decimal.NewFromInt(t), true
	case float64:
		return decimal.NewFromFloat(t), true
	default:
		return decimal.Decimal{}, false
	}
}

// scalarString renders a scalar the way a backend compares it as text.
func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case decimal.Decimal:
		return t.String(), true
	default:
		return "", false
	}
}
