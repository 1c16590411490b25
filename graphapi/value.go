package graphapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindReference
	KindMapping
	KindList
)

func (k Kind) String() string {
	return []string{
		"null",
		"string",
		"number",
		"bool",
		"reference",
		"mapping",
		"list",
	}[k]
}

// Reference is a link to another node's output, stored in the prompt as [node_id, slot].
type Reference struct {
	NodeID string
	Slot   int
}

// Value is a decoded JSON value from a ComfyUI graph. Numbers keep their literal text so
// 8.0 stays "8.0", and objects keep their key order.
type Value struct {
	kind    Kind
	str     string
	b       bool
	ref     Reference
	mapping *Mapping
	list    []Value
}

func NullValue() Value { return Value{kind: KindNull} }

func StringValue(s string) Value { return Value{kind: KindString, str: s} }

func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

func IntValue(i int64) Value { return Value{kind: KindNumber, str: strconv.FormatInt(i, 10)} }

// NumberValue wraps a JSON number literal such as "7.5".
func NumberValue(literal string) Value { return Value{kind: KindNumber, str: literal} }

func MappingValue(m *Mapping) Value { return Value{kind: KindMapping, mapping: m} }

// ListValue wraps items. A two element list of (string or integer id, integer slot) is
// classified as a reference.
func ListValue(items []Value) Value {
	v := Value{kind: KindList, list: items}
	if ref, ok := asReference(items); ok {
		v.kind = KindReference
		v.ref = ref
	}
	return v
}

func ReferenceValue(nodeID string, slot int) Value {
	return ListValue([]Value{StringValue(nodeID), IntValue(int64(slot))})
}

func asReference(items []Value) (Reference, bool) {
	if len(items) != 2 {
		return Reference{}, false
	}
	var id string
	switch items[0].kind {
	case KindString:
		id = items[0].str
	case KindNumber:
		if _, err := strconv.ParseInt(items[0].str, 10, 64); err != nil {
			return Reference{}, false
		}
		id = items[0].str
	default:
		return Reference{}, false
	}
	if items[1].kind != KindNumber {
		return Reference{}, false
	}
	slot, err := strconv.Atoi(items[1].str)
	if err != nil {
		return Reference{}, false
	}
	return Reference{NodeID: id, Slot: slot}, true
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) IsReference() bool { return v.kind == KindReference }

func (v Value) Reference() (Reference, bool) {
	return v.ref, v.kind == KindReference
}

// AsString returns the string for string values only.
func (v Value) AsString() (string, bool) {
	return v.str, v.kind == KindString
}

func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBool
}

// AsInt returns an integer for numbers (fractions are truncated) and for strings that hold
// a plain base 10 integer.
func (v Value) AsInt() (int64, bool) {
	switch v.kind {
	case KindNumber:
		if i, err := strconv.ParseInt(v.str, 10, 64); err == nil {
			return i, true
		}
		if f, err := strconv.ParseFloat(v.str, 64); err == nil {
			return int64(f), true
		}
	case KindString:
		if i, err := strconv.ParseInt(strings.TrimSpace(v.str), 10, 64); err == nil {
			return i, true
		}
	}
	return 0, false
}

func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindNumber, KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
		return f, err == nil
	}
	return 0, false
}

func (v Value) Mapping() (*Mapping, bool) {
	return v.mapping, v.kind == KindMapping
}

// List returns the items of a list or reference.
func (v Value) List() ([]Value, bool) {
	return v.list, v.kind == KindList || v.kind == KindReference
}

// Interface converts the value into plain Go values (map[string]interface{}, []interface{},
// float64 or int64, string, bool, nil) for decoders that work on generic maps.
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		if i, err := strconv.ParseInt(v.str, 10, 64); err == nil {
			return i
		}
		f, _ := strconv.ParseFloat(v.str, 64)
		return f
	case KindBool:
		return v.b
	case KindMapping:
		out := make(map[string]interface{}, v.mapping.Len())
		for _, k := range v.mapping.Keys() {
			item, _ := v.mapping.Get(k)
			out[k] = item.Interface()
		}
		return out
	case KindList, KindReference:
		out := make([]interface{}, len(v.list))
		for i, item := range v.list {
			out[i] = item.Interface()
		}
		return out
	}
	return nil
}

// String renders the value as plain text. Strings are returned unquoted, containers as
// compact JSON.
func (v Value) String() string {
	switch v.kind {
	case KindString, KindNumber:
		return v.str
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNull:
		return "null"
	}
	b, err := v.MarshalJSON()
	if err != nil {
		return ""
	}
	return string(b)
}

func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) writeJSON(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindNumber:
		buf.WriteString(v.str)
	case KindString:
		return writeJSONString(buf, v.str)
	case KindMapping:
		return v.mapping.writeJSON(buf)
	case KindList, KindReference:
		buf.WriteByte('[')
		for i, item := range v.list {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		return fmt.Errorf("unknown value kind %d", v.kind)
	}
	return nil
}

func writeJSONString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	// Encode terminates with a newline
	buf.Truncate(buf.Len() - 1)
	return nil
}

func (v *Value) UnmarshalJSON(b []byte) error {
	parsed, err := ParseValue(b)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ParseValue strictly decodes a single JSON document, keeping object key order and number
// literals.
func ParseValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return Value{}, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return Value{}, errors.New("unexpected data after top-level value")
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			m := NewMapping()
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := kt.(string)
				if !ok {
					return Value{}, fmt.Errorf("unexpected object key %v", kt)
				}
				item, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				m.Set(key, item)
			}
			// closing brace
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return MappingValue(m), nil
		case '[':
			items := make([]Value, 0)
			for dec.More() {
				item, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return ListValue(items), nil
		}
		return Value{}, fmt.Errorf("unexpected delimiter %v", t)
	case string:
		return StringValue(t), nil
	case json.Number:
		return NumberValue(string(t)), nil
	case bool:
		return BoolValue(t), nil
	case nil:
		return NullValue(), nil
	}
	return Value{}, fmt.Errorf("unexpected token %v", tok)
}

// Mapping is a JSON object that remembers insertion order.
type Mapping struct {
	keys   []string
	values map[string]Value
}

func NewMapping() *Mapping {
	return &Mapping{values: make(map[string]Value)}
}

func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the keys in document order.
func (m *Mapping) Keys() []string {
	if m == nil {
		return nil
	}
	return m.keys
}

func (m *Mapping) Get(key string) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	v, ok := m.values[key]
	return v, ok
}

func (m *Mapping) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Set stores value under key. Replacing an existing key keeps its position.
func (m *Mapping) Set(key string, value Value) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

func (m *Mapping) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := m.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m *Mapping) writeJSON(buf *bytes.Buffer) error {
	buf.WriteByte('{')
	for i, k := range m.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSONString(buf, k); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := m.values[k].writeJSON(buf); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}
