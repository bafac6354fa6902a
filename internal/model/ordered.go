package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// OrderedMap is a string-keyed map that remembers insertion order. The
// dataset relies on JSON object key order for tab order and for "first"
// group/day defaults, which a plain Go map cannot carry.
type OrderedMap[V any] struct {
	keys   []string
	values map[string]V
}

// Set inserts or replaces key. A replaced key keeps its original position.
func (m *OrderedMap[V]) Set(key string, v V) {
	if m.values == nil {
		m.values = make(map[string]V)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

func (m OrderedMap[V]) Get(key string) (V, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m OrderedMap[V]) Has(key string) bool {
	_, ok := m.values[key]
	return ok
}

// Keys returns a copy of the keys in insertion order.
func (m OrderedMap[V]) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

func (m OrderedMap[V]) Len() int { return len(m.keys) }

// UnmarshalJSON decodes a JSON object, preserving key order.
func (m *OrderedMap[V]) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return errors.New("ordered map: invalid JSON")
	}
	res := gjson.ParseBytes(data)
	if res.Type == gjson.Null {
		*m = OrderedMap[V]{}
		return nil
	}
	if !res.IsObject() {
		return fmt.Errorf("ordered map: expected object, got %s", res.Type)
	}

	var (
		out OrderedMap[V]
		err error
	)
	res.ForEach(func(key, value gjson.Result) bool {
		var v V
		if uerr := json.Unmarshal([]byte(value.Raw), &v); uerr != nil {
			err = fmt.Errorf("key %q: %w", key.String(), uerr)
			return false
		}
		out.Set(key.String(), v)
		return true
	})
	if err != nil {
		return err
	}
	*m = out
	return nil
}

// MarshalJSON encodes the map as a JSON object in key order.
func (m OrderedMap[V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
