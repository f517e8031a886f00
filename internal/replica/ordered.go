package replica

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// Ordered is a JSON object that keeps its keys in document order. New keys
// are appended; overwriting a key keeps its position.
type Ordered[V any] struct {
	keys []string
	vals map[string]V
}

func (o *Ordered[V]) Get(key string) (V, bool) {
	v, ok := o.vals[key]
	return v, ok
}

func (o *Ordered[V]) Set(key string, v V) {
	if o.vals == nil {
		o.vals = map[string]V{}
	}
	if _, ok := o.vals[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = v
}

func (o *Ordered[V]) Delete(key string) {
	if _, ok := o.vals[key]; !ok {
		return
	}
	delete(o.vals, key)
	o.keys = slices.DeleteFunc(o.keys, func(k string) bool { return k == key })
	if len(o.keys) == 0 {
		o.keys = nil
	}
}

// Keys returns the keys in order. The slice is a copy.
func (o *Ordered[V]) Keys() []string {
	return slices.Clone(o.keys)
}

func (o *Ordered[V]) Len() int { return len(o.keys) }

func (o Ordered[V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encodeRaw(&buf, k); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := encodeRaw(&buf, o.vals[k]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// encodeRaw writes v without HTML escaping; the outer encoder decides that.
func encodeRaw(buf *bytes.Buffer, v any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	buf.Truncate(buf.Len() - 1)
	return nil
}

func (o *Ordered[V]) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	*o = Ordered[V]{}
	if tok == nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}
	o.vals = map[string]V{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key := tok.(string)
		var v V
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("%q: %w", key, err)
		}
		o.Set(key, v)
	}
	_, err = dec.Token()
	return err
}

func cloneOrdered[V any](o *Ordered[V], cloneVal func(V) V) *Ordered[V] {
	if o == nil {
		return nil
	}
	out := &Ordered[V]{keys: slices.Clone(o.keys)}
	if o.vals != nil {
		out.vals = make(map[string]V, len(o.vals))
		for k, v := range o.vals {
			out.vals[k] = cloneVal(v)
		}
	}
	return out
}

// child returns the value under key, creating an empty one at the end when absent.
func child[V any](o *Ordered[*V], key string) *V {
	if v, ok := o.Get(key); ok && v != nil {
		return v
	}
	v := new(V)
	o.Set(key, v)
	return v
}
