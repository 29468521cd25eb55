package format

import (
	"fmt"
	"strconv"
)

// ValueKind categorizes the shape of a decoded value.
type ValueKind int

const (
	KindScalar ValueKind = iota
	KindMapping
	KindSequence
)

func (k ValueKind) String() string {
	switch k {
	case KindMapping:
		return "mapping"
	case KindSequence:
		return "sequence"
	default:
		return "scalar"
	}
}

// Value is one decoded element of a structured document.
type Value struct {
	Key   string // Mapping key, or the index for sequence items
	Kind  ValueKind
	Tag   string // YAML short tag, e.g. !!int
	Text  string // Scalar text; empty for containers
	Items []*Value
}

// NewScalar creates a scalar value. An empty tag lets the encoder infer one.
func NewScalar(key, text string) *Value {
	return &Value{Key: key, Kind: KindScalar, Text: text}
}

// NewMapping creates an empty mapping value.
func NewMapping(key string) *Value {
	return &Value{Key: key, Kind: KindMapping, Tag: "!!map"}
}

// NewSequence creates an empty sequence value.
func NewSequence(key string) *Value {
	return &Value{Key: key, Kind: KindSequence, Tag: "!!seq"}
}

// IsContainer reports whether the value can hold items.
func (v *Value) IsContainer() bool {
	return v != nil && (v.Kind == KindMapping || v.Kind == KindSequence)
}

// IndexOfKey returns the position of the item with the given key, or -1.
func (v *Value) IndexOfKey(key string) int {
	for i, item := range v.Items {
		if item.Key == key {
			return i
		}
	}
	return -1
}

// Get returns the direct item with the given key.
func (v *Value) Get(key string) (*Value, bool) {
	if i := v.IndexOfKey(key); i >= 0 {
		return v.Items[i], true
	}
	return nil, false
}

// Lookup walks a key path from this value.
func (v *Value) Lookup(keys []string) (*Value, bool) {
	cur := v
	for _, k := range keys {
		next, ok := cur.Get(k)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// Insert places item at index. Sequence keys are renumbered afterwards.
func (v *Value) Insert(index int, item *Value) error {
	if !v.IsContainer() {
		return fmt.Errorf("insert into %s value %q", v.Kind, v.Key)
	}
	if index < 0 || index > len(v.Items) {
		return fmt.Errorf("insert index %d out of range [0,%d]", index, len(v.Items))
	}
	v.Items = append(v.Items, nil)
	copy(v.Items[index+1:], v.Items[index:])
	v.Items[index] = item
	v.renumber()
	return nil
}

// RemoveAt removes and returns the item at index.
func (v *Value) RemoveAt(index int) (*Value, error) {
	if index < 0 || index >= len(v.Items) {
		return nil, fmt.Errorf("remove index %d out of range [0,%d)", index, len(v.Items))
	}
	item := v.Items[index]
	v.Items = append(v.Items[:index], v.Items[index+1:]...)
	v.renumber()
	return item, nil
}

func (v *Value) renumber() {
	if v.Kind != KindSequence {
		return
	}
	for i, item := range v.Items {
		item.Key = strconv.Itoa(i)
	}
}

// Summary renders a short one-line description for listings.
func (v *Value) Summary() string {
	switch v.Kind {
	case KindMapping:
		return fmt.Sprintf("{%d entries}", len(v.Items))
	case KindSequence:
		return fmt.Sprintf("[%d items]", len(v.Items))
	default:
		return v.Text
	}
}

// Clone returns a deep copy.
func (v *Value) Clone() *Value {
	if v == nil {
		return nil
	}
	c := *v
	if v.Items != nil {
		c.Items = make([]*Value, len(v.Items))
		for i, item := range v.Items {
			c.Items[i] = item.Clone()
		}
	}
	return &c
}

// Equal reports whether two values have the same key, shape and content.
func Equal(a, b *Value) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Key != b.Key || a.Kind != b.Kind || a.Tag != b.Tag || a.Text != b.Text || len(a.Items) != len(b.Items) {
		return false
	}
	for i := range a.Items {
		if !Equal(a.Items[i], b.Items[i]) {
			return false
		}
	}
	return true
}
