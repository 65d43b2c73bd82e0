package paragraph

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Optional holds a value that may be absent. The zero value is unset, which
// is distinct from being set to the zero value of T.
type Optional[T any] struct {
	value T
	set   bool
}

// Some returns an Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

// None returns an unset Optional.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and whether it is set.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set
}

// IsSet reports whether a value is present.
func (o Optional[T]) IsSet() bool {
	return o.set
}

// ValueOr returns the value, or def when unset.
func (o Optional[T]) ValueOr(def T) T {
	if !o.set {
		return def
	}
	return o.value
}

// Set stores v.
func (o *Optional[T]) Set(v T) {
	o.value = v
	o.set = true
}

// Unset clears the value.
func (o *Optional[T]) Unset() {
	var zero T
	o.value = zero
	o.set = false
}

// IsZero lets encoding/json omit unset fields tagged omitzero.
func (o Optional[T]) IsZero() bool {
	return !o.set
}

func (o Optional[T]) String() string {
	if !o.set {
		return "null"
	}
	return fmt.Sprint(o.value)
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.set {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Unset()
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Set(v)
	return nil
}
