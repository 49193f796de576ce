package models

import (
	"bytes"
	"encoding/json"
)

// Optional carries a field of a partial update. The zero value means the
// field was omitted; a set Optional holds either a value or an explicit null.
type Optional[T any] struct {
	set   bool
	value *T
}

// Some returns an Optional set to v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{set: true, value: &v}
}

// Null returns an Optional explicitly set to no value.
func Null[T any]() Optional[T] {
	return Optional[T]{set: true}
}

// IsSet reports whether the field was present in the update.
func (o Optional[T]) IsSet() bool { return o.set }

// IsNull reports whether the field was present and explicitly empty.
func (o Optional[T]) IsNull() bool { return o.set && o.value == nil }

// Ptr returns a copy of the value, or nil when omitted or null.
func (o Optional[T]) Ptr() *T {
	if o.value == nil {
		return nil
	}
	v := *o.value
	return &v
}

// UnmarshalJSON marks the field present. A JSON null sets it to no value.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.value = &v
	return nil
}
