package domain

import (
	"bytes"
	"encoding/json"
)

// Optional carries a value together with an explicit presence marker, so a
// JSON key that was omitted can be told apart from one sent as null or as the
// zero value.
type Optional[T any] struct {
	Value T
	Set   bool
}

// Some returns a present Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

// UnmarshalJSON marks the value as present. encoding/json only calls it when
// the key exists in the object, including when the value is null.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	var v T
	if !bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
	}
	o.Value = v
	o.Set = true
	return nil
}

// MarshalJSON encodes the held value, or null when absent.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Set {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}
