// api/models/optional.go
package models

import "encoding/json"

// OptionalID is a nullable id field that remembers whether it appeared in the
// request body at all. An absent field leaves the column untouched, an
// explicit null clears it.
type OptionalID struct {
	Set   bool
	Valid bool
	Value int64
}

// UnmarshalJSON records presence before decoding, so `null` and a missing
// field stay distinguishable.
func (o *OptionalID) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Valid = false
		return nil
	}
	if err := json.Unmarshal(data, &o.Value); err != nil {
		return err
	}
	o.Valid = true
	return nil
}

// MarshalJSON writes the id, or null when the field was cleared.
func (o OptionalID) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// IsZero reports whether the field was absent, so omitzero can skip it.
func (o OptionalID) IsZero() bool { return !o.Set }

// Ptr returns the value as a nullable pointer, nil when the field was null.
func (o OptionalID) Ptr() *int64 {
	if !o.Valid {
		return nil
	}
	v := o.Value
	return &v
}
