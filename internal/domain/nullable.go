package domain

import "encoding/json"

// NullableString distinguishes an absent JSON field from an explicit null.
// Set is true when the field appeared in the payload at all; Value is nil
// when the field was an explicit null.
type NullableString struct {
	Set   bool
	Value *string
}

// UnmarshalJSON is only invoked for fields present in the payload, so Set
// flips to true for both string values and explicit nulls.
func (n *NullableString) UnmarshalJSON(data []byte) error {
	n.Set = true
	if string(data) == "null" {
		n.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	n.Value = &s
	return nil
}

// MarshalJSON renders the value, or null when unset or explicitly null.
func (n NullableString) MarshalJSON() ([]byte, error) {
	if n.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*n.Value)
}
