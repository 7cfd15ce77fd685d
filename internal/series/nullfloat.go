package series

import (
	"encoding/json"
	"math"
)

// NullFloat is an optional float64. It stands in for missing observations
// (unfilled window prefixes, zero-variance statistics) so that "missing" and
// "computed zero" can never be confused, and NaN never crosses an API
// boundary.
type NullFloat struct {
	Float64 float64
	Valid   bool
}

// Float wraps a concrete value.
func Float(v float64) NullFloat {
	return NullFloat{Float64: v, Valid: true}
}

// Null returns the missing value.
func Null() NullFloat {
	return NullFloat{}
}

// FloatOrNull wraps v, mapping NaN and infinities to missing.
func FloatOrNull(v float64) NullFloat {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Null()
	}
	return Float(v)
}

// MarshalJSON encodes a missing value as null.
func (n NullFloat) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Float64)
}

// UnmarshalJSON decodes null as missing.
func (n *NullFloat) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*n = Null()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = Float(v)
	return nil
}
