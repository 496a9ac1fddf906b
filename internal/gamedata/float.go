package gamedata

import (
	"encoding/json"
	"math"
)

// Float is a float64 whose JSON form is null when the value is NaN or
// infinite. Missing numeric data defaults to NaN, which encoding/json
// refuses to write as a number.
type Float float64

// NaN is the default for absent Float fields.
func NaN() Float { return Float(math.NaN()) }

func (f Float) IsNaN() bool { return math.IsNaN(float64(f)) }

func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

func (f *Float) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = NaN()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Float(v)
	return nil
}
