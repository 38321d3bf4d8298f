package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Ratio is a derived metric such as ROAS or CTR. A zero denominator yields an
// undefined ratio (NaN), which encodes as JSON null and prints as "-".
type Ratio float64

func Undefined() Ratio { return Ratio(math.NaN()) }

// Div returns num/den, or an undefined ratio when den is zero.
func Div(num, den float64) Ratio {
	if den == 0 {
		return Undefined()
	}
	return Ratio(num / den)
}

func (r Ratio) Defined() bool {
	f := float64(r)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func (r Ratio) String() string {
	if !r.Defined() {
		return "-"
	}
	return strconv.FormatFloat(float64(r), 'f', 4, 64)
}

func (r Ratio) MarshalJSON() ([]byte, error) {
	if !r.Defined() {
		return []byte("null"), nil
	}
	return json.Marshal(float64(r))
}

func (r *Ratio) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*r = Undefined()
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*r = Ratio(f)
	return nil
}
