package grid

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Values is a float64 slice whose JSON form spells non-finite cells as the
// strings "NaN", "Infinity" and "-Infinity" (the proto3 JSON mapping). A
// JSON null decodes to NaN.
type Values []float64

// MarshalJSON implements json.Marshaler.
func (v Values) MarshalJSON() ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	b := make([]byte, 0, 2+8*len(v))
	b = append(b, '[')
	for i, x := range v {
		if i > 0 {
			b = append(b, ',')
		}
		switch {
		case math.IsNaN(x):
			b = append(b, `"NaN"`...)
		case math.IsInf(x, 1):
			b = append(b, `"Infinity"`...)
		case math.IsInf(x, -1):
			b = append(b, `"-Infinity"`...)
		default:
			b = strconv.AppendFloat(b, x, 'g', -1, 64)
		}
	}
	return append(b, ']'), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Values) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*v = nil
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Values, len(raw))
	for i, r := range raw {
		x, err := parseValue(r)
		if err != nil {
			return fmt.Errorf("value %d: %w", i, err)
		}
		out[i] = x
	}
	*v = out
	return nil
}

func parseValue(r json.RawMessage) (float64, error) {
	r = bytes.TrimSpace(r)
	if bytes.Equal(r, []byte("null")) {
		return math.NaN(), nil
	}
	if len(r) > 0 && r[0] == '"' {
		var s string
		if err := json.Unmarshal(r, &s); err != nil {
			return 0, err
		}
		switch s {
		case "NaN":
			return math.NaN(), nil
		case "Infinity":
			return math.Inf(1), nil
		case "-Infinity":
			return math.Inf(-1), nil
		}
		return 0, fmt.Errorf("unexpected string %q", s)
	}
	return strconv.ParseFloat(string(r), 64)
}

type fieldJSON struct {
	Dims   []string          `json:"dims"`
	Shape  []int             `json:"shape"`
	Coords map[string]Values `json:"coords,omitempty"`
	Values Values            `json:"values"`
	Attrs  Attrs             `json:"attrs,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (f *Field) MarshalJSON() ([]byte, error) {
	if err := live(f); err != nil {
		return nil, err
	}
	return json.Marshal(f.toJSON())
}

func (f *Field) toJSON() fieldJSON {
	fj := fieldJSON{
		Dims:   f.Dims,
		Shape:  f.data.Shape,
		Values: f.data.Elements,
		Attrs:  f.Attrs,
	}
	if fj.Dims == nil {
		fj.Dims = []string{}
	}
	if fj.Shape == nil {
		fj.Shape = []int{}
	}
	if len(f.Coords) > 0 {
		fj.Coords = make(map[string]Values, len(f.Coords))
		for k, c := range f.Coords {
			fj.Coords[k] = c
		}
	}
	return fj
}

// UnmarshalJSON implements json.Unmarshaler. The decoded field is validated
// the same way New validates its arguments.
func (f *Field) UnmarshalJSON(data []byte) error {
	var fj fieldJSON
	if err := json.Unmarshal(data, &fj); err != nil {
		return err
	}
	decoded, err := New(fj.Dims, fj.Shape, fj.Values)
	if err != nil {
		return err
	}
	for dim, c := range fj.Coords {
		if err := decoded.SetCoords(dim, c); err != nil {
			return err
		}
	}
	decoded.Attrs = fj.Attrs
	*f = *decoded
	return nil
}

type datasetJSON struct {
	Name string `json:"name"`
	fieldJSON
}

// MarshalJSON implements json.Marshaler, flattening the field next to the
// variable name.
func (d *Dataset) MarshalJSON() ([]byte, error) {
	if err := live(d.Field); err != nil {
		return nil, fmt.Errorf("encode dataset %q: %w", d.Name, err)
	}
	return json.Marshal(datasetJSON{Name: d.Name, fieldJSON: d.Field.toJSON()})
}
