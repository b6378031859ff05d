package grid

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Summary describes the value range of a field. Min, Max, and Mean are taken
// over finite cells only and are NaN when there are none.
type Summary struct {
	Cells     int
	NonFinite int
	Min       float64
	Max       float64
	Mean      float64
}

// Summarize scans f once and reports its finite range and non-finite count.
func Summarize(f *Field) (Summary, error) {
	if err := live(f); err != nil {
		return Summary{}, err
	}
	finite := make([]float64, 0, len(f.data.Elements))
	for _, v := range f.data.Elements {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		finite = append(finite, v)
	}

	s := Summary{
		Cells:     len(f.data.Elements),
		NonFinite: len(f.data.Elements) - len(finite),
		Min:       math.NaN(),
		Max:       math.NaN(),
		Mean:      math.NaN(),
	}
	if len(finite) > 0 {
		s.Min = floats.Min(finite)
		s.Max = floats.Max(finite)
		s.Mean = floats.Sum(finite) / float64(len(finite))
	}
	return s, nil
}
