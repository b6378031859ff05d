package domain

import (
	"fmt"
	"math"

	"github.com/couchcryptid/fire-weather-etl/internal/grid"
)

// Variable names of the derived indices.
const (
	VarDPD      = "dpd"
	VarDWI      = "dwi"
	VarPFFDI    = "p_ffdi"
	VarFauxFFDI = "faux_ffdi"
)

// AllIndices lists every index in dependency order.
var AllIndices = []string{VarDPD, VarDWI, VarPFFDI, VarFauxFFDI}

// pseudoFFDIScale maps the dry-windy index onto FFDI for a reference fire
// event and the historical mean February humidity at Melbourne Airport.
const pseudoFFDIScale = 50.0 / 3.0

// DewpointDepression computes T minus the Magnus-formula dewpoint from
// temperature (degC) and relative humidity (%). RH = 0 produces NaN rather
// than an error. It takes ownership of temp and rh.
func DewpointDepression(s Scenario, temp, rh *grid.Field) (*grid.Dataset, error) {
	defer grid.Release(temp, rh)

	attrs, err := newAttrs(VarDPD,
		"afternoon dewpoint depression computed from tasmax and hursmin",
		"degC", "dewpoint depression", s)
	if err != nil {
		return nil, err
	}
	dpd, err := grid.Apply2(temp, rh, dewpointDepression)
	if err != nil {
		return nil, fmt.Errorf("dewpoint depression: %w", err)
	}
	dpd.Attrs = attrs
	return grid.NewDataset(VarDPD, dpd), nil
}

func dewpointDepression(t, rh float64) float64 {
	gamma := math.Log(rh/100) + 17.67*t/(243.5+t)
	return t - 243.5*gamma/(17.67-gamma)
}

// DryWindyIndex combines dewpoint depression with wind speed (km/h) through
// the calibration constants: (dpd + A)/B * (W + C)/D. It takes ownership of
// temp, rh and wind.
func DryWindyIndex(s Scenario, temp, rh, wind *grid.Field, cal Calibration) (*grid.Dataset, error) {
	defer grid.Release(temp, rh, wind)

	attrs, err := newAttrs(VarDWI,
		"afternoon dry-windy index computed from tasmax, hursmin, maximum wind speed, and the tuned constants",
		"km h-1", "Dry-windy index", s)
	if err != nil {
		return nil, err
	}
	dpd, err := DewpointDepression(s, temp, rh)
	if err != nil {
		return nil, err
	}
	defer dpd.Release()

	dwi, err := grid.Apply2(dpd.Field, wind, cal.dryWindy)
	if err != nil {
		return nil, fmt.Errorf("dry-windy index: %w", err)
	}
	dwi.Attrs = attrs
	return grid.NewDataset(VarDWI, dwi), nil
}

func (c Calibration) dryWindy(dpd, w float64) float64 {
	return (dpd + c.A) / c.B * (w + c.C) / c.D
}

// PseudoFFDI rescales the dry-windy index by 50/3 to approximate FFDI. The
// result is dimensionless and carries no units. It takes ownership of dwi.
func PseudoFFDI(s Scenario, dwi *grid.Field) (*grid.Dataset, error) {
	defer grid.Release(dwi)

	attrs, err := newAttrs(VarPFFDI,
		"Psudo FFDI computed from tasmax, hursmin, maximum wind speed, and the tuned constants",
		"", VarPFFDI, s)
	if err != nil {
		return nil, err
	}
	p, err := grid.Scale(dwi, pseudoFFDIScale)
	if err != nil {
		return nil, fmt.Errorf("pseudo FFDI: %w", err)
	}
	p.Attrs = attrs
	return grid.NewDataset(VarPFFDI, p), nil
}

// FauxFFDI folds temperature back into the dry-windy index:
// (T + 12) * dwi / 2. The result carries no units. It takes ownership of dwi
// and temp.
func FauxFFDI(s Scenario, dwi, temp *grid.Field) (*grid.Dataset, error) {
	defer grid.Release(dwi, temp)

	attrs, err := newAttrs(VarFauxFFDI,
		"Faux FFDI computed from tasmax, hursmin, maximum wind speed, and the tuned constants",
		"", VarFauxFFDI, s)
	if err != nil {
		return nil, err
	}
	shifted, err := grid.AddConst(temp, 12)
	if err != nil {
		return nil, fmt.Errorf("faux FFDI: %w", err)
	}
	product, err := grid.Mul(shifted, dwi)
	if err != nil {
		return nil, fmt.Errorf("faux FFDI: %w", err)
	}
	// Halving is a power-of-two scale, so it matches x/2 bit for bit.
	faux, err := grid.Scale(product, 0.5)
	if err != nil {
		return nil, fmt.Errorf("faux FFDI: %w", err)
	}
	faux.Attrs = attrs
	return grid.NewDataset(VarFauxFFDI, faux), nil
}
