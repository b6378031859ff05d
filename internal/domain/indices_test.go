package domain

import (
	"math"
	"testing"

	"github.com/couchcryptid/fire-weather-etl/internal/grid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testScenario    = Scenario{GWL: "1.5"}
	testCalibration = Calibration{A: 2, B: 4, C: 5, D: 10}
)

func field(t *testing.T, values ...float64) *grid.Field {
	t.Helper()
	f, err := grid.New([]string{"lat", "lon"}, []int{1, len(values)}, values)
	require.NoError(t, err)
	return f
}

func TestDewpointDepression(t *testing.T) {
	tests := []struct {
		name string
		temp float64
		rh   float64
		want float64
	}{
		{"hot and dry", 30, 20, 25.38350980110211},
		{"warm and humid", 25, 50, 11.132382949739656},
		{"very dry", 40, 10, 37.34570443784784},
		{"mild", 15, 80, 3.419686664001599},
		{"saturated", 30, 100, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ds, err := DewpointDepression(testScenario, field(t, tc.temp), field(t, tc.rh))
			require.NoError(t, err)

			got := ds.Field.Values()[0]
			assert.False(t, math.IsNaN(got) || math.IsInf(got, 0))
			assert.InDelta(t, tc.want, got, 1e-9)
			assert.Equal(t, "degC", ds.Field.Attrs[AttrUnits])
		})
	}
}

func TestDewpointDepression_Grid(t *testing.T) {
	ds, err := DewpointDepression(testScenario, field(t, 30, 25, 40), field(t, 20, 50, 10))
	require.NoError(t, err)

	assert.Equal(t, VarDPD, ds.Name)
	assert.Equal(t, []string{"lat", "lon"}, ds.Field.Dims)
	assert.Equal(t, []int{1, 3}, ds.Field.Shape())
	for i, want := range []float64{25.38350980110211, 11.132382949739656, 37.34570443784784} {
		assert.InDelta(t, want, ds.Field.Values()[i], 1e-9)
	}
}

func TestDewpointDepression_ZeroHumidityIsNonFinite(t *testing.T) {
	ds, err := DewpointDepression(testScenario, field(t, 30), field(t, 0))
	require.NoError(t, err)

	got := ds.Field.Values()[0]
	assert.True(t, math.IsNaN(got) || math.IsInf(got, 0), "got %v", got)
}

func TestDewpointDepression_BroadcastsScalarHumidity(t *testing.T) {
	ds, err := DewpointDepression(testScenario, field(t, 30, 30), grid.Scalar(100))
	require.NoError(t, err)
	assert.InDelta(t, 0, ds.Field.Values()[0], 1e-9)
	assert.InDelta(t, 0, ds.Field.Values()[1], 1e-9)
}

func TestDewpointDepression_ReleasesInputs(t *testing.T) {
	temp, rh := field(t, 30), field(t, 20)
	var released []string
	temp.OnRelease(func() { released = append(released, "temp") })
	rh.OnRelease(func() { released = append(released, "rh") })

	_, err := DewpointDepression(testScenario, temp, rh)
	require.NoError(t, err)

	assert.True(t, temp.Released())
	assert.True(t, rh.Released())
	assert.ElementsMatch(t, []string{"temp", "rh"}, released)
}

func TestDewpointDepression_MissingContext(t *testing.T) {
	temp, rh := field(t, 30), field(t, 20)

	ds, err := DewpointDepression(Scenario{}, temp, rh)
	require.ErrorIs(t, err, ErrMissingContext)
	assert.Nil(t, ds)
	assert.True(t, temp.Released(), "inputs are released on error paths too")
	assert.True(t, rh.Released())
}

func TestDryWindyIndex(t *testing.T) {
	temps := []float64{30, 25, 40}
	rhs := []float64{20, 50, 10}
	winds := []float64{40, 15, 60}

	ds, err := DryWindyIndex(testScenario, field(t, temps...), field(t, rhs...), field(t, winds...), testCalibration)
	require.NoError(t, err)
	assert.Equal(t, VarDWI, ds.Name)
	assert.Equal(t, "km h-1", ds.Field.Attrs[AttrUnits])

	for i := range temps {
		want := (dewpointDepression(temps[i], rhs[i]) + testCalibration.A) / testCalibration.B *
			(winds[i] + testCalibration.C) / testCalibration.D
		assert.InDelta(t, want, ds.Field.Values()[i], 1e-12)
	}
	assert.InDelta(t, 30.806448526239876, ds.Field.Values()[0], 1e-9)
}

func TestDryWindyIndex_ReleasesInputsOnce(t *testing.T) {
	temp, rh, wind := field(t, 30), field(t, 20), field(t, 40)
	calls := map[string]int{}
	temp.OnRelease(func() { calls["temp"]++ })
	rh.OnRelease(func() { calls["rh"]++ })
	wind.OnRelease(func() { calls["wind"]++ })

	_, err := DryWindyIndex(testScenario, temp, rh, wind, testCalibration)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"temp": 1, "rh": 1, "wind": 1}, calls)
}

func TestDryWindyIndex_ZeroCalibrationDivisor(t *testing.T) {
	cal := Calibration{A: 2, B: 0, C: 5, D: 10}
	ds, err := DryWindyIndex(testScenario, field(t, 30), field(t, 20), field(t, 40), cal)
	require.NoError(t, err)
	assert.True(t, math.IsInf(ds.Field.Values()[0], 1))
}

func TestDryWindyIndex_WindOnDifferentGrid(t *testing.T) {
	wind, err := grid.New([]string{"lat", "lon"}, []int{2, 1}, []float64{40, 15})
	require.NoError(t, err)

	ds, err := DryWindyIndex(testScenario, field(t, 30), field(t, 20), wind, testCalibration)
	require.ErrorIs(t, err, grid.ErrShapeMismatch)
	assert.Nil(t, ds)
	assert.True(t, wind.Released())
}

func TestDryWindyIndex_WindOnDifferentCoordinates(t *testing.T) {
	temp, rh, wind := field(t, 30, 25), field(t, 20, 50), field(t, 40, 15)
	require.NoError(t, temp.SetCoords("lon", []float64{144.5, 145}))
	require.NoError(t, wind.SetCoords("lon", []float64{150.5, 151}))

	_, err := DryWindyIndex(testScenario, temp, rh, wind, testCalibration)
	require.ErrorIs(t, err, grid.ErrShapeMismatch)
}

func TestPseudoFFDI(t *testing.T) {
	dwi := field(t, 3, 0, 6)
	ds, err := PseudoFFDI(testScenario, dwi)
	require.NoError(t, err)

	assert.Equal(t, VarPFFDI, ds.Name)
	assert.InDelta(t, 50.0, ds.Field.Values()[0], 1e-12)
	assert.Equal(t, 0.0, ds.Field.Values()[1])
	assert.InDelta(t, 100.0, ds.Field.Values()[2], 1e-12)
	assert.NotContains(t, ds.Field.Attrs, AttrUnits)
	assert.True(t, dwi.Released())
}

func TestFauxFFDI(t *testing.T) {
	dwi, temp := field(t, 4, 1), field(t, 20, -12)
	ds, err := FauxFFDI(testScenario, dwi, temp)
	require.NoError(t, err)

	assert.Equal(t, VarFauxFFDI, ds.Name)
	assert.Equal(t, 64.0, ds.Field.Values()[0])
	assert.Equal(t, 0.0, ds.Field.Values()[1])
	assert.NotContains(t, ds.Field.Attrs, AttrUnits)
	assert.True(t, dwi.Released())
	assert.True(t, temp.Released())
}

func TestFauxFFDI_ShapeMismatch(t *testing.T) {
	_, err := FauxFFDI(testScenario, field(t, 4, 1), field(t, 20))
	require.ErrorIs(t, err, grid.ErrShapeMismatch)
}

func TestIndexChain(t *testing.T) {
	temp := field(t, 30)
	tempForFaux, err := temp.Clone()
	require.NoError(t, err)

	dwi, err := DryWindyIndex(testScenario, temp, field(t, 20), field(t, 40), testCalibration)
	require.NoError(t, err)
	dwiForPseudo, err := dwi.Field.Clone()
	require.NoError(t, err)

	p, err := PseudoFFDI(testScenario, dwiForPseudo)
	require.NoError(t, err)
	faux, err := FauxFFDI(testScenario, dwi.Field, tempForFaux)
	require.NoError(t, err)

	want := 30.806448526239876
	assert.InDelta(t, want*50/3, p.Field.Values()[0], 1e-9)
	assert.InDelta(t, (30+12)*want/2, faux.Field.Values()[0], 1e-9)
}

func TestMetadata(t *testing.T) {
	fixed := map[string]string{
		AttrProgram:              "Australian Climate Service (ACS)",
		AttrNamingAuthority:      "Bureau of Meteorology",
		AttrPublisherType:        "group",
		AttrPublisherInstitution: "Bureau of Meteorology",
		AttrPublisherName:        "Bureau of Meteorology",
		AttrPublisherURL:         "http://www.bom.gov.au",
		AttrCreatorType:          "institution",
		AttrCreatorInstitution:   "Bureau of Meteorology",
		AttrContact:              "Naomi Benger (naomi.benger@bom.gov.au)",
		AttrInstituteID:          "BOM",
		AttrInstitution:          "Bureau of Meteorology",
		AttrAcknowledgement:      "Development of data supported with funding from the Australian Climate Service.",
	}
	s := Scenario{GWL: "2.0"}

	compute := map[string]func() (*grid.Dataset, error){
		VarDPD: func() (*grid.Dataset, error) {
			return DewpointDepression(s, field(t, 30), field(t, 20))
		},
		VarDWI: func() (*grid.Dataset, error) {
			return DryWindyIndex(s, field(t, 30), field(t, 20), field(t, 40), testCalibration)
		},
		VarPFFDI: func() (*grid.Dataset, error) {
			return PseudoFFDI(s, field(t, 3))
		},
		VarFauxFFDI: func() (*grid.Dataset, error) {
			return FauxFFDI(s, field(t, 4), field(t, 20))
		},
	}

	tests := []struct {
		name     string
		longName string
		units    string
		summary  string
	}{
		{VarDPD, "afternoon dewpoint depression computed from tasmax and hursmin", "degC",
			"Fire weather metric: dewpoint depression for Global Warming Level 2.0 C"},
		{VarDWI, "afternoon dry-windy index computed from tasmax, hursmin, maximum wind speed, and the tuned constants", "km h-1",
			"Fire weather metric: Dry-windy index for Global Warming Level 2.0 C"},
		{VarPFFDI, "Psudo FFDI computed from tasmax, hursmin, maximum wind speed, and the tuned constants", "",
			"Fire weather metric: p_ffdi for Global Warming Level 2.0 C"},
		{VarFauxFFDI, "Faux FFDI computed from tasmax, hursmin, maximum wind speed, and the tuned constants", "",
			"Fire weather metric: faux_ffdi for Global Warming Level 2.0 C"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ds, err := compute[tc.name]()
			require.NoError(t, err)
			attrs := ds.Field.Attrs

			for k, v := range fixed {
				assert.Equal(t, v, attrs[k], k)
			}
			assert.Equal(t, tc.name, attrs[AttrStandardName])
			assert.Equal(t, tc.longName, attrs[AttrLongName])
			assert.Equal(t, tc.summary, attrs[AttrSummary])
			assert.Contains(t, attrs[AttrSummary], s.GWL)

			if tc.units == "" {
				assert.Len(t, attrs, 15)
				assert.NotContains(t, attrs, AttrUnits)
			} else {
				assert.Len(t, attrs, 16)
				assert.Equal(t, tc.units, attrs[AttrUnits])
			}
		})
	}
}

func TestMissingContext(t *testing.T) {
	_, err := DryWindyIndex(Scenario{GWL: "  "}, field(t, 30), field(t, 20), field(t, 40), testCalibration)
	require.ErrorIs(t, err, ErrMissingContext)
	_, err = PseudoFFDI(Scenario{}, field(t, 3))
	require.ErrorIs(t, err, ErrMissingContext)
	_, err = FauxFFDI(Scenario{}, field(t, 4), field(t, 20))
	require.ErrorIs(t, err, ErrMissingContext)
}
