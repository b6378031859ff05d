// Command genmock turns a station-day CSV into the grid request and expected
// index fixtures used by the pipeline test suite. Expected values are worked
// out cell by cell from the closed-form index formulas, independently of the
// grid transforms they are checked against.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -csv data/mock/vic_stations.csv \
//	  -id vic-gwl15-2041-01 -gwl 1.5 -a 2 -b 4 -c 5 -d 10 \
//	  -request-out data/mock/grid_request_vic.json \
//	  -expected-out data/mock/grid_indices_vic.json
//
// The CSV needs the columns time, lat, lon, tasmax, hursmin and wsmax. Cells
// with no row are filled with NaN.
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/couchcryptid/fire-weather-etl/internal/domain"
	"github.com/couchcryptid/fire-weather-etl/internal/grid"
)

var gridDims = []string{"time", "lat", "lon"}

var inputColumns = []string{domain.VarTemperature, domain.VarHumidity, domain.VarWindSpeed}

type calibrationJSON struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
	C float64 `json:"c"`
	D float64 `json:"d"`
}

type expectedFixture struct {
	Calibration calibrationJSON        `json:"calibration"`
	GWL         string                 `json:"gwl"`
	Indices     map[string]grid.Values `json:"indices"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	csvPath := flag.String("csv", "", "station-day CSV with time, lat, lon, tasmax, hursmin, wsmax")
	id := flag.String("id", "", "grid request id")
	gwl := flag.String("gwl", "", "global warming level label")
	a := flag.Float64("a", 0, "dry-windy constant A")
	b := flag.Float64("b", 1, "dry-windy constant B")
	c := flag.Float64("c", 0, "dry-windy constant C")
	d := flag.Float64("d", 1, "dry-windy constant D")
	requestOut := flag.String("request-out", "", "output path for the grid request fixture")
	expectedOut := flag.String("expected-out", "", "output path for the expected indices fixture")
	flag.Parse()

	if *csvPath == "" || *id == "" || *gwl == "" || *requestOut == "" || *expectedOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -csv, -id, -gwl, -request-out, -expected-out")
	}

	f, err := os.Open(*csvPath)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	req, err := readGridRequest(f, *id)
	if err != nil {
		return fmt.Errorf("processing %s: %w", *csvPath, err)
	}
	defer req.Release()
	body, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return fmt.Errorf("encode grid request: %w", err)
	}

	cal := calibrationJSON{A: *a, B: *b, C: *c, D: *d}
	expected := expectedFixture{
		Calibration: cal,
		GWL:         *gwl,
		Indices:     make(map[string]grid.Values, len(domain.AllIndices)),
	}
	indices, err := expectedIndices(req, cal)
	if err != nil {
		return fmt.Errorf("compute indices: %w", err)
	}
	for _, name := range domain.AllIndices {
		field := indices[name]
		expected.Indices[name] = slices.Clone(field.Values())
		if err := printStats(name, field); err != nil {
			return err
		}
	}

	if err := writeFile(*requestOut, append(body, '\n')); err != nil {
		return fmt.Errorf("writing request fixture: %w", err)
	}
	log.Printf("wrote request fixture: %s", *requestOut)

	if err := writeJSON(*expectedOut, expected); err != nil {
		return fmt.Errorf("writing expected fixture: %w", err)
	}
	log.Printf("wrote expected fixture: %s", *expectedOut)
	return nil
}

// readGridRequest lays CSV rows out on a (time, lat, lon) grid spanning the
// distinct coordinate values found in the file.
func readGridRequest(r io.Reader, id string) (*domain.GridRequest, error) {
	rows, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("no data rows")
	}

	colIdx := map[string]int{}
	for i, h := range rows[0] {
		colIdx[strings.TrimSpace(h)] = i
	}
	for _, col := range append(slices.Clone(gridDims), inputColumns...) {
		if _, ok := colIdx[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	records := make([]map[string]float64, 0, len(rows)-1)
	coords := map[string][]float64{}
	for n, row := range rows[1:] {
		rec := make(map[string]float64, len(colIdx))
		for col, i := range colIdx {
			if i >= len(row) {
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
			if err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", n+2, col, err)
			}
			rec[col] = v
		}
		for _, dim := range gridDims {
			if !slices.Contains(coords[dim], rec[dim]) {
				coords[dim] = append(coords[dim], rec[dim])
			}
		}
		records = append(records, rec)
	}

	shape := make([]int, len(gridDims))
	for i, dim := range gridDims {
		slices.Sort(coords[dim])
		shape[i] = len(coords[dim])
	}

	req := &domain.GridRequest{
		ID:        id,
		Coords:    make(map[string]grid.Values, len(gridDims)),
		Variables: make(map[string]*grid.Field, len(inputColumns)),
	}
	for _, dim := range gridDims {
		req.Coords[dim] = coords[dim]
	}
	for _, col := range inputColumns {
		field, err := grid.Full(gridDims, shape, math.NaN())
		if err != nil {
			return nil, err
		}
		req.Variables[col] = field
	}
	for _, rec := range records {
		flat := 0
		for i, dim := range gridDims {
			pos, _ := slices.BinarySearch(coords[dim], rec[dim])
			flat = flat*shape[i] + pos
		}
		for _, col := range inputColumns {
			req.Variables[col].Values()[flat] = rec[col]
		}
	}
	return req, nil
}

// expectedIndices evaluates every index formula at each (time, lat, lon) cell
// of the request.
func expectedIndices(req *domain.GridRequest, cal calibrationJSON) (map[string]*grid.Field, error) {
	temp := req.Variables[domain.VarTemperature]
	rh := req.Variables[domain.VarHumidity]
	wind := req.Variables[domain.VarWindSpeed]
	shape := temp.Shape()

	out := make(map[string]*grid.Field, len(domain.AllIndices))
	for _, name := range domain.AllIndices {
		field, err := grid.Full(gridDims, shape, math.NaN())
		if err != nil {
			return nil, err
		}
		out[name] = field
	}

	flat := 0
	for ti := range shape[0] {
		for yi := range shape[1] {
			for xi := range shape[2] {
				t := temp.At(ti, yi, xi)
				h := rh.At(ti, yi, xi)
				w := wind.At(ti, yi, xi)

				gamma := math.Log(h/100) + 17.67*t/(243.5+t)
				dpd := t - 243.5*gamma/(17.67-gamma)
				dwi := (dpd + cal.A) / cal.B * (w + cal.C) / cal.D

				out[domain.VarDPD].Values()[flat] = dpd
				out[domain.VarDWI].Values()[flat] = dwi
				out[domain.VarPFFDI].Values()[flat] = dwi * 50 / 3
				out[domain.VarFauxFFDI].Values()[flat] = (t + 12) * dwi / 2
				flat++
			}
		}
	}
	return out, nil
}

func printStats(name string, f *grid.Field) error {
	s, err := grid.Summarize(f)
	if err != nil {
		return fmt.Errorf("summarize %s: %w", name, err)
	}
	fmt.Printf("%-10s cells=%d non_finite=%d min=%.4g max=%.4g mean=%.4g\n",
		name, s.Cells, s.NonFinite, s.Min, s.Max, s.Mean)
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return writeFile(path, append(data, '\n'))
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
