package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/couchcryptid/fire-weather-etl/internal/grid"
)

// ErrInvalidRequest is returned when a source message cannot be turned into
// a computable grid request.
var ErrInvalidRequest = errors.New("invalid grid request")

// ParseGridRequest deserializes a RawEvent's value into a GridRequest. It
// checks that every input the requested indices need is present, applies the
// request-level coordinates to each input, and defaults Indices to all four.
func ParseGridRequest(raw RawEvent) (GridRequest, error) {
	var req GridRequest
	if err := json.Unmarshal(raw.Value, &req); err != nil {
		return GridRequest{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if req.ID == "" {
		req.ID = string(raw.Key)
	}
	if req.ID == "" {
		return GridRequest{}, fmt.Errorf("%w: missing id", ErrInvalidRequest)
	}

	if len(req.Indices) == 0 {
		req.Indices = slices.Clone(AllIndices)
	}
	for _, name := range req.Indices {
		if !slices.Contains(AllIndices, name) {
			return GridRequest{}, fmt.Errorf("%w: unknown index %q", ErrInvalidRequest, name)
		}
	}

	for _, name := range requiredInputs(req) {
		if req.Variables[name] == nil {
			return GridRequest{}, fmt.Errorf("%w: missing variable %q", ErrInvalidRequest, name)
		}
	}

	for name, f := range req.Variables {
		if f == nil {
			continue
		}
		for dim, c := range req.Coords {
			if !slices.Contains(f.Dims, dim) {
				continue
			}
			if err := f.SetCoords(dim, c); err != nil {
				return GridRequest{}, fmt.Errorf("%w: variable %q: %w", ErrInvalidRequest, name, err)
			}
		}
	}
	return req, nil
}

// requiredInputs returns the input variables the requested indices depend on.
func requiredInputs(req GridRequest) []string {
	if req.Wants(VarDWI) || req.Wants(VarPFFDI) || req.Wants(VarFauxFFDI) {
		return []string{VarTemperature, VarHumidity, VarWindSpeed}
	}
	return []string{VarTemperature, VarHumidity}
}

// SerializeDataset marshals a computed index into a sink message keyed by
// "<request id>/<variable>".
func SerializeDataset(requestID string, ds *grid.Dataset, s Scenario) (OutputEvent, error) {
	data, err := json.Marshal(ds)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize dataset %q: %w", ds.Name, err)
	}
	return OutputEvent{
		Key:   []byte(requestID + "/" + ds.Name),
		Value: data,
		Headers: map[string]string{
			"variable":     ds.Name,
			"request_id":   requestID,
			"gwl":          s.GWL,
			"processed_at": clock.Now().UTC().Format(time.RFC3339),
		},
	}, nil
}
