package domain

import (
	"context"
	"time"

	"github.com/couchcryptid/fire-weather-etl/internal/grid"
)

// Input variable names expected in a grid request.
const (
	VarTemperature = "tasmax"  // daily maximum temperature, degC
	VarHumidity    = "hursmin" // daily minimum relative humidity, %
	VarWindSpeed   = "wsmax"   // daily maximum wind speed, km/h
)

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// GridRequest is the decoded body of a source message: the input fields for
// one region and period, plus the indices the producer wants back.
type GridRequest struct {
	ID        string                 `json:"id"`
	Indices   []string               `json:"indices,omitempty"`
	Coords    map[string]grid.Values `json:"coords,omitempty"`
	Variables map[string]*grid.Field `json:"variables"`
}

// Wants reports whether the request asked for index name.
func (r GridRequest) Wants(name string) bool {
	for _, n := range r.Indices {
		if n == name {
			return true
		}
	}
	return false
}

// Release releases every input field still held by the request.
func (r GridRequest) Release() {
	for _, f := range r.Variables {
		f.Release()
	}
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}
