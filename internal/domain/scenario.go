package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingContext is returned when an index is computed without a global
// warming level to describe it.
var ErrMissingContext = errors.New("global warming level is not set")

// Scenario is the climate-scenario context every index is computed under.
// It only feeds descriptive metadata and never changes numeric results.
type Scenario struct {
	// GWL is the global warming level label, e.g. "1.5" or "3.0".
	GWL string
}

// Calibration holds the dry-windy index tuning constants. They are used as
// plain real numbers: B = 0 or D = 0 yields infinities rather than an error.
type Calibration struct {
	A float64 `yaml:"a"`
	B float64 `yaml:"b"`
	C float64 `yaml:"c"`
	D float64 `yaml:"d"`
}

// summary renders the per-metric summary attribute.
func (s Scenario) summary(metric string) (string, error) {
	if strings.TrimSpace(s.GWL) == "" {
		return "", ErrMissingContext
	}
	return fmt.Sprintf("Fire weather metric: %s for Global Warming Level %s C", metric, s.GWL), nil
}
