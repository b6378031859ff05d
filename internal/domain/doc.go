// Package domain computes fire-weather indices from gridded daily climate
// variables.
//
// # Inputs
//
// Grid requests arrive as JSON on the source topic. Each carries three
// labeled fields on a shared (time, lat, lon) grid, already unit-normalized
// by the producer:
//
//	tasmax   daily maximum near-surface air temperature, degC
//	hursmin  daily minimum relative humidity, percent (0-100)
//	wsmax    daily maximum wind speed, km/h
//
// Units are not checked. Inputs in K or m/s produce plausible-looking but
// wrong indices, so the producer is responsible for conversion.
//
// # Index Chain
//
// Four indices are derived, each from the one before:
//
//	dpd        T - 243.5*g/(17.67-g),  g = ln(RH/100) + 17.67*T/(243.5+T)
//	dwi        (dpd + A)/B * (W + C)/D
//	p_ffdi     (50/3) * dwi
//	faux_ffdi  (T + 12) * dwi / 2
//
// dpd is the dewpoint depression, using the Magnus dewpoint approximation
// with coefficients 17.67 and 243.5 degC. A, B, C and D are the dry-windy
// calibration constants supplied through configuration. p_ffdi and faux_ffdi
// are two independently calibrated stand-ins for the McArthur Forest Fire
// Danger Index. p_ffdi matches FFDI for a reference event and for the mean
// February humidity at Melbourne Airport. It removes FFDI's wind-speed bias
// but does poorly on cool windy days. faux_ffdi puts temperature back in
// directly.
//
// # Degenerate Values
//
// No index validates its inputs. RH = 0 gives ln(0) = -Inf and a NaN dpd;
// B = 0 or D = 0 gives infinite dwi. These propagate through the chain and
// are published as "NaN" / "Infinity" in the sink JSON.
//
// # Metadata
//
// Every index carries the same archival attribute block (program, publisher,
// creator, contact, acknowledgement) plus its own standard_name, long_name,
// optional units, and a summary naming the [Scenario]'s global warming
// level. Computing an index without a GWL fails with [ErrMissingContext].
//
// # Ownership
//
// Each index function takes ownership of its input fields and releases them
// on every return path. Callers that need an input again must pass a clone.
package domain
