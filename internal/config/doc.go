// Package config loads, normalizes, and validates gridsight configuration.
//
// Configuration is TOML with a small number of sections: paths and API bind
// address, pipeline tuning (worker count, timeouts, confidence thresholds,
// retry budget), grid geometry defaults, and logging. Load applies defaults
// first, then file values, then a normalize pass (path expansion, trimming)
// and a validate pass. Callers should treat a returned Config as immutable.
package config
