// Package embedding calls an external text-embedding provider and models its
// fail-open contract. A call never returns an error to search callers: it
// yields an Outcome that is either an available vector or Unavailable.
package embedding

import "errors"

// ErrProviderUnavailable means the provider could not produce a vector within
// the retry budget, or the circuit breaker refused the call.
var ErrProviderUnavailable = errors.New("embedding provider unavailable")

// Outcome is the result of one embedding request.
type Outcome struct {
	vec []float32
	err error
}

// Available wraps a computed vector. An empty vector is Unavailable.
func Available(v []float32) Outcome {
	if len(v) == 0 {
		return Unavailable(ErrProviderUnavailable)
	}
	return Outcome{vec: v}
}

// Unavailable records why no vector could be produced.
func Unavailable(err error) Outcome {
	if err == nil {
		err = ErrProviderUnavailable
	}
	return Outcome{err: err}
}

// Vector returns the vector and true when the outcome is available.
func (o Outcome) Vector() ([]float32, bool) {
	return o.vec, o.err == nil && len(o.vec) > 0
}

// Available reports whether the outcome holds a vector.
func (o Outcome) Available() bool {
	_, ok := o.Vector()
	return ok
}

// Err is the reason for an Unavailable outcome, nil otherwise.
func (o Outcome) Err() error {
	if o.err == nil && len(o.vec) == 0 {
		return ErrProviderUnavailable
	}
	return o.err
}
