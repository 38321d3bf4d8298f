package generation

import (
	"errors"
	"fmt"
)

var ErrNotConfigured = errors.New("generation backend not configured")

type FailureKind string

const (
	KindBackend   FailureKind = "backend"   // transport, quota or backend-side error
	KindMalformed FailureKind = "malformed" // response is not JSON
	KindShape     FailureKind = "shape"     // JSON without the expected top-level keys
)

// Failure reports that a stage could not obtain usable structured data.
type Failure struct {
	Stage string
	Kind  FailureKind
	Err   error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("generation failed in %s (%s): %v", f.Stage, f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// AsFailure returns err as a *Failure, wrapping foreign errors as backend
// failures of the given stage.
func AsFailure(stage string, err error) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return &Failure{Stage: stage, Kind: KindBackend, Err: err}
}
