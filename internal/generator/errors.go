package generator

import (
	"errors"
	"fmt"
)

// ErrCancelled is returned by EmitAll when the context was cancelled before
// every unit finished. Use errors.Is to check for it.
var ErrCancelled = errors.New("emission cancelled")

// Stage names the step of a unit's emission that failed.
type Stage string

const (
	StagePrint  Stage = "print"
	StageOpen   Stage = "open"
	StageWrite  Stage = "write"
	StageCommit Stage = "commit"
	StageClose  Stage = "close"
)

// EmissionError reports the failure of a single unit.
type EmissionError struct {
	Unit  string
	Stage Stage
	Err   error
}

func (e *EmissionError) Error() string {
	return fmt.Sprintf("unit %s: %s: %v", e.Unit, e.Stage, e.Err)
}

func (e *EmissionError) Unwrap() error {
	return e.Err
}
