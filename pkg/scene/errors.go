package scene

import "fmt"

// GeometryError reports a source geometry object that could not be
// coerced into polygon data. Index localizes the failure within the
// input batch; SourceType is the runtime description of the offender.
type GeometryError struct {
	Index      int
	SourceType string
	Cause      error
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("geometry object %d (%s): %v", e.Index, e.SourceType, e.Cause)
}

func (e *GeometryError) Unwrap() error {
	return e.Cause
}
