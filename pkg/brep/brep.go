// Package brep tessellates boundary-representation CAD geometry into
// triangle face sets. The built-in kernel understands the planar
// subset of STEP AP203/AP214 Part 21 files; richer kernels can be
// plugged in through the Kernel interface.
package brep

import (
	"fmt"
	"sync"

	"github.com/tessera3d/meshconv/pkg/scene"
)

// Tolerances controls how finely curved geometry is approximated.
// Linear is the maximum chord deviation in model units, AngularDeg the
// maximum angle in degrees between adjacent facet normals.
type Tolerances struct {
	Linear     float32
	AngularDeg float32
}

// DefaultTolerances returns the standard tessellation quality.
func DefaultTolerances() Tolerances {
	return Tolerances{Linear: 0.01, AngularDeg: 30}
}

// Kernel converts B-Rep exchange data into mesh face sets.
type Kernel interface {
	// Name identifies the kernel in logs and errors.
	Name() string

	// Tessellate parses data and approximates every solid in it as a
	// triangle face set within the given tolerances.
	Tessellate(data []byte, tol Tolerances) ([]scene.FaceSet, error)
}

// UnavailableError reports that no kernel could handle the requested
// geometry class.
type UnavailableError struct {
	Kernel string
	Cause  error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("b-rep kernel %s unavailable: %v", e.Kernel, e.Cause)
}

func (e *UnavailableError) Unwrap() error { return e.Cause }

var (
	defaultKernel     Kernel
	defaultKernelOnce sync.Once
)

// Default returns the process-wide kernel handle. The handle is safe
// for concurrent use.
func Default() Kernel {
	defaultKernelOnce.Do(func() {
		defaultKernel = &stepKernel{}
	})
	return defaultKernel
}
