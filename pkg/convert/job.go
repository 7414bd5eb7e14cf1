package convert

import (
	"path/filepath"
	"strings"

	"github.com/tessera3d/meshconv/pkg/brep"
)

// InputFile is one named input blob. Multi-file formats (obj+mtl,
// gltf+bin) arrive as several InputFiles; companions are matched by
// file name.
type InputFile struct {
	Name string
	Data []byte
}

// OutputFile is one named output blob. Formats with side files return
// more than one.
type OutputFile struct {
	Name string
	Data []byte
}

// jobSettings are the per-conversion knobs, seeded from the engine
// defaults and adjusted by job options.
type jobSettings struct {
	tol      brep.Tolerances
	weld     float32
	asciiSTL bool
}

// JobOption overrides an engine default for a single conversion.
type JobOption func(*jobSettings)

// WithTolerances sets the B-Rep tessellation tolerances for this job.
func WithTolerances(tol brep.Tolerances) JobOption {
	return func(j *jobSettings) { j.tol = tol }
}

// WithWeldTolerance sets the vertex welding distance for this job.
// Zero disables welding.
func WithWeldTolerance(tol float32) JobOption {
	return func(j *jobSettings) { j.weld = tol }
}

// WithASCIISTL makes stl output text instead of binary.
func WithASCIISTL() JobOption {
	return func(j *jobSettings) { j.asciiSTL = true }
}

// fileExt returns the lowercase extension of name without the dot.
func fileExt(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// baseName returns name without directory or extension, or "model"
// when that leaves nothing.
func baseName(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if base == "" || base == "." {
		return "model"
	}
	return base
}
