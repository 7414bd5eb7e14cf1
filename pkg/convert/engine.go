// Package convert is the conversion facade: it turns a set of input
// files in one format into output files in another, routing every job
// through the canonical scene representation unless a cheaper path
// exists.
package convert

import (
	"sync"

	"go.uber.org/zap"

	"github.com/tessera3d/meshconv/internal/config"
	"github.com/tessera3d/meshconv/internal/logger"
	"github.com/tessera3d/meshconv/pkg/brep"
	"github.com/tessera3d/meshconv/pkg/container"
	"github.com/tessera3d/meshconv/pkg/formats"
)

// Engine converts between 3D file formats. Construct one per process
// with New; an Engine is immutable after construction and safe for
// concurrent use.
type Engine struct {
	log  *zap.Logger
	tol  brep.Tolerances
	weld float32

	maxVertices int
	maxFaces    int

	kernelOnce sync.Once
	brepKernel brep.Kernel
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithLogger replaces the configured logger.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithDefaultTolerances sets the engine-wide B-Rep tessellation
// tolerances; individual jobs can still override them.
func WithDefaultTolerances(tol brep.Tolerances) Option {
	return func(e *Engine) { e.tol = tol }
}

// WithDefaultWeldTolerance sets the engine-wide vertex welding
// distance. Zero disables welding.
func WithDefaultWeldTolerance(tol float32) Option {
	return func(e *Engine) { e.weld = tol }
}

// WithKernel replaces the built-in B-Rep kernel.
func WithKernel(k brep.Kernel) Option {
	return func(e *Engine) { e.brepKernel = k }
}

// New builds an Engine from the loaded configuration, then applies
// options on top. Without a log file configured the engine is silent.
func New(opts ...Option) *Engine {
	cfg, err := config.Load()
	if err != nil {
		cfg = config.Default()
	}

	e := &Engine{
		log: logger.NewWithFileConfig(
			cfg.Logging.Level,
			logger.DefaultFileConfig(cfg.Logging.LogFile),
			false,
		),
		tol: brep.Tolerances{
			Linear:     cfg.Tessellation.LinearTolerance,
			AngularDeg: cfg.Tessellation.AngularTolerance,
		},
		weld:        cfg.Tessellation.WeldTolerance,
		maxVertices: cfg.Limits.MaxVertices,
		maxFaces:    cfg.Limits.MaxFaces,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// kernel returns the B-Rep kernel handle, initializing the built-in
// one on first use.
func (e *Engine) kernel() brep.Kernel {
	e.kernelOnce.Do(func() {
		if e.brepKernel == nil {
			e.brepKernel = brep.Default()
		}
	})
	return e.brepKernel
}

func (e *Engine) settings(opts []JobOption) jobSettings {
	job := jobSettings{tol: e.tol, weld: e.weld}
	for _, opt := range opts {
		opt(&job)
	}
	return job
}

// Convert transforms files from the source format into the target
// format. Path selection, cheapest first: identity passthrough when
// the input already carries the target encoding, direct re-encode when
// both formats are mesh-interchange, canonical hub otherwise.
func (e *Engine) Convert(files []InputFile, source, target string, opts ...JobOption) ([]OutputFile, error) {
	if err := validateFormat(source, DirectionInput); err != nil {
		return nil, err
	}
	if err := validateFormat(target, DirectionOutput); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, ErrEmptyInput
	}
	job := e.settings(opts)

	primary, _, err := resolveFiles(files, source)
	if err != nil {
		return nil, err
	}
	base := baseName(primary.Name)

	// Identity passthrough: bytes already in the target encoding.
	if source == "glb" && target == "glb" && container.IsContainer(primary.Data) {
		e.log.Debug("identity passthrough",
			zap.String("format", target),
			zap.Int("bytes", len(primary.Data)))
		return []OutputFile{{Name: base + ".glb", Data: primary.Data}}, nil
	}

	srcDesc, _ := formats.Describe(source)
	dstDesc, _ := formats.Describe(target)

	// Direct path: mesh to mesh re-encodes without the container.
	if srcDesc.Family == formats.FamilyMesh && dstDesc.Family == formats.FamilyMesh {
		s, err := e.importScene(files, source, job)
		if err != nil {
			return nil, err
		}
		e.log.Debug("direct mesh path",
			zap.String("source", source),
			zap.String("target", target),
			zap.Int("meshes", s.MeshCount()))
		return writeTarget(s, target, base, job)
	}

	// Canonical hub: import to the container, export from it.
	data, err := e.importCanonical(files, source, job)
	if err != nil {
		return nil, err
	}
	e.log.Debug("canonical hub path",
		zap.String("source", source),
		zap.String("target", target),
		zap.Int("containerBytes", len(data)))
	return e.exportCanonical(data, target, base, job)
}

// ImportToCanonical runs only the import half of a conversion and
// returns the canonical container bytes.
func (e *Engine) ImportToCanonical(files []InputFile, source string, opts ...JobOption) ([]byte, error) {
	if err := validateFormat(source, DirectionInput); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, ErrEmptyInput
	}
	return e.importCanonical(files, source, e.settings(opts))
}

func (e *Engine) importCanonical(files []InputFile, source string, job jobSettings) ([]byte, error) {
	// Container input needs no rebuild.
	if source == "glb" {
		primary, _, err := resolveFiles(files, source)
		if err != nil {
			return nil, err
		}
		if container.IsContainer(primary.Data) {
			return primary.Data, nil
		}
	}

	s, err := e.importScene(files, source, job)
	if err != nil {
		return nil, err
	}
	return container.Encode(s)
}

// ExportFromCanonical runs only the export half of a conversion,
// consuming canonical container bytes.
func (e *Engine) ExportFromCanonical(data []byte, target string, opts ...JobOption) ([]OutputFile, error) {
	if err := validateFormat(target, DirectionOutput); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}
	return e.exportCanonical(data, target, "model", e.settings(opts))
}

func (e *Engine) exportCanonical(data []byte, target, base string, job jobSettings) ([]OutputFile, error) {
	if target == "glb" && container.IsContainer(data) {
		return []OutputFile{{Name: base + ".glb", Data: data}}, nil
	}

	s, err := container.Decode(data)
	if err != nil {
		return nil, err
	}
	return writeTarget(s, target, base, job)
}
