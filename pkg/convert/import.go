package convert

import (
	"errors"

	"github.com/tessera3d/meshconv/pkg/brep"
	"github.com/tessera3d/meshconv/pkg/container"
	"github.com/tessera3d/meshconv/pkg/formats"
	"github.com/tessera3d/meshconv/pkg/scene"
)

// importScene runs the import pipeline: resolve files, dispatch by
// family, assemble the canonical scene.
func (e *Engine) importScene(files []InputFile, source string, job jobSettings) (*scene.Scene, error) {
	primary, companions, err := resolveFiles(files, source)
	if err != nil {
		return nil, err
	}

	desc, _ := formats.Describe(source)
	var s *scene.Scene

	switch desc.Family {
	case formats.FamilyMesh:
		s, err = importMesh(source, primary, companions, job)
	case formats.FamilyBRep:
		s, err = e.importBRep(source, primary, job)
	case formats.FamilySpecialized:
		s, err = importSpecialized(source, primary, companions, job)
	default:
		err = &UnsupportedFormatError{Format: source, Direction: DirectionInput, Known: true}
	}
	if err != nil {
		return nil, err
	}

	if err := e.checkLimits(s); err != nil {
		return nil, err
	}
	return s, nil
}

// resolveFiles splits the input set into the primary file, matched by
// extension against the source format, and the companion pool keyed by
// file name.
func resolveFiles(files []InputFile, source string) (InputFile, map[string][]byte, error) {
	primaryIdx := -1
	for i, f := range files {
		if extMatches(fileExt(f.Name), source) {
			primaryIdx = i
			break
		}
	}
	if primaryIdx < 0 {
		return InputFile{}, nil, &MissingPrimaryFileError{Format: source}
	}

	companions := make(map[string][]byte, len(files)-1)
	for i, f := range files {
		if i != primaryIdx {
			companions[f.Name] = f.Data
		}
	}
	return files[primaryIdx], companions, nil
}

// extMatches treats step and stp as aliases of each other.
func extMatches(ext, source string) bool {
	if ext == source {
		return true
	}
	return (ext == "step" || ext == "stp") && (source == "step" || source == "stp")
}

func importMesh(source string, primary InputFile, companions map[string][]byte, job jobSettings) (*scene.Scene, error) {
	var (
		sets      []scene.FaceSet
		materials []scene.Material
		err       error
	)

	switch source {
	case "obj":
		sets, materials, err = importOBJ(primary.Data, companions)
	case "stl":
		var stl *formats.STL
		stl, err = formats.ParseSTL(primary.Data)
		if err == nil {
			sets = []scene.FaceSet{stl.FaceSet()}
		}
	case "ply":
		var ply *formats.PLY
		ply, err = formats.ParsePLY(primary.Data)
		if err == nil {
			sets = []scene.FaceSet{ply.FaceSet()}
		}
	case "off":
		var off *formats.OFF
		off, err = formats.ParseOFF(primary.Data)
		if err == nil {
			sets = []scene.FaceSet{off.FaceSet()}
		}
	default:
		return nil, &UnsupportedFormatError{Format: source, Direction: DirectionInput, Known: true}
	}
	if err != nil {
		return nil, &scene.GeometryError{Index: 0, SourceType: source, Cause: err}
	}

	return assembleScene(sets, materials, source, job)
}

// importOBJ parses the primary OBJ and resolves its mtllib references
// from the companion pool. An absent MTL is tolerated; its materials
// become placeholders.
func importOBJ(data []byte, companions map[string][]byte) ([]scene.FaceSet, []scene.Material, error) {
	obj, err := formats.ParseOBJ(data)
	if err != nil {
		return nil, nil, err
	}

	byName := make(map[string]scene.Material)
	for _, lib := range obj.MTLLibs {
		mtlData, ok := findCompanion(companions, lib)
		if !ok {
			continue
		}
		for _, mat := range formats.ParseMTL(mtlData) {
			byName[mat.Name] = mat
		}
	}

	// Material table in usemtl order; names the MTLs never defined get
	// a neutral placeholder so face material indices stay valid.
	materials := make([]scene.Material, len(obj.Materials))
	for i, name := range obj.Materials {
		if mat, ok := byName[name]; ok {
			materials[i] = mat
		} else {
			materials[i] = scene.Material{
				Name:    name,
				Diffuse: [3]float32{0.8, 0.8, 0.8},
				Alpha:   1,
			}
		}
	}

	return obj.FaceSets(), materials, nil
}

// findCompanion looks a referenced file up in the companion pool,
// tolerating path prefixes on either side.
func findCompanion(companions map[string][]byte, ref string) ([]byte, bool) {
	if data, ok := companions[ref]; ok {
		return data, true
	}
	want := baseName(ref) + "." + fileExt(ref)
	for name, data := range companions {
		if baseName(name)+"."+fileExt(name) == want {
			return data, true
		}
	}
	return nil, false
}

func (e *Engine) importBRep(source string, primary InputFile, job jobSettings) (*scene.Scene, error) {
	kernel := e.kernel()

	sets, err := kernel.Tessellate(primary.Data, job.tol)
	if err != nil {
		var unavailable *brep.UnavailableError
		if errors.Is(err, brep.ErrUnsupportedSurface) || errors.As(err, &unavailable) {
			return nil, &BackendUnavailableError{Family: formats.FamilyBRep, Cause: err}
		}
		return nil, &scene.GeometryError{Index: 0, SourceType: source, Cause: err}
	}

	// Tessellated vertices are welded to the linear tolerance already;
	// the assembler only triangulates.
	return assembleScene(sets, nil, source, jobSettings{tol: job.tol})
}

func importSpecialized(source string, primary InputFile, companions map[string][]byte, job jobSettings) (*scene.Scene, error) {
	switch source {
	case "glb":
		return container.Decode(primary.Data)

	case "gltf":
		s, err := container.DecodeDocument(primary.Data, companions)
		if err != nil {
			var missing *container.MissingBufferError
			if errors.As(err, &missing) {
				return nil, &MissingCompanionFileError{Format: source, Companion: missing.URI}
			}
			return nil, &scene.GeometryError{Index: 0, SourceType: source, Cause: err}
		}
		return s, nil

	case "xyz":
		fs, err := formats.ParseXYZ(primary.Data)
		if err != nil {
			return nil, &scene.GeometryError{Index: 0, SourceType: source, Cause: err}
		}
		return assembleScene([]scene.FaceSet{fs}, nil, source, job)
	}
	return nil, &UnsupportedFormatError{Format: source, Direction: DirectionInput, Known: true}
}

// assembleScene runs the assembler over every raw face set and attaches
// the material table.
func assembleScene(sets []scene.FaceSet, materials []scene.Material, source string, job jobSettings) (*scene.Scene, error) {
	s := scene.New()
	s.Materials = materials

	for i, fs := range sets {
		mesh, err := scene.Assemble(fs, scene.AssembleOptions{WeldTolerance: job.weld})
		if err != nil {
			return nil, &scene.GeometryError{Index: i, SourceType: source, Cause: err}
		}
		s.AddMesh(mesh)
	}
	return s, nil
}

func (e *Engine) checkLimits(s *scene.Scene) error {
	var vertices int
	for _, mesh := range s.Meshes() {
		vertices += len(mesh.Positions)
	}
	if e.maxVertices > 0 && vertices > e.maxVertices {
		return ErrTooLarge
	}
	if e.maxFaces > 0 && s.FaceCount() > e.maxFaces {
		return ErrTooLarge
	}
	return nil
}
