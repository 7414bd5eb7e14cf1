package formats

import "sort"

// Family identifies the conversion backend a format is handled by.
type Family int

const (
	// FamilyMesh covers polygon/triangle mesh-interchange formats
	// sharing the flexible backend in this package.
	FamilyMesh Family = iota
	// FamilyBRep covers boundary-representation CAD formats that need
	// tessellation before any mesh can be extracted.
	FamilyBRep
	// FamilySpecialized covers formats with a bespoke reader or writer:
	// the canonical container, glTF documents, point clouds.
	FamilySpecialized
)

// String returns a human-readable family name.
func (f Family) String() string {
	switch f {
	case FamilyMesh:
		return "mesh-interchange"
	case FamilyBRep:
		return "brep-cad"
	case FamilySpecialized:
		return "specialized"
	default:
		return "unknown"
	}
}

// FormatDescriptor describes one format's capabilities. Immutable.
type FormatDescriptor struct {
	// ID is the lowercase extension identifying the format.
	ID string
	// Family selects the conversion backend.
	Family Family
	// Binary is true for binary encodings, false for text.
	Binary bool
	// Input and Output report supported conversion directions.
	Input  bool
	Output bool
	// Companions lists side-file extensions the format may reference
	// (resolved from the input file set by name).
	Companions []string
}

// registry is the static capability table, keyed by lowercase extension.
// Entries with neither direction supported are recognized formats kept so
// requests for them fail with a direction-aware error instead of
// "unknown format".
var registry = map[string]FormatDescriptor{
	// Mesh-interchange family.
	"obj": {ID: "obj", Family: FamilyMesh, Input: true, Output: true, Companions: []string{"mtl"}},
	"mtl": {ID: "mtl", Family: FamilyMesh}, // companion only, never a primary
	"stl": {ID: "stl", Family: FamilyMesh, Binary: true, Input: true, Output: true},
	"ply": {ID: "ply", Family: FamilyMesh, Input: true, Output: true},
	"off": {ID: "off", Family: FamilyMesh, Input: true, Output: true},

	// Boundary-representation CAD family.
	"step": {ID: "step", Family: FamilyBRep, Input: true},
	"stp":  {ID: "stp", Family: FamilyBRep, Input: true},

	// Specialized family.
	"glb":  {ID: "glb", Family: FamilySpecialized, Binary: true, Input: true, Output: true},
	"gltf": {ID: "gltf", Family: FamilySpecialized, Input: true, Output: true, Companions: []string{"bin"}},
	"xyz":  {ID: "xyz", Family: FamilySpecialized, Input: true},

	// Recognized but unsupported in either direction.
	"fbx":   {ID: "fbx", Family: FamilyMesh, Binary: true},
	"dae":   {ID: "dae", Family: FamilyMesh},
	"3ds":   {ID: "3ds", Family: FamilyMesh, Binary: true},
	"wrl":   {ID: "wrl", Family: FamilyMesh},
	"x3d":   {ID: "x3d", Family: FamilyMesh},
	"3mf":   {ID: "3mf", Family: FamilyMesh, Binary: true},
	"dxf":   {ID: "dxf", Family: FamilyMesh},
	"iges":  {ID: "iges", Family: FamilyBRep},
	"igs":   {ID: "igs", Family: FamilyBRep},
	"brep":  {ID: "brep", Family: FamilyBRep},
	"sat":   {ID: "sat", Family: FamilyBRep},
	"draco": {ID: "draco", Family: FamilySpecialized, Binary: true},
}

// Describe returns the descriptor for a format id, or ok=false for a
// format unknown to the registry.
func Describe(id string) (FormatDescriptor, bool) {
	desc, ok := registry[id]
	return desc, ok
}

// IsInputSupported reports whether id can be used as a source format.
func IsInputSupported(id string) bool {
	desc, ok := registry[id]
	return ok && desc.Input
}

// IsOutputSupported reports whether id can be used as a target format.
func IsOutputSupported(id string) bool {
	desc, ok := registry[id]
	return ok && desc.Output
}

// ListInputFormats returns all supported source format ids, sorted.
func ListInputFormats() []string {
	return list(func(d FormatDescriptor) bool { return d.Input })
}

// ListOutputFormats returns all supported target format ids, sorted.
func ListOutputFormats() []string {
	return list(func(d FormatDescriptor) bool { return d.Output })
}

func list(keep func(FormatDescriptor) bool) []string {
	var ids []string
	for id, desc := range registry {
		if keep(desc) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
