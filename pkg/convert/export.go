package convert

import (
	"fmt"

	"github.com/tessera3d/meshconv/pkg/container"
	"github.com/tessera3d/meshconv/pkg/formats"
	"github.com/tessera3d/meshconv/pkg/scene"
)

// writeTarget encodes a scene in the target format. Formats with side
// files return more than one OutputFile; the primary is always first.
//
// Fidelity is family-dependent: stl drops hierarchy and materials, off
// drops normals and materials, ply keeps normals, obj keeps materials
// through its mtl side file, glb and gltf keep everything the scene
// holds.
func writeTarget(s *scene.Scene, target, base string, job jobSettings) ([]OutputFile, error) {
	switch target {
	case "obj":
		mtlName := base + ".mtl"
		objData, mtlData, err := formats.WriteOBJ(s, mtlName)
		if err != nil {
			return nil, err
		}
		out := []OutputFile{{Name: base + ".obj", Data: objData}}
		if len(mtlData) > 0 {
			out = append(out, OutputFile{Name: mtlName, Data: mtlData})
		}
		return out, nil

	case "stl":
		if job.asciiSTL {
			return []OutputFile{{Name: base + ".stl", Data: formats.WriteASCIISTL(s, base)}}, nil
		}
		return []OutputFile{{Name: base + ".stl", Data: formats.WriteSTL(s)}}, nil

	case "ply":
		return []OutputFile{{Name: base + ".ply", Data: formats.WritePLY(s)}}, nil

	case "off":
		return []OutputFile{{Name: base + ".off", Data: formats.WriteOFF(s)}}, nil

	case "glb":
		data, err := container.Encode(s)
		if err != nil {
			return nil, err
		}
		return []OutputFile{{Name: base + ".glb", Data: data}}, nil

	case "gltf":
		// Buffers embed as a data URI so the export stays one file.
		data, err := container.EncodeJSON(s)
		if err != nil {
			return nil, err
		}
		return []OutputFile{{Name: base + ".gltf", Data: data}}, nil
	}
	return nil, fmt.Errorf("no writer for format %q", target)
}

// validateFormat checks one side of a conversion against the registry.
func validateFormat(id, direction string) error {
	desc, known := formats.Describe(id)
	supported := desc.Input
	if direction == DirectionOutput {
		supported = desc.Output
	}
	if !known || !supported {
		return &UnsupportedFormatError{Format: id, Direction: direction, Known: known}
	}
	return nil
}
