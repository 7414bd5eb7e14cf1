// Package container serializes the canonical scene representation to
// and from its binary container form, a glTF 2.0 binary (GLB) payload.
// Every import produces one container, every export consumes one.
package container

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	m "github.com/tessera3d/meshconv/pkg/math"
	"github.com/tessera3d/meshconv/pkg/scene"
)

// Magic is the 4-byte ASCII tag at offset 0 of every container.
const Magic = "glTF"

// Container errors.
var (
	ErrNotContainer = errors.New("data is not a canonical container (bad magic)")
	ErrEmptyScene   = errors.New("scene has no root node")
)

// MissingBufferError reports a glTF buffer whose external payload was
// not present in the supplied companion set.
type MissingBufferError struct {
	URI string
}

func (e *MissingBufferError) Error() string {
	return fmt.Sprintf("missing external buffer %q", e.URI)
}

// IsContainer reports whether data begins with the container magic tag.
// This is the cheap sniff used for pass-through detection; it does not
// validate the payload.
func IsContainer(data []byte) bool {
	return len(data) >= 4 && string(data[:4]) == Magic
}

// Encode serializes a scene to container (GLB) bytes.
func Encode(s *scene.Scene) ([]byte, error) {
	doc, err := buildDocument(s)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := gltf.NewEncoder(&buf)
	enc.AsBinary = true
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encoding container: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeJSON serializes a scene to a self-contained glTF JSON document
// with the buffer embedded as a data URI.
func EncodeJSON(s *scene.Scene) ([]byte, error) {
	doc, err := buildDocument(s)
	if err != nil {
		return nil, err
	}
	for _, buffer := range doc.Buffers {
		if buffer.URI == "" && len(buffer.Data) > 0 {
			buffer.EmbeddedResource()
		}
	}

	var buf bytes.Buffer
	enc := gltf.NewEncoder(&buf)
	enc.AsBinary = false
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encoding glTF document: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode deserializes container (GLB) bytes back into a scene. The
// magic tag is checked before any parsing happens.
func Decode(data []byte) (*scene.Scene, error) {
	if !IsContainer(data) {
		return nil, ErrNotContainer
	}
	return DecodeDocument(data, nil)
}

// DecodeDocument deserializes GLB or glTF JSON bytes into a scene.
// Buffers referencing external files are resolved from companions,
// keyed by file name.
func DecodeDocument(data []byte, companions map[string][]byte) (*scene.Scene, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(bytes.NewReader(data)).Decode(doc); err != nil {
		return nil, fmt.Errorf("decoding glTF document: %w", err)
	}

	for _, buffer := range doc.Buffers {
		if len(buffer.Data) > 0 || buffer.URI == "" {
			continue
		}
		payload, ok := companions[buffer.URI]
		if !ok {
			return nil, &MissingBufferError{URI: buffer.URI}
		}
		buffer.Data = payload
	}

	return buildScene(doc)
}

// buildDocument converts the canonical scene into a glTF document with
// the same node hierarchy, mesh set, and material table.
func buildDocument(s *scene.Scene) (*gltf.Document, error) {
	if s == nil || s.Root == nil {
		return nil, ErrEmptyScene
	}

	doc := gltf.NewDocument()
	doc.Asset.Generator = "meshconv"

	for _, mat := range s.Materials {
		doc.Materials = append(doc.Materials, &gltf.Material{
			Name: mat.Name,
			PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
				BaseColorFactor: &[4]float64{
					float64(mat.Diffuse[0]),
					float64(mat.Diffuse[1]),
					float64(mat.Diffuse[2]),
					float64(mat.Alpha),
				},
			},
		})
	}

	rootIdx, err := writeNode(doc, s.Root)
	if err != nil {
		return nil, err
	}
	doc.Scenes[0].Nodes = []uint32{rootIdx}
	return doc, nil
}

func writeNode(doc *gltf.Document, n *scene.Node) (uint32, error) {
	gn := &gltf.Node{
		Name:     n.Name,
		Matrix:   matrix64(n.Transform),
		Rotation: [4]float64{0, 0, 0, 1},
		Scale:    [3]float64{1, 1, 1},
	}

	if n.Mesh != nil {
		meshIdx, err := writeMesh(doc, n.Mesh)
		if err != nil {
			return 0, err
		}
		gn.Mesh = gltf.Index(meshIdx)
	}

	idx := uint32(len(doc.Nodes))
	doc.Nodes = append(doc.Nodes, gn)

	for _, child := range n.Children {
		childIdx, err := writeNode(doc, child)
		if err != nil {
			return 0, err
		}
		gn.Children = append(gn.Children, childIdx)
	}
	return idx, nil
}

func writeMesh(doc *gltf.Document, mesh *scene.Mesh) (uint32, error) {
	if len(mesh.Positions) == 0 {
		return 0, fmt.Errorf("mesh %q: %w", mesh.Name, scene.ErrNoGeometry)
	}

	prim := &gltf.Primitive{
		Attributes: map[string]uint32{
			gltf.POSITION: modeler.WritePosition(doc, mesh.Positions),
		},
		Mode: gltf.PrimitiveTriangles,
	}
	if len(mesh.Normals) == len(mesh.Positions) {
		prim.Attributes[gltf.NORMAL] = modeler.WriteNormal(doc, mesh.Normals)
	}
	if len(mesh.Indices) > 0 {
		prim.Indices = gltf.Index(modeler.WriteIndices(doc, mesh.Indices))
	} else {
		prim.Mode = gltf.PrimitivePoints
	}
	if mesh.Material >= 0 && mesh.Material < len(doc.Materials) {
		prim.Material = gltf.Index(uint32(mesh.Material))
	}

	idx := uint32(len(doc.Meshes))
	doc.Meshes = append(doc.Meshes, &gltf.Mesh{
		Name:       mesh.Name,
		Primitives: []*gltf.Primitive{prim},
	})
	return idx, nil
}

// buildScene converts a glTF document back into the canonical scene.
func buildScene(doc *gltf.Document) (*scene.Scene, error) {
	s := scene.New()

	for _, gm := range doc.Materials {
		mat := scene.Material{Name: gm.Name, Alpha: 1}
		if gm.PBRMetallicRoughness != nil && gm.PBRMetallicRoughness.BaseColorFactor != nil {
			f := *gm.PBRMetallicRoughness.BaseColorFactor
			mat.Diffuse = [3]float32{float32(f[0]), float32(f[1]), float32(f[2])}
			mat.Alpha = float32(f[3])
		}
		s.Materials = append(s.Materials, mat)
	}

	var roots []uint32
	if doc.Scene != nil && int(*doc.Scene) < len(doc.Scenes) {
		roots = doc.Scenes[*doc.Scene].Nodes
	} else if len(doc.Scenes) > 0 {
		roots = doc.Scenes[0].Nodes
	}

	if len(roots) == 1 {
		root, err := readNode(doc, roots[0])
		if err != nil {
			return nil, err
		}
		s.Root = root
		return s, nil
	}

	for _, idx := range roots {
		child, err := readNode(doc, idx)
		if err != nil {
			return nil, err
		}
		s.Root.Children = append(s.Root.Children, child)
	}
	return s, nil
}

func readNode(doc *gltf.Document, idx uint32) (*scene.Node, error) {
	if int(idx) >= len(doc.Nodes) {
		return nil, fmt.Errorf("node index %d out of range", idx)
	}
	gn := doc.Nodes[idx]

	node := &scene.Node{
		Name:      gn.Name,
		Transform: nodeTransform(gn),
	}

	if gn.Mesh != nil && int(*gn.Mesh) < len(doc.Meshes) {
		meshes, err := readMesh(doc, doc.Meshes[*gn.Mesh])
		if err != nil {
			return nil, err
		}
		if len(meshes) == 1 {
			node.Mesh = meshes[0]
		} else {
			// Multi-primitive meshes split into one child per
			// primitive, since a canonical node holds one mesh.
			for _, mesh := range meshes {
				node.Children = append(node.Children, &scene.Node{
					Name:      mesh.Name,
					Transform: m.Identity(),
					Mesh:      mesh,
				})
			}
		}
	}

	for _, childIdx := range gn.Children {
		child, err := readNode(doc, childIdx)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, child)
	}
	return node, nil
}

func readMesh(doc *gltf.Document, gm *gltf.Mesh) ([]*scene.Mesh, error) {
	var meshes []*scene.Mesh

	for i, prim := range gm.Primitives {
		if prim.Mode != gltf.PrimitiveTriangles && prim.Mode != gltf.PrimitivePoints {
			// Lines and strips carry no surface we convert.
			continue
		}

		posIdx, ok := prim.Attributes[gltf.POSITION]
		if !ok || int(posIdx) >= len(doc.Accessors) {
			continue
		}

		positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
		if err != nil {
			return nil, fmt.Errorf("primitive %d: reading positions: %w", i, err)
		}

		mesh := &scene.Mesh{
			Name:      gm.Name,
			Positions: positions,
			Material:  scene.NoMaterial,
		}
		if len(gm.Primitives) > 1 {
			mesh.Name = fmt.Sprintf("%s/%d", gm.Name, i)
		}

		if normIdx, ok := prim.Attributes[gltf.NORMAL]; ok && int(normIdx) < len(doc.Accessors) {
			normals, err := modeler.ReadNormal(doc, doc.Accessors[normIdx], nil)
			if err != nil {
				return nil, fmt.Errorf("primitive %d: reading normals: %w", i, err)
			}
			if len(normals) == len(positions) {
				mesh.Normals = normals
			}
		}

		if prim.Indices != nil && int(*prim.Indices) < len(doc.Accessors) {
			indices, err := modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
			if err != nil {
				return nil, fmt.Errorf("primitive %d: reading indices: %w", i, err)
			}
			mesh.Indices = indices
		}

		if prim.Material != nil {
			mesh.Material = int(*prim.Material)
		}
		meshes = append(meshes, mesh)
	}
	return meshes, nil
}

// nodeTransform resolves a glTF node transform: the matrix when it is
// not identity, the TRS triple otherwise.
func nodeTransform(gn *gltf.Node) m.Mat4 {
	mat := matrix32(gn.Matrix)
	if !mat.IsIdentity() {
		return mat
	}

	return m.Compose(
		m.Vec3{
			X: float32(gn.Translation[0]),
			Y: float32(gn.Translation[1]),
			Z: float32(gn.Translation[2]),
		},
		m.Quat{
			X: float32(gn.Rotation[0]),
			Y: float32(gn.Rotation[1]),
			Z: float32(gn.Rotation[2]),
			W: float32(gn.Rotation[3]),
		},
		m.Vec3{
			X: float32(gn.Scale[0]),
			Y: float32(gn.Scale[1]),
			Z: float32(gn.Scale[2]),
		},
	)
}

func matrix64(mat m.Mat4) [16]float64 {
	var out [16]float64
	for i, f := range mat {
		out[i] = float64(f)
	}
	return out
}

func matrix32(mat [16]float64) m.Mat4 {
	var out m.Mat4
	for i, f := range mat {
		out[i] = float32(f)
	}
	return out
}
