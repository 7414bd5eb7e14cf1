// Package scene defines the canonical in-memory scene representation used
// as the hub between import and export backends, plus the mesh assembler
// that turns raw per-format polygon data into triangle meshes.
package scene

import (
	m "github.com/tessera3d/meshconv/pkg/math"
)

// NoMaterial marks a mesh without a material reference.
const NoMaterial = -1

// Mesh holds strictly triangulated geometry.
// Invariants: len(Indices)%3 == 0, every index < len(Positions),
// and len(Normals) == len(Positions) when normals are present.
type Mesh struct {
	Name      string
	Positions [][3]float32
	Normals   [][3]float32
	Indices   []uint32
	Material  int // index into Scene.Materials, NoMaterial when unset
}

// TriangleCount returns the number of triangles in the mesh.
func (mesh *Mesh) TriangleCount() int {
	return len(mesh.Indices) / 3
}

// Material describes surface appearance. Fidelity across formats varies;
// exporters keep what their format can carry.
type Material struct {
	Name     string
	Diffuse  [3]float32
	Ambient  [3]float32
	Specular [3]float32
	Alpha    float32
	Texture  string
}

// Node is one element of the scene hierarchy with a local transform,
// an optional mesh, and ordered children.
type Node struct {
	Name      string
	Transform m.Mat4
	Mesh      *Mesh
	Children  []*Node
}

// Scene is the canonical scene graph: a node tree plus a material table
// referenced by mesh material indices.
type Scene struct {
	Root      *Node
	Materials []Material
}

// New returns an empty scene with an identity root node.
func New() *Scene {
	return &Scene{
		Root: &Node{Name: "root", Transform: m.Identity()},
	}
}

// AddMesh appends a mesh as a new child node of the root.
func (s *Scene) AddMesh(mesh *Mesh) *Node {
	node := &Node{Name: mesh.Name, Transform: m.Identity(), Mesh: mesh}
	s.Root.Children = append(s.Root.Children, node)
	return node
}

// Meshes returns all meshes in the scene in depth-first node order.
func (s *Scene) Meshes() []*Mesh {
	var meshes []*Mesh
	s.Walk(func(n *Node, _ m.Mat4) {
		if n.Mesh != nil {
			meshes = append(meshes, n.Mesh)
		}
	})
	return meshes
}

// MeshCount returns the number of meshes in the scene.
func (s *Scene) MeshCount() int {
	return len(s.Meshes())
}

// FaceCount returns the total triangle count across all meshes.
func (s *Scene) FaceCount() int {
	total := 0
	for _, mesh := range s.Meshes() {
		total += mesh.TriangleCount()
	}
	return total
}

// Walk visits every node depth-first, passing the accumulated
// world transform of each node.
func (s *Scene) Walk(fn func(n *Node, world m.Mat4)) {
	if s.Root == nil {
		return
	}
	walkNode(s.Root, m.Identity(), fn)
}

func walkNode(n *Node, parent m.Mat4, fn func(*Node, m.Mat4)) {
	world := parent.Mul(n.Transform)
	fn(n, world)
	for _, child := range n.Children {
		walkNode(child, world, fn)
	}
}

// NodeCount returns the number of nodes in the hierarchy.
func (s *Scene) NodeCount() int {
	count := 0
	s.Walk(func(*Node, m.Mat4) { count++ })
	return count
}

// Bounds holds the axis-aligned bounding box of a scene or mesh.
type Bounds struct {
	Min [3]float32
	Max [3]float32
}

// Size returns the box extents per axis.
func (b Bounds) Size() [3]float32 {
	return [3]float32{b.Max[0] - b.Min[0], b.Max[1] - b.Min[1], b.Max[2] - b.Min[2]}
}

// Center returns the box center point.
func (b Bounds) Center() [3]float32 {
	return [3]float32{
		(b.Min[0] + b.Max[0]) / 2,
		(b.Min[1] + b.Max[1]) / 2,
		(b.Min[2] + b.Max[2]) / 2,
	}
}

// Bounds returns the world-space bounding box over all mesh vertices.
// The zero Bounds is returned for a scene with no geometry.
func (s *Scene) Bounds() Bounds {
	bounds := Bounds{
		Min: [3]float32{1e10, 1e10, 1e10},
		Max: [3]float32{-1e10, -1e10, -1e10},
	}

	found := false
	s.Walk(func(n *Node, world m.Mat4) {
		if n.Mesh == nil {
			return
		}
		for _, p := range n.Mesh.Positions {
			found = true
			updateBounds(&bounds, world.TransformPoint(p))
		}
	})

	if !found {
		return Bounds{}
	}
	return bounds
}

func updateBounds(b *Bounds, p [3]float32) {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] {
			b.Min[i] = p[i]
		}
		if p[i] > b.Max[i] {
			b.Max[i] = p[i]
		}
	}
}
