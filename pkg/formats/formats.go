// Package formats provides the format capability registry and the
// parsers/writers of the mesh-interchange family.
package formats

// Parser sanity limits. Counts beyond these are treated as corrupt
// headers rather than honest geometry.
const (
	maxVertexCount = 50_000_000
	maxFaceCount   = 100_000_000
)
