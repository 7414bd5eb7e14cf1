package brep

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	m "github.com/tessera3d/meshconv/pkg/math"
	"github.com/tessera3d/meshconv/pkg/scene"
)

// STEP parsing errors.
var (
	ErrNotSTEPFile        = errors.New("missing ISO-10303-21 header")
	ErrNoDataSection      = errors.New("missing DATA section")
	ErrNoSolids           = errors.New("no solids or shells in DATA section")
	ErrUnsupportedSurface = errors.New("non-planar surface")
)

// stepKernel tessellates the planar subset of STEP Part 21 files:
// faceted and manifold solids whose faces lie on PLANE surfaces, with
// straight EDGE_CURVE edges or explicit POLY_LOOP bounds. Curved
// surfaces are reported as unsupported rather than approximated.
type stepKernel struct{}

func (k *stepKernel) Name() string { return "step-planar" }

func (k *stepKernel) Tessellate(data []byte, tol Tolerances) ([]scene.FaceSet, error) {
	entities, err := parseStepEntities(data)
	if err != nil {
		return nil, err
	}

	b := &stepBuilder{
		entities: entities,
		weld:     make(map[[3]int32]int),
		tol:      tol.Linear,
	}
	return b.build()
}

// stepEntity is one instance record from the DATA section:
// #id = TYPE(arg, arg, ...);
type stepEntity struct {
	typ  string
	args string
}

func parseStepEntities(data []byte) (map[int]stepEntity, error) {
	text := stripStepComments(string(data))
	if !strings.Contains(text, "ISO-10303-21") {
		return nil, ErrNotSTEPFile
	}

	start := strings.Index(text, "DATA;")
	if start < 0 {
		return nil, ErrNoDataSection
	}
	body := text[start+len("DATA;"):]
	if end := strings.Index(body, "ENDSEC;"); end >= 0 {
		body = body[:end]
	}

	entities := make(map[int]stepEntity)
	for _, record := range splitStepRecords(body) {
		eq := indexOutsideString(record, '=')
		if eq < 0 {
			continue
		}
		idText := strings.TrimSpace(record[:eq])
		if !strings.HasPrefix(idText, "#") {
			continue
		}
		id, err := strconv.Atoi(idText[1:])
		if err != nil {
			continue
		}

		rhs := strings.TrimSpace(record[eq+1:])
		open := strings.IndexByte(rhs, '(')
		if open <= 0 {
			// Complex instances "( A() B() )" fall outside the
			// planar subset and are skipped.
			continue
		}
		typ := strings.TrimSpace(rhs[:open])
		args := strings.TrimSuffix(rhs[open+1:], ")")
		entities[id] = stepEntity{typ: typ, args: args}
	}
	return entities, nil
}

func stripStepComments(text string) string {
	var sb strings.Builder
	for {
		open := strings.Index(text, "/*")
		if open < 0 {
			sb.WriteString(text)
			return sb.String()
		}
		sb.WriteString(text[:open])
		end := strings.Index(text[open+2:], "*/")
		if end < 0 {
			return sb.String()
		}
		text = text[open+2+end+2:]
	}
}

// splitStepRecords cuts the DATA body at every ';' that sits outside a
// quoted string, yielding one instance record per element.
func splitStepRecords(body string) []string {
	var records []string
	var inString bool
	last := 0
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '\'':
			inString = !inString
		case ';':
			if !inString {
				records = append(records, strings.TrimSpace(body[last:i]))
				last = i + 1
			}
		}
	}
	return records
}

func indexOutsideString(s string, c byte) int {
	var inString bool
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\'':
			inString = !inString
		case s[i] == c && !inString:
			return i
		}
	}
	return -1
}

// splitStepArgs splits an argument list at top-level commas, keeping
// nested lists and quoted strings intact.
func splitStepArgs(args string) []string {
	var out []string
	var depth int
	var inString bool
	last := 0
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case '\'':
			inString = !inString
		case '(':
			if !inString {
				depth++
			}
		case ')':
			if !inString {
				depth--
			}
		case ',':
			if !inString && depth == 0 {
				out = append(out, strings.TrimSpace(args[last:i]))
				last = i + 1
			}
		}
	}
	if tail := strings.TrimSpace(args[last:]); tail != "" {
		out = append(out, tail)
	}
	return out
}

func stepRef(arg string) (int, bool) {
	arg = strings.TrimSpace(arg)
	if !strings.HasPrefix(arg, "#") {
		return 0, false
	}
	id, err := strconv.Atoi(arg[1:])
	if err != nil {
		return 0, false
	}
	return id, true
}

func stepRefList(arg string) []int {
	arg = strings.TrimSpace(arg)
	arg = strings.TrimPrefix(arg, "(")
	arg = strings.TrimSuffix(arg, ")")
	var refs []int
	for _, part := range splitStepArgs(arg) {
		if id, ok := stepRef(part); ok {
			refs = append(refs, id)
		}
	}
	return refs
}

func stepString(arg string) string {
	return strings.Trim(strings.TrimSpace(arg), "'")
}

func stepBool(arg string) bool {
	return strings.TrimSpace(arg) == ".T."
}

// stepBuilder walks the entity graph from solids down to cartesian
// points, welding coincident vertices at the linear tolerance.
type stepBuilder struct {
	entities map[int]stepEntity

	positions [][3]float32
	weld      map[[3]int32]int
	tol       float32
}

func (b *stepBuilder) build() ([]scene.FaceSet, error) {
	var sets []scene.FaceSet

	for _, id := range sortedIDs(b.entities) {
		e := b.entities[id]
		switch e.typ {
		case "MANIFOLD_SOLID_BREP", "FACETED_BREP", "BREP_WITH_VOIDS":
			args := splitStepArgs(e.args)
			if len(args) < 2 {
				continue
			}
			shellRef, ok := stepRef(args[1])
			if !ok {
				continue
			}
			fs, err := b.buildShell(shellRef, stepString(args[0]))
			if err != nil {
				return nil, err
			}
			sets = append(sets, fs)
		}
	}

	if len(sets) == 0 {
		// Shell-based models carry geometry without a solid wrapper.
		for _, id := range sortedIDs(b.entities) {
			e := b.entities[id]
			if e.typ != "CLOSED_SHELL" && e.typ != "OPEN_SHELL" {
				continue
			}
			fs, err := b.buildShell(id, "")
			if err != nil {
				return nil, err
			}
			sets = append(sets, fs)
		}
	}

	if len(sets) == 0 {
		return nil, ErrNoSolids
	}
	return sets, nil
}

func (b *stepBuilder) buildShell(shellRef int, name string) (scene.FaceSet, error) {
	shell, ok := b.entities[shellRef]
	if !ok {
		return scene.FaceSet{}, fmt.Errorf("dangling shell reference #%d", shellRef)
	}
	args := splitStepArgs(shell.args)
	if name == "" {
		name = stepString(args[0])
	}
	if name == "" {
		name = "shell"
	}

	// Each shell welds into its own vertex table.
	b.positions = nil
	b.weld = make(map[[3]int32]int)

	fs := scene.FaceSet{Name: name, Material: scene.NoMaterial}
	if len(args) < 2 {
		return fs, nil
	}

	for _, faceRef := range stepRefList(args[1]) {
		loops, err := b.buildFace(faceRef)
		if err != nil {
			return scene.FaceSet{}, err
		}
		fs.Faces = append(fs.Faces, loops...)
	}
	fs.Positions = b.positions
	return fs, nil
}

// buildFace resolves an ADVANCED_FACE (or plain FACE_SURFACE) into
// polygon loops of welded vertex indices. Only the outer bound
// contributes; interior bounds cut holes, which the planar subset does
// not model.
func (b *stepBuilder) buildFace(faceRef int) ([][]int, error) {
	face, ok := b.entities[faceRef]
	if !ok {
		return nil, fmt.Errorf("dangling face reference #%d", faceRef)
	}
	args := splitStepArgs(face.args)
	if len(args) < 2 {
		return nil, nil
	}

	if len(args) >= 3 {
		if surfRef, ok := stepRef(args[2]); ok {
			if surf, ok := b.entities[surfRef]; ok && surf.typ != "PLANE" {
				return nil, fmt.Errorf("%w: %s at #%d", ErrUnsupportedSurface, surf.typ, surfRef)
			}
		}
	}
	faceSense := len(args) < 4 || stepBool(args[3])

	var outer, fallback []int
	for _, boundRef := range stepRefList(args[1]) {
		bound, ok := b.entities[boundRef]
		if !ok {
			continue
		}
		boundArgs := splitStepArgs(bound.args)

		var loopRef int
		var orientation bool
		switch bound.typ {
		case "FACE_OUTER_BOUND", "FACE_BOUND":
			if len(boundArgs) < 3 {
				continue
			}
			loopRef, ok = stepRef(boundArgs[1])
			orientation = stepBool(boundArgs[2])
		default:
			// The bound list can reference loops directly.
			loopRef, ok = boundRef, true
			orientation = true
		}
		if !ok {
			continue
		}

		loop, err := b.buildLoop(loopRef)
		if err != nil {
			return nil, err
		}
		if len(loop) < 3 {
			continue
		}
		if orientation != faceSense {
			reverseLoop(loop)
		}

		if bound.typ == "FACE_BOUND" {
			// Interior bounds cut holes the planar subset does not
			// model; the first one still serves as the face outline
			// when no FACE_OUTER_BOUND exists.
			if fallback == nil {
				fallback = loop
			}
			continue
		}
		if outer == nil {
			outer = loop
		}
	}

	if outer == nil {
		outer = fallback
	}
	if outer == nil {
		return nil, nil
	}
	return [][]int{outer}, nil
}

func (b *stepBuilder) buildLoop(loopRef int) ([]int, error) {
	loop, ok := b.entities[loopRef]
	if !ok {
		return nil, fmt.Errorf("dangling loop reference #%d", loopRef)
	}
	args := splitStepArgs(loop.args)
	if len(args) < 2 {
		return nil, nil
	}

	switch loop.typ {
	case "POLY_LOOP":
		var indices []int
		for _, ptRef := range stepRefList(args[1]) {
			p, err := b.cartesianPoint(ptRef)
			if err != nil {
				return nil, err
			}
			indices = append(indices, b.weldPoint(p))
		}
		return indices, nil

	case "EDGE_LOOP":
		var indices []int
		for _, oeRef := range stepRefList(args[1]) {
			start, err := b.orientedEdgeStart(oeRef)
			if err != nil {
				return nil, err
			}
			idx := b.weldPoint(start)
			if len(indices) == 0 || indices[len(indices)-1] != idx {
				indices = append(indices, idx)
			}
		}
		if len(indices) > 1 && indices[0] == indices[len(indices)-1] {
			indices = indices[:len(indices)-1]
		}
		return indices, nil
	}
	return nil, nil
}

// orientedEdgeStart resolves the starting vertex of an ORIENTED_EDGE,
// honoring the edge's traversal flag. Edges are treated as straight
// segments, so chaining the start vertices reproduces the loop polygon.
func (b *stepBuilder) orientedEdgeStart(oeRef int) (m.Vec3, error) {
	oe, ok := b.entities[oeRef]
	if !ok || oe.typ != "ORIENTED_EDGE" {
		return m.Vec3{}, fmt.Errorf("dangling oriented edge reference #%d", oeRef)
	}
	args := splitStepArgs(oe.args)
	if len(args) < 5 {
		return m.Vec3{}, fmt.Errorf("malformed ORIENTED_EDGE #%d", oeRef)
	}

	edgeRef, ok := stepRef(args[3])
	if !ok {
		return m.Vec3{}, fmt.Errorf("malformed ORIENTED_EDGE #%d", oeRef)
	}
	edge, ok := b.entities[edgeRef]
	if !ok || edge.typ != "EDGE_CURVE" {
		return m.Vec3{}, fmt.Errorf("dangling edge curve reference #%d", edgeRef)
	}
	edgeArgs := splitStepArgs(edge.args)
	if len(edgeArgs) < 3 {
		return m.Vec3{}, fmt.Errorf("malformed EDGE_CURVE #%d", edgeRef)
	}

	vertexArg := edgeArgs[1]
	if !stepBool(args[4]) {
		vertexArg = edgeArgs[2]
	}
	vertexRef, ok := stepRef(vertexArg)
	if !ok {
		return m.Vec3{}, fmt.Errorf("malformed EDGE_CURVE #%d", edgeRef)
	}

	vertex, ok := b.entities[vertexRef]
	if !ok || vertex.typ != "VERTEX_POINT" {
		return m.Vec3{}, fmt.Errorf("dangling vertex reference #%d", vertexRef)
	}
	vertexArgs := splitStepArgs(vertex.args)
	if len(vertexArgs) < 2 {
		return m.Vec3{}, fmt.Errorf("malformed VERTEX_POINT #%d", vertexRef)
	}
	ptRef, ok := stepRef(vertexArgs[1])
	if !ok {
		return m.Vec3{}, fmt.Errorf("malformed VERTEX_POINT #%d", vertexRef)
	}
	return b.cartesianPoint(ptRef)
}

func (b *stepBuilder) cartesianPoint(ptRef int) (m.Vec3, error) {
	pt, ok := b.entities[ptRef]
	if !ok || pt.typ != "CARTESIAN_POINT" {
		return m.Vec3{}, fmt.Errorf("dangling point reference #%d", ptRef)
	}
	args := splitStepArgs(pt.args)
	if len(args) < 2 {
		return m.Vec3{}, fmt.Errorf("malformed CARTESIAN_POINT #%d", ptRef)
	}

	coords := strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(args[1]), "("), ")")
	var v [3]float64
	for i, part := range splitStepArgs(coords) {
		if i >= 3 {
			break
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return m.Vec3{}, fmt.Errorf("malformed CARTESIAN_POINT #%d: %w", ptRef, err)
		}
		v[i] = f
	}
	return m.Vec3{X: float32(v[0]), Y: float32(v[1]), Z: float32(v[2])}, nil
}

// weldPoint deduplicates vertices on a grid of the linear tolerance and
// returns the welded index.
func (b *stepBuilder) weldPoint(p m.Vec3) int {
	tol := b.tol
	if tol <= 0 {
		tol = 1e-6
	}
	key := [3]int32{
		int32(p.X / tol),
		int32(p.Y / tol),
		int32(p.Z / tol),
	}
	if idx, ok := b.weld[key]; ok {
		return idx
	}
	idx := len(b.positions)
	b.positions = append(b.positions, p.Array())
	b.weld[key] = idx
	return idx
}

func reverseLoop(loop []int) {
	for i, j := 0, len(loop)-1; i < j; i, j = i+1, j-1 {
		loop[i], loop[j] = loop[j], loop[i]
	}
}

func sortedIDs(entities map[int]stepEntity) []int {
	ids := make([]int, 0, len(entities))
	for id := range entities {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
