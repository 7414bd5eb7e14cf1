// Wavefront MTL material library parser and writer (OBJ companion).
package formats

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/tessera3d/meshconv/pkg/scene"
)

// ParseMTL parses a material library. Unknown statements are skipped;
// an empty or comment-only library yields no materials.
func ParseMTL(data []byte) []scene.Material {
	var materials []scene.Material
	var current *scene.Material

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		switch fields[0] {
		case "newmtl":
			if current != nil {
				materials = append(materials, *current)
			}
			name := ""
			if len(fields) > 1 {
				name = fields[1]
			}
			current = &scene.Material{Name: name, Alpha: 1}

		case "Kd":
			if current != nil {
				current.Diffuse = parseColor(fields[1:])
			}
		case "Ka":
			if current != nil {
				current.Ambient = parseColor(fields[1:])
			}
		case "Ks":
			if current != nil {
				current.Specular = parseColor(fields[1:])
			}
		case "d":
			if current != nil && len(fields) > 1 {
				if f, err := strconv.ParseFloat(fields[1], 32); err == nil {
					current.Alpha = float32(f)
				}
			}
		case "Tr":
			// Inverted transparency convention.
			if current != nil && len(fields) > 1 {
				if f, err := strconv.ParseFloat(fields[1], 32); err == nil {
					current.Alpha = 1 - float32(f)
				}
			}
		case "map_Kd":
			if current != nil && len(fields) > 1 {
				current.Texture = fields[len(fields)-1]
			}
		}
	}

	if current != nil {
		materials = append(materials, *current)
	}
	return materials
}

func parseColor(fields []string) [3]float32 {
	var c [3]float32
	for i := 0; i < 3 && i < len(fields); i++ {
		if f, err := strconv.ParseFloat(fields[i], 32); err == nil {
			c[i] = float32(f)
		}
	}
	return c
}

// WriteMTL serializes a material table to MTL text.
func WriteMTL(materials []scene.Material) []byte {
	var buf bytes.Buffer
	for i, mat := range materials {
		name := mat.Name
		if name == "" {
			name = fmt.Sprintf("material%d", i)
		}
		fmt.Fprintf(&buf, "newmtl %s\n", name)
		fmt.Fprintf(&buf, "Ka %g %g %g\n", mat.Ambient[0], mat.Ambient[1], mat.Ambient[2])
		fmt.Fprintf(&buf, "Kd %g %g %g\n", mat.Diffuse[0], mat.Diffuse[1], mat.Diffuse[2])
		fmt.Fprintf(&buf, "Ks %g %g %g\n", mat.Specular[0], mat.Specular[1], mat.Specular[2])
		fmt.Fprintf(&buf, "d %g\n", mat.Alpha)
		if mat.Texture != "" {
			fmt.Fprintf(&buf, "map_Kd %s\n", mat.Texture)
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}
