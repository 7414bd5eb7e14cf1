// XYZ point-cloud parser (text, specialized family, input only).
package formats

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/tessera3d/meshconv/pkg/scene"
)

// XYZ format errors.
var (
	ErrEmptyXYZData = errors.New("empty XYZ data")
)

// ParseXYZ parses an XYZ point cloud: one point per line, whitespace or
// comma separated, extra per-point columns (intensity, color) ignored.
// The result has positions only, no faces.
func ParseXYZ(data []byte) (scene.FaceSet, error) {
	fs := scene.FaceSet{Name: "pointcloud", Material: scene.NoMaterial}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}
		line = strings.ReplaceAll(line, ",", " ")

		fields := strings.Fields(line)
		p, err := parseFloat3(fields)
		if err != nil {
			return fs, fmt.Errorf("line %d: point: %w", lineNo, err)
		}
		fs.Positions = append(fs.Positions, p)
	}
	if err := scanner.Err(); err != nil {
		return fs, fmt.Errorf("reading XYZ data: %w", err)
	}

	if len(fs.Positions) == 0 {
		return fs, ErrEmptyXYZData
	}
	return fs, nil
}
