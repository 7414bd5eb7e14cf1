// meshconv is a CLI utility for converting between 3D geometry formats.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tessera3d/meshconv/internal/config"
	"github.com/tessera3d/meshconv/internal/logger"
	"github.com/tessera3d/meshconv/pkg/brep"
	"github.com/tessera3d/meshconv/pkg/container"
	"github.com/tessera3d/meshconv/pkg/convert"
	"github.com/tessera3d/meshconv/pkg/formats"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "convert", "c":
		cmdConvert(args)
	case "info":
		cmdInfo(args)
	case "formats":
		cmdFormats()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`meshconv - 3D geometry format converter

Usage:
  meshconv <command> [options]

Commands:
  convert <input...> -o <output>  Convert files to the output's format
  info <input...>                 Show geometry statistics
  formats                         List supported formats

Examples:
  meshconv convert model.obj model.mtl -o model.glb
  meshconv convert part.step -o part.stl -linear 0.005
  meshconv info scan.ply`)
}

func cmdConvert(args []string) {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	output := fs.String("o", "", "Output file (extension selects the target format)")
	source := fs.String("from", "", "Source format (default: primary input extension)")
	linear := fs.Float64("linear", 0, "Linear tessellation tolerance")
	angular := fs.Float64("angular", 0, "Angular tessellation tolerance, degrees")
	weld := fs.Float64("weld", 0, "Vertex welding distance (0 = off)")
	ascii := fs.Bool("ascii", false, "Write STL output as text instead of binary")
	fs.Parse(args)

	if fs.NArg() < 1 || *output == "" {
		fmt.Fprintln(os.Stderr, "Usage: meshconv convert <input...> -o <output>")
		os.Exit(1)
	}

	files := readInputs(fs.Args())
	src := *source
	if src == "" {
		src = ext(fs.Arg(0))
	}
	target := ext(*output)

	engine, cfg := newEngine()

	var opts []convert.JobOption
	if *linear > 0 || *angular > 0 {
		tol := brep.Tolerances{
			Linear:     float32(*linear),
			AngularDeg: float32(*angular),
		}
		if tol.Linear <= 0 {
			tol.Linear = cfg.Tessellation.LinearTolerance
		}
		if tol.AngularDeg <= 0 {
			tol.AngularDeg = cfg.Tessellation.AngularTolerance
		}
		opts = append(opts, convert.WithTolerances(tol))
	}
	if *weld > 0 {
		opts = append(opts, convert.WithWeldTolerance(float32(*weld)))
	}
	if *ascii {
		opts = append(opts, convert.WithASCIISTL())
	}

	out, err := engine.Convert(files, src, target, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	dir := filepath.Dir(*output)
	for i, f := range out {
		path := filepath.Join(dir, f.Name)
		if i == 0 {
			path = *output
		}
		if err := os.WriteFile(path, f.Data, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", path, err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %s (%d bytes)\n", path, len(f.Data))
	}
}

func cmdInfo(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: meshconv info <input...>")
		os.Exit(1)
	}

	files := readInputs(args)
	src := ext(args[0])

	engine, _ := newEngine()
	data, err := engine.ImportToCanonical(files, src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	s, err := container.Decode(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	bounds := s.Bounds()
	size := bounds.Size()
	fmt.Printf("File:      %s\n", args[0])
	fmt.Printf("Format:    %s\n", src)
	fmt.Printf("Meshes:    %d\n", s.MeshCount())
	fmt.Printf("Nodes:     %d\n", s.NodeCount())
	fmt.Printf("Triangles: %d\n", s.FaceCount())
	fmt.Printf("Materials: %d\n", len(s.Materials))
	fmt.Printf("Bounds:    [%.3f %.3f %.3f] .. [%.3f %.3f %.3f]\n",
		bounds.Min[0], bounds.Min[1], bounds.Min[2],
		bounds.Max[0], bounds.Max[1], bounds.Max[2])
	fmt.Printf("Size:      %.3f x %.3f x %.3f\n", size[0], size[1], size[2])
}

func cmdFormats() {
	fmt.Println("Input formats: ", strings.Join(formats.ListInputFormats(), ", "))
	fmt.Println("Output formats:", strings.Join(formats.ListOutputFormats(), ", "))
}

// newEngine builds the conversion engine with console logging at the
// configured level.
func newEngine() (*convert.Engine, *config.Config) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Logging.Level, cfg.Logging.LogFile)
	return convert.New(convert.WithLogger(log)), cfg
}

func readInputs(paths []string) []convert.InputFile {
	var files []convert.InputFile
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		files = append(files, convert.InputFile{Name: filepath.Base(path), Data: data})
	}
	return files
}

func ext(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}
