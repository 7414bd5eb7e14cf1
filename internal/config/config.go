// Package config handles conversion engine configuration loading and
// management.
package config

// Config holds all engine settings.
type Config struct {
	Tessellation TessellationConfig `yaml:"tessellation"`
	Limits       LimitsConfig       `yaml:"limits"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// TessellationConfig holds B-Rep approximation quality settings.
type TessellationConfig struct {
	LinearTolerance  float32 `yaml:"linear_tolerance"`  // max chord deviation, model units
	AngularTolerance float32 `yaml:"angular_tolerance"` // max facet normal deviation, degrees
	WeldTolerance    float32 `yaml:"weld_tolerance"`    // vertex merge distance, 0 disables welding
}

// LimitsConfig caps the geometry a single conversion will accept.
type LimitsConfig struct {
	MaxVertices int `yaml:"max_vertices"`
	MaxFaces    int `yaml:"max_faces"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Tessellation: TessellationConfig{
			LinearTolerance:  0.01,
			AngularTolerance: 30,
			WeldTolerance:    0,
		},
		Limits: LimitsConfig{
			MaxVertices: 50_000_000,
			MaxFaces:    100_000_000,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
