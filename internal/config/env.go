package config

import (
	"os"
	"strconv"
)

// applyEnv applies MESHCONV_* environment overrides to the config.
// The engine is a library, so overrides come from the environment
// rather than CLI flags.
func applyEnv(cfg *Config) {
	if v := os.Getenv("MESHCONV_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MESHCONV_LOG_FILE"); v != "" {
		cfg.Logging.LogFile = v
	}
	if v, ok := envFloat("MESHCONV_LINEAR_TOLERANCE"); ok && v > 0 {
		cfg.Tessellation.LinearTolerance = v
	}
	if v, ok := envFloat("MESHCONV_ANGULAR_TOLERANCE"); ok && v > 0 {
		cfg.Tessellation.AngularTolerance = v
	}
	if v, ok := envFloat("MESHCONV_WELD_TOLERANCE"); ok && v >= 0 {
		cfg.Tessellation.WeldTolerance = v
	}
	if v, ok := envInt("MESHCONV_MAX_VERTICES"); ok && v > 0 {
		cfg.Limits.MaxVertices = v
	}
	if v, ok := envInt("MESHCONV_MAX_FACES"); ok && v > 0 {
		cfg.Limits.MaxFaces = v
	}
}

func envFloat(name string) (float32, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 32)
	if err != nil {
		return 0, false
	}
	return float32(f), true
}

func envInt(name string) (int, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
