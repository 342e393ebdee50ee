// Package config loads cg.toml and merges it with defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/xizheyin/callgraph4rs/internal/resolve"
)

const FileName = "cg.toml"

type Config struct {
	Output   OutputConfig   `toml:"output"`
	Analysis AnalysisConfig `toml:"analysis"`
	Query    QueryConfig    `toml:"query"`
	Debug    DebugConfig    `toml:"debug"`

	// Path is the file the values came from; empty for defaults.
	Path string `toml:"-"`
}

type OutputConfig struct {
	Dir  string `toml:"dir"`
	JSON bool   `toml:"json"`
}

type AnalysisConfig struct {
	Dedup         bool   `toml:"dedup"`
	WithoutArgs   bool   `toml:"without_args"`
	Jobs          int    `toml:"jobs"`
	IndirectCalls string `toml:"indirect_calls"`
	EntryPoint    string `toml:"entry_point"`
	Timeout       string `toml:"timeout"`
	MaxInstances  int    `toml:"max_instances"`
}

type QueryConfig struct {
	FindCallers       []string `toml:"find_callers"`
	FindCallersByHash string   `toml:"find_callers_by_hash"`
}

type DebugConfig struct {
	EmitIR       bool `toml:"emit_ir"`
	ShowAllFuncs bool `toml:"show_all_funcs"`
	Timings      bool `toml:"timings"`
}

// Default returns the configuration used without a cg.toml.
func Default() Config {
	return Config{
		Output: OutputConfig{Dir: "./target"},
		Analysis: AnalysisConfig{
			Dedup:         false,
			Jobs:          runtime.GOMAXPROCS(0),
			IndirectCalls: resolve.PolicyFunctions.String(),
		},
	}
}

// Policy parses Analysis.IndirectCalls.
func (c *Config) Policy() (resolve.IndirectPolicy, error) {
	return resolve.ParsePolicy(c.Analysis.IndirectCalls)
}

// TimeoutDuration parses Analysis.Timeout; empty means none.
func (c *Config) TimeoutDuration() (time.Duration, error) {
	if strings.TrimSpace(c.Analysis.Timeout) == "" {
		return 0, nil
	}
	return time.ParseDuration(c.Analysis.Timeout)
}

// Find walks up from startDir looking for cg.toml.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load decodes path over Default and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	cfg.Path = path
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if meta.IsDefined("output", "dir") && strings.TrimSpace(cfg.Output.Dir) == "" {
		return Config{}, fmt.Errorf("%s: [output].dir must not be empty", path)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Discover loads the nearest cg.toml above startDir, or defaults when
// there is none.
func Discover(startDir string) (Config, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return Config{}, err
	}
	if !ok {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks value ranges and cross-field constraints.
func (c *Config) Validate() error {
	var errs []error
	if c.Analysis.Jobs < 0 {
		errs = append(errs, fmt.Errorf("[analysis].jobs must be >= 0, got %d", c.Analysis.Jobs))
	}
	if c.Analysis.MaxInstances < 0 {
		errs = append(errs, fmt.Errorf("[analysis].max_instances must be >= 0, got %d", c.Analysis.MaxInstances))
	}
	if _, err := c.Policy(); err != nil {
		errs = append(errs, fmt.Errorf("[analysis].indirect_calls: %w", err))
	}
	if d, err := c.TimeoutDuration(); err != nil {
		errs = append(errs, fmt.Errorf("[analysis].timeout: %w", err))
	} else if d < 0 {
		errs = append(errs, fmt.Errorf("[analysis].timeout must not be negative"))
	}
	if len(c.Query.FindCallers) > 0 && c.Query.FindCallersByHash != "" {
		errs = append(errs, errors.New("[query].find_callers and [query].find_callers_by_hash are mutually exclusive"))
	}
	return errors.Join(errs...)
}
