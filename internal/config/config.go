// Package config loads the pairing conventions and run settings.
//
// Settings are layered: built-in defaults, then the dataset's .bidsfix.yaml
// (or the file given with --config), then flags set on the command line.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/example/bidsfix/internal/core/pairing"
)

// FileName is the per-dataset config file, looked up in the dataset root.
const FileName = ".bidsfix.yaml"

// Config holds the pairing conventions and run settings.
type Config struct {
	RestTask         string `yaml:"rest_task"`
	TaskPattern      string `yaml:"task_pattern"`  // regexp matched against task labels
	TaskFmapRun      int    `yaml:"task_fmap_run"` // field-map run reserved for task scans
	MaxRestRuns      int    `yaml:"max_rest_runs"`
	MaxFmapRuns      int    `yaml:"max_fmap_runs"`
	PairSize         int    `yaml:"pair_size"`
	FuncExtension    string `yaml:"func_extension"`
	SidecarExtension string `yaml:"sidecar_extension"`
	LinkageField     string `yaml:"linkage_field"`
	Jobs             int    `yaml:"jobs"`
	IndexDB          string `yaml:"index_db"` // empty walks the dataset tree
}

// Default returns the HCP conventions with sequential processing.
func Default() *Config {
	conv := pairing.DefaultConventions()
	return &Config{
		RestTask:         conv.RestTask,
		TaskPattern:      conv.TaskPattern.String(),
		TaskFmapRun:      conv.TaskFmapRun,
		MaxRestRuns:      conv.MaxRestRuns,
		MaxFmapRuns:      conv.MaxFmapRuns,
		PairSize:         conv.PairSize,
		FuncExtension:    conv.FuncExtension,
		SidecarExtension: conv.SidecarExtension,
		LinkageField:     conv.LinkageField,
		Jobs:             1,
	}
}

// Load returns the defaults overlaid with the config file. An explicit path
// must exist; otherwise <datasetRoot>/.bidsfix.yaml is used when present.
func Load(datasetRoot, explicitPath string) (*Config, error) {
	cfg := Default()

	path := explicitPath
	if path == "" {
		path = filepath.Join(datasetRoot, FileName)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if explicitPath == "" && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cfg.decode(data); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Flag names shared by the commands.
const (
	FlagRestTask         = "rest-task"
	FlagTaskPattern      = "task-pattern"
	FlagTaskFmapRun      = "task-fmap-run"
	FlagMaxRestRuns      = "max-rest-runs"
	FlagMaxFmapRuns      = "max-fmap-runs"
	FlagPairSize         = "pair-size"
	FlagFuncExtension    = "func-extension"
	FlagSidecarExtension = "sidecar-extension"
	FlagLinkageField     = "linkage-field"
	FlagJobs             = "jobs"
	FlagIndexDB          = "index-db"
)

// BindFlags registers a flag for every setting. Defaults shown in help are
// the built-in ones; only flags set explicitly override the config file.
func BindFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String(FlagRestTask, d.RestTask, "task label of resting-state scans")
	fs.String(FlagTaskPattern, d.TaskPattern, "regexp selecting task scans")
	fs.Int(FlagTaskFmapRun, d.TaskFmapRun, "field-map run reserved for task scans")
	fs.Int(FlagMaxRestRuns, d.MaxRestRuns, "maximum resting-state runs per session")
	fs.Int(FlagMaxFmapRuns, d.MaxFmapRuns, "maximum field-map runs per session")
	fs.Int(FlagPairSize, d.PairSize, "field-map sidecars per pair")
	fs.String(FlagFuncExtension, d.FuncExtension, "extension of functional images")
	fs.String(FlagSidecarExtension, d.SidecarExtension, "extension of field-map sidecars")
	fs.String(FlagLinkageField, d.LinkageField, "sidecar field holding the linkage")
	fs.IntP(FlagJobs, "j", d.Jobs, "sessions processed concurrently")
	fs.String(FlagIndexDB, d.IndexDB, "query this sqlite index instead of walking the dataset")
}

// ApplyFlags overlays the flags that were set on the command line.
// Flags that were never registered on fs are ignored.
func (c *Config) ApplyFlags(fs *pflag.FlagSet) error {
	strs := map[string]*string{
		FlagRestTask:         &c.RestTask,
		FlagTaskPattern:      &c.TaskPattern,
		FlagFuncExtension:    &c.FuncExtension,
		FlagSidecarExtension: &c.SidecarExtension,
		FlagLinkageField:     &c.LinkageField,
		FlagIndexDB:          &c.IndexDB,
	}
	for name, dst := range strs {
		if fs.Lookup(name) == nil || !fs.Changed(name) {
			continue
		}
		v, err := fs.GetString(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	ints := map[string]*int{
		FlagTaskFmapRun: &c.TaskFmapRun,
		FlagMaxRestRuns: &c.MaxRestRuns,
		FlagMaxFmapRuns: &c.MaxFmapRuns,
		FlagPairSize:    &c.PairSize,
		FlagJobs:        &c.Jobs,
	}
	for name, dst := range ints {
		if fs.Lookup(name) == nil || !fs.Changed(name) {
			continue
		}
		v, err := fs.GetInt(name)
		if err != nil {
			return err
		}
		*dst = v
	}
	return nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if c.RestTask == "" {
		errs = append(errs, errors.New("rest_task must not be empty"))
	}
	if _, err := regexp.Compile(c.TaskPattern); err != nil {
		errs = append(errs, fmt.Errorf("task_pattern: %w", err))
	}
	for name, v := range map[string]int{
		"task_fmap_run": c.TaskFmapRun,
		"max_rest_runs": c.MaxRestRuns,
		"max_fmap_runs": c.MaxFmapRuns,
		"pair_size":     c.PairSize,
		"jobs":          c.Jobs,
	} {
		if v < 1 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", name, v))
		}
	}
	if c.FuncExtension == "" || c.SidecarExtension == "" {
		errs = append(errs, errors.New("func_extension and sidecar_extension must not be empty"))
	}
	if c.LinkageField == "" {
		errs = append(errs, errors.New("linkage_field must not be empty"))
	}
	return errors.Join(errs...)
}

// Conventions converts the settings into pairing conventions.
func (c *Config) Conventions() (pairing.Conventions, error) {
	if err := c.Validate(); err != nil {
		return pairing.Conventions{}, err
	}
	return pairing.Conventions{
		RestTask:         c.RestTask,
		TaskPattern:      regexp.MustCompile(c.TaskPattern),
		TaskFmapRun:      c.TaskFmapRun,
		MaxRestRuns:      c.MaxRestRuns,
		MaxFmapRuns:      c.MaxFmapRuns,
		PairSize:         c.PairSize,
		FuncExtension:    ensureDot(c.FuncExtension),
		SidecarExtension: ensureDot(c.SidecarExtension),
		LinkageField:     c.LinkageField,
	}, nil
}

func ensureDot(ext string) string {
	if ext != "" && ext[0] != '.' {
		return "." + ext
	}
	return ext
}
