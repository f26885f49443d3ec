package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	p := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(t.TempDir(), "")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	conv, err := cfg.Conventions()
	require.NoError(t, err)
	assert.Equal(t, "rest", conv.RestTask)
	assert.Equal(t, 3, conv.TaskFmapRun)
	assert.True(t, conv.TaskPattern.MatchString("gambling"))
}

func TestLoad_DatasetFile(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "task_pattern: \"emotion|language\"\nmax_rest_runs: 4\njobs: 8\n")

	cfg, err := Load(root, "")
	require.NoError(t, err)

	assert.Equal(t, "emotion|language", cfg.TaskPattern)
	assert.Equal(t, 4, cfg.MaxRestRuns)
	assert.Equal(t, 8, cfg.Jobs)
	assert.Equal(t, "rest", cfg.RestTask, "unset keys keep their defaults")
}

func TestLoad_ExplicitPath(t *testing.T) {
	p := writeConfig(t, t.TempDir(), "linkage_field: IntendedFor\npair_size: 2\n")

	cfg, err := Load(t.TempDir(), p)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.PairSize)

	_, err = Load(t.TempDir(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_EmptyFile(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "")

	cfg, err := Load(root, "")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "rest_tsk: rest\n")

	_, err := Load(root, "")
	assert.ErrorContains(t, err, "rest_tsk")
}

func TestApplyFlags(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "rest_task: resting\njobs: 8\nmax_fmap_runs: 5\n")
	cfg, err := Load(root, "")
	require.NoError(t, err)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs)
	require.NoError(t, fs.Parse([]string{"--jobs", "2", "--index-db", "/tmp/x.db"}))
	require.NoError(t, cfg.ApplyFlags(fs))

	assert.Equal(t, 2, cfg.Jobs, "flags override the file")
	assert.Equal(t, "/tmp/x.db", cfg.IndexDB)
	assert.Equal(t, "resting", cfg.RestTask, "unset flags keep the file value")
	assert.Equal(t, 5, cfg.MaxFmapRuns)
}

func TestApplyFlags_UnregisteredFlags(t *testing.T) {
	cfg := Default()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.IntP(FlagJobs, "j", 1, "")
	require.NoError(t, fs.Parse([]string{"-j", "3"}))

	require.NoError(t, cfg.ApplyFlags(fs))
	assert.Equal(t, 3, cfg.Jobs)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"bad regexp", func(c *Config) { c.TaskPattern = "gambling|(" }, "task_pattern"},
		{"zero pair size", func(c *Config) { c.PairSize = 0 }, "pair_size must be positive"},
		{"negative jobs", func(c *Config) { c.Jobs = -1 }, "jobs must be positive"},
		{"empty linkage field", func(c *Config) { c.LinkageField = "" }, "linkage_field"},
		{"empty rest task", func(c *Config) { c.RestTask = "" }, "rest_task"},
		{"empty extension", func(c *Config) { c.FuncExtension = "" }, "func_extension"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)

			_, convErr := cfg.Conventions()
			assert.Error(t, convErr)
		})
	}
}

func TestConventions_NormalizesExtensions(t *testing.T) {
	cfg := Default()
	cfg.FuncExtension = "nii"
	cfg.SidecarExtension = ".json"

	conv, err := cfg.Conventions()
	require.NoError(t, err)
	assert.Equal(t, ".nii", conv.FuncExtension)
	assert.Equal(t, ".json", conv.SidecarExtension)
}
