package gpuimage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadConfigEmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg != DefaultConfig() {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gpuimage.yaml")
	data := "scale_type: fit\nworkers: 8\nlog_level: debug\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ScaleType != "fit" || cfg.Workers != 8 || cfg.LogLevel != "debug" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Backend != BackendSoftware || cfg.PrimingPasses != DefaultPrimingPasses {
		t.Errorf("defaults not kept: %+v", cfg)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name, data string
	}{
		{"bad yaml", "workers: [1, 2\n"},
		{"bad backend", "backend: vulkan\n"},
		{"bad workers", "workers: 0\n"},
		{"bad level", "log_level: loud\n"},
	}
	for _, tt := range tests {
		path := filepath.Join(dir, tt.name+".yaml")
		if err := os.WriteFile(path, []byte(tt.data), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfig(path); err == nil {
			t.Errorf("%s: LoadConfig should fail", tt.name)
		}
	}
	if _, err := LoadConfig(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("missing file should fail")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"GPUIMAGE_BACKEND":        "ebiten",
		"GPUIMAGE_PRIMING_PASSES": " 3 ",
		"GPUIMAGE_LOG_FILE":       "/tmp/gpuimage.log",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(lookup); err != nil {
		t.Fatal(err)
	}
	if cfg.Backend != BackendEbiten || cfg.PrimingPasses != 3 || cfg.LogFile != "/tmp/gpuimage.log" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Workers != 4 {
		t.Errorf("unset variable changed Workers to %d", cfg.Workers)
	}

	env["GPUIMAGE_WORKERS"] = "many"
	if err := cfg.ApplyEnv(lookup); err == nil {
		t.Error("non-numeric GPUIMAGE_WORKERS should fail")
	}
}

func TestConfigOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ScaleType = "fit"
	opts, err := cfg.Options()
	if err != nil {
		t.Fatal(err)
	}
	g := New(opts...)
	if g.ScaleType() != ScaleFit {
		t.Errorf("ScaleType = %v, want fit", g.ScaleType())
	}
	if len(g.surfaceOpts) != 2 {
		t.Errorf("surface options = %d, want 2", len(g.surfaceOpts))
	}

	cfg.Backend = "metal"
	if _, err := cfg.Options(); err == nil {
		t.Error("unknown backend should fail")
	}
}

func TestValidateHeadless(t *testing.T) {
	tests := []struct {
		backend string
		wantErr error
	}{
		{"", nil},
		{BackendSoftware, nil},
		{BackendEbiten, ErrNoGameLoop},
		{"EBITEN", ErrNoGameLoop},
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		cfg.Backend = tt.backend
		err := cfg.ValidateHeadless()
		if tt.wantErr == nil && err != nil {
			t.Errorf("backend %q: %v", tt.backend, err)
		}
		if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
			t.Errorf("backend %q: err = %v, want %v", tt.backend, err, tt.wantErr)
		}
	}

	cfg := DefaultConfig()
	cfg.Workers = 0
	if err := cfg.ValidateHeadless(); err == nil || errors.Is(err, ErrNoGameLoop) {
		t.Errorf("invalid workers: err = %v", err)
	}
}
