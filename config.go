package gpuimage

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Backend names accepted by Config.Backend.
const (
	BackendSoftware = "software"
	BackendEbiten   = "ebiten"
)

// Config holds engine options. Filter chains are not part of it.
type Config struct {
	// Backend selects the off-screen device: "software" or "ebiten".
	Backend string `yaml:"backend"`
	// ScaleType is "crop" or "fit".
	ScaleType string `yaml:"scale_type"`
	// PrimingPasses is the number of frames drawn before a read-back.
	PrimingPasses int `yaml:"priming_passes"`
	// LogLevel is debug, info, warn or error.
	LogLevel string `yaml:"log_level"`
	// LogFile, if set, receives a rotated copy of the log.
	LogFile string `yaml:"log_file"`
	// Workers bounds the number of images processed concurrently.
	Workers int `yaml:"workers"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Backend:       BackendSoftware,
		ScaleType:     ScaleCrop.String(),
		PrimingPasses: DefaultPrimingPasses,
		LogLevel:      "info",
		Workers:       4,
	}
}

// LoadConfig reads a YAML file over the defaults. An empty path returns the
// defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("gpuimage: read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("gpuimage: parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from GPUIMAGE_BACKEND, GPUIMAGE_SCALE_TYPE,
// GPUIMAGE_PRIMING_PASSES, GPUIMAGE_LOG_LEVEL, GPUIMAGE_LOG_FILE and
// GPUIMAGE_WORKERS. A nil lookup uses os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	var errs []error
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("gpuimage: %s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	str("GPUIMAGE_BACKEND", &c.Backend)
	str("GPUIMAGE_SCALE_TYPE", &c.ScaleType)
	num("GPUIMAGE_PRIMING_PASSES", &c.PrimingPasses)
	str("GPUIMAGE_LOG_LEVEL", &c.LogLevel)
	str("GPUIMAGE_LOG_FILE", &c.LogFile)
	num("GPUIMAGE_WORKERS", &c.Workers)
	return errors.Join(errs...)
}

// Validate checks every field.
func (c Config) Validate() error {
	var errs []error
	if _, err := c.DeviceFactory(); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParseScaleType(c.ScaleType); err != nil {
		errs = append(errs, err)
	}
	if c.PrimingPasses < 1 {
		errs = append(errs, fmt.Errorf("gpuimage: priming_passes must be at least 1, got %d", c.PrimingPasses))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("gpuimage: workers must be at least 1, got %d", c.Workers))
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("gpuimage: unknown log level %q", c.LogLevel))
	}
	return errors.Join(errs...)
}

// ValidateHeadless checks the config for use without a window, as in the
// CLI. The ebiten backend cannot read pixels back before a game loop runs.
func (c Config) ValidateHeadless() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if strings.EqualFold(c.Backend, BackendEbiten) {
		return fmt.Errorf("%w: use backend %q for headless work", ErrNoGameLoop, BackendSoftware)
	}
	return nil
}

// DeviceFactory returns the factory for the configured backend.
func (c Config) DeviceFactory() (DeviceFactory, error) {
	switch strings.ToLower(c.Backend) {
	case "", BackendSoftware:
		return NewSoftwareDevice, nil
	case BackendEbiten:
		return NewEbitenDevice, nil
	default:
		return nil, fmt.Errorf("gpuimage: unknown backend %q", c.Backend)
	}
}

// SurfaceOptions returns the off-screen surface options for the config.
func (c Config) SurfaceOptions() ([]SurfaceOption, error) {
	dev, err := c.DeviceFactory()
	if err != nil {
		return nil, err
	}
	return []SurfaceOption{WithDevice(dev), WithPrimingPasses(c.PrimingPasses)}, nil
}

// Options returns GPUImage options for the config.
func (c Config) Options() ([]Option, error) {
	so, err := c.SurfaceOptions()
	if err != nil {
		return nil, err
	}
	st, err := ParseScaleType(c.ScaleType)
	if err != nil {
		return nil, err
	}
	return []Option{WithSurfaceOptions(so...), WithScaleType(st)}, nil
}
