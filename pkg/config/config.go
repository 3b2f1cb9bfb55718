// Package config provides configuration loading and management for
// aocascore. It handles loading configuration from YAML files and provides
// the documented clinical defaults for every tunable parameter.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config represents the engine configuration loaded from YAML
type Config struct {
	// Detection parameters
	Detection struct {
		// ThresholdHU is the calcium detection threshold in Hounsfield
		// units. 130 is the standard for non-contrast CT.
		ThresholdHU int `yaml:"thresholdHU"`

		// MinLesionVolumeMM3 is the noise floor for box and paint runs,
		// in mm³. Lesions exactly at the floor are retained.
		MinLesionVolumeMM3 float64 `yaml:"minLesionVolumeMM3"`

		// MinLesionAreaMM2 is the per-slice noise floor for
		// point-and-click runs, in mm², never below two pixels.
		MinLesionAreaMM2 float64 `yaml:"minLesionAreaMM2"`
	} `yaml:"detection"`

	// Scoring parameters
	Scoring struct {
		// MassCalibration converts mean density to equivalent calcium
		// mass (mg per mm³ at 1000 HU)
		MassCalibration float64 `yaml:"massCalibration"`

		// CorrectOverlap samples thin overlapping acquisitions at the
		// 3 mm standard increment
		CorrectOverlap bool `yaml:"correctOverlap"`
	} `yaml:"scoring"`

	// Statistics parameters
	Statistics struct {
		// AngularSectors is the bull's-eye sector count
		AngularSectors int `yaml:"angularSectors"`

		// Percentiles is the reported percentile set, in percent
		Percentiles []float64 `yaml:"percentiles"`
	} `yaml:"statistics"`

	// Processing parameters
	Processing struct {
		// NumWorkers caps the goroutines used for per-lesion measurement
		NumWorkers int `yaml:"numWorkers"`
	} `yaml:"processing"`

	// Output parameters
	Output struct {
		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with the documented defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Detection.ThresholdHU = 130
	cfg.Detection.MinLesionVolumeMM3 = 1.5
	cfg.Detection.MinLesionAreaMM2 = 1.0

	cfg.Scoring.MassCalibration = 1.2
	cfg.Scoring.CorrectOverlap = false

	cfg.Statistics.AngularSectors = 6
	cfg.Statistics.Percentiles = []float64{25, 50, 75, 90}

	cfg.Processing.NumWorkers = runtime.NumCPU()

	cfg.Output.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file.
// If the file doesn't exist, it returns the default configuration.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file.
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the
// specified path.
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}
