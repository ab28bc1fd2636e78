package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/handservo/internal/controller"
	"github.com/ayusman/handservo/internal/detector"
	"github.com/ayusman/handservo/internal/servo"
)

// ConfigFileName is read from the data directory when present.
const ConfigFileName = "config.yaml"

// FileConfig holds tuning knobs that rarely change between runs. Flags
// win over the file; unset fields keep the built-in defaults.
type FileConfig struct {
	Detector struct {
		MinDetectionConfidence float64 `yaml:"min_detection_confidence"`
		MinTrackingConfidence  float64 `yaml:"min_tracking_confidence"`
		Script                 string  `yaml:"script"`
		Python                 string  `yaml:"python"`
	} `yaml:"detector"`
	Camera struct {
		Width  int `yaml:"width"`
		Height int `yaml:"height"`
	} `yaml:"camera"`
	MotionThreshold float64 `yaml:"motion_threshold"`
	ChangeThreshold int     `yaml:"change_threshold"`
}

// loadFileConfig reads dir/config.yaml. A missing file is not an error.
func loadFileConfig(dir string) (FileConfig, error) {
	var c FileConfig

	b, err := os.ReadFile(filepath.Join(dir, ConfigFileName))
	if errors.Is(err, fs.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, fmt.Errorf("parse %s: %w", ConfigFileName, err)
	}
	if c.ChangeThreshold < 0 {
		return c, fmt.Errorf("parse %s: change_threshold must not be negative", ConfigFileName)
	}
	return c, nil
}

// detectorConfig overlays the file settings on detector.DefaultConfig.
func (c FileConfig) detectorConfig() detector.Config {
	cfg := detector.DefaultConfig()
	if c.Detector.MinDetectionConfidence > 0 {
		cfg.MinConfidence = c.Detector.MinDetectionConfidence
	}
	if c.Detector.MinTrackingConfidence > 0 {
		cfg.MinTrackingConf = c.Detector.MinTrackingConfidence
	}
	cfg.ScriptPath = c.Detector.Script
	cfg.PythonPath = c.Detector.Python
	return cfg
}

// sessionConfig overlays the file settings on controller.DefaultConfig.
func (c FileConfig) sessionConfig() controller.Config {
	cfg := controller.DefaultConfig()
	if c.ChangeThreshold > 0 {
		cfg.Threshold = servo.Angle(c.ChangeThreshold)
	}
	return cfg
}
