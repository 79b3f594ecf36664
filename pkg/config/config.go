// Package config provides configuration loading for the framepump CLI.
package config

import (
	"fmt"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/user/framepump/pkg/codecid"
	"github.com/user/framepump/pkg/duration"
	"github.com/user/framepump/pkg/orchestrator"
	"github.com/user/framepump/pkg/ports"
)

// Engines lists the accepted engine names.
var Engines = []string{"ffmpeg", "mp4"}

// Config represents the full configuration file.
type Config struct {
	Engine    string `yaml:"engine"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	Workers   int    `yaml:"workers"`

	Precise PreciseConfig `yaml:"precise"`
	Codec   CodecConfig   `yaml:"codec"`
	Report  ReportConfig  `yaml:"report"`
	Sheet   SheetConfig   `yaml:"contact_sheet"`
}

// PreciseConfig controls the seek-and-scan duration estimator.
type PreciseConfig struct {
	Enabled   bool      `yaml:"enabled"`
	Windows   []float64 `yaml:"windows"`
	ScanLimit int       `yaml:"scan_limit"`
}

// CodecConfig names the codec to identify.
type CodecConfig struct {
	Name string `yaml:"name"`
	Tag  string `yaml:"tag"`
}

// ReportConfig controls report output.
type ReportConfig struct {
	Format string `yaml:"format"`
}

// SheetConfig controls the contact sheet.
type SheetConfig struct {
	Cells      int `yaml:"cells"`
	Columns    int `yaml:"columns"`
	ThumbWidth int `yaml:"thumb_width"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		Engine:    "ffmpeg",
		LogLevel:  "warn",
		LogFormat: "console",
		Workers:   4,

		Precise: PreciseConfig{
			Enabled:   true,
			Windows:   append([]float64(nil), duration.DefaultWindows...),
			ScanLimit: duration.DefaultScanLimit,
		},
		Codec: CodecConfig{
			Name: codecid.NotchLC.Name,
			Tag:  codecid.NotchLC.AltTag,
		},
		Report: ReportConfig{
			Format: "text",
		},
		Sheet: SheetConfig{
			Cells:      12,
			Columns:    4,
			ThumbWidth: 160,
		},
	}
}

// Load parses YAML over the defaults.
func Load(data []byte) (Config, error) {
	cfg := Defaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(fs ports.FileSystem, path string) (Config, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return Defaults(), err
	}
	return Load(data)
}

// Validate checks enumerated values and ranges.
func (c Config) Validate() error {
	if !lo.Contains(Engines, c.Engine) {
		return fmt.Errorf("config: unknown engine %q", c.Engine)
	}
	if !lo.Contains([]string{"console", "json"}, c.LogFormat) {
		return fmt.Errorf("config: unknown log format %q", c.LogFormat)
	}
	if !lo.Contains([]string{"debug", "info", "warn", "error", "quiet"}, c.LogLevel) {
		return fmt.Errorf("config: unknown log level %q", c.LogLevel)
	}
	if lo.SomeBy(c.Precise.Windows, func(w float64) bool { return w < 0 }) {
		return fmt.Errorf("config: negative precise window in %v", c.Precise.Windows)
	}
	if c.Precise.ScanLimit < 0 {
		return fmt.Errorf("config: negative scan limit %d", c.Precise.ScanLimit)
	}
	if len(c.Codec.Tag) > 4 {
		return fmt.Errorf("config: codec tag %q is longer than 4 characters", c.Codec.Tag)
	}
	return nil
}

// Level returns the parsed log level.
func (c Config) Level() ports.LogLevel {
	return ports.ParseLogLevel(c.LogLevel)
}

// Target returns the codec identification target.
func (c Config) Target() codecid.Target {
	return codecid.Target{Name: c.Codec.Name, AltTag: c.Codec.Tag}
}

// ToOrchestratorConfig converts Config to orchestrator.Config for path.
func (c Config) ToOrchestratorConfig(path string) orchestrator.Config {
	oc := orchestrator.DefaultConfig()
	oc.Path = path
	oc.Target = c.Target()
	oc.Precise = c.Precise.Enabled
	if len(c.Precise.Windows) > 0 {
		oc.Windows = c.Precise.Windows
	}
	if c.Precise.ScanLimit > 0 {
		oc.ScanLimit = c.Precise.ScanLimit
	}
	if c.Sheet.Cells > 0 {
		oc.SheetCells = c.Sheet.Cells
	}
	if c.Sheet.Columns > 0 {
		oc.SheetColumns = c.Sheet.Columns
	}
	if c.Sheet.ThumbWidth > 0 {
		oc.ThumbWidth = c.Sheet.ThumbWidth
	}
	return oc
}
