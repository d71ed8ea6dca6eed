package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/menta2k/photostrip"
	"github.com/menta2k/photostrip/pkg/cropper"
	"github.com/menta2k/photostrip/pkg/layout"
	"github.com/menta2k/photostrip/pkg/types"
	"github.com/menta2k/photostrip/pkg/vision"
)

// Config holds the application configuration
type Config struct {
	Canvas    CanvasConfig    `yaml:"canvas"`
	PrintPage PrintPageConfig `yaml:"print_page"`
	Detection DetectionConfig `yaml:"detection"`
	Cropper   CropperConfig   `yaml:"cropper"`
	Output    OutputConfig    `yaml:"output"`
	Frames    FramesConfig    `yaml:"frames"`
	Legacy    LegacyConfig    `yaml:"legacy"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
}

// CanvasConfig is the canonical strip canvas shared by preview and print
type CanvasConfig struct {
	Width   int `yaml:"width"`
	Height  int `yaml:"height"`
	Padding int `yaml:"padding"`
}

// PrintPageConfig is the physical page holding two strips
type PrintPageConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// DetectionConfig holds configuration for slot detection
type DetectionConfig struct {
	AlphaCutoff        int `yaml:"alpha_cutoff"`
	MinSlotSize        int `yaml:"min_slot_size"`
	LowConfidenceSlots int `yaml:"low_confidence_slots"`
	MinAutoSlots       int `yaml:"min_auto_slots"`
}

// CropperConfig holds configuration for photo fitting
type CropperConfig struct {
	Resample string `yaml:"resample"`
}

// OutputConfig holds configuration for output generation
type OutputConfig struct {
	Format   string `yaml:"format"`
	Quality  int    `yaml:"quality"`
	Lossless bool   `yaml:"lossless"`
	Dir      string `yaml:"dir"`
}

// FramesConfig locates frame templates and their legacy families
type FramesConfig struct {
	Dir      string            `yaml:"dir"`
	Families map[string]string `yaml:"families"`
}

// LegacyConfig optionally replaces the built-in legacy coordinate table
type LegacyConfig struct {
	File string `yaml:"file"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr    string `yaml:"addr"`
	Workers int    `yaml:"workers"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// Default returns a configuration with default values
func Default() *Config {
	canvas := layout.DefaultCanvas()
	det := vision.DefaultConfig()
	return &Config{
		Canvas:    CanvasConfig{Width: canvas.Width, Height: canvas.Height, Padding: canvas.Padding},
		PrintPage: PrintPageConfig{Width: 1200, Height: 1800},
		Detection: DetectionConfig{
			AlphaCutoff:        int(det.AlphaCutoff),
			MinSlotSize:        det.MinSlotSize,
			LowConfidenceSlots: det.LowConfidenceSlots,
			MinAutoSlots:       1,
		},
		Cropper: CropperConfig{Resample: "lanczos"},
		Output: OutputConfig{
			Format:  "jpg",
			Quality: 95,
			Dir:     "./output",
		},
		Frames: FramesConfig{
			Dir: "./frames",
			Families: map[string]string{
				"Vintage Insomania": string(types.FamilyVintage),
				"bw_vintage":        string(types.FamilyVintage),
			},
		},
		Server: ServerConfig{
			Addr:    ":8080",
			Workers: runtime.NumCPU(),
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// LoadFromFile loads configuration from a YAML file. Missing keys keep
// their defaults.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// Load reads filename when it is set, otherwise the defaults, then applies
// environment overrides and validates
func Load(filename string) (*Config, error) {
	config := Default()
	if filename != "" {
		var err error
		if config, err = LoadFromFile(filename); err != nil {
			return nil, err
		}
	}
	config.ApplyEnv(os.LookupEnv)
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// ApplyEnv overrides settings from PHOTOSTRIP_* environment variables
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("PHOTOSTRIP_ADDR"); ok && v != "" {
		c.Server.Addr = v
	}
	if v, ok := lookup("PHOTOSTRIP_FRAMES_DIR"); ok && v != "" {
		c.Frames.Dir = v
	}
	if v, ok := lookup("PHOTOSTRIP_OUTPUT_DIR"); ok && v != "" {
		c.Output.Dir = v
	}
	if v, ok := lookup("PHOTOSTRIP_LOG_LEVEL"); ok && v != "" {
		c.Log.Level = v
	}
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(filename string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := c.canvas().Validate(); err != nil {
		return fmt.Errorf("canvas: %w", err)
	}

	if c.PrintPage.Width < 2 || c.PrintPage.Height < 1 {
		return fmt.Errorf("print_page must be at least 2x1, got %dx%d", c.PrintPage.Width, c.PrintPage.Height)
	}

	if c.Detection.AlphaCutoff < 1 || c.Detection.AlphaCutoff > 255 {
		return fmt.Errorf("detection.alpha_cutoff must be between 1 and 255")
	}

	if c.Detection.MinSlotSize < 0 {
		return fmt.Errorf("detection.min_slot_size must be non-negative")
	}

	if c.Detection.MinAutoSlots < 1 {
		return fmt.Errorf("detection.min_auto_slots must be at least 1")
	}

	if _, err := cropper.ParseFilter(c.Cropper.Resample); err != nil {
		return fmt.Errorf("cropper.resample: %w", err)
	}

	switch strings.ToLower(c.Output.Format) {
	case "jpg", "jpeg", "png", "webp":
	default:
		return fmt.Errorf("output.format must be jpg, png or webp, got %q", c.Output.Format)
	}

	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return fmt.Errorf("output.quality must be between 1 and 100")
	}

	for id, fam := range c.Frames.Families {
		if strings.TrimSpace(fam) == "" {
			return fmt.Errorf("frames.families[%q] is empty", id)
		}
	}

	if c.Server.Workers < 0 {
		return fmt.Errorf("server.workers must be non-negative")
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	return nil
}

func (c *Config) canvas() layout.Canvas {
	return layout.Canvas{Width: c.Canvas.Width, Height: c.Canvas.Height, Padding: c.Canvas.Padding}
}

// EngineOptions converts the configuration into engine options. The legacy
// table file, when configured, is read here.
func (c *Config) EngineOptions() (photostrip.Options, error) {
	filter, err := cropper.ParseFilter(c.Cropper.Resample)
	if err != nil {
		return photostrip.Options{}, err
	}

	families := make(map[string]types.Family, len(c.Frames.Families))
	for id, fam := range c.Frames.Families {
		families[id] = types.Family(strings.ToLower(strings.TrimSpace(fam)))
	}

	var legacy *layout.LegacyTable
	if c.Legacy.File != "" {
		if legacy, err = layout.LoadLegacyTable(c.Legacy.File); err != nil {
			return photostrip.Options{}, err
		}
	}

	workers := c.Server.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}

	return photostrip.Options{
		Canvas:      c.canvas(),
		PrintWidth:  c.PrintPage.Width,
		PrintHeight: c.PrintPage.Height,
		Detection: vision.DetectionConfig{
			AlphaCutoff:        uint8(c.Detection.AlphaCutoff),
			MinSlotSize:        c.Detection.MinSlotSize,
			LowConfidenceSlots: c.Detection.LowConfidenceSlots,
		},
		MinAutoSlots: c.Detection.MinAutoSlots,
		Filter:       filter,
		FramesDir:    c.Frames.Dir,
		Families:     families,
		Legacy:       legacy,
		Workers:      workers,
		Output: photostrip.OutputOptions{
			Dir:      c.Output.Dir,
			Format:   strings.ToLower(c.Output.Format),
			Quality:  c.Output.Quality,
			Lossless: c.Output.Lossless,
		},
	}, nil
}

// GetConfigPath returns the default configuration file path, used when
// --config is not given and the file exists
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./photostrip.yaml"
	}
	return filepath.Join(home, ".config", "photostrip", "config.yaml")
}
