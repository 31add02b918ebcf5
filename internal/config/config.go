// Package config loads CLI settings: built-in defaults, then an optional YAML file, then
// PDFKIT_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Lllllllleong/pdfworkbench/internal/gcp"
	"github.com/Lllllllleong/pdfworkbench/internal/pages"
	"github.com/Lllllllleong/pdfworkbench/internal/pdfdoc"
)

var (
	// ErrConfigNotFound is returned when an explicitly named config file is missing.
	ErrConfigNotFound = errors.New("config file not found")
	// ErrInvalidFormat is returned when the config file cannot be parsed.
	ErrInvalidFormat = errors.New("invalid config format")
	// ErrInvalidValue is returned when a setting has an unusable value.
	ErrInvalidValue = errors.New("invalid config value")
)

// Config is the full CLI configuration.
type Config struct {
	Output  OutputConfig  `yaml:"output"`
	Merge   MergeConfig   `yaml:"merge"`
	Split   SplitConfig   `yaml:"split"`
	Convert ConvertConfig `yaml:"convert"`
	Log     LogConfig     `yaml:"log"`
}

// OutputConfig selects where outputs are written.
type OutputConfig struct {
	Backend string `yaml:"backend"` // local | gcs
	Dir     string `yaml:"dir"`
	Bucket  string `yaml:"bucket"`
	Prefix  string `yaml:"prefix"`
}

type MergeConfig struct {
	Compression string `yaml:"compression"`
	OutputName  string `yaml:"output_name"`
}

type SplitConfig struct {
	// Pause between successive saves in split-all mode.
	Pause time.Duration `yaml:"pause"`
}

type ConvertConfig struct {
	PageSize    string `yaml:"page_size"`
	Orientation string `yaml:"orientation"`
	Quality     int    `yaml:"quality"`
	OutputName  string `yaml:"output_name"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Output:  OutputConfig{Backend: "local", Dir: "."},
		Merge:   MergeConfig{Compression: string(pdfdoc.CompressionMedium), OutputName: "merged-document.pdf"},
		Split:   SplitConfig{Pause: 100 * time.Millisecond},
		Convert: ConvertConfig{PageSize: string(pages.SizeAuto), Orientation: string(pages.OrientationAuto), Quality: 90, OutputName: "images-to-pdf.pdf"},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

// Load builds the configuration. path names a YAML file; when empty, PDFKIT_CONFIG is
// consulted, and when that is empty too only defaults and environment apply.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = gcp.GetEnv("PDFKIT_CONFIG", "")
	}
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return fmt.Errorf("failed to access config file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrInvalidFormat, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data, cfg)
}

// Parse decodes YAML into cfg, keeping values the document does not set. Unknown keys are
// rejected.
func Parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.Output.Dir = gcp.GetEnv("PDFKIT_OUTPUT_DIR", cfg.Output.Dir)
	cfg.Output.Backend = gcp.GetEnv("PDFKIT_SINK", cfg.Output.Backend)
	cfg.Output.Bucket = gcp.GetEnv("PDFKIT_BUCKET", cfg.Output.Bucket)
	cfg.Merge.Compression = gcp.GetEnv("PDFKIT_COMPRESSION", cfg.Merge.Compression)
	cfg.Convert.PageSize = gcp.GetEnv("PDFKIT_PAGE_SIZE", cfg.Convert.PageSize)
	cfg.Convert.Orientation = gcp.GetEnv("PDFKIT_ORIENTATION", cfg.Convert.Orientation)
	cfg.Log.Level = gcp.GetEnv("PDFKIT_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = gcp.GetEnv("PDFKIT_LOG_FORMAT", cfg.Log.Format)

	if v := gcp.GetEnv("PDFKIT_SPLIT_PAUSE", ""); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: PDFKIT_SPLIT_PAUSE: %v", ErrInvalidValue, err)
		}
		cfg.Split.Pause = d
	}
	return nil
}

// parseDuration accepts Go durations and bare integers as milliseconds.
func parseDuration(s string) (time.Duration, error) {
	if ms, err := strconv.Atoi(s); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(s)
}

// Validate checks enumerated settings.
func (c Config) Validate() error {
	var problems []string
	switch c.Output.Backend {
	case "local", "":
	case "gcs":
		if c.Output.Bucket == "" {
			problems = append(problems, "output.bucket is required for the gcs backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown output.backend %q", c.Output.Backend))
	}
	if _, err := pdfdoc.ParseCompressionLevel(c.Merge.Compression); err != nil {
		problems = append(problems, "merge.compression: "+err.Error())
	}
	if _, err := pages.ParseSize(c.Convert.PageSize); err != nil {
		problems = append(problems, "convert.page_size: "+err.Error())
	}
	if _, err := pages.ParseOrientation(c.Convert.Orientation); err != nil {
		problems = append(problems, "convert.orientation: "+err.Error())
	}
	if c.Convert.Quality < 1 || c.Convert.Quality > 100 {
		problems = append(problems, fmt.Sprintf("convert.quality must be between 1 and 100, got %d", c.Convert.Quality))
	}
	if c.Split.Pause < 0 {
		problems = append(problems, "split.pause must not be negative")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("unknown log.level %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("unknown log.format %q", c.Log.Format))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidValue, strings.Join(problems, "; "))
	}
	return nil
}
