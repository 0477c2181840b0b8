// Package config handles layered YAML configuration with environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds all vcardclean configuration.
type Config struct {
	Output  Output  `yaml:"output"`
	Display Display `yaml:"display"`
	Log     Log     `yaml:"log"`
	Report  Report  `yaml:"report"`
}

// Output holds where and in which formats cleaned files are written.
type Output struct {
	Dir     string   `yaml:"dir"`                                        // Empty: next to the input file.
	Suffix  string   `yaml:"suffix" validate:"required,excludesall=/\\"` // Appended to the input's stem.
	Formats []string `yaml:"formats" validate:"min=1,dive,oneof=vcf csv"` // Formats offered for writing.
}

// Display holds terminal output settings.
type Display struct {
	Plain bool `yaml:"plain"` // Force plain text output even on a TTY.
}

// Log holds diagnostic logging settings.
type Log struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
	File   string `yaml:"file"` // Append logs here instead of stderr.
}

// Report holds run report settings.
type Report struct {
	Enabled      bool   `yaml:"enabled"`
	TemplatesDir string `yaml:"templates_dir"` // Local templates that override the embedded ones.
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Output: Output{
			Suffix:  "___CLEANED",
			Formats: []string{"vcf", "csv"},
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
		Report: Report{
			TemplatesDir: ".vcardclean/templates",
		},
	}
}

// DefaultPaths returns the config files LoadLayered reads, user-wide first.
func DefaultPaths() []string {
	return []string{
		os.ExpandEnv("$HOME/.config/vcardclean/config.yaml"),
		".vcardclean.yaml",
	}
}

// Load reads a single YAML config file at path and returns a Config.
// For merging multiple config sources, use LoadLayered instead.
// If the file does not exist, defaults are returned without error.
// If the file contains invalid YAML or unknown fields, an error is returned.
func Load(path string) (*Config, error) {
	return LoadLayered(path)
}

// LoadLayered loads config from multiple paths with increasing priority.
// Later paths override earlier ones. Missing files are skipped.
func LoadLayered(paths ...string) (*Config, error) {
	cfg := DefaultConfig()

	for _, path := range paths {
		layer, err := loadLayer(path)
		if err != nil {
			return nil, err
		}
		if layer == nil {
			continue
		}
		cfg.merge(layer)
	}

	return &cfg, nil
}

var validate = newValidator()

// newValidator reports fields by their YAML names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks that config values are usable.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("config: %w", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("config: %s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	switch fe.Tag() {
	case "required":
		return field + " cannot be empty"
	case "min":
		return fmt.Sprintf("%s must list at least %s entry", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fmt.Sprint(fe.Value()))
	case "excludesall":
		return field + " must not contain path separators"
	default:
		return fmt.Sprintf("%s failed %q check", field, fe.Tag())
	}
}

// ApplyEnv applies environment variable overrides to the config.
// Supported variables: VCARDCLEAN_OUTPUT_DIR, VCARDCLEAN_FORMATS (comma
// separated), VCARDCLEAN_LOG_LEVEL.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("VCARDCLEAN_OUTPUT_DIR"); v != "" {
		c.Output.Dir = v
	}
	if v := os.Getenv("VCARDCLEAN_FORMATS"); v != "" {
		formats := SplitList(v)
		if len(formats) == 0 {
			return fmt.Errorf("config: invalid VCARDCLEAN_FORMATS %q: no formats listed", v)
		}
		c.Output.Formats = formats
	}
	if v := os.Getenv("VCARDCLEAN_LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	return nil
}

// SplitList splits a comma separated list, dropping blanks and lowercasing
// entries.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// rawConfig mirrors Config but uses pointers to distinguish set vs unset fields.
type rawConfig struct {
	Output  *rawOutput  `yaml:"output"`
	Display *rawDisplay `yaml:"display"`
	Log     *rawLog     `yaml:"log"`
	Report  *rawReport  `yaml:"report"`
}

type rawOutput struct {
	Dir     *string   `yaml:"dir"`
	Suffix  *string   `yaml:"suffix"`
	Formats *[]string `yaml:"formats"`
}

type rawDisplay struct {
	Plain *bool `yaml:"plain"`
}

type rawLog struct {
	Level  *string `yaml:"level"`
	Format *string `yaml:"format"`
	File   *string `yaml:"file"`
}

type rawReport struct {
	Enabled      *bool   `yaml:"enabled"`
	TemplatesDir *string `yaml:"templates_dir"`
}

// loadLayer reads a single config file into a rawConfig for selective merging.
// Returns nil if the file does not exist. Rejects unknown fields.
func loadLayer(path string) (*rawConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if len(data) == 0 {
		return nil, nil
	}

	var raw rawConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		// Comment-only YAML files produce EOF with no decoded content.
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return &raw, nil
}

// merge applies non-nil fields from a rawConfig layer onto this Config.
func (c *Config) merge(layer *rawConfig) {
	if o := layer.Output; o != nil {
		if o.Dir != nil {
			c.Output.Dir = *o.Dir
		}
		if o.Suffix != nil {
			c.Output.Suffix = *o.Suffix
		}
		if o.Formats != nil {
			c.Output.Formats = *o.Formats
		}
	}
	if layer.Display != nil && layer.Display.Plain != nil {
		c.Display.Plain = *layer.Display.Plain
	}
	if l := layer.Log; l != nil {
		if l.Level != nil {
			c.Log.Level = *l.Level
		}
		if l.Format != nil {
			c.Log.Format = *l.Format
		}
		if l.File != nil {
			c.Log.File = *l.File
		}
	}
	if r := layer.Report; r != nil {
		if r.Enabled != nil {
			c.Report.Enabled = *r.Enabled
		}
		if r.TemplatesDir != nil {
			c.Report.TemplatesDir = *r.TemplatesDir
		}
	}
}
