// Package config loads overcol settings from YAML files, the environment
// and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dlclark/regexp2"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/praetorian-inc/overcol/pkg/policy"
	"github.com/praetorian-inc/overcol/pkg/scanner"
	"github.com/praetorian-inc/overcol/pkg/style"
)

// FileName is the per-project config file looked up in the working
// directory.
const FileName = ".overcol.yaml"

// EnvPrefix prefixes environment overrides, e.g. OVERCOL_COLUMN_LIMIT.
const EnvPrefix = "OVERCOL"

// Config holds all settings.
type Config struct {
	ColumnLimit     int              `mapstructure:"column_limit" yaml:"column_limit"`
	FallbackWidth   int              `mapstructure:"fallback_width" yaml:"fallback_width,omitempty"`
	IncludeComments bool             `mapstructure:"include_comments" yaml:"include_comments"`
	TabWidth        int              `mapstructure:"tab_width" yaml:"tab_width"`
	Resolver        ResolverConfig   `mapstructure:"resolver" yaml:"resolver"`
	HighlightStyle  style.Descriptor `mapstructure:"highlight_style" yaml:"highlight_style"`
	Exclude         []string         `mapstructure:"exclude" yaml:"exclude"`
	Scan            ScanConfig       `mapstructure:"scan" yaml:"scan"`
}

// ResolverConfig is the declarative column limit resolver. With neither
// field set, every line gets ColumnLimit.
type ResolverConfig struct {
	FirstLine int            `mapstructure:"first_line" yaml:"first_line,omitempty"`
	Languages map[string]int `mapstructure:"languages" yaml:"languages,omitempty"`
}

// ScanConfig configures file enumeration.
type ScanConfig struct {
	MaxFileSize   int64 `mapstructure:"max_file_size" yaml:"max_file_size"`
	IncludeHidden bool  `mapstructure:"include_hidden" yaml:"include_hidden"`
}

// DefaultMaxFileSize skips files larger than 10 MiB.
const DefaultMaxFileSize = 10 * 1024 * 1024

// Defaults returns the default configuration.
func Defaults() Config {
	return Config{
		ColumnLimit:     policy.DefaultLimit,
		IncludeComments: true,
		TabWidth:        8,
		HighlightStyle:  style.Default(),
		Exclude:         []string{},
		Scan: ScanConfig{
			MaxFileSize: DefaultMaxFileSize,
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("column_limit", d.ColumnLimit)
	v.SetDefault("fallback_width", d.FallbackWidth)
	v.SetDefault("include_comments", d.IncludeComments)
	v.SetDefault("tab_width", d.TabWidth)
	v.SetDefault("highlight_style.inherit", d.HighlightStyle.Inherit)
	v.SetDefault("highlight_style.underline", d.HighlightStyle.Underline)
	v.SetDefault("exclude", d.Exclude)
	v.SetDefault("scan.max_file_size", d.Scan.MaxFileSize)
	v.SetDefault("scan.include_hidden", d.Scan.IncludeHidden)
}

// Load reads the configuration. When path is empty the lookup order is
// .overcol.yaml in the working directory, then
// ~/.config/overcol/config.yaml. Missing files are not an error; defaults
// apply. Environment variables prefixed with OVERCOL_ override file values.
func Load(path string) (Config, *viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	switch {
	case path != "":
		v.SetConfigFile(path)
	default:
		if _, err := os.Stat(FileName); err == nil {
			v.SetConfigFile(FileName)
		} else {
			if home, err := os.UserHomeDir(); err == nil {
				v.AddConfigPath(filepath.Join(home, ".config", "overcol"))
			}
			v.SetConfigName("config")
			v.SetConfigType("yaml")
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, nil, err
	}
	return cfg, v, nil
}

// Validate checks the values that the engine would otherwise reject at
// scan time.
func (c Config) Validate() error {
	if err := policy.ValidateLimit(c.ColumnLimit); err != nil {
		return fmt.Errorf("column_limit: %w", err)
	}
	if c.FallbackWidth < 0 {
		return fmt.Errorf("fallback_width: %w", policy.ErrInvalidLimit)
	}
	if c.TabWidth <= 0 {
		return fmt.Errorf("tab_width must be positive, got %d", c.TabWidth)
	}
	if c.Resolver.FirstLine < 0 {
		return fmt.Errorf("resolver.first_line: %w", policy.ErrInvalidLimit)
	}
	for lang, limit := range c.Resolver.Languages {
		if err := policy.ValidateLimit(limit); err != nil {
			return fmt.Errorf("resolver.languages.%s: %w", lang, err)
		}
	}
	if err := c.HighlightStyle.Validate(); err != nil {
		return fmt.Errorf("highlight_style: %w", err)
	}
	if _, err := c.ExcludePatterns(); err != nil {
		return err
	}
	return nil
}

// Policy builds the column policy described by the configuration.
func (c Config) Policy(logger *zap.Logger) policy.Policy {
	p := policy.Policy{Limit: c.ColumnLimit, FallbackWidth: c.FallbackWidth}
	rules := policy.Rules{
		Base:      c.ColumnLimit,
		FirstLine: c.Resolver.FirstLine,
		Languages: c.Resolver.Languages,
	}
	if !rules.Empty() {
		p.Resolver = rules.Resolver()
	}
	if logger != nil {
		p = p.WithLogger(logger)
	}
	return p
}

// ExcludePatterns compiles the exclude patterns.
func (c Config) ExcludePatterns() ([]*regexp2.Regexp, error) {
	res, err := scanner.CompileExcludes(c.Exclude)
	if err != nil {
		return nil, fmt.Errorf("exclude: %w", err)
	}
	return res, nil
}

// Marshal renders c as YAML.
func (c Config) Marshal() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return out, nil
}

// WriteDefault writes the default configuration to path, creating parent
// directories. An existing file is left alone unless force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s already exists", path)
		}
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}
	data, err := Defaults().Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
