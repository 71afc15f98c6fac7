package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/my-entourage/notion-export/internal/logger"
)

const (
	defaultDir        = ".claude"
	defaultConfigFile = "notion-exporter.config.json"
	defaultEnvFile    = ".env"
	defaultOutputPath = "data/notion"
)

// ErrUnknownSpace is returned when a space name is not configured
var ErrUnknownSpace = errors.New("unknown space")

// Space is the configuration of one exported workspace
type Space struct {
	// APIKeyEnvVar names the environment variable holding the integration token
	APIKeyEnvVar string `json:"apiKeyEnvVar" yaml:"apiKeyEnvVar"`
	// TargetPath is the project directory exports and Markdown are written under
	TargetPath string `json:"targetPath" yaml:"targetPath"`
	// RawExportPath is the snapshot directory, relative to TargetPath
	RawExportPath string `json:"rawExportPath" yaml:"rawExportPath"`
	// OutputPath is the Markdown root, relative to TargetPath
	OutputPath string `json:"outputPath,omitempty" yaml:"outputPath,omitempty"`
	// ExcludePatterns are case-insensitive regular expressions matched against titles
	ExcludePatterns []string `json:"excludePatterns,omitempty" yaml:"excludePatterns,omitempty"`
}

// Validate checks required fields and exclude patterns
func (s Space) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.APIKeyEnvVar, validation.Required),
		validation.Field(&s.TargetPath, validation.Required),
		validation.Field(&s.RawExportPath, validation.Required),
		validation.Field(&s.ExcludePatterns, validation.Each(validation.By(func(value interface{}) error {
			pattern, _ := value.(string)
			if _, err := regexp.Compile(pattern); err != nil {
				return validation.NewError("config.exclude_pattern_invalid", err.Error())
			}
			return nil
		}))),
	)
}

// TargetDir returns the expanded target directory
func (s Space) TargetDir() string {
	return ExpandPath(s.TargetPath)
}

// RawExportDir returns the directory dated exports are written into
func (s Space) RawExportDir() string {
	return s.underTarget(s.RawExportPath)
}

// OutputDir returns the Markdown output root
func (s Space) OutputDir() string {
	if strings.TrimSpace(s.OutputPath) == "" {
		return s.underTarget(defaultOutputPath)
	}
	return s.underTarget(s.OutputPath)
}

func (s Space) underTarget(p string) string {
	p = ExpandPath(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.TargetDir(), p)
}

// Excludes compiles the exclude patterns for case-insensitive matching
func (s Space) Excludes() ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(s.ExcludePatterns))
	for _, pattern := range s.ExcludePatterns {
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// APIKey reads the integration token from the configured variable
func (s Space) APIKey() (string, error) {
	key := strings.TrimSpace(os.Getenv(s.APIKeyEnvVar))
	if key == "" {
		return "", fmt.Errorf("%s is not set", s.APIKeyEnvVar)
	}
	return key, nil
}

// Config holds every configured space
type Config struct {
	Spaces map[string]Space `json:"spaces" yaml:"spaces"`
}

// Load reads a JSON or YAML config file, chosen by extension. A missing file
// yields an empty configuration.
func Load(path string) (*Config, error) {
	path = ExpandPath(path)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Debug("Config file not found", map[string]interface{}{
				"filepath": path,
			})
			return &Config{Spaces: map[string]Space{}}, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if cfg.Spaces == nil {
		cfg.Spaces = map[string]Space{}
	}
	return cfg, nil
}

// Names returns the configured space names in sorted order
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Spaces))
	for name := range c.Spaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Space returns a validated space by name
func (c *Config) Space(name string) (Space, error) {
	s, ok := c.Spaces[name]
	if !ok {
		return Space{}, fmt.Errorf("%w: %s", ErrUnknownSpace, name)
	}
	if err := s.Validate(); err != nil {
		return Space{}, fmt.Errorf("space %s: %w", name, err)
	}
	return s, nil
}

// LoadEnv loads credentials from a .env file, overriding variables already
// set. A missing file is not an error.
func LoadEnv(path string) error {
	path = ExpandPath(path)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Overload(path); err != nil {
		return fmt.Errorf("error loading %s: %w", path, err)
	}
	return nil
}

// DefaultPath returns the default config file location
func DefaultPath() string {
	return filepath.Join("~", defaultDir, defaultConfigFile)
}

// DefaultEnvPath returns the default credentials file location
func DefaultEnvPath() string {
	return filepath.Join("~", defaultDir, defaultEnvFile)
}

// ExpandPath replaces a leading ~ with the user's home directory
func ExpandPath(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") && !strings.HasPrefix(p, `~\`) {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[1:])
}
