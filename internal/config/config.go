package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	CurrentVersion = 1
	DefaultPath    = "cdmschema.yaml"

	DefaultFieldMetadataPath    = "data/OMOP_CDMv5.4_Field_Level.csv"
	DefaultVocabularyPath       = "data/CONCEPT.csv"
	DefaultOutputDirectory      = "schemas"
	DefaultProgressInterval     = 500000
	DefaultLargeDomainThreshold = 1000
)

// Config is the top-level configuration.
type Config struct {
	Version    int              `yaml:"version"`
	Inputs     InputConfig      `yaml:"inputs"`
	Output     OutputConfig     `yaml:"output"`
	Vocabulary VocabularyConfig `yaml:"vocabulary,omitempty"`
	Logging    LogConfig        `yaml:"logging,omitempty"`
}

// InputConfig locates the field-level metadata and the CONCEPT table.
type InputConfig struct {
	FieldMetadata string `yaml:"field_metadata"`
	Vocabulary    string `yaml:"vocabulary"`
}

// OutputConfig controls where schema documents are written.
type OutputConfig struct {
	Directory string `yaml:"directory"`
}

// VocabularyConfig tunes vocabulary loading.
type VocabularyConfig struct {
	ProgressInterval     int            `yaml:"progress_interval,omitempty"`
	LargeDomainThreshold int            `yaml:"large_domain_threshold,omitempty"`
	Postgres             PostgresConfig `yaml:"postgres,omitempty"`
}

// PostgresConfig points at an OMOP vocabulary schema loaded into PostgreSQL.
// When ConnectionString is set it takes precedence over the vocabulary file.
type PostgresConfig struct {
	ConnectionString string `yaml:"connection_string,omitempty"`
	Schema           string `yaml:"schema,omitempty"` // default public
}

// LogConfig defines logging settings.
type LogConfig struct {
	Level     string `yaml:"level,omitempty"`     // debug, info, warn, error
	Directory string `yaml:"directory,omitempty"` // empty: stdout only
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	cfg := &Config{Version: CurrentVersion}
	cfg.applyDefaults()
	return cfg
}

// Load reads and parses the config file from the given path. A missing file
// at the default path is not an error; the conventional defaults are used.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(ExpandHome(path))
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentVersion)
	}

	if err := cfg.resolveSecrets(); err != nil {
		return nil, fmt.Errorf("resolving secrets: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// Save writes the config to the given path.
func (c *Config) Save(path string) error {
	if path == "" {
		path = DefaultPath
	}
	path = ExpandHome(path)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate reports configuration problems that Load does not reject.
func (c *Config) Validate() []string {
	var problems []string
	if c.Inputs.FieldMetadata == "" {
		problems = append(problems, "inputs.field_metadata is required")
	}
	if c.Output.Directory == "" {
		problems = append(problems, "output.directory is required")
	}
	if c.Vocabulary.ProgressInterval < 0 {
		problems = append(problems, "vocabulary.progress_interval must not be negative")
	}
	if c.Vocabulary.LargeDomainThreshold < 0 {
		problems = append(problems, "vocabulary.large_domain_threshold must not be negative")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}
	return problems
}

func (c *Config) applyDefaults() {
	if c.Inputs.FieldMetadata == "" {
		c.Inputs.FieldMetadata = DefaultFieldMetadataPath
	}
	if c.Inputs.Vocabulary == "" {
		c.Inputs.Vocabulary = DefaultVocabularyPath
	}
	if c.Output.Directory == "" {
		c.Output.Directory = DefaultOutputDirectory
	}
	if c.Vocabulary.ProgressInterval == 0 {
		c.Vocabulary.ProgressInterval = DefaultProgressInterval
	}
	if c.Vocabulary.LargeDomainThreshold == 0 {
		c.Vocabulary.LargeDomainThreshold = DefaultLargeDomainThreshold
	}
	if c.Vocabulary.Postgres.ConnectionString != "" && c.Vocabulary.Postgres.Schema == "" {
		c.Vocabulary.Postgres.Schema = "public"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Directory != "" {
		c.Logging.Directory = ExpandHome(c.Logging.Directory)
	}
}

var secretPattern = regexp.MustCompile(`\$\{(ENV|VAULT|AWS_SM):([^}]+)\}`)

func (c *Config) resolveSecrets() error {
	var err error
	c.Vocabulary.Postgres.ConnectionString, err = ResolveValue(c.Vocabulary.Postgres.ConnectionString)
	if err != nil {
		return fmt.Errorf("vocabulary connection string: %w", err)
	}
	return nil
}

// ResolveValue replaces every secret reference in val with its value, so a
// reference may sit inside a larger string such as a DSN. The first failing
// reference is returned as the error.
func ResolveValue(val string) (string, error) {
	var firstErr error
	out := secretPattern.ReplaceAllStringFunc(val, func(m string) string {
		if firstErr != nil {
			return m
		}
		sub := secretPattern.FindStringSubmatch(m)
		v, err := resolveRef(sub[1], sub[2])
		if err != nil {
			firstErr = err
			return m
		}
		return v
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

func resolveRef(provider, ref string) (string, error) {
	switch provider {
	case "ENV":
		v := os.Getenv(ref)
		if v == "" {
			return "", fmt.Errorf("environment variable %s not set", ref)
		}
		return v, nil
	case "VAULT":
		return resolveVault(ref)
	case "AWS_SM":
		return resolveAWSSecretsManager(ref)
	default:
		return "", fmt.Errorf("unknown secrets provider: %s", provider)
	}
}

// ExpandHome expands ~ to the user's home directory.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
