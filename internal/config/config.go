package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Config represents the complete configuration for kv3typer
type Config struct {
	Package    string           `yaml:"package"`
	RootName   string           `yaml:"root_name"`
	Formatting FormattingConfig `yaml:"formatting"`
	Parser     ParserConfig     `yaml:"parser"`
	Types      TypesConfig      `yaml:"types"`
	Naming     NamingConfig     `yaml:"naming"`
	Tags       TagsConfig       `yaml:"tags"`
	Output     OutputConfig     `yaml:"output"`
	Arrays     ArraysConfig     `yaml:"arrays"`
}

// FormattingConfig controls code formatting options
type FormattingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// ParserConfig controls how KV3 input is read
type ParserConfig struct {
	// MaxDepth limits array and object nesting. Zero uses the kv3 default,
	// negative disables the limit.
	MaxDepth int `yaml:"max_depth"`
	// AllowTrailing accepts text after the root object instead of failing.
	AllowTrailing bool `yaml:"allow_trailing"`
}

// TypesConfig controls type mapping
type TypesConfig struct {
	Mappings []TypeMapping `yaml:"mappings"`
}

// TypeMapping binds KV3 keys matching Pattern to a user-provided Go type.
// Decoder is a Go expression evaluating to a kv3.Visitor for that type.
type TypeMapping struct {
	Pattern string `yaml:"pattern"`
	Type    string `yaml:"type"`
	Import  string `yaml:"import,omitempty"`
	Decoder string `yaml:"decoder"`
	Comment string `yaml:"comment,omitempty"`

	// compiled regex (not serialized)
	regex *regexp.Regexp
}

// NamingConfig controls field and struct naming
type NamingConfig struct {
	PascalCaseFields bool `yaml:"pascal_case_fields"`
	// TrimHungarian drops Source 2 member prefixes, so m_flRadius becomes Radius.
	TrimHungarian bool              `yaml:"trim_hungarian"`
	FieldMappings map[string]string `yaml:"field_mappings"`
}

// TagsConfig controls struct tag generation
type TagsConfig struct {
	// JSON adds a json tag next to the kv3 tag.
	JSON bool `yaml:"json"`
}

// OutputConfig controls output generation options
type OutputConfig struct {
	FileHeader string `yaml:"file_header"`
}

// ArraysConfig controls array handling
type ArraysConfig struct {
	MergeDifferentObjects bool `yaml:"merge_different_objects"`
	SingularizeNames      bool `yaml:"singularize_names"`
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		Package:  "main",
		RootName: "RootType",
		Formatting: FormattingConfig{
			Enabled: true,
		},
		Types: TypesConfig{
			Mappings: []TypeMapping{},
		},
		Naming: NamingConfig{
			PascalCaseFields: true,
			TrimHungarian:    false,
			FieldMappings:    make(map[string]string),
		},
		Output: OutputConfig{
			FileHeader: "Code generated by kv3typer. DO NOT EDIT.",
		},
		Arrays: ArraysConfig{
			MergeDifferentObjects: true,
			SingularizeNames:      true,
		},
	}
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults
	cfg := NewConfig()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.compilePatterns(); err != nil {
		return nil, fmt.Errorf("failed to compile patterns: %w", err)
	}

	return cfg, nil
}

// configNames are searched in order in each directory.
var configNames = []string{".kv3typer.yml", ".kv3typer.yaml", "kv3typer.yml", "kv3typer.yaml"}

// FindConfigFile searches for a config file in current directory and parents
func FindConfigFile() string {
	currentDir, err := os.Getwd()
	if err != nil {
		return ""
	}
	return findConfigFrom(currentDir)
}

func findConfigFrom(dir string) string {
	for {
		for _, name := range configNames {
			configPath := filepath.Join(dir, name)
			if _, err := os.Stat(configPath); err == nil {
				return configPath
			}
		}

		parentDir := filepath.Dir(dir)
		if parentDir == dir {
			// Reached root directory
			return ""
		}
		dir = parentDir
	}
}

// compilePatterns compiles all regex patterns in the config
func (c *Config) compilePatterns() error {
	for i := range c.Types.Mappings {
		mapping := &c.Types.Mappings[i]
		if mapping.Type == "" || mapping.Decoder == "" {
			return fmt.Errorf("type mapping '%s' needs both type and decoder", mapping.Pattern)
		}
		regex, err := regexp.Compile(mapping.Pattern)
		if err != nil {
			return fmt.Errorf("invalid type mapping pattern '%s': %w", mapping.Pattern, err)
		}
		mapping.regex = regex
	}
	return nil
}

// MatchesField checks if this type mapping matches the given key
func (tm *TypeMapping) MatchesField(key string) bool {
	if tm.regex == nil {
		regex, err := regexp.Compile(tm.Pattern)
		if err != nil {
			return false
		}
		tm.regex = regex
	}
	return tm.regex.MatchString(key)
}

// FindTypeMapping finds the first type mapping that matches the key
func (c *Config) FindTypeMapping(key string) (TypeMapping, bool) {
	for i := range c.Types.Mappings {
		if c.Types.Mappings[i].MatchesField(key) {
			return c.Types.Mappings[i], true
		}
	}
	return TypeMapping{}, false
}

// CLIOverrides holds flag values that take precedence over the config file.
// Zero values leave the file's settings alone.
type CLIOverrides struct {
	Package       string
	RootName      string
	NoFormat      bool
	JSONTags      bool
	TrimHungarian bool
	MaxDepth      int
	AllowTrailing bool
}

// LoadConfigWithCLI loads config with CLI argument precedence
func LoadConfigWithCLI(configPath string, cli CLIOverrides) (*Config, error) {
	cfg := NewConfig()

	if configPath != "" {
		fileConfig, err := LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = fileConfig
	}

	if cli.Package != "" {
		cfg.Package = cli.Package
	}
	if cli.RootName != "" {
		cfg.RootName = cli.RootName
	}
	if cli.NoFormat {
		cfg.Formatting.Enabled = false
	}
	if cli.JSONTags {
		cfg.Tags.JSON = true
	}
	if cli.TrimHungarian {
		cfg.Naming.TrimHungarian = true
	}
	if cli.MaxDepth != 0 {
		cfg.Parser.MaxDepth = cli.MaxDepth
	}
	if cli.AllowTrailing {
		cfg.Parser.AllowTrailing = true
	}

	return cfg, nil
}
