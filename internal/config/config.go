package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// SearchNames lists the config files Load looks for, in order, when no
// explicit path is given.
var SearchNames = []string{
	".autodocs.yaml",
	".autodocs.yml",
	".autodocs.json",
	".autodocs.toml",
	".docgenrc",
	".docgenrc.json",
	".docgenrc.yaml",
	".docgenrc.yml",
}

type Config struct {
	Output OutputConfig `yaml:"output" toml:"output"`
	Parser ParserConfig `yaml:"parser" toml:"parser"`
	AI     AIConfig     `yaml:"ai" toml:"ai"`
	Cache  CacheConfig  `yaml:"cache" toml:"cache"`
}

type OutputConfig struct {
	Directory string `yaml:"directory" toml:"directory" validate:"required"`
	Format    string `yaml:"format" toml:"format" validate:"oneof=markdown"`
}

type ParserConfig struct {
	FilePatterns []string `yaml:"filePatterns" toml:"filePatterns" validate:"min=1,dive,required"`
	Exclude      []string `yaml:"exclude" toml:"exclude" validate:"dive,required"`
}

type MaxTokens struct {
	Overview int `yaml:"overview" toml:"overview" validate:"gt=0"`
	Function int `yaml:"function" toml:"function" validate:"gt=0"`
	Class    int `yaml:"class" toml:"class" validate:"gt=0"`
	Method   int `yaml:"method" toml:"method" validate:"gt=0"`
}

type AIConfig struct {
	Provider          string    `yaml:"provider" toml:"provider" validate:"oneof=openai gemini"`
	Model             string    `yaml:"model" toml:"model" validate:"required"`
	Temperature       float64   `yaml:"temperature" toml:"temperature" validate:"gte=0,lte=1"`
	MaxTokens         MaxTokens `yaml:"maxTokens" toml:"maxTokens"`
	APIKey            string    `yaml:"apiKey,omitempty" toml:"apiKey"`
	BaseURL           string    `yaml:"baseURL,omitempty" toml:"baseURL" validate:"omitempty,url"`
	Concurrency       int       `yaml:"concurrency" toml:"concurrency" validate:"gte=1"`
	RequestsPerMinute int       `yaml:"requestsPerMinute" toml:"requestsPerMinute" validate:"gte=0"`
	MaxRetries        int       `yaml:"maxRetries" toml:"maxRetries" validate:"gte=0,lte=10"`
}

type CacheConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Path    string `yaml:"path" toml:"path" validate:"required_if=Enabled true"`
}

// Default returns the configuration used when no file overrides it.
func Default() Config {
	return Config{
		Output: OutputConfig{Directory: "./docs", Format: "markdown"},
		Parser: ParserConfig{
			FilePatterns: []string{"**/*.js", "**/*.ts"},
			Exclude: []string{
				"**/node_modules/**",
				"**/dist/**",
				"**/build/**",
				"**/*.test.js",
				"**/*.spec.js",
			},
		},
		AI: AIConfig{
			Provider:    "openai",
			Model:       "gpt-4",
			Temperature: 0.7,
			MaxTokens: MaxTokens{
				Overview: 500,
				Function: 350,
				Class:    500,
				Method:   350,
			},
			Concurrency: 4,
			MaxRetries:  3,
		},
		Cache: CacheConfig{Path: ".autodocs-cache.db"},
	}
}

// Load builds the effective configuration: defaults, then the config file,
// then environment overrides. An empty path searches SearchNames in the
// working directory; finding none is not an error.
func Load(path string) (Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Default()

	if path == "" {
		path = discover(".")
	}
	if path != "" {
		overlay, err := ReadOverlay(path)
		if err != nil {
			return Config{}, err
		}
		cfg = Merge(cfg, overlay)
	}

	cfg = applyEnv(cfg)

	if err := Validate(cfg); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", displayPath(path), err)
	}
	return cfg, nil
}

// ReadOverlay decodes a config file into an Overlay. TOML is chosen by the
// .toml extension; everything else is read as YAML, which also accepts JSON.
func ReadOverlay(path string) (Overlay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Overlay{}, fmt.Errorf("reading config %s: %w", path, err)
	}

	var o Overlay
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(data), &o); err != nil {
			return Overlay{}, fmt.Errorf("parsing config %s: %w", path, err)
		}
		return o, nil
	}
	if err := yaml.Unmarshal(data, &o); err != nil {
		return Overlay{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return o, nil
}

// Save writes cfg as YAML. The API key is never persisted.
func Save(path string, cfg Config) error {
	cfg.AI.APIKey = ""
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}
	return nil
}

func discover(dir string) string {
	for _, name := range SearchNames {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

func applyEnv(cfg Config) Config {
	if v := os.Getenv("AUTODOCS_AI_PROVIDER"); v != "" {
		cfg.AI.Provider = v
	}
	if v := os.Getenv("AUTODOCS_AI_MODEL"); v != "" {
		cfg.AI.Model = v
	}
	if v := os.Getenv("AUTODOCS_API_KEY"); v != "" {
		cfg.AI.APIKey = v
	}
	if cfg.AI.APIKey == "" {
		switch cfg.AI.Provider {
		case "openai":
			cfg.AI.APIKey = os.Getenv("OPENAI_API_KEY")
		case "gemini":
			cfg.AI.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}
	return cfg
}

func displayPath(path string) string {
	if path == "" {
		return "(defaults)"
	}
	return path
}
