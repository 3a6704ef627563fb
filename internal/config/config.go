package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const DefaultPath = "config/config.toml"

type ServerConfig struct {
	Port string `toml:"port"`
}

type LogConfig struct {
	Level string `toml:"level"`
	JSON  bool   `toml:"json"`
}

type DetectionConfig struct {
	Threshold float64 `toml:"threshold"`
	// Workers is the comparison pool size; 0 means one per CPU.
	Workers     int `toml:"workers"`
	MaxArticles int `toml:"max_articles"`
}

type MemgraphConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

type LLMConfig struct {
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
	APIKey   string `toml:"api_key"`
	BaseURL  string `toml:"base_url"`
}

type SummaryPrompts struct {
	Cluster     string `toml:"cluster"`
	ClusterName string `toml:"cluster_name"`
}

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Log       LogConfig       `toml:"log"`
	Detection DetectionConfig `toml:"detection"`
	Memgraph  MemgraphConfig  `toml:"memgraph"`
	LLM       LLMConfig       `toml:"llm"`
	Summary   SummaryPrompts  `toml:"summary"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080"},
		Log:    LogConfig{Level: "info"},
		Detection: DetectionConfig{
			Threshold:   1,
			MaxArticles: 1000,
		},
		Memgraph: MemgraphConfig{URI: "bolt://localhost:7687"},
		Summary: SummaryPrompts{
			Cluster:     defaultClusterPrompt,
			ClusterName: defaultClusterNamePrompt,
		},
	}
}

// Load reads a TOML file over the defaults. Keys missing from the file keep
// their default value.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides config values with environment variables when set.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("LOG_JSON"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid LOG_JSON %q: %w", v, err)
		}
		c.Log.JSON = b
	}
	if v := os.Getenv("SIMFINDER_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid SIMFINDER_THRESHOLD %q: %w", v, err)
		}
		c.Detection.Threshold = f
	}
	if v := os.Getenv("SIMFINDER_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SIMFINDER_WORKERS %q: %w", v, err)
		}
		c.Detection.Workers = n
	}
	if v := os.Getenv("SIMFINDER_MAX_ARTICLES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SIMFINDER_MAX_ARTICLES %q: %w", v, err)
		}
		c.Detection.MaxArticles = n
	}
	if v := os.Getenv("MEMGRAPH_URI"); v != "" {
		c.Memgraph.URI = v
	}
	if v := os.Getenv("MEMGRAPH_USER"); v != "" {
		c.Memgraph.User = v
	}
	if v := os.Getenv("MEMGRAPH_PASSWORD"); v != "" {
		c.Memgraph.Password = v
	}
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	if t := c.Detection.Threshold; math.IsNaN(t) || t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("detection.threshold %v outside [0, 1]", t))
	}
	if c.Detection.Workers < 0 {
		errs = append(errs, fmt.Errorf("detection.workers %d is negative", c.Detection.Workers))
	}
	if c.Detection.MaxArticles < 1 {
		errs = append(errs, fmt.Errorf("detection.max_articles %d must be at least 1", c.Detection.MaxArticles))
	}
	if c.Memgraph.URI == "" {
		errs = append(errs, errors.New("memgraph.uri is required"))
	}
	switch strings.ToLower(c.LLM.Provider) {
	case "", "openai", "gemini", "claude", "anthropic", "ollama":
	default:
		errs = append(errs, fmt.Errorf("unsupported llm.provider %q", c.LLM.Provider))
	}
	return errors.Join(errs...)
}

// SummariesEnabled reports whether an LLM provider is configured.
func (c *Config) SummariesEnabled() bool {
	return c.LLM.Provider != ""
}

const defaultClusterPrompt = `The following articles were grouped as near duplicates.
Summarize what they report in one or two sentences.

%s
Respond with JSON only: {"summary": "..."}`

const defaultClusterNamePrompt = `Give a short headline (at most eight words) for this summary:

%s
Respond with JSON only: {"name": "..."}`
