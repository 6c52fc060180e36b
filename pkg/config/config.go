package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig                 `mapstructure:"app"`
	Gateways  map[string]GatewayConfig  `mapstructure:"gateways"`
	Providers map[string]ProviderConfig `mapstructure:"providers"`
	Memory    MemoryConfig              `mapstructure:"memory"`
	Crew      CrewConfig                `mapstructure:"crew"`
	Logging   LoggingConfig             `mapstructure:"logging"`
	Policy    PolicyConfig              `mapstructure:"policy"`
}

type AppConfig struct {
	Name   string `mapstructure:"name"`
	Listen string `mapstructure:"listen"`
	// RequestTimeoutSeconds bounds one whole pipeline run (0 = no limit).
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
}

type GatewayConfig struct {
	Token   string `mapstructure:"token"`
	Enabled bool   `mapstructure:"enabled"`
}

type ProviderConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
	Enabled bool   `mapstructure:"enabled"`
}

// MemoryConfig locates the run ledger. Type "sqlite" enables it; the default
// "none" keeps nothing on disk.
type MemoryConfig struct {
	Type string `mapstructure:"type"`
	Path string `mapstructure:"path"`
}

type CrewConfig struct {
	AgentsPath string `mapstructure:"agents_path"`
	TasksPath  string `mapstructure:"tasks_path"`
	// PromptsDir holds optional guideline files added to every agent prompt.
	PromptsDir string `mapstructure:"prompts_dir"`
	// DocumentsDir enables the documents tool over that directory.
	DocumentsDir string `mapstructure:"documents_dir"`
}

type LoggingConfig struct {
	// EventsPath is where LLM prompt/response events are appended. Empty
	// disables the file.
	EventsPath string `mapstructure:"events_path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
}

type PolicyConfig struct {
	MaxFieldLength int      `mapstructure:"max_field_length"`
	DenyPatterns   []string `mapstructure:"deny_patterns"`
	// DeniedTools lists agent tools that may never be executed.
	DeniedTools []string `mapstructure:"denied_tools"`
}

// DefaultModel is used by the fallback OpenAI provider.
const DefaultModel = "gpt-4o-mini"

// Default returns the configuration used when no file overrides a value.
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:                  "crewplan",
			Listen:                ":8080",
			RequestTimeoutSeconds: 300,
		},
		Memory: MemoryConfig{
			Type: "none",
			Path: "crewplan.db",
		},
		Crew: CrewConfig{
			AgentsPath: "configs/agents.yaml",
			TasksPath:  "configs/tasks.yaml",
		},
		Logging: LoggingConfig{
			EventsPath: "",
			MaxSizeMB:  10,
		},
		Policy: PolicyConfig{
			MaxFieldLength: 4000,
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("app.name", d.App.Name)
	v.SetDefault("app.listen", d.App.Listen)
	v.SetDefault("app.request_timeout_seconds", d.App.RequestTimeoutSeconds)
	v.SetDefault("memory.type", d.Memory.Type)
	v.SetDefault("memory.path", d.Memory.Path)
	v.SetDefault("crew.agents_path", d.Crew.AgentsPath)
	v.SetDefault("crew.tasks_path", d.Crew.TasksPath)
	v.SetDefault("crew.prompts_dir", d.Crew.PromptsDir)
	v.SetDefault("crew.documents_dir", d.Crew.DocumentsDir)
	v.SetDefault("logging.events_path", d.Logging.EventsPath)
	v.SetDefault("logging.max_size_mb", d.Logging.MaxSizeMB)
	v.SetDefault("policy.max_field_length", d.Policy.MaxFieldLength)
	v.SetDefault("policy.deny_patterns", d.Policy.DenyPatterns)
	v.SetDefault("policy.denied_tools", d.Policy.DeniedTools)
}

// Load reads the config file at path. With an empty path it looks for
// config.json in the working directory and falls back to defaults when none
// exists. Values can be overridden from the environment, e.g.
// CREWPLAN_APP_LISTEN for app.listen.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("json")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("CREWPLAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	// A config that names no providers or gateways gets the ones a bare
	// install needs: OpenAI with the key from OPENAI_API_KEY, and the web UI.
	if len(cfg.Providers) == 0 {
		cfg.Providers = map[string]ProviderConfig{
			"openai": {Model: DefaultModel, Enabled: true},
		}
	}
	if len(cfg.Gateways) == 0 {
		cfg.Gateways = map[string]GatewayConfig{
			"web": {Enabled: true},
		}
	}
	return &cfg, nil
}

// RequestTimeout returns the per-run timeout (0 means none).
func (a AppConfig) RequestTimeout() time.Duration {
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// GetDefaultProvider returns the first enabled provider by name.
func (c *Config) GetDefaultProvider() (string, ProviderConfig) {
	names := make([]string, 0, len(c.Providers))
	for name := range c.Providers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if p := c.Providers[name]; p.Enabled {
			return name, p
		}
	}
	return "", ProviderConfig{}
}

// GetGateway returns the named gateway config if it is enabled.
func (c *Config) GetGateway(name string) (GatewayConfig, bool) {
	g, ok := c.Gateways[name]
	if ok && g.Enabled {
		return g, true
	}
	return GatewayConfig{}, false
}

var providerEnvKeys = map[string]string{
	"openai":     "OPENAI_API_KEY",
	"openrouter": "OPENROUTER_API_KEY",
}

// ResolveAPIKey returns the configured key, falling back to the provider's
// conventional environment variable.
func (p ProviderConfig) ResolveAPIKey(provider string) string {
	if p.APIKey != "" {
		return p.APIKey
	}
	if env, ok := providerEnvKeys[provider]; ok {
		return os.Getenv(env)
	}
	return ""
}
