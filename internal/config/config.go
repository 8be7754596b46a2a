// Package config provides configuration loading and validation for the job
// agent. Values come from environment variables (JOBAGENT_ prefix), an
// optional YAML config file, or defaults, in that order of precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds every tunable the pipelines and server read.
type Config struct {
	// Persistence. Empty DatabaseURL selects the in-memory repository.
	DatabaseURL string `mapstructure:"database_url"`

	// LLM collaborators.
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model" validate:"required"`
	FilterCriteria string `mapstructure:"filter_criteria"`

	// Composition inputs and rendering outputs.
	MasterCVPath string `mapstructure:"master_cv_path" validate:"required"`
	TemplateID   string `mapstructure:"template_id" validate:"required"`
	OutputDir    string `mapstructure:"output_dir" validate:"required"`

	// Orchestration limits.
	RetryCeiling   int `mapstructure:"retry_ceiling" validate:"min=0"`
	MinDescription int `mapstructure:"min_description" validate:"min=1"`
	ResumeParallel int `mapstructure:"resume_parallel" validate:"min=1"`

	// Per-collaborator deadlines.
	ExtractTimeout time.Duration `mapstructure:"extract_timeout" validate:"gt=0"`
	ComposeTimeout time.Duration `mapstructure:"compose_timeout" validate:"gt=0"`
	RenderTimeout  time.Duration `mapstructure:"render_timeout" validate:"gt=0"`
	ApplyTimeout   time.Duration `mapstructure:"apply_timeout" validate:"gt=0"`

	// Application collaborator: "manual" or "browser".
	ApplyMethod string `mapstructure:"apply_method" validate:"oneof=manual browser"`

	// Notifications. Empty disables the webhook notifier.
	WebhookURL string `mapstructure:"webhook_url" validate:"omitempty,url"`

	// Transport.
	Port int `mapstructure:"port" validate:"min=1,max=65535"`

	// Behavior.
	UseBrowser bool `mapstructure:"use_browser"`
	Debug      bool `mapstructure:"debug"`
	LogJSON    bool `mapstructure:"log_json"`
}

var validate = validator.New()

func setDefaults(v *viper.Viper) {
	v.SetDefault("model", "gemini-2.0-flash")
	v.SetDefault("master_cv_path", "data/master_cv.json")
	v.SetDefault("template_id", "classic")
	v.SetDefault("output_dir", "data/generated")
	v.SetDefault("retry_ceiling", 3)
	v.SetDefault("min_description", 50)
	v.SetDefault("resume_parallel", 4)
	v.SetDefault("extract_timeout", 60*time.Second)
	v.SetDefault("compose_timeout", 120*time.Second)
	v.SetDefault("render_timeout", 30*time.Second)
	v.SetDefault("apply_timeout", 120*time.Second)
	v.SetDefault("apply_method", "manual")
	v.SetDefault("port", 8080)
}

// Load reads configuration from the environment and, when path is non-empty,
// from a YAML file. Flag-style overrides belong to the CLI layer, which
// mutates the returned struct before calling Validate again.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("JOBAGENT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only resolves on Get; bind every known key so Unmarshal
	// sees environment values too.
	for _, key := range []string{
		"database_url", "api_key", "model", "filter_criteria",
		"master_cv_path", "template_id", "output_dir",
		"retry_ceiling", "min_description", "resume_parallel",
		"extract_timeout", "compose_timeout", "render_timeout", "apply_timeout",
		"apply_method", "webhook_url", "port", "use_browser", "debug", "log_json",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges and cross-field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
