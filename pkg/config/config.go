package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the query engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8090"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// SchemaPath points at the knowledge-graph construction input
	// (a YAML/JSON schema set) loaded at startup.
	SchemaPath string `yaml:"schema_path" env:"SCHEMA_PATH" env-default:"schemas.yaml"`

	// AI holds the optional language-model endpoint for the
	// model-assisted parse pass and alias enrichment.
	AI AIConfig `yaml:"ai"`

	// Target is the relational database generated SQL runs against.
	Target TargetDatabaseConfig `yaml:"target"`

	// Engine holds translation thresholds and bounds.
	Engine EngineConfig `yaml:"engine"`
}

// AIConfig holds the language-model service configuration.
// Absence of an endpoint means the model pass is skipped, never an error.
type AIConfig struct {
	Provider       string `yaml:"provider" env:"AI_PROVIDER" env-default:"openai"` // "openai" or "anthropic"
	Endpoint       string `yaml:"endpoint" env:"AI_ENDPOINT" env-default:""`
	Model          string `yaml:"model" env:"AI_MODEL" env-default:""`
	APIKey         string `yaml:"-" env:"AI_API_KEY"` // Secret - not in YAML
	Enabled        bool   `yaml:"enabled" env:"AI_ENABLED" env-default:"false"`
	TimeoutSeconds int    `yaml:"timeout_seconds" env:"AI_TIMEOUT_SECONDS" env-default:"30"`
}

// IsAvailable returns true if a model service is configured and enabled.
func (c *AIConfig) IsAvailable() bool {
	return c.Enabled && c.Model != "" && (c.Endpoint != "" || c.Provider == "anthropic")
}

// TargetDatabaseConfig holds the execution target. Type selects the
// registered datasource adapter ("postgres" or "mssql").
type TargetDatabaseConfig struct {
	Type     string `yaml:"type" env:"TARGET_DB_TYPE" env-default:"postgres"`
	Host     string `yaml:"host" env:"TARGET_DB_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"TARGET_DB_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"TARGET_DB_USER" env-default:""`
	Password string `yaml:"-" env:"TARGET_DB_PASSWORD"` // Secret - not in YAML
	Database string `yaml:"database" env:"TARGET_DB_NAME" env-default:""`
	SSLMode  string `yaml:"ssl_mode" env:"TARGET_DB_SSLMODE" env-default:"disable"`
}

// IsConfigured returns true when execution against a live database is possible.
func (c *TargetDatabaseConfig) IsConfigured() bool {
	return c.Host != "" && c.Database != ""
}

// AsMap converts the target config to the generic map consumed by
// datasource adapter factories.
func (c *TargetDatabaseConfig) AsMap() map[string]any {
	return map[string]any{
		"host":     c.Host,
		"port":     c.Port,
		"user":     c.User,
		"password": c.Password,
		"database": c.Database,
		"ssl_mode": c.SSLMode,
	}
}

// EngineConfig holds translation thresholds and bounds. Defaults are tuned
// for reconciliation schemas with a few dozen tables.
type EngineConfig struct {
	// RowLimit is the hard cap applied to every executed statement.
	RowLimit int `yaml:"row_limit" env:"ENGINE_ROW_LIMIT" env-default:"500"`

	// MaxJoinHops bounds BFS join-path discovery.
	MaxJoinHops int `yaml:"max_join_hops" env:"ENGINE_MAX_JOIN_HOPS" env-default:"4"`

	// FuzzyThreshold is the minimum similarity accepted by fuzzy table
	// name matching, in [0,1].
	FuzzyThreshold float64 `yaml:"fuzzy_threshold" env:"ENGINE_FUZZY_THRESHOLD" env-default:"0.72"`

	// MinConfidence gates SQL generation: below it the engine reports a
	// low-confidence explanation instead of guessing.
	MinConfidence float64 `yaml:"min_confidence" env:"ENGINE_MIN_CONFIDENCE" env-default:"0.4"`

	// AliasOverridesPath points at the curated alias override list
	// (YAML, each entry carrying a reason). Optional.
	AliasOverridesPath string `yaml:"alias_overrides_path" env:"ENGINE_ALIAS_OVERRIDES" env-default:""`
}

// Load reads configuration from config.yaml with environment variable
// overrides. When config.yaml does not exist, configuration is read from the
// environment alone. The version parameter is injected at build time.
func Load(version string) (*Config, error) {
	cfg := &Config{Version: version}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment config: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Engine.RowLimit <= 0 {
		return fmt.Errorf("engine.row_limit must be positive, got %d", c.Engine.RowLimit)
	}
	if c.Engine.MaxJoinHops <= 0 {
		return fmt.Errorf("engine.max_join_hops must be positive, got %d", c.Engine.MaxJoinHops)
	}
	if c.Engine.FuzzyThreshold < 0 || c.Engine.FuzzyThreshold > 1 {
		return fmt.Errorf("engine.fuzzy_threshold must be in [0,1], got %g", c.Engine.FuzzyThreshold)
	}
	if c.Engine.MinConfidence < 0 || c.Engine.MinConfidence > 1 {
		return fmt.Errorf("engine.min_confidence must be in [0,1], got %g", c.Engine.MinConfidence)
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection string for the target.
func (c *TargetDatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
