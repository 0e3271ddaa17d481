// Package config derives default bridge wiring from the environment:
// which API credentials are present, whether a host session binary is
// configured, and which model to prefer. It intentionally stays thin; all
// values can equally be set in code through each package's options.
package config

import (
	"os"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/joho/godotenv"

	"github.com/stageflow/stageflow/bridge"
	"github.com/stageflow/stageflow/bridge/anthropic"
	"github.com/stageflow/stageflow/bridge/host"
	"github.com/stageflow/stageflow/bridge/openai"
	"github.com/stageflow/stageflow/logging"
)

// Config captures the environment-derived settings the execution core cares
// about.
type Config struct {
	// AnthropicAPIKey enables the Anthropic bridge when non-empty.
	AnthropicAPIKey string
	// OpenAIAPIKey enables the OpenAI bridge when non-empty.
	OpenAIAPIKey string
	// HostSessionBinary enables the host-session bridge when non-empty.
	// The host bridge takes priority over API bridges when configured.
	HostSessionBinary string
	// DefaultModel overrides each bridge's default model id when non-empty.
	DefaultModel string
}

// LoadOptions holds configuration overrides passed to Load().
type LoadOptions struct {
	// EnvFile is loaded before reading the environment when it exists.
	// Defaults to ".env"; a missing file is not an error.
	EnvFile string
}

// Load reads configuration from an optional .env file and the process
// environment.
func Load(optFns ...func(o *LoadOptions)) *Config {
	opts := LoadOptions{EnvFile: ".env"}
	for _, fn := range optFns {
		fn(&opts)
	}
	// Missing env files are fine; explicit environment always wins.
	_ = godotenv.Load(opts.EnvFile)

	return &Config{
		AnthropicAPIKey:   os.Getenv("ANTHROPIC_API_KEY"),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		HostSessionBinary: os.Getenv("STAGEFLOW_HOST_SESSION"),
		DefaultModel:      os.Getenv("STAGEFLOW_DEFAULT_MODEL"),
	}
}

// ConfigureBridges registers the bridges the environment supports, in
// priority order: host session first, then Anthropic, then OpenAI. With no
// usable configuration nothing is registered and execution degrades to the
// registry's stub fallback.
func (c *Config) ConfigureBridges(reg *bridge.Registry, logger logging.Logger) {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	if c.HostSessionBinary != "" {
		reg.Register(host.New(c.HostSessionBinary, func(o *host.Options) {
			o.Logger = logger
		}))
		logger.Info("Registered host session bridge", "binary", c.HostSessionBinary)
	}
	if c.AnthropicAPIKey != "" {
		reg.Register(anthropic.New(func(o *anthropic.Options) {
			o.APIKey = c.AnthropicAPIKey
			o.Logger = logger
			if c.DefaultModel != "" {
				o.Model = anthropicsdk.Model(c.DefaultModel)
			}
		}))
		logger.Info("Registered anthropic bridge")
	}
	if c.OpenAIAPIKey != "" {
		reg.Register(openai.New(func(o *openai.Options) {
			o.Logger = logger
			if c.DefaultModel != "" {
				o.Model = c.DefaultModel
			}
		}))
		logger.Info("Registered openai bridge")
	}
}
