package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	BackendOpenAI    = "openai"
	BackendAnthropic = "anthropic"
	BackendRandom    = "random"
)

// OpenAI wire APIs.
const (
	OpenAIResponses = "responses"
	OpenAIChat      = "chat"
)

var (
	ErrUnknownBackend = errors.New("unknown provider backend")
	ErrMissingAPIKey  = errors.New("provider api key is missing")
	ErrSamePlayerID   = errors.New("players must have distinct ids")
	ErrUnknownAPI     = errors.New("unknown openai api")
)

type Config struct {
	LogLevel  string    `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort  string    `yaml:"http-port" env:"HTTP_PORT" env-default:"5001"`
	StaticDir string    `yaml:"static-dir" env:"STATIC_DIR"`
	Session   Session   `yaml:"session"`
	Redis     Redis     `yaml:"redis"`
	Telemetry Telemetry `yaml:"telemetry"`
	Players   Players   `yaml:"players"`
	OpenAI    OpenAI    `yaml:"openai"`
	Anthropic Anthropic `yaml:"anthropic"`
}

type Session struct {
	Secret  string        `yaml:"secret" env:"SESSION_SECRET"`
	TTL     time.Duration `yaml:"ttl" env:"SESSION_TTL" env-default:"24h"`
	LockTTL time.Duration `yaml:"lock-ttl" env:"SESSION_LOCK_TTL" env-default:"5m"`
}

type Redis struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type Telemetry struct {
	Endpoint    string `yaml:"endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName string `yaml:"service-name" env:"OTEL_SERVICE_NAME" env-default:"tictactoe-arena"`
}

type Players struct {
	First  Player `yaml:"first" env-prefix:"PLAYER_FIRST_"`
	Second Player `yaml:"second" env-prefix:"PLAYER_SECOND_"`
}

type Player struct {
	ID      string `yaml:"id" env:"ID"`
	Label   string `yaml:"label" env:"LABEL"`
	Backend string `yaml:"backend" env:"BACKEND"`
}

type OpenAI struct {
	APIKey           string        `yaml:"api-key" env:"OPENAI_API_KEY"`
	BaseURL          string        `yaml:"base-url" env:"OPENAI_BASE_URL" env-default:"https://api.openai.com/v1"`
	Model            string        `yaml:"model" env:"OPENAI_MODEL" env-default:"gpt-5.2"`
	// API is "responses" for api.openai.com, "chat" for compatible gateways that only serve chat completions.
	API              string        `yaml:"api" env:"OPENAI_API" env-default:"responses"`
	ReasoningEffort  string        `yaml:"reasoning-effort" env:"OPENAI_REASONING_EFFORT" env-default:"high"`
	ReasoningSummary string        `yaml:"reasoning-summary" env:"OPENAI_REASONING_SUMMARY" env-default:"auto"`
	Timeout          time.Duration `yaml:"timeout" env:"OPENAI_TIMEOUT" env-default:"180s"`
}

type Anthropic struct {
	APIKey           string        `yaml:"api-key" env:"ANTHROPIC_API_KEY"`
	BaseURL          string        `yaml:"base-url" env:"ANTHROPIC_BASE_URL" env-default:"https://api.anthropic.com"`
	Model            string        `yaml:"model" env:"ANTHROPIC_MODEL" env-default:"claude-opus-4-5-20251101"`
	MaxTokens        int           `yaml:"max-tokens" env:"ANTHROPIC_MAX_TOKENS" env-default:"2048"`
	ThinkingBudget   int           `yaml:"thinking-budget" env:"ANTHROPIC_THINKING_BUDGET" env-default:"1024"`
	StructuredOutput bool          `yaml:"structured-output" env:"ANTHROPIC_STRUCTURED_OUTPUT" env-default:"true"`
	Timeout          time.Duration `yaml:"timeout" env:"ANTHROPIC_TIMEOUT" env-default:"180s"`
}

// MustLoad - load configuration from the yml file when it exists, environment otherwise.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(fmt.Errorf("unable to load config: %w", err))
	}

	return config
}

// Load - reads, defaults and validates the configuration.
func Load(path string) (*Config, error) {
	config := &Config{}

	if _, err := os.Stat(path); err == nil {
		if err = cleanenv.ReadConfig(path, config); err != nil {
			return nil, fmt.Errorf("unable to read config file: %w", err)
		}
	} else {
		if err = cleanenv.ReadEnv(config); err != nil {
			return nil, fmt.Errorf("unable to read environment: %w", err)
		}
	}

	config.Players.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate - checks that both players are distinct and their backends are usable.
func (that *Config) Validate() error {
	if that.Players.First.ID == that.Players.Second.ID {
		return fmt.Errorf("%w: %q", ErrSamePlayerID, that.Players.First.ID)
	}

	for _, player := range []Player{that.Players.First, that.Players.Second} {
		switch player.Backend {
		case BackendOpenAI:
			if that.OpenAI.APIKey == "" {
				return fmt.Errorf("%w: %s uses %s", ErrMissingAPIKey, player.ID, player.Backend)
			}
			if that.OpenAI.API != OpenAIResponses && that.OpenAI.API != OpenAIChat {
				return fmt.Errorf("%w: %q", ErrUnknownAPI, that.OpenAI.API)
			}
		case BackendAnthropic:
			if that.Anthropic.APIKey == "" {
				return fmt.Errorf("%w: %s uses %s", ErrMissingAPIKey, player.ID, player.Backend)
			}
		case BackendRandom:
		default:
			return fmt.Errorf("%w: %q", ErrUnknownBackend, player.Backend)
		}
	}

	return nil
}

func (that *Players) applyDefaults() {
	that.First.withDefaults("gpt", "GPT 5.2 High", BackendOpenAI)
	that.Second.withDefaults("claude", "Claude Opus 4.5 Thinking", BackendAnthropic)
}

func (that *Player) withDefaults(id, label, backend string) {
	if that.ID == "" {
		that.ID = id
	}
	if that.Label == "" {
		that.Label = label
	}
	if that.Backend == "" {
		that.Backend = backend
	}
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
