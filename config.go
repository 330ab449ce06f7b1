package main

import (
	"log"
	"math"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LLMProvider     string `yaml:"llm_provider"`
	LLMModel        string `yaml:"llm_model"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	OpenAIAPIKey    string `yaml:"openai_api_key"`

	DBPath     string `yaml:"db_path"`
	CorpusPath string `yaml:"corpus_path"`

	Concurrency       int   `yaml:"concurrency"`
	VariationsPerSeed int   `yaml:"variations_per_seed"`
	MutationSeed      int64 `yaml:"mutation_seed"`

	TrainRatio float64 `yaml:"train_ratio"`
	ValRatio   float64 `yaml:"val_ratio"`
	TestRatio  float64 `yaml:"test_ratio"`

	// ExperimentSchedule is a 5-field cron expression; empty disables the
	// daily experiment scheduler.
	ExperimentSchedule string `yaml:"experiment_schedule"`
	Timezone           string `yaml:"timezone"`

	SlackBotToken  string `yaml:"slack_bot_token"`
	SlackChannelID string `yaml:"slack_channel_id"`

	Location *time.Location `yaml:"-"`
}

func LoadConfig() Config {
	var cfg Config

	// Load from config.yaml if it exists
	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	// Env vars override YAML values
	envOverride(&cfg.LLMProvider, "LLM_PROVIDER")
	envOverride(&cfg.LLMModel, "LLM_MODEL")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverride(&cfg.CorpusPath, "CORPUS_PATH")
	envOverrideInt(&cfg.Concurrency, "CONCURRENCY")
	envOverrideInt(&cfg.VariationsPerSeed, "VARIATIONS_PER_SEED")
	envOverrideInt64(&cfg.MutationSeed, "MUTATION_SEED")
	envOverrideFloat(&cfg.TrainRatio, "TRAIN_RATIO")
	envOverrideFloat(&cfg.ValRatio, "VAL_RATIO")
	envOverrideFloat(&cfg.TestRatio, "TEST_RATIO")
	envOverride(&cfg.ExperimentSchedule, "EXPERIMENT_SCHEDULE")
	envOverride(&cfg.Timezone, "TIMEZONE")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackChannelID, "SLACK_CHANNEL_ID")

	// Defaults
	if cfg.LLMProvider == "" {
		cfg.LLMProvider = "anthropic"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./charterbench.db"
	}
	if cfg.CorpusPath == "" {
		cfg.CorpusPath = "./data/contributions.json"
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = 4
	}
	if cfg.VariationsPerSeed == 0 {
		cfg.VariationsPerSeed = 5
	}
	if cfg.TrainRatio == 0 && cfg.ValRatio == 0 && cfg.TestRatio == 0 {
		cfg.TrainRatio, cfg.ValRatio, cfg.TestRatio = 0.7, 0.15, 0.15
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Local"
	}

	switch cfg.LLMProvider {
	case "anthropic", "openai":
	default:
		log.Fatalf("llm_provider must be 'anthropic' or 'openai', got '%s'", cfg.LLMProvider)
	}
	if cfg.Concurrency < 1 {
		log.Fatalf("invalid concurrency '%d': must be >= 1", cfg.Concurrency)
	}
	if cfg.VariationsPerSeed < 1 {
		log.Fatalf("invalid variations_per_seed '%d': must be >= 1", cfg.VariationsPerSeed)
	}
	if sum := cfg.TrainRatio + cfg.ValRatio + cfg.TestRatio; math.Abs(sum-1) > 1e-9 {
		log.Fatalf("train/val/test ratios must sum to 1, got %g", sum)
	}

	if cfg.Timezone == "Local" {
		cfg.Location = time.Local
	} else {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			log.Fatalf("invalid timezone '%s': %v", cfg.Timezone, err)
		}
		cfg.Location = loc
	}

	return cfg
}

// RequireLLMKey aborts unless the configured provider has its API key set.
// Only the commands that actually call the model enforce this; offline
// commands (stats, export, experiment) run without credentials.
func (c Config) RequireLLMKey() {
	switch c.LLMProvider {
	case "openai":
		if c.OpenAIAPIKey == "" {
			log.Fatalf("openai_api_key is required when llm_provider=openai")
		}
	default:
		if c.AnthropicAPIKey == "" {
			log.Fatalf("anthropic_api_key is required when llm_provider=anthropic")
		}
	}
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

func envOverrideInt64(field *int64, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

func envOverrideFloat(field *float64, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}
