// Package config loads application configuration from a YAML file with
// environment overrides. Secrets come from the environment only.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the namespace prefix for all Prepwise environment variables.
const EnvPrefix = "PREPWISE_"

// Store driver values.
const (
	StoreSQLite = "sqlite"
	StoreMongo  = "mongo"
)

// Voice mode values. In relay mode the web client owns the vendor call
// and reports events over the API; in deepgram mode the server runs a
// local microphone transcription session.
const (
	VoiceRelay    = "relay"
	VoiceDeepgram = "deepgram"
)

type Config struct {
	HTTPAddr              string `yaml:"http_addr"`
	StoreDriver           string `yaml:"store_driver"`
	DBPath                string `yaml:"db_path"`
	MongoDatabase         string `yaml:"mongo_database"`
	Model                 string `yaml:"model"`
	CallTimeout           string `yaml:"call_timeout"`
	VoiceMode             string `yaml:"voice_mode"`
	MicSampleRates        []int  `yaml:"mic_sample_rates"`
	DriveFolderID         string `yaml:"drive_folder_id"`
	GoogleCredentialsFile string `yaml:"google_credentials_file"`

	// Secrets — env vars only, never serialized to YAML.
	GeminiAPIKey    string `yaml:"-"`
	OpenAIAPIKey    string `yaml:"-"`
	AnthropicAPIKey string `yaml:"-"`
	DeepgramAPIKey  string `yaml:"-"`
	MongoURI        string `yaml:"-"`
}

func defaults() Config {
	return Config{
		HTTPAddr:      ":8080",
		StoreDriver:   StoreSQLite,
		DBPath:        "data/prepwise.db",
		MongoDatabase: "prepwise",
		Model:         "gemini/gemini-2.0-flash-001",
		CallTimeout:   "45s",
		VoiceMode:     VoiceRelay,
	}
}

// Load reads configuration from a YAML file (if it exists), applies
// environment variable overrides, loads secrets, and validates the
// result. A .env file in the working directory is honored when present.
func Load(path string) (Config, []string, error) {
	_ = godotenv.Load()

	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, nil, fmt.Errorf("read config file: %w", err)
			}
		} else {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	applyEnvOverrides(&cfg)
	loadSecrets(&cfg)

	warnings := validate(&cfg)
	return cfg, warnings, nil
}

// ParsedCallTimeout returns CallTimeout as a time.Duration, falling back
// to 45s if the value is invalid.
func (c *Config) ParsedCallTimeout() time.Duration {
	d, err := time.ParseDuration(c.CallTimeout)
	if err != nil {
		return 45 * time.Second
	}
	return d
}

// APIKeyFor returns the configured secret for an LLM provider name.
func (c *Config) APIKeyFor(provider string) string {
	switch provider {
	case "gemini":
		return c.GeminiAPIKey
	case "openai":
		return c.OpenAIAPIKey
	case "anthropic":
		return c.AnthropicAPIKey
	default:
		return ""
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvPrefix + "HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv(EnvPrefix + "STORE_DRIVER"); v != "" {
		cfg.StoreDriver = v
	}
	if v := os.Getenv(EnvPrefix + "DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(EnvPrefix + "MONGO_DATABASE"); v != "" {
		cfg.MongoDatabase = v
	}
	if v := os.Getenv(EnvPrefix + "MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv(EnvPrefix + "CALL_TIMEOUT"); v != "" {
		cfg.CallTimeout = v
	}
	if v := os.Getenv(EnvPrefix + "VOICE_MODE"); v != "" {
		cfg.VoiceMode = v
	}
	if v := os.Getenv(EnvPrefix + "MIC_SAMPLE_RATES"); v != "" {
		cfg.MicSampleRates = parseSampleRates(v)
	}
	if v := os.Getenv(EnvPrefix + "DRIVE_FOLDER_ID"); v != "" {
		cfg.DriveFolderID = v
	}
	if v := os.Getenv(EnvPrefix + "GOOGLE_CREDENTIALS_FILE"); v != "" {
		cfg.GoogleCredentialsFile = v
	}
}

func loadSecrets(cfg *Config) {
	cfg.GeminiAPIKey = os.Getenv(EnvPrefix + "GEMINI_API_KEY")
	cfg.OpenAIAPIKey = os.Getenv(EnvPrefix + "OPENAI_API_KEY")
	cfg.AnthropicAPIKey = os.Getenv(EnvPrefix + "ANTHROPIC_API_KEY")
	cfg.DeepgramAPIKey = os.Getenv(EnvPrefix + "DEEPGRAM_API_KEY")
	cfg.MongoURI = os.Getenv(EnvPrefix + "MONGO_URI")
}

func validate(cfg *Config) []string {
	var warnings []string

	switch cfg.StoreDriver {
	case StoreSQLite:
	case StoreMongo:
		if cfg.MongoURI == "" {
			warnings = append(warnings, "Mongo store selected but "+EnvPrefix+"MONGO_URI is not set.")
		}
	default:
		warnings = append(warnings, fmt.Sprintf("Unknown store driver %q — using sqlite.", cfg.StoreDriver))
		cfg.StoreDriver = StoreSQLite
	}

	switch cfg.VoiceMode {
	case VoiceRelay:
	case VoiceDeepgram:
		if cfg.DeepgramAPIKey == "" {
			warnings = append(warnings, "Deepgram voice mode selected but "+EnvPrefix+"DEEPGRAM_API_KEY is not set — falling back to relay mode.")
			cfg.VoiceMode = VoiceRelay
		}
	default:
		warnings = append(warnings, fmt.Sprintf("Unknown voice mode %q — using relay.", cfg.VoiceMode))
		cfg.VoiceMode = VoiceRelay
	}

	if provider, _, err := parseProvider(cfg.Model); err != nil {
		warnings = append(warnings, fmt.Sprintf("Invalid model %q — expected provider/model_name.", cfg.Model))
	} else if cfg.APIKeyFor(provider) == "" {
		warnings = append(warnings, fmt.Sprintf("No API key configured for provider %q — synthesis and resume analysis are disabled. Set %s%s_API_KEY.", provider, EnvPrefix, strings.ToUpper(provider)))
	}

	if _, err := time.ParseDuration(cfg.CallTimeout); err != nil {
		warnings = append(warnings, fmt.Sprintf("Invalid call_timeout %q — using default 45s.", cfg.CallTimeout))
	}

	return warnings
}

func parseProvider(model string) (provider, name string, err error) {
	parts := strings.SplitN(model, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid model %q", model)
	}
	return parts[0], parts[1], nil
}

func parseSampleRates(raw string) []int {
	parts := strings.Split(raw, ",")
	seen := make(map[int]struct{}, len(parts))
	result := make([]int, 0, len(parts))

	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		rate, err := strconv.Atoi(trimmed)
		if err != nil || rate <= 0 {
			continue
		}
		if _, ok := seen[rate]; ok {
			continue
		}
		seen[rate] = struct{}{}
		result = append(result, rate)
	}

	return result
}
