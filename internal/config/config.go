package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	SMSProviderLog            = "log"
	SMSProviderAfricasTalking = "africastalking"
)

const (
	// NotifySync waits for synthesis and SMS before answering the gateway.
	NotifySync = "sync"
	// NotifyAsync answers first and finishes notifications in the background.
	NotifyAsync = "async"
)

// ServerConfig holds the inbound HTTP listener settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr" envconfig:"USSD_ADDR"`
	Path         string        `yaml:"path" envconfig:"USSD_PATH"`
	ReadTimeout  time.Duration `yaml:"read_timeout" envconfig:"USSD_READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"write_timeout" envconfig:"USSD_WRITE_TIMEOUT"`
}

// LoggingConfig defines the rotating log file and level.
type LoggingConfig struct {
	Level      string `yaml:"level" envconfig:"LOG_LEVEL"`
	Dir        string `yaml:"dir" envconfig:"LOG_DIR"`
	File       string `yaml:"file"`
	Stdout     bool   `yaml:"stdout" envconfig:"LOG_STDOUT"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// TelemetryConfig controls the OpenTelemetry file exporters.
type TelemetryConfig struct {
	Enabled  bool          `yaml:"enabled" envconfig:"TELEMETRY_ENABLED"`
	Dir      string        `yaml:"dir"`
	Interval time.Duration `yaml:"interval"`
}

// WeatherConfig configures the OpenWeatherMap client.
type WeatherConfig struct {
	BaseURL  string        `yaml:"base_url" envconfig:"WEATHER_BASE_URL"`
	APIKey   string        `yaml:"api_key" envconfig:"WEATHER_API_KEY"`
	Units    string        `yaml:"units"`
	Timeout  time.Duration `yaml:"timeout"`
	CacheTTL time.Duration `yaml:"cache_ttl" envconfig:"WEATHER_CACHE_TTL"`
}

// SpeechConfig configures Google Cloud Text-to-Speech and where artifacts land.
type SpeechConfig struct {
	Enabled         bool   `yaml:"enabled" envconfig:"SPEECH_ENABLED"`
	CredentialsFile string `yaml:"credentials_file" envconfig:"GOOGLE_APPLICATION_CREDENTIALS"`
	Endpoint        string `yaml:"endpoint" envconfig:"SPEECH_ENDPOINT"`
	LanguageCode    string `yaml:"language_code"`
	VoiceGender     string `yaml:"voice_gender"`
	AudioDir        string `yaml:"audio_dir" envconfig:"SPEECH_AUDIO_DIR"`
	PublicBaseURL   string `yaml:"public_base_url" envconfig:"SPEECH_PUBLIC_BASE_URL"`
}

// SMSConfig selects and configures the SMS sender.
type SMSConfig struct {
	Provider string `yaml:"provider" envconfig:"SMS_PROVIDER"`
	BaseURL  string `yaml:"base_url" envconfig:"SMS_BASE_URL"`
	Username string `yaml:"username" envconfig:"SMS_USERNAME"`
	APIKey   string `yaml:"api_key" envconfig:"SMS_API_KEY"`
	SenderID string `yaml:"sender_id" envconfig:"SMS_SENDER_ID"`
	// Template must contain exactly one %s for the audio URL.
	Template string `yaml:"template"`
}

// NotifyConfig decides how terminal side effects relate to the response.
type NotifyConfig struct {
	Mode                  string        `yaml:"mode" envconfig:"NOTIFY_MODE"`
	SMSOnSynthesisFailure bool          `yaml:"sms_on_synthesis_failure" envconfig:"NOTIFY_SMS_ON_SYNTHESIS_FAILURE"`
	Timeout               time.Duration `yaml:"timeout"`
}

// LedgerConfig configures the sqlite notification ledger.
type LedgerConfig struct {
	Enabled bool   `yaml:"enabled" envconfig:"LEDGER_ENABLED"`
	Path    string `yaml:"path" envconfig:"LEDGER_PATH"`
}

// Config holds application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Weather   WeatherConfig   `yaml:"weather"`
	Speech    SpeechConfig    `yaml:"speech"`
	SMS       SMSConfig       `yaml:"sms"`
	Notify    NotifyConfig    `yaml:"notify"`
	Ledger    LedgerConfig    `yaml:"ledger"`

	Debug bool `yaml:"debug" envconfig:"DEBUG"`
}

// Default returns a Config with every optional field populated.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:         ":3000",
			Path:         "/ussd",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Dir:        "logs",
			File:       "ussd.log",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Telemetry: TelemetryConfig{
			Dir:      "logs",
			Interval: 10 * time.Second,
		},
		Weather: WeatherConfig{
			BaseURL: "http://api.openweathermap.org",
			Units:   "metric",
			Timeout: 10 * time.Second,
		},
		Speech: SpeechConfig{
			Enabled:       true,
			LanguageCode:  "en-US",
			VoiceGender:   "NEUTRAL",
			AudioDir:      "audio",
			PublicBaseURL: "https://your-domain.com",
		},
		SMS: SMSConfig{
			Provider: SMSProviderLog,
			BaseURL:  "https://api.africastalking.com",
			Template: "Listen to the weather update: %s",
		},
		Notify: NotifyConfig{
			Mode:    NotifySync,
			Timeout: 30 * time.Second,
		},
		Ledger: LedgerConfig{
			Enabled: true,
			Path:    "ussd.db",
		},
	}
}

// Load reads configuration from an optional YAML file and environment variables.
// An empty path skips the file and uses defaults plus the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		cfg.Server.Addr = ":" + port
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates required fields and fills defaults left empty by the file.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	def := Default()

	if strings.TrimSpace(cfg.Server.Addr) == "" {
		cfg.Server.Addr = def.Server.Addr
	}
	if _, _, err := net.SplitHostPort(cfg.Server.Addr); err != nil {
		return fmt.Errorf("invalid server.addr %q: %w", cfg.Server.Addr, err)
	}
	if cfg.Server.Path == "" {
		cfg.Server.Path = def.Server.Path
	}
	if !strings.HasPrefix(cfg.Server.Path, "/") {
		cfg.Server.Path = "/" + cfg.Server.Path
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Logging.Level)) {
	case "":
		cfg.Logging.Level = def.Logging.Level
	case "debug", "info", "warn", "warning", "error":
		cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	default:
		return fmt.Errorf("invalid logging.level %q; allowed: debug, info, warn, error", cfg.Logging.Level)
	}
	if cfg.Logging.File == "" {
		cfg.Logging.File = def.Logging.File
	}

	if cfg.Telemetry.Interval <= 0 {
		cfg.Telemetry.Interval = def.Telemetry.Interval
	}

	if strings.TrimSpace(cfg.Weather.BaseURL) == "" {
		cfg.Weather.BaseURL = def.Weather.BaseURL
	}
	cfg.Weather.BaseURL = strings.TrimRight(cfg.Weather.BaseURL, "/")
	if cfg.Weather.Units == "" {
		cfg.Weather.Units = def.Weather.Units
	}
	if cfg.Weather.CacheTTL < 0 {
		return fmt.Errorf("weather.cache_ttl must be >= 0")
	}

	if cfg.Speech.Enabled {
		if cfg.Speech.AudioDir == "" {
			cfg.Speech.AudioDir = def.Speech.AudioDir
		}
		if cfg.Speech.LanguageCode == "" {
			cfg.Speech.LanguageCode = def.Speech.LanguageCode
		}
		if cfg.Speech.VoiceGender == "" {
			cfg.Speech.VoiceGender = def.Speech.VoiceGender
		}
		cfg.Speech.VoiceGender = strings.ToUpper(cfg.Speech.VoiceGender)
		cfg.Speech.PublicBaseURL = strings.TrimRight(cfg.Speech.PublicBaseURL, "/")
	}

	provider := strings.ToLower(strings.TrimSpace(cfg.SMS.Provider))
	switch provider {
	case "":
		provider = SMSProviderLog
	case SMSProviderLog:
	case SMSProviderAfricasTalking:
		if strings.TrimSpace(cfg.SMS.Username) == "" {
			return fmt.Errorf("sms.username is required when sms.provider is %q", SMSProviderAfricasTalking)
		}
		if strings.TrimSpace(cfg.SMS.APIKey) == "" {
			return fmt.Errorf("sms.api_key is required when sms.provider is %q", SMSProviderAfricasTalking)
		}
	default:
		return fmt.Errorf("invalid sms.provider %q; allowed: log, africastalking", cfg.SMS.Provider)
	}
	cfg.SMS.Provider = provider
	cfg.SMS.BaseURL = strings.TrimRight(cfg.SMS.BaseURL, "/")
	if cfg.SMS.Template == "" {
		cfg.SMS.Template = def.SMS.Template
	}
	if strings.Count(cfg.SMS.Template, "%s") != 1 {
		return fmt.Errorf("sms.template must contain exactly one %%s placeholder")
	}

	mode := strings.ToLower(strings.TrimSpace(cfg.Notify.Mode))
	switch mode {
	case "":
		mode = NotifySync
	case NotifySync, NotifyAsync:
	default:
		return fmt.Errorf("invalid notify.mode %q; allowed: sync, async", cfg.Notify.Mode)
	}
	cfg.Notify.Mode = mode
	if cfg.Notify.Timeout <= 0 {
		cfg.Notify.Timeout = def.Notify.Timeout
	}

	if cfg.Ledger.Enabled && strings.TrimSpace(cfg.Ledger.Path) == "" {
		cfg.Ledger.Path = def.Ledger.Path
	}
	return nil
}
