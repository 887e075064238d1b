package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Host               string        `yaml:"host"`
	Port               string        `yaml:"port"`
	RequestTimeout     time.Duration `yaml:"request_timeout"`
	AnalysisTimeout    time.Duration `yaml:"analysis_timeout"`
	MaxRequestBodySize int64         `yaml:"max_request_body_size"`
	MaxUploadFiles     int           `yaml:"max_upload_files"`
	LogLevel           string        `yaml:"log_level"`

	UploadFolder        string `yaml:"upload_folder"`
	OutputFolder        string `yaml:"output_folder"`
	DefaultOutputFormat string `yaml:"default_output_format"`
	Workers             int    `yaml:"workers"`

	OCR       OCRConfig       `yaml:"ocr"`
	Vision    VisionConfig    `yaml:"vision"`
	Grafana   GrafanaConfig   `yaml:"grafana"`
	Azure     AzureConfig     `yaml:"azure"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

type OCRConfig struct {
	Language       string `yaml:"language"`
	TessdataPrefix string `yaml:"tessdata_prefix"`
}

type VisionConfig struct {
	Provider        string  `yaml:"provider"`
	Model           string  `yaml:"model"`
	AnthropicAPIKey string  `yaml:"anthropic_api_key"`
	OpenAIAPIKey    string  `yaml:"openai_api_key"`
	OpenAIBaseURL   string  `yaml:"openai_base_url"`
	MaxTokens       int64   `yaml:"max_tokens"`
	Temperature     float64 `yaml:"temperature"`
}

// Enabled reports whether a model transport can be built from this config
func (v VisionConfig) Enabled() bool {
	switch v.Provider {
	case "openai":
		return v.OpenAIAPIKey != ""
	default:
		return v.AnthropicAPIKey != ""
	}
}

type GrafanaConfig struct {
	URL      string `yaml:"url"`
	APIKey   string `yaml:"api_key"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Enabled reports whether credentials for the Grafana API are present
func (g GrafanaConfig) Enabled() bool {
	return g.URL != "" && (g.APIKey != "" || (g.Username != "" && g.Password != ""))
}

type AzureConfig struct {
	AccountName string `yaml:"account_name"`
	AccountKey  string `yaml:"account_key"`
	Container   string `yaml:"container"`
}

func (a AzureConfig) Enabled() bool {
	return a.AccountName != "" && a.AccountKey != "" && a.Container != ""
}

type SchedulerConfig struct {
	Enabled          bool   `yaml:"enabled"`
	DashboardSummary string `yaml:"dashboard_summary"`
	DailySummary     string `yaml:"daily_summary"`
	WeeklySummary    string `yaml:"weekly_summary"`
}

func (c *Config) ServerAddress() string {
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// Defaults returns the configuration used when neither file nor environment set a value
func Defaults() *Config {
	return &Config{
		Host:                "0.0.0.0",
		Port:                "8080",
		RequestTimeout:      120 * time.Second,
		AnalysisTimeout:     60 * time.Second,
		MaxRequestBodySize:  16 * 1024 * 1024,
		MaxUploadFiles:      50,
		LogLevel:            "info",
		UploadFolder:        "uploads",
		OutputFolder:        "outputs",
		DefaultOutputFormat: "csv",
		Workers:             0,
		OCR: OCRConfig{
			Language: "eng",
		},
		Vision: VisionConfig{
			Provider:      "anthropic",
			Model:         "claude-sonnet-4-5",
			OpenAIBaseURL: "https://api.openai.com/v1",
			MaxTokens:     4000,
			Temperature:   0.1,
		},
		Grafana: GrafanaConfig{
			URL: "http://localhost:3000",
		},
		Scheduler: SchedulerConfig{
			DashboardSummary: "0 * * * *",
			DailySummary:     "55 23 * * *",
			WeeklySummary:    "0 9 * * 1",
		},
	}
}

// LoadFromEnv builds the configuration from defaults, the optional CONFIG_FILE yaml
// document and finally environment variables, in that order of precedence.
func LoadFromEnv() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	cfg.Host = getEnvOrDefault("HOST", cfg.Host)
	cfg.Port = getEnvOrDefault("PORT", cfg.Port)
	cfg.RequestTimeout = parseDurationOrDefault("REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.AnalysisTimeout = parseDurationOrDefault("ANALYSIS_TIMEOUT", cfg.AnalysisTimeout)
	cfg.MaxRequestBodySize = parseIntOrDefault("MAX_REQUEST_BODY_SIZE", cfg.MaxRequestBodySize)
	cfg.MaxUploadFiles = int(parseIntOrDefault("MAX_FILES", int64(cfg.MaxUploadFiles)))
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", cfg.LogLevel)

	cfg.UploadFolder = getEnvOrDefault("UPLOAD_FOLDER", cfg.UploadFolder)
	cfg.OutputFolder = getEnvOrDefault("OUTPUT_FOLDER", cfg.OutputFolder)
	cfg.DefaultOutputFormat = getEnvOrDefault("DEFAULT_OUTPUT_FORMAT", cfg.DefaultOutputFormat)
	cfg.Workers = int(parseIntOrDefault("WORKERS", int64(cfg.Workers)))

	cfg.OCR.Language = getEnvOrDefault("OCR_LANGUAGE", cfg.OCR.Language)
	cfg.OCR.TessdataPrefix = getEnvOrDefault("TESSDATA_PREFIX", cfg.OCR.TessdataPrefix)

	cfg.Vision.Provider = strings.ToLower(getEnvOrDefault("VISION_PROVIDER", cfg.Vision.Provider))
	cfg.Vision.Model = getEnvOrDefault("VISION_MODEL", cfg.Vision.Model)
	cfg.Vision.AnthropicAPIKey = getEnvOrDefault("ANTHROPIC_API_KEY", cfg.Vision.AnthropicAPIKey)
	cfg.Vision.OpenAIAPIKey = getEnvOrDefault("OPENAI_API_KEY", cfg.Vision.OpenAIAPIKey)
	cfg.Vision.OpenAIBaseURL = getEnvOrDefault("OPENAI_BASE_URL", cfg.Vision.OpenAIBaseURL)
	cfg.Vision.MaxTokens = parseIntOrDefault("VISION_MAX_TOKENS", cfg.Vision.MaxTokens)
	cfg.Vision.Temperature = parseFloatOrDefault("VISION_TEMPERATURE", cfg.Vision.Temperature)

	cfg.Grafana.URL = getEnvOrDefault("GRAFANA_URL", cfg.Grafana.URL)
	cfg.Grafana.APIKey = getEnvOrDefault("GRAFANA_API_KEY", cfg.Grafana.APIKey)
	cfg.Grafana.Username = getEnvOrDefault("GRAFANA_USERNAME", cfg.Grafana.Username)
	cfg.Grafana.Password = getEnvOrDefault("GRAFANA_PASSWORD", cfg.Grafana.Password)

	cfg.Azure.AccountName = getEnvOrDefault("AZURE_STORAGE_ACCOUNT", cfg.Azure.AccountName)
	cfg.Azure.AccountKey = getEnvOrDefault("AZURE_STORAGE_KEY", cfg.Azure.AccountKey)
	cfg.Azure.Container = getEnvOrDefault("AZURE_STORAGE_CONTAINER", cfg.Azure.Container)

	cfg.Scheduler.Enabled = parseBoolOrDefault("SCHEDULE_ENABLED", cfg.Scheduler.Enabled)
	cfg.Scheduler.DashboardSummary = getEnvOrDefault("DASHBOARD_SUMMARY_SCHEDULE", cfg.Scheduler.DashboardSummary)
	cfg.Scheduler.DailySummary = getEnvOrDefault("DAILY_SUMMARY_SCHEDULE", cfg.Scheduler.DailySummary)
	cfg.Scheduler.WeeklySummary = getEnvOrDefault("WEEKLY_SUMMARY_SCHEDULE", cfg.Scheduler.WeeklySummary)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and enumerations after all layers are applied
func (c *Config) Validate() error {
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.MaxRequestBodySize)
	}
	if c.MaxUploadFiles <= 0 {
		return fmt.Errorf("MAX_FILES must be > 0 (got %d)", c.MaxUploadFiles)
	}
	if c.RequestTimeout <= 0 || c.AnalysisTimeout <= 0 {
		return fmt.Errorf("timeouts must be > 0 (got request=%s, analysis=%s)",
			c.RequestTimeout, c.AnalysisTimeout)
	}
	if strings.TrimSpace(c.OutputFolder) == "" {
		return fmt.Errorf("OUTPUT_FOLDER must not be empty")
	}
	if strings.TrimSpace(c.UploadFolder) == "" {
		return fmt.Errorf("UPLOAD_FOLDER must not be empty")
	}
	switch c.DefaultOutputFormat {
	case "csv", "txt", "json", "xlsx":
	default:
		return fmt.Errorf("invalid DEFAULT_OUTPUT_FORMAT: %q", c.DefaultOutputFormat)
	}
	switch c.Vision.Provider {
	case "anthropic", "openai":
	default:
		return fmt.Errorf("invalid VISION_PROVIDER: %q", c.Vision.Provider)
	}
	if c.Vision.MaxTokens <= 0 {
		return fmt.Errorf("VISION_MAX_TOKENS must be > 0 (got %d)", c.Vision.MaxTokens)
	}
	if c.Vision.Temperature < 0 || c.Vision.Temperature > 2 {
		return fmt.Errorf("VISION_TEMPERATURE out of range: %v", c.Vision.Temperature)
	}
	if c.Workers < 0 {
		return fmt.Errorf("WORKERS must be >= 0 (got %d)", c.Workers)
	}
	return nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func parseFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func parseBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}
