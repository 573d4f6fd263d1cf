package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default configuration file location.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML. Service endpoints are
// resolved once at startup and handed to the stages as an explicit struct;
// nothing reads the environment at call time.
type FileConfig struct {
	Port        string `yaml:"port"`
	LogLevel    string `yaml:"logLevel"`
	DatabaseURL string `yaml:"databaseURL"`

	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`

	MinioEndpoint  string `yaml:"minioEndpoint"`
	MinioAccessKey string `yaml:"minioAccessKey"`
	MinioSecretKey string `yaml:"minioSecretKey"`
	MinioBucket    string `yaml:"minioBucket"`
	MinioUseSSL    bool   `yaml:"minioUseSSL"`

	OllamaURL   string `yaml:"ollamaURL"`
	OllamaModel string `yaml:"ollamaModel"`
	ImageAPIURL string `yaml:"imageAPIURL"`
	TTSURL      string `yaml:"ttsURL"`
	VideoURL    string `yaml:"videoURL"`

	WorkflowTemplatePath string `yaml:"workflowTemplatePath"`
	WorkflowImageNode    string `yaml:"workflowImageNode"`
	WorkflowOutputNode   string `yaml:"workflowOutputNode"`

	HistoryLimit int `yaml:"historyLimit"`

	ChatTimeoutSeconds   int `yaml:"chatTimeoutSeconds"`
	RefineTimeoutSeconds int `yaml:"refineTimeoutSeconds"`
	ImageTimeoutSeconds  int `yaml:"imageTimeoutSeconds"`
	TTSTimeoutSeconds    int `yaml:"ttsTimeoutSeconds"`
	VideoTimeoutSeconds  int `yaml:"videoTimeoutSeconds"`

	RateLimitPerMinute int `yaml:"rateLimitPerMinute"`
}

// Load reads config from path (defaults to config.yaml).
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	// Override with environment variables
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		cfg.MinioEndpoint = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		cfg.MinioAccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		cfg.MinioSecretKey = v
	}
	if v := os.Getenv("OLLAMA_API_URL"); v != "" {
		cfg.OllamaURL = v
	}
	if v := os.Getenv("OLLAMA_MODEL"); v != "" {
		cfg.OllamaModel = v
	}
	if v := os.Getenv("IMAGE_API_URL"); v != "" {
		cfg.ImageAPIURL = v
	}
	if v := os.Getenv("TTS_API_URL"); v != "" {
		cfg.TTSURL = v
	}
	if v := os.Getenv("VIDEO_ENGINE_URL"); v != "" {
		cfg.VideoURL = v
	}
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyDefaults(cfg *FileConfig) {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 10
	}
	if cfg.ChatTimeoutSeconds <= 0 {
		cfg.ChatTimeoutSeconds = 90
	}
	if cfg.RefineTimeoutSeconds <= 0 {
		cfg.RefineTimeoutSeconds = 60
	}
	if cfg.ImageTimeoutSeconds <= 0 {
		cfg.ImageTimeoutSeconds = 180
	}
	if cfg.TTSTimeoutSeconds <= 0 {
		cfg.TTSTimeoutSeconds = 60
	}
	if cfg.VideoTimeoutSeconds <= 0 {
		cfg.VideoTimeoutSeconds = 120
	}
	if cfg.WorkflowImageNode == "" {
		cfg.WorkflowImageNode = "image_input"
	}
	if cfg.WorkflowOutputNode == "" {
		cfg.WorkflowOutputNode = "output"
	}
	if cfg.RateLimitPerMinute <= 0 {
		cfg.RateLimitPerMinute = 30
	}
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if cfg.DatabaseURL == "" {
		return errors.New("config: databaseURL is required (set in config.yaml or DATABASE_URL)")
	}
	if cfg.MinioEndpoint == "" || cfg.MinioBucket == "" {
		return errors.New("config: minioEndpoint and minioBucket are required (set in config.yaml or MINIO_ENDPOINT)")
	}
	if cfg.OllamaURL == "" {
		return errors.New("config: ollamaURL is required (set in config.yaml or OLLAMA_API_URL)")
	}
	if cfg.OllamaModel == "" {
		return errors.New("config: ollamaModel is required (set in config.yaml or OLLAMA_MODEL)")
	}
	if cfg.ImageAPIURL == "" {
		return errors.New("config: imageAPIURL is required (set in config.yaml or IMAGE_API_URL)")
	}
	if cfg.TTSURL == "" {
		return errors.New("config: ttsURL is required (set in config.yaml or TTS_API_URL)")
	}
	if cfg.VideoURL == "" {
		return errors.New("config: videoURL is required (set in config.yaml or VIDEO_ENGINE_URL)")
	}
	if cfg.WorkflowTemplatePath == "" {
		return errors.New("config: workflowTemplatePath is required (set in config.yaml)")
	}
	return nil
}
