package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Model    ModelConfig    `yaml:"model"`
	Emoji    EmojiConfig    `yaml:"emoji"`
	Matching MatchingConfig `yaml:"matching"`
	Store    StoreConfig    `yaml:"store"`
	Database DatabaseConfig `yaml:"database"`
	NATS     NATSConfig     `yaml:"nats"`
	MinIO    MinIOConfig    `yaml:"minio"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

// ModelConfig points at an OpenAI-compatible chat completions endpoint.
// VisionModel describes images, TextModel extracts emotion keywords and
// EmbeddingModel (optional) backs the embedding matching strategy.
type ModelConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	VisionModel    string `yaml:"vision_model"`
	TextModel      string `yaml:"text_model"`
	EmbeddingModel string `yaml:"embedding_model"`
	MaxTokens      int    `yaml:"max_tokens"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type EmojiConfig struct {
	BaseDir       string `yaml:"base_dir"`
	UnreviewedDir string `yaml:"unreviewed_dir"`
	ApprovedDir   string `yaml:"approved_dir"`
	// CheckInterval is the registrar scan period in minutes.
	CheckInterval int `yaml:"check_interval"`
	MaxCount      int `yaml:"max_count"`
	MaxUploadMB   int `yaml:"max_upload_mb"`
}

// Interval returns the registrar scan period as a duration.
func (e EmojiConfig) Interval() time.Duration {
	return time.Duration(e.CheckInterval) * time.Minute
}

type MatchingConfig struct {
	Strategy        string  `yaml:"strategy"` // tags or embedding
	SimilarityLimit float64 `yaml:"similarity_limit"`
}

type StoreConfig struct {
	Backend string `yaml:"backend"` // json or postgres
	Path    string `yaml:"path"`    // registry file for the json backend
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from YAML file and applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Model.MaxTokens == 0 {
		cfg.Model.MaxTokens = 600
	}
	if cfg.Model.TimeoutSeconds == 0 {
		cfg.Model.TimeoutSeconds = 120
	}
	if cfg.Emoji.BaseDir == "" {
		cfg.Emoji.BaseDir = "data"
	}
	if cfg.Emoji.UnreviewedDir == "" {
		cfg.Emoji.UnreviewedDir = filepath.Join(cfg.Emoji.BaseDir, "emoji_unreviewed")
	}
	if cfg.Emoji.ApprovedDir == "" {
		cfg.Emoji.ApprovedDir = filepath.Join(cfg.Emoji.BaseDir, "emoji_approved")
	}
	if cfg.Emoji.CheckInterval == 0 {
		cfg.Emoji.CheckInterval = 10
	}
	if cfg.Emoji.MaxCount == 0 {
		cfg.Emoji.MaxCount = 200
	}
	if cfg.Emoji.MaxUploadMB == 0 {
		cfg.Emoji.MaxUploadMB = 10
	}
	if cfg.Matching.Strategy == "" {
		cfg.Matching.Strategy = "tags"
	}
	if cfg.Matching.SimilarityLimit == 0 {
		cfg.Matching.SimilarityLimit = 0.4
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "json"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = filepath.Join(cfg.Emoji.BaseDir, "emoji_data.json")
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 20
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("EMOMATCH_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("EMOMATCH_MODEL_BASE_URL"); v != "" {
		cfg.Model.BaseURL = v
	}
	if v := os.Getenv("EMOMATCH_MODEL_API_KEY"); v != "" {
		cfg.Model.APIKey = v
	}
	if v := os.Getenv("EMOMATCH_VISION_MODEL"); v != "" {
		cfg.Model.VisionModel = v
	}
	if v := os.Getenv("EMOMATCH_TEXT_MODEL"); v != "" {
		cfg.Model.TextModel = v
	}
	if v := os.Getenv("EMOMATCH_EMBEDDING_MODEL"); v != "" {
		cfg.Model.EmbeddingModel = v
	}
	if v := os.Getenv("EMOMATCH_BASE_DIR"); v != "" {
		cfg.Emoji.BaseDir = v
	}
	if v := os.Getenv("EMOMATCH_CHECK_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Emoji.CheckInterval = n
		}
	}
	if v := os.Getenv("EMOMATCH_STORE_BACKEND"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv("EMOMATCH_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("EMOMATCH_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("EMOMATCH_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("EMOMATCH_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("EMOMATCH_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("EMOMATCH_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("EMOMATCH_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("EMOMATCH_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("EMOMATCH_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("EMOMATCH_MINIO_BUCKET"); v != "" {
		cfg.MinIO.Bucket = v
	}
}
