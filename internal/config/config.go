package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/knowd-io/knowd/internal/logutil"
)

type Config struct {
	Port      int             `json:"port"`
	LogConfig logutil.Config  `json:"log_config"`
	Database  DatabaseConfig  `json:"database"`
	BlobStore BlobStoreConfig `json:"blob_store"`
	AI        AIConfig        `json:"ai"`
	Index     IndexConfig     `json:"index"`
	Query     QueryConfig     `json:"query"`
	Upload    UploadConfig    `json:"upload"`
	Channels  ChannelsConfig  `json:"channels"`
	Jobs      JobsConfig      `json:"jobs"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

type BlobStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type ProviderConfig struct {
	Provider string      `json:"provider"`
	Model    string      `json:"model"`
	Data     interface{} `json:"data"`
}

type AIConfig struct {
	Chat           ProviderConfig `json:"chat"`
	Embed          ProviderConfig `json:"embed"`
	EmbedDim       int            `json:"embed_dim"`
	EmbedBatchSize int            `json:"embed_batch_size"`
	TimeoutSeconds int            `json:"timeout_seconds"`
	CacheSize      int            `json:"cache_size"`
	CacheTTLHours  int            `json:"cache_ttl_hours"`
}

type IndexConfig struct {
	Type string `json:"type"`
}

type QueryConfig struct {
	IntentThreshold  float64 `json:"intent_threshold"`
	HistoryLimit     int     `json:"history_limit"`
	TopK             int     `json:"top_k"`
	RateLimitSeconds int     `json:"rate_limit_seconds"`
}

type UploadConfig struct {
	MaxFileSizeBytes int64 `json:"max_file_size_bytes"`
}

type ChannelsConfig struct {
	TelegramToken string   `json:"telegram_token"`
	CORSOrigins   []string `json:"cors_origins"`
}

type JobsConfig struct {
	QueryLogRetentionDays int    `json:"query_log_retention_days"`
	CleanupSpec           string `json:"cleanup_spec"`
	ReprocessSpec         string `json:"reprocess_spec"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return nil, fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.BlobStore.Type == "" {
		cfg.BlobStore.Type = "local"
	}
	if cfg.AI.Chat.Provider == "" || cfg.AI.Chat.Model == "" {
		return nil, fmt.Errorf("ai.chat provider/model are required")
	}
	if cfg.AI.Embed.Provider == "" || cfg.AI.Embed.Model == "" {
		return nil, fmt.Errorf("ai.embed provider/model are required")
	}
	if cfg.AI.EmbedDim == 0 {
		cfg.AI.EmbedDim = 1536
	}
	if cfg.AI.EmbedBatchSize == 0 {
		cfg.AI.EmbedBatchSize = 20
	}
	if cfg.AI.TimeoutSeconds == 0 {
		cfg.AI.TimeoutSeconds = 60
	}
	switch cfg.Index.Type {
	case "":
		cfg.Index.Type = "flat"
	case "flat", "pgvector":
	default:
		return nil, fmt.Errorf("index.type must be flat or pgvector")
	}
	if cfg.Query.IntentThreshold == 0 {
		cfg.Query.IntentThreshold = 0.7
	}
	if cfg.Query.HistoryLimit == 0 {
		cfg.Query.HistoryLimit = 5
	}
	if cfg.Query.TopK == 0 {
		cfg.Query.TopK = 5
	}
	if cfg.Upload.MaxFileSizeBytes == 0 {
		cfg.Upload.MaxFileSizeBytes = 50 * 1024 * 1024
	}
	if cfg.Jobs.CleanupSpec == "" {
		cfg.Jobs.CleanupSpec = "0 3 * * *"
	}
	if cfg.Jobs.ReprocessSpec == "" {
		cfg.Jobs.ReprocessSpec = "*/10 * * * *"
	}
	if cfg.Jobs.QueryLogRetentionDays == 0 {
		cfg.Jobs.QueryLogRetentionDays = 90
	}
	return &cfg, nil
}
