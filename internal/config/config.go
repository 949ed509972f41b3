package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime settings. Values come from opssage.yaml in the
// working directory or /etc/opssage, overridden by OPSSAGE_* environment
// variables (dots become underscores, e.g. OPSSAGE_MONGO_URI).
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Neo4j    Neo4jConfig    `mapstructure:"neo4j"`
	LLM      LLMConfig      `mapstructure:"llm"`
	RAG      RAGConfig      `mapstructure:"rag"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Auth     AuthConfig     `mapstructure:"auth"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type RedisConfig struct {
	Addr string `mapstructure:"addr"`
}

type Neo4jConfig struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type LLMConfig struct {
	Provider string `mapstructure:"provider"`
	BaseURL  string `mapstructure:"base_url"`
	APIKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model"`
}

type RAGConfig struct {
	QdrantURL      string `mapstructure:"qdrant_url"`
	OllamaURL      string `mapstructure:"ollama_url"`
	EmbeddingModel string `mapstructure:"embedding_model"`
	Collection     string `mapstructure:"collection"`
	TopK           int    `mapstructure:"top_k"`
}

type PipelineConfig struct {
	StageTimeout time.Duration `mapstructure:"stage_timeout"`
	Store        string        `mapstructure:"store"`
}

type TelegramConfig struct {
	BotToken     string `mapstructure:"bot_token"`
	ChatID       string `mapstructure:"chat_id"`
	DashboardURL string `mapstructure:"dashboard_url"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "opssage")
	v.SetDefault("redis.addr", "")
	v.SetDefault("neo4j.uri", "")
	v.SetDefault("neo4j.username", "neo4j")
	v.SetDefault("neo4j.password", "")
	v.SetDefault("llm.provider", "mock")
	v.SetDefault("llm.base_url", "http://localhost:11434")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("rag.qdrant_url", "")
	v.SetDefault("rag.ollama_url", "http://localhost:11434")
	v.SetDefault("rag.embedding_model", "nomic-embed-text")
	v.SetDefault("rag.collection", "documents")
	v.SetDefault("rag.top_k", 5)
	v.SetDefault("pipeline.stage_timeout", 2*time.Minute)
	v.SetDefault("pipeline.store", "mongo")
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.dashboard_url", "http://localhost:3000")
	v.SetDefault("auth.jwt_secret", "")

	v.SetConfigName("opssage")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/opssage")

	v.SetEnvPrefix("OPSSAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
