package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Port string `yaml:"port"`
}

type JWTConfig struct {
	Secret string `yaml:"secret"`
}

type GeminiConfig struct {
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

type GmailConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// ChatConfig tunes the conversational engine. WindowSize is clamped to
// [5, 20]: the engine only ever reasons over one bounded recent window.
type ChatConfig struct {
	WindowSize     int           `yaml:"window_size"`
	DigestKeyMax   int           `yaml:"digest_key_max"`
	PendingTimeout time.Duration `yaml:"pending_timeout"`
	SessionTTL     time.Duration `yaml:"session_ttl"`
	ReadRetries    int           `yaml:"read_retries"`
	RetryBackoff   time.Duration `yaml:"retry_backoff"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

type MQConfig struct {
	URL string `yaml:"url"`
}

type Config struct {
	Server ServerConfig `yaml:"server"`
	JWT    JWTConfig    `yaml:"jwt"`
	Gemini GeminiConfig `yaml:"gemini"`
	Gmail  GmailConfig  `yaml:"gmail"`
	Chat   ChatConfig   `yaml:"chat"`
	Redis  RedisConfig  `yaml:"redis"`
	DB     DBConfig     `yaml:"db"`
	MQ     MQConfig     `yaml:"mq"`
}

func Load() *Config {
	f, err := os.Open("config.yaml")
	if err != nil {
		log.Fatalf("failed to open config.yaml: %v", err)
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		log.Fatalf("failed to decode config.yaml: %v", err)
	}

	overrideFromEnv(&cfg)
	applyDefaults(&cfg)

	return &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Chat.WindowSize < 5 {
		cfg.Chat.WindowSize = 5
	}
	if cfg.Chat.WindowSize > 20 {
		cfg.Chat.WindowSize = 20
	}
	if cfg.Chat.DigestKeyMax <= 0 {
		cfg.Chat.DigestKeyMax = 3
	}
	if cfg.Chat.PendingTimeout <= 0 {
		cfg.Chat.PendingTimeout = 5 * time.Minute
	}
	if cfg.Chat.SessionTTL <= 0 {
		cfg.Chat.SessionTTL = 24 * time.Hour
	}
	if cfg.Chat.ReadRetries <= 0 {
		cfg.Chat.ReadRetries = 2
	}
	if cfg.Chat.RetryBackoff <= 0 {
		cfg.Chat.RetryBackoff = 200 * time.Millisecond
	}
	if cfg.Gemini.Model == "" {
		cfg.Gemini.Model = "gemini-2.0-flash"
	}
	if cfg.Gemini.Timeout <= 0 {
		cfg.Gemini.Timeout = 15 * time.Second
	}
	if cfg.Gmail.Timeout <= 0 {
		cfg.Gmail.Timeout = 10 * time.Second
	}
}

func overrideFromEnv(cfg *Config) {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Server.Port = port
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.JWT.Secret = secret
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		cfg.Gemini.APIKey = key
	}
	if model := os.Getenv("GEMINI_MODEL"); model != "" {
		cfg.Gemini.Model = model
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Redis.Password = password
	}

	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.DB.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.DB.Port = p
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.DB.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.DB.Password = password
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.DB.Name = name
	}

	if url := os.Getenv("MQ_URL"); url != "" {
		cfg.MQ.URL = url
	}
}
