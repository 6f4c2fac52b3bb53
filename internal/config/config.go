package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                string
	DatabaseDSN         string
	Env                 string
	PingIntervalSeconds int
	ResendAPIKey        string
	ContactInbox        string
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

// Load 读取环境变量（支持本地 .env 文件）并返回配置。
func Load() Config {
	// .env 不存在时静默忽略，容器环境直接注入环境变量
	_ = godotenv.Load()

	port := getenv("APP_PORT", "8080")
	dsn := getenv("DATABASE_DSN", "host=localhost user=postgres password=postgres dbname=chatapp port=5432 sslmode=disable TimeZone=UTC")
	env := getenv("APP_ENV", "dev")
	// 显式配置的非法值原样保留，由 Validate 拒绝
	ping := 10
	if v := os.Getenv("WS_PING_INTERVAL_SECONDS"); v != "" {
		ping, _ = strconv.Atoi(v)
	}
	return Config{
		Port:                port,
		DatabaseDSN:         dsn,
		Env:                 env,
		PingIntervalSeconds: ping,
		ResendAPIKey:        getenv("RESEND_API_KEY", ""),
		ContactInbox:        getenv("CONTACT_INBOX", ""),
	}
}

// Validate 检查启动所需的最小配置。
func Validate(cfg Config) error {
	if cfg.Port == "" {
		return errors.New("port must not be empty")
	}
	if cfg.DatabaseDSN == "" {
		return errors.New("database dsn must not be empty")
	}
	if cfg.PingIntervalSeconds <= 0 {
		return errors.New("ping interval must be positive")
	}
	if cfg.ResendAPIKey != "" && cfg.ContactInbox == "" {
		return errors.New("contact inbox required when resend api key is set")
	}
	return nil
}
