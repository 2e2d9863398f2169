package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"storefront-service/internal/database"

	"go.uber.org/zap"
)

type Config struct {
	Port    string
	JWT     JWT
	DB      DB
	Redis   Redis
	Kafka   Kafka
	Storage Storage
	Admin   Admin
	Site    Site
}

type JWT struct {
	Secret     string
	Issuer     string
	Audience   string
	AccessExp  time.Duration
	RefreshExp time.Duration
}

type DB struct {
	database.Config
}

type Redis struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type Kafka struct {
	Enabled    bool
	Brokers    []string
	EmailTopic string
	OrderTopic string
}

type Storage struct {
	Backend string // "gcs" или "fs"
	Bucket  string
	Dir     string
	BaseURL string
}

type Admin struct {
	Emails []string // allow-list адресов администраторов
}

type Site struct {
	SettingsTTL time.Duration
	CartTTL     time.Duration
}

func Load(log *zap.Logger) *Config {
	return &Config{
		Port: getEnv("APP_PORT", log),
		JWT: JWT{
			Secret:     getEnv("JWT_SECRET", log),
			Issuer:     getEnv("JWT_ISSUER", log),
			Audience:   getEnv("JWT_AUDIENCE", log),
			AccessExp:  parseDurationWithDays(getEnv("ACCESS_EXP", log)),
			RefreshExp: parseDurationWithDays(getEnv("REFRESH_EXP", log)),
		},
		DB: DB{
			Config: database.Config{
				Host:     getEnv("DB_HOST", log),
				Port:     getEnv("DB_PORT", log),
				User:     getEnv("DB_USER", log),
				Password: getEnv("DB_PASSWORD", log),
				Name:     getEnv("DB_NAME", log),
				SSLMode:  getEnv("DB_SSLMODE", log),
			},
		},
		Redis: Redis{
			Enabled:  os.Getenv("REDIS_ENABLED") == "true",
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       atoiDefault(os.Getenv("REDIS_DB"), 0),
		},
		Kafka: Kafka{
			Enabled:    os.Getenv("KAFKA_ENABLED") == "true",
			Brokers:    splitList(os.Getenv("KAFKA_BROKERS")),
			EmailTopic: envDefault("KAFKA_EMAIL_TOPIC", "storefront.emails"),
			OrderTopic: envDefault("KAFKA_ORDER_TOPIC", "storefront.orders"),
		},
		Storage: Storage{
			Backend: envDefault("STORAGE_BACKEND", "fs"),
			Bucket:  os.Getenv("STORAGE_BUCKET"),
			Dir:     envDefault("STORAGE_DIR", "./uploads"),
			BaseURL: envDefault("STORAGE_BASE_URL", "/uploads"),
		},
		Admin: Admin{
			Emails: splitList(os.Getenv("ADMIN_EMAILS")),
		},
		Site: Site{
			SettingsTTL: durationDefault(os.Getenv("SETTINGS_CACHE_TTL"), 5*time.Minute),
			CartTTL:     durationDefault(os.Getenv("CART_TTL"), 30*24*time.Hour),
		},
	}
}

func getEnv(key string, log *zap.Logger) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	log.Error("Обязательная переменная окружения не установлена", zap.String("key", key))
	panic("missing required environment variable: " + key)
}

func envDefault(key, def string) string {
	if val, exists := os.LookupEnv(key); exists && val != "" {
		return val
	}
	return def
}

func parseDurationWithDays(s string) time.Duration {
	if strings.HasSuffix(s, "d") {
		daysStr := strings.TrimSuffix(s, "d")
		days, err := time.ParseDuration(daysStr + "h")
		if err != nil {
			log.Printf("Ошибка парсинга TTL: %v", err)
			return 0
		}
		return time.Duration(24) * days
	}

	duration, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return duration
}

func durationDefault(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d := parseDurationWithDays(s); d > 0 {
		return d
	}
	return def
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
