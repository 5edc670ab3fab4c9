package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Skotchmaster/bookly/internal/models"
)

type Config struct {
	HTTPAddr string
	LogLevel string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret    string
	JWTAlgorithm string

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	RevocationEnabled    bool
	RevocationFailClosed bool

	KafkaAddress string

	ESURL      string
	ESUser     string
	ESPassword string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	cfg := &Config{
		HTTPAddr:             envDefault("HTTP_ADDR", ":8080"),
		LogLevel:             envDefault("LOG_LEVEL", "info"),
		DBHost:               os.Getenv("DB_HOST"),
		DBPort:               os.Getenv("DB_PORT"),
		DBUser:               os.Getenv("DB_USER"),
		DBPassword:           os.Getenv("DB_PASSWORD"),
		DBName:               os.Getenv("DB_NAME"),
		RedisAddr:            envDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		RedisDB:              envInt("REDIS_DB", 0),
		JWTSecret:            os.Getenv("JWT_SECRET"),
		JWTAlgorithm:         envDefault("JWT_ALGORITHM", "HS256"),
		AccessTokenTTL:       envSeconds("ACCESS_TOKEN_TTL", 3600),
		RefreshTokenTTL:      envSeconds("REFRESH_TOKEN_TTL", 7*24*3600),
		RevocationEnabled:    envBool("REVOCATION_ENABLED", true),
		RevocationFailClosed: envBool("REVOCATION_FAIL_CLOSED", false),
		KafkaAddress:         os.Getenv("KAFKA_ADDRESS"),
		ESURL:                os.Getenv("ES_URL"),
		ESUser:               os.Getenv("ES_USER"),
		ESPassword:           os.Getenv("ES_PASSWORD"),
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET must be set")
	}

	return cfg, nil
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Book{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

func envDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Notice: invalid %s=%q, using %d", key, v, def)
		return def
	}
	return n
}

func envSeconds(key string, def int) time.Duration {
	return time.Duration(envInt(key, def)) * time.Second
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("Notice: invalid %s=%q, using %t", key, v, def)
		return def
	}
	return b
}
