package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                  string
	AllowedOrigin         string
	APIBaseURL            string
	RequestTimeoutSeconds int
	DatabaseURL           string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	AuthSecret            string
	AccessTokenTTLMinutes int
	OperatorEmail         string
	OperatorPassword      string
}

func Load() Config {
	// A local .env overrides the environment during development; in
	// production the file is simply absent.
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Overload(".env"); err != nil {
			log.Printf("config: failed to load .env: %v", err)
		}
	}

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	timeout, err := strconv.Atoi(getEnv("REQUEST_TIMEOUT_SECONDS", "10"))
	if err != nil || timeout < 1 {
		timeout = 10
	}
	tokenTTL, err := strconv.Atoi(getEnv("ACCESS_TOKEN_TTL_MINUTES", "480"))
	if err != nil || tokenTTL < 1 {
		tokenTTL = 480
	}

	cfg := Config{
		Port:                  getEnv("PORT", "8090"),
		AllowedOrigin:         getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		APIBaseURL:            strings.TrimSpace(os.Getenv("API_BASE_URL")),
		RequestTimeoutSeconds: timeout,
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:               redisDB,
		AuthSecret:            strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes: tokenTTL,
		OperatorEmail:         getEnv("OPERATOR_EMAIL", "admin@allinconnect.local"),
		OperatorPassword:      strings.TrimSpace(os.Getenv("OPERATOR_PASSWORD")),
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
