package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	StoreDriver string // "postgres" or "memory"
	DBUrl       string
	Port        string
	LogMode     string

	SweepInterval time.Duration

	RedisAddr       string
	RateLimitMax    int
	RateLimitWindow time.Duration

	SlackToken           string
	SlackAnnounceChannel string

	GroqAPIKey  string
	GroqModel   string
	HTTPTimeout time.Duration
}

func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println(".env file was not found")
	}

	driver, ok := os.LookupEnv("STORE_DRIVER")
	if !ok {
		driver = "postgres"
	}

	db, ok := os.LookupEnv("DATABASE_URL")
	if !ok {
		db = os.Getenv("DB_URL")
	}
	if db == "" && driver == "postgres" {
		log.Fatal("DATABASE_URL and DB_URL environment variables were not set")
	}

	port, ok := os.LookupEnv("PORT")
	if !ok {
		port = "8080"
	}

	return Config{
		StoreDriver: driver,
		DBUrl:       db,
		Port:        port,
		LogMode:     envStr("LOG_MODE", "dev"),

		SweepInterval: envDuration("SWEEP_INTERVAL", time.Minute),

		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RateLimitMax:    envInt("RATE_LIMIT_REQUESTS", 3),
		RateLimitWindow: envDuration("RATE_LIMIT_WINDOW", time.Hour),

		SlackToken:           os.Getenv("SLACK_BOT_TOKEN"),
		SlackAnnounceChannel: envStr("SLACK_ANNOUNCE_CHANNEL", "genel"),

		GroqAPIKey:  os.Getenv("GROQ_API_KEY"),
		GroqModel:   envStr("GROQ_MODEL", "llama-3.3-70b-versatile"),
		HTTPTimeout: envDuration("HTTP_CLIENT_TIMEOUT", 30*time.Second),
	}
}

func envStr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("%s must be an integer, got %q", key, v)
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("%s must be a duration like 30s or 5m, got %q", key, v)
	}
	return d
}
