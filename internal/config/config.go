package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// JWTConfig defines the issuer/secret pair for auth verification.
type JWTConfig struct {
	Issuer string
	Secret []byte
}

// Config holds runtime configuration shared across the application.
type Config struct {
	Addr             string
	StoreDriver      string
	DatabasePath     string
	DatabaseURL      string
	MongoURI         string
	MongoDatabase    string
	ReportCollection string
	ZoneCollection   string
	RatingCollection string
	Timeout          time.Duration
	DefaultCity      string
	ServerLog        *log.Logger
	JWT              JWTConfig
	AllowedOrigins   []string
	PublicBaseURL    string
	WSSendBuffer     int
	MQTTBroker       string
	MQTTClientID     string
	MQTTTopicPrefix  string
}

// fileConfig mirrors the optional YAML overlay named by CONFIG_FILE.
// Environment variables take precedence over anything set here.
type fileConfig struct {
	HTTPAddr       string   `yaml:"http_addr"`
	DefaultCity    string   `yaml:"default_city"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	PublicBaseURL  string   `yaml:"public_base_url"`
	Store          struct {
		Driver         string `yaml:"driver"`
		Path           string `yaml:"path"`
		URL            string `yaml:"url"`
		ConnectTimeout string `yaml:"connect_timeout"`
	} `yaml:"store"`
	Mongo struct {
		URI              string `yaml:"uri"`
		Database         string `yaml:"database"`
		ReportCollection string `yaml:"report_collection"`
		ZoneCollection   string `yaml:"zone_collection"`
		RatingCollection string `yaml:"rating_collection"`
	} `yaml:"mongo"`
	JWT struct {
		Issuer string `yaml:"issuer"`
	} `yaml:"jwt"`
	WebSocket struct {
		SendBuffer int `yaml:"send_buffer"`
	} `yaml:"websocket"`
	MQTT struct {
		Broker      string `yaml:"broker"`
		ClientID    string `yaml:"client_id"`
		TopicPrefix string `yaml:"topic_prefix"`
	} `yaml:"mqtt"`
}

// Load reads the optional YAML overlay and environment variables and returns a
// fully populated Config. Missing JWT_SECRET is fatal.
func Load() Config {
	cfg, err := load(os.Getenv)
	if err != nil {
		log.Fatal(err)
	}
	cfg.ServerLog.Printf("loaded config: addr=%q store=%q defaultCity=%q mqtt=%q", cfg.Addr, cfg.StoreDriver, cfg.DefaultCity, cfg.MQTTBroker)
	return cfg
}

func load(getenv func(string) string) (Config, error) {
	var file fileConfig
	if path := strings.TrimSpace(getenv("CONFIG_FILE")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read CONFIG_FILE: %w", err)
		}
		if err := yaml.Unmarshal(raw, &file); err != nil {
			return Config{}, fmt.Errorf("parse CONFIG_FILE %s: %w", path, err)
		}
	}

	env := envReader{getenv: getenv}

	secret := strings.TrimSpace(getenv("JWT_SECRET"))
	if secret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET must be configured")
	}

	timeout := 10 * time.Second
	if raw := env.orDefault("STORE_CONNECT_TIMEOUT", file.Store.ConnectTimeout); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("STORE_CONNECT_TIMEOUT: %w", err)
		}
		timeout = parsed
	}

	sendBuffer := file.WebSocket.SendBuffer
	if raw := strings.TrimSpace(getenv("WS_SEND_BUFFER")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return Config{}, fmt.Errorf("WS_SEND_BUFFER must be a positive integer: %q", raw)
		}
		sendBuffer = parsed
	}
	if sendBuffer <= 0 {
		sendBuffer = 16
	}

	origins := file.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	driver := strings.ToLower(env.orDefault("STORE_DRIVER", firstNonEmpty(file.Store.Driver, "sqlite")))
	switch driver {
	case "sqlite", "postgres", "mongo":
	default:
		return Config{}, fmt.Errorf("STORE_DRIVER must be sqlite, postgres or mongo: %q", driver)
	}

	return Config{
		Addr:             env.orDefault("HTTP_ADDR", firstNonEmpty(file.HTTPAddr, ":5000")),
		StoreDriver:      driver,
		DatabasePath:     env.orDefault("DATABASE_PATH", firstNonEmpty(file.Store.Path, "data/hushmap.db")),
		DatabaseURL:      env.orDefault("DATABASE_URL", file.Store.URL),
		MongoURI:         env.orDefault("MONGO_URI", firstNonEmpty(file.Mongo.URI, "mongodb://mongo:27017")),
		MongoDatabase:    env.orDefault("MONGO_DB", firstNonEmpty(file.Mongo.Database, "hushmap")),
		ReportCollection: env.orDefault("REPORT_COLLECTION", firstNonEmpty(file.Mongo.ReportCollection, "noise_reports")),
		ZoneCollection:   env.orDefault("ZONE_COLLECTION", firstNonEmpty(file.Mongo.ZoneCollection, "quiet_zones")),
		RatingCollection: env.orDefault("RATING_COLLECTION", firstNonEmpty(file.Mongo.RatingCollection, "zone_ratings")),
		Timeout:          timeout,
		DefaultCity:      strings.ToLower(env.orDefault("DEFAULT_CITY", firstNonEmpty(file.DefaultCity, "coimbatore"))),
		ServerLog:        log.New(os.Stdout, "[hushmap-api] ", log.LstdFlags|log.Lshortfile),
		JWT: JWTConfig{
			Issuer: env.orDefault("JWT_ISSUER", file.JWT.Issuer),
			Secret: []byte(secret),
		},
		AllowedOrigins:  env.list("API_ALLOWED_ORIGINS", origins),
		PublicBaseURL:   env.orDefault("PUBLIC_BASE_URL", firstNonEmpty(file.PublicBaseURL, "http://localhost:3000")),
		WSSendBuffer:    sendBuffer,
		MQTTBroker:      env.orDefault("MQTT_BROKER", file.MQTT.Broker),
		MQTTClientID:    env.orDefault("MQTT_CLIENT_ID", firstNonEmpty(file.MQTT.ClientID, "hushmap-api")),
		MQTTTopicPrefix: env.orDefault("MQTT_TOPIC_PREFIX", firstNonEmpty(file.MQTT.TopicPrefix, "hushmap")),
	}, nil
}

type envReader struct {
	getenv func(string) string
}

func (e envReader) orDefault(key, fallback string) string {
	if v := strings.TrimSpace(e.getenv(key)); v != "" {
		return v
	}
	return fallback
}

func (e envReader) list(key string, fallback []string) []string {
	raw := strings.TrimSpace(e.getenv(key))
	if raw == "" {
		return fallback
	}

	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			values = append(values, part)
		}
	}

	if len(values) == 0 {
		return fallback
	}
	return values
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
