package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port         int
	LogLevel     string
	Environment  string
	TavusAPIKey  string
	TavusBaseURL string
	PersonaID    string
	ReplicaID    string
	StaticDir    string
	NatsURL      string
	NatsToken    string
}

func Load() Config {
	return Config{
		Port:         envInt("PORT", 3001),
		LogLevel:     envStr("LOG_LEVEL", "info"),
		Environment:  envStr("APP_ENV", "development"),
		TavusAPIKey:  envStr("TAVUS_API_KEY", ""),
		TavusBaseURL: envStr("TAVUS_BASE_URL", "https://tavusapi.com"),
		PersonaID:    envStr("TAVUS_PERSONA_ID", ""),
		ReplicaID:    envStr("TAVUS_REPLICA_ID", ""),
		StaticDir:    envStr("STATIC_DIR", ""),
		NatsURL:      envStr("NATS_URL", ""),
		NatsToken:    envStr("NATS_TOKEN", ""),
	}
}

// Missing returns the names of required variables that are unset.
// Credentials have no fallback.
func (c Config) Missing() []string {
	var missing []string
	if c.TavusAPIKey == "" {
		missing = append(missing, "TAVUS_API_KEY")
	}
	if c.PersonaID == "" {
		missing = append(missing, "TAVUS_PERSONA_ID")
	}
	if c.ReplicaID == "" {
		missing = append(missing, "TAVUS_REPLICA_ID")
	}
	return missing
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
