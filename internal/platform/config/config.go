package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName  string `envconfig:"SERVICE_NAME" default:"govote"`
	HTTPPort     string `envconfig:"HTTP_PORT" default:"8080"`
	PostgresDSN  string `envconfig:"POSTGRES_DSN"`
	KafkaBrokers string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	OutboxTopic  string `envconfig:"OUTBOX_TOPIC" default:"governance.agenda"`

	EnableOutboxRelay bool `envconfig:"ENABLE_OUTBOX_RELAY" default:"true"`
}

func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("process environment config: %w", err)
	}
	return cfg, nil
}

// Brokers splits the comma-separated broker list, dropping empty entries.
func (c Config) Brokers() []string {
	var brokers []string
	for _, value := range strings.Split(c.KafkaBrokers, ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			brokers = append(brokers, value)
		}
	}
	return brokers
}
