package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	CONFIG_PATH = "CONFIG_PATH"
)

type Config struct {
	Cipher CipherConfig `yaml:"cipher"`
	NATS   NATSConfig   `yaml:"nats"`
	Kafka  KafkaConfig  `yaml:"kafka"`
	Log    LogConfig    `yaml:"log"`
}

// CipherConfig describes one cipher context. Key and IV are hex encoded.
type CipherConfig struct {
	Algorithm string `yaml:"algorithm" env:"CIPHER_ALGORITHM" env-default:"DES"`
	Mode      string `yaml:"mode" env:"CIPHER_MODE" env-default:"CBC"`
	Padding   string `yaml:"padding" env:"CIPHER_PADDING" env-default:"PKCS7"`
	Key       string `yaml:"key" env:"CIPHER_KEY" env-required:"true"`
	IV        string `yaml:"iv" env:"CIPHER_IV"`
	Delta     int64  `yaml:"delta" env:"CIPHER_DELTA" env-default:"1"`
	Workers   int    `yaml:"workers" env:"CIPHER_WORKERS" env-default:"0"`
}

type NATSConfig struct {
	Enabled        bool          `yaml:"enabled" env:"NATS_ENABLED" env-default:"false"`
	URL            string        `yaml:"url" env:"NATS_URL" env-default:"nats://localhost:4222"`
	SubjectPrefix  string        `yaml:"subject_prefix" env:"NATS_SUBJECT_PREFIX" env-default:"crypota"`
	QueueGroup     string        `yaml:"queue_group" env:"NATS_QUEUE_GROUP" env-default:"crypota-workers"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"NATS_REQUEST_TIMEOUT" env-default:"5s"`
}

type KafkaConfig struct {
	Enabled      bool     `yaml:"enabled" env:"KAFKA_ENABLED" env-default:"false"`
	Brokers      []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:"," env-default:"localhost:9092"`
	RequestTopic string   `yaml:"request_topic" env:"KAFKA_REQUEST_TOPIC" env-default:"crypota.requests"`
	ReplyTopic   string   `yaml:"reply_topic" env:"KAFKA_REPLY_TOPIC" env-default:"crypota.replies"`
	GroupID      string   `yaml:"group_id" env:"KAFKA_GROUP_ID" env-default:"crypota"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
}

// MustLoadConfig reads the YAML file named by CONFIG_PATH; environment
// variables override file values.
func MustLoadConfig() (*Config, error) {
	configPath := os.Getenv(CONFIG_PATH)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set", CONFIG_PATH)
	}
	return Load(configPath)
}

func Load(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s does not exist %s", CONFIG_PATH, configPath)
	}

	var config Config

	if err := cleanenv.ReadConfig(configPath, &config); err != nil {
		return nil, fmt.Errorf("cannot load config file: %w", err)
	}

	return &config, nil
}

// NewLogger builds a slog logger writing to w in the configured format.
func (c LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", c.Level, err)
	}
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(c.Format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q", c.Format)
	}
}
