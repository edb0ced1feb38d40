package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

// Gateway configures apps/gateway.
//
// Badger takes an exclusive lock on BADGER_PATH, so only one process can open
// it. Running the gateway and the API side by side needs STORE_BACKEND=scylla.
type Gateway struct {
	ListenAddr     string        `env:"LISTEN_ADDR,default=:8080"`
	JWTSecret      string        `env:"JWT_SECRET,required=true"`
	JWTIssuer      string        `env:"JWT_ISSUER"`
	StoreBackend   string        `env:"STORE_BACKEND,default=badger"`
	ScyllaHosts    string        `env:"SCYLLA_HOSTS,default=localhost:9042"`
	ScyllaKeyspace string        `env:"SCYLLA_KEYSPACE,default=teamsync"`
	BadgerPath     string        `env:"BADGER_PATH,default=./data/badger"`
	RedisAddr      string        `env:"REDIS_ADDR"`
	KafkaBrokers   string        `env:"KAFKA_BROKERS"`
	NoticeTopic    string        `env:"NOTICE_TOPIC,default=team-notices"`
	NoticeGroup    string        `env:"NOTICE_GROUP,default=gateway"`
	LogLevel       string        `env:"LOG_LEVEL,default=INFO"`
	PongWait       time.Duration `env:"PONG_WAIT,default=60s"`
	WriteWait      time.Duration `env:"WRITE_WAIT,default=10s"`
	MaxMessageSize int64         `env:"MAX_MESSAGE_SIZE,default=8192"`
	SendBuffer     int           `env:"SEND_BUFFER,default=256"`
	SnowflakeNode  int64         `env:"SNOWFLAKE_NODE,default=1"`
}

// API configures apps/api. The BADGER_PATH default matches the gateway's; see
// Gateway for running both at once.
type API struct {
	ListenAddr     string `env:"LISTEN_ADDR,default=:8081"`
	JWTSecret      string `env:"JWT_SECRET,required=true"`
	JWTIssuer      string `env:"JWT_ISSUER"`
	StoreBackend   string `env:"STORE_BACKEND,default=badger"`
	ScyllaHosts    string `env:"SCYLLA_HOSTS,default=localhost:9042"`
	ScyllaKeyspace string `env:"SCYLLA_KEYSPACE,default=teamsync"`
	BadgerPath     string `env:"BADGER_PATH,default=./data/badger"`
	RedisAddr      string `env:"REDIS_ADDR"`
	KafkaBrokers   string `env:"KAFKA_BROKERS"`
	NoticeTopic    string `env:"NOTICE_TOPIC,default=team-notices"`
	LogLevel       string `env:"LOG_LEVEL,default=INFO"`
	HistoryLimit   int    `env:"HISTORY_LIMIT,default=50"`
	SnowflakeNode  int64  `env:"SNOWFLAKE_NODE,default=2"`
}

// Load reads an optional .env file and then the process environment into dest.
func Load(dest any) error {
	_ = godotenv.Load()
	if _, err := env.UnmarshalFromEnviron(dest); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	return nil
}

// List splits a comma separated setting, dropping blanks.
func List(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
