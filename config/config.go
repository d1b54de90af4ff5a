package config

import (
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/joho/godotenv"
)

type Config struct {
	AppName                       string   `env:"APP_NAME" env-default:"bramble-api"`
	Port                          int      `env:"PORT" env-default:"3004"`
	Version                       string   `env:"APP_VERSION" env-default:"dev"`
	LogLevel                      string   `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs                    bool     `env:"PRETTY_LOGS" env-default:"false"`
	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"10"`
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" env-default:"*"`
	AllowMethods                  []string `env:"HTTP_SERVER_ALLOW_METHODS" env-default:"GET,POST,PUT,DELETE"`
	StartupMaxAttempts            int      `env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`

	// Tracing
	TracingEnabled      bool   `env:"TRACING_ENABLED" env-default:"false"`
	TracingOTLPEndpoint string `env:"TRACING_OTLP_ENDPOINT" env-default:"localhost:4318"`
	TracingConsole      bool   `env:"TRACING_CONSOLE" env-default:"false"`

	// PostgreSQL (contact book)
	DatabaseHost                string        `env:"DB_HOST" env-default:""`
	DatabasePort                int           `env:"DB_PORT" env-default:"5432"`
	DatabaseUserName            string        `env:"DB_USER_NAME" env-default:""`
	DatabasePassword            string        `env:"DB_PASSWORD" env-default:""`
	DatabaseName                string        `env:"DB_NAME" env-default:"bramble"`
	DatabaseSSLMode             string        `env:"DB_SSL_MODE" env-default:"disable"`
	DatabaseMaxOpenConns        int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	DatabaseMaxIdleConns        int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	DatabaseConnMaxLifetime     time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10s"`
	DatabaseMigrationFolderPath string        `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`
	DatabaseMigrationVersion    int           `env:"DB_MIGRATION_VERSION" env-default:"0"`

	// Redis (link graph item store)
	RedisHost      string        `env:"REDIS_HOST" env-default:"localhost"`
	RedisPort      int           `env:"REDIS_PORT" env-default:"6379"`
	RedisPassword  string        `env:"REDIS_PASSWORD" env-default:""`
	RedisDB        int           `env:"REDIS_DB" env-default:"0"`
	RedisOpTimeout time.Duration `env:"REDIS_OP_TIMEOUT" env-default:"3s"`

	// Kafka Consumer (inbound messages)
	KafkaBrokers         []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaInputTopic      string   `env:"KAFKA_INPUT_TOPIC" env-default:"inbound-messages"`
	KafkaConsumerGroup   string   `env:"KAFKA_CONSUMER_GROUP" env-default:"bramble-consumer"`
	KafkaConsumerEnabled bool     `env:"KAFKA_CONSUMER_ENABLED" env-default:"true"`

	// Kafka Producer (link events)
	KafkaOutputTopic  string `env:"KAFKA_OUTPUT_TOPIC" env-default:"link-events"`
	KafkaBatchSize    int    `env:"KAFKA_BATCH_SIZE" env-default:"100"`
	KafkaBatchTimeout int    `env:"KAFKA_BATCH_TIMEOUT_MS" env-default:"100"`
	KafkaRequiredAcks int    `env:"KAFKA_REQUIRED_ACKS" env-default:"1"`
	KafkaCompression  string `env:"KAFKA_COMPRESSION" env-default:"snappy"`

	// Semantic search backend
	SearchBaseURL string        `env:"SEARCH_BASE_URL" env-default:"http://localhost:8091"`
	SearchAPIKey  string        `env:"SEARCH_API_KEY" env-default:""`
	SearchTimeout time.Duration `env:"SEARCH_TIMEOUT" env-default:"5s"`

	// Matching
	MatchMaxCandidates       int     `env:"MATCH_MAX_CANDIDATES" env-default:"50"`
	MatchPerSignalFetchLimit int     `env:"MATCH_PER_SIGNAL_FETCH_LIMIT" env-default:"100"`
	MatchStrongSignalScore   float64 `env:"MATCH_STRONG_SIGNAL_SCORE" env-default:"0.9"`
	MatchMultiSignalBonus    float64 `env:"MATCH_MULTI_SIGNAL_BONUS" env-default:"0.05"`

	// Auto-linking
	AutoLinkThreshold        float64 `env:"AUTO_LINK_THRESHOLD" env-default:"0.75"`
	AutoLinkSenderMatchScore float64 `env:"AUTO_LINK_SENDER_MATCH_SCORE" env-default:"0.9"`
	AutoLinkSearchLimit      int     `env:"AUTO_LINK_SEARCH_LIMIT" env-default:"10"`
	AutoLinkMaxContentLength int     `env:"AUTO_LINK_MAX_CONTENT_LENGTH" env-default:"512"`
}

// Load reads .env when present and binds environment variables
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
