package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"didledger/internal/platform/kafka"
	"didledger/internal/platform/postgres"
	"didledger/internal/platform/rabbitmq"
	id "didledger/pkg/domain"
)

// Server captures process level configuration.
type Server struct {
	Addr              string
	ReadHeaderTimeout time.Duration
	RequestTimeout    time.Duration
	ShutdownTimeout   time.Duration
	TxTimeout         time.Duration

	Log      LogConfig
	Postgres postgres.Config
	Redis    RedisConfig
	Kafka    kafka.Config
	RabbitMQ rabbitmq.Config
	Auth     AuthConfig
	Audit    AuditConfig
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string
	Format string
}

// RedisConfig configures the resolution cache. An empty URL disables it.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	TTL          time.Duration
}

// AuthConfig configures bearer token validation.
type AuthConfig struct {
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
}

// AuditConfig names the two registries allowed to append to the audit log.
type AuditConfig struct {
	DIDRegistrySource              string
	CredentialStatusRegistrySource string
	PublishBuffer                  int
}

// DefaultCacheTTL bounds how long a resolved document or status may be served
// from Redis if an invalidation is lost.
var DefaultCacheTTL = 5 * time.Minute

const devSigningKey = "dev-secret-key-change-in-production"

// FromEnv builds a Server config from DIDLEDGER_* environment variables so
// main stays lean. Unset variables fall back to development defaults.
func FromEnv() Server {
	return Server{
		Addr:              getEnv("DIDLEDGER_ADDR", ":8080"),
		ReadHeaderTimeout: getDuration("DIDLEDGER_READ_HEADER_TIMEOUT", 5*time.Second),
		RequestTimeout:    getDuration("DIDLEDGER_REQUEST_TIMEOUT", 15*time.Second),
		ShutdownTimeout:   getDuration("DIDLEDGER_SHUTDOWN_TIMEOUT", 10*time.Second),
		TxTimeout:         getDuration("DIDLEDGER_TX_TIMEOUT", 5*time.Second),
		Log: LogConfig{
			Level:  getEnv("DIDLEDGER_LOG_LEVEL", "info"),
			Format: getEnv("DIDLEDGER_LOG_FORMAT", "json"),
		},
		Postgres: postgres.Config{
			DSN:             os.Getenv("DIDLEDGER_DATABASE_URL"),
			MaxOpenConns:    getInt("DIDLEDGER_DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getInt("DIDLEDGER_DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDuration("DIDLEDGER_DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("DIDLEDGER_REDIS_URL"),
			PoolSize:     getInt("DIDLEDGER_REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("DIDLEDGER_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("DIDLEDGER_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("DIDLEDGER_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("DIDLEDGER_REDIS_WRITE_TIMEOUT", 3*time.Second),
			TTL:          getDuration("DIDLEDGER_CACHE_TTL", DefaultCacheTTL),
		},
		Kafka: kafka.Config{
			Brokers:           kafka.ParseBrokers(os.Getenv("DIDLEDGER_KAFKA_BROKERS")),
			Topic:             getEnv("DIDLEDGER_KAFKA_TOPIC", "didledger.audit"),
			ClientID:          getEnv("DIDLEDGER_KAFKA_CLIENT_ID", "didledger"),
			Partitions:        int32(getInt("DIDLEDGER_KAFKA_PARTITIONS", 1)),
			ReplicationFactor: int16(getInt("DIDLEDGER_KAFKA_REPLICATION_FACTOR", 1)),
		},
		RabbitMQ: rabbitmq.Config{
			URL:        os.Getenv("DIDLEDGER_RABBITMQ_URL"),
			Exchange:   getEnv("DIDLEDGER_RABBITMQ_EXCHANGE", "didledger.audit"),
			RoutingKey: os.Getenv("DIDLEDGER_RABBITMQ_ROUTING_KEY"),
		},
		Auth: AuthConfig{
			// Use a default for development - should be overridden in production
			JWTSigningKey: getEnv("DIDLEDGER_JWT_SIGNING_KEY", devSigningKey),
			JWTIssuer:     getEnv("DIDLEDGER_JWT_ISSUER", "didledger"),
			JWTAudience:   getEnv("DIDLEDGER_JWT_AUDIENCE", "didledger-api"),
		},
		Audit: AuditConfig{
			DIDRegistrySource:              getEnv("DIDLEDGER_DID_REGISTRY_SOURCE", "did-registry"),
			CredentialStatusRegistrySource: getEnv("DIDLEDGER_CREDENTIAL_REGISTRY_SOURCE", "credential-status-registry"),
			PublishBuffer:                  getInt("DIDLEDGER_AUDIT_PUBLISH_BUFFER", 1024),
		},
	}
}

// Validate rejects configurations the process cannot start with.
func (s Server) Validate() error {
	if s.Addr == "" {
		return fmt.Errorf("server address is required")
	}
	if s.Auth.JWTSigningKey == "" {
		return fmt.Errorf("jwt signing key is required")
	}
	didSource, err := id.ParseIdentity(s.Audit.DIDRegistrySource)
	if err != nil {
		return fmt.Errorf("did registry source: %w", err)
	}
	credSource, err := id.ParseIdentity(s.Audit.CredentialStatusRegistrySource)
	if err != nil {
		return fmt.Errorf("credential status registry source: %w", err)
	}
	if didSource == credSource {
		return fmt.Errorf("registry sources must be distinct, both are %q", didSource)
	}
	if s.Audit.PublishBuffer < 0 {
		return fmt.Errorf("audit publish buffer must not be negative")
	}
	return nil
}

// UsesDevSigningKey reports whether the built-in development key is active.
func (s Server) UsesDevSigningKey() bool {
	return s.Auth.JWTSigningKey == devSigningKey
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
