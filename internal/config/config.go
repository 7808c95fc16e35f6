// Package config loads the runtime settings of the OCPI client binaries from
// the environment, with an optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/example/ocpi-client/internal/ocpi"
)

// Config captures all runtime configuration.
type Config struct {
	App       AppConfig
	Party     PartyConfig
	OCPI      OCPIConfig
	Endpoints EndpointsConfig
	Kafka     KafkaConfig
	Worker    WorkerConfig
	Metrics   MetricsConfig
	Influx    InfluxConfig
}

// AppConfig contains generic application level settings.
type AppConfig struct {
	Env      string
	LogLevel string
}

// PartyConfig identifies this CPO in OCPI routing headers.
type PartyConfig struct {
	CountryCode string
	PartyID     string
}

// OCPIConfig holds call defaults.
type OCPIConfig struct {
	Version     ocpi.Version
	CallTimeout time.Duration
	// Retries is carried to the pipeline but not acted on.
	Retries   int
	RawTokens bool
}

// EndpointsConfig selects the endpoint resolver: the YAML table when
// TablePath is set, otherwise Redis at RedisAddr.
type EndpointsConfig struct {
	TablePath         string
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	RedisNamespace    string
	InvalidateChannel string
	CacheTTL          time.Duration
}

// KafkaConfig defines brokers, topics and the consumer group of the worker.
type KafkaConfig struct {
	Brokers             []string
	PushTopic           string
	ResultTopic         string
	AuditTopic          string
	ConsumerGroup       string
	CommitOnSuccessOnly bool
}

// WorkerConfig bounds the push worker.
type WorkerConfig struct {
	Concurrency  int
	MsgMaxBytes  int
	DrainTimeout time.Duration
}

// MetricsConfig controls the metrics and health listener.
type MetricsConfig struct {
	Addr      string
	Namespace string
}

// InfluxConfig enables latency points when URL is set.
type InfluxConfig struct {
	URL         string
	Token       string
	Org         string
	Bucket      string
	Measurement string
}

// Enabled reports whether an InfluxDB sink is configured.
func (c InfluxConfig) Enabled() bool { return c.URL != "" }

// Load reads environment variables, applies defaults, validates required
// values and returns a populated Config instance. Every problem is reported
// in one error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	ldr := &envLoader{}

	cfg := &Config{}
	cfg.App.Env = ldr.getString("APP_ENV", "development", false)
	cfg.App.LogLevel = ldr.getString("LOG_LEVEL", "info", false)

	if cc := ldr.getString("OCPI_COUNTRY_CODE", "", true); cc != "" {
		norm, err := ocpi.NormalizeCountryCode(cc)
		if err != nil {
			ldr.addError(fmt.Sprintf("OCPI_COUNTRY_CODE: %v", err))
		}
		cfg.Party.CountryCode = norm
	}
	if pid := ldr.getString("OCPI_PARTY_ID", "", true); pid != "" {
		norm, err := ocpi.NormalizePartyID(pid)
		if err != nil {
			ldr.addError(fmt.Sprintf("OCPI_PARTY_ID: %v", err))
		}
		cfg.Party.PartyID = norm
	}

	version, err := ocpi.ParseVersion(ldr.getString("OCPI_VERSION", string(ocpi.V221), false))
	if err != nil {
		ldr.addError(fmt.Sprintf("OCPI_VERSION: %v", err))
	}
	cfg.OCPI.Version = version
	cfg.OCPI.CallTimeout = ldr.getDuration("OCPI_CALL_TIMEOUT", 60*time.Second, false)
	cfg.OCPI.Retries = ldr.getInt("OCPI_RETRIES", 0, false)
	cfg.OCPI.RawTokens = ldr.getBool("OCPI_RAW_TOKENS", false, false)

	cfg.Endpoints.TablePath = ldr.getString("ENDPOINTS_FILE", "", false)
	cfg.Endpoints.RedisAddr = ldr.getString("ENDPOINTS_REDIS_ADDR", "", false)
	cfg.Endpoints.RedisPassword = ldr.getString("ENDPOINTS_REDIS_PASSWORD", "", false)
	cfg.Endpoints.RedisDB = ldr.getInt("ENDPOINTS_REDIS_DB", 0, false)
	cfg.Endpoints.RedisNamespace = ldr.getString("ENDPOINTS_REDIS_NAMESPACE", "ocpi:endpoints", false)
	cfg.Endpoints.InvalidateChannel = ldr.getString("ENDPOINTS_REDIS_INVALIDATE_CHANNEL", "ocpi:endpoints:invalidate", false)
	cfg.Endpoints.CacheTTL = ldr.getDuration("ENDPOINTS_CACHE_TTL", 5*time.Minute, false)
	if cfg.Endpoints.TablePath == "" && cfg.Endpoints.RedisAddr == "" {
		ldr.addError("one of ENDPOINTS_FILE or ENDPOINTS_REDIS_ADDR is required")
	}

	cfg.Kafka.Brokers = ldr.getStringSlice("KAFKA_BROKERS", false)
	cfg.Kafka.PushTopic = ldr.getString("KAFKA_PUSH_TOPIC", "ocpi.push.requests", false)
	cfg.Kafka.ResultTopic = ldr.getString("KAFKA_RESULT_TOPIC", "ocpi.push.results", false)
	cfg.Kafka.AuditTopic = ldr.getString("KAFKA_AUDIT_TOPIC", "", false)
	cfg.Kafka.ConsumerGroup = ldr.getString("KAFKA_CONSUMER_GROUP", "ocpi-push-worker", false)
	cfg.Kafka.CommitOnSuccessOnly = ldr.getBool("COMMIT_ON_SUCCESS_ONLY", true, false)

	cfg.Worker.Concurrency = ldr.getInt("WORKER_CONCURRENCY", 10, false)
	cfg.Worker.MsgMaxBytes = ldr.getInt("MSG_MAX_BYTES", 1<<20, false)
	cfg.Worker.DrainTimeout = ldr.getDuration("WORKER_DRAIN_TIMEOUT", 30*time.Second, false)
	if cfg.Worker.Concurrency < 1 {
		ldr.addError("WORKER_CONCURRENCY must be >= 1")
	}

	cfg.Metrics.Addr = ldr.getString("METRICS_ADDR", ":9090", false)
	cfg.Metrics.Namespace = ldr.getString("METRICS_NAMESPACE", "ocpi_client", false)

	cfg.Influx.URL = ldr.getString("INFLUX_URL", "", false)
	cfg.Influx.Token = ldr.getString("INFLUX_TOKEN", "", false)
	cfg.Influx.Org = ldr.getString("INFLUX_ORG", "", false)
	cfg.Influx.Bucket = ldr.getString("INFLUX_BUCKET", "", false)
	cfg.Influx.Measurement = ldr.getString("INFLUX_MEASUREMENT", "ocpi_call", false)
	if cfg.Influx.Enabled() && (cfg.Influx.Org == "" || cfg.Influx.Bucket == "") {
		ldr.addError("INFLUX_ORG and INFLUX_BUCKET are required when INFLUX_URL is set")
	}

	if err := ldr.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// RequireKafka reports an error when the worker's Kafka settings are missing.
func (c *Config) RequireKafka() error {
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("config validation failed: KAFKA_BROKERS is required")
	}
	return nil
}

type envLoader struct {
	errs []string
}

func (l *envLoader) validate() error {
	if len(l.errs) == 0 {
		return nil
	}
	return fmt.Errorf("config validation failed: %s", strings.Join(l.errs, "; "))
}

func (l *envLoader) getString(key, def string, required bool) string {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.TrimSpace(val)
		if val == "" {
			if required {
				l.addError(fmt.Sprintf("%s is required", key))
			}
			return def
		}
		return val
	}
	if required {
		l.addError(fmt.Sprintf("%s is required", key))
	}
	return def
}

func (l *envLoader) getInt(key string, def int, required bool) int {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.TrimSpace(val)
		if val == "" {
			if required {
				l.addError(fmt.Sprintf("%s is required", key))
			}
			return def
		}
		i, err := strconv.Atoi(val)
		if err != nil {
			l.addError(fmt.Sprintf("%s must be a valid integer", key))
			return def
		}
		return i
	}
	if required {
		l.addError(fmt.Sprintf("%s is required", key))
	}
	return def
}

func (l *envLoader) getBool(key string, def bool, required bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.TrimSpace(val)
		if val == "" {
			if required {
				l.addError(fmt.Sprintf("%s is required", key))
			}
			return def
		}
		parsed, err := strconv.ParseBool(val)
		if err != nil {
			l.addError(fmt.Sprintf("%s must be a valid boolean", key))
			return def
		}
		return parsed
	}
	if required {
		l.addError(fmt.Sprintf("%s is required", key))
	}
	return def
}

func (l *envLoader) getDuration(key string, def time.Duration, required bool) time.Duration {
	raw := l.getString(key, "", required)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		l.addError(fmt.Sprintf("%s must be a valid duration", key))
		return def
	}
	return d
}

func (l *envLoader) getStringSlice(key string, required bool) []string {
	raw := l.getString(key, "", required)
	if raw == "" {
		if required {
			return nil
		}
		return []string{}
	}
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if required && len(out) == 0 {
		l.addError(fmt.Sprintf("%s must contain at least one entry", key))
	}
	return out
}

func (l *envLoader) addError(err string) {
	l.errs = append(l.errs, err)
}
