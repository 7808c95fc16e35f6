package config

import (
	"strings"
	"testing"
	"time"

	"github.com/example/ocpi-client/internal/ocpi"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("OCPI_COUNTRY_CODE", "nl")
	t.Setenv("OCPI_PARTY_ID", "abc")
	t.Setenv("ENDPOINTS_FILE", "endpoints.yaml")
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Party.CountryCode != "NL" || cfg.Party.PartyID != "ABC" {
		t.Fatalf("expected normalised party, got %+v", cfg.Party)
	}
	if cfg.OCPI.Version != ocpi.V221 || cfg.OCPI.CallTimeout != 60*time.Second || cfg.OCPI.Retries != 0 {
		t.Fatalf("unexpected OCPI defaults %+v", cfg.OCPI)
	}
	if cfg.Kafka.ConsumerGroup != "ocpi-push-worker" || !cfg.Kafka.CommitOnSuccessOnly {
		t.Fatalf("unexpected kafka defaults %+v", cfg.Kafka)
	}
	if cfg.Worker.Concurrency != 10 || cfg.Endpoints.CacheTTL != 5*time.Minute {
		t.Fatalf("unexpected worker/endpoint defaults %+v %+v", cfg.Worker, cfg.Endpoints)
	}
	if cfg.Influx.Enabled() {
		t.Fatal("influx must be disabled without INFLUX_URL")
	}
	if err := cfg.RequireKafka(); err == nil {
		t.Fatal("expected RequireKafka to fail without brokers")
	}
}

func TestLoadOverrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("OCPI_VERSION", "2.1.1")
	t.Setenv("OCPI_CALL_TIMEOUT", "5s")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("WORKER_CONCURRENCY", "4")
	t.Setenv("INFLUX_URL", "http://influx:8086")
	t.Setenv("INFLUX_ORG", "cpo")
	t.Setenv("INFLUX_BUCKET", "ocpi")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.OCPI.Version != ocpi.V211 || cfg.OCPI.CallTimeout != 5*time.Second {
		t.Fatalf("unexpected OCPI config %+v", cfg.OCPI)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Fatalf("unexpected brokers %v", cfg.Kafka.Brokers)
	}
	if err := cfg.RequireKafka(); err != nil {
		t.Fatalf("RequireKafka returned error: %v", err)
	}
	if cfg.Worker.Concurrency != 4 || !cfg.Influx.Enabled() {
		t.Fatalf("unexpected config %+v %+v", cfg.Worker, cfg.Influx)
	}
}

func TestLoadAccumulatesErrors(t *testing.T) {
	t.Setenv("OCPI_COUNTRY_CODE", "NLD")
	t.Setenv("OCPI_PARTY_ID", "")
	t.Setenv("OCPI_VERSION", "3.0")
	t.Setenv("OCPI_CALL_TIMEOUT", "soon")
	t.Setenv("WORKER_CONCURRENCY", "0")
	t.Setenv("INFLUX_URL", "http://influx:8086")

	_, err := Load()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{
		"OCPI_COUNTRY_CODE",
		"OCPI_PARTY_ID is required",
		"OCPI_VERSION",
		"OCPI_CALL_TIMEOUT must be a valid duration",
		"ENDPOINTS_FILE or ENDPOINTS_REDIS_ADDR",
		"WORKER_CONCURRENCY must be >= 1",
		"INFLUX_ORG and INFLUX_BUCKET",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %v", want, err)
		}
	}
}

func TestEnvLoaderInvalidNumbers(t *testing.T) {
	t.Setenv("SOME_INT", "x")
	t.Setenv("SOME_BOOL", "maybe")

	ldr := &envLoader{}
	if got := ldr.getInt("SOME_INT", 3, false); got != 3 {
		t.Fatalf("expected default on parse error, got %d", got)
	}
	if got := ldr.getBool("SOME_BOOL", true, false); !got {
		t.Fatal("expected default on parse error")
	}
	if len(ldr.errs) != 2 {
		t.Fatalf("expected two errors, got %v", ldr.errs)
	}
}
