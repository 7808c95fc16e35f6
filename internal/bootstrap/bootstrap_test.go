package bootstrap_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/ocpi-client/internal/bootstrap"
	"github.com/example/ocpi-client/internal/client"
	"github.com/example/ocpi-client/internal/config"
	"github.com/example/ocpi-client/internal/endpoint"
	"github.com/example/ocpi-client/internal/ocpi"
)

const table = `credential: secret
endpoints:
  - module: tariffs
    version: "2.2.1"
    url: https://emsp.example/ocpi/2.2.1/tariffs
`

func TestBuildFromTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "endpoints.yaml")
	if err := os.WriteFile(path, []byte(table), 0o600); err != nil {
		t.Fatalf("write table: %v", err)
	}

	cfg := &config.Config{}
	cfg.Party = config.PartyConfig{CountryCode: "NL", PartyID: "CPO"}
	cfg.OCPI = config.OCPIConfig{Version: ocpi.V221, CallTimeout: time.Second, Retries: 2}
	cfg.Endpoints.TablePath = path

	stack, err := bootstrap.Build(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	defer stack.Close()

	if _, ok := stack.Resolver.(*endpoint.Table); !ok {
		t.Fatalf("expected table resolver, got %T", stack.Resolver)
	}
	if stack.Pipeline.Retries() != 2 {
		t.Fatalf("expected retries carried to the pipeline, got %d", stack.Pipeline.Retries())
	}
	if got := len(stack.Counters.Operations()); got != len(client.Operations()) {
		t.Fatalf("expected every operation registered, got %d", got)
	}
	if !stack.Ready(context.Background()) {
		t.Fatal("table-backed stack must be ready")
	}

	ep, ok, err := stack.Resolver.Resolve(context.Background(), ocpi.Descriptor(ocpi.ModuleTariffs, ocpi.RoleReceiver), ocpi.V221, "evt")
	if err != nil || !ok || ep.Credential != "secret" {
		t.Fatalf("unexpected resolution %+v ok=%v err=%v", ep, ok, err)
	}
}

func TestBuildRequiresEndpointSource(t *testing.T) {
	if _, err := bootstrap.Build(context.Background(), &config.Config{}, zerolog.Nop()); err == nil {
		t.Fatal("expected error without endpoint source")
	}
	if _, err := bootstrap.Build(context.Background(), nil, zerolog.Nop()); err == nil {
		t.Fatal("expected error without config")
	}
}
