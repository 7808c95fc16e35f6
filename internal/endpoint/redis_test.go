package endpoint

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"github.com/example/ocpi-client/internal/ocpi"
)

type stubHashReader struct {
	mu     sync.Mutex
	hashes map[string]map[string]string
	err    error
	calls  int
}

func (s *stubHashReader) HGetAll(_ context.Context, key string) *redis.StringStringMapCmd {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return redis.NewStringStringMapResult(nil, s.err)
	}
	return redis.NewStringStringMapResult(s.hashes[key], nil)
}

func (s *stubHashReader) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestRedisResolverCachesHits(t *testing.T) {
	stub := &stubHashReader{hashes: map[string]map[string]string{
		"ocpi:endpoints:2.2.1:tariffs:RECEIVER": {
			FieldURL:        "https://emsp.example.com/ocpi/2.2.1/tariffs",
			FieldCredential: "secret",
		},
	}}
	r := NewRedisResolverWithReader(stub, RedisOptions{}, zerolog.Nop())
	desc := ocpi.Descriptor(ocpi.ModuleTariffs, ocpi.RoleReceiver)

	for i := 0; i < 3; i++ {
		ep, ok, err := r.Resolve(context.Background(), desc, ocpi.V221, "evt")
		if err != nil || !ok {
			t.Fatalf("expected endpoint, ok=%v err=%v", ok, err)
		}
		if ep.Credential != "secret" {
			t.Fatalf("unexpected credential %q", ep.Credential)
		}
	}
	if stub.callCount() != 1 {
		t.Fatalf("expected a single redis lookup, got %d", stub.callCount())
	}

	r.Invalidate(r.KeyFor(desc, ocpi.V221))
	if _, _, err := r.Resolve(context.Background(), desc, ocpi.V221, "evt"); err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if stub.callCount() != 2 {
		t.Fatalf("expected lookup after invalidation, got %d", stub.callCount())
	}
}

func TestRedisResolverExpiresEntries(t *testing.T) {
	stub := &stubHashReader{hashes: map[string]map[string]string{
		"ns:2.2:sessions:RECEIVER": {FieldURL: "https://emsp.example.com/sessions"},
	}}
	r := NewRedisResolverWithReader(stub, RedisOptions{Namespace: "ns", CacheTTL: time.Minute}, zerolog.Nop())
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }
	desc := ocpi.Descriptor(ocpi.ModuleSessions, ocpi.RoleReceiver)

	r.Resolve(context.Background(), desc, ocpi.V22, "")
	now = now.Add(30 * time.Second)
	r.Resolve(context.Background(), desc, ocpi.V22, "")
	if stub.callCount() != 1 {
		t.Fatalf("expected cached lookup inside TTL, got %d calls", stub.callCount())
	}

	now = now.Add(time.Minute)
	r.Resolve(context.Background(), desc, ocpi.V22, "")
	if stub.callCount() != 2 {
		t.Fatalf("expected refresh after TTL, got %d calls", stub.callCount())
	}
}

func TestRedisResolverAbsenceAndFaults(t *testing.T) {
	stub := &stubHashReader{hashes: map[string]map[string]string{}}
	r := NewRedisResolverWithReader(stub, RedisOptions{}, zerolog.Nop())
	desc := ocpi.Descriptor(ocpi.ModuleCDRs, ocpi.RoleReceiver)

	_, ok, err := r.Resolve(context.Background(), desc, ocpi.V221, "")
	if err != nil || ok {
		t.Fatalf("expected clean absence, ok=%v err=%v", ok, err)
	}

	stub.err = errors.New("connection refused")
	if _, _, err := r.Resolve(context.Background(), desc, ocpi.V221, ""); err == nil {
		t.Fatal("expected lookup fault to surface")
	}

	stub.err = nil
	stub.hashes[r.KeyFor(desc, ocpi.V221)] = map[string]string{FieldURL: "mailto:ops"}
	if _, _, err := r.Resolve(context.Background(), desc, ocpi.V221, ""); !errors.Is(err, ErrInvalidEntry) {
		t.Fatalf("expected ErrInvalidEntry, got %v", err)
	}
}

func TestRedisResolverInvalidateAll(t *testing.T) {
	stub := &stubHashReader{hashes: map[string]map[string]string{
		"ocpi:endpoints:2.2.1:locations:RECEIVER": {FieldURL: "https://emsp.example.com/locations"},
		"ocpi:endpoints:2.2.1:tariffs:RECEIVER":   {FieldURL: "https://emsp.example.com/tariffs"},
	}}
	r := NewRedisResolverWithReader(stub, RedisOptions{}, zerolog.Nop())

	r.Resolve(context.Background(), ocpi.Descriptor(ocpi.ModuleLocations, ocpi.RoleReceiver), ocpi.V221, "")
	r.Resolve(context.Background(), ocpi.Descriptor(ocpi.ModuleTariffs, ocpi.RoleReceiver), ocpi.V221, "")
	r.Invalidate(InvalidateAll)

	count := 0
	r.cache.Range(func(_, _ any) bool { count++; return true })
	if count != 0 {
		t.Fatalf("expected empty cache, %d entries left", count)
	}
}
