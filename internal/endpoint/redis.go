package endpoint

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"github.com/example/ocpi-client/internal/ocpi"
)

// Hash fields of a Redis endpoint entry.
const (
	FieldURL        = "url"
	FieldCredential = "credential"
)

// InvalidateAll is the invalidation payload that clears the whole cache.
const InvalidateAll = "ALL"

// RedisOptions configures a RedisResolver.
type RedisOptions struct {
	Addr              string
	Password          string
	DB                int
	Namespace         string
	InvalidateChannel string
	Timeout           time.Duration
	CacheTTL          time.Duration
}

// HashReader is the subset of the Redis client used for lookups.
type HashReader interface {
	HGetAll(ctx context.Context, key string) *redis.StringStringMapCmd
}

// RedisResolver reads endpoints stored as hashes under
// "<namespace>:<version>:<module>:<ROLE>". Hits are cached in memory until the
// TTL expires or an invalidation message names the key.
type RedisResolver struct {
	rdb       HashReader
	client    *redis.Client
	namespace string
	channel   string
	timeout   time.Duration
	ttl       time.Duration
	logger    zerolog.Logger
	now       func() time.Time

	cache sync.Map
}

type cacheEntry struct {
	endpoint ResolvedEndpoint
	expires  time.Time
}

// NewRedisResolver connects to Redis with the given options.
func NewRedisResolver(opts RedisOptions, logger zerolog.Logger) (*RedisResolver, error) {
	if strings.TrimSpace(opts.Addr) == "" {
		return nil, fmt.Errorf("endpoint: redis address is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.Timeout,
		ReadTimeout:  opts.Timeout,
		WriteTimeout: opts.Timeout,
	})
	r := newRedisResolver(client, opts, logger)
	r.client = client
	return r, nil
}

// NewRedisResolverWithReader builds a resolver around an existing reader. The
// result does not listen for invalidations.
func NewRedisResolverWithReader(rdb HashReader, opts RedisOptions, logger zerolog.Logger) *RedisResolver {
	return newRedisResolver(rdb, opts, logger)
}

func newRedisResolver(rdb HashReader, opts RedisOptions, logger zerolog.Logger) *RedisResolver {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &RedisResolver{
		rdb:       rdb,
		namespace: firstNonEmpty(opts.Namespace, "ocpi:endpoints"),
		channel:   firstNonEmpty(opts.InvalidateChannel, "ocpi:endpoints:invalidate"),
		timeout:   timeout,
		ttl:       opts.CacheTTL,
		logger:    logger.With().Str("component", "endpoint_redis").Logger(),
		now:       time.Now,
	}
}

// KeyFor renders the Redis key of an endpoint.
func (r *RedisResolver) KeyFor(desc ocpi.ModuleDescriptor, version ocpi.Version) string {
	return fmt.Sprintf("%s:%s:%s:%s", r.namespace, version, desc.Module, desc.Role)
}

func (r *RedisResolver) Resolve(ctx context.Context, desc ocpi.ModuleDescriptor, version ocpi.Version, eventTrackingID string) (ResolvedEndpoint, bool, error) {
	key := r.KeyFor(desc, version)
	if v, ok := r.cache.Load(key); ok {
		entry := v.(cacheEntry)
		if entry.expires.IsZero() || r.now().Before(entry.expires) {
			return entry.endpoint, true, nil
		}
		r.cache.Delete(key)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	fields, err := r.rdb.HGetAll(ctx, key).Result()
	if err != nil && err != redis.Nil {
		return ResolvedEndpoint{}, false, fmt.Errorf("endpoint: redis lookup %s: %w", key, err)
	}
	if len(fields) == 0 || strings.TrimSpace(fields[FieldURL]) == "" {
		r.logger.Debug().
			Str("key", key).
			Str("event_tracking_id", eventTrackingID).
			Msg("endpoint redis: no endpoint advertised")
		return ResolvedEndpoint{}, false, nil
	}

	ep, err := normalize(ResolvedEndpoint{
		BaseURL:    fields[FieldURL],
		Credential: fields[FieldCredential],
		Version:    version,
		Descriptor: desc,
	})
	if err != nil {
		return ResolvedEndpoint{}, false, err
	}

	entry := cacheEntry{endpoint: ep}
	if r.ttl > 0 {
		entry.expires = r.now().Add(r.ttl)
	}
	r.cache.Store(key, entry)
	return ep, true, nil
}

// Invalidate drops one cached key, or every key for InvalidateAll or "".
func (r *RedisResolver) Invalidate(payload string) {
	payload = strings.TrimSpace(payload)
	if payload == "" || payload == InvalidateAll {
		r.cache.Range(func(k, _ any) bool {
			r.cache.Delete(k)
			return true
		})
		return
	}
	r.cache.Delete(payload)
}

// Listen applies invalidation messages until ctx is done. It is a no-op for
// resolvers built without a Redis client.
func (r *RedisResolver) Listen(ctx context.Context) error {
	if r.client == nil {
		return nil
	}
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	r.logger.Info().Str("channel", r.channel).Msg("endpoint redis: listening for invalidations")
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.logger.Debug().Str("payload", msg.Payload).Msg("endpoint redis: invalidation received")
			r.Invalidate(msg.Payload)
		}
	}
}

// Ping checks connectivity; used by readiness probes.
func (r *RedisResolver) Ping(ctx context.Context) error {
	if r.client == nil {
		return nil
	}
	return r.client.Ping(ctx).Err()
}

// Close releases the Redis connection pool.
func (r *RedisResolver) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}

func firstNonEmpty(s, def string) string {
	if strings.TrimSpace(s) != "" {
		return s
	}
	return def
}
