// Package bootstrap assembles the OCPI client stack shared by the binaries:
// endpoint resolver, counters, notifier, pipeline and client.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/rs/zerolog"

	"github.com/example/ocpi-client/internal/client"
	"github.com/example/ocpi-client/internal/config"
	"github.com/example/ocpi-client/internal/counters"
	"github.com/example/ocpi-client/internal/endpoint"
	"github.com/example/ocpi-client/internal/events"
	"github.com/example/ocpi-client/internal/pipeline"
	"github.com/example/ocpi-client/internal/transport"
)

// Stack is a wired OCPI client.
type Stack struct {
	Resolver endpoint.Resolver
	Counters *counters.Registry
	Notifier *events.Notifier
	Pipeline *pipeline.Pipeline
	Client   *client.Client

	redis *endpoint.RedisResolver
}

// Build wires a Stack from cfg. With a Redis resolver, cache invalidations are
// followed until ctx is done.
func Build(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Stack, error) {
	if cfg == nil {
		return nil, errors.New("bootstrap: config is required")
	}
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}

	s := &Stack{
		Counters: counters.NewRegistry(),
		Notifier: events.NewNotifier(logger),
	}

	switch {
	case cfg.Endpoints.TablePath != "":
		table, err := endpoint.LoadTable(cfg.Endpoints.TablePath, logger)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: %w", err)
		}
		s.Resolver = table
	case cfg.Endpoints.RedisAddr != "":
		rr, err := endpoint.NewRedisResolver(endpoint.RedisOptions{
			Addr:              cfg.Endpoints.RedisAddr,
			Password:          cfg.Endpoints.RedisPassword,
			DB:                cfg.Endpoints.RedisDB,
			Namespace:         cfg.Endpoints.RedisNamespace,
			InvalidateChannel: cfg.Endpoints.InvalidateChannel,
			CacheTTL:          cfg.Endpoints.CacheTTL,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: %w", err)
		}
		go func() {
			if err := rr.Listen(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("bootstrap: endpoint invalidation listener stopped")
			}
		}()
		s.Resolver = rr
		s.redis = rr
	default:
		return nil, errors.New("bootstrap: no endpoint source configured")
	}

	topts := []transport.Option{transport.WithParty(cfg.Party.CountryCode, cfg.Party.PartyID)}
	if cfg.OCPI.RawTokens {
		topts = append(topts, transport.WithRawTokens())
	}
	doer := transport.NewClient(logger, topts...)

	p, err := pipeline.New(s.Resolver, doer,
		pipeline.WithCounters(s.Counters),
		pipeline.WithNotifier(s.Notifier),
		pipeline.WithLogger(logger),
		pipeline.WithTimeout(cfg.OCPI.CallTimeout),
		pipeline.WithRetries(cfg.OCPI.Retries),
	)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	s.Pipeline = p

	c, err := client.New(p, client.WithVersion(cfg.OCPI.Version), client.WithLogger(logger))
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	s.Client = c
	return s, nil
}

// Ready reports whether the endpoint store answers. A file-backed table is
// always ready.
func (s *Stack) Ready(ctx context.Context) bool {
	if s.redis == nil {
		return true
	}
	return s.redis.Ping(ctx) == nil
}

// Close releases the endpoint store connection, if any.
func (s *Stack) Close() error {
	if s.redis == nil {
		return nil
	}
	return s.redis.Close()
}
