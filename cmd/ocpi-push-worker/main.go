package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/example/ocpi-client/internal/bootstrap"
	"github.com/example/ocpi-client/internal/config"
	"github.com/example/ocpi-client/internal/counters"
	"github.com/example/ocpi-client/internal/events"
	"github.com/example/ocpi-client/internal/kafka/consumer"
	"github.com/example/ocpi-client/internal/kafka/producer"
	kafkapublisher "github.com/example/ocpi-client/internal/kafka/publisher"
	"github.com/example/ocpi-client/internal/logger"
	"github.com/example/ocpi-client/internal/metrics"
	"github.com/example/ocpi-client/internal/observers"
	"github.com/example/ocpi-client/internal/worker"
)

const serviceName = "ocpi-push-worker"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fail("config load", err)
	}
	if err := cfg.RequireKafka(); err != nil {
		fail("config load", err)
	}

	log, err := logger.New(serviceName, cfg.App.Env, cfg.App.LogLevel)
	if err != nil {
		fail("logger init", err)
	}

	stack, err := bootstrap.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build ocpi client")
	}
	defer func() {
		if err := stack.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close endpoint store")
		}
	}()

	prod, err := producer.New(cfg.Kafka.Brokers, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create kafka producer")
	}
	defer func() {
		if err := prod.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close kafka producer")
		}
	}()

	cons, err := consumer.New(cfg.Kafka.Brokers, cfg.Kafka.ConsumerGroup, log, cfg.Kafka.CommitOnSuccessOnly)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create kafka consumer")
	}
	defer func() {
		if err := cons.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close kafka consumer")
		}
	}()

	stack.Notifier.Subscribe(observers.NewLogging(log))
	if cfg.Kafka.AuditTopic != "" {
		audit := kafkapublisher.NewAuditPublisher(prod, cfg.Kafka.AuditTopic, log)
		stack.Notifier.Subscribe(observers.NewAudit(audit), events.DomainResponse)
	}
	if cfg.Influx.Enabled() {
		sink, err := observers.DialInflux(observers.InfluxOptions{
			URL:    cfg.Influx.URL,
			Token:  cfg.Influx.Token,
			Org:    cfg.Influx.Org,
			Bucket: cfg.Influx.Bucket,
		}, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to influxdb")
		}
		defer sink.Close()
		stack.Notifier.Subscribe(observers.NewInflux(sink, cfg.Influx.Measurement), events.DomainResponse)
	}

	results := kafkapublisher.NewResultPublisher(prod, cfg.Kafka.ResultTopic, log)
	engine, err := worker.NewEngine(worker.Config{
		MsgMaxBytes:       cfg.Worker.MsgMaxBytes,
		WorkerConcurrency: cfg.Worker.Concurrency,
	}, worker.Dependencies{
		Dispatcher:      stack.Client,
		ResultPublisher: results,
		Logger:          log,
		Now:             time.Now,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise worker engine")
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		counters.NewCollector(cfg.Metrics.Namespace, stack.Counters),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	srv := metrics.NewServer(cfg.Metrics.Addr, promReg, map[string]metrics.Check{
		"kafka_producer": prod.IsReady,
		"kafka_consumer": cons.IsReady,
		"endpoint_store": func() bool {
			pingCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			return stack.Ready(pingCtx)
		},
	}, log)
	srv.Start()

	errCh := make(chan error, 1)
	go func() {
		if err := cons.Consume(ctx, []string{cfg.Kafka.PushTopic}, worker.KafkaHandler(engine, cons)); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
		close(errCh)
	}()

	log.Info().
		Str("push_topic", cfg.Kafka.PushTopic).
		Str("result_topic", cfg.Kafka.ResultTopic).
		Str("ocpi_version", string(cfg.OCPI.Version)).
		Msg("ocpi push worker started")

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("consumer terminated with error")
		}
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), cfg.Worker.DrainTimeout)
	defer cancel()
	if err := engine.Drain(drainCtx); err != nil {
		log.Warn().Err(err).Msg("in-flight push requests did not finish before shutdown")
	}
	if err := srv.Shutdown(drainCtx); err != nil {
		log.Error().Err(err).Msg("failed to stop metrics server")
	}
}

func fail(stage string, err error) {
	l := zerolog.New(os.Stdout).With().Timestamp().Str("service", serviceName).Logger()
	l.Fatal().Err(err).Str("stage", stage).Msg("ocpi push worker init failed")
}
