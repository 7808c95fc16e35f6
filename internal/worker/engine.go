// Package worker runs OCPI push requests consumed from Kafka through the
// client and reports one result per record.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/example/ocpi-client/internal/client"
	"github.com/example/ocpi-client/internal/correlation"
	"github.com/example/ocpi-client/internal/models"
	"github.com/example/ocpi-client/internal/ocpi"
	"github.com/example/ocpi-client/internal/outcome"
)

// Config contains the runtime settings of the engine.
type Config struct {
	MsgMaxBytes       int
	WorkerConcurrency int
}

// Record is a Kafka message handed to the engine, detached from the consumer
// so it can be processed on another goroutine.
type Record struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Timestamp time.Time
	Headers   map[string][]byte

	commit func(context.Context) error
}

// NewRecord builds a record whose offset is committed through commit.
func NewRecord(topic string, partition int32, offset int64, key, value []byte, commit func(context.Context) error) *Record {
	return &Record{
		Topic:     topic,
		Partition: partition,
		Offset:    offset,
		Key:       cloneBytes(key),
		Value:     cloneBytes(value),
		commit:    commit,
	}
}

// Dispatcher runs a client operation by name. *client.Client implements it.
type Dispatcher interface {
	Invoke(ctx context.Context, name string, req client.Request) (outcome.Summary, error)
}

// ResultPublisher writes the result of a push request.
type ResultPublisher interface {
	PublishResult(ctx context.Context, result models.PushResult) error
}

// Dependencies collects the runtime collaborators required by the engine.
type Dependencies struct {
	Dispatcher      Dispatcher
	ResultPublisher ResultPublisher
	Logger          zerolog.Logger
	Now             func() time.Time
}

// Engine decodes push requests, dispatches them with bounded concurrency and
// publishes a result before committing each record. Every record gets exactly
// one attempt; failed calls are reported, not retried.
type Engine struct {
	cfg        Config
	dispatcher Dispatcher
	results    ResultPublisher
	logger     zerolog.Logger

	semaphore *semaphore.Weighted

	now func() time.Time
}

// NewEngine validates cfg and deps and constructs an Engine.
func NewEngine(cfg Config, deps Dependencies) (*Engine, error) {
	if cfg.WorkerConcurrency < 1 {
		return nil, errors.New("worker: worker concurrency must be >= 1")
	}
	if cfg.MsgMaxBytes < 0 {
		return nil, errors.New("worker: msg max bytes cannot be negative")
	}
	if deps.Dispatcher == nil {
		return nil, errors.New("worker: dispatcher dependency is required")
	}
	if deps.ResultPublisher == nil {
		return nil, errors.New("worker: result publisher dependency is required")
	}

	logger := deps.Logger
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}

	nowFunc := deps.Now
	if nowFunc == nil {
		nowFunc = time.Now
	}

	return &Engine{
		cfg:        cfg,
		dispatcher: deps.Dispatcher,
		results:    deps.ResultPublisher,
		logger:     logger.With().Str("component", "worker_engine").Logger(),
		semaphore:  semaphore.NewWeighted(int64(cfg.WorkerConcurrency)),
		now:        nowFunc,
	}, nil
}

// HandleRecord checks and decodes record, then dispatches it on a separate
// goroutine once a concurrency slot is free. Records that cannot be decoded
// are rejected and committed immediately.
func (e *Engine) HandleRecord(ctx context.Context, record *Record) {
	if record == nil {
		return
	}

	if e.cfg.MsgMaxBytes > 0 && len(record.Value) > e.cfg.MsgMaxBytes {
		err := fmt.Errorf("payload exceeds maximum size: got %d bytes, limit %d bytes", len(record.Value), e.cfg.MsgMaxBytes)
		e.reject(ctx, record, &models.PushRequest{MessageID: string(record.Key)}, err)
		return
	}

	req, err := decode(record)
	if err != nil {
		e.reject(ctx, record, req, err)
		return
	}

	if err := e.semaphore.Acquire(ctx, 1); err != nil {
		e.logger.Warn().
			Str("message_id", req.MessageID).
			Err(err).
			Msg("worker: context cancelled waiting for a slot; record left uncommitted")
		return
	}

	go e.process(ctx, record, req)
}

// Drain waits until every in-flight record has finished or ctx is done.
func (e *Engine) Drain(ctx context.Context) error {
	if err := e.semaphore.Acquire(ctx, int64(e.cfg.WorkerConcurrency)); err != nil {
		return fmt.Errorf("worker: drain: %w", err)
	}
	e.semaphore.Release(int64(e.cfg.WorkerConcurrency))
	return nil
}

func (e *Engine) process(ctx context.Context, record *Record, req *models.PushRequest) {
	defer e.semaphore.Release(1)

	log := e.logger.With().
		Str("message_id", req.MessageID).
		Str("operation", req.Operation).
		Logger()

	if ctx.Err() != nil {
		log.Warn().Msg("worker: context cancelled before dispatch; record left uncommitted")
		return
	}

	callReq, err := RequestFor(req)
	if err != nil {
		e.reject(ctx, record, req, err)
		return
	}

	start := e.now()
	summary, err := e.dispatcher.Invoke(ctx, req.Operation, callReq)
	duration := e.now().Sub(start)

	if err != nil {
		// Unknown operation or undecodable payload.
		e.reject(ctx, record, req, err)
		return
	}

	if summary.Kind == outcome.KindTransportException && ctx.Err() != nil {
		log.Warn().Msg("worker: shutdown interrupted the call; record left uncommitted for redelivery")
		return
	}

	result := models.PushResult{
		MessageID: req.MessageID,
		Operation: req.Operation,
		Outcome:   &summary,
		Duration:  duration,
		Timestamp: e.now(),
	}
	switch summary.Kind {
	case outcome.KindSuccess:
		result.State = models.ResultSucceeded
		log.Info().Dur("duration", duration).Msg("worker: push request succeeded")
	case outcome.KindBusinessError:
		result.State = models.ResultFailed
		result.FailureType = models.FailureBusiness
		result.Error = summary.Message
		log.Warn().Str("message", summary.Message).Msg("worker: push request rejected by counterparty")
	default:
		result.State = models.ResultFailed
		result.FailureType = models.FailureTransport
		result.Error = summary.Message
		log.Warn().Str("message", summary.Message).Msg("worker: push request failed in transport")
	}

	e.publish(ctx, result)
	e.commitRecord(ctx, record)
}

func (e *Engine) reject(ctx context.Context, record *Record, req *models.PushRequest, cause error) {
	if req == nil {
		req = &models.PushRequest{}
	}
	if req.MessageID == "" {
		req.MessageID = string(record.Key)
	}
	e.logger.Warn().
		Str("message_id", req.MessageID).
		Str("operation", req.Operation).
		Err(cause).
		Msg("worker: push request rejected")

	e.publish(ctx, models.PushResult{
		MessageID:   req.MessageID,
		Operation:   req.Operation,
		State:       models.ResultRejected,
		FailureType: models.FailureValidation,
		Error:       cause.Error(),
		Timestamp:   e.now(),
	})
	e.commitRecord(ctx, record)
}

func (e *Engine) publish(ctx context.Context, result models.PushResult) {
	if err := e.results.PublishResult(ctx, result); err != nil {
		e.logger.Error().
			Str("message_id", result.MessageID).
			Str("state", result.State).
			Err(err).
			Msg("worker: failed to publish push result")
	}
}

func (e *Engine) commitRecord(ctx context.Context, record *Record) {
	if record.commit == nil {
		return
	}
	if err := record.commit(ctx); err != nil {
		e.logger.Error().
			Str("topic", record.Topic).
			Int32("partition", record.Partition).
			Int64("offset", record.Offset).
			Err(err).
			Msg("worker: failed to commit record offset")
	}
}

// decode parses and checks the record value. The returned request is non-nil
// whenever its message id could be determined.
func decode(record *Record) (*models.PushRequest, error) {
	req := &models.PushRequest{}
	if err := json.Unmarshal(record.Value, req); err != nil {
		return &models.PushRequest{MessageID: string(record.Key)}, fmt.Errorf("decode push request: %w", err)
	}
	if req.MessageID == "" {
		req.MessageID = string(record.Key)
	}
	req.Operation = strings.TrimSpace(req.Operation)
	if req.Operation == "" {
		return req, errors.New("operation is required")
	}
	if _, ok := client.Lookup(req.Operation); !ok {
		return req, fmt.Errorf("%w: %q", client.ErrUnknownOperation, req.Operation)
	}
	return req, nil
}

// RequestFor maps a push request to the client call it describes, carrying its
// ids into the correlation context.
func RequestFor(req *models.PushRequest) (client.Request, error) {
	out := client.Request{
		CountryCode: req.CountryCode,
		PartyID:     req.PartyID,
		ID:          req.ID,
		EVSEUID:     req.EVSEUID,
		ConnectorID: req.ConnectorID,
		URL:         req.URL,
		Type:        req.Type,
		Offset:      req.Offset,
		Limit:       req.Limit,
		DateFrom:    req.DateFrom,
		DateTo:      req.DateTo,
		Payload:     req.Payload,
	}
	if req.Version != "" {
		v, err := ocpi.ParseVersion(req.Version)
		if err != nil {
			return client.Request{}, err
		}
		out.Version = v
	}

	opts := []correlation.Option{correlation.WithEventTrackingID(req.MessageID)}
	if req.RequestID != "" {
		opts = append(opts, correlation.WithRequestID(req.RequestID))
	}
	if req.CorrelationID != "" {
		opts = append(opts, correlation.WithCorrelationID(req.CorrelationID))
	}
	out.Correlation = opts
	return out, nil
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return append([]byte(nil), b...)
}
