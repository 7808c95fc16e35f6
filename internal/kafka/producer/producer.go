// Package producer publishes push results and call audit records to Kafka.
package producer

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"
)

const (
	defaultClientID                = "ocpi-client-producer"
	defaultMetadataRefreshInterval = 30 * time.Second
)

// ErrTopicRequired is returned when a publish call names no topic.
var ErrTopicRequired = errors.New("kafka producer: topic is required")

// ErrBufferFull is returned by PublishAsync when the input channel is saturated.
var ErrBufferFull = errors.New("kafka producer: async input buffer full")

// Option customises the producer during construction.
type Option func(*options)

type options struct {
	config          *sarama.Config
	clientID        string
	refreshInterval time.Duration
}

// WithConfig supplies a preconfigured Sarama config. It is copied before use.
func WithConfig(cfg *sarama.Config) Option {
	return func(o *options) {
		if cfg != nil {
			o.config = cfg
		}
	}
}

// WithClientID overrides the Kafka client id reported to the brokers.
func WithClientID(id string) Option {
	return func(o *options) {
		if id != "" {
			o.clientID = id
		}
	}
}

// WithMetadataRefreshInterval overrides how often cluster metadata is refreshed
// to keep readiness current.
func WithMetadataRefreshInterval(interval time.Duration) Option {
	return func(o *options) {
		if interval > 0 {
			o.refreshInterval = interval
		}
	}
}

// Producer pairs a Sarama sync producer, used for push results, with an async
// producer, used for the audit trail. Readiness follows metadata refreshes and
// send outcomes.
type Producer struct {
	logger zerolog.Logger

	client        sarama.Client
	syncProducer  sarama.SyncProducer
	asyncProducer sarama.AsyncProducer

	refreshInterval time.Duration

	ready     atomic.Bool
	asyncLost atomic.Uint64

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New connects to brokers and starts the metadata and async error watchers.
func New(brokers []string, logger zerolog.Logger, opts ...Option) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka producer: at least one broker is required")
	}
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}

	settings := &options{
		clientID:        defaultClientID,
		refreshInterval: defaultMetadataRefreshInterval,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(settings)
		}
	}

	cfg := buildConfig(settings)

	client, err := sarama.NewClient(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: create client: %w", err)
	}
	syncProd, err := sarama.NewSyncProducerFromClient(client)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("kafka producer: create sync producer: %w", err)
	}
	asyncProd, err := sarama.NewAsyncProducerFromClient(client)
	if err != nil {
		syncProd.Close()
		client.Close()
		return nil, fmt.Errorf("kafka producer: create async producer: %w", err)
	}

	p := &Producer{
		logger:          logger.With().Str("component", "kafka_producer").Logger(),
		client:          client,
		syncProducer:    syncProd,
		asyncProducer:   asyncProd,
		refreshInterval: settings.refreshInterval,
		stopCh:          make(chan struct{}),
	}

	if err := client.RefreshMetadata(); err != nil {
		p.logger.Error().Err(err).Msg("kafka producer: initial metadata refresh failed")
	} else {
		p.ready.Store(true)
	}

	p.wg.Add(2)
	go p.watchMetadata()
	go p.drainAsync()

	return p, nil
}

// PublishSync publishes a message and waits for all in-sync replicas to
// acknowledge it.
func (p *Producer) PublishSync(topic string, key []byte, headers map[string][]byte, payload []byte) error {
	msg, err := newMessage(topic, key, headers, payload)
	if err != nil {
		return err
	}
	partition, offset, err := p.syncProducer.SendMessage(msg)
	if err != nil {
		p.ready.Store(false)
		return fmt.Errorf("kafka producer: send sync: %w", err)
	}
	p.ready.Store(true)
	p.logger.Debug().
		Str("topic", topic).
		Int32("partition", partition).
		Int64("offset", offset).
		Msg("kafka producer: message acknowledged")
	return nil
}

// PublishAsync enqueues a message without blocking. Delivery failures are
// logged by the async error watcher.
func (p *Producer) PublishAsync(topic string, key []byte, headers map[string][]byte, payload []byte) error {
	msg, err := newMessage(topic, key, headers, payload)
	if err != nil {
		return err
	}
	select {
	case p.asyncProducer.Input() <- msg:
		return nil
	default:
		p.asyncLost.Add(1)
		return ErrBufferFull
	}
}

// IsReady reports whether the last metadata refresh or send succeeded.
func (p *Producer) IsReady() bool {
	return p.ready.Load()
}

// AsyncLost counts async messages dropped on a full buffer or failed delivery.
func (p *Producer) AsyncLost() uint64 {
	return p.asyncLost.Load()
}

// Close stops the watchers and releases the Sarama producers and client.
func (p *Producer) Close() error {
	close(p.stopCh)
	p.wg.Wait()

	var errs []error
	if err := p.asyncProducer.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := p.syncProducer.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := p.client.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (p *Producer) watchMetadata() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			if err := p.client.RefreshMetadata(); err != nil {
				p.logger.Error().Err(err).Msg("kafka producer: metadata refresh failed")
				p.ready.Store(false)
				continue
			}
			p.ready.Store(true)
		}
	}
}

// drainAsync consumes both result channels of the async producer; with
// Return.Successes enabled an unread success channel would stall it.
func (p *Producer) drainAsync() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			return
		case _, ok := <-p.asyncProducer.Successes():
			if !ok {
				return
			}
		case perr, ok := <-p.asyncProducer.Errors():
			if !ok {
				return
			}
			p.asyncLost.Add(1)
			if perr != nil {
				p.logger.Error().
					Err(perr.Err).
					Str("topic", perr.Msg.Topic).
					Msg("kafka producer: async delivery failed")
			}
		}
	}
}

func newMessage(topic string, key []byte, headers map[string][]byte, payload []byte) (*sarama.ProducerMessage, error) {
	if topic == "" {
		return nil, ErrTopicRequired
	}
	msg := &sarama.ProducerMessage{
		Topic:   topic,
		Value:   sarama.ByteEncoder(payload),
		Headers: toRecordHeaders(headers),
	}
	if len(key) > 0 {
		msg.Key = sarama.ByteEncoder(key)
	}
	return msg, nil
}

func toRecordHeaders(headers map[string][]byte) []sarama.RecordHeader {
	if len(headers) == 0 {
		return nil
	}
	out := make([]sarama.RecordHeader, 0, len(headers))
	for k, v := range headers {
		out = append(out, sarama.RecordHeader{Key: []byte(k), Value: append([]byte(nil), v...)})
	}
	return out
}

func buildConfig(settings *options) *sarama.Config {
	var cfg *sarama.Config
	if settings.config != nil {
		cloned := *settings.config
		cfg = &cloned
	} else {
		cfg = sarama.NewConfig()
		cfg.Version = sarama.V2_5_0_0
		cfg.Producer.RequiredAcks = sarama.WaitForAll
		cfg.Producer.Retry.Max = 6
		cfg.Producer.Retry.Backoff = 250 * time.Millisecond
		cfg.Producer.Idempotent = true
		cfg.Net.MaxOpenRequests = 1
		cfg.Metadata.Full = true
	}
	// The sync producer requires both return channels.
	cfg.Producer.Return.Errors = true
	cfg.Producer.Return.Successes = true
	cfg.ClientID = settings.clientID
	cfg.Metadata.RefreshFrequency = settings.refreshInterval
	return cfg
}
