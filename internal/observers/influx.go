package observers

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"

	"github.com/example/ocpi-client/internal/events"
)

// DefaultMeasurement is the InfluxDB measurement of call points.
const DefaultMeasurement = "ocpi_call"

// PointWriter accepts points for asynchronous writing. api.WriteAPI
// implements it.
type PointWriter interface {
	WritePoint(point *write.Point)
}

// Influx writes one point per finished call, tagged by operation, module and
// outcome.
type Influx struct {
	writer      PointWriter
	measurement string
}

// NewInflux constructs an Influx observer. An empty measurement selects
// DefaultMeasurement.
func NewInflux(w PointWriter, measurement string) *Influx {
	if measurement == "" {
		measurement = DefaultMeasurement
	}
	return &Influx{writer: w, measurement: measurement}
}

func (o *Influx) Notify(_ context.Context, ev events.Event) error {
	if ev.Kind != events.DomainResponse {
		return nil
	}
	ts := ev.Correlation.StartedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	o.writer.WritePoint(write.NewPoint(
		o.measurement,
		map[string]string{
			"operation": ev.Operation,
			"module":    ev.Descriptor.String(),
			"version":   string(ev.Version),
			"outcome":   ev.Outcome.Kind.String(),
		},
		map[string]interface{}{
			"elapsed_ms":  float64(ev.Elapsed) / float64(time.Millisecond),
			"http_status": ev.Outcome.Status.HTTPStatus,
		},
		ts,
	))
	return nil
}

// InfluxOptions locates the bucket call points are written to.
type InfluxOptions struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// InfluxSink owns the InfluxDB client and its non-blocking write API.
type InfluxSink struct {
	client influxdb2.Client
	api    api.WriteAPI
	logger zerolog.Logger
	done   chan struct{}
	once   sync.Once
}

// DialInflux connects to InfluxDB. Write errors are reported asynchronously
// and logged.
func DialInflux(opts InfluxOptions, logger zerolog.Logger) (*InfluxSink, error) {
	if opts.URL == "" || opts.Org == "" || opts.Bucket == "" {
		return nil, errors.New("observers: influx url, org and bucket are required")
	}
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}

	client := influxdb2.NewClient(opts.URL, opts.Token)
	s := &InfluxSink{
		client: client,
		api:    client.WriteAPI(opts.Org, opts.Bucket),
		logger: logger.With().Str("component", "influx").Logger(),
		done:   make(chan struct{}),
	}
	go s.logErrors()

	s.logger.Info().Str("url", opts.URL).Str("bucket", opts.Bucket).Msg("observers: influx sink ready")
	return s, nil
}

// WritePoint enqueues p.
func (s *InfluxSink) WritePoint(p *write.Point) {
	s.api.WritePoint(p)
}

// Close flushes pending points and closes the client.
func (s *InfluxSink) Close() {
	s.once.Do(func() {
		s.api.Flush()
		close(s.done)
		s.client.Close()
	})
}

func (s *InfluxSink) logErrors() {
	errs := s.api.Errors()
	for {
		select {
		case <-s.done:
			return
		case err := <-errs:
			if err != nil {
				s.logger.Error().Err(err).Msg("observers: influx write failed")
			}
		}
	}
}
