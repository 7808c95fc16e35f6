package counters

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultOK    = "ok"
	resultError = "error"
)

// Collector exports a Registry as Prometheus counters:
//
//	<namespace>_requests_total{operation,result}
//	<namespace>_responses_total{operation,result}
type Collector struct {
	registry  *Registry
	requests  *prometheus.Desc
	responses *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector wraps registry. An empty namespace defaults to "ocpi_client".
func NewCollector(namespace string, registry *Registry) *Collector {
	if namespace == "" {
		namespace = "ocpi_client"
	}
	return &Collector{
		registry: registry,
		requests: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "requests_total"),
			"OCPI client calls started, by operation and result.",
			[]string{"operation", "result"}, nil,
		),
		responses: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "responses_total"),
			"OCPI client transport exchanges completed, by operation and result.",
			[]string{"operation", "result"}, nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.requests
	ch <- c.responses
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for op, s := range c.registry.All() {
		ch <- prometheus.MustNewConstMetric(c.requests, prometheus.CounterValue, float64(s.RequestsOK), op, resultOK)
		ch <- prometheus.MustNewConstMetric(c.requests, prometheus.CounterValue, float64(s.RequestsError), op, resultError)
		ch <- prometheus.MustNewConstMetric(c.responses, prometheus.CounterValue, float64(s.ResponsesOK), op, resultOK)
		ch <- prometheus.MustNewConstMetric(c.responses, prometheus.CounterValue, float64(s.ResponsesError), op, resultError)
	}
}
