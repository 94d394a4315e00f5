// Package metrics exposes chunk and archive activity as Prometheus counters.
package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "streamcorpus"

// Direction label values.
const (
	DirectionRead    = "read"
	DirectionWritten = "written"
)

// Collector implements chunk.Observer and records archive operations.
type Collector struct {
	messages   *prometheus.CounterVec
	bytes      *prometheus.CounterVec
	unknown    *prometheus.CounterVec
	operations *prometheus.CounterVec
}

// NewCollector registers the counters on reg, sharing any identical counters
// already registered there. A nil reg leaves them unregistered.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chunk",
			Name:      "messages_total",
			Help:      "Thrift messages read from or written to chunks.",
		}, []string{"direction"}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chunk",
			Name:      "bytes_total",
			Help:      "Uncompressed chunk bytes read or written.",
		}, []string{"direction"}),
		unknown: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unknown_entity_types_total",
			Help:      "Entity type codes seen on the wire that this build does not declare.",
		}, []string{"code"}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "operations_total",
			Help:      "Corpus archive operations by kind and outcome.",
		}, []string{"op", "result"}),
	}
	if reg == nil {
		return c, nil
	}
	for _, cv := range []**prometheus.CounterVec{&c.messages, &c.bytes, &c.unknown, &c.operations} {
		if err := reg.Register(*cv); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return nil, err
			}
			existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				return nil, err
			}
			*cv = existing
		}
	}
	return c, nil
}

// MessageWritten implements chunk.Observer.
func (c *Collector) MessageWritten(n int) {
	c.messages.WithLabelValues(DirectionWritten).Inc()
	c.bytes.WithLabelValues(DirectionWritten).Add(float64(n))
}

// MessageRead implements chunk.Observer.
func (c *Collector) MessageRead(n int) {
	c.messages.WithLabelValues(DirectionRead).Inc()
	c.bytes.WithLabelValues(DirectionRead).Add(float64(n))
}

// UnknownEntityType implements chunk.Observer.
func (c *Collector) UnknownEntityType(code int32) {
	c.unknown.WithLabelValues(strconv.FormatInt(int64(code), 10)).Inc()
}

// Operation counts one archive operation; err selects the result label.
func (c *Collector) Operation(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.operations.WithLabelValues(op, result).Inc()
}
