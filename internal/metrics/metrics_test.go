package metrics

import (
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorCountsChunkTraffic(t *testing.T) {
	c, err := NewCollector(nil)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	c.MessageWritten(100)
	c.MessageWritten(20)
	c.MessageRead(7)
	c.UnknownEntityType(40)
	c.UnknownEntityType(40)
	c.UnknownEntityType(-3)

	if got := testutil.ToFloat64(c.messages.WithLabelValues(DirectionWritten)); got != 2 {
		t.Fatalf("written messages = %v", got)
	}
	if got := testutil.ToFloat64(c.bytes.WithLabelValues(DirectionWritten)); got != 120 {
		t.Fatalf("written bytes = %v", got)
	}
	if got := testutil.ToFloat64(c.bytes.WithLabelValues(DirectionRead)); got != 7 {
		t.Fatalf("read bytes = %v", got)
	}
	if got := testutil.ToFloat64(c.unknown.WithLabelValues("40")); got != 2 {
		t.Fatalf("unknown code 40 = %v", got)
	}
	if got := testutil.CollectAndCount(c.unknown); got != 2 {
		t.Fatalf("expected two unknown-code series, got %d", got)
	}
}

func TestCollectorRegistersAndExposes(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	c, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	c.Operation("archive", nil)
	c.Operation("archive", errors.New("boom"))
	c.Operation("extract", nil)

	expected := `
# HELP streamcorpus_archive_operations_total Corpus archive operations by kind and outcome.
# TYPE streamcorpus_archive_operations_total counter
streamcorpus_archive_operations_total{op="archive",result="error"} 1
streamcorpus_archive_operations_total{op="archive",result="ok"} 1
streamcorpus_archive_operations_total{op="extract",result="ok"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "streamcorpus_archive_operations_total"); err != nil {
		t.Fatalf("unexpected exposition: %v", err)
	}

	again, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("second collector on the same registry: %v", err)
	}
	again.Operation("extract", nil)
	if got := testutil.ToFloat64(c.operations.WithLabelValues("extract", "ok")); got != 2 {
		t.Fatalf("collectors on one registry must share counters, got %v", got)
	}
}
