package metrics

import (
	"strings"
	"testing"
	"time"
)

func TestCollectorCounters(t *testing.T) {
	c := NewCollector()

	c.RecordInsert(time.Millisecond, false)
	c.RecordInsert(time.Millisecond, true)
	c.RecordSelect(2*time.Millisecond, false)
	c.RecordUpdate(time.Millisecond, false)
	c.RecordDelete(time.Millisecond, true)
	c.RecordSum(time.Millisecond, false)
	c.RecordMerge(7)

	snap := c.Snapshot()
	if snap.InsertsExecuted != 1 || snap.InsertsFailed != 1 {
		t.Errorf("inserts = (%d, %d), want (1, 1)", snap.InsertsExecuted, snap.InsertsFailed)
	}
	if snap.SelectsExecuted != 1 || snap.TotalSelectTimeNs != uint64(2*time.Millisecond) {
		t.Errorf("selects = (%d, %dns)", snap.SelectsExecuted, snap.TotalSelectTimeNs)
	}
	if snap.DeletesExecuted != 0 || snap.DeletesFailed != 1 {
		t.Errorf("deletes = (%d, %d), want (0, 1)", snap.DeletesExecuted, snap.DeletesFailed)
	}
	if snap.MergesExecuted != 1 || snap.RecordsMerged != 7 {
		t.Errorf("merges = (%d, %d), want (1, 7)", snap.MergesExecuted, snap.RecordsMerged)
	}

	// Failed operations do not count toward executed time.
	if snap.TotalInsertTimeNs != uint64(time.Millisecond) {
		t.Errorf("insert time = %dns, want %dns", snap.TotalInsertTimeNs, time.Millisecond)
	}
}

func TestPrometheusExposition(t *testing.T) {
	c := NewCollector()
	c.RecordInsert(time.Millisecond, false)

	poolStats := func() map[string]int {
		return map[string]int{"capacity": 512, "resident": 3, "hits": 10, "misses": 2, "evictions": 1}
	}

	var sb strings.Builder
	exporter := NewPrometheusExporter(c, poolStats)
	if err := exporter.WriteMetrics(&sb); err != nil {
		t.Fatalf("WriteMetrics failed: %v", err)
	}
	out := sb.String()

	for _, want := range []string{
		"# TYPE lstore_inserts_total counter",
		"lstore_inserts_total 1",
		"# TYPE lstore_buffer_pool_frames gauge",
		"lstore_buffer_pool_frames 512",
		"lstore_buffer_pool_hits 10",
		"lstore_uptime_seconds",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestPrometheusNamespace(t *testing.T) {
	c := NewCollector()
	exporter := NewPrometheusExporter(c, nil)
	exporter.SetNamespace("custom")

	var sb strings.Builder
	if err := exporter.WriteMetrics(&sb); err != nil {
		t.Fatalf("WriteMetrics failed: %v", err)
	}
	if !strings.Contains(sb.String(), "custom_inserts_total") {
		t.Error("namespace override not applied")
	}
	if strings.Contains(sb.String(), "lstore_") {
		t.Error("default namespace still present")
	}
}
