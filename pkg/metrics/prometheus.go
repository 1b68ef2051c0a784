package metrics

import (
	"fmt"
	"io"
)

// BufferPoolStats feeds buffer pool gauges into the exporter without a
// dependency on the storage package
type BufferPoolStats func() map[string]int

// PrometheusExporter exports metrics in Prometheus text format.
// Format: https://prometheus.io/docs/instrumenting/exposition_formats/
type PrometheusExporter struct {
	collector *Collector
	poolStats BufferPoolStats
	namespace string
}

// NewPrometheusExporter creates a new Prometheus exporter
func NewPrometheusExporter(collector *Collector, poolStats BufferPoolStats) *PrometheusExporter {
	return &PrometheusExporter{
		collector: collector,
		poolStats: poolStats,
		namespace: "lstore",
	}
}

// SetNamespace sets the metric namespace prefix
func (pe *PrometheusExporter) SetNamespace(namespace string) {
	pe.namespace = namespace
}

// WriteMetrics writes all metrics in Prometheus text format to the writer
func (pe *PrometheusExporter) WriteMetrics(w io.Writer) error {
	snap := pe.collector.Snapshot()

	if err := pe.writeGauge(w, "uptime_seconds", "Engine uptime in seconds", snap.UptimeSeconds); err != nil {
		return err
	}

	counters := []struct {
		name  string
		help  string
		value uint64
	}{
		{"inserts_total", "Total number of insert operations", snap.InsertsExecuted},
		{"inserts_failed_total", "Total number of failed inserts", snap.InsertsFailed},
		{"insert_duration_nanoseconds_total", "Total insert execution time in nanoseconds", snap.TotalInsertTimeNs},
		{"selects_total", "Total number of select operations", snap.SelectsExecuted},
		{"selects_failed_total", "Total number of failed selects", snap.SelectsFailed},
		{"select_duration_nanoseconds_total", "Total select execution time in nanoseconds", snap.TotalSelectTimeNs},
		{"updates_total", "Total number of update operations", snap.UpdatesExecuted},
		{"updates_failed_total", "Total number of failed updates", snap.UpdatesFailed},
		{"update_duration_nanoseconds_total", "Total update execution time in nanoseconds", snap.TotalUpdateTimeNs},
		{"deletes_total", "Total number of delete operations", snap.DeletesExecuted},
		{"deletes_failed_total", "Total number of failed deletes", snap.DeletesFailed},
		{"delete_duration_nanoseconds_total", "Total delete execution time in nanoseconds", snap.TotalDeleteTimeNs},
		{"sums_total", "Total number of sum operations", snap.SumsExecuted},
		{"sums_failed_total", "Total number of failed sums", snap.SumsFailed},
		{"sum_duration_nanoseconds_total", "Total sum execution time in nanoseconds", snap.TotalSumTimeNs},
		{"merges_total", "Total number of merge passes", snap.MergesExecuted},
		{"merged_records_total", "Total number of records compacted by merge", snap.RecordsMerged},
	}
	for _, c := range counters {
		if err := pe.writeCounter(w, c.name, c.help, c.value); err != nil {
			return err
		}
	}

	if pe.poolStats != nil {
		stats := pe.poolStats()
		gauges := []struct {
			name string
			help string
			key  string
		}{
			{"buffer_pool_frames", "Configured buffer pool frame count", "capacity"},
			{"buffer_pool_resident_pages", "Pages currently resident in the buffer pool", "resident"},
			{"buffer_pool_hits", "Buffer pool cache hits", "hits"},
			{"buffer_pool_misses", "Buffer pool cache misses", "misses"},
			{"buffer_pool_evictions", "Pages evicted from the buffer pool", "evictions"},
		}
		for _, g := range gauges {
			if err := pe.writeGauge(w, g.name, g.help, float64(stats[g.key])); err != nil {
				return err
			}
		}
	}

	return nil
}

func (pe *PrometheusExporter) writeCounter(w io.Writer, name, help string, value uint64) error {
	fullName := pe.namespace + "_" + name
	if _, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n%s %d\n", fullName, help, fullName, fullName, value); err != nil {
		return err
	}
	return nil
}

func (pe *PrometheusExporter) writeGauge(w io.Writer, name, help string, value float64) error {
	fullName := pe.namespace + "_" + name
	if _, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s gauge\n%s %g\n", fullName, help, fullName, fullName, value); err != nil {
		return err
	}
	return nil
}
