package metrics

import (
	"sync/atomic"
	"time"
)

// Collector collects real-time operation counters for the engine. All
// counters are atomic; the HTTP handlers record into one shared
// Collector.
type Collector struct {
	insertsExecuted uint64
	insertsFailed   uint64
	totalInsertTime uint64 // in nanoseconds

	selectsExecuted uint64
	selectsFailed   uint64
	totalSelectTime uint64

	updatesExecuted uint64
	updatesFailed   uint64
	totalUpdateTime uint64

	deletesExecuted uint64
	deletesFailed   uint64
	totalDeleteTime uint64

	sumsExecuted uint64
	sumsFailed   uint64
	totalSumTime uint64

	mergesExecuted uint64
	recordsMerged  uint64

	startTime time.Time
}

// NewCollector creates a collector with the uptime clock started
func NewCollector() *Collector {
	return &Collector{startTime: time.Now()}
}

// Uptime returns time since the collector was created
func (c *Collector) Uptime() time.Duration {
	return time.Since(c.startTime)
}

// RecordInsert records an insert operation
func (c *Collector) RecordInsert(duration time.Duration, failed bool) {
	if failed {
		atomic.AddUint64(&c.insertsFailed, 1)
		return
	}
	atomic.AddUint64(&c.insertsExecuted, 1)
	atomic.AddUint64(&c.totalInsertTime, uint64(duration.Nanoseconds()))
}

// RecordSelect records a select or select-version operation
func (c *Collector) RecordSelect(duration time.Duration, failed bool) {
	if failed {
		atomic.AddUint64(&c.selectsFailed, 1)
		return
	}
	atomic.AddUint64(&c.selectsExecuted, 1)
	atomic.AddUint64(&c.totalSelectTime, uint64(duration.Nanoseconds()))
}

// RecordUpdate records an update operation
func (c *Collector) RecordUpdate(duration time.Duration, failed bool) {
	if failed {
		atomic.AddUint64(&c.updatesFailed, 1)
		return
	}
	atomic.AddUint64(&c.updatesExecuted, 1)
	atomic.AddUint64(&c.totalUpdateTime, uint64(duration.Nanoseconds()))
}

// RecordDelete records a delete operation
func (c *Collector) RecordDelete(duration time.Duration, failed bool) {
	if failed {
		atomic.AddUint64(&c.deletesFailed, 1)
		return
	}
	atomic.AddUint64(&c.deletesExecuted, 1)
	atomic.AddUint64(&c.totalDeleteTime, uint64(duration.Nanoseconds()))
}

// RecordSum records a sum or sum-version operation
func (c *Collector) RecordSum(duration time.Duration, failed bool) {
	if failed {
		atomic.AddUint64(&c.sumsFailed, 1)
		return
	}
	atomic.AddUint64(&c.sumsExecuted, 1)
	atomic.AddUint64(&c.totalSumTime, uint64(duration.Nanoseconds()))
}

// RecordMerge records a merge pass and how many records it compacted
func (c *Collector) RecordMerge(records int) {
	atomic.AddUint64(&c.mergesExecuted, 1)
	atomic.AddUint64(&c.recordsMerged, uint64(records))
}

// Snapshot is a point-in-time copy of all counters
type Snapshot struct {
	UptimeSeconds float64 `json:"uptimeSeconds"`

	InsertsExecuted uint64 `json:"insertsExecuted"`
	InsertsFailed   uint64 `json:"insertsFailed"`
	SelectsExecuted uint64 `json:"selectsExecuted"`
	SelectsFailed   uint64 `json:"selectsFailed"`
	UpdatesExecuted uint64 `json:"updatesExecuted"`
	UpdatesFailed   uint64 `json:"updatesFailed"`
	DeletesExecuted uint64 `json:"deletesExecuted"`
	DeletesFailed   uint64 `json:"deletesFailed"`
	SumsExecuted    uint64 `json:"sumsExecuted"`
	SumsFailed      uint64 `json:"sumsFailed"`
	MergesExecuted  uint64 `json:"mergesExecuted"`
	RecordsMerged   uint64 `json:"recordsMerged"`

	TotalInsertTimeNs uint64 `json:"totalInsertTimeNs"`
	TotalSelectTimeNs uint64 `json:"totalSelectTimeNs"`
	TotalUpdateTimeNs uint64 `json:"totalUpdateTimeNs"`
	TotalDeleteTimeNs uint64 `json:"totalDeleteTimeNs"`
	TotalSumTimeNs    uint64 `json:"totalSumTimeNs"`
}

// Snapshot returns a consistent-enough copy of the counters
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		UptimeSeconds:     time.Since(c.startTime).Seconds(),
		InsertsExecuted:   atomic.LoadUint64(&c.insertsExecuted),
		InsertsFailed:     atomic.LoadUint64(&c.insertsFailed),
		SelectsExecuted:   atomic.LoadUint64(&c.selectsExecuted),
		SelectsFailed:     atomic.LoadUint64(&c.selectsFailed),
		UpdatesExecuted:   atomic.LoadUint64(&c.updatesExecuted),
		UpdatesFailed:     atomic.LoadUint64(&c.updatesFailed),
		DeletesExecuted:   atomic.LoadUint64(&c.deletesExecuted),
		DeletesFailed:     atomic.LoadUint64(&c.deletesFailed),
		SumsExecuted:      atomic.LoadUint64(&c.sumsExecuted),
		SumsFailed:        atomic.LoadUint64(&c.sumsFailed),
		MergesExecuted:    atomic.LoadUint64(&c.mergesExecuted),
		RecordsMerged:     atomic.LoadUint64(&c.recordsMerged),
		TotalInsertTimeNs: atomic.LoadUint64(&c.totalInsertTime),
		TotalSelectTimeNs: atomic.LoadUint64(&c.totalSelectTime),
		TotalUpdateTimeNs: atomic.LoadUint64(&c.totalUpdateTime),
		TotalDeleteTimeNs: atomic.LoadUint64(&c.totalDeleteTime),
		TotalSumTimeNs:    atomic.LoadUint64(&c.totalSumTime),
	}
}
