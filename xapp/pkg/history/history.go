// Package history keeps the bounded log of decisions served by the xApp
package history

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/pkg/models"
)

// DefaultMaxSize is the default number of retained decisions
const DefaultMaxSize = 1000

// Record is one logged decision
type Record struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	models.ResourceDecision
}

// Stats summarizes the retained decisions
type Stats struct {
	TotalDecisions int      `json:"total_decisions"`
	UniqueUAVs     int      `json:"unique_uavs"`
	UAVList        []string `json:"uav_list"`
}

// Log is an append-only decision log that drops the oldest entries beyond
// its capacity. It is safe for concurrent use.
type Log struct {
	mu      sync.RWMutex
	maxSize int
	// ring buffer; start is the oldest entry
	records []Record
	start   int
	now     func() time.Time
}

// New creates a log retaining at most maxSize records
func New(maxSize int) *Log {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Log{
		maxSize: maxSize,
		records: make([]Record, 0, maxSize),
		now:     time.Now,
	}
}

// Append records a decision and returns the stored record
func (l *Log) Append(d models.ResourceDecision) Record {
	rec := Record{
		ID:               uuid.New().String(),
		ResourceDecision: d,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	rec.Timestamp = l.now().UTC()
	if len(l.records) < l.maxSize {
		l.records = append(l.records, rec)
		return rec
	}
	l.records[l.start] = rec
	l.start = (l.start + 1) % l.maxSize
	return rec
}

// Len returns the number of retained records
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Recent returns up to limit records, newest first
func (l *Log) Recent(limit int) []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := len(l.records)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Record, 0, limit)
	for i := 0; i < limit; i++ {
		idx := (l.start + n - 1 - i) % n
		out = append(out, l.records[idx])
	}
	return out
}

// Stats counts retained decisions and the distinct UAVs they concern
func (l *Log) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	uavs := make(map[string]struct{})
	for _, r := range l.records {
		uavs[r.UavID] = struct{}{}
	}
	list := make([]string, 0, len(uavs))
	for id := range uavs {
		list = append(list, id)
	}
	sort.Strings(list)

	return Stats{
		TotalDecisions: len(l.records),
		UniqueUAVs:     len(list),
		UAVList:        list,
	}
}
