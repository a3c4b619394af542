package metrics

import (
	"sort"
	"sync"
	"time"
)

// Aggregator aggregates collaborator metrics in memory for the lifetime of a session.
type Aggregator struct {
	mu      sync.RWMutex
	buckets map[string]*callBucket
}

type callBucket struct {
	callCount    int64
	successCount int64
	latencies    []int64 // in milliseconds
}

// NewAggregator creates a new metrics aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		buckets: make(map[string]*callBucket),
	}
}

// RecordCall records a single collaborator call.
func (a *Aggregator) RecordCall(collaborator string, latency time.Duration, success bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	bucket, exists := a.buckets[collaborator]
	if !exists {
		bucket = &callBucket{latencies: make([]int64, 0, 16)}
		a.buckets[collaborator] = bucket
	}

	bucket.callCount++
	if success {
		bucket.successCount++
	}
	bucket.latencies = append(bucket.latencies, latency.Milliseconds())
}

// Snapshot returns the aggregated stats recorded so far.
func (a *Aggregator) Snapshot() *Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := &Stats{
		Calls: make(map[string]*CollaboratorStat, len(a.buckets)),
	}

	allLatencies := make([]int64, 0)
	for name, bucket := range a.buckets {
		stats.CallCount += bucket.callCount
		stats.SuccessCount += bucket.successCount
		allLatencies = append(allLatencies, bucket.latencies...)

		stat := &CollaboratorStat{Count: bucket.callCount}
		if bucket.callCount > 0 {
			stat.SuccessRate = float32(bucket.successCount) / float32(bucket.callCount)
			avgMs := sumLatencies(bucket.latencies) / bucket.callCount
			stat.AvgLatency = time.Duration(avgMs) * time.Millisecond
			stat.LatencyP95 = time.Duration(percentile(bucket.latencies, 95)) * time.Millisecond
		}
		stats.Calls[name] = stat
	}

	stats.LatencyP50 = time.Duration(percentile(allLatencies, 50)) * time.Millisecond
	stats.LatencyP95 = time.Duration(percentile(allLatencies, 95)) * time.Millisecond

	return stats
}

func sumLatencies(latencies []int64) int64 {
	var sum int64
	for _, l := range latencies {
		sum += l
	}
	return sum
}

func percentile(latencies []int64, p int) int64 {
	if len(latencies) == 0 {
		return 0
	}

	sorted := make([]int64, len(latencies))
	copy(sorted, latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := (len(sorted) - 1) * p / 100
	return sorted[idx]
}

var _ Recorder = (*Aggregator)(nil)
