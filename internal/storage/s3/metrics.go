package s3

import (
	"sync"
	"time"
)

// BackendMetrics tracks S3 backend performance metrics
type BackendMetrics struct {
	Requests        int64         `json:"requests"`
	Errors          int64         `json:"errors"`
	BytesUploaded   int64         `json:"bytes_uploaded"`
	BytesDownloaded int64         `json:"bytes_downloaded"`
	AverageLatency  time.Duration `json:"average_latency"`
	LastError       string        `json:"last_error"`
	LastErrorTime   time.Time     `json:"last_error_time"`
}

// metricsTracker aggregates BackendMetrics under a lock
type metricsTracker struct {
	mu      sync.RWMutex
	metrics BackendMetrics
}

// record adds one request to the counters and the rolling latency average
func (mt *metricsTracker) record(duration time.Duration, isError bool) {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	mt.metrics.Requests++
	if isError {
		mt.metrics.Errors++
	}

	if mt.metrics.Requests == 1 {
		mt.metrics.AverageLatency = duration
	} else {
		mt.metrics.AverageLatency = time.Duration(
			(int64(mt.metrics.AverageLatency)*9 + int64(duration)) / 10,
		)
	}
}

func (mt *metricsTracker) recordError(err error) {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	mt.metrics.LastError = err.Error()
	mt.metrics.LastErrorTime = time.Now()
}

func (mt *metricsTracker) addUploaded(n int64) {
	mt.mu.Lock()
	mt.metrics.BytesUploaded += n
	mt.mu.Unlock()
}

func (mt *metricsTracker) addDownloaded(n int64) {
	mt.mu.Lock()
	mt.metrics.BytesDownloaded += n
	mt.mu.Unlock()
}

func (mt *metricsTracker) snapshot() BackendMetrics {
	mt.mu.RLock()
	defer mt.mu.RUnlock()
	return mt.metrics
}
