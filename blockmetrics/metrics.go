package blockmetrics

import (
	"sync"
	"time"

	"github.com/netsys-lab/reliable/dataplane"
)

// Sample is one point of the over-time series: cumulative totals of all
// sessions plus the bandwidth since the previous sample.
type Sample struct {
	Time time.Time
	dataplane.SocketMetrics
	// Bytes per second since the previous sample.
	RxBandwidth uint64
	TxBandwidth uint64
}

// Metrics keeps the over-time series of a loop. Collect is driven by the
// loop's timer; the accessors may be used from any goroutine.
type Metrics struct {
	sync.Mutex
	timeInterval time.Duration
	last         time.Time
	previous     dataplane.SocketMetrics
	samples      []Sample
}

func NewMetrics(timeInterval time.Duration) *Metrics {
	return &Metrics{
		timeInterval: timeInterval,
		samples:      make([]Sample, 0),
	}
}

// Collect appends a sample once timeInterval has passed since the last one
// and reports whether it did. The first call only sets the baseline.
func (m *Metrics) Collect(now time.Time, totals dataplane.SocketMetrics) bool {
	m.Lock()
	defer m.Unlock()

	if m.last.IsZero() {
		m.last = now
		m.previous = totals
		return false
	}
	elapsed := now.Sub(m.last)
	if elapsed < m.timeInterval || elapsed <= 0 {
		return false
	}

	m.samples = append(m.samples, Sample{
		Time:          now,
		SocketMetrics: totals,
		RxBandwidth:   perSecond(totals.RxBytes-m.previous.RxBytes, elapsed),
		TxBandwidth:   perSecond(totals.TxBytes-m.previous.TxBytes, elapsed),
	})
	m.last = now
	m.previous = totals
	return true
}

// Samples returns a copy of the series.
func (m *Metrics) Samples() []Sample {
	m.Lock()
	defer m.Unlock()
	samples := make([]Sample, len(m.samples))
	copy(samples, m.samples)
	return samples
}

// Latest returns the newest sample, if any.
func (m *Metrics) Latest() (Sample, bool) {
	m.Lock()
	defer m.Unlock()
	if len(m.samples) == 0 {
		return Sample{}, false
	}
	return m.samples[len(m.samples)-1], true
}

func perSecond(delta uint64, elapsed time.Duration) uint64 {
	return uint64(float64(delta) / elapsed.Seconds())
}
