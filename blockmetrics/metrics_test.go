package blockmetrics

import (
	"testing"
	"time"

	"github.com/d4l3k/messagediff"
	"github.com/netsys-lab/reliable/dataplane"
)

func TestCollect(t *testing.T) {
	start := time.Unix(1600000000, 0)
	m := NewMetrics(time.Second)

	if m.Collect(start, dataplane.SocketMetrics{TxBytes: 100}) {
		t.Fatalf("first Collect() recorded a sample")
	}
	if m.Collect(start.Add(500*time.Millisecond), dataplane.SocketMetrics{TxBytes: 600}) {
		t.Fatalf("Collect() before the interval recorded a sample")
	}
	if !m.Collect(start.Add(2*time.Second), dataplane.SocketMetrics{TxBytes: 4100, RxBytes: 2000, TxPackets: 9}) {
		t.Fatalf("Collect() after the interval recorded nothing")
	}

	want := []Sample{{
		Time:          start.Add(2 * time.Second),
		SocketMetrics: dataplane.SocketMetrics{TxBytes: 4100, RxBytes: 2000, TxPackets: 9},
		TxBandwidth:   2000,
		RxBandwidth:   1000,
	}}
	if diff, equal := messagediff.PrettyDiff(want, m.Samples()); !equal {
		t.Errorf("Samples() differs:\n%s", diff)
	}

	latest, ok := m.Latest()
	if !ok || latest.TxBytes != 4100 {
		t.Errorf("Latest() = %+v, %v", latest, ok)
	}
}

func TestLatestEmpty(t *testing.T) {
	if _, ok := NewMetrics(time.Second).Latest(); ok {
		t.Errorf("Latest() on empty series reported a sample")
	}
}
