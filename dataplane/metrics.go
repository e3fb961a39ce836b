package dataplane

import (
	"sync/atomic"
)

// SocketMetrics is a point in time copy of a session's counters.
type SocketMetrics struct {
	RxBytes           uint64
	TxBytes           uint64
	RxPackets         uint64
	TxPackets         uint64
	Retransmits       uint64
	AcksSent          uint64
	DuplicateSegments uint64
	DroppedSegments   uint64
	CorruptSegments   uint64
	DeliveredBytes    uint64
}

// Add returns the field-wise sum of m and o.
func (m SocketMetrics) Add(o SocketMetrics) SocketMetrics {
	return SocketMetrics{
		RxBytes:           m.RxBytes + o.RxBytes,
		TxBytes:           m.TxBytes + o.TxBytes,
		RxPackets:         m.RxPackets + o.RxPackets,
		TxPackets:         m.TxPackets + o.TxPackets,
		Retransmits:       m.Retransmits + o.Retransmits,
		AcksSent:          m.AcksSent + o.AcksSent,
		DuplicateSegments: m.DuplicateSegments + o.DuplicateSegments,
		DroppedSegments:   m.DroppedSegments + o.DroppedSegments,
		CorruptSegments:   m.CorruptSegments + o.CorruptSegments,
		DeliveredBytes:    m.DeliveredBytes + o.DeliveredBytes,
	}
}

// Metrics holds the live counters of one session. Counters are updated by
// the event loop and may be read concurrently through Snapshot.
type Metrics struct {
	rxBytes           uint64
	txBytes           uint64
	rxPackets         uint64
	txPackets         uint64
	retransmits       uint64
	acksSent          uint64
	duplicateSegments uint64
	droppedSegments   uint64
	corruptSegments   uint64
	deliveredBytes    uint64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) AddTx(n int) {
	atomic.AddUint64(&m.txPackets, 1)
	atomic.AddUint64(&m.txBytes, uint64(n))
}

func (m *Metrics) AddRx(n int) {
	atomic.AddUint64(&m.rxPackets, 1)
	atomic.AddUint64(&m.rxBytes, uint64(n))
}

func (m *Metrics) AddRetransmit() {
	atomic.AddUint64(&m.retransmits, 1)
}

func (m *Metrics) AddAckSent() {
	atomic.AddUint64(&m.acksSent, 1)
}

func (m *Metrics) AddDuplicate() {
	atomic.AddUint64(&m.duplicateSegments, 1)
}

func (m *Metrics) AddDropped() {
	atomic.AddUint64(&m.droppedSegments, 1)
}

func (m *Metrics) AddCorrupt() {
	atomic.AddUint64(&m.corruptSegments, 1)
}

func (m *Metrics) AddDelivered(n int) {
	atomic.AddUint64(&m.deliveredBytes, uint64(n))
}

func (m *Metrics) Snapshot() SocketMetrics {
	return SocketMetrics{
		RxBytes:           atomic.LoadUint64(&m.rxBytes),
		TxBytes:           atomic.LoadUint64(&m.txBytes),
		RxPackets:         atomic.LoadUint64(&m.rxPackets),
		TxPackets:         atomic.LoadUint64(&m.txPackets),
		Retransmits:       atomic.LoadUint64(&m.retransmits),
		AcksSent:          atomic.LoadUint64(&m.acksSent),
		DuplicateSegments: atomic.LoadUint64(&m.duplicateSegments),
		DroppedSegments:   atomic.LoadUint64(&m.droppedSegments),
		CorruptSegments:   atomic.LoadUint64(&m.corruptSegments),
		DeliveredBytes:    atomic.LoadUint64(&m.deliveredBytes),
	}
}
