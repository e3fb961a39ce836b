package dataplane

import (
	"github.com/netsys-lab/reliable/packet"
	"github.com/netsys-lab/reliable/shared"
	"github.com/netsys-lab/reliable/utils"
	log "github.com/sirupsen/logrus"
)

type ReceiverState int

const (
	RCV_STATE_AWAITING_SEGMENT ReceiverState = iota
	RCV_STATE_AWAITING_SINK_CAPACITY
	RCV_STATE_CLOSED
)

func (s ReceiverState) String() string {
	switch s {
	case RCV_STATE_AWAITING_SEGMENT:
		return "AwaitingSegment"
	case RCV_STATE_AWAITING_SINK_CAPACITY:
		return "AwaitingSinkCapacity"
	case RCV_STATE_CLOSED:
		return "Closed"
	}
	return "Unknown"
}

// Receiver is the inbound half of a session. It accepts segments strictly
// in order and holds back the ack for a segment until the sink has taken
// all of its payload.
type Receiver struct {
	state     ReceiverState
	lastSeqno uint32
	staged    []byte
	stagedLen int
	flushed   int
	sink      Sink
	channel   Channel
	metrics   *Metrics
	log       *log.Entry
}

func NewReceiver(sink Sink, channel Channel, metrics *Metrics, logger *log.Entry) *Receiver {
	if metrics == nil {
		metrics = NewMetrics()
	}
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Receiver{
		state:     RCV_STATE_AWAITING_SEGMENT,
		lastSeqno: shared.FIRST_SEQNO - 1,
		staged:    make([]byte, shared.MAX_PAYLOAD_LEN),
		sink:      sink,
		channel:   channel,
		metrics:   metrics,
		log:       logger,
	}
}

func (r *Receiver) State() ReceiverState {
	return r.state
}

// Closed reports whether the end-of-stream marker has been accepted.
func (r *Receiver) Closed() bool {
	return r.state == RCV_STATE_CLOSED
}

// LastSeqno returns the sequence number of the last accepted segment.
func (r *Receiver) LastSeqno() uint32 {
	return r.lastSeqno
}

// Pending returns the number of staged bytes the sink has not taken yet.
func (r *Receiver) Pending() int {
	return r.stagedLen - r.flushed
}

// OnSegment handles an inbound data segment. Duplicates are re-acknowledged,
// out of order segments are dropped. The re-ack is cumulative: while the
// last accepted segment still waits for sink capacity it carries that
// segment's own seqno instead of seqno+1, so a duplicate never releases
// the sender before the sink has taken every byte. The sender ignores it.
func (r *Receiver) OnSegment(seg *packet.DataSegment) {
	if seg.Seqno <= r.lastSeqno {
		r.log.Debugf("Duplicate %s, last accepted %d", seg, r.lastSeqno)
		r.metrics.AddDuplicate()
		r.sendAck(r.nextExpected())
		return
	}
	if seg.Seqno != r.lastSeqno+1 {
		r.log.Debugf("Dropping out of order %s, expecting %d", seg, r.lastSeqno+1)
		r.metrics.AddDropped()
		return
	}
	if r.state != RCV_STATE_AWAITING_SEGMENT {
		r.log.Debugf("Dropping %s in state %s", seg, r.state)
		r.metrics.AddDropped()
		return
	}

	r.lastSeqno = seg.Seqno
	if seg.IsEOF() {
		r.log.Debugf("End of stream at seqno %d", seg.Seqno)
		r.sink.CloseWrite()
		r.state = RCV_STATE_CLOSED
		r.sendAck(seg.Seqno + 1)
		return
	}

	r.stagedLen = copy(r.staged, seg.Payload)
	r.flushed = 0
	if r.drain() {
		r.sendAck(seg.Seqno + 1)
		return
	}
	r.log.Debugf("Sink full, holding %d bytes of seqno %d", r.Pending(), seg.Seqno)
	r.state = RCV_STATE_AWAITING_SINK_CAPACITY
}

// OnSinkCapacityAvailable resumes delivery of a partially flushed segment
// and acknowledges it once it is complete.
func (r *Receiver) OnSinkCapacityAvailable() {
	if r.state != RCV_STATE_AWAITING_SINK_CAPACITY {
		return
	}
	if !r.drain() {
		return
	}
	r.state = RCV_STATE_AWAITING_SEGMENT
	r.sendAck(r.lastSeqno + 1)
}

// drain pushes as much of the staged payload as the sink accepts and
// reports whether it has been delivered completely.
func (r *Receiver) drain() bool {
	remaining := r.stagedLen - r.flushed
	if remaining == 0 {
		return true
	}
	capacity := r.sink.Capacity()
	if capacity <= 0 {
		return false
	}
	n := r.sink.Push(r.staged[r.flushed : r.flushed+utils.Min(capacity, remaining)])
	r.flushed += n
	r.metrics.AddDelivered(n)
	return r.flushed == r.stagedLen
}

// nextExpected is the cumulative ackno: everything before it has been
// handed to the sink. A segment still being drained is not covered.
func (r *Receiver) nextExpected() uint32 {
	if r.state == RCV_STATE_AWAITING_SINK_CAPACITY {
		return r.lastSeqno
	}
	return r.lastSeqno + 1
}

func (r *Receiver) sendAck(ackno uint32) {
	ack := &packet.AckSegment{Ackno: ackno}
	buf, err := packet.Encode(ack)
	if err != nil {
		r.log.Errorf("Failed to encode %s: %v", ack, err)
		return
	}
	r.metrics.AddTx(len(buf))
	r.metrics.AddAckSent()
	if err := r.channel.Send(buf); err != nil {
		r.log.Warnf("Failed to send %s: %v", ack, err)
	}
}
