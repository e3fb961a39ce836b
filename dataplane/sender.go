package dataplane

import (
	"io"
	"time"

	"github.com/netsys-lab/reliable/packet"
	"github.com/netsys-lab/reliable/shared"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type SenderState int

const (
	SND_STATE_IDLE SenderState = iota
	SND_STATE_AWAITING_DATA_ACK
	SND_STATE_AWAITING_EOF_ACK
	SND_STATE_CLOSED
)

func (s SenderState) String() string {
	switch s {
	case SND_STATE_IDLE:
		return "Idle"
	case SND_STATE_AWAITING_DATA_ACK:
		return "AwaitingDataAck"
	case SND_STATE_AWAITING_EOF_ACK:
		return "AwaitingEOFAck"
	case SND_STATE_CLOSED:
		return "Closed"
	}
	return "Unknown"
}

// Sender is the outbound half of a session. It keeps at most one segment
// in flight and retransmits it until the peer acknowledges it.
type Sender struct {
	state     SenderState
	lastSeqno uint32
	lastSent  time.Time
	timeout   time.Duration
	// Encoded copy of the segment in flight, resent verbatim.
	inFlight []byte
	readBuf  []byte
	source   Source
	channel  Channel
	metrics  *Metrics
	log      *log.Entry
}

func NewSender(source Source, channel Channel, timeout time.Duration, metrics *Metrics, logger *log.Entry) *Sender {
	if metrics == nil {
		metrics = NewMetrics()
	}
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Sender{
		state:     SND_STATE_IDLE,
		lastSeqno: shared.FIRST_SEQNO - 1,
		timeout:   timeout,
		readBuf:   make([]byte, shared.MAX_PAYLOAD_LEN),
		source:    source,
		channel:   channel,
		metrics:   metrics,
		log:       logger,
	}
}

func (s *Sender) State() SenderState {
	return s.state
}

// Closed reports whether the end-of-stream marker has been acknowledged.
func (s *Sender) Closed() bool {
	return s.state == SND_STATE_CLOSED
}

// LastSeqno returns the sequence number of the most recently sent segment.
func (s *Sender) LastSeqno() uint32 {
	return s.lastSeqno
}

// OnInputAvailable pulls the next chunk from the source and sends it, or the
// end-of-stream marker once the source is exhausted. It does nothing unless
// the sender is idle.
func (s *Sender) OnInputAvailable(now time.Time) {
	if s.state != SND_STATE_IDLE {
		return
	}

	n, err := s.source.Pull(s.readBuf)
	var seg *packet.DataSegment
	switch {
	case n > 0:
		payload := make([]byte, n)
		copy(payload, s.readBuf[:n])
		seg = packet.NewDataSegment(s.lastSeqno+1, payload)
	case errors.Is(err, io.EOF):
		seg = packet.NewEOFSegment(s.lastSeqno + 1)
	case err != nil:
		s.log.Warnf("Source failed, closing stream: %v", err)
		seg = packet.NewEOFSegment(s.lastSeqno + 1)
	default:
		return
	}

	buf, err := packet.Encode(seg)
	if err != nil {
		s.log.Errorf("Failed to encode %s: %v", seg, err)
		return
	}

	s.lastSeqno = seg.Seqno
	s.inFlight = buf
	s.lastSent = now
	if seg.IsEOF() {
		s.state = SND_STATE_AWAITING_EOF_ACK
	} else {
		s.state = SND_STATE_AWAITING_DATA_ACK
	}
	s.log.Debugf("Sending %s", seg)
	s.transmit()
}

// OnAck handles a cumulative acknowledgement. Only an ack for exactly the
// segment in flight advances the sender; all others are ignored.
func (s *Sender) OnAck(ackno uint32, now time.Time) {
	if s.state != SND_STATE_AWAITING_DATA_ACK && s.state != SND_STATE_AWAITING_EOF_ACK {
		s.log.Debugf("Ignoring ack %d in state %s", ackno, s.state)
		return
	}
	if ackno != s.lastSeqno+1 {
		s.log.Debugf("Ignoring ack %d, waiting for %d", ackno, s.lastSeqno+1)
		return
	}

	s.inFlight = nil
	if s.state == SND_STATE_AWAITING_EOF_ACK {
		s.log.Debugf("End of stream acknowledged")
		s.state = SND_STATE_CLOSED
		return
	}
	s.state = SND_STATE_IDLE
	s.OnInputAvailable(now)
}

// OnTimerTick retransmits the segment in flight once the timeout elapsed
// since it was last sent.
func (s *Sender) OnTimerTick(now time.Time) {
	if s.inFlight == nil || now.Sub(s.lastSent) <= s.timeout {
		return
	}
	s.log.Debugf("Retransmitting seqno %d after %s", s.lastSeqno, now.Sub(s.lastSent))
	s.lastSent = now
	s.metrics.AddRetransmit()
	s.transmit()
}

func (s *Sender) transmit() {
	s.metrics.AddTx(len(s.inFlight))
	if err := s.channel.Send(s.inFlight); err != nil {
		// The segment stays in flight and is resent on the next timeout.
		s.log.Warnf("Failed to send seqno %d: %v", s.lastSeqno, err)
	}
}
