package controlplane

import (
	"time"

	"github.com/netsys-lab/reliable/dataplane"
	"github.com/netsys-lab/reliable/packet"
	log "github.com/sirupsen/logrus"
)

// Session joins one Sender and one Receiver over an exclusively owned
// channel. It is destroyed as soon as both halves are closed.
type Session struct {
	ID        uint64
	channel   dataplane.Channel
	sender    *dataplane.Sender
	receiver  *dataplane.Receiver
	metrics   *dataplane.Metrics
	registry  *Registry
	log       *log.Entry
	destroyed bool
}

func (s *Session) Sender() *dataplane.Sender {
	return s.sender
}

func (s *Session) Receiver() *dataplane.Receiver {
	return s.receiver
}

func (s *Session) Metrics() dataplane.SocketMetrics {
	return s.metrics.Snapshot()
}

func (s *Session) Destroyed() bool {
	return s.destroyed
}

// Dispatch decodes a raw datagram and routes it to the matching half.
// Corrupt datagrams are dropped without any response.
func (s *Session) Dispatch(raw []byte, now time.Time) {
	if s.destroyed {
		return
	}
	s.metrics.AddRx(len(raw))

	seg, err := packet.Decode(raw)
	if err != nil {
		s.log.Debugf("Dropping datagram: %v", err)
		s.metrics.AddCorrupt()
		return
	}
	s.log.Debugf("Received %s", seg)

	switch seg := seg.(type) {
	case *packet.AckSegment:
		s.sender.OnAck(seg.Ackno, now)
	case *packet.DataSegment:
		s.receiver.OnSegment(seg)
	}
	s.checkTeardown()
}

func (s *Session) OnInputAvailable(now time.Time) {
	if s.destroyed {
		return
	}
	s.sender.OnInputAvailable(now)
	s.checkTeardown()
}

func (s *Session) OnSinkCapacityAvailable() {
	if s.destroyed {
		return
	}
	s.receiver.OnSinkCapacityAvailable()
	s.checkTeardown()
}

func (s *Session) OnTimerTick(now time.Time) {
	if s.destroyed {
		return
	}
	s.sender.OnTimerTick(now)
}

func (s *Session) checkTeardown() {
	if s.sender.Closed() && s.receiver.Closed() {
		s.destroy()
	}
}

func (s *Session) destroy() {
	if s.destroyed {
		return
	}
	s.destroyed = true
	if err := s.channel.Close(); err != nil {
		s.log.Warnf("Failed to close channel: %v", err)
	}
	m := s.metrics.Snapshot()
	s.log.Infof("Session closed, sent %d segments (%d retransmits), delivered %d bytes",
		m.TxPackets, m.Retransmits, m.DeliveredBytes)
	s.registry.remove(s)
}
