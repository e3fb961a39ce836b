package dataplane

import (
	"io"
	"testing"

	"github.com/netsys-lab/reliable/packet"
)

type fakeChannel struct {
	sent   [][]byte
	err    error
	closed bool
}

func (c *fakeChannel) Send(buf []byte) error {
	c.sent = append(c.sent, append([]byte(nil), buf...))
	return c.err
}

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

func (c *fakeChannel) segment(t *testing.T, i int) packet.Segment {
	t.Helper()
	if i >= len(c.sent) {
		t.Fatalf("only %d segments sent, want index %d", len(c.sent), i)
	}
	seg, err := packet.Decode(c.sent[i])
	if err != nil {
		t.Fatalf("sent segment %d does not decode: %v", i, err)
	}
	return seg
}

func (c *fakeChannel) acks(t *testing.T) []uint32 {
	t.Helper()
	var acks []uint32
	for i := range c.sent {
		if ack, ok := c.segment(t, i).(*packet.AckSegment); ok {
			acks = append(acks, ack.Ackno)
		}
	}
	return acks
}

// fakeSource yields its chunks one Pull at a time, then EOF if eof is set.
type fakeSource struct {
	chunks [][]byte
	eof    bool
	err    error
	pulls  int
}

func (s *fakeSource) Pull(buf []byte) (int, error) {
	s.pulls++
	if len(s.chunks) == 0 {
		if s.err != nil {
			return 0, s.err
		}
		if s.eof {
			return 0, io.EOF
		}
		return 0, nil
	}
	n := copy(buf, s.chunks[0])
	s.chunks[0] = s.chunks[0][n:]
	if len(s.chunks[0]) == 0 {
		s.chunks = s.chunks[1:]
	}
	return n, nil
}

type fakeSink struct {
	capacity int
	data     []byte
	closed   bool
}

func (s *fakeSink) Capacity() int {
	return s.capacity
}

func (s *fakeSink) Push(buf []byte) int {
	n := len(buf)
	if n > s.capacity {
		n = s.capacity
	}
	s.data = append(s.data, buf[:n]...)
	s.capacity -= n
	return n
}

func (s *fakeSink) CloseWrite() {
	s.closed = true
}
