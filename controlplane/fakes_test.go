package controlplane

import (
	"io"

	"github.com/netsys-lab/reliable/dataplane"
)

// memChannel queues every datagram until the test delivers it.
type memChannel struct {
	out    [][]byte
	closed int
}

func (c *memChannel) Send(buf []byte) error {
	c.out = append(c.out, append([]byte(nil), buf...))
	return nil
}

func (c *memChannel) Close() error {
	c.closed++
	return nil
}

func (c *memChannel) take() [][]byte {
	out := c.out
	c.out = nil
	return out
}

func opener(ch dataplane.Channel) ChannelOpener {
	return func() (dataplane.Channel, error) {
		return ch, nil
	}
}

type sliceSource struct {
	chunks [][]byte
}

func (s *sliceSource) Pull(buf []byte) (int, error) {
	for len(s.chunks) > 0 && len(s.chunks[0]) == 0 {
		s.chunks = s.chunks[1:]
	}
	if len(s.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(buf, s.chunks[0])
	s.chunks[0] = s.chunks[0][n:]
	if len(s.chunks[0]) == 0 {
		s.chunks = s.chunks[1:]
	}
	return n, nil
}

type memSink struct {
	capacity int
	data     []byte
	closed   bool
}

func (s *memSink) Capacity() int {
	return s.capacity - len(s.data)
}

func (s *memSink) Push(buf []byte) int {
	n := len(buf)
	if free := s.Capacity(); n > free {
		n = free
	}
	s.data = append(s.data, buf[:n]...)
	return n
}

func (s *memSink) CloseWrite() {
	s.closed = true
}
