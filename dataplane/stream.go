package dataplane

import (
	"io"
	"sync"

	"github.com/netsys-lab/reliable/shared"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/smallnest/ringbuffer"
)

// Ensuring interface compatability at compile time.
var _ Source = &ReaderSource{}
var _ Sink = &BufferedSink{}

const READ_CHUNK_SIZE = 4 * shared.MAX_PAYLOAD_LEN

// ReaderSource adapts a blocking io.Reader to the non-blocking Source
// contract. A background goroutine reads ahead one chunk at a time and
// calls onReady whenever new data or the end of the stream is available.
type ReaderSource struct {
	r       io.Reader
	chunks  chan []byte
	stop    chan struct{}
	pending []byte
	err     error
	once    sync.Once
	stopped sync.Once
}

func NewReaderSource(r io.Reader) *ReaderSource {
	return &ReaderSource{
		r:      r,
		chunks: make(chan []byte, 1),
		stop:   make(chan struct{}),
	}
}

// Close stops the reading goroutine. A Read already blocked in the
// underlying reader still has to return first.
func (s *ReaderSource) Close() {
	s.stopped.Do(func() {
		close(s.stop)
	})
}

// Start begins reading. onReady is called from the reading goroutine.
func (s *ReaderSource) Start(onReady func()) {
	s.once.Do(func() {
		go s.readLoop(onReady)
	})
}

func (s *ReaderSource) readLoop(onReady func()) {
	for {
		buf := make([]byte, READ_CHUNK_SIZE)
		n, err := s.r.Read(buf)
		if n > 0 {
			select {
			case s.chunks <- buf[:n]:
			case <-s.stop:
				return
			}
			onReady()
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Warnf("Failed to read input: %v", err)
				s.err = err
			}
			close(s.chunks)
			onReady()
			return
		}
	}
}

func (s *ReaderSource) Pull(buf []byte) (int, error) {
	if len(s.pending) == 0 {
		select {
		case chunk, ok := <-s.chunks:
			if !ok {
				if s.err != nil {
					return 0, s.err
				}
				return 0, io.EOF
			}
			s.pending = chunk
		default:
			return 0, nil
		}
	}
	n := copy(buf, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

// BufferedSink is a bounded Sink in front of an io.Writer. Pushed bytes
// land in a ring buffer that a background goroutine flushes to the writer,
// calling onCapacity each time space has been freed.
type BufferedSink struct {
	rb      *ringbuffer.RingBuffer
	w       io.Writer
	size    int
	wake    chan struct{}
	closing chan struct{}
	stop    chan struct{}
	done    chan struct{}
	err     error
	started sync.Once
	closed  sync.Once
	stopped sync.Once
}

func NewBufferedSink(w io.Writer, size int) *BufferedSink {
	return &BufferedSink{
		rb:      ringbuffer.New(size),
		w:       w,
		size:    size,
		wake:    make(chan struct{}, 1),
		closing: make(chan struct{}),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start begins flushing. onCapacity is called from the flushing goroutine.
func (s *BufferedSink) Start(onCapacity func()) {
	s.started.Do(func() {
		go s.flushLoop(onCapacity)
	})
}

func (s *BufferedSink) Capacity() int {
	return s.rb.Free()
}

func (s *BufferedSink) Push(buf []byte) int {
	n, err := s.rb.Write(buf)
	if err != nil && err != ringbuffer.ErrIsFull && err != ringbuffer.ErrTooManyDataToWrite {
		log.Warnf("Failed to buffer output: %v", err)
	}
	if n > 0 {
		select {
		case s.wake <- struct{}{}:
		default:
		}
	}
	return n
}

func (s *BufferedSink) CloseWrite() {
	s.closed.Do(func() {
		close(s.closing)
	})
}

// Close stops the flushing goroutine and discards whatever is still
// buffered.
func (s *BufferedSink) Close() {
	s.stopped.Do(func() {
		close(s.stop)
	})
}

// Done is closed once CloseWrite was called and every buffered byte has
// been written out, or once Close stopped the flushing goroutine.
func (s *BufferedSink) Done() <-chan struct{} {
	return s.done
}

// Err returns the first write error. Only valid after Done is closed.
func (s *BufferedSink) Err() error {
	return s.err
}

func (s *BufferedSink) flushLoop(onCapacity func()) {
	defer close(s.done)
	buf := make([]byte, s.size)
	for {
		select {
		case <-s.wake:
			s.flush(buf, onCapacity)
		case <-s.closing:
			s.flush(buf, onCapacity)
			return
		case <-s.stop:
			return
		}
	}
}

func (s *BufferedSink) flush(buf []byte, onCapacity func()) {
	for !s.rb.IsEmpty() {
		n, err := s.rb.Read(buf)
		if err != nil {
			return
		}
		if _, err := s.w.Write(buf[:n]); err != nil && s.err == nil {
			// Keep draining so the peer can finish, the bytes are lost.
			log.Warnf("Failed to write output: %v", err)
			s.err = err
		}
		onCapacity()
	}
}
