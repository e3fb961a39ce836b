package reliable

import (
	"context"
	"io"
	"net"

	"github.com/netsys-lab/reliable/blockmetrics"
	"github.com/netsys-lab/reliable/controlplane"
	"github.com/netsys-lab/reliable/dataplane"
	"github.com/netsys-lab/reliable/shared"
	"github.com/netsys-lab/reliable/socket"
	log "github.com/sirupsen/logrus"
)

// Conn is one reliable byte stream over UDP. Bytes read from src are
// delivered to the peer, bytes from the peer are written to dst. The
// stream ends when both directions have seen their end-of-stream.
type Conn struct {
	socket  *socket.UDPTransportSocket
	loop    *controlplane.Loop
	session *controlplane.Session
	source  *dataplane.ReaderSource
	sink    *dataplane.BufferedSink
	done    chan struct{}
}

// Listen binds laddr and serves the first peer that sends to it.
func Listen(laddr string, src io.Reader, dst io.Writer, cfg *controlplane.Config) (*Conn, error) {
	return newConn(func(s *socket.UDPTransportSocket) error {
		return s.Listen(laddr)
	}, src, dst, cfg)
}

// Dial binds laddr, which may be empty, and connects to raddr.
func Dial(laddr, raddr string, src io.Reader, dst io.Writer, cfg *controlplane.Config) (*Conn, error) {
	return newConn(func(s *socket.UDPTransportSocket) error {
		return s.Dial(laddr, raddr)
	}, src, dst, cfg)
}

func newConn(open func(*socket.UDPTransportSocket) error, src io.Reader, dst io.Writer, cfg *controlplane.Config) (*Conn, error) {
	c := cfg.WithDefaults()
	c.ExitWhenIdle = true

	conn := &Conn{
		socket: socket.NewUDPTransportSocket(),
		loop:   controlplane.NewLoop(&c),
		source: dataplane.NewReaderSource(src),
		sink:   dataplane.NewBufferedSink(dst, c.SinkBufferSize),
		done:   make(chan struct{}),
	}
	session, err := conn.loop.Registry().Create(func() (dataplane.Channel, error) {
		if err := open(conn.socket); err != nil {
			return nil, err
		}
		return conn.socket, nil
	}, conn.source, conn.sink, &c)
	if err != nil {
		return nil, err
	}
	conn.session = session
	return conn, nil
}

// Run transfers both directions until the session ends or ctx is done.
// It returns after every received byte has been written to dst.
func (c *Conn) Run(ctx context.Context) error {
	defer close(c.done)

	go c.readPackets()
	c.source.Start(func() {
		c.loop.PostInputReady(c.session)
	})
	c.sink.Start(func() {
		c.loop.PostSinkReady(c.session)
	})

	if err := c.loop.Run(ctx); err != nil {
		c.stop()
		return err
	}
	select {
	case <-c.sink.Done():
		return c.sink.Err()
	case <-ctx.Done():
		c.stop()
		return ctx.Err()
	}
}

// stop releases the socket and the stream goroutines of an aborted run.
func (c *Conn) stop() {
	c.socket.Close()
	c.source.Close()
	c.sink.Close()
}

func (c *Conn) readPackets() {
	for {
		buf := make([]byte, shared.RECV_BUFFER_SIZE)
		n, err := c.socket.Read(buf)
		if err != nil {
			if !c.socket.IsClosed() {
				log.Warnf("Stopped reading: %v", err)
			}
			return
		}
		c.loop.PostPacket(c.session, buf[:n])
	}
}

// Done is closed when Run has returned.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

func (c *Conn) Metrics() dataplane.SocketMetrics {
	return c.session.Metrics()
}

// Samples returns the bandwidth series collected while running.
func (c *Conn) Samples() []blockmetrics.Sample {
	return c.loop.Metrics().Samples()
}

func (c *Conn) LocalAddr() net.Addr {
	return c.socket.LocalAddr()
}
