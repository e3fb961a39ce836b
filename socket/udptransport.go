package socket

import (
	"net"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Ensuring interface compatability at compile time.
var _ TransportSocket = &UDPTransportSocket{}

var (
	ErrNoPeer = errors.New("peer address not known yet")
	ErrClosed = errors.New("socket closed")
)

type UDPTransportSocket struct {
	sync.Mutex
	Conn       *net.UDPConn
	remoteAddr *net.UDPAddr
	closed     bool
}

func NewUDPTransportSocket() *UDPTransportSocket {
	return &UDPTransportSocket{}
}

func (uts *UDPTransportSocket) Listen(addr string) error {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return errors.Wrapf(err, "resolve %s", addr)
	}
	udpConn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", addr)
	}
	uts.Conn = udpConn
	log.Infof("Listening on %s", udpConn.LocalAddr())
	return nil
}

func (uts *UDPTransportSocket) Dial(laddr, addr string) error {
	if laddr == "" {
		laddr = ":0"
	}
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return errors.Wrapf(err, "resolve %s", addr)
	}
	if err := uts.Listen(laddr); err != nil {
		return err
	}
	uts.Lock()
	uts.remoteAddr = udpAddr
	uts.Unlock()
	return nil
}

func (uts *UDPTransportSocket) Send(buf []byte) error {
	uts.Lock()
	remote, closed := uts.remoteAddr, uts.closed
	uts.Unlock()
	if closed {
		return ErrClosed
	}
	if remote == nil {
		return ErrNoPeer
	}
	_, err := uts.Conn.WriteToUDP(buf, remote)
	return errors.Wrapf(err, "send to %s", remote)
}

// Read returns the next datagram from the peer. Until the peer is known
// the first sender becomes the peer; later datagrams from other addresses
// are dropped.
func (uts *UDPTransportSocket) Read(buf []byte) (int, error) {
	for {
		n, from, err := uts.Conn.ReadFromUDP(buf)
		if err != nil {
			if uts.IsClosed() {
				return 0, ErrClosed
			}
			return 0, errors.Wrap(err, "read")
		}

		uts.Lock()
		if uts.remoteAddr == nil {
			log.Infof("Accepted peer %s", from)
			uts.remoteAddr = from
		}
		known := sameAddr(uts.remoteAddr, from)
		uts.Unlock()
		if !known {
			log.Debugf("Dropping datagram from unknown peer %s", from)
			continue
		}
		return n, nil
	}
}

func (uts *UDPTransportSocket) Close() error {
	uts.Lock()
	if uts.closed {
		uts.Unlock()
		return nil
	}
	uts.closed = true
	uts.Unlock()
	if uts.Conn == nil {
		return nil
	}
	return uts.Conn.Close()
}

func (uts *UDPTransportSocket) IsClosed() bool {
	uts.Lock()
	defer uts.Unlock()
	return uts.closed
}

func (uts *UDPTransportSocket) LocalAddr() net.Addr {
	if uts.Conn == nil {
		return nil
	}
	return uts.Conn.LocalAddr()
}

func (uts *UDPTransportSocket) RemoteAddr() net.Addr {
	uts.Lock()
	defer uts.Unlock()
	if uts.remoteAddr == nil {
		return nil
	}
	return uts.remoteAddr
}

func sameAddr(a, b *net.UDPAddr) bool {
	return a.Port == b.Port && a.IP.Equal(b.IP)
}
