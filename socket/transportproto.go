package socket

import (
	"net"

	"github.com/netsys-lab/reliable/dataplane"
)

// TransportSocket is a datagram socket bound to a single peer. It is the
// channel a session sends through, plus the receive side read by the
// connection's reader goroutine.
type TransportSocket interface {
	dataplane.Channel
	// Opens a socket; the peer is learned from the first datagram.
	Listen(addr string) error
	// Opens a socket on laddr that sends to addr.
	Dial(laddr, addr string) error
	// Reads the next datagram from the peer.
	Read(buf []byte) (int, error)
	LocalAddr() net.Addr
	RemoteAddr() net.Addr
}
