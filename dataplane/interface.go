package dataplane

// Channel is the unreliable datagram path to the peer. Send hands one
// encoded segment to the network; delivery is not guaranteed.
type Channel interface {
	Send(buf []byte) error
	Close() error
}

// Source is the local byte stream that feeds the sender. Pull never blocks:
// it returns (0, nil) when no data is available yet and (0, io.EOF) once
// the stream has ended. Any other error ends the stream as well.
type Source interface {
	Pull(buf []byte) (int, error)
}

// Sink is the local consumer of received bytes. Push may accept fewer
// bytes than offered, it returns how many it took. Capacity is the number
// of bytes the next Push accepts without blocking.
type Sink interface {
	Capacity() int
	Push(buf []byte) int
	// CloseWrite signals that no more data follows.
	CloseWrite()
}
