package packet

import (
	"github.com/google/netstack/tcpip/header"
)

// Checksum computes the Internet checksum of buf: the one's complement of
// the one's-complement sum of its big-endian 16-bit words. An odd trailing
// byte counts as the high byte of a final word. A zero result is returned
// as 0xffff.
func Checksum(buf []byte) uint16 {
	sum := ^header.Checksum(buf, 0)
	if sum == 0 {
		return 0xffff
	}
	return sum
}
