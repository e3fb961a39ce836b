package shared

// Segment sizes on the wire, in bytes.
const (
	ACK_SEGMENT_LEN    = 8   // checksum + length + ackno
	DATA_HEADER_LEN    = 12  // checksum + length + ackno + seqno
	EOF_SEGMENT_LEN    = 12  // data header without payload
	MAX_PAYLOAD_LEN    = 488 // largest payload carried by one data segment
	MAX_SEGMENT_LEN    = DATA_HEADER_LEN + MAX_PAYLOAD_LEN
	RECV_BUFFER_SIZE   = 1500
	DATA_SEGMENT_ACKNO = 1 // ackno field value of every data segment
)

// Header field offsets shared by data and ack segments.
const (
	OFF_CKSUM = 0
	OFF_LEN   = 2
	OFF_ACKNO = 4
	OFF_SEQNO = 8
	OFF_DATA  = 12
)

// First sequence number used by a sender.
const FIRST_SEQNO = 1

// IsAckLen reports whether a declared segment length denotes an ack.
func IsAckLen(l int) bool {
	return l == ACK_SEGMENT_LEN
}

// IsValidDataLen reports whether a declared length can belong to a data segment.
func IsValidDataLen(l int) bool {
	return l >= DATA_HEADER_LEN && l <= MAX_SEGMENT_LEN
}
