package packet

import (
	"encoding/binary"
	"fmt"

	"github.com/netsys-lab/reliable/shared"
	"github.com/pkg/errors"
)

var (
	// ErrCorrupt is returned by Decode for datagrams that are not a valid
	// segment: undersized, out of bounds or failing the checksum.
	ErrCorrupt = errors.New("corrupt segment")
	// ErrPayloadTooLarge is returned by Encode for payloads above MAX_PAYLOAD_LEN.
	ErrPayloadTooLarge = errors.New("payload too large")
)

// DataSegment carries up to shared.MAX_PAYLOAD_LEN bytes of the stream.
// A DataSegment without payload is the end-of-stream marker.
type DataSegment struct {
	Ackno   uint32
	Seqno   uint32
	Payload []byte
}

// NewDataSegment returns a data segment with the reserved ackno.
func NewDataSegment(seqno uint32, payload []byte) *DataSegment {
	return &DataSegment{
		Ackno:   shared.DATA_SEGMENT_ACKNO,
		Seqno:   seqno,
		Payload: payload,
	}
}

// NewEOFSegment returns the end-of-stream marker for seqno.
func NewEOFSegment(seqno uint32) *DataSegment {
	return NewDataSegment(seqno, []byte{})
}

func (d *DataSegment) Len() int {
	return shared.DATA_HEADER_LEN + len(d.Payload)
}

// IsEOF reports whether d is the end-of-stream marker.
func (d *DataSegment) IsEOF() bool {
	return len(d.Payload) == 0
}

func (d *DataSegment) String() string {
	if d.IsEOF() {
		return fmt.Sprintf("EOF{len=%d seqno=%d}", d.Len(), d.Seqno)
	}
	return fmt.Sprintf("DATA{len=%d ackno=%d seqno=%d}", d.Len(), d.Ackno, d.Seqno)
}

func (d *DataSegment) isSegment() {}

// AckSegment acknowledges every data segment before Ackno.
type AckSegment struct {
	Ackno uint32
}

func (a *AckSegment) Len() int {
	return shared.ACK_SEGMENT_LEN
}

func (a *AckSegment) String() string {
	return fmt.Sprintf("ACK{len=%d ackno=%d}", a.Len(), a.Ackno)
}

func (a *AckSegment) isSegment() {}

// Encode serializes seg to its wire representation. The checksum is
// computed last, over the segment with the checksum field zeroed.
func Encode(seg Segment) ([]byte, error) {
	var buf []byte
	switch s := seg.(type) {
	case *DataSegment:
		if len(s.Payload) > shared.MAX_PAYLOAD_LEN {
			return nil, errors.Wrapf(ErrPayloadTooLarge, "%d bytes", len(s.Payload))
		}
		buf = make([]byte, s.Len())
		binary.BigEndian.PutUint32(buf[shared.OFF_ACKNO:], s.Ackno)
		binary.BigEndian.PutUint32(buf[shared.OFF_SEQNO:], s.Seqno)
		copy(buf[shared.OFF_DATA:], s.Payload)
	case *AckSegment:
		buf = make([]byte, shared.ACK_SEGMENT_LEN)
		binary.BigEndian.PutUint32(buf[shared.OFF_ACKNO:], s.Ackno)
	default:
		return nil, errors.Errorf("unknown segment type %T", seg)
	}
	binary.BigEndian.PutUint16(buf[shared.OFF_LEN:], uint16(len(buf)))
	binary.BigEndian.PutUint16(buf[shared.OFF_CKSUM:], 0)
	binary.BigEndian.PutUint16(buf[shared.OFF_CKSUM:], Checksum(buf))
	return buf, nil
}

// Decode validates buf and parses it into a *DataSegment or *AckSegment.
// Bytes after the declared length are ignored. Every validation failure
// wraps ErrCorrupt.
func Decode(buf []byte) (Segment, error) {
	if len(buf) < shared.ACK_SEGMENT_LEN {
		return nil, errors.Wrapf(ErrCorrupt, "short datagram of %d bytes", len(buf))
	}

	length := int(binary.BigEndian.Uint16(buf[shared.OFF_LEN:]))
	if length > len(buf) {
		return nil, errors.Wrapf(ErrCorrupt, "declared length %d exceeds %d received bytes", length, len(buf))
	}
	if !shared.IsAckLen(length) && !shared.IsValidDataLen(length) {
		return nil, errors.Wrapf(ErrCorrupt, "invalid length %d", length)
	}
	if err := verifyChecksum(buf[:length]); err != nil {
		return nil, err
	}

	ackno := binary.BigEndian.Uint32(buf[shared.OFF_ACKNO:])
	if shared.IsAckLen(length) {
		return &AckSegment{Ackno: ackno}, nil
	}

	payload := make([]byte, length-shared.DATA_HEADER_LEN)
	copy(payload, buf[shared.OFF_DATA:length])
	return &DataSegment{
		Ackno:   ackno,
		Seqno:   binary.BigEndian.Uint32(buf[shared.OFF_SEQNO:]),
		Payload: payload,
	}, nil
}

func verifyChecksum(seg []byte) error {
	declared := binary.BigEndian.Uint16(seg[shared.OFF_CKSUM:])

	// Work on a copy, the caller may retain buf.
	scratch := make([]byte, len(seg))
	copy(scratch, seg)
	binary.BigEndian.PutUint16(scratch[shared.OFF_CKSUM:], 0)

	if computed := Checksum(scratch); computed != declared {
		return errors.Wrapf(ErrCorrupt, "checksum %#04x, computed %#04x", declared, computed)
	}
	return nil
}
