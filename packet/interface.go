package packet

// Segment is one framed unit of the wire protocol. It is implemented by
// *DataSegment and *AckSegment only; use a type switch to tell them apart.
type Segment interface {
	// Len returns the total wire size including the header.
	Len() int
	String() string
	isSegment()
}

var _ Segment = &DataSegment{}
var _ Segment = &AckSegment{}
