package codec

import (
	"context"
	"io"

	"github.com/apache/thrift/lib/go/thrift"
)

// BinaryProtocol implements the field-tagged encoding on top of the thrift
// binary protocol.
//
// Layout:
//
//	field header: [type(1)][id(2, big-endian)]
//	stop marker:  [0x00]
//	string:       [length(4, big-endian, signed)][bytes]
//	list/set:     [elemType(1)][size(4)]
//	map:          [keyType(1)][valueType(1)][size(4)]
//
// Struct begin/end and field end are not written. Integers are big-endian.
type BinaryProtocol struct {
	thriftProtocol
}

var _ Protocol = (*BinaryProtocol)(nil)

// NewBinaryProtocol creates a protocol that reads from r and writes to w.
// Either side may be nil.
func NewBinaryProtocol(r io.Reader, w io.Writer, limits Limits) *BinaryProtocol {
	limits = limits.withDefaults()
	return &BinaryProtocol{thriftProtocol{
		proto:  thrift.NewTBinaryProtocolConf(newTransport(r, w), thriftConfig(limits)),
		limits: limits,
		ctx:    context.Background(),
	}}
}

// NewBinaryWriter creates a write-only binary protocol.
func NewBinaryWriter(w io.Writer) *BinaryProtocol {
	return NewBinaryProtocol(nil, w, Limits{})
}

// NewBinaryReader creates a read-only binary protocol.
func NewBinaryReader(r io.Reader, limits Limits) *BinaryProtocol {
	return NewBinaryProtocol(r, nil, limits)
}
