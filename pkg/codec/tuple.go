package codec

import (
	"context"
	"io"

	"github.com/apache/thrift/lib/go/thrift"
)

// CompactTupleProtocol implements the positional encoding: a presence bit
// set followed by the values that are present, in schema order. Values use
// the thrift compact protocol.
//
// Layout:
//
//	bit set:  ceil(n/8) bytes, bit i in byte len-1-i/8 at position i%8
//	string:   [length(varint)][bytes]
//	integers: zig-zag varint
//	double:   8 bytes little-endian
//
// Containers and field headers, which positional records never emit, take
// the compact protocol's form.
type CompactTupleProtocol struct {
	thriftProtocol
}

var _ TupleProtocol = (*CompactTupleProtocol)(nil)

// NewTupleProtocol creates a protocol that reads from r and writes to w.
// Either side may be nil.
func NewTupleProtocol(r io.Reader, w io.Writer, limits Limits) *CompactTupleProtocol {
	limits = limits.withDefaults()
	return &CompactTupleProtocol{thriftProtocol{
		proto:  thrift.NewTCompactProtocolConf(newTransport(r, w), thriftConfig(limits)),
		limits: limits,
		ctx:    context.Background(),
	}}
}

// NewTupleWriter creates a write-only tuple protocol.
func NewTupleWriter(w io.Writer) *CompactTupleProtocol {
	return NewTupleProtocol(nil, w, Limits{})
}

// NewTupleReader creates a read-only tuple protocol.
func NewTupleReader(r io.Reader, limits Limits) *CompactTupleProtocol {
	return NewTupleProtocol(r, nil, limits)
}

// BitSetBytes returns the number of bytes a bit set of width n occupies.
func BitSetBytes(n int) int {
	return (n + 7) / 8
}

func (p *CompactTupleProtocol) WriteBitSet(bits BitSet, n int) error {
	if n < 0 || n > 64 {
		return malformed("write bitset", "unsupported width %d", n)
	}
	size := BitSetBytes(n)
	for j := 0; j < size; j++ {
		base := (size - 1 - j) * 8
		var b byte
		for k := 0; k < 8 && base+k < n; k++ {
			if bits.Has(base + k) {
				b |= 1 << uint(k)
			}
		}
		if err := p.proto.WriteByte(p.ctx, int8(b)); err != nil {
			return fromThrift("write bitset", err)
		}
	}
	return nil
}

// ReadBitSet reads a bit set of width n. Bits at or above n are ignored.
func (p *CompactTupleProtocol) ReadBitSet(n int) (BitSet, error) {
	if n < 0 || n > 64 {
		return 0, malformed("read bitset", "unsupported width %d", n)
	}
	size := BitSetBytes(n)
	var bits BitSet
	for j := 0; j < size; j++ {
		b, err := p.proto.ReadByte(p.ctx)
		if err != nil {
			return 0, fromThrift("read bitset", err)
		}
		base := (size - 1 - j) * 8
		for k := 0; k < 8 && base+k < n; k++ {
			if byte(b)&(1<<uint(k)) != 0 {
				bits = bits.With(base + k)
			}
		}
	}
	return bits, nil
}
