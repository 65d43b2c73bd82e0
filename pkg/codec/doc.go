// Package codec provides the wire protocols used to serialize folio records.
//
// Records never touch bytes directly. They describe themselves to a
// Protocol (struct begin, field headers, values, stop marker) and the
// protocol decides the layout. Two layouts are provided for the same
// logical schema, both built on the Apache Thrift runtime
// (github.com/apache/thrift/lib/go/thrift).
//
// # Field-tagged encoding
//
// BinaryProtocol wraps the thrift binary protocol. It prefixes every
// present field with its type and id and ends the record with a stop
// marker:
//
//	[type(1)][id(2)][value] ... [0x00]
//
// Unset fields are omitted. Readers skip field ids they do not know, so
// writers may add fields without breaking older readers.
//
// # Positional encoding
//
// CompactTupleProtocol wraps the thrift compact protocol and adds a
// presence bit set. A positional record writes the bit set followed by only
// the values that are present, in schema order, with no field ids and no
// stop marker:
//
//	[bitset][value] ... [value]
//
// Bits beyond the schema width are ignored when reading.
//
// This is smaller but both ends must agree on the field order. Persisted
// snapshots use it.
//
// # Frames
//
// FrameCodec wraps an encoded record for the append-only log:
//
//	[CRC32(4)][KeySize(4)][ValueSize(4)][Timestamp(8)][Key][Value]
//
// The CRC32 covers everything after the checksum field, so any corruption
// in a header or payload is detected by Frame.Validate.
//
// # Errors
//
// Every failure is an *Error, including those raised inside the thrift
// runtime. Use errors.Is with ErrMalformedRecord,
// ErrTransport, or ErrValidation to classify it. A truncated stream is a
// transport failure; an impossible length, unknown wire type, or checksum
// mismatch is a malformed record.
//
// # Thread Safety
//
// Protocol values hold a buffered stream and must not be shared between
// goroutines. Frames are plain values. FrameCodec is stateless.
package codec
