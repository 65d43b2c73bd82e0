package codec

import (
	"bufio"
	"context"
	"errors"
	"io"
	"math"

	"github.com/apache/thrift/lib/go/thrift"
)

var (
	errNotReadable = errors.New("protocol has no reader")
	errNotWritable = errors.New("protocol has no writer")
)

// closedSide stands in for the missing half of a one-way protocol.
type closedSide struct{ err error }

func (c closedSide) Read([]byte) (int, error)  { return 0, c.err }
func (c closedSide) Write([]byte) (int, error) { return 0, c.err }

// newTransport adapts r and w to a thrift stream transport. A reader that can
// already read single bytes is used as is, so decoding one record never
// consumes input past its end.
func newTransport(r io.Reader, w io.Writer) *thrift.StreamTransport {
	t := &thrift.StreamTransport{
		Reader: closedSide{err: errNotReadable},
		Writer: closedSide{err: errNotWritable},
	}
	if r != nil {
		if _, ok := r.(io.ByteReader); ok {
			t.Reader = r
		} else {
			t.Reader = bufio.NewReader(r)
		}
	}
	if w != nil {
		t.Writer = bufio.NewWriter(w)
	}
	return t
}

// thriftConfig sizes the runtime's own length check to the larger of the two
// limits. The exact per-kind limits are applied after each read.
func thriftConfig(limits Limits) *thrift.TConfiguration {
	size := max(limits.MaxStringLength, limits.MaxListLength)
	if size > math.MaxInt32 {
		size = math.MaxInt32
	}
	return &thrift.TConfiguration{MaxMessageSize: int32(size)}
}

// thriftProtocol maps Protocol onto a thrift protocol. It holds everything
// the field-tagged and positional protocols share.
type thriftProtocol struct {
	proto  thrift.TProtocol
	limits Limits
	ctx    context.Context
}

func (p *thriftProtocol) WriteStructBegin(name string) error {
	return fromThrift("write struct", p.proto.WriteStructBegin(p.ctx, name))
}

func (p *thriftProtocol) WriteStructEnd() error {
	return fromThrift("write struct", p.proto.WriteStructEnd(p.ctx))
}

func (p *thriftProtocol) WriteFieldBegin(name string, typ FieldType, id int16) error {
	return fromThrift("write field", p.proto.WriteFieldBegin(p.ctx, name, thrift.TType(typ), id))
}

func (p *thriftProtocol) WriteFieldEnd() error {
	return fromThrift("write field", p.proto.WriteFieldEnd(p.ctx))
}

func (p *thriftProtocol) WriteFieldStop() error {
	return fromThrift("write field stop", p.proto.WriteFieldStop(p.ctx))
}

func (p *thriftProtocol) WriteMapBegin(keyType, valueType FieldType, size int) error {
	return fromThrift("write map", p.proto.WriteMapBegin(p.ctx, thrift.TType(keyType), thrift.TType(valueType), size))
}

func (p *thriftProtocol) WriteMapEnd() error {
	return fromThrift("write map", p.proto.WriteMapEnd(p.ctx))
}

func (p *thriftProtocol) WriteListBegin(elemType FieldType, size int) error {
	return fromThrift("write list", p.proto.WriteListBegin(p.ctx, thrift.TType(elemType), size))
}

func (p *thriftProtocol) WriteListEnd() error {
	return fromThrift("write list", p.proto.WriteListEnd(p.ctx))
}

func (p *thriftProtocol) WriteSetBegin(elemType FieldType, size int) error {
	return fromThrift("write set", p.proto.WriteSetBegin(p.ctx, thrift.TType(elemType), size))
}

func (p *thriftProtocol) WriteSetEnd() error {
	return fromThrift("write set", p.proto.WriteSetEnd(p.ctx))
}

func (p *thriftProtocol) WriteBool(v bool) error {
	return fromThrift("write bool", p.proto.WriteBool(p.ctx, v))
}

func (p *thriftProtocol) WriteI8(v int8) error {
	return fromThrift("write byte", p.proto.WriteByte(p.ctx, v))
}

func (p *thriftProtocol) WriteI16(v int16) error {
	return fromThrift("write i16", p.proto.WriteI16(p.ctx, v))
}

func (p *thriftProtocol) WriteI32(v int32) error {
	return fromThrift("write i32", p.proto.WriteI32(p.ctx, v))
}

func (p *thriftProtocol) WriteI64(v int64) error {
	return fromThrift("write i64", p.proto.WriteI64(p.ctx, v))
}

func (p *thriftProtocol) WriteDouble(v float64) error {
	return fromThrift("write double", p.proto.WriteDouble(p.ctx, v))
}

func (p *thriftProtocol) WriteString(v string) error {
	return fromThrift("write string", p.proto.WriteString(p.ctx, v))
}

func (p *thriftProtocol) WriteBinary(v []byte) error {
	return fromThrift("write binary", p.proto.WriteBinary(p.ctx, v))
}

func (p *thriftProtocol) ReadStructBegin() (string, error) {
	name, err := p.proto.ReadStructBegin(p.ctx)
	return name, fromThrift("read struct", err)
}

func (p *thriftProtocol) ReadStructEnd() error {
	return fromThrift("read struct", p.proto.ReadStructEnd(p.ctx))
}

// ReadFieldBegin rejects a wire type this package does not know before it
// looks at the error, so a bad type byte at the end of the input reads as
// malformed rather than truncated.
func (p *thriftProtocol) ReadFieldBegin() (string, FieldType, int16, error) {
	name, tt, id, err := p.proto.ReadFieldBegin(p.ctx)
	typ := FieldType(tt)
	if typ != TypeStop && !typ.Valid() {
		return "", TypeStop, 0, malformed("read field", "unknown field type %d", tt)
	}
	if err != nil {
		return "", TypeStop, 0, fromThrift("read field", err)
	}
	return name, typ, id, nil
}

func (p *thriftProtocol) ReadFieldEnd() error {
	return fromThrift("read field", p.proto.ReadFieldEnd(p.ctx))
}

func (p *thriftProtocol) ReadMapBegin() (FieldType, FieldType, int, error) {
	kt, vt, size, err := p.proto.ReadMapBegin(p.ctx)
	if err != nil {
		return TypeStop, TypeStop, 0, fromThrift("read map", err)
	}
	if err := p.checkSize("read map", size, p.limits.MaxListLength); err != nil {
		return TypeStop, TypeStop, 0, err
	}
	k, v := FieldType(kt), FieldType(vt)
	if size > 0 && (!k.Valid() || !v.Valid()) {
		return TypeStop, TypeStop, 0, malformed("read map", "invalid map types %s/%s", k, v)
	}
	return k, v, size, nil
}

func (p *thriftProtocol) ReadMapEnd() error {
	return fromThrift("read map", p.proto.ReadMapEnd(p.ctx))
}

func (p *thriftProtocol) ReadListBegin() (FieldType, int, error) {
	et, size, err := p.proto.ReadListBegin(p.ctx)
	return p.collectionBegin("read list", et, size, err)
}

func (p *thriftProtocol) ReadListEnd() error {
	return fromThrift("read list", p.proto.ReadListEnd(p.ctx))
}

func (p *thriftProtocol) ReadSetBegin() (FieldType, int, error) {
	et, size, err := p.proto.ReadSetBegin(p.ctx)
	return p.collectionBegin("read set", et, size, err)
}

func (p *thriftProtocol) ReadSetEnd() error {
	return fromThrift("read set", p.proto.ReadSetEnd(p.ctx))
}

func (p *thriftProtocol) collectionBegin(op string, et thrift.TType, size int, err error) (FieldType, int, error) {
	if err != nil {
		return TypeStop, 0, fromThrift(op, err)
	}
	if err := p.checkSize(op, size, p.limits.MaxListLength); err != nil {
		return TypeStop, 0, err
	}
	typ := FieldType(et)
	if size > 0 && !typ.Valid() {
		return TypeStop, 0, malformed(op, "invalid element type %s", typ)
	}
	return typ, size, nil
}

func (p *thriftProtocol) ReadBool() (bool, error) {
	v, err := p.proto.ReadBool(p.ctx)
	return v, fromThrift("read bool", err)
}

func (p *thriftProtocol) ReadI8() (int8, error) {
	v, err := p.proto.ReadByte(p.ctx)
	return v, fromThrift("read byte", err)
}

func (p *thriftProtocol) ReadI16() (int16, error) {
	v, err := p.proto.ReadI16(p.ctx)
	return v, fromThrift("read i16", err)
}

func (p *thriftProtocol) ReadI32() (int32, error) {
	v, err := p.proto.ReadI32(p.ctx)
	return v, fromThrift("read i32", err)
}

func (p *thriftProtocol) ReadI64() (int64, error) {
	v, err := p.proto.ReadI64(p.ctx)
	return v, fromThrift("read i64", err)
}

func (p *thriftProtocol) ReadDouble() (float64, error) {
	v, err := p.proto.ReadDouble(p.ctx)
	return v, fromThrift("read double", err)
}

func (p *thriftProtocol) ReadString() (string, error) {
	v, err := p.proto.ReadString(p.ctx)
	if err != nil {
		return "", fromThrift("read string", err)
	}
	if err := p.checkSize("read string", len(v), p.limits.MaxStringLength); err != nil {
		return "", err
	}
	return v, nil
}

func (p *thriftProtocol) ReadBinary() ([]byte, error) {
	v, err := p.proto.ReadBinary(p.ctx)
	if err != nil {
		return nil, fromThrift("read binary", err)
	}
	if err := p.checkSize("read binary", len(v), p.limits.MaxStringLength); err != nil {
		return nil, err
	}
	if v == nil {
		v = []byte{}
	}
	return v, nil
}

func (p *thriftProtocol) Skip(typ FieldType) error {
	return skip(p, typ, p.limits.MaxDepth)
}

func (p *thriftProtocol) Flush() error {
	return fromThrift("flush", p.proto.Flush(p.ctx))
}

func (p *thriftProtocol) checkSize(op string, n, limit int) error {
	if n > limit {
		return malformed(op, "length %d exceeds limit %d", n, limit)
	}
	return nil
}

// fromThrift classifies an error raised by the thrift runtime. Anything the
// stream produced is a transport failure. Everything else is bad wire data.
func fromThrift(op string, err error) error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) {
		return err
	}
	var te thrift.TTransportException
	if errors.As(err, &te) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return transport(op, unexpectedEOF(err))
	}
	return &Error{Kind: KindMalformed, Op: op, Message: err.Error()}
}

// A record always ends with an explicit marker, so running out of input in
// the middle of one is never a clean end of stream.
func unexpectedEOF(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
