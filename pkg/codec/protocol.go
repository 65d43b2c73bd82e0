package codec

// Protocol is the set of read and write primitives a record uses to
// serialize itself field by field. Implementations decide the byte layout;
// records only decide which fields to emit and in what order.
type Protocol interface {
	WriteStructBegin(name string) error
	WriteStructEnd() error
	WriteFieldBegin(name string, typ FieldType, id int16) error
	WriteFieldEnd() error
	WriteFieldStop() error
	WriteMapBegin(keyType, valueType FieldType, size int) error
	WriteMapEnd() error
	WriteListBegin(elemType FieldType, size int) error
	WriteListEnd() error
	WriteSetBegin(elemType FieldType, size int) error
	WriteSetEnd() error
	WriteBool(v bool) error
	WriteI8(v int8) error
	WriteI16(v int16) error
	WriteI32(v int32) error
	WriteI64(v int64) error
	WriteDouble(v float64) error
	WriteString(v string) error
	WriteBinary(v []byte) error

	ReadStructBegin() (name string, err error)
	ReadStructEnd() error
	ReadFieldBegin() (name string, typ FieldType, id int16, err error)
	ReadFieldEnd() error
	ReadMapBegin() (keyType, valueType FieldType, size int, err error)
	ReadMapEnd() error
	ReadListBegin() (elemType FieldType, size int, err error)
	ReadListEnd() error
	ReadSetBegin() (elemType FieldType, size int, err error)
	ReadSetEnd() error
	ReadBool() (bool, error)
	ReadI8() (int8, error)
	ReadI16() (int16, error)
	ReadI32() (int32, error)
	ReadI64() (int64, error)
	ReadDouble() (float64, error)
	ReadString() (string, error)
	ReadBinary() ([]byte, error)

	// Skip consumes one value of the given type without decoding it.
	Skip(typ FieldType) error

	// Flush pushes buffered writes to the underlying stream.
	Flush() error
}

// TupleProtocol adds the presence bit set used by positional encodings.
type TupleProtocol interface {
	Protocol
	WriteBitSet(bits BitSet, n int) error
	ReadBitSet(n int) (BitSet, error)
}

// Skip consumes one value of typ from p using only its read primitives,
// descending into containers up to maxDepth levels.
func Skip(p Protocol, typ FieldType, maxDepth int) error {
	return skip(p, typ, maxDepth)
}

func skip(p Protocol, typ FieldType, depth int) error {
	if depth <= 0 {
		return malformed("skip", "maximum nesting depth exceeded")
	}

	switch typ {
	case TypeBool:
		_, err := p.ReadBool()
		return err
	case TypeByte:
		_, err := p.ReadI8()
		return err
	case TypeI16:
		_, err := p.ReadI16()
		return err
	case TypeI32:
		_, err := p.ReadI32()
		return err
	case TypeI64:
		_, err := p.ReadI64()
		return err
	case TypeDouble:
		_, err := p.ReadDouble()
		return err
	case TypeString:
		_, err := p.ReadBinary()
		return err
	case TypeStruct:
		if _, err := p.ReadStructBegin(); err != nil {
			return err
		}
		for {
			_, ft, _, err := p.ReadFieldBegin()
			if err != nil {
				return err
			}
			if ft == TypeStop {
				break
			}
			if err := skip(p, ft, depth-1); err != nil {
				return err
			}
			if err := p.ReadFieldEnd(); err != nil {
				return err
			}
		}
		return p.ReadStructEnd()
	case TypeMap:
		kt, vt, size, err := p.ReadMapBegin()
		if err != nil {
			return err
		}
		for i := 0; i < size; i++ {
			if err := skip(p, kt, depth-1); err != nil {
				return err
			}
			if err := skip(p, vt, depth-1); err != nil {
				return err
			}
		}
		return p.ReadMapEnd()
	case TypeSet:
		et, size, err := p.ReadSetBegin()
		if err != nil {
			return err
		}
		for i := 0; i < size; i++ {
			if err := skip(p, et, depth-1); err != nil {
				return err
			}
		}
		return p.ReadSetEnd()
	case TypeList:
		et, size, err := p.ReadListBegin()
		if err != nil {
			return err
		}
		for i := 0; i < size; i++ {
			if err := skip(p, et, depth-1); err != nil {
				return err
			}
		}
		return p.ReadListEnd()
	default:
		return malformed("skip", "unknown field type %s", typ)
	}
}
