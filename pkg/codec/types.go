package codec

import "fmt"

// FieldType identifies the wire type of a field or container element.
type FieldType byte

// Wire types. The numbering matches the common tagged binary RPC layout so
// records written here can be read by peers using that layout.
const (
	TypeStop   FieldType = 0
	TypeVoid   FieldType = 1
	TypeBool   FieldType = 2
	TypeByte   FieldType = 3
	TypeDouble FieldType = 4
	TypeI16    FieldType = 6
	TypeI32    FieldType = 8
	TypeI64    FieldType = 10
	TypeString FieldType = 11
	TypeStruct FieldType = 12
	TypeMap    FieldType = 13
	TypeSet    FieldType = 14
	TypeList   FieldType = 15
)

var fieldTypeNames = map[FieldType]string{
	TypeStop:   "STOP",
	TypeVoid:   "VOID",
	TypeBool:   "BOOL",
	TypeByte:   "BYTE",
	TypeDouble: "DOUBLE",
	TypeI16:    "I16",
	TypeI32:    "I32",
	TypeI64:    "I64",
	TypeString: "STRING",
	TypeStruct: "STRUCT",
	TypeMap:    "MAP",
	TypeSet:    "SET",
	TypeList:   "LIST",
}

// Valid reports whether t is a known wire type.
func (t FieldType) Valid() bool {
	_, ok := fieldTypeNames[t]
	return ok
}

func (t FieldType) String() string {
	if name, ok := fieldTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("FieldType(%d)", byte(t))
}

// Field describes one field of a record schema.
type Field struct {
	Name string
	Type FieldType
	ID   int16
}

// BitSet is a presence mask used by the positional encoding. Bit i is the
// presence flag of the i-th field in schema order.
type BitSet uint64

// Has reports whether bit i is set.
func (b BitSet) Has(i int) bool {
	return b&(1<<uint(i)) != 0
}

// With returns b with bit i set.
func (b BitSet) With(i int) BitSet {
	return b | 1<<uint(i)
}

// Format renders the first n bits, most significant first.
func (b BitSet) Format(n int) string {
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		if b.Has(n - 1 - i) {
			out[i] = '1'
		} else {
			out[i] = '0'
		}
	}
	return string(out)
}

// Limits bounds what a protocol accepts while reading.
type Limits struct {
	MaxStringLength int // bytes in a single string or binary value
	MaxListLength   int // elements in a list, set, or map
	MaxDepth        int // container nesting while skipping
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		MaxStringLength: 16 << 20,
		MaxListLength:   1 << 20,
		MaxDepth:        64,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxStringLength <= 0 {
		l.MaxStringLength = d.MaxStringLength
	}
	if l.MaxListLength <= 0 {
		l.MaxListLength = d.MaxListLength
	}
	if l.MaxDepth <= 0 {
		l.MaxDepth = d.MaxDepth
	}
	return l
}
