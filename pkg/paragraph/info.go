package paragraph

import (
	"encoding/binary"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/ssargent/folio/pkg/codec"
)

// StructName is the record name used on the wire and in String.
const StructName = "ParagraphInfo"

// Field ids. They are part of the wire format and must never be reused.
const (
	FieldNoteID         int16 = 1
	FieldParagraphID    int16 = 2
	FieldParagraphTitle int16 = 3
	FieldParagraphText  int16 = 4
)

var fields = [...]codec.Field{
	{Name: "noteId", Type: codec.TypeString, ID: FieldNoteID},
	{Name: "paragraphId", Type: codec.TypeString, ID: FieldParagraphID},
	{Name: "paragraphTitle", Type: codec.TypeString, ID: FieldParagraphTitle},
	{Name: "paragraphText", Type: codec.TypeString, ID: FieldParagraphText},
}

// Fields returns the schema in wire order.
func Fields() []codec.Field {
	out := make([]codec.Field, len(fields))
	copy(out, fields[:])
	return out
}

// Info describes one paragraph of a notebook. Every field is optional and
// the zero value, with all fields unset, is a valid record.
//
// Info carries no synchronization. Share it read-only or confine it to one
// goroutine.
type Info struct {
	NoteID         Optional[string] `json:"noteId,omitzero"`
	ParagraphID    Optional[string] `json:"paragraphId,omitzero"`
	ParagraphTitle Optional[string] `json:"paragraphTitle,omitzero"`
	ParagraphText  Optional[string] `json:"paragraphText,omitzero"`
}

// New returns an Info with all four fields set.
func New(noteID, paragraphID, title, text string) *Info {
	return &Info{
		NoteID:         Some(noteID),
		ParagraphID:    Some(paragraphID),
		ParagraphTitle: Some(title),
		ParagraphText:  Some(text),
	}
}

// slots returns pointers to the fields in wire order.
func (i *Info) slots() [len(fields)]*Optional[string] {
	return [len(fields)]*Optional[string]{
		&i.NoteID,
		&i.ParagraphID,
		&i.ParagraphTitle,
		&i.ParagraphText,
	}
}

// Clone returns an independent copy.
func (i *Info) Clone() *Info {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}

// Equal reports whether both records have the same presence and value for
// every field.
func (i *Info) Equal(other *Info) bool {
	if i == nil || other == nil {
		return i == other
	}
	a, b := i.slots(), other.slots()
	for k := range a {
		if a[k].set != b[k].set {
			return false
		}
		if a[k].set && a[k].value != b[k].value {
			return false
		}
	}
	return true
}

// Compare orders records field by field in wire order. An unset field sorts
// before a set one and set fields compare byte-wise. It returns -1, 0 or +1
// and is zero exactly when Equal is true.
func (i *Info) Compare(other *Info) int {
	if i == nil || other == nil {
		switch {
		case i == other:
			return 0
		case i == nil:
			return -1
		default:
			return 1
		}
	}
	a, b := i.slots(), other.slots()
	for k := range a {
		if c := compareOptional(*a[k], *b[k]); c != 0 {
			return c
		}
	}
	return 0
}

// Compare is the package-level form of (*Info).Compare for slices.SortFunc.
func Compare(a, b *Info) int {
	return a.Compare(b)
}

func compareOptional(a, b Optional[string]) int {
	if a.set != b.set {
		if !a.set {
			return -1
		}
		return 1
	}
	if !a.set {
		return 0
	}
	return strings.Compare(a.value, b.value)
}

// Hash returns a 64-bit hash consistent with Equal.
func (i *Info) Hash() uint64 {
	d := xxhash.New()
	if i == nil {
		return d.Sum64()
	}
	var lenBuf [9]byte
	for _, f := range i.slots() {
		if !f.set {
			d.Write([]byte{0})
			continue
		}
		lenBuf[0] = 1
		binary.LittleEndian.PutUint64(lenBuf[1:], uint64(len(f.value)))
		d.Write(lenBuf[:])
		d.WriteString(f.value)
	}
	return d.Sum64()
}

// String renders the record with unset fields shown as null, e.g.
//
//	ParagraphInfo(noteId:n1, paragraphId:p1, paragraphTitle:null, paragraphText:print(1))
func (i *Info) String() string {
	if i == nil {
		return "null"
	}
	var sb strings.Builder
	sb.WriteString(StructName)
	sb.WriteByte('(')
	for k, f := range i.slots() {
		if k > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(fields[k].Name)
		sb.WriteByte(':')
		sb.WriteString(f.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

// Validate checks required fields. ParagraphInfo has none, so it always
// succeeds; decoders still call it so that a schema with required fields
// only has to change this method.
func (i *Info) Validate() error {
	return nil
}
