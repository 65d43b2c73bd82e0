package paragraph

import (
	"github.com/ssargent/folio/pkg/codec"
)

// Write emits the record in field-tagged form. Only set fields are written,
// followed by a stop marker. The caller flushes p.
func (i *Info) Write(p codec.Protocol) error {
	if err := p.WriteStructBegin(StructName); err != nil {
		return err
	}
	for k, f := range i.slots() {
		v, ok := f.Get()
		if !ok {
			continue
		}
		if err := p.WriteFieldBegin(fields[k].Name, fields[k].Type, fields[k].ID); err != nil {
			return err
		}
		if err := p.WriteString(v); err != nil {
			return err
		}
		if err := p.WriteFieldEnd(); err != nil {
			return err
		}
	}
	if err := p.WriteFieldStop(); err != nil {
		return err
	}
	return p.WriteStructEnd()
}

// Read replaces the record with one decoded from field-tagged form. Unknown
// field ids are skipped, and so is a known id carrying an unexpected wire
// type. On error the receiver is left unchanged.
func (i *Info) Read(p codec.Protocol) error {
	return i.read(p, false)
}

func (i *Info) read(p codec.Protocol, strict bool) error {
	var out Info
	if _, err := p.ReadStructBegin(); err != nil {
		return err
	}
	slots := out.slots()
	for {
		_, typ, id, err := p.ReadFieldBegin()
		if err != nil {
			return err
		}
		if typ == codec.TypeStop {
			break
		}

		k := fieldIndex(id)
		switch {
		case k < 0:
			if err := p.Skip(typ); err != nil {
				return err
			}
		case typ != fields[k].Type:
			if strict {
				return codec.NewMalformedError(StructName,
					"field %s (id %d) has wire type %s, want %s", fields[k].Name, id, typ, fields[k].Type)
			}
			if err := p.Skip(typ); err != nil {
				return err
			}
		default:
			v, err := p.ReadString()
			if err != nil {
				return err
			}
			slots[k].Set(v)
		}

		if err := p.ReadFieldEnd(); err != nil {
			return err
		}
	}
	if err := p.ReadStructEnd(); err != nil {
		return err
	}
	if err := out.Validate(); err != nil {
		return err
	}
	*i = out
	return nil
}

func fieldIndex(id int16) int {
	for k := range fields {
		if fields[k].ID == id {
			return k
		}
	}
	return -1
}

// presence returns the bit set of set fields, bit k for the k-th field.
func (i *Info) presence() codec.BitSet {
	var bits codec.BitSet
	for k, f := range i.slots() {
		if f.IsSet() {
			bits = bits.With(k)
		}
	}
	return bits
}

// writeTuple emits the presence bits followed by the set values in field
// order.
func (i *Info) writeTuple(p codec.TupleProtocol) error {
	if err := p.WriteBitSet(i.presence(), len(fields)); err != nil {
		return err
	}
	for _, f := range i.slots() {
		if v, ok := f.Get(); ok {
			if err := p.WriteString(v); err != nil {
				return err
			}
		}
	}
	return nil
}

func (i *Info) readTuple(p codec.TupleProtocol) error {
	var out Info
	bits, err := p.ReadBitSet(len(fields))
	if err != nil {
		return err
	}
	for k, f := range out.slots() {
		if !bits.Has(k) {
			continue
		}
		v, err := p.ReadString()
		if err != nil {
			return err
		}
		f.Set(v)
	}
	if err := out.Validate(); err != nil {
		return err
	}
	*i = out
	return nil
}
