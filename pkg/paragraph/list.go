package paragraph

import (
	"github.com/ssargent/folio/pkg/codec"
)

// WriteList writes infos as a tagged list of structs.
func WriteList(p codec.Protocol, infos []*Info) error {
	if err := p.WriteListBegin(codec.TypeStruct, len(infos)); err != nil {
		return err
	}
	for _, info := range infos {
		if info == nil {
			return ErrNilRecord
		}
		if err := info.Write(p); err != nil {
			return err
		}
	}
	return p.WriteListEnd()
}

// ReadList reads a list written by WriteList.
func ReadList(p codec.Protocol) ([]*Info, error) {
	return readList(p, false)
}

func readList(p codec.Protocol, strict bool) ([]*Info, error) {
	elem, size, err := p.ReadListBegin()
	if err != nil {
		return nil, err
	}
	if elem != codec.TypeStruct {
		return nil, codec.NewMalformedError("list", "element type %s, want %s", elem, codec.TypeStruct)
	}

	infos := make([]*Info, 0, min(size, 1024))
	for n := 0; n < size; n++ {
		var info Info
		if err := info.read(p, strict); err != nil {
			return nil, err
		}
		infos = append(infos, &info)
	}
	if err := p.ReadListEnd(); err != nil {
		return nil, err
	}
	return infos, nil
}
