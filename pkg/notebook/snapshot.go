package notebook

import (
	"fmt"

	"github.com/ssargent/folio/pkg/codec"
	"github.com/ssargent/folio/pkg/paragraph"
)

// Stored snapshots start with one byte naming the codec that wrote the rest,
// so changing the configured encoding never strands existing data. No bare
// record in any of the encodings starts with one of these bytes.
var encodingTags = map[string]byte{
	"tagged":     'T',
	"positional": 'P',
	"json":       'J',
}

// snapshotCodecs encodes with one codec and decodes with whichever codec a
// snapshot's tag names.
type snapshotCodecs struct {
	writer  paragraph.Codec
	tag     byte
	readers map[byte]paragraph.Codec
}

// newSnapshotCodecs registers the default codecs as readers, then readers,
// then writer, later entries replacing earlier ones for the same encoding.
func newSnapshotCodecs(writer paragraph.Codec, readers []paragraph.Codec) (*snapshotCodecs, error) {
	sc := &snapshotCodecs{writer: writer, readers: make(map[byte]paragraph.Codec)}

	all := []paragraph.Codec{paragraph.TaggedCodec{}, paragraph.PositionalCodec{}, paragraph.JSONCodec{}}
	all = append(all, readers...)
	all = append(all, writer)
	for _, c := range all {
		tag, ok := encodingTags[c.Name()]
		if !ok {
			return nil, fmt.Errorf("no snapshot tag for encoding %q", c.Name())
		}
		sc.readers[tag] = c
	}
	sc.tag = encodingTags[writer.Name()]
	return sc, nil
}

func (sc *snapshotCodecs) marshal(info *paragraph.Info) ([]byte, error) {
	body, err := sc.writer.Marshal(info)
	if err != nil {
		return nil, err
	}
	data := make([]byte, 0, len(body)+1)
	data = append(data, sc.tag)
	return append(data, body...), nil
}

// unmarshal decodes a snapshot and reports the encoding it was stored in.
// A value without a known tag predates tagging and is read with the
// writer's codec.
func (sc *snapshotCodecs) unmarshal(data []byte) (*paragraph.Info, string, error) {
	if len(data) == 0 {
		return nil, "", codec.NewMalformedError("snapshot", "empty value")
	}
	c, ok := sc.readers[data[0]]
	if !ok {
		info, err := sc.writer.Unmarshal(data)
		return info, sc.writer.Name(), err
	}
	info, err := c.Unmarshal(data[1:])
	return info, c.Name(), err
}
