package paragraph

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ssargent/folio/pkg/codec"
)

// Content types served and accepted for a single record.
const (
	ContentTypeJSON       = "application/json"
	ContentTypeTagged     = "application/x-folio-tagged"
	ContentTypePositional = "application/x-folio-positional"
)

// ErrNilRecord is returned when a nil *Info is passed to an encoder.
var ErrNilRecord = errors.New("paragraph: nil record")

// Codec turns records into bytes and back. Implementations are stateless and
// safe for concurrent use.
type Codec interface {
	Name() string
	ContentType() string
	Marshal(info *Info) ([]byte, error)
	Unmarshal(data []byte) (*Info, error)
	Encode(w io.Writer, info *Info) error
	Decode(r io.Reader) (*Info, error)
}

// TaggedCodec uses the field-tagged binary encoding. Each set field is
// written with its id and wire type, so readers built against a newer
// schema can skip fields they do not know.
type TaggedCodec struct {
	Limits codec.Limits
	// Strict rejects a known field id whose wire type does not match the
	// schema instead of skipping it.
	Strict bool
}

func (TaggedCodec) Name() string        { return "tagged" }
func (TaggedCodec) ContentType() string { return ContentTypeTagged }

func (c TaggedCodec) Marshal(info *Info) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.Encode(&buf, info); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c TaggedCodec) Unmarshal(data []byte) (*Info, error) {
	r := bytes.NewReader(data)
	info, err := c.Decode(r)
	if err != nil {
		return nil, err
	}
	if r.Len() > 0 {
		return nil, codec.NewMalformedError("tagged", "%d trailing bytes after record", r.Len())
	}
	return info, nil
}

func (c TaggedCodec) Encode(w io.Writer, info *Info) error {
	if info == nil {
		return ErrNilRecord
	}
	p := codec.NewBinaryWriter(w)
	if err := info.Write(p); err != nil {
		return err
	}
	return p.Flush()
}

func (c TaggedCodec) Decode(r io.Reader) (*Info, error) {
	p := codec.NewBinaryReader(r, c.Limits)
	var info Info
	if err := info.read(p, c.Strict); err != nil {
		return nil, err
	}
	return &info, nil
}

// MarshalList encodes records as a tagged list of structs.
func (c TaggedCodec) MarshalList(infos []*Info) ([]byte, error) {
	var buf bytes.Buffer
	p := codec.NewBinaryWriter(&buf)
	if err := WriteList(p, infos); err != nil {
		return nil, err
	}
	if err := p.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalList decodes the output of MarshalList.
func (c TaggedCodec) UnmarshalList(data []byte) ([]*Info, error) {
	p := codec.NewBinaryReader(bytes.NewReader(data), c.Limits)
	return readList(p, c.Strict)
}

// PositionalCodec uses the compact positional encoding: a presence bit set
// followed by the set values in field order. Both ends must agree on the
// field order, which makes it suitable for persisted snapshots but not for
// schema evolution.
type PositionalCodec struct {
	Limits codec.Limits
}

func (PositionalCodec) Name() string        { return "positional" }
func (PositionalCodec) ContentType() string { return ContentTypePositional }

func (c PositionalCodec) Marshal(info *Info) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.Encode(&buf, info); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c PositionalCodec) Unmarshal(data []byte) (*Info, error) {
	r := bytes.NewReader(data)
	info, err := c.Decode(r)
	if err != nil {
		return nil, err
	}
	if r.Len() > 0 {
		return nil, codec.NewMalformedError("positional", "%d trailing bytes after record", r.Len())
	}
	return info, nil
}

func (c PositionalCodec) Encode(w io.Writer, info *Info) error {
	if info == nil {
		return ErrNilRecord
	}
	p := codec.NewTupleWriter(w)
	if err := info.writeTuple(p); err != nil {
		return err
	}
	return p.Flush()
}

func (c PositionalCodec) Decode(r io.Reader) (*Info, error) {
	p := codec.NewTupleReader(r, c.Limits)
	var info Info
	if err := info.readTuple(p); err != nil {
		return nil, err
	}
	return &info, nil
}

// JSONCodec encodes records as JSON objects keyed by wire name. Unset fields
// are omitted and an explicit null decodes as unset.
type JSONCodec struct{}

func (JSONCodec) Name() string        { return "json" }
func (JSONCodec) ContentType() string { return ContentTypeJSON }

func (JSONCodec) Marshal(info *Info) ([]byte, error) {
	if info == nil {
		return nil, ErrNilRecord
	}
	return json.Marshal(info)
}

func (JSONCodec) Unmarshal(data []byte) (*Info, error) {
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, &codec.Error{Kind: codec.KindMalformed, Op: "json", Err: err}
	}
	if err := info.Validate(); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c JSONCodec) Encode(w io.Writer, info *Info) error {
	data, err := c.Marshal(info)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return &codec.Error{Kind: codec.KindTransport, Op: "json", Err: err}
	}
	return nil
}

func (c JSONCodec) Decode(r io.Reader) (*Info, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &codec.Error{Kind: codec.KindTransport, Op: "json", Err: err}
	}
	return c.Unmarshal(data)
}

// CodecByName returns the codec registered under name. "binary" and "tuple"
// are accepted as aliases of tagged and positional.
func CodecByName(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "tagged", "binary":
		return TaggedCodec{}, nil
	case "positional", "tuple":
		return PositionalCodec{}, nil
	case "json":
		return JSONCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown encoding %q", name)
	}
}

// CodecForContentType matches a media type, ignoring parameters such as
// charset. ok is false for unsupported types.
func CodecForContentType(contentType string) (c Codec, ok bool) {
	mediaType, _, _ := strings.Cut(contentType, ";")
	switch strings.ToLower(strings.TrimSpace(mediaType)) {
	case ContentTypeJSON, "":
		return JSONCodec{}, true
	case ContentTypeTagged:
		return TaggedCodec{}, true
	case ContentTypePositional:
		return PositionalCodec{}, true
	default:
		return nil, false
	}
}
