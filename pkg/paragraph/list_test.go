package paragraph

import (
	"bytes"
	"testing"

	"github.com/ssargent/folio/pkg/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestList_RoundTrip(t *testing.T) {
	infos := []*Info{
		New("n1", "p1", "Title", "print(1)"),
		{},
		{NoteID: Some("n1"), ParagraphText: Some("")},
	}

	data, err := TaggedCodec{}.MarshalList(infos)
	require.NoError(t, err)

	got, err := TaggedCodec{}.UnmarshalList(data)
	require.NoError(t, err)
	require.Len(t, got, len(infos))
	for k := range infos {
		assert.True(t, infos[k].Equal(got[k]), "element %d", k)
	}
}

func TestList_Empty(t *testing.T) {
	data, err := TaggedCodec{}.MarshalList(nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0C, 0x00, 0x00, 0x00, 0x00}, data)

	got, err := TaggedCodec{}.UnmarshalList(data)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestList_WrongElementType(t *testing.T) {
	var buf bytes.Buffer
	p := codec.NewBinaryWriter(&buf)
	require.NoError(t, p.WriteListBegin(codec.TypeString, 1))
	require.NoError(t, p.WriteString("n1"))
	require.NoError(t, p.Flush())

	_, err := ReadList(codec.NewBinaryReader(&buf, codec.Limits{}))
	assert.ErrorIs(t, err, codec.ErrMalformedRecord)
}

func TestList_NilElement(t *testing.T) {
	_, err := TaggedCodec{}.MarshalList([]*Info{New("n", "p", "t", "x"), nil})
	assert.ErrorIs(t, err, ErrNilRecord)
}

func TestList_TruncatedElement(t *testing.T) {
	data, err := TaggedCodec{}.MarshalList([]*Info{New("n", "p", "t", "x"), New("n", "q", "t", "y")})
	require.NoError(t, err)

	_, err = TaggedCodec{}.UnmarshalList(data[:len(data)-3])
	assert.ErrorIs(t, err, codec.ErrTransport)
}
