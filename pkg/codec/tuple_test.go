package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTupleProtocol_BitSetLayout(t *testing.T) {
	testCases := []struct {
		name  string
		bits  BitSet
		width int
		want  []byte
	}{
		{name: "none of four", bits: 0, width: 4, want: []byte{0x00}},
		{name: "first and last of four", bits: BitSet(0).With(0).With(3), width: 4, want: []byte{0x09}},
		{name: "all four", bits: 0x0F, width: 4, want: []byte{0x0F}},
		{name: "bit nine of ten", bits: BitSet(0).With(9), width: 10, want: []byte{0x02, 0x00}},
		{name: "bit zero of ten", bits: BitSet(0).With(0), width: 10, want: []byte{0x00, 0x01}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			w := NewTupleWriter(&buf)
			require.NoError(t, w.WriteBitSet(tc.bits, tc.width))
			require.NoError(t, w.Flush())
			assert.Equal(t, tc.want, buf.Bytes())

			r := NewTupleReader(&buf, Limits{})
			got, err := r.ReadBitSet(tc.width)
			require.NoError(t, err)
			assert.Equal(t, tc.bits, got)
		})
	}
}

func TestTupleProtocol_BitSetIgnoresBitsBeyondWidth(t *testing.T) {
	testCases := []struct {
		name  string
		data  []byte
		width int
		want  BitSet
	}{
		{name: "only high bits", data: []byte{0x10}, width: 4, want: 0},
		{name: "high bits with fields", data: []byte{0xF9}, width: 4, want: BitSet(0).With(0).With(3)},
		{name: "top byte of ten", data: []byte{0xFE, 0x01}, width: 10, want: BitSet(0).With(0).With(9)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewTupleReader(bytes.NewReader(tc.data), Limits{})
			got, err := r.ReadBitSet(tc.width)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestBitSet_Format(t *testing.T) {
	assert.Equal(t, "1001", BitSet(0x09).Format(4))
	assert.Equal(t, "0000", BitSet(0).Format(4))
}

func TestTupleProtocol_StringLayout(t *testing.T) {
	var buf bytes.Buffer
	w := NewTupleWriter(&buf)
	require.NoError(t, w.WriteString("n1"))
	require.NoError(t, w.WriteString(""))
	require.NoError(t, w.Flush())

	assert.Equal(t, []byte{0x02, 'n', '1', 0x00}, buf.Bytes())
}

func TestTupleProtocol_PrimitivesRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewTupleWriter(&buf)

	require.NoError(t, w.WriteBool(false))
	require.NoError(t, w.WriteI8(12))
	require.NoError(t, w.WriteI16(-2))
	require.NoError(t, w.WriteI32(1 << 30))
	require.NoError(t, w.WriteI64(-1 << 62))
	require.NoError(t, w.WriteDouble(-0.5))
	require.NoError(t, w.WriteString("paragraph_1"))
	require.NoError(t, w.WriteFieldBegin("x", TypeI32, -5))
	require.NoError(t, w.WriteSetBegin(TypeI64, 3))
	require.NoError(t, w.Flush())

	r := NewTupleReader(&buf, Limits{})

	b, err := r.ReadBool()
	require.NoError(t, err)
	assert.False(t, b)

	i8, err := r.ReadI8()
	require.NoError(t, err)
	assert.Equal(t, int8(12), i8)

	i16, err := r.ReadI16()
	require.NoError(t, err)
	assert.Equal(t, int16(-2), i16)

	i32, err := r.ReadI32()
	require.NoError(t, err)
	assert.Equal(t, int32(1<<30), i32)

	i64, err := r.ReadI64()
	require.NoError(t, err)
	assert.Equal(t, int64(-1<<62), i64)

	d, err := r.ReadDouble()
	require.NoError(t, err)
	assert.Equal(t, -0.5, d)

	s, err := r.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "paragraph_1", s)

	_, ft, id, err := r.ReadFieldBegin()
	require.NoError(t, err)
	assert.Equal(t, TypeI32, ft)
	assert.Equal(t, int16(-5), id)

	et, size, err := r.ReadSetBegin()
	require.NoError(t, err)
	assert.Equal(t, TypeI64, et)
	assert.Equal(t, 3, size)
}

func TestTupleProtocol_TruncatedVarint(t *testing.T) {
	r := NewTupleReader(bytes.NewReader([]byte{0xFF, 0xFF}), Limits{})
	_, err := r.ReadI64()
	assert.ErrorIs(t, err, ErrTransport)
}

func TestTupleProtocol_TruncatedString(t *testing.T) {
	r := NewTupleReader(bytes.NewReader([]byte{0x05, 'a'}), Limits{})
	_, err := r.ReadString()
	assert.ErrorIs(t, err, ErrTransport)
}

func TestTupleProtocol_OversizedString(t *testing.T) {
	r := NewTupleReader(bytes.NewReader([]byte{0x80, 0x80, 0x80, 0x10}), Limits{MaxStringLength: 1024})
	_, err := r.ReadString()
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestTupleProtocol_SkipList(t *testing.T) {
	var buf bytes.Buffer
	w := NewTupleWriter(&buf)
	require.NoError(t, w.WriteListBegin(TypeString, 2))
	require.NoError(t, w.WriteString("a"))
	require.NoError(t, w.WriteString("bc"))
	require.NoError(t, w.WriteI32(7))
	require.NoError(t, w.Flush())

	r := NewTupleReader(&buf, Limits{})
	require.NoError(t, r.Skip(TypeList))
	v, err := r.ReadI32()
	require.NoError(t, err)
	assert.Equal(t, int32(7), v)
}
