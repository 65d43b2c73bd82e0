package codec

import (
	"encoding/binary"
	"hash/crc32"
	"math"
	"time"
)

// FrameHeaderSize is the size of the fixed frame header in bytes.
const FrameHeaderSize = 20

// Frame is one entry of an append-only log: an opaque key and value plus
// the metadata needed to detect corruption.
type Frame struct {
	CRC32     uint32 // checksum over everything after this field
	KeySize   uint32
	ValueSize uint32
	Timestamp uint64 // Unix nanoseconds
	Key       []byte
	Value     []byte
}

// FrameCodec serializes frames.
//
//	[CRC32(4)][KeySize(4)][ValueSize(4)][Timestamp(8)][Key][Value]
//
// All integers are little-endian.
type FrameCodec struct{}

// NewFrameCodec creates a new frame codec instance
func NewFrameCodec() *FrameCodec {
	return &FrameCodec{}
}

// NewFrame builds a frame stamped with the current time.
func NewFrame(key, value []byte) (*Frame, error) {
	if uint64(len(key)) > math.MaxUint32 {
		return nil, malformed("new frame", "key too large: %d bytes", len(key))
	}
	if uint64(len(value)) > math.MaxUint32 {
		return nil, malformed("new frame", "value too large: %d bytes", len(value))
	}
	return &Frame{
		KeySize:   uint32(len(key)),
		ValueSize: uint32(len(value)),
		Timestamp: uint64(time.Now().UnixNano()),
		Key:       key,
		Value:     value,
	}, nil
}

// Encode frames a key/value pair.
func (c *FrameCodec) Encode(key, value []byte) ([]byte, error) {
	f, err := NewFrame(key, value)
	if err != nil {
		return nil, err
	}
	return c.EncodeFrame(f), nil
}

// EncodeFrame serializes f, filling in its checksum.
func (c *FrameCodec) EncodeFrame(f *Frame) []byte {
	f.CRC32 = f.checksum()

	buf := make([]byte, f.Size())
	binary.LittleEndian.PutUint32(buf[0:], f.CRC32)
	binary.LittleEndian.PutUint32(buf[4:], f.KeySize)
	binary.LittleEndian.PutUint32(buf[8:], f.ValueSize)
	binary.LittleEndian.PutUint64(buf[12:], f.Timestamp)
	copy(buf[FrameHeaderSize:], f.Key)
	copy(buf[FrameHeaderSize+int(f.KeySize):], f.Value)
	return buf
}

// DecodeHeader parses the fixed header. The returned frame has no key or
// value yet; BodySize tells the caller how many bytes follow.
func (c *FrameCodec) DecodeHeader(header []byte) (*Frame, error) {
	if len(header) < FrameHeaderSize {
		return nil, malformed("decode frame", "header too short: %d bytes", len(header))
	}
	return &Frame{
		CRC32:     binary.LittleEndian.Uint32(header[0:4]),
		KeySize:   binary.LittleEndian.Uint32(header[4:8]),
		ValueSize: binary.LittleEndian.Uint32(header[8:12]),
		Timestamp: binary.LittleEndian.Uint64(header[12:20]),
	}, nil
}

// Decode parses a complete frame. Key and Value alias data.
func (c *FrameCodec) Decode(data []byte) (*Frame, error) {
	f, err := c.DecodeHeader(data)
	if err != nil {
		return nil, err
	}
	end := uint64(FrameHeaderSize) + uint64(f.KeySize) + uint64(f.ValueSize)
	if uint64(len(data)) < end {
		return nil, malformed("decode frame", "data too short for key/value sizes: %d < %d", len(data), end)
	}
	keyEnd := FrameHeaderSize + int(f.KeySize)
	f.Key = data[FrameHeaderSize:keyEnd]
	f.Value = data[keyEnd:int(end)]
	return f, nil
}

// BodySize is the number of bytes after the header.
func (f *Frame) BodySize() int {
	return int(f.KeySize) + int(f.ValueSize)
}

// Size returns the encoded size of the frame.
func (f *Frame) Size() int {
	return FrameHeaderSize + len(f.Key) + len(f.Value)
}

// IsTombstone reports whether the frame marks a deletion.
func (f *Frame) IsTombstone() bool {
	return f.ValueSize == 0
}

// Validate checks the stored checksum against the frame contents.
func (f *Frame) Validate() error {
	if sum := f.checksum(); f.CRC32 != sum {
		return malformed("validate frame", "crc32 mismatch: %08x != %08x", f.CRC32, sum)
	}
	return nil
}

func (f *Frame) checksum() uint32 {
	var header [FrameHeaderSize - 4]byte
	binary.LittleEndian.PutUint32(header[0:], f.KeySize)
	binary.LittleEndian.PutUint32(header[4:], f.ValueSize)
	binary.LittleEndian.PutUint64(header[8:], f.Timestamp)

	crc := crc32.NewIEEE()
	crc.Write(header[:])
	crc.Write(f.Key)
	crc.Write(f.Value)
	return crc.Sum32()
}
