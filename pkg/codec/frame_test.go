package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
	"time"
)

func TestFrameCodec_EncodeDecodeRoundTrip(t *testing.T) {
	codec := NewFrameCodec()

	testCases := []struct {
		name  string
		key   []byte
		value []byte
	}{
		{
			name:  "paragraph snapshot",
			key:   []byte("paragraph:2A94M5J1Z:paragraph_1591581934421_1"),
			value: []byte{0x09, 0x02, 'n', '1', 0x04, 't', 'e', 'x', 't'},
		},
		{
			name:  "empty key",
			key:   []byte(""),
			value: []byte("some value"),
		},
		{
			name:  "tombstone",
			key:   []byte("paragraph:n1:p1"),
			value: []byte(""),
		},
		{
			name:  "both empty",
			key:   []byte(""),
			value: []byte(""),
		},
		{
			name:  "large value",
			key:   []byte("small key"),
			value: bytes.Repeat([]byte("v"), 10240),
		},
		{
			name:  "unicode data",
			key:   []byte("🔑 unicode key"),
			value: []byte("🎯 unicode value with émojis"),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			encoded, err := codec.Encode(tc.key, tc.value)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}

			if len(encoded) != FrameHeaderSize+len(tc.key)+len(tc.value) {
				t.Errorf("Encoded size: got %d, want %d", len(encoded), FrameHeaderSize+len(tc.key)+len(tc.value))
			}

			frame, err := codec.Decode(encoded)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}

			if err := frame.Validate(); err != nil {
				t.Fatalf("Frame validation failed: %v", err)
			}

			if !bytes.Equal(frame.Key, tc.key) {
				t.Errorf("Key mismatch: got %v, want %v", frame.Key, tc.key)
			}
			if !bytes.Equal(frame.Value, tc.value) {
				t.Errorf("Value mismatch: got %v, want %v", frame.Value, tc.value)
			}
			if frame.IsTombstone() != (len(tc.value) == 0) {
				t.Errorf("IsTombstone: got %v for value length %d", frame.IsTombstone(), len(tc.value))
			}

			now := time.Now().UnixNano()
			if frame.Timestamp > uint64(now) || frame.Timestamp < uint64(now-int64(time.Minute)) {
				t.Errorf("Timestamp seems unreasonable: %d", frame.Timestamp)
			}
		})
	}
}

func TestFrameCodec_CRCValidation(t *testing.T) {
	codec := NewFrameCodec()
	key := []byte("test key")
	value := []byte("test value")

	corruptAt := map[string]int{
		"checksum":  0,
		"key size":  4,
		"timestamp": 12,
		"key data":  FrameHeaderSize,
		"value":     FrameHeaderSize + len(key),
	}

	for name, pos := range corruptAt {
		t.Run(name, func(t *testing.T) {
			encoded, err := codec.Encode(key, value)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			encoded[pos] ^= 0xFF

			frame, err := codec.Decode(encoded)
			if err != nil {
				// A corrupted size field may make the frame undecodable.
				if !errors.Is(err, ErrMalformedRecord) {
					t.Fatalf("expected malformed record, got %v", err)
				}
				return
			}

			err = frame.Validate()
			if err == nil {
				t.Fatal("Expected validation to fail for corrupted frame, but it passed")
			}
			if !errors.Is(err, ErrMalformedRecord) {
				t.Errorf("expected malformed record, got %v", err)
			}
		})
	}
}

func TestFrameCodec_MalformedData(t *testing.T) {
	codec := NewFrameCodec()

	testCases := []struct {
		name string
		data []byte
	}{
		{
			name: "empty data",
			data: []byte{},
		},
		{
			name: "too short for header",
			data: []byte{0x01, 0x02, 0x03},
		},
		{
			name: "insufficient data for declared key size",
			data: func() []byte {
				buf := make([]byte, FrameHeaderSize)
				binary.LittleEndian.PutUint32(buf[4:8], 100)
				return buf
			}(),
		},
		{
			name: "insufficient data for declared value size",
			data: func() []byte {
				buf := make([]byte, FrameHeaderSize+5)
				binary.LittleEndian.PutUint32(buf[4:8], 5)
				binary.LittleEndian.PutUint32(buf[8:12], 100)
				return buf
			}(),
		},
		{
			name: "sizes overflowing uint32 sum",
			data: func() []byte {
				buf := make([]byte, FrameHeaderSize)
				binary.LittleEndian.PutUint32(buf[4:8], 0xFFFFFFFF)
				binary.LittleEndian.PutUint32(buf[8:12], 0xFFFFFFFF)
				return buf
			}(),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := codec.Decode(tc.data)
			if err == nil {
				t.Fatalf("Expected decode to fail for malformed data (%s)", tc.name)
			}
			if !errors.Is(err, ErrMalformedRecord) {
				t.Errorf("expected malformed record, got %v", err)
			}
		})
	}
}

func TestFrameCodec_DecodeHeader(t *testing.T) {
	codec := NewFrameCodec()
	encoded, err := codec.Encode([]byte("key"), []byte("value"))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	header, err := codec.DecodeHeader(encoded[:FrameHeaderSize])
	if err != nil {
		t.Fatalf("DecodeHeader failed: %v", err)
	}
	if header.KeySize != 3 || header.ValueSize != 5 {
		t.Errorf("sizes: got %d/%d, want 3/5", header.KeySize, header.ValueSize)
	}
	if header.BodySize() != 8 {
		t.Errorf("BodySize: got %d, want 8", header.BodySize())
	}
}

func TestFrame_ChecksumDeterministic(t *testing.T) {
	frame, err := NewFrame([]byte("test key"), []byte("test value"))
	if err != nil {
		t.Fatalf("NewFrame failed: %v", err)
	}

	if frame.CRC32 != 0 {
		t.Errorf("Expected CRC32 to be zero before encoding, got %d", frame.CRC32)
	}

	crc := frame.checksum()
	if crc == 0 {
		t.Error("Expected non-zero CRC32 for non-empty frame")
	}
	if crc2 := frame.checksum(); crc != crc2 {
		t.Errorf("CRC32 calculation is not deterministic: %d vs %d", crc, crc2)
	}

	other, err := NewFrame([]byte("different key"), []byte("test value"))
	if err != nil {
		t.Fatalf("NewFrame failed: %v", err)
	}
	other.Timestamp = frame.Timestamp
	if other.checksum() == crc {
		t.Error("Different frames produced same CRC32 (highly unlikely)")
	}
}
