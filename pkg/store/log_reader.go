package store

import (
	"bufio"
	"errors"
	"io"
	"os"

	"github.com/ssargent/folio/pkg/codec"
)

// LogReader provides sequential access to frames in a log file. ReadAt may
// be called concurrently with itself; ReadNext, SeekTo and Iterator may not.
type LogReader struct {
	file   *os.File
	reader *bufio.Reader
	codec  *codec.FrameCodec
	offset int64
	size   int64 // file size last observed
	config LogReaderConfig
}

// NewLogReader creates a new log reader for the specified file
func NewLogReader(config LogReaderConfig) (*LogReader, error) {
	file, err := os.Open(config.FilePath)
	if err != nil {
		return nil, err
	}

	r := &LogReader{
		file:   file,
		codec:  codec.NewFrameCodec(),
		config: config,
	}
	if err := r.SeekTo(config.StartOffset); err != nil {
		_ = file.Close()
		return nil, err
	}
	return r, nil
}

// ReadNext reads the frame at the current offset. It returns io.EOF at a
// clean end of file and ErrCorruption for a torn or damaged frame.
func (r *LogReader) ReadNext() (*codec.Frame, error) {
	header := make([]byte, codec.FrameHeaderSize)
	if _, err := io.ReadFull(r.reader, header); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrCorruption
		}
		return nil, err
	}

	frame, err := r.codec.DecodeHeader(header)
	if err != nil {
		return nil, ErrCorruption
	}
	if !r.fits(r.offset+codec.FrameHeaderSize, frame.BodySize()) {
		return nil, ErrCorruption
	}

	body := make([]byte, frame.BodySize())
	if _, err := io.ReadFull(r.reader, body); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrCorruption
		}
		return nil, err
	}
	frame.Key = body[:frame.KeySize]
	frame.Value = body[frame.KeySize:]

	if err := frame.Validate(); err != nil {
		return nil, ErrCorruption
	}

	r.offset += int64(frame.Size())
	return frame, nil
}

// ReadAt reads the frame starting at offset without moving the sequential
// read position.
func (r *LogReader) ReadAt(offset int64) (*codec.Frame, error) {
	header := make([]byte, codec.FrameHeaderSize)
	if _, err := r.file.ReadAt(header, offset); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrCorruption
		}
		return nil, err
	}

	frame, err := r.codec.DecodeHeader(header)
	if err != nil {
		return nil, ErrCorruption
	}
	if !r.fits(offset+codec.FrameHeaderSize, frame.BodySize()) {
		return nil, ErrCorruption
	}

	body := make([]byte, frame.BodySize())
	if len(body) > 0 {
		if _, err := r.file.ReadAt(body, offset+codec.FrameHeaderSize); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, ErrCorruption
			}
			return nil, err
		}
	}
	frame.Key = body[:frame.KeySize]
	frame.Value = body[frame.KeySize:]

	if err := frame.Validate(); err != nil {
		return nil, ErrCorruption
	}
	return frame, nil
}

// fits reports whether n bytes starting at start lie within the file. A
// damaged size field must not turn into a huge allocation.
func (r *LogReader) fits(start int64, n int) bool {
	if start+int64(n) <= r.size {
		return true
	}
	if info, err := r.file.Stat(); err == nil {
		r.size = info.Size()
	}
	return start+int64(n) <= r.size
}

// SeekTo moves the reader to an absolute frame offset.
func (r *LogReader) SeekTo(offset int64) error {
	if _, err := r.file.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	info, err := r.file.Stat()
	if err != nil {
		return err
	}

	r.size = info.Size()
	r.reader = bufio.NewReader(r.file)
	r.offset = offset
	return nil
}

// Offset returns the current read offset
func (r *LogReader) Offset() int64 {
	return r.offset
}

// Iterator returns a streaming iterator for frames
func (r *LogReader) Iterator() FrameIterator {
	return &logFrameIterator{reader: r}
}

// Close closes the log reader
func (r *LogReader) Close() error {
	return r.file.Close()
}

type logFrameIterator struct {
	reader *LogReader
	frame  *codec.Frame
	err    error
}

func (it *logFrameIterator) Next() bool {
	it.frame, it.err = it.reader.ReadNext()
	return it.err == nil
}

func (it *logFrameIterator) Frame() *codec.Frame {
	return it.frame
}

// Err returns the error that stopped iteration, or nil at a clean end of
// file.
func (it *logFrameIterator) Err() error {
	if errors.Is(it.err, io.EOF) {
		return nil
	}
	return it.err
}

func (it *logFrameIterator) Close() error {
	// the reader is owned by the caller
	return nil
}
