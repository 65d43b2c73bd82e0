package store

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ssargent/folio/pkg/codec"
)

// LogWriter handles append-only writes to the active data file
type LogWriter struct {
	file       *os.File
	writer     *bufio.Writer
	codec      *codec.FrameCodec
	fsyncTimer *time.Timer
	config     LogWriterConfig
	mutex      sync.Mutex
	offset     int64 // Current write offset
	dirty      bool  // written but not yet fsynced
}

// NewLogWriter creates a new log writer with the given configuration
func NewLogWriter(config LogWriterConfig) (*LogWriter, error) {
	if err := os.MkdirAll(filepath.Dir(config.FilePath), 0750); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(config.FilePath, os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}

	offset, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		_ = file.Close()
		return nil, err
	}

	if config.BufferSize <= 0 {
		config.BufferSize = 64 * 1024
	}

	writer := &LogWriter{
		file:   file,
		writer: bufio.NewWriterSize(file, config.BufferSize),
		codec:  codec.NewFrameCodec(),
		config: config,
		offset: offset,
	}

	if config.FsyncInterval > 0 {
		writer.fsyncTimer = time.AfterFunc(config.FsyncInterval, func() {
			writer.mutex.Lock()
			defer writer.mutex.Unlock()
			if writer.dirty {
				_ = writer.sync()
			}
		})
	}

	return writer, nil
}

// Put appends a frame for key/value and returns the offset it starts at.
// The frame is handed to the OS before Put returns so readers see it
// immediately; fsync follows the configured interval.
func (w *LogWriter) Put(key, value []byte) (int64, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	frame, err := codec.NewFrame(key, value)
	if err != nil {
		return 0, err
	}
	return w.append(frame)
}

// PutFrame appends an already built frame, keeping its timestamp.
func (w *LogWriter) PutFrame(frame *codec.Frame) (int64, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.append(frame)
}

func (w *LogWriter) append(frame *codec.Frame) (int64, error) {
	data := w.codec.EncodeFrame(frame)

	n, err := w.writer.Write(data)
	if err != nil {
		return 0, err
	}
	if err := w.writer.Flush(); err != nil {
		return 0, err
	}

	recordOffset := w.offset
	w.offset += int64(n)
	w.dirty = true

	if w.config.FsyncInterval == 0 {
		if err := w.sync(); err != nil {
			return 0, err
		}
	} else if w.fsyncTimer != nil {
		w.fsyncTimer.Reset(w.config.FsyncInterval)
	}

	return recordOffset, nil
}

// Sync forces a fsync to disk
func (w *LogWriter) Sync() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.sync()
}

func (w *LogWriter) sync() error {
	if err := w.writer.Flush(); err != nil {
		return err
	}
	if err := w.file.Sync(); err != nil {
		return err
	}
	w.dirty = false
	return nil
}

// Close closes the log writer and ensures all data is synced
func (w *LogWriter) Close() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.fsyncTimer != nil {
		w.fsyncTimer.Stop()
	}

	if err := w.sync(); err != nil {
		_ = w.file.Close()
		return err
	}

	return w.file.Close()
}

// Size returns the current size of the log file
func (w *LogWriter) Size() int64 {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.offset
}

// Path returns the file path
func (w *LogWriter) Path() string {
	return w.config.FilePath
}
