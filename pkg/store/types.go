package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/ssargent/folio/pkg/codec"
)

// IndexEntry represents the location of a key-value pair in the log
type IndexEntry struct {
	FileID    uint32 // ID of the data file
	Offset    int64  // Byte offset within the file
	Size      uint32 // Size of the frame in bytes
	Timestamp uint64 // Frame timestamp
}

// LogWriterConfig holds configuration for the log writer
type LogWriterConfig struct {
	FilePath      string        // Path to the active data file
	FsyncInterval time.Duration // How often to fsync (0 = every write)
	BufferSize    int           // Write buffer size
}

// LogReaderConfig holds configuration for the log reader
type LogReaderConfig struct {
	FilePath    string // Path to the data file
	StartOffset int64  // Offset to start reading from
}

// HashIndexConfig holds configuration for the hash index
type HashIndexConfig struct {
	// ExpectedKeys presizes the index map.
	ExpectedKeys int
}

// KVStoreConfig holds configuration for the key-value store
type KVStoreConfig struct {
	DataDir       string        // Directory for data files
	FsyncInterval time.Duration // Fsync interval for durability
	Logger        *slog.Logger  // Defaults to slog.Default()
}

// FrameIterator provides streaming access to log frames
type FrameIterator interface {
	Next() bool
	Frame() *codec.Frame
	Err() error
	Close() error
}

// KeyValuePair represents a key-value pair for scanning operations
type KeyValuePair struct {
	Key   []byte
	Value []byte
}

// Backend is the key-value contract the paragraph repository is written
// against. KVStore and the pebble backend in pkg/storage both satisfy it.
type Backend interface {
	Put(key, value []byte) error
	Get(key []byte) ([]byte, error)
	Delete(key []byte) error
	ListKeys(prefix []byte) ([]string, error)
	ScanPrefix(ctx context.Context, prefix []byte) (<-chan KeyValuePair, error)
	Stats() *StoreStats
	Close() error
}

// StoreStats holds statistics about the store
type StoreStats struct {
	Keys       int   `json:"keys"`
	Tombstones int   `json:"tombstones"`
	DataSize   int64 `json:"data_size"`
	DeadBytes  int64 `json:"dead_bytes"`
}

// RecoveryResult describes what Open found while validating the log.
type RecoveryResult struct {
	RecordsValidated int64         `json:"records_validated"`
	RecordsTruncated int64         `json:"records_truncated"`
	FileSizeBefore   int64         `json:"file_size_before"`
	FileSizeAfter    int64         `json:"file_size_after"`
	IndexRebuilt     bool          `json:"index_rebuilt"`
	RecoveryTime     time.Duration `json:"recovery_time"`
}

// Errors
var (
	ErrKeyNotFound = &KVError{"key not found"}
	ErrInvalidKey  = &KVError{"invalid key"}
	ErrCorruption  = &KVError{"data corruption detected"}
	ErrStoreClosed = &KVError{"store is not open"}
	ErrEmptyValue  = &KVError{"empty values are reserved for tombstones"}
)

// KVError represents a key-value store error
type KVError struct {
	Message string
}

func (e *KVError) Error() string {
	return e.Message
}
