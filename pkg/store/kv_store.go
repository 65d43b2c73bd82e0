package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ssargent/folio/pkg/codec"
)

const (
	activeFileName  = "active.data"
	compactFileName = "active.data.compact"
)

// KVStore is an append-only log of frames with an in-memory hash index.
// All methods are safe for concurrent use.
type KVStore struct {
	config   KVStoreConfig
	logger   *slog.Logger
	writer   *LogWriter
	reader   *LogReader
	index    *HashIndex
	dataFile string
	mutex    sync.Mutex
	isOpen   bool
}

var _ Backend = (*KVStore)(nil)

// NewKVStore creates a new key-value store instance
func NewKVStore(config KVStoreConfig) (*KVStore, error) {
	if err := os.MkdirAll(config.DataDir, 0750); err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &KVStore{
		config:   config,
		logger:   logger.With("component", "store"),
		dataFile: filepath.Join(config.DataDir, activeFileName),
		index:    NewHashIndex(HashIndexConfig{}),
	}, nil
}

// Open validates the log, truncating a damaged tail left by a crash, and
// rebuilds the index from what remains.
func (kv *KVStore) Open() (*RecoveryResult, error) {
	kv.mutex.Lock()
	defer kv.mutex.Unlock()

	if kv.isOpen {
		return &RecoveryResult{}, nil
	}

	// A compaction interrupted before its rename leaves a partial copy.
	_ = os.Remove(filepath.Join(kv.config.DataDir, compactFileName))

	recoveryResult, err := kv.validateLogFile(kv.dataFile)
	if err != nil {
		return nil, err
	}
	if recoveryResult.RecordsTruncated > 0 {
		kv.logger.Warn("truncated damaged log tail",
			"file", kv.dataFile,
			"size_before", recoveryResult.FileSizeBefore,
			"size_after", recoveryResult.FileSizeAfter)
	}

	if err := kv.openFiles(); err != nil {
		return nil, err
	}

	kv.isOpen = true
	kv.logger.Info("store opened",
		"dir", kv.config.DataDir,
		"keys", kv.index.Size(),
		"records", recoveryResult.RecordsValidated,
		"took", recoveryResult.RecoveryTime)
	return recoveryResult, nil
}

func (kv *KVStore) openFiles() error {
	writer, err := NewLogWriter(LogWriterConfig{
		FilePath:      kv.dataFile,
		FsyncInterval: kv.config.FsyncInterval,
		BufferSize:    64 * 1024,
	})
	if err != nil {
		return err
	}

	reader, err := NewLogReader(LogReaderConfig{FilePath: kv.dataFile})
	if err != nil {
		_ = writer.Close()
		return err
	}

	if err := kv.index.BuildFromLog(reader); err != nil {
		_ = reader.Close()
		_ = writer.Close()
		return err
	}

	kv.writer = writer
	kv.reader = reader
	return nil
}

// Get retrieves a value for a key
func (kv *KVStore) Get(key []byte) ([]byte, error) {
	kv.mutex.Lock()
	defer kv.mutex.Unlock()
	return kv.getInternal(key)
}

func (kv *KVStore) getInternal(key []byte) ([]byte, error) {
	if !kv.isOpen {
		return nil, ErrStoreClosed
	}

	entry, exists := kv.index.Get(key)
	if !exists {
		return nil, ErrKeyNotFound
	}

	frame, err := kv.reader.ReadAt(entry.Offset)
	if err != nil {
		return nil, err
	}
	if frame.IsTombstone() {
		return nil, ErrKeyNotFound
	}

	return frame.Value, nil
}

// Put stores a key-value pair. An empty value is reserved for tombstones.
func (kv *KVStore) Put(key, value []byte) error {
	kv.mutex.Lock()
	defer kv.mutex.Unlock()

	if !kv.isOpen {
		return ErrStoreClosed
	}
	if len(key) == 0 {
		return ErrInvalidKey
	}
	if len(value) == 0 {
		return ErrEmptyValue
	}

	frame, err := codec.NewFrame(key, value)
	if err != nil {
		return err
	}
	offset, err := kv.writer.PutFrame(frame)
	if err != nil {
		return err
	}

	kv.index.Put(key, &IndexEntry{
		FileID:    0,
		Offset:    offset,
		Size:      uint32(frame.Size()),
		Timestamp: frame.Timestamp,
	})
	return nil
}

// Delete writes a tombstone for key. It returns ErrKeyNotFound when the key
// is absent, in which case nothing is written.
func (kv *KVStore) Delete(key []byte) error {
	kv.mutex.Lock()
	defer kv.mutex.Unlock()

	if !kv.isOpen {
		return ErrStoreClosed
	}
	if len(key) == 0 {
		return ErrInvalidKey
	}
	if _, exists := kv.index.Get(key); !exists {
		return ErrKeyNotFound
	}

	frame, err := codec.NewFrame(key, nil)
	if err != nil {
		return err
	}
	if _, err := kv.writer.PutFrame(frame); err != nil {
		return err
	}

	kv.index.Delete(key, uint32(frame.Size()))
	return nil
}

// ListKeys returns all keys that match the given prefix, sorted
func (kv *KVStore) ListKeys(prefix []byte) ([]string, error) {
	kv.mutex.Lock()
	defer kv.mutex.Unlock()

	if !kv.isOpen {
		return nil, ErrStoreClosed
	}
	return kv.index.KeysWithPrefix(string(prefix)), nil
}

// ScanPrefix streams key-value pairs whose key has the prefix, in key
// order. Keys deleted while the scan runs are skipped. The channel is closed
// when the scan ends or ctx is done.
func (kv *KVStore) ScanPrefix(ctx context.Context, prefix []byte) (<-chan KeyValuePair, error) {
	kv.mutex.Lock()
	if !kv.isOpen {
		kv.mutex.Unlock()
		return nil, ErrStoreClosed
	}
	kv.mutex.Unlock()

	ch := make(chan KeyValuePair, 100)

	go func() {
		defer close(ch)

		for keyStr := range kv.index.ScanPrefix(ctx, string(prefix)) {
			key := []byte(keyStr)
			value, err := kv.Get(key)
			if errors.Is(err, ErrStoreClosed) {
				return
			}
			if err != nil {
				if !errors.Is(err, ErrKeyNotFound) {
					kv.logger.Warn("skipping unreadable record", "key", keyStr, "error", err)
				}
				continue
			}

			select {
			case ch <- KeyValuePair{Key: key, Value: value}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, nil
}

// Sync flushes and fsyncs the active log.
func (kv *KVStore) Sync() error {
	kv.mutex.Lock()
	defer kv.mutex.Unlock()

	if !kv.isOpen {
		return ErrStoreClosed
	}
	return kv.writer.Sync()
}

// Close shuts down the store
func (kv *KVStore) Close() error {
	kv.mutex.Lock()
	defer kv.mutex.Unlock()

	if !kv.isOpen {
		return nil
	}
	kv.isOpen = false

	return kv.closeFiles()
}

func (kv *KVStore) closeFiles() error {
	werr := kv.writer.Close()
	rerr := kv.reader.Close()
	return errors.Join(werr, rerr)
}

// CompactionResult reports the effect of Compact.
type CompactionResult struct {
	Keys       int           `json:"keys"`
	SizeBefore int64         `json:"size_before"`
	SizeAfter  int64         `json:"size_after"`
	Took       time.Duration `json:"took"`
}

// Compact rewrites the log keeping only the live frame of every key, which
// drops tombstones and superseded values. Frames keep their timestamps.
func (kv *KVStore) Compact() (*CompactionResult, error) {
	kv.mutex.Lock()
	defer kv.mutex.Unlock()

	if !kv.isOpen {
		return nil, ErrStoreClosed
	}

	start := time.Now()
	sizeBefore := kv.writer.Size()
	tmpFile := filepath.Join(kv.config.DataDir, compactFileName)
	_ = os.Remove(tmpFile)

	if err := kv.writeCompacted(tmpFile); err != nil {
		_ = os.Remove(tmpFile)
		return nil, err
	}

	if err := kv.closeFiles(); err != nil {
		_ = os.Remove(tmpFile)
		kv.isOpen = false
		return nil, err
	}
	if err := os.Rename(tmpFile, kv.dataFile); err != nil {
		_ = os.Remove(tmpFile)
		if reopenErr := kv.openFiles(); reopenErr != nil {
			kv.isOpen = false
			return nil, errors.Join(err, reopenErr)
		}
		return nil, err
	}
	if err := kv.openFiles(); err != nil {
		kv.isOpen = false
		return nil, err
	}

	res := &CompactionResult{
		Keys:       kv.index.Size(),
		SizeBefore: sizeBefore,
		SizeAfter:  kv.writer.Size(),
		Took:       time.Since(start),
	}
	kv.logger.Info("store compacted",
		"keys", res.Keys,
		"size_before", res.SizeBefore,
		"size_after", res.SizeAfter,
		"took", res.Took)
	return res, nil
}

func (kv *KVStore) writeCompacted(path string) error {
	w, err := NewLogWriter(LogWriterConfig{
		FilePath:      path,
		FsyncInterval: time.Minute, // Close fsyncs once at the end
		BufferSize:    256 * 1024,
	})
	if err != nil {
		return err
	}

	for _, key := range kv.index.Keys() {
		entry, ok := kv.index.Get([]byte(key))
		if !ok {
			continue
		}
		frame, err := kv.reader.ReadAt(entry.Offset)
		if err != nil {
			_ = w.Close()
			return err
		}
		if _, err := w.PutFrame(frame); err != nil {
			_ = w.Close()
			return err
		}
	}
	return w.Close()
}

// validateLogFile walks the log and truncates it at the first frame that
// cannot be read back intact.
func (kv *KVStore) validateLogFile(filePath string) (*RecoveryResult, error) {
	startTime := time.Now()

	fileInfo, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &RecoveryResult{
				IndexRebuilt: true,
				RecoveryTime: time.Since(startTime),
			}, nil
		}
		return nil, err
	}

	fileSizeBefore := fileInfo.Size()

	reader, err := NewLogReader(LogReaderConfig{FilePath: filePath})
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	var recordsValidated int64
	var lastValidOffset int64
	var corruptionFound bool

	for {
		_, err := reader.ReadNext()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if !errors.Is(err, ErrCorruption) {
				return nil, err
			}
			corruptionFound = true
			break
		}

		recordsValidated++
		lastValidOffset = reader.Offset()
	}

	fileSizeAfter := fileSizeBefore
	var recordsTruncated int64

	if corruptionFound {
		if err := os.Truncate(filePath, lastValidOffset); err != nil {
			return nil, err
		}
		fileSizeAfter = lastValidOffset
		// Everything after the first bad frame is unreachable; count it as
		// one damaged record.
		recordsTruncated = 1
	}

	return &RecoveryResult{
		RecordsValidated: recordsValidated,
		RecordsTruncated: recordsTruncated,
		FileSizeBefore:   fileSizeBefore,
		FileSizeAfter:    fileSizeAfter,
		IndexRebuilt:     true,
		RecoveryTime:     time.Since(startTime),
	}, nil
}

// Stats returns store statistics
func (kv *KVStore) Stats() *StoreStats {
	kv.mutex.Lock()
	defer kv.mutex.Unlock()

	if !kv.isOpen {
		return &StoreStats{}
	}

	idx := kv.index.Stats()
	return &StoreStats{
		Keys:       idx.TotalKeys,
		Tombstones: idx.Tombstones,
		DataSize:   kv.writer.Size(),
		DeadBytes:  idx.DeadBytes,
	}
}
