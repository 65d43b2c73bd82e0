package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/ssargent/folio/pkg/codec"
)

// HashIndex provides O(1) average-case lookups for key locations
type HashIndex struct {
	entries    map[string]*IndexEntry
	tombstones int   // tombstone frames still in the log
	deadBytes  int64 // bytes of frames superseded by later ones
	mutex      sync.RWMutex
}

// NewHashIndex creates a new hash index
func NewHashIndex(config HashIndexConfig) *HashIndex {
	return &HashIndex{
		entries: make(map[string]*IndexEntry, config.ExpectedKeys),
	}
}

// Put adds or updates an index entry for a key
func (idx *HashIndex) Put(key []byte, entry *IndexEntry) {
	idx.mutex.Lock()
	defer idx.mutex.Unlock()
	idx.put(string(key), entry)
}

func (idx *HashIndex) put(key string, entry *IndexEntry) {
	if old, ok := idx.entries[key]; ok {
		idx.deadBytes += int64(old.Size)
	}
	idx.entries[key] = entry
}

// Get retrieves the index entry for a key
func (idx *HashIndex) Get(key []byte) (*IndexEntry, bool) {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	entry, exists := idx.entries[string(key)]
	return entry, exists
}

// Delete removes a key from the index. tombstoneSize is the size of the
// tombstone frame written for it, or 0 when none was written.
func (idx *HashIndex) Delete(key []byte, tombstoneSize uint32) {
	idx.mutex.Lock()
	defer idx.mutex.Unlock()
	idx.remove(string(key), tombstoneSize)
}

func (idx *HashIndex) remove(key string, tombstoneSize uint32) {
	if old, ok := idx.entries[key]; ok {
		idx.deadBytes += int64(old.Size)
		delete(idx.entries, key)
	}
	if tombstoneSize > 0 {
		idx.tombstones++
		idx.deadBytes += int64(tombstoneSize)
	}
}

// Size returns the number of keys in the index
func (idx *HashIndex) Size() int {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	return len(idx.entries)
}

// Clear removes all entries from the index
func (idx *HashIndex) Clear() {
	idx.mutex.Lock()
	defer idx.mutex.Unlock()

	idx.entries = make(map[string]*IndexEntry)
	idx.tombstones = 0
	idx.deadBytes = 0
}

// Keys returns all keys in the index in sorted order
func (idx *HashIndex) Keys() []string {
	return idx.KeysWithPrefix("")
}

// KeysWithPrefix returns all keys that start with the given prefix, sorted
func (idx *HashIndex) KeysWithPrefix(prefix string) []string {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	var keys []string
	for key := range idx.entries {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// ScanPrefix streams keys that match the prefix. The channel is closed when
// all keys are sent or ctx is done.
func (idx *HashIndex) ScanPrefix(ctx context.Context, prefix string) <-chan string {
	ch := make(chan string, 100)
	keys := idx.KeysWithPrefix(prefix)

	go func() {
		defer close(ch)
		for _, key := range keys {
			select {
			case ch <- key:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch
}

// BuildFromLog scans a log file and populates the index
func (idx *HashIndex) BuildFromLog(reader *LogReader) error {
	idx.mutex.Lock()
	defer idx.mutex.Unlock()

	idx.entries = make(map[string]*IndexEntry)
	idx.tombstones = 0
	idx.deadBytes = 0

	if err := reader.SeekTo(0); err != nil {
		return err
	}

	iterator := reader.Iterator()
	defer iterator.Close()

	for iterator.Next() {
		frame := iterator.Frame()
		idx.apply(frame, reader.Offset()-int64(frame.Size()))
	}

	return iterator.Err()
}

// apply folds one log frame into the index. Tombstones have an empty value.
func (idx *HashIndex) apply(frame *codec.Frame, offset int64) {
	key := string(frame.Key)
	if frame.IsTombstone() {
		idx.remove(key, uint32(frame.Size()))
		return
	}
	idx.put(key, &IndexEntry{
		FileID:    0,
		Offset:    offset,
		Size:      uint32(frame.Size()),
		Timestamp: frame.Timestamp,
	})
}

// Stats returns index statistics
func (idx *HashIndex) Stats() *IndexStats {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	return &IndexStats{
		TotalKeys:  len(idx.entries),
		Tombstones: idx.tombstones,
		DeadBytes:  idx.deadBytes,
	}
}

// IndexStats holds statistics about the index
type IndexStats struct {
	TotalKeys  int
	Tombstones int
	DeadBytes  int64
}
