package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cockroachdb/pebble"
	"github.com/ssargent/folio/pkg/store"
)

// PebbleBackend stores paragraph snapshots in a pebble database. It is the
// alternative to the log-structured store for larger notebooks.
type PebbleBackend struct {
	db     *pebble.DB
	logger *slog.Logger
}

var _ store.Backend = (*PebbleBackend)(nil)

// NewPebbleBackend opens (or creates) a pebble database in dir.
func NewPebbleBackend(dir string, logger *slog.Logger) (*PebbleBackend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "pebble")

	db, err := openPebble(dir, logger)
	if err != nil {
		return nil, err
	}
	return &PebbleBackend{db: db, logger: logger}, nil
}

func openPebble(dir string, logger *slog.Logger) (*pebble.DB, error) {
	db, err := pebble.Open(dir, &pebble.Options{Logger: pebbleLogger{logger}})
	if err != nil {
		return nil, fmt.Errorf("open pebble at %s: %w", dir, err)
	}
	return db, nil
}

func (b *PebbleBackend) Put(key, value []byte) error {
	if len(key) == 0 {
		return store.ErrInvalidKey
	}
	if len(value) == 0 {
		return store.ErrEmptyValue
	}
	return b.db.Set(key, value, pebble.Sync)
}

func (b *PebbleBackend) Get(key []byte) ([]byte, error) {
	data, closer, err := b.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, store.ErrKeyNotFound
		}
		return nil, err
	}
	defer closer.Close()

	// data is only valid until closer is closed
	return bytes.Clone(data), nil
}

// Delete removes key. Like KVStore, it reports ErrKeyNotFound for an absent
// key.
func (b *PebbleBackend) Delete(key []byte) error {
	if len(key) == 0 {
		return store.ErrInvalidKey
	}
	_, closer, err := b.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return store.ErrKeyNotFound
		}
		return err
	}
	closer.Close()

	return b.db.Delete(key, pebble.Sync)
}

func (b *PebbleBackend) ListKeys(prefix []byte) ([]string, error) {
	iter, err := b.db.NewIter(prefixIterOptions(prefix))
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var keys []string
	for iter.First(); iter.Valid(); iter.Next() {
		keys = append(keys, string(iter.Key()))
	}
	return keys, iter.Error()
}

// ScanPrefix streams pairs in key order from a consistent snapshot.
func (b *PebbleBackend) ScanPrefix(ctx context.Context, prefix []byte) (<-chan store.KeyValuePair, error) {
	iter, err := b.db.NewIter(prefixIterOptions(prefix))
	if err != nil {
		return nil, err
	}

	ch := make(chan store.KeyValuePair, 100)
	go func() {
		defer close(ch)
		defer iter.Close()

		for iter.First(); iter.Valid(); iter.Next() {
			kv := store.KeyValuePair{
				Key:   bytes.Clone(iter.Key()),
				Value: bytes.Clone(iter.Value()),
			}
			select {
			case ch <- kv:
			case <-ctx.Done():
				return
			}
		}
		if err := iter.Error(); err != nil {
			b.logger.Warn("prefix scan stopped", "prefix", string(prefix), "error", err)
		}
	}()
	return ch, nil
}

// Stats counts live keys. Pebble compacts on its own, so tombstones and dead
// bytes are not tracked.
func (b *PebbleBackend) Stats() *store.StoreStats {
	stats := &store.StoreStats{
		DataSize: int64(b.db.Metrics().DiskSpaceUsage()),
	}

	iter, err := b.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return stats
	}
	defer iter.Close()
	for iter.First(); iter.Valid(); iter.Next() {
		stats.Keys++
	}
	return stats
}

func (b *PebbleBackend) Close() error {
	return b.db.Close()
}

func prefixIterOptions(prefix []byte) *pebble.IterOptions {
	if len(prefix) == 0 {
		return &pebble.IterOptions{}
	}
	return &pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	}
}

// prefixUpperBound returns the smallest key greater than every key with the
// prefix, or nil when no such key exists.
func prefixUpperBound(prefix []byte) []byte {
	end := bytes.Clone(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

// pebbleLogger routes pebble's internal logging through slog.
type pebbleLogger struct {
	logger *slog.Logger
}

func (l pebbleLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l pebbleLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l pebbleLogger) Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.logger.Error(msg)
	panic(msg)
}
