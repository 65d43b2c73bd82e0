package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// populate writes n paragraphs, closes the store and returns the log path.
func populate(t *testing.T, dir string, n int) string {
	t.Helper()
	store := openTestStore(t, dir)
	for i := 0; i < n; i++ {
		require.NoError(t, store.Put(
			[]byte(fmt.Sprintf("paragraph:n1:p%d", i)),
			[]byte(fmt.Sprintf("snapshot-%d", i)),
		))
	}
	require.NoError(t, store.Close())
	return filepath.Join(dir, activeFileName)
}

func TestKVStore_RecoveryCleanFile(t *testing.T) {
	dir := t.TempDir()
	populate(t, dir, 3)

	store, err := NewKVStore(KVStoreConfig{DataDir: dir})
	require.NoError(t, err)
	res, err := store.Open()
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, int64(3), res.RecordsValidated)
	assert.Equal(t, int64(0), res.RecordsTruncated)
	assert.Equal(t, res.FileSizeBefore, res.FileSizeAfter)
	assert.True(t, res.IndexRebuilt)
}

func TestKVStore_RecoveryMissingFile(t *testing.T) {
	store, err := NewKVStore(KVStoreConfig{DataDir: t.TempDir()})
	require.NoError(t, err)
	res, err := store.Open()
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, int64(0), res.RecordsValidated)
	assert.Equal(t, int64(0), res.FileSizeBefore)
	assert.True(t, res.IndexRebuilt)
}

func TestKVStore_RecoveryTruncatesDamagedTail(t *testing.T) {
	testCases := []struct {
		name   string
		damage func(t *testing.T, path string)
		keep   int
	}{
		{
			name: "torn final frame",
			damage: func(t *testing.T, path string) {
				info, err := os.Stat(path)
				require.NoError(t, err)
				require.NoError(t, os.Truncate(path, info.Size()-3))
			},
			keep: 2,
		},
		{
			name: "garbage appended",
			damage: func(t *testing.T, path string) {
				f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0600)
				require.NoError(t, err)
				_, err = f.Write([]byte("not a frame at all"))
				require.NoError(t, err)
				require.NoError(t, f.Close())
			},
			keep: 3,
		},
		{
			name: "flipped byte in first frame",
			damage: func(t *testing.T, path string) {
				data, err := os.ReadFile(path)
				require.NoError(t, err)
				data[25] ^= 0xFF
				require.NoError(t, os.WriteFile(path, data, 0600))
			},
			keep: 0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			path := populate(t, dir, 3)
			tc.damage(t, path)

			store, err := NewKVStore(KVStoreConfig{DataDir: dir})
			require.NoError(t, err)
			res, err := store.Open()
			require.NoError(t, err)
			defer store.Close()

			assert.Equal(t, int64(tc.keep), res.RecordsValidated)
			assert.Equal(t, int64(1), res.RecordsTruncated)
			assert.Less(t, res.FileSizeAfter, res.FileSizeBefore)
			assert.Equal(t, tc.keep, store.Stats().Keys)

			// appends after recovery land on a clean boundary
			require.NoError(t, store.Put([]byte("paragraph:n1:new"), []byte("after recovery")))
			require.NoError(t, store.Close())

			reopened := openTestStore(t, dir)
			defer reopened.Close()
			got, err := reopened.Get([]byte("paragraph:n1:new"))
			require.NoError(t, err)
			assert.Equal(t, "after recovery", string(got))
			assert.Equal(t, tc.keep+1, reopened.Stats().Keys)
		})
	}
}

func TestKVStore_RemovesInterruptedCompaction(t *testing.T) {
	dir := t.TempDir()
	populate(t, dir, 2)
	leftover := filepath.Join(dir, compactFileName)
	require.NoError(t, os.WriteFile(leftover, []byte("partial"), 0600))

	store := openTestStore(t, dir)
	defer store.Close()

	assert.NoFileExists(t, leftover)
	assert.Equal(t, 2, store.Stats().Keys)
}

func TestKVStore_ConcurrentReadWrite(t *testing.T) {
	store, err := NewKVStore(KVStoreConfig{DataDir: t.TempDir(), FsyncInterval: 10 * time.Millisecond})
	require.NoError(t, err)
	_, err = store.Open()
	require.NoError(t, err)
	defer store.Close()

	const goroutines = 8
	const ops = 50

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < ops; i++ {
				key := []byte(fmt.Sprintf("paragraph:n%d:p%d", g, i))
				value := fmt.Sprintf("snapshot_%d_%d", g, i)
				if !assert.NoError(t, store.Put(key, []byte(value))) {
					return
				}
				got, err := store.Get(key)
				if assert.NoError(t, err) {
					assert.Equal(t, value, string(got))
				}
			}
		}(g)
	}
	wg.Wait()

	assert.Equal(t, goroutines*ops, store.Stats().Keys)
}
