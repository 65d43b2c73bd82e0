package storage

import (
	"fmt"
	"testing"

	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestArchive(t *testing.T) *Archive {
	t.Helper()
	a, err := NewArchive(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestArchive_AppendAndRevisions(t *testing.T) {
	a := newTestArchive(t)

	var ids []ksuid.KSUID
	for i := 0; i < 5; i++ {
		id, err := a.Append("paragraph:n1:p1", []byte(fmt.Sprintf("rev%d", i)))
		require.NoError(t, err)
		ids = append(ids, id)
	}
	_, err := a.Append("paragraph:n1:p10", []byte("other"))
	require.NoError(t, err)

	revs, err := a.Revisions("paragraph:n1:p1")
	require.NoError(t, err)
	require.Len(t, revs, 5)
	for i, rev := range revs {
		assert.Equal(t, ids[i], rev.ID)
		assert.Equal(t, fmt.Sprintf("rev%d", i), string(rev.Data))
		assert.False(t, rev.Time().IsZero())
	}
}

func TestArchive_IDsAreMonotonic(t *testing.T) {
	a := newTestArchive(t)

	prev := ksuid.Nil
	for i := 0; i < 100; i++ {
		id := a.nextID(ksuid.Nil)
		assert.Equal(t, 1, ksuid.Compare(id, prev), "id %d not greater than previous", i)
		prev = id
	}
}

func TestArchive_OrderSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	var ids []ksuid.KSUID
	for i := 0; i < 3; i++ {
		a, err := NewArchive(dir, nil)
		require.NoError(t, err)
		id, err := a.Append("paragraph:n1:p1", []byte(fmt.Sprintf("rev%d", i)))
		require.NoError(t, err)
		ids = append(ids, id)
		require.NoError(t, a.Close())
	}

	a, err := NewArchive(dir, nil)
	require.NoError(t, err)
	defer a.Close()

	revs, err := a.Revisions("paragraph:n1:p1")
	require.NoError(t, err)
	require.Len(t, revs, 3)
	for i, rev := range revs {
		assert.Equal(t, ids[i], rev.ID)
		assert.Equal(t, fmt.Sprintf("rev%d", i), string(rev.Data))
	}
}

func TestArchive_NextIDFloor(t *testing.T) {
	a := newTestArchive(t)
	floor := ksuid.New().Next().Next()
	id := a.nextID(floor)
	assert.Equal(t, 1, ksuid.Compare(id, floor))
}

func TestArchive_Read(t *testing.T) {
	a := newTestArchive(t)

	id, err := a.Append("paragraph:n1:p1", []byte("snapshot"))
	require.NoError(t, err)

	data, err := a.Read("paragraph:n1:p1", id)
	require.NoError(t, err)
	assert.Equal(t, "snapshot", string(data))

	_, err = a.Read("paragraph:n1:p2", id)
	assert.ErrorIs(t, err, ErrRevisionNotFound)
}

func TestArchive_NoRevisions(t *testing.T) {
	a := newTestArchive(t)

	revs, err := a.Revisions("paragraph:none:p1")
	require.NoError(t, err)
	assert.Empty(t, revs)
}
