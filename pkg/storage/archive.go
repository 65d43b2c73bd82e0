package storage

import (
	"bytes"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/segmentio/ksuid"
)

// ErrRevisionNotFound is returned by Read for an unknown revision.
var ErrRevisionNotFound = errors.New("revision not found")

// Revision is one archived snapshot.
type Revision struct {
	ID   ksuid.KSUID
	Data []byte
}

// Time returns when the revision was archived, to the second.
func (r Revision) Time() time.Time {
	return r.ID.Time()
}

// Archive keeps every saved snapshot of a key, identified by a KSUID so
// revisions sort by creation time. Revisions are never rewritten.
type Archive struct {
	db     *pebble.DB
	logger *slog.Logger

	mu   sync.Mutex
	last ksuid.KSUID
}

// NewArchive opens (or creates) an archive database in dir.
func NewArchive(dir string, logger *slog.Logger) (*Archive, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "archive")

	db, err := openPebble(dir, logger)
	if err != nil {
		return nil, err
	}
	return &Archive{db: db, logger: logger}, nil
}

// nextID returns a KSUID strictly greater than floor and than any this
// archive handed out before, so revisions made within one second keep their
// order. Callers hold a.mu.
func (a *Archive) nextID(floor ksuid.KSUID) ksuid.KSUID {
	if ksuid.Compare(a.last, floor) > 0 {
		floor = a.last
	}
	id := ksuid.New()
	if ksuid.Compare(id, floor) <= 0 {
		id = floor.Next()
	}
	a.last = id
	return id
}

func revisionKey(key string, id ksuid.KSUID) []byte {
	return append(revisionPrefix(key), id.String()...)
}

func revisionPrefix(key string) []byte {
	return []byte(key + "/")
}

// Append stores data as a new revision of key. The new revision sorts after
// every existing revision of key, including ones written by an earlier
// process.
func (a *Archive) Append(key string, data []byte) (ksuid.KSUID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	latest, err := a.latest(key)
	if err != nil {
		return ksuid.Nil, err
	}
	id := a.nextID(latest)
	if err := a.db.Set(revisionKey(key, id), data, pebble.Sync); err != nil {
		return ksuid.Nil, err
	}
	return id, nil
}

// latest returns the newest revision id of key, or ksuid.Nil.
func (a *Archive) latest(key string) (ksuid.KSUID, error) {
	prefix := revisionPrefix(key)
	iter, err := a.db.NewIter(prefixIterOptions(prefix))
	if err != nil {
		return ksuid.Nil, err
	}
	defer iter.Close()

	for valid := iter.Last(); valid; valid = iter.Prev() {
		if id, err := ksuid.Parse(string(iter.Key()[len(prefix):])); err == nil {
			return id, nil
		}
	}
	return ksuid.Nil, iter.Error()
}

// Read returns the data of one revision.
func (a *Archive) Read(key string, id ksuid.KSUID) ([]byte, error) {
	data, closer, err := a.db.Get(revisionKey(key, id))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrRevisionNotFound
		}
		return nil, err
	}
	defer closer.Close()
	return bytes.Clone(data), nil
}

// Revisions returns all revisions of key, oldest first.
func (a *Archive) Revisions(key string) ([]Revision, error) {
	prefix := revisionPrefix(key)
	iter, err := a.db.NewIter(prefixIterOptions(prefix))
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var revs []Revision
	for iter.First(); iter.Valid(); iter.Next() {
		id, err := ksuid.Parse(string(iter.Key()[len(prefix):]))
		if err != nil {
			a.logger.Warn("skipping malformed revision key", "key", string(iter.Key()), "error", err)
			continue
		}
		revs = append(revs, Revision{ID: id, Data: bytes.Clone(iter.Value())})
	}
	return revs, iter.Error()
}

func (a *Archive) Close() error {
	return a.db.Close()
}
