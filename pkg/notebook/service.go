package notebook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
	"github.com/ssargent/folio/pkg/paragraph"
	"github.com/ssargent/folio/pkg/storage"
	"github.com/ssargent/folio/pkg/store"
)

const (
	keyPrefix         = "paragraph:"
	paragraphIDPrefix = "paragraph_"
)

var (
	ErrNotFound        = errors.New("paragraph not found")
	ErrMissingNoteID   = errors.New("paragraph has no note id")
	ErrInvalidID       = errors.New("invalid note or paragraph id")
	ErrHistoryDisabled = errors.New("paragraph history is not enabled")
	ErrInvalidPattern  = errors.New("invalid match pattern")
)

// Archiver keeps immutable copies of every saved snapshot.
type Archiver interface {
	Append(key string, data []byte) (ksuid.KSUID, error)
	Revisions(key string) ([]storage.Revision, error)
}

// Options configures a Service. The zero value stores positional snapshots
// without history.
type Options struct {
	// Codec writes new snapshots.
	Codec paragraph.Codec
	// Readers decode snapshots stored in other encodings. Encodings not
	// listed are read with default limits.
	Readers []paragraph.Codec
	Archive Archiver
	Logger  *slog.Logger
}

// Service is the paragraph repository. Snapshots live in a store.Backend
// under paragraph:<noteId>:<paragraphId>.
type Service struct {
	backend store.Backend
	codecs  *snapshotCodecs
	archive Archiver
	logger  *slog.Logger
}

// Revision is one archived version of a paragraph.
type Revision struct {
	ID        string          `json:"id"`
	Time      time.Time       `json:"time"`
	Paragraph *paragraph.Info `json:"paragraph"`
}

// Stats describes the repository.
type Stats struct {
	Encoding string            `json:"encoding"`
	History  bool              `json:"history"`
	Store    *store.StoreStats `json:"store"`
}

func NewService(backend store.Backend, opts Options) (*Service, error) {
	if opts.Codec == nil {
		opts.Codec = paragraph.PositionalCodec{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	codecs, err := newSnapshotCodecs(opts.Codec, opts.Readers)
	if err != nil {
		return nil, err
	}
	return &Service{
		backend: backend,
		codecs:  codecs,
		archive: opts.Archive,
		logger:  opts.Logger.With("component", "notebook"),
	}, nil
}

// Encoding returns the name of the codec new snapshots are written with.
func (s *Service) Encoding() string {
	return s.codecs.writer.Name()
}

func paragraphKey(noteID, paragraphID string) string {
	return keyPrefix + noteID + ":" + paragraphID
}

func notePrefix(noteID string) string {
	return keyPrefix + noteID + ":"
}

// splitKey reverses paragraphKey.
func splitKey(key string) (noteID, paragraphID string, ok bool) {
	rest, found := strings.CutPrefix(key, keyPrefix)
	if !found {
		return "", "", false
	}
	return strings.Cut(rest, ":")
}

func validateID(id string) error {
	if id == "" || strings.ContainsAny(id, ":/") {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

func validateIDs(noteID, paragraphID string) error {
	if err := validateID(noteID); err != nil {
		return err
	}
	return validateID(paragraphID)
}

// Save stores info, generating a paragraph id when none is set. The stored
// copy is returned; info itself is not modified.
func (s *Service) Save(ctx context.Context, info *paragraph.Info) (*paragraph.Info, error) {
	if info == nil {
		return nil, paragraph.ErrNilRecord
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p := info.Clone()
	noteID, ok := p.NoteID.Get()
	if !ok {
		return nil, ErrMissingNoteID
	}
	if !p.ParagraphID.IsSet() {
		p.ParagraphID.Set(paragraphIDPrefix + uuid.NewString())
	}
	paragraphID, _ := p.ParagraphID.Get()
	if err := validateIDs(noteID, paragraphID); err != nil {
		return nil, err
	}

	data, err := s.codecs.marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode paragraph: %w", err)
	}

	key := paragraphKey(noteID, paragraphID)
	if err := s.backend.Put([]byte(key), data); err != nil {
		return nil, fmt.Errorf("store paragraph %s: %w", key, err)
	}

	if s.archive != nil {
		id, err := s.archive.Append(key, data)
		if err != nil {
			return nil, fmt.Errorf("archive paragraph %s: %w", key, err)
		}
		s.logger.Debug("paragraph archived", "key", key, "revision", id.String())
	}

	s.logger.Debug("paragraph saved", "key", key, "bytes", len(data))
	return p, nil
}

func (s *Service) Get(ctx context.Context, noteID, paragraphID string) (*paragraph.Info, error) {
	if err := validateIDs(noteID, paragraphID); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := s.backend.Get([]byte(paragraphKey(noteID, paragraphID)))
	if err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.decode(data)
}

func (s *Service) Delete(ctx context.Context, noteID, paragraphID string) error {
	if err := validateIDs(noteID, paragraphID); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.backend.Delete([]byte(paragraphKey(noteID, paragraphID)))
	if errors.Is(err, store.ErrKeyNotFound) {
		return ErrNotFound
	}
	return err
}

// List returns every paragraph of a note in paragraph.Compare order.
func (s *Service) List(ctx context.Context, noteID string) ([]*paragraph.Info, error) {
	if err := validateID(noteID); err != nil {
		return nil, err
	}
	return s.collect(ctx, notePrefix(noteID), func(string, string) bool { return true })
}

// Match returns paragraphs whose <noteId>/<paragraphId> path matches a
// doublestar glob, for example "note-*/**" or "*/paragraph_1".
func (s *Service) Match(ctx context.Context, pattern string) ([]*paragraph.Info, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPattern, pattern)
	}
	return s.collect(ctx, keyPrefix, func(noteID, paragraphID string) bool {
		ok, _ := doublestar.Match(pattern, noteID+"/"+paragraphID)
		return ok
	})
}

// Notes returns the distinct note ids that have at least one paragraph.
func (s *Service) Notes(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	keys, err := s.backend.ListKeys([]byte(keyPrefix))
	if err != nil {
		return nil, err
	}

	var notes []string
	for _, key := range keys {
		noteID, _, ok := splitKey(key)
		if !ok {
			continue
		}
		notes = append(notes, noteID)
	}
	slices.Sort(notes)
	return slices.Compact(notes), nil
}

func (s *Service) collect(ctx context.Context, prefix string, keep func(noteID, paragraphID string) bool) ([]*paragraph.Info, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch, err := s.backend.ScanPrefix(ctx, []byte(prefix))
	if err != nil {
		return nil, err
	}

	infos := []*paragraph.Info{}
	for kv := range ch {
		noteID, paragraphID, ok := splitKey(string(kv.Key))
		if !ok || !keep(noteID, paragraphID) {
			continue
		}
		info, err := s.decode(kv.Value)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", kv.Key, err)
		}
		infos = append(infos, info)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	slices.SortFunc(infos, paragraph.Compare)
	return infos, nil
}

// History returns the archived versions of a paragraph, oldest first.
func (s *Service) History(ctx context.Context, noteID, paragraphID string) ([]Revision, error) {
	if s.archive == nil {
		return nil, ErrHistoryDisabled
	}
	if err := validateIDs(noteID, paragraphID); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	revs, err := s.archive.Revisions(paragraphKey(noteID, paragraphID))
	if err != nil {
		return nil, err
	}
	if len(revs) == 0 {
		return nil, ErrNotFound
	}

	out := make([]Revision, 0, len(revs))
	for _, rev := range revs {
		info, err := s.decode(rev.Data)
		if err != nil {
			return nil, fmt.Errorf("decode revision %s: %w", rev.ID, err)
		}
		out = append(out, Revision{ID: rev.ID.String(), Time: rev.Time(), Paragraph: info})
	}
	return out, nil
}

func (s *Service) Stats() *Stats {
	return &Stats{
		Encoding: s.codecs.writer.Name(),
		History:  s.archive != nil,
		Store:    s.backend.Stats(),
	}
}

func (s *Service) decode(data []byte) (*paragraph.Info, error) {
	info, encoding, err := s.codecs.unmarshal(data)
	if err != nil {
		s.logger.Warn("undecodable paragraph snapshot", "encoding", encoding, "error", err)
		return nil, err
	}
	return info, nil
}
