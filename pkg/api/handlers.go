package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ssargent/folio/pkg/notebook"
	"github.com/ssargent/folio/pkg/paragraph"
)

const (
	contentTypeText     = "text/plain; charset=utf-8"
	defaultMaxBodyBytes = 1 << 20
)

// Server holds the API server state
type Server struct {
	notebook ParagraphStore
	config   ServerConfig
	metrics  *Metrics
	logger   *slog.Logger
}

// NewServer creates a new API server
func NewServer(notebook ParagraphStore, config ServerConfig, metrics *Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = defaultMaxBodyBytes
	}
	return &Server{
		notebook: notebook,
		config:   config,
		metrics:  metrics,
		logger:   logger.With("component", "api"),
	}
}

// observe records a repository call and passes err through.
func (s *Server) observe(operation string, start time.Time, err error) error {
	s.metrics.RecordDBOperation(operation, err == nil || errors.Is(err, notebook.ErrNotFound), time.Since(start))
	return err
}

// withLimits applies the configured decoder limits to a codec picked by
// content type.
func (s *Server) withLimits(c paragraph.Codec) paragraph.Codec {
	switch c.(type) {
	case paragraph.TaggedCodec:
		return paragraph.TaggedCodec{Limits: s.config.Limits, Strict: s.config.Strict}
	case paragraph.PositionalCodec:
		return paragraph.PositionalCodec{Limits: s.config.Limits}
	}
	return c
}

// responseCodec picks the wire codec named by the Accept header. It
// returns nil for JSON, which is sent in the response envelope, and
// text is true when a plain-text rendering was asked for.
func responseCodec(r *http.Request) (c paragraph.Codec, text bool) {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mediaType, _, _ := strings.Cut(part, ";")
		switch strings.ToLower(strings.TrimSpace(mediaType)) {
		case paragraph.ContentTypeTagged:
			return paragraph.TaggedCodec{}, false
		case paragraph.ContentTypePositional:
			return paragraph.PositionalCodec{}, false
		case "text/plain":
			return nil, true
		case paragraph.ContentTypeJSON, "*/*":
			return nil, false
		}
	}
	return nil, false
}

// decodeBody reads one paragraph from the request body in the encoding
// named by Content-Type.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request) (*paragraph.Info, bool) {
	c, ok := paragraph.CodecForContentType(r.Header.Get("Content-Type"))
	if !ok {
		sendError(w, fmt.Sprintf("Unsupported content type %q", r.Header.Get("Content-Type")), http.StatusUnsupportedMediaType)
		return nil, false
	}
	c = s.withLimits(c)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			sendError(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return nil, false
		}
		sendError(w, "Failed to read request body", http.StatusBadRequest)
		return nil, false
	}

	info, err := c.Unmarshal(body)
	s.metrics.RecordCodecOperation(c.Name(), "decode", err == nil)
	if err != nil {
		sendError(w, fmt.Sprintf("Invalid %s paragraph: %v", c.Name(), err), http.StatusBadRequest)
		return nil, false
	}
	return info, true
}

// writeParagraph sends info in the representation the client accepts.
func (s *Server) writeParagraph(w http.ResponseWriter, r *http.Request, statusCode int, info *paragraph.Info) {
	w.Header().Set("ETag", etag(info))
	w.Header().Add("Vary", "Accept")

	c, text := responseCodec(r)
	switch {
	case text:
		w.Header().Set("Content-Type", contentTypeText)
		w.WriteHeader(statusCode)
		_, _ = io.WriteString(w, info.String()+"\n")
	case c != nil:
		data, err := c.Marshal(info)
		s.metrics.RecordCodecOperation(c.Name(), "encode", err == nil)
		if err != nil {
			sendError(w, fmt.Sprintf("Failed to encode paragraph: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", c.ContentType())
		w.WriteHeader(statusCode)
		_, _ = w.Write(data)
	default:
		sendJSON(w, statusCode, info)
	}
}

// etag is weak because it names the record, not one of its representations.
func etag(info *paragraph.Info) string {
	return fmt.Sprintf(`W/"%016x"`, info.Hash())
}

// etagMatches applies the weak comparison If-None-Match calls for to a
// comma separated list of tags.
func etagMatches(header, tag string) bool {
	want := strings.TrimPrefix(tag, "W/")
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == want {
			return true
		}
	}
	return false
}

// sendServiceError maps repository and codec errors to HTTP statuses.
func (s *Server) sendServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, notebook.ErrNotFound):
		sendError(w, "Paragraph not found", http.StatusNotFound)
	case errors.Is(err, notebook.ErrHistoryDisabled):
		sendError(w, err.Error(), http.StatusNotImplemented)
	case errors.Is(err, notebook.ErrInvalidID),
		errors.Is(err, notebook.ErrMissingNoteID),
		errors.Is(err, notebook.ErrInvalidPattern),
		errors.Is(err, paragraph.ErrNilRecord):
		sendError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, context.Canceled):
		// client went away
	default:
		s.logger.Error("request failed", "error", err)
		sendError(w, fmt.Sprintf("Internal error: %v", err), http.StatusInternalServerError)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordHealthCheck(true)
	sendSuccess(w, map[string]string{"status": "healthy"})
}

func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	notes, err := s.notebook.Notes(r.Context())
	if s.observe("notes", start, err) != nil {
		s.sendServiceError(w, err)
		return
	}
	if notes == nil {
		notes = []string{}
	}
	sendSuccess(w, notes)
}

func (s *Server) handleListParagraphs(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	infos, err := s.notebook.List(r.Context(), chi.URLParam(r, "noteId"))
	if s.observe("list", start, err) != nil {
		s.sendServiceError(w, err)
		return
	}
	s.writeList(w, r, infos)
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	pattern := r.URL.Query().Get("match")
	if pattern == "" {
		sendError(w, "Query parameter match is required", http.StatusBadRequest)
		return
	}

	start := time.Now()
	infos, err := s.notebook.Match(r.Context(), pattern)
	if s.observe("match", start, err) != nil {
		s.sendServiceError(w, err)
		return
	}
	s.writeList(w, r, infos)
}

// writeList sends a JSON array, or a tagged list of structs when asked.
// Positional encoding has no list form.
func (s *Server) writeList(w http.ResponseWriter, r *http.Request, infos []*paragraph.Info) {
	c, _ := responseCodec(r)
	switch c.(type) {
	case paragraph.TaggedCodec:
		tagged := paragraph.TaggedCodec{}
		data, err := tagged.MarshalList(infos)
		s.metrics.RecordCodecOperation(tagged.Name(), "encode", err == nil)
		if err != nil {
			sendError(w, fmt.Sprintf("Failed to encode paragraphs: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", tagged.ContentType())
		_, _ = w.Write(data)
	case paragraph.PositionalCodec:
		sendError(w, "Lists are not available in the positional encoding", http.StatusNotAcceptable)
	default:
		sendSuccess(w, infos)
	}
}

func (s *Server) handleCreateParagraph(w http.ResponseWriter, r *http.Request) {
	info, ok := s.decodeBody(w, r)
	if !ok {
		return
	}
	info.NoteID.Set(chi.URLParam(r, "noteId"))
	info.ParagraphID.Unset()

	start := time.Now()
	saved, err := s.notebook.Save(r.Context(), info)
	if s.observe("create", start, err) != nil {
		s.sendServiceError(w, err)
		return
	}

	paragraphID, _ := saved.ParagraphID.Get()
	w.Header().Set("Location", r.URL.Path+"/"+paragraphID)
	s.writeParagraph(w, r, http.StatusCreated, saved)
}

func (s *Server) handlePutParagraph(w http.ResponseWriter, r *http.Request) {
	info, ok := s.decodeBody(w, r)
	if !ok {
		return
	}
	// the path names the paragraph regardless of what the body says
	info.NoteID.Set(chi.URLParam(r, "noteId"))
	info.ParagraphID.Set(chi.URLParam(r, "paragraphId"))

	start := time.Now()
	saved, err := s.notebook.Save(r.Context(), info)
	if s.observe("put", start, err) != nil {
		s.sendServiceError(w, err)
		return
	}
	s.writeParagraph(w, r, http.StatusOK, saved)
}

func (s *Server) handleGetParagraph(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	info, err := s.notebook.Get(r.Context(), chi.URLParam(r, "noteId"), chi.URLParam(r, "paragraphId"))
	if s.observe("get", start, err) != nil {
		s.sendServiceError(w, err)
		return
	}

	if tag := etag(info); etagMatches(r.Header.Get("If-None-Match"), tag) {
		w.Header().Set("ETag", tag)
		w.Header().Add("Vary", "Accept")
		w.WriteHeader(http.StatusNotModified)
		return
	}
	s.writeParagraph(w, r, http.StatusOK, info)
}

func (s *Server) handleDeleteParagraph(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	err := s.notebook.Delete(r.Context(), chi.URLParam(r, "noteId"), chi.URLParam(r, "paragraphId"))
	if s.observe("delete", start, err) != nil {
		s.sendServiceError(w, err)
		return
	}
	sendSuccess(w, map[string]string{"message": "Paragraph deleted"})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	revs, err := s.notebook.History(r.Context(), chi.URLParam(r, "noteId"), chi.URLParam(r, "paragraphId"))
	if s.observe("history", start, err) != nil {
		s.sendServiceError(w, err)
		return
	}
	sendSuccess(w, revs)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	sendSuccess(w, s.notebook.Stats())
}

// startMetricsUpdater periodically copies store statistics into gauges
// until ctx is done.
func (s *Server) startMetricsUpdater(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		s.updateStoreMetrics()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Server) updateStoreMetrics() {
	stats := s.notebook.Stats()
	if stats == nil || stats.Store == nil {
		return
	}
	s.metrics.UpdateDBStats(stats.Store.Keys, stats.Store.DataSize, stats.Store.DeadBytes)
}
