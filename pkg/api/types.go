package api

import (
	"context"

	"github.com/ssargent/folio/pkg/codec"
	"github.com/ssargent/folio/pkg/notebook"
	"github.com/ssargent/folio/pkg/paragraph"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Bind   string
	Port   int
	APIKey string

	// Limits and Strict apply to paragraph bodies decoded from requests.
	Limits codec.Limits
	Strict bool

	// MaxBodyBytes caps request bodies; zero means 1 MiB.
	MaxBodyBytes int64
}

// ParagraphStore is the repository the handlers serve.
type ParagraphStore interface {
	Save(ctx context.Context, info *paragraph.Info) (*paragraph.Info, error)
	Get(ctx context.Context, noteID, paragraphID string) (*paragraph.Info, error)
	Delete(ctx context.Context, noteID, paragraphID string) error
	List(ctx context.Context, noteID string) ([]*paragraph.Info, error)
	Match(ctx context.Context, pattern string) ([]*paragraph.Info, error)
	Notes(ctx context.Context) ([]string, error)
	History(ctx context.Context, noteID, paragraphID string) ([]notebook.Revision, error)
	Stats() *notebook.Stats
}

var _ ParagraphStore = (*notebook.Service)(nil)
