// Package api provides interfaces for dependency injection
package api

import (
	"context"
	"log/slog"
)

// ServerStarter defines the interface for starting the API server
type ServerStarter interface {
	// StartServer serves notebook until ctx is done
	StartServer(ctx context.Context, notebook ParagraphStore, config ServerConfig, logger *slog.Logger) error
}

// ServerFactory creates server instances
type ServerFactory interface {
	// CreateServerStarter creates a server starter
	CreateServerStarter() ServerStarter
}
