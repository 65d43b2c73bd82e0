// Package di provides dependency injection container
package di

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ssargent/folio/pkg/api" //nolint:depguard
	"github.com/ssargent/folio/pkg/config"
	"github.com/ssargent/folio/pkg/notebook"
	"github.com/ssargent/folio/pkg/storage"
	"github.com/ssargent/folio/pkg/store"
)

// Subdirectories of the data dir, one per storage component.
const (
	LogDir     = "log"
	PebbleDir  = "pebble"
	HistoryDir = "history"
)

// Notebook is an open paragraph repository together with the storage it
// owns. Close releases all of it.
type Notebook struct {
	*notebook.Service
	Backend store.Backend

	closers []io.Closer
}

// Close closes the archive and backend.
func (n *Notebook) Close() error {
	var errs []error
	for i := len(n.closers) - 1; i >= 0; i-- {
		errs = append(errs, n.closers[i].Close())
	}
	return errors.Join(errs...)
}

// NotebookFactory opens the repository described by a configuration
type NotebookFactory interface {
	OpenNotebook(cfg *config.Config, logger *slog.Logger) (*Notebook, error)
}

// Container holds all the dependencies for the application
type Container struct {
	notebookFactory NotebookFactory
	serverFactory   api.ServerFactory
}

// NewContainer creates a new dependency injection container
func NewContainer() *Container {
	return &Container{
		notebookFactory: NewNotebookFactory(),
		serverFactory:   api.NewServerFactory(),
	}
}

// GetNotebookFactory returns the notebook factory
func (c *Container) GetNotebookFactory() NotebookFactory {
	return c.notebookFactory
}

// GetServerFactory returns the server factory
func (c *Container) GetServerFactory() api.ServerFactory {
	return c.serverFactory
}

// SetNotebookFactory allows overriding the notebook factory (for testing)
func (c *Container) SetNotebookFactory(factory NotebookFactory) {
	c.notebookFactory = factory
}

// SetServerFactory allows overriding the server factory (for testing)
func (c *Container) SetServerFactory(factory api.ServerFactory) {
	c.serverFactory = factory
}

// DefaultNotebookFactory opens the backend selected by storage.backend
// and, when storage.history is on, a pebble archive beside it.
type DefaultNotebookFactory struct{}

// NewNotebookFactory creates a new notebook factory
func NewNotebookFactory() NotebookFactory {
	return &DefaultNotebookFactory{}
}

func (f *DefaultNotebookFactory) OpenNotebook(cfg *config.Config, logger *slog.Logger) (*Notebook, error) {
	if logger == nil {
		logger = slog.Default()
	}
	snapshotCodec, err := cfg.SnapshotCodec()
	if err != nil {
		return nil, err
	}
	readers, err := cfg.SnapshotReaders()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	nb := &Notebook{}
	backend, err := openBackend(cfg, logger)
	if err != nil {
		return nil, err
	}
	nb.Backend = backend
	nb.closers = append(nb.closers, backend)

	opts := notebook.Options{Codec: snapshotCodec, Readers: readers, Logger: logger}
	if cfg.Storage.History {
		archive, err := storage.NewArchive(filepath.Join(cfg.DataDir, HistoryDir), logger)
		if err != nil {
			nb.Close()
			return nil, err
		}
		nb.closers = append(nb.closers, archive)
		opts.Archive = archive
	}

	nb.Service, err = notebook.NewService(backend, opts)
	if err != nil {
		nb.Close()
		return nil, err
	}
	return nb, nil
}

func openBackend(cfg *config.Config, logger *slog.Logger) (store.Backend, error) {
	switch cfg.Storage.Backend {
	case config.BackendPebble:
		return storage.NewPebbleBackend(filepath.Join(cfg.DataDir, PebbleDir), logger)
	case config.BackendLog, "":
		kv, err := store.NewKVStore(store.KVStoreConfig{
			DataDir:       filepath.Join(cfg.DataDir, LogDir),
			FsyncInterval: cfg.Storage.FsyncInterval,
			Logger:        logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create store: %w", err)
		}
		if _, err := kv.Open(); err != nil {
			return nil, fmt.Errorf("failed to open store: %w", err)
		}
		return kv, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
