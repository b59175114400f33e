package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"

	"github.com/dukerupert/qrapi/internal/metrics"
)

// Local stores images as files in a single flat directory.
type Local struct {
	dir    string
	logger *slog.Logger
}

// NewLocal returns a Local store rooted at dir. The directory is created on
// first write if it does not exist.
func NewLocal(dir string, logger *slog.Logger) *Local {
	return &Local{dir: filepath.Clean(dir), logger: logger}
}

func (l *Local) Backend() string { return "local" }

func (l *Local) path(name string) (string, error) {
	base, err := BaseName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(l.dir, base), nil
}

func (l *Local) Put(_ context.Context, name string, data []byte, _ string) (err error) {
	defer func() {
		metrics.StorageOperationsTotal.WithLabelValues(l.Backend(), "put", metrics.Outcome(err)).Inc()
	}()

	p, err := l.path(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("create storage dir: %w", err)
	}

	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return ErrExists
		}
		return fmt.Errorf("create file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(p)
		return fmt.Errorf("write file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(p)
		return fmt.Errorf("close file: %w", err)
	}

	l.logger.Debug("image stored", "name", filepath.Base(p), "bytes", len(data))
	return nil
}

func (l *Local) Open(_ context.Context, name string) (obj *Object, err error) {
	defer func() {
		status := metrics.Outcome(err)
		if errors.Is(err, ErrNotFound) {
			status = "not_found"
		}
		metrics.StorageOperationsTotal.WithLabelValues(l.Backend(), "open", status).Inc()
	}()

	p, err := l.path(name)
	if err != nil {
		return nil, ErrNotFound
	}

	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, ErrNotFound
	}

	contentType := "application/octet-stream"
	if mt, err := mimetype.DetectFile(p); err == nil {
		contentType = mt.String()
	}

	return &Object{Body: f, Size: info.Size(), ContentType: contentType}, nil
}
