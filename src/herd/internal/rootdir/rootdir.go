// Package rootdir resolves the project root a language server instance is
// scoped to. Sessions resolving to the same root reuse one process.
package rootdir

import (
	"context"
	"path/filepath"

	"github.com/lspherd/lspherd/src/herd/internal/fs"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides a new Resolver.
var Module = fx.Provide(New)

// Resolver determines the project boundary for a document.
type Resolver interface {
	// Resolve walks upward from startDir looking for any of the marker entries
	// (e.g. "go.mod", ".git"). It returns the first directory containing one,
	// or startDir when no marker is found before the filesystem root.
	Resolve(ctx context.Context, startDir string, markers []string) (string, error)
}

// Params are the parameters required to create a new Resolver.
type Params struct {
	fx.In

	Logger *zap.SugaredLogger
	FS     fs.HerdFS
}

type resolver struct {
	logger *zap.SugaredLogger
	fs     fs.HerdFS
}

// New creates a new Resolver.
func New(p Params) Resolver {
	return &resolver{
		logger: p.Logger,
		fs:     p.FS,
	}
}

func (r *resolver) Resolve(ctx context.Context, startDir string, markers []string) (string, error) {
	dir := filepath.Clean(startDir)
	for {
		for _, marker := range markers {
			candidate := filepath.Join(dir, marker)
			if ok, err := r.entryExists(candidate); err != nil {
				return "", err
			} else if ok {
				return dir, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	r.logger.Debugw("no root marker found, falling back to document directory", "startDir", startDir, "markers", markers)
	return filepath.Clean(startDir), nil
}

func (r *resolver) entryExists(path string) (bool, error) {
	if ok, err := r.fs.FileExists(path); err != nil {
		return false, err
	} else if ok {
		return true, nil
	}
	return r.fs.DirExists(path)
}
