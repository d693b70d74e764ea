/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FSStore stores objects under a local directory, one file per key.
type FSStore struct {
	root string
}

// NewFSStore creates a filesystem-backed object store rooted at dir.
func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	return &FSStore{root: dir}, nil
}

// Put writes an object file, creating parent directories as needed.
func (s *FSStore) Put(ctx context.Context, key string, data []byte) error {
	path := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create object dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write object %s: %w", key, err)
	}
	return nil
}

// Get reads an object file.
func (s *FSStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(key)))
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	return data, nil
}
