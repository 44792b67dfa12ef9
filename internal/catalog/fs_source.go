package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"rewards_backend/internal/domain"
)

// FSSource reads the catalog from a directory tree.
type FSSource struct {
	fsys fs.FS
}

func NewDirSource(dir string) *FSSource {
	return &FSSource{fsys: os.DirFS(dir)}
}

func NewFSSource(fsys fs.FS) *FSSource {
	return &FSSource{fsys: fsys}
}

func (s *FSSource) Document(ctx context.Context) (Document, error) {
	var doc Document
	if err := s.readJSON(ctx, DocumentFile, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *FSSource) TierIndex(ctx context.Context, rarity domain.Rarity) ([]IndexItem, error) {
	var items []IndexItem
	if err := s.readJSON(ctx, indexPath(rarity), &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *FSSource) readJSON(ctx context.Context, name string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := fs.ReadFile(s.fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}
