package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileArchive writes one JSON file per simulation under Dir.
type FileArchive struct {
	Dir string
}

func NewFileArchive(dir string) *FileArchive {
	return &FileArchive{Dir: dir}
}

func (a *FileArchive) Save(ctx context.Context, key string, data []byte) error {
	name, err := objectName(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(a.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create archive dir: %w", err)
	}

	// Write then rename so readers never see a partial file.
	final := filepath.Join(a.Dir, name)
	tmp, err := os.CreateTemp(a.Dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write archive file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close archive file: %w", err)
	}
	return os.Rename(tmp.Name(), final)
}
