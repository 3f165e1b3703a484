package storage

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// Archive keeps raw optimizer responses keyed by simulation id.
type Archive interface {
	Save(ctx context.Context, key string, data []byte) error
}

var ErrInvalidKey = errors.New("invalid archive key")

// objectName turns a simulation id into a flat object name.
func objectName(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return "", ErrInvalidKey
	}
	return key + ".json", nil
}

// TestArchive is a simple in-memory implementation for testing
type TestArchive struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func NewTestArchive() *TestArchive {
	return &TestArchive{objects: map[string][]byte{}}
}

func NewTestArchiveWithError() *TestArchive {
	return &TestArchive{objects: map[string][]byte{}, err: errors.New("archive unavailable")}
}

func (t *TestArchive) Save(ctx context.Context, key string, data []byte) error {
	if t.err != nil {
		return t.err
	}
	name, err := objectName(key)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.objects[name] = append([]byte(nil), data...)
	return nil
}

// Get returns the stored bytes for key, if any.
func (t *TestArchive) Get(key string) ([]byte, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	data, ok := t.objects[key+".json"]
	return data, ok
}
