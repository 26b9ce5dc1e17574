package blob

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"
)

// Memory is the in-process backend. Objects live in a map for the life of
// the process; tests may Clear it between cases.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]Object
}

func NewMemory() *Memory {
	return &Memory{objects: make(map[string]Object)}
}

func (m *Memory) Put(ctx context.Context, key string, obj Object) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data := bytes.Clone(obj.Data)
	sum := sha256.Sum256(data)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = Object{
		Data:         data,
		ContentType:  obj.ContentType,
		Size:         int64(len(data)),
		UploadedAt:   time.Now().UTC(),
		CacheControl: obj.CacheControl,
		ETag:         hex.EncodeToString(sum[:]),
	}
	return nil
}

func (m *Memory) Get(ctx context.Context, key string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	obj, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	// Copy so callers cannot mutate the stored payload.
	out := obj
	out.Data = bytes.Clone(obj.Data)
	return &out, nil
}

func (m *Memory) Delete(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	_, existed := m.objects[key]
	delete(m.objects, key)
	return existed, nil
}

func (m *Memory) List(ctx context.Context, prefix string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make([]Entry, 0, len(m.objects))
	for key, obj := range m.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		entries = append(entries, Entry{
			Key:        key,
			Size:       obj.Size,
			UploadedAt: obj.UploadedAt,
		})
	}
	return entries, nil
}

func (m *Memory) Health(ctx context.Context) error {
	return ctx.Err()
}

// Clear removes every stored object.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects = make(map[string]Object)
}

// Len reports how many objects are stored.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
