package blobstore

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
)

// Memory is an in-memory Store, primarily for tests. Thread-safe.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte)}
}

// Open opens a blob for reading.
func (m *Memory) Open(_ context.Context, name string) (io.ReadCloser, error) {
	m.mu.RLock()
	data, ok := m.blobs[name]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Create starts a new blob; closing the writer publishes it.
func (m *Memory) Create(_ context.Context, name string) (io.WriteCloser, error) {
	return &memoryWriter{store: m, name: name}, nil
}

// Delete removes a blob.
func (m *Memory) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	delete(m.blobs, name)
	m.mu.Unlock()
	return nil
}

// List returns the names of all blobs with the given prefix, sorted.
func (m *Memory) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var names []string
	for name := range m.blobs {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

type memoryWriter struct {
	store *Memory
	name  string
	buf   bytes.Buffer
}

func (w *memoryWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *memoryWriter) Close() error {
	data := make([]byte, w.buf.Len())
	copy(data, w.buf.Bytes())

	w.store.mu.Lock()
	w.store.blobs[w.name] = data
	w.store.mu.Unlock()
	return nil
}
