package mocks

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"
)

// ObjectStore is a thread-safe in-memory implementation of ports.ObjectStore.
type ObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string

	// PutFn allows overriding Put behavior.
	PutFn func(ctx context.Context, key string, body io.Reader, contentType string) error
}

// NewObjectStore creates an empty object store.
func NewObjectStore() *ObjectStore {
	return &ObjectStore{objects: make(map[string][]byte), types: make(map[string]string)}
}

// Put stores the body under key.
func (o *ObjectStore) Put(ctx context.Context, key string, body io.Reader, contentType string) error {
	if o.PutFn != nil {
		return o.PutFn(ctx, key, body, contentType)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.objects[key] = data
	o.types[key] = contentType

	return nil
}

// Get returns the object stored under key.
func (o *ObjectStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	data, ok := o.objects[key]
	if !ok {
		return nil, ErrObjectNotFound
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

// Delete removes key. Missing keys are not an error.
func (o *ObjectStore) Delete(_ context.Context, key string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	delete(o.objects, key)
	delete(o.types, key)

	return nil
}

// PresignGet returns a fake URL encoding key and ttl.
func (o *ObjectStore) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.objects[key]; !ok {
		return "", ErrObjectNotFound
	}

	return fmt.Sprintf("https://objects.test/%s?expires=%d", key, int64(ttl.Seconds())), nil
}

// Helper methods for testing

// Object returns the stored bytes of key.
func (o *ObjectStore) Object(key string) ([]byte, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	data, ok := o.objects[key]

	return data, ok
}

// Keys returns the sorted stored keys.
func (o *ObjectStore) Keys() []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	keys := make([]string, 0, len(o.objects))
	for k := range o.objects {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
