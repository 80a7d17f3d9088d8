package storage

import (
	"context"
	"fmt"
	"sync"

	"logomotion/internal/domain"
)

type memoryBlob struct {
	data      []byte
	mediaType string
}

// MemoryStore keeps blobs in process memory. Handles do not survive a
// restart, which matches how the single-user flow discards results.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string]memoryBlob
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string]memoryBlob)}
}

func (s *MemoryStore) Put(ctx context.Context, prefix string, data []byte, mediaType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key := NewKey(prefix, mediaType)
	copied := append([]byte(nil), data...)
	s.mu.Lock()
	s.blobs[key] = memoryBlob{data: copied, mediaType: mediaType}
	s.mu.Unlock()
	return key, nil
}

func (s *MemoryStore) Get(ctx context.Context, handle string) ([]byte, string, error) {
	s.mu.RLock()
	blob, ok := s.blobs[handle]
	s.mu.RUnlock()
	if !ok {
		return nil, "", fmt.Errorf("storage: blob %q: %w", handle, domain.ErrNotFound)
	}
	return blob.data, blob.mediaType, nil
}

func (s *MemoryStore) Delete(ctx context.Context, handle string) error {
	s.mu.Lock()
	delete(s.blobs, handle)
	s.mu.Unlock()
	return nil
}

// Len reports the number of stored blobs.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}

var _ BlobStore = (*MemoryStore)(nil)
