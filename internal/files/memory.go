package files

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps everything in process memory. Selected with
// SLOT_STORE=memory; data is lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]UploadRecord
	blobs   map[uuid.UUID]Blob
	ready   chan struct{}
}

// NewMemoryStore returns an empty store that is ready immediately.
func NewMemoryStore() *MemoryStore {
	ready := make(chan struct{})
	close(ready)
	return &MemoryStore{
		records: make(map[uuid.UUID]UploadRecord),
		blobs:   make(map[uuid.UUID]Blob),
		ready:   ready,
	}
}

func (m *MemoryStore) Ready() <-chan struct{} { return m.ready }

func (m *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

func (m *MemoryStore) CreateRecord(ctx context.Context, rec UploadRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.records[rec.ID]; exists {
		return ErrConflict
	}
	m.records[rec.ID] = cloneRecord(rec)
	return nil
}

func (m *MemoryStore) GetRecord(ctx context.Context, id uuid.UUID) (UploadRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	if !ok {
		return UploadRecord{}, ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (m *MemoryStore) MarkExpired(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok || rec.State == StateUploaded {
		return nil
	}
	rec.State = StateExpired
	m.records[id] = rec
	return nil
}

// CompleteUpload re-checks the record under the write lock, so of two
// racing submissions only one can win.
func (m *MemoryStore) CompleteUpload(ctx context.Context, blob Blob, uploadedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[blob.OwnerID]
	if !ok {
		return ErrNotFound
	}
	switch rec.State {
	case StateUploaded:
		return ErrConflict
	case StateExpired:
		return ErrExpired
	}
	if _, exists := m.blobs[blob.OwnerID]; exists {
		return ErrConflict
	}

	blob.Content = bytes.Clone(blob.Content)
	m.blobs[blob.OwnerID] = blob

	at := uploadedAt
	rec.State = StateUploaded
	rec.UploadedAt = &at
	m.records[rec.ID] = rec
	return nil
}

func (m *MemoryStore) GetBlob(ctx context.Context, id uuid.UUID) (Blob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.blobs[id]
	if !ok {
		return Blob{}, ErrNotFound
	}
	b.Content = bytes.Clone(b.Content)
	return b, nil
}

func cloneRecord(r UploadRecord) UploadRecord {
	if r.UploadedAt != nil {
		t := *r.UploadedAt
		r.UploadedAt = &t
	}
	if r.Tags != nil {
		t := *r.Tags
		r.Tags = &t
	}
	return r
}
