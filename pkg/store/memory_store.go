package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"ktassist/pkg/domain"
)

// MemoryStore keeps activity in-process for local runs and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	logins  map[string]domain.LoginRecord // email -> record
	uploads []domain.UploadRecord
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{logins: make(map[string]domain.LoginRecord)}
}

// RecordLogin upserts by email.
func (m *MemoryStore) RecordLogin(_ context.Context, email string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.logins[email]
	if !ok {
		rec = domain.LoginRecord{ID: uuid.NewString(), Email: email}
	}
	rec.LoginTime = at.UTC()
	m.logins[email] = rec
	return nil
}

// RecordUpload appends an upload record.
func (m *MemoryStore) RecordUpload(_ context.Context, rec domain.UploadRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.UploadTime = rec.UploadTime.UTC()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads = append(m.uploads, rec)
	return nil
}

// ListLogins returns logins newest first.
func (m *MemoryStore) ListLogins(_ context.Context) ([]domain.LoginRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.LoginRecord, 0, len(m.logins))
	for _, rec := range m.logins {
		res = append(res, rec)
	}
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].LoginTime.After(res[j].LoginTime)
	})
	return res, nil
}

// ListUploads returns uploads newest first; equal times keep the latest append first.
func (m *MemoryStore) ListUploads(_ context.Context) ([]domain.UploadRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.UploadRecord, 0, len(m.uploads))
	for i := len(m.uploads) - 1; i >= 0; i-- {
		res = append(res, m.uploads[i])
	}
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].UploadTime.After(res[j].UploadTime)
	})
	return res, nil
}
