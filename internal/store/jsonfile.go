package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/your-org/emomatch/internal/models"
)

// JSONStore keeps the registry in a single JSON file. All mutation
// happens under the write lock and rewrites the file through a temp
// file plus rename, so readers (and crashes) never see a torn registry.
type JSONStore struct {
	path string

	mu      sync.RWMutex
	records map[string]models.EmojiRecord
}

// NewJSONStore opens (or creates) the registry file at path.
func NewJSONStore(path string) (*JSONStore, error) {
	s := &JSONStore{
		path:    path,
		records: make(map[string]models.EmojiRecord),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *JSONStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read registry file: %w", err)
	}

	var recs []models.EmojiRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return fmt.Errorf("parse registry file %s: %w", s.path, err)
	}
	for _, r := range recs {
		s.records[r.ID] = r
	}
	return nil
}

// save rewrites the registry file. Caller must hold the write lock.
func (s *JSONStore) save() error {
	recs := make([]models.EmojiRecord, 0, len(s.records))
	for _, r := range s.records {
		recs = append(recs, r)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].ID < recs[j].ID })

	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return fmt.Errorf("encode registry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create registry dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write registry temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("commit registry file: %w", err)
	}
	return nil
}

func (s *JSONStore) List(ctx context.Context) ([]models.EmojiRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := make([]models.EmojiRecord, 0, len(s.records))
	for _, r := range s.records {
		recs = append(recs, r)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].ID < recs[j].ID })
	return recs, nil
}

func (s *JSONStore) Get(ctx context.Context, id string) (*models.EmojiRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (s *JSONStore) Put(ctx context.Context, rec *models.EmojiRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[rec.ID] = *rec
	return s.save()
}

func (s *JSONStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return ErrNotFound
	}
	delete(s.records, id)
	return s.save()
}

func (s *JSONStore) Touch(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok {
		return ErrNotFound
	}
	r.UsageCount++
	r.LastUsedAt = time.Now()
	s.records[id] = r
	return s.save()
}

func (s *JSONStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}
