package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"signal_bot/internal/models"
)

const defaultPath = "data/model.json"

// Store: модель в json-файле рядом с ботом.
type Store struct {
	path string
	mu   sync.Mutex
}

func New(path string) *Store {
	if path == "" {
		path = defaultPath
	}
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

type snapshot struct {
	UpdatedAt time.Time `json:"updated_at"`
	Blob      []byte    `json:"blob"`
}

func (s *Store) Load(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, models.ErrModelNotFound
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	var snap snapshot
	if err := sonic.Unmarshal(b, &snap); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	if len(snap.Blob) == 0 {
		return nil, models.ErrModelNotFound
	}
	return snap.Blob, nil
}

// Save пишет через временный файл и rename, чтобы не оставить половину модели.
func (s *Store) Save(ctx context.Context, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := sonic.Marshal(snapshot{UpdatedAt: time.Now().UTC(), Blob: blob})
	if err != nil {
		return fmt.Errorf("encode model: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}
