package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/model"
)

// FileStore appends results as JSON lines. It backs the CLI when no database is configured.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Record(_ context.Context, res model.BookingResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	line, err := json.Marshal(res)
	if err != nil {
		return err
	}
	_, err = f.Write(append(line, '\n'))
	return err
}

func (s *FileStore) Summary(ctx context.Context) (model.SuccessRate, error) {
	all, err := s.all()
	if err != nil {
		return model.SuccessRate{}, err
	}
	successful := 0
	for _, r := range all {
		if r.Success {
			successful++
		}
	}
	return model.NewSuccessRate(len(all), successful), nil
}

func (s *FileStore) Recent(_ context.Context, limit int) ([]model.BookingResult, error) {
	all, err := s.all()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Timestamp.After(all[j].Timestamp) })
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *FileStore) all() ([]model.BookingResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []model.BookingResult
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4<<20)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var r model.BookingResult
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			// A torn last line from a crash is skipped.
			continue
		}
		out = append(out, r)
	}
	return out, sc.Err()
}
