package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sync"

	"github.com/serroba/linkbot/internal/chat"
	"github.com/serroba/linkbot/internal/tokens"
	"go.uber.org/zap"
)

// FileTokenStore keeps tokens in a JSON object file keyed by chat id string:
//
//	{"123456": "c49399f821fc..."}
//
// Writes rewrite the whole file through a temp file and rename, serialised by
// a mutex, so readers never observe a partial record set.
type FileTokenStore struct {
	path   string
	mu     sync.RWMutex
	tokens map[string]string
}

// NewFileTokenStore loads path. A missing or unreadable file yields an empty
// store.
func NewFileTokenStore(path string, logger *zap.Logger) *FileTokenStore {
	s := &FileTokenStore{
		path:   path,
		tokens: make(map[string]string),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn("token file unreadable, starting empty", zap.String("path", path), zap.Error(err))
		}

		return s
	}

	if err := json.Unmarshal(data, &s.tokens); err != nil {
		logger.Warn("token file corrupt, starting empty", zap.String("path", path), zap.Error(err))

		s.tokens = make(map[string]string)
	}

	if s.tokens == nil {
		s.tokens = make(map[string]string)
	}

	return s
}

func (s *FileTokenStore) Get(_ context.Context, chatID chat.ID) (tokens.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	token, ok := s.tokens[chatID.String()]
	if !ok {
		return "", tokens.ErrNotFound
	}

	return tokens.Token(token), nil
}

func (s *FileTokenStore) Set(_ context.Context, chatID chat.ID, token tokens.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := maps.Clone(s.tokens)
	next[chatID.String()] = string(token)

	if err := s.write(next); err != nil {
		return fmt.Errorf("persist token for chat %d: %w", chatID, err)
	}

	s.tokens = next

	return nil
}

func (s *FileTokenStore) write(data map[string]string) error {
	content, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp.*")
	if err != nil {
		return err
	}

	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(append(content, '\n')); err != nil {
		return err
	}

	if err := tmp.Sync(); err != nil {
		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpPath, s.path)
}

var _ tokens.Store = (*FileTokenStore)(nil)
