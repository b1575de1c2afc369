package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// ErrCorruptFile は保存ファイルをJSONとして解析できない場合のエラー。
// 読み取りではエラーを返し、SetManyとDeleteではファイルを書き直す。
var ErrCorruptFile = errors.New("corrupt storage file")

// FileStore はJSONファイル1つに全エントリを保存するStore実装。
// 書き込みは一時ファイルへの書き出しとリネームで行い、途中状態のファイルを残さない。
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore はFileStoreを生成する。ファイルは最初の書き込み時に作成される。
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path は保存先のファイルパスを返す。
func (s *FileStore) Path() string {
	return s.path
}

// Get はキーの値を取得する。
func (s *FileStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return "", false, err
	}
	v, ok := entries[key]
	return v, ok, nil
}

// SetMany は複数エントリをまとめて書き込む。
func (s *FileStore) SetMany(_ context.Context, entries map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.loadForWrite()
	if err != nil {
		return err
	}
	for k, v := range entries {
		current[k] = v
	}
	return s.save(current)
}

// Delete は指定キーを削除する。
func (s *FileStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load()
	changed := false
	if errors.Is(err, ErrCorruptFile) {
		// 壊れたファイルは空として書き直す
		current, changed = make(map[string]string), true
	} else if err != nil {
		return err
	}
	for _, k := range keys {
		if _, ok := current[k]; ok {
			delete(current, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.save(current)
}

// load はファイルから全エントリを読み込む。ファイルが存在しない場合は空マップを返す。
func (s *FileStore) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read storage file: %w", err)
	}
	if len(data) == 0 {
		return make(map[string]string), nil
	}

	entries := make(map[string]string)
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: failed to parse storage file %s: %w", ErrCorruptFile, s.path, err)
	}
	return entries, nil
}

// loadForWrite は書き込み用に全エントリを読み込む。
// 解析できないファイルは空として扱い、次の保存で上書きする。
func (s *FileStore) loadForWrite() (map[string]string, error) {
	entries, err := s.load()
	if errors.Is(err, ErrCorruptFile) {
		return make(map[string]string), nil
	}
	return entries, err
}

// save は全エントリを一時ファイル経由で書き込む。
func (s *FileStore) save(entries map[string]string) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode storage file: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".storage-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // リネーム成功後は存在しないため無視される

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace storage file: %w", err)
	}
	return nil
}

var _ Store = (*FileStore)(nil)
