// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"osint-platform/pkg/config"
)

// ErrNotFound 会话不存在
var ErrNotFound = errors.New("session not found")

// Store 会话持久化抽象；保存的是导出快照，读取返回独立副本
type Store interface {
	Save(ctx context.Context, s *Session) error
	Load(ctx context.Context, id string) (*Session, error)
	List(ctx context.Context) ([]Summary, error)
	Delete(ctx context.Context, id string) error
}

// NewStore 按配置创建存储：memory | file | sqlite | postgres
func NewStore(ctx context.Context, cfg config.SessionStoreConfig) (Store, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemoryStore(), nil
	case "file":
		return NewFileStore(cfg.Dir)
	case "sqlite":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = filepath.Join(cfg.Dir, "sessions.db")
		}
		return NewSQLiteStore(dsn)
	case "postgres":
		return NewPostgresStore(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown session store type %q", cfg.Type)
	}
}

// MemoryStore 内存实现（map + mutex）
type MemoryStore struct {
	mu   sync.RWMutex
	sess map[string][]byte
}

// NewMemoryStore 创建内存会话存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sess: make(map[string][]byte)}
}

// Save 实现 Store
func (m *MemoryStore) Save(ctx context.Context, s *Session) error {
	if s == nil {
		return nil
	}
	data, err := s.Export()
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess[s.ID] = data
	return nil
}

// Load 实现 Store
func (m *MemoryStore) Load(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	data, ok := m.sess[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return Import(data)
}

// List 实现 Store
func (m *MemoryStore) List(ctx context.Context) ([]Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Summary, 0, len(m.sess))
	for _, data := range m.sess {
		s, err := Import(data)
		if err != nil {
			return nil, err
		}
		out = append(out, s.Summary())
	}
	sortSummaries(out)
	return out, nil
}

// Delete 实现 Store
func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sess[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(m.sess, id)
	return nil
}

// FileStore 每个会话一个 JSON 文件
type FileStore struct {
	dir string
}

var validID = regexp.MustCompile(`^[A-Za-z0-9_\-]+$`)

// NewFileStore 创建文件存储，目录不存在时创建
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = "sessions"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建会话目录失败: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(id string) (string, error) {
	if !validID.MatchString(id) {
		return "", fmt.Errorf("invalid session id %q", id)
	}
	return filepath.Join(f.dir, id+".json"), nil
}

// Save 实现 Store；先写临时文件再改名
func (f *FileStore) Save(ctx context.Context, s *Session) error {
	if s == nil {
		return nil
	}
	p, err := f.path(s.ID)
	if err != nil {
		return err
	}
	data, err := s.Export()
	if err != nil {
		return err
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("写入会话失败: %w", err)
	}
	return os.Rename(tmp, p)
}

// Load 实现 Store
func (f *FileStore) Load(ctx context.Context, id string) (*Session, error) {
	p, err := f.path(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return Import(data)
}

// List 实现 Store；无法解析的文件跳过
func (f *FileStore) List(ctx context.Context) ([]Summary, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, err
	}
	var out []Summary
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(f.dir, e.Name()))
		if err != nil {
			continue
		}
		s, err := Import(data)
		if err != nil {
			continue
		}
		out = append(out, s.Summary())
	}
	sortSummaries(out)
	return out, nil
}

// Delete 实现 Store
func (f *FileStore) Delete(ctx context.Context, id string) error {
	p, err := f.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return err
	}
	return nil
}

func sortSummaries(list []Summary) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].StartedAt.Equal(list[j].StartedAt) {
			return list[i].StartedAt.After(list[j].StartedAt)
		}
		return list[i].ID < list[j].ID
	})
}
