package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNotFound 持久化介质里没有会话快照
var ErrNotFound = errors.New("会话快照不存在")

// Storage 会话快照的持久化后端。快照整体读写，不做局部更新。
type Storage interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
	Clear(ctx context.Context) error
}

// FileStorage 把会话快照存成本地 JSON 文件
type FileStorage struct {
	path string
}

func NewFileStorage(path string) (*FileStorage, error) {
	if path == "" {
		return nil, fmt.Errorf("会话文件路径不能为空")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("创建会话目录失败: %w", err)
	}
	return &FileStorage{path: path}, nil
}

func (f *FileStorage) Load(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("读取会话文件失败: %w", err)
	}
	return data, nil
}

// Save 先写临时文件再改名，避免半写状态
func (f *FileStorage) Save(_ context.Context, data []byte) error {
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("写入会话文件失败: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("替换会话文件失败: %w", err)
	}
	return nil
}

func (f *FileStorage) Clear(_ context.Context) error {
	err := os.Remove(f.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("删除会话文件失败: %w", err)
	}
	return nil
}
