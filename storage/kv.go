package storage

import (
	"context"
	"sync"
)

// =============================================================================
// 🔑 键值后端
// =============================================================================

// KV 持久化键值后端。Get 在键不存在时返回 ok=false 而不是错误。
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	// Available 为 false 表示当前环境没有持久化能力，所有读取为空、写入为 no-op
	Available() bool
}

// UpdateFunc 读-改-写回调：old/ok 为当前值，write 为 false 时不写入
type UpdateFunc func(old string, ok bool) (value string, write bool, err error)

// Updater 后端可在一次原子操作内完成读-改-写。
// 未实现该接口的后端由 Store 退化为 Get 后 Set
type Updater interface {
	Update(ctx context.Context, key string, fn UpdateFunc) error
}

// MemoryKV 进程内键值后端，测试与 driver=memory 使用
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryKV 创建内存后端
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]string)}
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MemoryKV) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemoryKV) Available() bool { return true }

// Update 持有写锁完成读-改-写
func (m *MemoryKV) Update(_ context.Context, key string, fn UpdateFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.data[key]
	value, write, err := fn(old, ok)
	if err != nil || !write {
		return err
	}
	m.data[key] = value
	return nil
}

// Len 返回键数量
func (m *MemoryKV) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// NopKV 无持久化环境下的后端
type NopKV struct{}

func (NopKV) Get(context.Context, string) (string, bool, error) { return "", false, nil }
func (NopKV) Set(context.Context, string, string) error          { return nil }
func (NopKV) Remove(context.Context, string) error               { return nil }
func (NopKV) Available() bool                                    { return false }
