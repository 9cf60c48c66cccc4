package storage

import (
	"context"
	"encoding/json"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/linkedlist771/magic-image-private/config"
	"github.com/linkedlist771/magic-image-private/types"
)

// 持久化键名，与历史数据保持兼容
const (
	KeyAPICredential     = "ai-drawing-api-config"
	KeyHistory           = "ai-drawing-history"
	KeyCustomModels      = "ai-drawing-custom-models"
	KeyLastSelectedModel = "ai-drawing-last-selected-model"
)

// =============================================================================
// 🗃️ Store
// =============================================================================

// Store 在 KV 后端之上提供四类记录的类型化访问。
// 读-改-写没有事务隔离，多个进程同时写同一后端可能丢失更新。
type Store struct {
	kv      KV
	prefix  string
	baseURL string
	now     func() time.Time
	newID   func() string
	logger  *zap.Logger
}

// Option Store 选项
type Option func(*Store)

// WithKeyPrefix 所有键加前缀
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// WithBaseURL 覆盖固定的 API 地址
func WithBaseURL(u string) Option {
	return func(s *Store) { s.baseURL = u }
}

// WithClock 注入时钟
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator 注入 ID 生成器
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore 创建 Store，kv 为 nil 时使用 NopKV
func NewStore(kv KV, opts ...Option) *Store {
	if kv == nil {
		kv = NopKV{}
	}
	s := &Store{
		kv:      kv,
		baseURL: config.FixedAPIURL,
		now:     time.Now,
		newID:   uuid.NewString,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("component", "store"))
	return s
}

// Available 当前后端是否可持久化
func (s *Store) Available() bool {
	return s.kv.Available()
}

// Close 关闭后端（如果后端持有连接）
func (s *Store) Close() error {
	if c, ok := s.kv.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

func (s *Store) key(k string) string {
	return s.prefix + k
}

func storageError(op string, err error) error {
	return types.NewError(types.ErrStorage, "storage "+op+" failed").WithCause(err)
}

// load 读取并解码 JSON。键不存在或内容损坏时返回 false
func (s *Store) load(ctx context.Context, key string, dest any) (bool, error) {
	raw, ok, err := s.kv.Get(ctx, s.key(key))
	if err != nil {
		return false, storageError("read", err)
	}
	if !ok || raw == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		s.logger.Warn("discarding malformed record", zap.String("key", key), zap.Error(err))
		return false, nil
	}
	return true, nil
}

func (s *Store) save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return storageError("encode", err)
	}
	if err := s.kv.Set(ctx, s.key(key), string(data)); err != nil {
		return storageError("write", err)
	}
	return nil
}

// modifyRecord 对 JSON 记录执行读-改-写，fn 返回 changed=false 时不写回。
// 后端实现 Updater 时整个过程在一次原子操作内完成
func modifyRecord[T any](ctx context.Context, s *Store, key string, fn func(cur T) (next T, changed bool, err error)) (bool, error) {
	var applyErr error
	apply := func(raw string, ok bool) (string, bool, error) {
		var cur T
		if ok && raw != "" {
			if err := json.Unmarshal([]byte(raw), &cur); err != nil {
				s.logger.Warn("discarding malformed record", zap.String("key", key), zap.Error(err))
				var zero T
				cur = zero
			}
		}
		next, changed, err := fn(cur)
		if err != nil {
			applyErr = err
			return "", false, err
		}
		if !changed {
			return "", false, nil
		}
		data, err := json.Marshal(next)
		if err != nil {
			applyErr = storageError("encode", err)
			return "", false, applyErr
		}
		return string(data), true, nil
	}

	var written bool
	if u, ok := s.kv.(Updater); ok {
		err := u.Update(ctx, s.key(key), func(raw string, ok bool) (string, bool, error) {
			value, write, err := apply(raw, ok)
			written = write
			return value, write, err
		})
		if applyErr != nil {
			return false, applyErr
		}
		if err != nil {
			return false, storageError("update", err)
		}
		return written, nil
	}

	raw, ok, err := s.kv.Get(ctx, s.key(key))
	if err != nil {
		return false, storageError("read", err)
	}
	value, write, err := apply(raw, ok)
	if err != nil || !write {
		return false, err
	}
	if err := s.kv.Set(ctx, s.key(key), value); err != nil {
		return false, storageError("write", err)
	}
	return true, nil
}

func (s *Store) remove(ctx context.Context, key string) error {
	if err := s.kv.Remove(ctx, s.key(key)); err != nil {
		return storageError("remove", err)
	}
	return nil
}

// =============================================================================
// 🔐 凭证
// =============================================================================

// APICredential 读取凭证
func (s *Store) APICredential(ctx context.Context) (types.APICredential, bool, error) {
	var cred types.APICredential
	ok, err := s.load(ctx, KeyAPICredential, &cred)
	if err != nil || !ok {
		return types.APICredential{}, false, err
	}
	return cred, cred.Key != "", nil
}

// SaveAPICredential 保存 bearer key，地址固定为部署地址
func (s *Store) SaveAPICredential(ctx context.Context, key string) (types.APICredential, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return types.APICredential{}, types.NewValidationError("api key must not be empty")
	}
	cred := types.APICredential{
		Key:       key,
		BaseURL:   s.baseURL,
		CreatedAt: types.Timestamp(s.now()),
	}
	if err := s.save(ctx, KeyAPICredential, cred); err != nil {
		return types.APICredential{}, err
	}
	s.logger.Info("api credential saved", zap.String("key", cred.MaskedKey()))
	return cred, nil
}

// RemoveAPICredential 删除凭证
func (s *Store) RemoveAPICredential(ctx context.Context) error {
	return s.remove(ctx, KeyAPICredential)
}

// MigrateEndpoint 启动时执行一次：把已存凭证的地址改写为固定地址，
// 只有发生变化时才写入，返回是否写入
func (s *Store) MigrateEndpoint(ctx context.Context) (bool, error) {
	var cred types.APICredential
	ok, err := s.load(ctx, KeyAPICredential, &cred)
	if err != nil || !ok {
		return false, err
	}

	// http: 地址与旧地址都统一改写为固定地址
	if cred.BaseURL == s.baseURL {
		return false, nil
	}

	s.logger.Info("migrating stored endpoint",
		zap.String("from", cred.BaseURL),
		zap.String("to", s.baseURL),
	)
	cred.BaseURL = s.baseURL
	if err := s.save(ctx, KeyAPICredential, cred); err != nil {
		return false, err
	}
	return true, nil
}

// =============================================================================
// 🕘 历史记录
// =============================================================================

// History 返回历史记录，最新的在前
func (s *Store) History(ctx context.Context) ([]types.HistoryEntry, error) {
	var entries []types.HistoryEntry
	if _, err := s.load(ctx, KeyHistory, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// AddHistory 在头部插入一条记录，缺省的 ID 与时间会被补齐
func (s *Store) AddHistory(ctx context.Context, entry types.HistoryEntry) (types.HistoryEntry, error) {
	if entry.ID == "" {
		entry.ID = s.newID()
	}
	if entry.CreatedAt == "" {
		entry.CreatedAt = types.Timestamp(s.now())
	}

	_, err := modifyRecord(ctx, s, KeyHistory, func(entries []types.HistoryEntry) ([]types.HistoryEntry, bool, error) {
		return append([]types.HistoryEntry{entry}, entries...), true, nil
	})
	if err != nil {
		return types.HistoryEntry{}, err
	}
	return entry, nil
}

// RemoveHistory 按 ID 删除，返回是否找到
func (s *Store) RemoveHistory(ctx context.Context, id string) (bool, error) {
	return modifyRecord(ctx, s, KeyHistory, func(entries []types.HistoryEntry) ([]types.HistoryEntry, bool, error) {
		kept := slices.DeleteFunc(slices.Clone(entries), func(e types.HistoryEntry) bool { return e.ID == id })
		return kept, len(kept) != len(entries), nil
	})
}

// ClearHistory 清空历史
func (s *Store) ClearHistory(ctx context.Context) error {
	return s.remove(ctx, KeyHistory)
}

// =============================================================================
// 🧩 自定义模型
// =============================================================================

// CustomModelPatch 部分更新，nil 字段保持不变
type CustomModelPatch struct {
	Name  *string
	Value *string
	Type  *types.Variant
}

// CustomModels 按插入顺序返回自定义模型
func (s *Store) CustomModels(ctx context.Context) ([]types.CustomModel, error) {
	var models []types.CustomModel
	if _, err := s.load(ctx, KeyCustomModels, &models); err != nil {
		return nil, err
	}
	return models, nil
}

// CustomModel 按 ID 查找
func (s *Store) CustomModel(ctx context.Context, id string) (types.CustomModel, bool, error) {
	return s.findModel(ctx, func(m types.CustomModel) bool { return m.ID == id })
}

// FindCustomModelByValue 按模型标识查找
func (s *Store) FindCustomModelByValue(ctx context.Context, value string) (types.CustomModel, bool, error) {
	return s.findModel(ctx, func(m types.CustomModel) bool { return m.Value == value })
}

func (s *Store) findModel(ctx context.Context, match func(types.CustomModel) bool) (types.CustomModel, bool, error) {
	models, err := s.CustomModels(ctx)
	if err != nil {
		return types.CustomModel{}, false, err
	}
	for _, m := range models {
		if match(m) {
			return m, true, nil
		}
	}
	return types.CustomModel{}, false, nil
}

// AddCustomModel 追加自定义模型，ID 为空时分配 uuid
func (s *Store) AddCustomModel(ctx context.Context, model types.CustomModel) (types.CustomModel, error) {
	model.Value = strings.TrimSpace(model.Value)
	if model.Value == "" {
		return types.CustomModel{}, types.NewValidationError("model value must not be empty")
	}
	variant, err := types.ParseVariant(string(model.Type))
	if err != nil {
		return types.CustomModel{}, types.NewValidationError(err.Error())
	}
	model.Type = variant
	if strings.TrimSpace(model.Name) == "" {
		model.Name = model.Value
	}
	if model.ID == "" {
		model.ID = s.newID()
	}

	_, err = modifyRecord(ctx, s, KeyCustomModels, func(models []types.CustomModel) ([]types.CustomModel, bool, error) {
		return append(models, model), true, nil
	})
	if err != nil {
		return types.CustomModel{}, err
	}
	return model, nil
}

// UpdateCustomModel 合并 patch，ID 不存在时返回 false
func (s *Store) UpdateCustomModel(ctx context.Context, id string, patch CustomModelPatch) (bool, error) {
	if patch.Type != nil {
		variant, err := types.ParseVariant(string(*patch.Type))
		if err != nil {
			return false, types.NewValidationError(err.Error())
		}
		patch.Type = &variant
	}

	return modifyRecord(ctx, s, KeyCustomModels, func(models []types.CustomModel) ([]types.CustomModel, bool, error) {
		i := slices.IndexFunc(models, func(m types.CustomModel) bool { return m.ID == id })
		if i < 0 {
			return nil, false, nil
		}
		if patch.Name != nil {
			models[i].Name = *patch.Name
		}
		if patch.Value != nil {
			models[i].Value = *patch.Value
		}
		if patch.Type != nil {
			models[i].Type = *patch.Type
		}
		return models, true, nil
	})
}

// RemoveCustomModel 按 ID 删除，返回是否找到
func (s *Store) RemoveCustomModel(ctx context.Context, id string) (bool, error) {
	return modifyRecord(ctx, s, KeyCustomModels, func(models []types.CustomModel) ([]types.CustomModel, bool, error) {
		kept := slices.DeleteFunc(slices.Clone(models), func(m types.CustomModel) bool { return m.ID == id })
		return kept, len(kept) != len(models), nil
	})
}

// =============================================================================
// 📌 上次选择的模型
// =============================================================================

// LastSelectedModel 读取上次选择的模型（原样字符串存储）
func (s *Store) LastSelectedModel(ctx context.Context) (string, bool, error) {
	v, ok, err := s.kv.Get(ctx, s.key(KeyLastSelectedModel))
	if err != nil {
		return "", false, storageError("read", err)
	}
	return v, ok && v != "", nil
}

// SetLastSelectedModel 记录选择的模型
func (s *Store) SetLastSelectedModel(ctx context.Context, model string) error {
	if err := s.kv.Set(ctx, s.key(KeyLastSelectedModel), model); err != nil {
		return storageError("write", err)
	}
	return nil
}
