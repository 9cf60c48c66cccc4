package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/linkedlist771/magic-image-private/config"
	"github.com/linkedlist771/magic-image-private/internal/database"
	"github.com/linkedlist771/magic-image-private/types"
)

// =============================================================================
// 🧪 读-改-写测试
// =============================================================================

func exerciseUpdater(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()
	u, ok := kv.(Updater)
	require.True(t, ok)

	require.NoError(t, u.Update(ctx, "counter", func(old string, ok bool) (string, bool, error) {
		assert.False(t, ok)
		return "1", true, nil
	}))
	require.NoError(t, u.Update(ctx, "counter", func(old string, ok bool) (string, bool, error) {
		assert.True(t, ok)
		assert.Equal(t, "1", old)
		return old + "1", true, nil
	}))

	// write=false 不改动
	require.NoError(t, u.Update(ctx, "counter", func(string, bool) (string, bool, error) {
		return "ignored", false, nil
	}))

	boom := errors.New("boom")
	err := u.Update(ctx, "counter", func(string, bool) (string, bool, error) {
		return "ignored", true, boom
	})
	assert.ErrorIs(t, err, boom)

	v, _, err := kv.Get(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, "11", v)
}

func openSQLite(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), config.StorageConfig{
		Driver:       "sqlite",
		DSN:          filepath.Join(t.TempDir(), "store.db"),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestMemoryKV_Update(t *testing.T) {
	exerciseUpdater(t, NewMemoryKV())
}

func TestSQLKV_Update(t *testing.T) {
	exerciseUpdater(t, openSQLite(t).kv)
}

// 并发追加历史不丢失更新
func TestStore_ConcurrentAddHistory(t *testing.T) {
	backends := map[string]func(t *testing.T) *Store{
		"memory": func(*testing.T) *Store { return NewStore(NewMemoryKV()) },
		"sqlite": openSQLite,
	}

	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()

			const n = 16
			var wg sync.WaitGroup
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, err := s.AddHistory(ctx, types.HistoryEntry{
						ID:     fmt.Sprintf("h-%d", i),
						Prompt: "p",
						URL:    "https://x/img.png",
					})
					assert.NoError(t, err)
				}(i)
			}
			wg.Wait()

			entries, err := s.History(ctx)
			require.NoError(t, err)
			assert.Len(t, entries, n)
		})
	}
}

func newMockSQLKV(t *testing.T) (*SQLKV, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB}), &gorm.Config{})
	require.NoError(t, err)

	pool, err := database.NewPoolManager(gormDB, database.DefaultPoolConfig(), zap.NewNop())
	require.NoError(t, err)
	return &SQLKV{pool: pool}, mock
}

func TestSQLKV_UpdateLocksRowOnPostgres(t *testing.T) {
	kv, mock := newMockSQLKV(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "kv_entries" WHERE entry_key = .* FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"entry_key", "entry_value", "updated_at"}).
			AddRow("k", "v1", fixedNow))
	mock.ExpectCommit()

	var seen string
	err := kv.Update(context.Background(), "k", func(old string, ok bool) (string, bool, error) {
		seen = old
		return "", false, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "v1", seen)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLKV_UpdateRollsBackOnCallbackError(t *testing.T) {
	kv, mock := newMockSQLKV(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "kv_entries" WHERE entry_key = .* FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"entry_key", "entry_value", "updated_at"}))
	mock.ExpectRollback()

	invalid := types.NewValidationError("bad record")
	err := kv.Update(context.Background(), "k", func(old string, ok bool) (string, bool, error) {
		assert.False(t, ok)
		return "", false, invalid
	})
	assert.Same(t, invalid, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
