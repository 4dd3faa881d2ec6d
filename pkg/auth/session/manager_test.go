package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/giftledger-backend/pkg/config"
)

type mockStore struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
}

func newMockStore() *mockStore {
	return &mockStore{data: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (m *mockStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = ttl
	return nil
}

func (m *mockStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return val, nil
}

func (m *mockStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *mockStore) AccessSessionKey(accessID string) string {
	return "sess:" + accessID
}

func TestManagerOpenCheckRevoke(t *testing.T) {
	store := newMockStore()
	manager := &Manager{store: store, keyer: store, ttl: time.Hour}
	ctx := context.Background()

	require.NoError(t, manager.Open(ctx, "access-1", "user-1"))
	assert.Equal(t, "user-1", store.data["sess:access-1"])
	assert.Equal(t, time.Hour, store.ttls["sess:access-1"])

	ok, err := manager.HasSession(ctx, "access-1")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, manager.Revoke(ctx, "access-1"))
	ok, err = manager.HasSession(ctx, "access-1")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, manager.Revoke(ctx, "access-1"))
}

func TestManagerRejectsBlankIDs(t *testing.T) {
	store := newMockStore()
	manager := &Manager{store: store, keyer: store, ttl: time.Hour}
	ctx := context.Background()

	assert.Error(t, manager.Open(ctx, " ", "user"))
	assert.Error(t, manager.Revoke(ctx, ""))
	_, err := manager.HasSession(ctx, "")
	assert.Error(t, err)
}

func TestNewManagerValidation(t *testing.T) {
	_, err := NewManager(nil, config.JWTConfig{ExpirationMinutes: 10})
	assert.Error(t, err)
}
