package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"motorent-backend/internal/domain"
	"motorent-backend/internal/repository"
)

type MockPoolRepository struct {
	mock.Mock
}

func (m *MockPoolRepository) GetPoolByID(ctx context.Context, id int32) (*domain.VehiclePool, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VehiclePool), args.Error(1)
}

type fakeKV struct {
	data   map[string]string
	getErr error
	ttls   map[string]time.Duration
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeKV) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeKV) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.data[key] = string(value.([]byte))
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func TestPoolCache_ReadThrough(t *testing.T) {
	ctx := context.Background()
	repo := new(MockPoolRepository)
	pool := &domain.VehiclePool{ID: 5, Name: "Old Town", ShopIDs: []int32{1, 2}}
	repo.On("GetPoolByID", ctx, int32(5)).Return(pool, nil).Once()

	store := newFakeKV()
	c := &PoolCache{next: repo, client: store, ttl: time.Minute}

	first, err := c.GetPoolByID(ctx, 5)
	require.NoError(t, err)
	second, err := c.GetPoolByID(ctx, 5)
	require.NoError(t, err)

	assert.Equal(t, pool, first)
	assert.Equal(t, []int32{1, 2}, second.ShopIDs)
	assert.Equal(t, time.Minute, store.ttls["motorent:pool:5"])
	repo.AssertExpectations(t)
}

func TestPoolCache_FallsThroughOnRedisError(t *testing.T) {
	ctx := context.Background()
	repo := new(MockPoolRepository)
	repo.On("GetPoolByID", ctx, int32(5)).Return(&domain.VehiclePool{ID: 5}, nil).Twice()

	store := newFakeKV()
	store.getErr = errors.New("connection refused")
	c := &PoolCache{next: repo, client: store, ttl: time.Minute}

	for i := 0; i < 2; i++ {
		_, err := c.GetPoolByID(ctx, 5)
		require.NoError(t, err)
	}
	repo.AssertExpectations(t)
}

func TestPoolCache_DoesNotCacheMisses(t *testing.T) {
	ctx := context.Background()
	repo := new(MockPoolRepository)
	repo.On("GetPoolByID", ctx, int32(9)).Return(nil, repository.ErrNotFound)

	store := newFakeKV()
	c := &PoolCache{next: repo, client: store, ttl: time.Minute}

	_, err := c.GetPoolByID(ctx, 9)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Empty(t, store.data)
}

func TestPoolCache_Disabled(t *testing.T) {
	ctx := context.Background()
	repo := new(MockPoolRepository)
	repo.On("GetPoolByID", ctx, int32(1)).Return(&domain.VehiclePool{ID: 1}, nil)

	c := NewPoolCache(repo, nil, time.Minute)
	_, err := c.GetPoolByID(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, NewRedisClient("", "", 0))
}
