package profilecache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rediscache "github.com/ambermind/chat-controller/internal/infrastructure/cache/redis"
	"github.com/ambermind/chat-controller/internal/pkg/encryption"
	"github.com/ambermind/chat-controller/internal/services/profilecache"
)

func newTestService(t *testing.T) (profilecache.Service, *rediscache.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cacheClient, err := rediscache.NewClient(rediscache.Config{
		Host:       mr.Host(),
		Port:       mr.Port(),
		DefaultTTL: time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cacheClient.Close() })

	encryptor, err := encryption.NewAESEncryptor("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)

	svc, err := profilecache.NewService(&profilecache.Config{
		CacheClient: cacheClient,
		Encryptor:   encryptor,
	})
	require.NoError(t, err)

	return svc, cacheClient
}

func TestNewService_Validation(t *testing.T) {
	// Arrange
	encryptor := encryption.NewNoOpEncryptor()

	tests := []struct {
		name string
		cfg  *profilecache.Config
	}{
		{name: "nil config", cfg: nil},
		{name: "missing cache client", cfg: &profilecache.Config{Encryptor: encryptor}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			svc, err := profilecache.NewService(tt.cfg)

			// Assert
			assert.Error(t, err)
			assert.Nil(t, svc)
		})
	}
}

func TestService_SetGet(t *testing.T) {
	// Arrange
	svc, _ := newTestService(t)
	ctx := context.Background()

	profile := &profilecache.Profile{
		UserID:   "u1",
		Username: "alice",
		IsAdmin:  true,
	}

	// Act
	require.NoError(t, svc.Set(ctx, profile))
	got, err := svc.Get(ctx, "u1")

	// Assert
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "alice", got.Username)
	assert.True(t, got.IsAdmin)
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestService_Get_Missing(t *testing.T) {
	// Arrange
	svc, _ := newTestService(t)

	// Act
	got, err := svc.Get(context.Background(), "nobody")

	// Assert
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestService_Get_CorruptedEntryDropped(t *testing.T) {
	// Arrange
	svc, cacheClient := newTestService(t)
	ctx := context.Background()

	// Not valid ciphertext for the configured key.
	require.NoError(t, cacheClient.Set(ctx, "profile:u1", []byte("garbage"), time.Minute))

	// Act
	got, err := svc.Get(ctx, "u1")

	// Assert
	require.NoError(t, err)
	assert.Nil(t, got)

	// The stale entry must have been evicted.
	raw, err := cacheClient.Get(ctx, "profile:u1")
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestService_Delete(t *testing.T) {
	// Arrange
	svc, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.Set(ctx, &profilecache.Profile{UserID: "u1", Username: "alice"}))

	// Act
	require.NoError(t, svc.Delete(ctx, "u1"))
	got, err := svc.Get(ctx, "u1")

	// Assert
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestService_Set_NilProfile(t *testing.T) {
	// Arrange
	svc, _ := newTestService(t)

	// Act / Assert
	assert.Error(t, svc.Set(context.Background(), nil))
}
