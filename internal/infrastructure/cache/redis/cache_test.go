package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rediscache "github.com/ambermind/chat-controller/internal/infrastructure/cache/redis"
)

func newTestClient(t *testing.T) (*rediscache.Client, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := rediscache.NewClient(rediscache.Config{
		Host:       mr.Host(),
		Port:       mr.Port(),
		DefaultTTL: time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client, mr
}

func TestClient_SetGet(t *testing.T) {
	// Arrange
	client, _ := newTestClient(t)
	ctx := context.Background()

	// Act
	err := client.Set(ctx, "key1", []byte("value1"), time.Minute)
	require.NoError(t, err)

	val, err := client.Get(ctx, "key1")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []byte("value1"), val)
}

func TestClient_Get_MissingKeyReturnsNil(t *testing.T) {
	// Arrange
	client, _ := newTestClient(t)

	// Act
	val, err := client.Get(context.Background(), "missing")

	// Assert
	require.NoError(t, err)
	assert.Nil(t, val)
}

func TestClient_Set_ZeroTTLUsesDefault(t *testing.T) {
	// Arrange
	client, mr := newTestClient(t)
	ctx := context.Background()

	// Act
	require.NoError(t, client.Set(ctx, "key1", []byte("value1"), 0))

	// Assert
	assert.Equal(t, time.Minute, mr.TTL("key1"))
}

func TestClient_Delete(t *testing.T) {
	// Arrange
	client, _ := newTestClient(t)
	ctx := context.Background()
	require.NoError(t, client.Set(ctx, "key1", []byte("value1"), time.Minute))

	// Act
	deleted, err := client.Delete(ctx, "key1")
	require.NoError(t, err)
	missing, err2 := client.Delete(ctx, "key1")

	// Assert
	assert.True(t, deleted)
	require.NoError(t, err2)
	assert.False(t, missing)
}

func TestClient_PublishSubscribe(t *testing.T) {
	// Arrange
	client, _ := newTestClient(t)
	ctx := context.Background()

	sub, err := client.Subscribe(ctx, "chats:u1")
	require.NoError(t, err)
	defer sub.Close()

	// Act
	require.NoError(t, client.Publish(ctx, "chats:u1", []byte("changed")))

	// Assert
	select {
	case payload := <-sub.Messages():
		assert.Equal(t, []byte("changed"), payload)
	case <-time.After(time.Second):
		t.Fatal("published payload never arrived")
	}
}

func TestClient_Subscribe_OtherChannelNotDelivered(t *testing.T) {
	// Arrange
	client, _ := newTestClient(t)
	ctx := context.Background()

	sub, err := client.Subscribe(ctx, "chats:u1")
	require.NoError(t, err)
	defer sub.Close()

	// Act
	require.NoError(t, client.Publish(ctx, "chats:u2", []byte("changed")))

	// Assert
	select {
	case payload := <-sub.Messages():
		t.Fatalf("unexpected delivery: %s", payload)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSubscription_Close_Idempotent(t *testing.T) {
	// Arrange
	client, _ := newTestClient(t)
	sub, err := client.Subscribe(context.Background(), "chats:u1")
	require.NoError(t, err)

	// Act / Assert
	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())
}

func TestClient_Ping(t *testing.T) {
	// Arrange
	client, mr := newTestClient(t)

	// Act / Assert
	require.NoError(t, client.Ping(context.Background()))

	mr.Close()
	assert.Error(t, client.Ping(context.Background()))
}
