package redis

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medimatch/medimatch/internal/config"
	"github.com/medimatch/medimatch/internal/infrastructure/monitoring/logging"
)

func TestClient_CloseIsIdempotent(t *testing.T) {
	db, _ := redismock.NewClientMock()
	client := &Client{rdb: db, log: logging.NewNopLogger()}

	require.NoError(t, client.Close())
	require.NoError(t, client.Close())
	assert.True(t, client.isClosed())
}

func TestClient_PingAfterClose(t *testing.T) {
	db, _ := redismock.NewClientMock()
	client := &Client{rdb: db, log: logging.NewNopLogger()}
	require.NoError(t, client.Close())

	assert.Equal(t, ErrClientClosed, client.Ping(context.Background()))
}

func TestNewClient_Unreachable(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping connection test in short mode")
	}

	cfg := config.RedisConfig{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
	}
	_, err := NewClient(cfg, nil)
	assert.Equal(t, ErrConnectionFailed, err)
}
