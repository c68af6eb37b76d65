// Package milvus indexes molecular fingerprints as binary vectors so the
// prediction service can narrow similarity candidates before exact Tanimoto
// ranking.
package milvus

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"

	"github.com/medimatch/medimatch/internal/config"
	"github.com/medimatch/medimatch/internal/infrastructure/monitoring/logging"
	"github.com/medimatch/medimatch/pkg/errors"
)

// milvusNewClient is a variable so tests can inject a fake client.
var milvusNewClient = client.NewClient

var (
	ErrConnectionFailed = errors.New(errors.ErrCodeServiceUnavailable, "milvus connection failed")
	ErrUnhealthy        = errors.New(errors.ErrCodeServiceUnavailable, "milvus unhealthy")
)

const (
	connectTimeout      = 10 * time.Second
	healthCheckInterval = 30 * time.Second
	reconnectThreshold  = 3
)

// Client manages the Milvus connection with background health checking.
type Client struct {
	milvus  client.Client
	cfg     config.MilvusConfig
	log     logging.Logger
	healthy atomic.Bool
	cancel  context.CancelFunc
	mu      sync.RWMutex
}

// NewClient connects to Milvus and starts the health check loop.
func NewClient(cfg config.MilvusConfig, log logging.Logger) (*Client, error) {
	if cfg.Addr == "" {
		return nil, errors.New(errors.ErrCodeValidation, "address required")
	}
	if log == nil {
		log = logging.NewNopLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	mc, err := connect(ctx, cfg)
	if err != nil {
		cancel()
		return nil, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to connect to milvus")
	}

	c := &Client{
		milvus: mc,
		cfg:    cfg,
		log:    log.Named("milvus"),
		cancel: cancel,
	}

	if err := c.CheckHealth(ctx); err != nil {
		c.Close()
		return nil, ErrConnectionFailed
	}

	go c.healthLoop(ctx)

	c.log.Info("Milvus client connected", logging.String("addr", cfg.Addr))
	return c, nil
}

func connect(ctx context.Context, cfg config.MilvusConfig) (client.Client, error) {
	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	return milvusNewClient(connectCtx, client.Config{
		Address: cfg.Addr,
		DBName:  cfg.DBName,
	})
}

// CheckHealth probes the server and records the result.
func (c *Client) CheckHealth(ctx context.Context) error {
	c.mu.RLock()
	mc := c.milvus
	c.mu.RUnlock()

	if mc == nil {
		return ErrConnectionFailed
	}
	if _, err := mc.CheckHealth(ctx); err != nil {
		c.healthy.Store(false)
		return ErrUnhealthy
	}
	c.healthy.Store(true)
	return nil
}

// IsHealthy reports the last known health state.
func (c *Client) IsHealthy() bool {
	return c.healthy.Load()
}

// Milvus returns the underlying SDK client.
func (c *Client) Milvus() client.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.milvus
}

// Close stops the health loop and closes the connection.
func (c *Client) Close() error {
	c.cancel()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.milvus != nil {
		_ = c.milvus.Close()
	}
	c.log.Info("Milvus client closed")
	return nil
}

// healthLoop re-probes the server and reconnects after repeated failures.
func (c *Client) healthLoop(ctx context.Context) {
	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.CheckHealth(ctx); err != nil {
				failures++
				c.log.Warn("Milvus health check failed", logging.Err(err))
			} else {
				failures = 0
			}

			if failures >= reconnectThreshold {
				if err := c.reconnect(ctx); err != nil {
					c.log.Error("Milvus reconnect failed", logging.Err(err))
				} else {
					failures = 0
				}
			}
		}
	}
}

func (c *Client) reconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.milvus != nil {
		_ = c.milvus.Close()
	}
	mc, err := connect(ctx, c.cfg)
	if err != nil {
		return err
	}
	c.milvus = mc
	c.log.Warn("Milvus client reconnected")
	return nil
}
