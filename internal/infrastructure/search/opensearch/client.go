// Package opensearch provides the full-text drug index used as an optional
// backend for name and free-text search.
package opensearch

import (
	"context"
	"crypto/tls"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/opensearch-project/opensearch-go/v3"
	"github.com/opensearch-project/opensearch-go/v3/opensearchapi"

	"github.com/medimatch/medimatch/internal/config"
	"github.com/medimatch/medimatch/internal/infrastructure/monitoring/logging"
	"github.com/medimatch/medimatch/pkg/errors"
)

var (
	ErrInvalidConfig    = errors.New(errors.ErrCodeValidation, "invalid opensearch configuration")
	ErrConnectionFailed = errors.New(errors.ErrCodeServiceUnavailable, "opensearch connection failed")
)

const (
	defaultMaxRetries    = 3
	defaultRetryBackoff  = 100 * time.Millisecond
	healthCheckInterval  = 30 * time.Second
	maxIdleConnsPerHost  = 10
	defaultBulkBatchSize = 500
)

// Client manages the OpenSearch connection and its background health check.
type Client struct {
	api     *opensearchapi.Client
	cfg     config.OpenSearchConfig
	log     logging.Logger
	healthy atomic.Bool
	cancel  context.CancelFunc
}

// NewClient connects to the cluster and starts a periodic health check.
func NewClient(cfg config.OpenSearchConfig, log logging.Logger) (*Client, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if len(cfg.Addresses) == 0 {
		return nil, ErrInvalidConfig
	}

	transport := &http.Transport{MaxIdleConnsPerHost: maxIdleConnsPerHost}
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	api, err := opensearchapi.NewClient(opensearchapi.Config{
		Client: opensearch.Config{
			Addresses:     cfg.Addresses,
			Username:      cfg.User,
			Password:      cfg.Password,
			Transport:     transport,
			MaxRetries:    defaultMaxRetries,
			RetryOnStatus: []int{429, 502, 503, 504},
			RetryBackoff:  func(int) time.Duration { return defaultRetryBackoff },
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create opensearch client")
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{api: api, cfg: cfg, log: log.Named("opensearch"), cancel: cancel}

	if err := c.Ping(ctx); err != nil {
		cancel()
		return nil, ErrConnectionFailed
	}

	go c.healthLoop(ctx)

	log.Info("OpenSearch client connected",
		logging.Int("nodes", len(cfg.Addresses)),
		logging.String("index_prefix", cfg.IndexPrefix))
	return c, nil
}

// newClientWithAPI is the test seam; production code goes through NewClient.
func newClientWithAPI(api *opensearchapi.Client, cfg config.OpenSearchConfig, log logging.Logger) *Client {
	if log == nil {
		log = logging.NewNopLogger()
	}
	c := &Client{api: api, cfg: cfg, log: log, cancel: func() {}}
	c.healthy.Store(true)
	return c
}

// Ping verifies cluster reachability and updates the health flag.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.api.Ping(ctx, nil)
	if err != nil {
		c.healthy.Store(false)
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "opensearch ping failed")
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if resp != nil && resp.IsError() {
		c.healthy.Store(false)
		return errors.Newf(errors.ErrCodeServiceUnavailable, "opensearch ping returned status %d", resp.StatusCode)
	}
	c.healthy.Store(true)
	return nil
}

// IsHealthy reports the last observed cluster health.
func (c *Client) IsHealthy() bool { return c.healthy.Load() }

// API exposes the underlying typed client.
func (c *Client) API() *opensearchapi.Client { return c.api }

// Close stops the health check.
func (c *Client) Close() error {
	c.cancel()
	c.log.Info("closed OpenSearch client")
	return nil
}

func (c *Client) healthLoop(ctx context.Context) {
	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prev := c.healthy.Load()
			err := c.Ping(ctx)
			curr := c.healthy.Load()
			if prev && !curr {
				c.log.Error("OpenSearch cluster became unhealthy", logging.Err(err))
			} else if !prev && curr {
				c.log.Info("OpenSearch cluster recovered")
			}
		}
	}
}
