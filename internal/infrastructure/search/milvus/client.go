// Package milvus hosts the reference entity index the embedding tier probes:
// one collection of canonical entity names and their embeddings, searched by
// cosine similarity.
package milvus

import (
	"context"
	"sync"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"

	"github.com/bpointel/docintel/internal/config"
	"github.com/bpointel/docintel/internal/infrastructure/monitoring/logging"
	"github.com/bpointel/docintel/pkg/errors"
)

// clientFactory allows substituting the SDK constructor in tests.
type clientFactory func(ctx context.Context, conf client.Config) (client.Client, error)

var newMilvusClient clientFactory = client.NewClient

var (
	// ErrConnectionFailed is returned when the initial connection or health
	// probe fails.
	ErrConnectionFailed = errors.New(errors.ErrCodeExternalService, "milvus connection failed")
)

const connectTimeout = 10 * time.Second

// Client wraps the Milvus SDK connection.
type Client struct {
	mc     client.Client
	cfg    config.MilvusConfig
	logger logging.Logger
	mu     sync.RWMutex
	closed bool
}

// NewClient connects to Milvus using the configured address and database.
func NewClient(ctx context.Context, cfg config.MilvusConfig, logger logging.Logger) (*Client, error) {
	dbName := cfg.DBName
	if dbName == "" {
		dbName = "default"
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	mc, err := newMilvusClient(connectCtx, client.Config{
		Address: cfg.Addr,
		DBName:  dbName,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "failed to connect to milvus")
	}

	logger.Info("milvus client connected", logging.String("addr", cfg.Addr))
	return &Client{mc: mc, cfg: cfg, logger: logger}, nil
}

// SDK exposes the raw SDK client.
func (c *Client) SDK() client.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mc
}

// Config returns the Milvus configuration the client was built with.
func (c *Client) Config() config.MilvusConfig { return c.cfg }

// Close releases the connection.  Idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if err := c.mc.Close(); err != nil {
		c.logger.Error("failed to close milvus client", logging.Err(err))
		return err
	}
	c.logger.Info("closed milvus client")
	return nil
}
