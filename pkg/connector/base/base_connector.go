// Package base provides the foundational BaseConnector that all source
// connectors embed. It carries the shared plumbing — configuration, logging,
// the per-source HTTP client, retry policy, and credential caching — so
// concrete connectors only implement their wire specifics.
//
// Usage:
//
//	type MySource struct {
//	    *base.BaseConnector
//	    // source-specific fields
//	}
//
//	func New(cfg *config.Config) (*MySource, error) {
//	    return &MySource{BaseConnector: base.NewBaseConnector("my", cfg)}, nil
//	}
package base

import (
	"context"
	"sync"

	"github.com/retailstream/harvester/pkg/clients"
	"github.com/retailstream/harvester/pkg/config"
	"github.com/retailstream/harvester/pkg/errors"
	"github.com/retailstream/harvester/pkg/logger"
	"go.uber.org/zap"
)

// BaseConnector provides common functionality for all source connectors.
type BaseConnector struct {
	name   string
	config *config.Config
	logger *zap.Logger

	httpClient *clients.HTTPClient
	retry      *RetryPolicy

	authMu        sync.Mutex
	authenticated bool

	closed     bool
	closeMutex sync.Mutex
}

// NewBaseConnector creates a base connector for the named source. The HTTP
// client and retry policy are derived from the source's configuration.
func NewBaseConnector(name string, cfg *config.Config) *BaseConnector {
	httpCfg := clients.DefaultHTTPClientConfig()
	httpCfg.RequestTimeout = cfg.HTTP.RequestTimeout
	httpCfg.DialTimeout = cfg.HTTP.DialTimeout
	httpCfg.IdleConnTimeout = cfg.HTTP.IdleConnTimeout
	httpCfg.RateLimit = cfg.HTTP.RateLimitPerSec
	httpCfg.RateBurst = cfg.HTTP.RateBurst
	if cfg.HTTP.UserAgent != "" {
		httpCfg.UserAgent = cfg.HTTP.UserAgent
	}

	log := logger.Get().With(zap.String("connector", name))

	retry := &RetryPolicy{
		MaxAttempts:     cfg.Reliability.RetryAttempts,
		InitialDelay:    cfg.Reliability.RetryDelay,
		MaxDelay:        cfg.Reliability.MaxRetryDelay,
		Multiplier:      cfg.Reliability.RetryMultiplier,
		RandomizeFactor: 0.25,
	}

	return &BaseConnector{
		name:       name,
		config:     cfg,
		logger:     log,
		httpClient: clients.NewHTTPClient(httpCfg, log),
		retry:      retry,
	}
}

// Name returns the source name.
func (bc *BaseConnector) Name() string {
	return bc.name
}

// GetConfig returns the source configuration.
func (bc *BaseConnector) GetConfig() *config.Config {
	return bc.config
}

// GetLogger returns the connector logger.
func (bc *BaseConnector) GetLogger() *zap.Logger {
	return bc.logger
}

// HTTPClient returns the source's HTTP client.
func (bc *BaseConnector) HTTPClient() *clients.HTTPClient {
	return bc.httpClient
}

// ExecuteWithRetry runs fn under the connector's retry policy, retrying only
// retryable errors.
func (bc *BaseConnector) ExecuteWithRetry(ctx context.Context, fn func() error) error {
	return bc.retry.ExecuteWithCondition(ctx, fn, errors.IsRetryable)
}

// AuthenticateOnce runs the credential exchange at most once per connector
// lifetime. Subsequent calls are no-ops, which makes Authenticate idempotent
// for every connector that routes through it.
func (bc *BaseConnector) AuthenticateOnce(ctx context.Context, exchange func(ctx context.Context) error) error {
	bc.authMu.Lock()
	defer bc.authMu.Unlock()

	if bc.authenticated {
		return nil
	}
	if err := exchange(ctx); err != nil {
		return err
	}
	bc.authenticated = true
	return nil
}

// IsTransient reports whether err should be retried. Connectors that
// classify everything through pkg/errors can use this directly.
func (bc *BaseConnector) IsTransient(err error) bool {
	return errors.IsRetryable(err)
}

// Close shuts down the connector.
func (bc *BaseConnector) Close(ctx context.Context) error {
	bc.closeMutex.Lock()
	defer bc.closeMutex.Unlock()

	if bc.closed {
		return nil
	}
	bc.closed = true

	return bc.httpClient.Close()
}
