// Package redis provides a coordinator.Requester backed by a Redis/Valkey
// bulk MGET, intended as a concrete example of wiring an external data
// source into the coordinator rather than a required part of it.
package redis

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	valkey "github.com/valkey-io/valkey-go"

	"github.com/tduva/bulkcoord/coordinator"
)

// TLSConfig configures an optional TLS connection to the Redis/Valkey
// server.
type TLSConfig struct {
	Enabled bool
	CAFile  string
}

// Config is the construction-time configuration for a Requester.
type Config struct {
	Address  string
	Username string
	Password string
	DB       int
	TLS      TLSConfig

	// BatchLimit caps how many keys go into a single MGET, folding
	// backlog keys in opportunistically up to the cap (spec.md §4.4's
	// informational backlog set). Zero means no cap.
	BatchLimit int
}

// Requester implements coordinator.Requester[string,[]byte] over a bulk
// MGET. A missing key surfaces as not-found; any command-level error
// surfaces as a transient error for every key in that batch.
type Requester struct {
	client valkey.Client
	limit  int
}

// New dials the Redis/Valkey server described by cfg and pings it.
func New(cfg Config) (*Requester, error) {
	if cfg.Address == "" {
		return nil, errors.New("redis requester: address required")
	}

	option := valkey.ClientOption{
		InitAddress:       []string{cfg.Address},
		Username:          cfg.Username,
		Password:          cfg.Password,
		SelectDB:          cfg.DB,
		AlwaysRESP2:       true,
		ForceSingleClient: true,
		DisableCache:      true,
	}

	if cfg.TLS.Enabled {
		tlsConfig := &tls.Config{}
		if cfg.TLS.CAFile != "" {
			caData, err := os.ReadFile(cfg.TLS.CAFile)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return nil, fmt.Errorf("redis requester: read ca file: %w", err)
				}
				return nil, fmt.Errorf("redis requester: read ca file: %w", err)
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(caData) {
				return nil, errors.New("redis requester: ca file contains no certificates")
			}
			tlsConfig.RootCAs = pool
		}
		option.TLSConfig = tlsConfig
	}

	client, err := valkey.NewClient(option)
	if err != nil {
		return nil, fmt.Errorf("redis requester: client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis requester: ping: %w", err)
	}

	return &Requester{client: client, limit: cfg.BatchLimit}, nil
}

// Close releases the underlying client.
func (r *Requester) Close() { r.client.Close() }

// Request implements coordinator.Requester[string,[]byte]. It accepts the
// asap+normal set every cycle, bounded by a configurable batch size via
// coordinator.AcceptUpTo (with backlog keys folded in opportunistically to
// fill out the batch), issues a single MGET, and reports a value, not-found,
// or error per key.
func (r *Requester) Request(c *coordinator.Coordinator[string, []byte], asap, normal, backlog []string) {
	limit := r.limit
	if limit <= 0 {
		limit = len(asap) + len(normal) + len(backlog)
	}
	keys := c.AcceptUpTo(asap, normal, backlog, limit)
	if len(keys) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp := r.client.Do(ctx, r.client.B().Mget().Key(keys...).Build())
	values, err := resp.ToArray()
	if err != nil {
		c.SetError(keys...)
		return
	}

	for i, v := range values {
		if i >= len(keys) {
			break
		}
		key := keys[i]
		if v.IsNil() {
			c.SetNotFound(key)
			continue
		}
		payload, err := v.AsBytes()
		if err != nil {
			c.SetError(key)
			continue
		}
		c.SetValue(key, payload)
	}
}
