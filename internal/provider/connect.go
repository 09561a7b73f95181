// Package provider picks a live Solana RPC endpoint out of an ordered list.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"token-intel/internal/domain"
	"token-intel/internal/logger"
	"token-intel/internal/observability"
	"token-intel/internal/solana"
)

// Dialer builds a client for one endpoint. Dialing must not perform I/O.
type Dialer func(endpoint string) solana.RPCClient

// HTTPDialer returns a Dialer producing solana.HTTPClient instances.
func HTTPDialer(opts ...solana.ClientOption) Dialer {
	return func(endpoint string) solana.RPCClient {
		return solana.NewHTTPClient(endpoint, opts...)
	}
}

// Connector establishes connections with a liveness probe.
type Connector struct {
	endpoints []string
	dial      Dialer
	log       *logrus.Entry
}

// NewConnector creates a connector over endpoints, tried in order.
func NewConnector(endpoints []string, dial Dialer, log *logrus.Entry) *Connector {
	return &Connector{
		endpoints: endpoints,
		dial:      dial,
		log:       logger.OrDiscard(log, "provider"),
	}
}

// Connect returns the first endpoint whose getBlockHeight probe succeeds.
// Each candidate is tried once; there are no retry cycles here.
func (c *Connector) Connect(ctx context.Context) (solana.RPCClient, error) {
	if len(c.endpoints) == 0 {
		return nil, fmt.Errorf("%w: no RPC endpoints configured", domain.ErrNoProviderAvailable)
	}

	var lastErr error
	for _, endpoint := range c.endpoints {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		client := c.dial(endpoint)
		height, err := client.GetBlockHeight(ctx)
		observability.RecordProviderProbe(err)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil, err
			}
			lastErr = err
			c.log.WithField("endpoint", redact(endpoint)).WithError(err).Warn("rpc endpoint failed liveness probe")
			continue
		}

		c.log.WithFields(logrus.Fields{
			"endpoint":     redact(endpoint),
			"block_height": height,
		}).Debug("rpc endpoint connected")
		return client, nil
	}

	return nil, fmt.Errorf("%w: tried %d endpoints: %v", domain.ErrNoProviderAvailable, len(c.endpoints), lastErr)
}

// redact strips query strings, which commonly carry API keys.
func redact(endpoint string) string {
	if base, _, found := strings.Cut(endpoint, "?"); found {
		return base + "?..."
	}
	return endpoint
}
