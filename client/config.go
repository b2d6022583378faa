// Package client assembles the pieces built in internal/ into the single
// object an application actually holds: a meta session, a replica
// session pool, and a cache of opened table handlers, configured the way
// the teacher's rpc/client package builds a client.Client from a
// ClientConfig and one shared transport.
package client

import (
	"fmt"
	"runtime"
	"time"

	"github.com/distkv-io/partikv/internal/address"
)

// Config is the set of construction options recognized when building a
// Client, matching the construction configuration this store's clients
// have always accepted.
type Config struct {
	// MetaServers is the ordered list of "host:port" meta endpoints.
	// Required.
	MetaServers []string

	// OperationTimeout is the default per-operation deadline.
	OperationTimeout time.Duration

	// IOThreads is accepted as a construction option but is not read by
	// any component: session and handler goroutines in this
	// implementation are created per endpoint and per in-flight refresh
	// rather than drawn from a fixed pool, and the metrics push loop is a
	// single goroutine.
	IOThreads int

	// EnableCounter turns on the periodic metrics push.
	EnableCounter bool
	// PerfCounterTags tags every pushed metric, e.g. "cluster=prod".
	PerfCounterTags string
	// PushInterval is how often metrics are pushed when EnableCounter is
	// set.
	PushInterval time.Duration

	// ConnectTimeout overrides the default per-dial timeout on every
	// session this client creates.
	ConnectTimeout time.Duration

	// MinTableRefreshInterval overrides the default 5s floor between
	// consecutive meta refreshes for any one table.
	MinTableRefreshInterval time.Duration
}

// DefaultConfig returns a Config with every optional field at its
// documented default. MetaServers must still be set by the caller.
func DefaultConfig() Config {
	return Config{
		OperationTimeout: 1000 * time.Millisecond,
		IOThreads:        runtime.NumCPU(),
		PushInterval:     10 * time.Second,
	}
}

func (c Config) validate() error {
	if len(c.MetaServers) == 0 {
		return fmt.Errorf("client: config.MetaServers must not be empty")
	}
	return nil
}

func (c Config) resolveMetaEndpoints() ([]address.Endpoint, error) {
	endpoints := make([]address.Endpoint, 0, len(c.MetaServers))
	for _, hostport := range c.MetaServers {
		ep, err := address.ParseHostPort(hostport)
		if err != nil {
			return nil, fmt.Errorf("client: invalid meta server %q: %w", hostport, err)
		}
		endpoints = append(endpoints, ep)
	}
	return endpoints, nil
}
