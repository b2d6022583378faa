package client

import (
	"fmt"
	"sync"
	"time"

	"github.com/distkv-io/partikv/internal/logging"
	"github.com/distkv-io/partikv/internal/meta"
	"github.com/distkv-io/partikv/internal/pool"
	"github.com/distkv-io/partikv/internal/router"
	"github.com/distkv-io/partikv/internal/session"
	"github.com/distkv-io/partikv/metrics"
	"github.com/distkv-io/partikv/table"
)

// Client is the application-facing handle: one meta session, one shared
// replica pool, and a cache of opened table handlers. All tables opened
// through a single Client share the same pool, so a replica serving two
// tables gets exactly one connection.
type Client struct {
	cfg Config
	log leveledLogger

	metaSess *meta.Session
	pool     *pool.Pool
	reporter *metrics.Reporter

	mu     sync.Mutex
	tables map[string]*table.Table
	closed bool
}

type leveledLogger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warningf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// New builds a Client from cfg. It does not connect anything eagerly;
// connections are established lazily as tables are opened and used.
func New(cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	metaEndpoints, err := cfg.resolveMetaEndpoints()
	if err != nil {
		return nil, err
	}

	var sessOpts []session.Option
	if cfg.ConnectTimeout > 0 {
		sessOpts = append(sessOpts, session.WithConnectTimeout(cfg.ConnectTimeout))
	}

	reporter := metrics.New(cfg.EnableCounter, cfg.PerfCounterTags, cfg.PushInterval)
	reporter.Start()

	c := &Client{
		cfg:      cfg,
		log:      logging.Get("partikv/client"),
		metaSess: meta.New(metaEndpoints, table.NewMetaDecoder()),
		pool:     pool.New(sessOpts...),
		reporter: reporter,
		tables:   make(map[string]*table.Table),
	}
	return c, nil
}

// Open resolves tableName's partition map and returns a Table bound to
// it. Repeated calls for the same name return the same cached Table.
func (c *Client) Open(tableName string) (*table.Table, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, fmt.Errorf("client: closed")
	}
	if t, ok := c.tables[tableName]; ok {
		c.mu.Unlock()
		return t, nil
	}
	c.mu.Unlock()

	routerOpts := []router.Option{router.WithReporter(c.reporter)}
	if c.cfg.MinTableRefreshInterval > 0 {
		routerOpts = append(routerOpts, router.WithMinRefreshInterval(c.cfg.MinTableRefreshInterval))
	}
	h := router.New(tableName, c.metaSess, c.pool, routerOpts...)
	if err := h.Open(time.Now().Add(c.cfg.OperationTimeout)); err != nil {
		return nil, err
	}

	t := table.New(h, c.cfg.OperationTimeout)

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.tables[tableName]; ok {
		return existing, nil
	}
	c.tables[tableName] = t
	c.log.Infof("opened table %s", tableName)
	return t, nil
}

// Close tears down every session the client opened, meta and replica
// alike, and stops the metrics push loop.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.reporter.Stop()
	c.metaSess.Close()
	c.pool.CloseAll()
}
