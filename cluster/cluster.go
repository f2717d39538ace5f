// Package cluster implements the coordination core of a client library for
// a distributed document-oriented database: it maintains a pool of live
// connections to a replica set or sharded deployment, discovers topology
// changes over time (a narrowed form of Server Discovery And Monitoring —
// writable vs. readable only, no full server-type classification), routes
// outbound commands to a connection with the right capability, and
// transparently retries commands when a connection dies mid-flight.
//
// All methods on a Cluster are thread-safe: every mutation of shared state
// (the pool, the host registry, per-connection state) is serialized onto a
// single event-loop goroutine via callCh/spin — no locks are needed because
// there is no parallelism among core operations.
package cluster

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/kevwan/dbcluster/pool"
)

const (
	// defaultHeartbeatFrequency is the discovery loop's default tick interval.
	defaultHeartbeatFrequency = 10 * time.Second
	// minHeartbeatFrequency is the floor on the tick interval: any attempt
	// to set it lower is silently raised to this value.
	minHeartbeatFrequency = 500 * time.Millisecond
)

// poolEntry is the (host, connection) pair with stable identity this core
// pools, realized as a pool.Entry[*connection].
type poolEntry = pool.Entry[*connection]

// Cluster is the top-level coordinator: Host Registry, Pool, Handshake
// Tracker (folded into connection itself), Discovery Loop, Router, and
// Command Dispatcher all live here and are only mutated from spin().
type Cluster struct {
	settings ConnectionSettings
	logger   SLogger
	factory  *connectionFactory
	sessions SessionManager

	registry *hostRegistry
	pool     *pool.Pool[*connection]

	readableSecondary  bool
	heartbeatFrequency time.Duration

	callCh chan func(*Cluster)
	stopCh chan struct{}
	closed atomic.Bool

	discoveryTimer *time.Timer

	// TopologyChangedCh fires (best-effort, non-blocking) whenever a
	// discovery sweep adds or removes a host from the registry.
	TopologyChangedCh chan struct{}
	// RetryCh fires (best-effort, non-blocking) whenever the eviction
	// path resubmits a queued command after a connection loss.
	RetryCh chan struct{}
}

// Connect establishes a Cluster: it validates settings, opens an initial
// connection to a seed host, runs the first discovery sweep synchronously,
// and only then starts the periodic schedule.
func Connect(ctx context.Context, settings ConnectionSettings) (*Cluster, error) {
	if err := settings.validate(); err != nil {
		return nil, err
	}
	settings.applyDefaults()

	c := &Cluster{
		settings:            settings,
		logger:              settings.Logger,
		sessions:            settings.SessionManager,
		registry:            newHostRegistry(),
		pool:                pool.New[*connection](),
		readableSecondary:   settings.ReadableSecondary,
		heartbeatFrequency:  settings.HeartbeatFrequency,
		callCh:              make(chan func(*Cluster)),
		stopCh:              make(chan struct{}),
		TopologyChangedCh:   make(chan struct{}, 1),
		RetryCh:             make(chan struct{}, 1),
	}
	c.factory = &connectionFactory{
		transport: settings.Transport,
		codec:     settings.Codec,
		logger:    c.logger,
	}

	for _, h := range settings.seedHosts {
		c.registry.insertKnown(h)
	}

	go c.spin()

	// Best-effort bootstrap: try to connect to one seed host so the first
	// discovery sweep below has a live handshake reply to learn peers
	// from. A seed host being unreachable is NOT terminal for Connect — it
	// is recovered exactly like any other per-host connect failure: the
	// host is marked timed-out and Connect proceeds with an empty pool, so
	// a deployment with every seed down still produces a usable Cluster
	// that fails later get-connection calls instead.
	c.bootstrapSeed(ctx)

	if err := c.Rediscover(ctx); err != nil {
		c.Close()
		return nil, err
	}
	c.scheduleNextSweep(ctx)

	return c, nil
}

// bootstrapSeed attempts to connect to exactly one candidate host, in
// deterministic order, stopping at the first success. Failures are
// recorded on the registry but never returned: see the Connect doc
// comment above for why this is best-effort.
func (c *Cluster) bootstrapSeed(ctx context.Context) {
	respCh := make(chan struct{})
	c.callCh <- func(c *Cluster) {
		for _, h := range c.registry.candidates() {
			conn, err := c.factory.open(ctx, h, true, c.readableSecondary)
			if err != nil {
				c.registry.markTimedOut(h)
				continue
			}
			entry := c.pool.Append(h.String(), conn)
			c.registry.markDiscovered(h)
			c.watchClose(entry)
			break
		}
		close(respCh)
	}
	<-respCh
}

// spin is the single goroutine allowed to mutate the Cluster's core
// state: the host registry, the pool, and every connection's in-flight
// queue. Everything else posts a closure onto callCh and waits for its
// private response channel.
func (c *Cluster) spin() {
	for {
		select {
		case f := <-c.callCh:
			f(c)
		case <-c.stopCh:
			return
		}
	}
}

// SetReadableSecondary updates the cluster-wide readable-secondary flag.
// The change cascades to every pooled connection.
func (c *Cluster) SetReadableSecondary(v bool) {
	respCh := make(chan struct{})
	c.callCh <- func(c *Cluster) {
		c.readableSecondary = v
		for _, e := range c.pool.ScanAll() {
			e.Conn.readableSecondary = v
		}
		close(respCh)
	}
	<-respCh
}

// SetHeartbeatFrequency updates the discovery loop's tick interval,
// clamping to minHeartbeatFrequency.
func (c *Cluster) SetHeartbeatFrequency(d time.Duration) {
	if d < minHeartbeatFrequency {
		d = minHeartbeatFrequency
	}
	respCh := make(chan struct{})
	c.callCh <- func(c *Cluster) {
		c.heartbeatFrequency = d
		close(respCh)
	}
	<-respCh
}

// notifyTopologyChanged best-effort-sends on TopologyChangedCh; if nothing
// is listening the message is dropped rather than blocking the event loop.
func (c *Cluster) notifyTopologyChanged() {
	select {
	case c.TopologyChangedCh <- struct{}{}:
	default:
	}
}

// notifyRetried best-effort-sends on RetryCh, mirroring notifyTopologyChanged.
func (c *Cluster) notifyRetried() {
	select {
	case c.RetryCh <- struct{}{}:
	default:
	}
}

// Close closes every pooled connection and stops the event loop. Once
// called, no other method should be invoked on this Cluster. Close is
// idempotent.
func (c *Cluster) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	respCh := make(chan struct{})
	c.callCh <- func(c *Cluster) {
		if c.discoveryTimer != nil {
			c.discoveryTimer.Stop()
		}
		for _, e := range c.pool.ScanAll() {
			e.Conn.closed = true
			_ = e.Conn.ch.Close()
			// Shutdown fails in-flight commands terminally rather than
			// retrying them: there is no cluster left to resubmit
			// against.
			for _, qc := range e.Conn.drainInFlight() {
				qc.fulfill(Result{Err: newClusterError(KindConnectionClosedMidflight, e.Conn.host, errClusterClosed)})
			}
		}
		close(respCh)
	}
	<-respCh
	close(c.stopCh)
}

// newSweepID generates the uuid used to correlate a single discovery
// sweep's log lines.
func newSweepID() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

var errClusterClosed = errors.New("dbcluster: cluster is closed")
