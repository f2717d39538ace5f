package cluster

import (
	"context"
	"time"
)

// Rediscover runs one discovery sweep synchronously and reports any
// error. Once it returns, the timed-out set is always empty: every host
// gets another chance on the next sweep.
func (c *Cluster) Rediscover(ctx context.Context) error {
	respCh := make(chan error, 1)
	c.callCh <- func(c *Cluster) {
		respCh <- c.rediscoverInner(ctx)
	}
	return <-respCh
}

// rediscoverInner re-handshakes every pooled connection, folds newly
// reported peers into the known set, and resets the timed-out set. It
// runs entirely on the event-loop goroutine: the re-handshake I/O blocks
// that goroutine, the same cooperative-suspension model the Dispatcher
// and Router use elsewhere in this package.
func (c *Cluster) rediscoverInner(ctx context.Context) error {
	sweepID := newSweepID()
	c.logger.Info("rediscoverStart", "sweepID", sweepID)

	knownBefore := len(c.registry.known)
	removed := false

	for _, e := range c.pool.ScanAll() {
		conn := e.Conn
		reply, err := c.factory.rehandshake(ctx, conn)
		if err != nil {
			// Step 3: remove from discovered, but do NOT mark timed-out —
			// that set is reserved for failed connect attempts.
			// Clearing the stored handshake marks the
			// connection dead for the Router's next scan, which will
			// evict it and restore the invariant that every pooled
			// connection's host is in Registry.discovered.
			c.registry.removeDiscovered(conn.host)
			removed = true
			conn.setHandshake(nil)
			c.logger.Info("rehandshakeFailed", "sweepID", sweepID, "host", conn.host, "err", err)
			continue
		}

		c.registry.foldHosts(reply.peers(), c.logger)
		c.registry.markDiscovered(conn.host)
		conn.setHandshake(reply)
		c.logger.Debug("rehandshakeOK", "sweepID", sweepID, "host", conn.host, "ismaster", reply.IsMaster)
	}

	changed := removed || len(c.registry.known) != knownBefore

	// Step 4: reset timed-out regardless of per-connection outcome, so the
	// next sweep (or the next get-connection call) retries every
	// previously failed host.
	c.registry.resetTimeouts()

	if changed {
		c.notifyTopologyChanged()
	}

	c.logger.Info("rediscoverDone", "sweepID", sweepID)
	return nil
}

// scheduleNextSweep arranges for the next discovery tick,
// minHeartbeatFrequency-clamped, regardless of the outcome of the sweep
// that triggers it. Each tick reschedules itself only after the sweep it
// triggered has fully settled, so sweeps never overlap.
func (c *Cluster) scheduleNextSweep(ctx context.Context) {
	respCh := make(chan struct{})
	c.callCh <- func(c *Cluster) {
		c.armTimerInner(ctx)
		close(respCh)
	}
	<-respCh
}

func (c *Cluster) armTimerInner(ctx context.Context) {
	freq := c.heartbeatFrequency
	if freq < minHeartbeatFrequency {
		freq = minHeartbeatFrequency
	}
	c.discoveryTimer = time.AfterFunc(freq, func() {
		select {
		case c.callCh <- func(c *Cluster) {
			_ = c.rediscoverInner(ctx)
			c.armTimerInner(ctx)
		}:
		case <-c.stopCh:
		}
	})
}
