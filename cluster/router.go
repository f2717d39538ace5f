package cluster

import "context"

// getConnectionEntry runs the get-connection algorithm, posting onto the
// event loop and returning the winning pool entry so the Dispatcher can
// enqueue onto the exact entry it scanned. The returned connection is
// live at the moment of return, but may close before the caller writes —
// the Dispatcher must handle that race, which it does by propagating a
// write failure into the completion slot.
func (c *Cluster) getConnectionEntry(ctx context.Context, writable bool) (*poolEntry, error) {
	type resp struct {
		entry *poolEntry
		err   error
	}
	respCh := make(chan resp, 1)
	c.callCh <- func(c *Cluster) {
		entry, err := c.getConnectionEntryInner(ctx, writable, false)
		respCh <- resp{entry, err}
	}
	r := <-respCh
	return r.entry, r.err
}

// getConnectionEntryInner runs entirely on the event-loop goroutine.
// triedDiscovery prevents more than one discovery invocation per
// get-connection call.
func (c *Cluster) getConnectionEntryInner(ctx context.Context, writable, triedDiscovery bool) (*poolEntry, error) {
	if entry, ok := c.scanPoolInner(ctx, writable); ok {
		return entry, nil
	}

	// Step 2: no pool match. Try candidate hosts from the registry, in
	// deterministic order, until one yields a connection matching the
	// requested capability.
	for _, h := range c.registry.candidates() {
		conn, err := c.factory.open(ctx, h, true, c.readableSecondary)
		if err != nil {
			c.registry.markTimedOut(h)
			continue
		}
		entry := c.pool.Append(h.String(), conn)
		c.registry.markDiscovered(h)
		c.watchClose(entry)
		c.notifyTopologyChanged()

		if conn.matchesCapability(writable, c.readableSecondary) {
			return entry, nil
		}
		// Connected, but it doesn't match the requested capability (e.g.
		// we wanted a writable connection and opened a secondary); it
		// stays pooled for later use, and we keep trying the remaining
		// candidates.
	}

	// Step 3: no candidate hosts remain. Invoke the discovery loop once,
	// then re-scan.
	if !triedDiscovery {
		if err := c.rediscoverInner(ctx); err != nil {
			return nil, err
		}
		return c.getConnectionEntryInner(ctx, writable, true)
	}

	return nil, newClusterError(KindNoAvailableHosts, Host{}, errNoPools)
}

// scanPoolInner scans the pool in insertion order, scheduling removal of
// dead entries, and returns the LAST candidate encountered that matches
// the requested capability: newer connections have fresher handshakes, so
// the last match wins.
func (c *Cluster) scanPoolInner(ctx context.Context, writable bool) (*poolEntry, bool) {
	var winner *poolEntry
	var dead []uint64

	for _, e := range c.pool.ScanAll() {
		conn := e.Conn
		if conn.closed || conn.handshake() == nil {
			dead = append(dead, e.ID)
			continue
		}
		if conn.matchesCapability(writable, c.readableSecondary) {
			winner = e
		}
	}

	for _, id := range dead {
		c.evictByIdentityInner(ctx, id, nil)
	}

	if winner == nil {
		return nil, false
	}
	return winner, true
}
