package cluster

import "context"

// watchClose starts a goroutine that waits for entry's Channel to report
// closed and then posts the eviction procedure back onto the event loop.
// The goroutine only ever holds c; Go's GC needs no reference-counting
// help to collect the Cluster once nothing else refers to it, and
// postEviction silently no-ops once the loop has stopped.
func (c *Cluster) watchClose(entry *poolEntry) {
	go func() {
		<-entry.Conn.ch.CloseFuture()
		c.postEviction(entry.ID)
	}()
}

// postEviction posts the eviction closure onto callCh, or silently drops
// it if the Cluster has already shut down (spin is no longer reading
// callCh once stopCh is closed).
func (c *Cluster) postEviction(id uint64) {
	select {
	case c.callCh <- func(c *Cluster) { c.evictByIdentityInner(context.Background(), id, nil) }:
	case <-c.stopCh:
	}
}

// evictByIdentityInner removes a dead connection from the pool and
// resubmits or fails whatever it had queued. It runs on the event-loop
// goroutine.
func (c *Cluster) evictByIdentityInner(ctx context.Context, id uint64, closeErr error) {
	entry, ok := c.pool.FindFirst(func(e *poolEntry) bool { return e.ID == id })
	if !ok {
		// Step 1: already gone, no-op.
		return
	}
	conn := entry.Conn
	host := conn.host

	c.pool.RemoveByIdentity(id)
	conn.closed = true

	// Restore invariant 1 (every pooled connection's host is in
	// discovered): if no other pooled entry still has this host, it is no
	// longer discovered. It remains a candidate for reconnection (it is
	// not marked timed-out here — that set is reserved for failed
	// *connect* attempts).
	if _, stillPooled := c.pool.FindFirst(func(e *poolEntry) bool { return e.Conn.host == host }); !stillPooled {
		c.registry.removeDiscovered(host)
	}

	// Step 2: extract the in-flight queue and clear it on the connection.
	drained := conn.drainInFlight()

	if len(drained) == 0 {
		return
	}

	if closeErr == nil {
		closeErr = newClusterError(KindConnectionClosedMidflight, host, nil)
	} else {
		closeErr = newClusterError(KindConnectionClosedMidflight, host, closeErr)
	}

	// Step 3: mark each queued command not-yet-sent.
	var retryable, terminal []*CommandContext
	for _, qc := range drained {
		qc.Sent = false
		if qc.Retry {
			retryable = append(retryable, qc)
		} else {
			terminal = append(terminal, qc)
		}
	}

	// Commands flagged non-retryable are never resubmitted; their slots
	// fail with a KindConnectionClosedMidflight error for this host, which
	// wraps closeErr when the caller supplied one.
	for _, qc := range terminal {
		qc.fulfill(Result{Err: closeErr})
	}

	if len(retryable) == 0 {
		return
	}

	// Step 4: kick off a discovery sweep. On success, resubmit every
	// retryable command through the Dispatcher; on failure, fail them all
	// with the sweep's error.
	if err := c.rediscoverInner(ctx); err != nil {
		for _, qc := range retryable {
			qc.fulfill(Result{Err: err})
		}
		return
	}

	for _, qc := range retryable {
		c.Send(ctx, qc)
	}
	c.notifyRetried()
}
