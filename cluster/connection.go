package cluster

// connection owns a transport Channel, the latest HandshakeReply seen for
// it (nil until the first handshake completes), a readable-secondary flag
// that mirrors the cluster-wide setting, a closed flag, and the ordered
// in-flight queue of commands awaiting reply.
//
// Like hostRegistry and pool.Pool, connection is only ever mutated from
// the Cluster's event-loop goroutine; it needs no locking of its own.
type connection struct {
	host   Host
	ch     Channel
	hs     *HandshakeReply
	closed bool

	readableSecondary bool

	inFlight []*CommandContext
}

func newConnection(host Host, ch Channel, readableSecondary bool) *connection {
	return &connection{host: host, ch: ch, readableSecondary: readableSecondary}
}

// handshake returns the most recently stored HandshakeReply, or nil if
// none has completed yet.
func (c *connection) handshake() *HandshakeReply {
	return c.hs
}

// setHandshake stores reply, superseding any prior reply atomically from
// the point of view of the Router: since both this write and every Router
// read happen on the same event-loop goroutine, there is no intermediate
// state a reader can observe.
func (c *connection) setHandshake(reply *HandshakeReply) {
	c.hs = reply
}

// enqueue appends ctx to the in-flight queue, in submission order.
func (c *connection) enqueue(ctx *CommandContext) {
	c.inFlight = append(c.inFlight, ctx)
}

// removeInFlight drops ctx from the in-flight queue, used when a write
// fails synchronously (so the command's completion is already fulfilled
// and must not be handed to the eviction path for a redundant retry).
func (c *connection) removeInFlight(target *CommandContext) {
	for i, qc := range c.inFlight {
		if qc == target {
			c.inFlight = append(c.inFlight[:i], c.inFlight[i+1:]...)
			return
		}
	}
}

// drainInFlight extracts the entire in-flight queue and clears it on the
// connection, transferring ownership to the caller so nothing is
// double-failed when the connection is subsequently destroyed.
func (c *connection) drainInFlight() []*CommandContext {
	drained := c.inFlight
	c.inFlight = nil
	return drained
}

// matchesCapability reports whether this connection can serve a request
// with the given requirements:
//
//	unwritable  = writable ∧ handshake.readOnly
//	unreadable  = ¬cluster.readableSecondary ∧ ¬handshake.ismaster
//
// A connection matches if it is neither unwritable (when a writable
// connection was requested) nor unreadable.
func (c *connection) matchesCapability(wantWritable, clusterReadableSecondary bool) bool {
	if c.closed || c.hs == nil {
		return false
	}
	unwritable := wantWritable && c.hs.ReadOnly
	unreadable := !clusterReadableSecondary && !c.hs.IsMaster
	return !unwritable && !unreadable
}
