package cluster

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Result is the tagged-variant outcome delivered on a CommandContext's
// completion slot: either a reply or an error, never both.
type Result struct {
	Reply any
	Err   error
}

// CommandContext carries a command payload, its request id, whether it
// may be retried on connection loss, an optional session, and its
// completion slot.
//
// Retry defaults to true: every dispatched command is retryable unless a
// caller explicitly opts out by setting it false after construction.
type CommandContext struct {
	Command   any
	RequestID uuid.UUID
	Retry     bool
	Session   Session

	// Sent tracks whether this context has already been written to a
	// connection's channel. The eviction path flips this back to false
	// before resubmitting a queued command, so the Dispatcher does not
	// double-count it as already in flight elsewhere.
	Sent bool

	done     chan Result
	complete sync.Once
}

// NewCommandContext creates a CommandContext ready for Send. Retry
// defaults to true; see the CommandContext.Retry doc comment.
func NewCommandContext(command any, session Session) *CommandContext {
	return &CommandContext{
		Command:   command,
		RequestID: uuid.Must(uuid.NewV7()),
		Retry:     true,
		Session:   session,
		done:      make(chan Result, 1),
	}
}

// Future returns the context's completion slot, the caller-visible future
// returned by Send.
func (c *CommandContext) Future() <-chan Result {
	return c.done
}

// fulfill delivers result on the completion slot exactly once; subsequent
// calls are no-ops, so a completion slot fires at most once even if both
// the codec and the eviction path race to complete the same context.
func (c *CommandContext) fulfill(result Result) {
	c.complete.Do(func() {
		c.done <- result
		close(c.done)
	})
}

// Send is the Command Dispatcher's single entry point.
func (c *Cluster) Send(ctx context.Context, cmdCtx *CommandContext) <-chan Result {
	go c.dispatch(ctx, cmdCtx)
	return cmdCtx.Future()
}

func (c *Cluster) dispatch(ctx context.Context, cmdCtx *CommandContext) {
	c.logger.Info("dispatchStart", "requestID", cmdCtx.RequestID)

	// Try a read-capable connection first, falling back to a writable one
	// on failure. A read-capable request accepts a primary and a readable
	// secondary alike; the last match in pool order wins. Preserved as
	// observed rather than "fixed" without evidence it's wrong.
	entry, err := c.getConnectionEntry(ctx, false)
	if err != nil {
		entry, err = c.getConnectionEntry(ctx, true)
	}
	if err != nil {
		cmdCtx.fulfill(Result{Err: err})
		return
	}

	c.submitOnEntry(ctx, entry, cmdCtx)
}

// submitOnEntry performs dispatcher steps 2-4 against an already-obtained
// pool entry: enqueue, write, and propagate a write failure into the
// completion slot.
func (c *Cluster) submitOnEntry(ctx context.Context, entry *poolEntry, cmdCtx *CommandContext) {
	respCh := make(chan error, 1)
	c.callCh <- func(c *Cluster) {
		conn := entry.Conn
		conn.enqueue(cmdCtx)
		cmdCtx.Sent = true
		respCh <- nil
	}
	<-respCh

	if err := entry.Conn.ch.WriteAndFlush(ctx, cmdCtx); err != nil {
		failCh := make(chan struct{})
		c.callCh <- func(c *Cluster) {
			entry.Conn.removeInFlight(cmdCtx)
			close(failCh)
		}
		<-failCh
		cmdCtx.fulfill(Result{Err: newClusterError(KindConnectionClosedMidflight, entry.Conn.host, err)})
		return
	}
	c.logger.Debug("dispatchWrote", "requestID", cmdCtx.RequestID, "host", entry.Conn.host)
}
