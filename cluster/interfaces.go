package cluster

import "context"

// Transport is the wire-level collaborator this core dials through. It is
// a black box: the core only needs to open a Channel and observe when it
// closes.
type Transport interface {
	Open(ctx context.Context, host Host) (Channel, error)
}

// Channel is a single transport-level connection to a host. WriteAndFlush
// hands a command off to the wire; CloseFuture reports the connection's
// death so the eviction path can run.
type Channel interface {
	WriteAndFlush(ctx context.Context, cmd *CommandContext) error
	CloseFuture() <-chan struct{}
	Close() error
}

// Codec performs the handshake exchange and any later re-handshakes. It is
// the collaborator that produces a *HandshakeReply from a live Channel;
// the wire format itself is entirely its concern, not this core's.
type Codec interface {
	ExecuteHandshake(ctx context.Context, ch Channel, withClientMetadata bool) (*HandshakeReply, error)
}

// Session is an opaque handle produced by a SessionManager. Its contents
// are entirely outside this package's concern.
type Session interface{}

// SessionManager produces the implicit session a Database facade needs.
type SessionManager interface {
	MakeImplicitSession(c *Cluster) (Session, error)
}

// noopSessionManager is the default SessionManager: it hands back a
// session-less placeholder rather than failing. Callers that need real
// sessions inject their own SessionManager via
// ConnectionSettings.SessionManager.
type noopSessionManager struct{}

func (noopSessionManager) MakeImplicitSession(*Cluster) (Session, error) {
	return nil, nil
}
