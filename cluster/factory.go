package cluster

import "context"

// connectionFactory opens a transport to a given host, performs a
// handshake, and yields a live connection or a failure.
type connectionFactory struct {
	transport Transport
	codec     Codec
	logger    SLogger
}

// open establishes the transport, performs a handshake (including client
// metadata only when withClientMetadata is true — re-handshakes are always
// sent without metadata), and on success applies the current
// readable-secondary setting. On any failure it returns an error and
// leaves no pool entry behind: the caller must not append anything to the
// pool unless open succeeds.
func (f *connectionFactory) open(ctx context.Context, host Host, withClientMetadata, readableSecondary bool) (*connection, error) {
	f.logger.Info("connectionOpenStart", "host", host)

	ch, err := f.transport.Open(ctx, host)
	if err != nil {
		f.logger.Info("connectionOpenDone", "host", host, "err", err)
		return nil, newClusterError(KindUnableToConnect, host, err)
	}

	reply, err := f.codec.ExecuteHandshake(ctx, ch, withClientMetadata)
	if err != nil || reply == nil {
		_ = ch.Close()
		f.logger.Info("connectionOpenDone", "host", host, "err", err)
		return nil, newClusterError(KindHandshakeFailed, host, err)
	}

	conn := newConnection(host, ch, readableSecondary)
	conn.setHandshake(reply)
	f.logger.Info("connectionOpenDone", "host", host, "ismaster", reply.IsMaster, "readOnly", reply.ReadOnly)
	return conn, nil
}

// rehandshake re-runs the handshake against an already-open connection,
// always without client metadata.
func (f *connectionFactory) rehandshake(ctx context.Context, conn *connection) (*HandshakeReply, error) {
	reply, err := f.codec.ExecuteHandshake(ctx, conn.ch, false)
	if err != nil || reply == nil {
		return nil, newClusterError(KindHandshakeFailed, conn.host, err)
	}
	return reply, nil
}
