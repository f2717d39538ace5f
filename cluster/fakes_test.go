package cluster

import (
	"context"
	"errors"
	"sync"
)

// fakeChannel is a hand-rolled Channel fake: it records every write and lets
// a test trigger the close signal deterministically.
type fakeChannel struct {
	host string

	mu       sync.Mutex
	closeCh  chan struct{}
	closed   bool
	writeErr error
	writes   []*CommandContext
}

func newFakeChannel(host string) *fakeChannel {
	return &fakeChannel{host: host, closeCh: make(chan struct{})}
}

func (f *fakeChannel) WriteAndFlush(ctx context.Context, cmd *CommandContext) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.writes = append(f.writes, cmd)
	return nil
}

func (f *fakeChannel) CloseFuture() <-chan struct{} {
	return f.closeCh
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.closeCh)
	}
	return nil
}

func (f *fakeChannel) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

// fakeTransport opens one fakeChannel per host, or fails per a configurable
// per-host error map.
type fakeTransport struct {
	mu       sync.Mutex
	dialErrs map[string]error
	channels map[string]*fakeChannel
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{dialErrs: map[string]error{}, channels: map[string]*fakeChannel{}}
}

func (t *fakeTransport) failHost(host string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dialErrs[host] = err
}

func (t *fakeTransport) Open(ctx context.Context, host Host) (Channel, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err, ok := t.dialErrs[host.String()]; ok && err != nil {
		return nil, err
	}
	ch := newFakeChannel(host.String())
	t.channels[host.String()] = ch
	return ch, nil
}

func (t *fakeTransport) channelFor(host string) *fakeChannel {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.channels[host]
}

// fakeCodec answers ExecuteHandshake per a configurable per-host reply or
// error map, keyed by the fakeChannel's host field so a test can look up
// "what would host X's next handshake say" without threading Host through
// the Codec interface, which only ever sees a Channel.
type fakeCodec struct {
	mu      sync.Mutex
	replies map[string]*HandshakeReply
	errs    map[string]error
}

func newFakeCodec() *fakeCodec {
	return &fakeCodec{replies: map[string]*HandshakeReply{}, errs: map[string]error{}}
}

func (c *fakeCodec) setReply(host string, reply *HandshakeReply) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies[host] = reply
}

func (c *fakeCodec) failHost(host string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs[host] = err
}

func (c *fakeCodec) ExecuteHandshake(ctx context.Context, ch Channel, withClientMetadata bool) (*HandshakeReply, error) {
	fc, ok := ch.(*fakeChannel)
	if !ok {
		return nil, errors.New("fakeCodec: not a fakeChannel")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err, ok := c.errs[fc.host]; ok && err != nil {
		return nil, err
	}
	reply, ok := c.replies[fc.host]
	if !ok {
		return nil, errors.New("fakeCodec: no reply configured for host " + fc.host)
	}
	return reply, nil
}

var errDialRefused = errors.New("fakeTransport: connection refused")
