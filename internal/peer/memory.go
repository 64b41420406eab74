package peer

import (
	"context"
	"fmt"
	"sync"

	"github.com/TheJagStudio/Family-Fued/internal/protocol"
	"github.com/google/uuid"
)

const connBuffer = 32

// MemoryTransport is an in-process directory of endpoints. It backs the
// manager tests and single-machine games; the relay transport is the
// networked equivalent.
type MemoryTransport struct {
	mu        sync.Mutex
	endpoints map[string]*memEndpoint
}

func NewMemoryTransport() *MemoryTransport {
	return &MemoryTransport{endpoints: make(map[string]*memEndpoint)}
}

func (t *MemoryTransport) Open(_ context.Context, id string) (Endpoint, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, taken := t.endpoints[id]; taken {
		return nil, fmt.Errorf("%w: %s", ErrAddressUnavailable, id)
	}
	ep := &memEndpoint{
		id:        id,
		transport: t,
		accept:    make(chan Conn, connBuffer),
	}
	t.endpoints[id] = ep
	return ep, nil
}

func (t *MemoryTransport) Dial(_ context.Context, target string) (Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ep, ok := t.endpoints[target]
	if !ok {
		return nil, fmt.Errorf("%w: no endpoint for %s", ErrConnectFailed, target)
	}

	local := uuid.NewString()
	hostSide := &memConn{remote: local, inbox: make(chan protocol.Message, connBuffer)}
	clientSide := &memConn{remote: target, inbox: make(chan protocol.Message, connBuffer)}
	hostSide.peer = clientSide
	clientSide.peer = hostSide

	select {
	case ep.accept <- hostSide:
		return clientSide, nil
	default:
		return nil, fmt.Errorf("%w: accept backlog full for %s", ErrConnectFailed, target)
	}
}

type memEndpoint struct {
	id        string
	transport *MemoryTransport
	accept    chan Conn
	closeOnce sync.Once
}

func (e *memEndpoint) ID() string          { return e.id }
func (e *memEndpoint) Accept() <-chan Conn { return e.accept }

func (e *memEndpoint) Close() error {
	e.closeOnce.Do(func() {
		e.transport.mu.Lock()
		delete(e.transport.endpoints, e.id)
		close(e.accept)
		e.transport.mu.Unlock()
	})
	return nil
}

type memConn struct {
	remote string
	inbox  chan protocol.Message
	peer   *memConn

	mu     sync.Mutex
	closed bool
}

func (c *memConn) RemoteID() string { return c.remote }

func (c *memConn) Send(msg protocol.Message) error {
	dst := c.peer
	dst.mu.Lock()
	defer dst.mu.Unlock()
	if dst.closed {
		return ErrConnectionClosed
	}
	select {
	case dst.inbox <- msg:
		return nil
	default:
		// Receiver is not draining; treat it like a dead peer.
		return fmt.Errorf("%w: peer not draining", ErrConnectionClosed)
	}
}

func (c *memConn) Recv() <-chan protocol.Message { return c.inbox }

func (c *memConn) Close() error {
	c.closeSide()
	c.peer.closeSide()
	return nil
}

func (c *memConn) closeSide() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.inbox)
}
