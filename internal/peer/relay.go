package peer

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/TheJagStudio/Family-Fued/internal/protocol"
	"github.com/coder/websocket"
	"go.uber.org/zap"
)

const sendTimeout = 10 * time.Second

// RelayTransport reaches peers through a rendezvous relay. The host side
// multiplexes every display over one socket using protocol frames; the
// display side speaks bare peer messages.
type RelayTransport struct {
	baseURL string
	log     *zap.Logger
}

// NewRelayTransport takes the relay base URL, e.g. "ws://relay.local:8080".
func NewRelayTransport(baseURL string, log *zap.Logger) *RelayTransport {
	return &RelayTransport{baseURL: strings.TrimSuffix(baseURL, "/"), log: log}
}

func (t *RelayTransport) Open(ctx context.Context, id string) (Endpoint, error) {
	endpoint := fmt.Sprintf("%s/v1/peers/%s/listen", t.baseURL, url.PathEscape(id))
	sock, resp, err := websocket.Dial(ctx, endpoint, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusConflict {
			return nil, fmt.Errorf("%w: %s", ErrAddressUnavailable, id)
		}
		return nil, fmt.Errorf("open %s: %w", id, err)
	}

	epCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	ep := &relayEndpoint{
		id:     id,
		sock:   sock,
		accept: make(chan Conn, connBuffer),
		out:    make(chan []byte, connBuffer),
		conns:  make(map[string]*relayConn),
		ctx:    epCtx,
		cancel: cancel,
		log:    t.log.With(zap.String("session", id)),
	}
	go ep.readLoop()
	go ep.writeLoop()
	return ep, nil
}

func (t *RelayTransport) Dial(ctx context.Context, target string) (Conn, error) {
	endpoint := fmt.Sprintf("%s/v1/peers/%s/connect", t.baseURL, url.PathEscape(target))
	sock, _, err := websocket.Dial(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConnectFailed, target, err)
	}

	connCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c := &dialConn{
		remote: target,
		sock:   sock,
		inbox:  make(chan protocol.Message, connBuffer),
		ctx:    connCtx,
		cancel: cancel,
		log:    t.log.With(zap.String("session", target)),
	}
	go c.readLoop()
	return c, nil
}

// relayEndpoint is the host's side of the relay: one socket, many logical
// connections.
type relayEndpoint struct {
	id     string
	sock   *websocket.Conn
	accept chan Conn
	out    chan []byte
	ctx    context.Context
	cancel context.CancelFunc
	log    *zap.Logger

	mu     sync.Mutex
	conns  map[string]*relayConn
	closed bool
}

func (e *relayEndpoint) ID() string          { return e.id }
func (e *relayEndpoint) Accept() <-chan Conn { return e.accept }

func (e *relayEndpoint) Close() error {
	e.teardown()
	return nil
}

func (e *relayEndpoint) readLoop() {
	defer e.teardown()
	for {
		_, data, err := e.sock.Read(e.ctx)
		if err != nil {
			return
		}
		frame, err := protocol.DecodeFrame(data)
		if err != nil {
			e.log.Warn("bad relay frame", zap.Error(err))
			continue
		}
		switch frame.Kind {
		case protocol.FrameOpen:
			e.acceptConn(frame.Conn)
		case protocol.FrameData:
			e.deliver(frame)
		case protocol.FrameClose:
			e.dropConn(frame.Conn)
		}
	}
}

func (e *relayEndpoint) writeLoop() {
	for {
		select {
		case <-e.ctx.Done():
			return
		case data := <-e.out:
			ctx, cancel := context.WithTimeout(e.ctx, sendTimeout)
			err := e.sock.Write(ctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				e.teardown()
				return
			}
		}
	}
}

func (e *relayEndpoint) acceptConn(id string) {
	c := &relayConn{
		id:    id,
		ep:    e,
		inbox: make(chan protocol.Message, connBuffer),
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.conns[id] = c
	refused := false
	select {
	case e.accept <- c:
	default:
		// Nobody is accepting; refuse the connection.
		delete(e.conns, id)
		refused = true
	}
	e.mu.Unlock()

	if refused {
		_ = c.Close()
	}
}

func (e *relayEndpoint) deliver(frame protocol.Frame) {
	e.mu.Lock()
	c := e.conns[frame.Conn]
	e.mu.Unlock()
	if c == nil {
		return
	}
	msg, err := protocol.Decode(frame.Data)
	if err != nil {
		e.log.Warn("bad peer message", zap.String("conn", frame.Conn), zap.Error(err))
		return
	}
	c.push(msg)
}

func (e *relayEndpoint) dropConn(id string) {
	e.mu.Lock()
	c := e.conns[id]
	delete(e.conns, id)
	e.mu.Unlock()
	if c != nil {
		c.closeLocal()
	}
}

func (e *relayEndpoint) enqueue(data []byte) error {
	select {
	case e.out <- data:
		return nil
	case <-e.ctx.Done():
		return ErrConnectionClosed
	default:
		return fmt.Errorf("%w: relay socket not draining", ErrConnectionClosed)
	}
}

func (e *relayEndpoint) teardown() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	conns := make([]*relayConn, 0, len(e.conns))
	for _, c := range e.conns {
		conns = append(conns, c)
	}
	e.conns = map[string]*relayConn{}
	close(e.accept)
	e.mu.Unlock()

	for _, c := range conns {
		c.closeLocal()
	}
	e.cancel()
	e.sock.Close(websocket.StatusNormalClosure, "endpoint closed")
}

// relayConn is one logical display connection, multiplexed over the host's
// relay socket.
type relayConn struct {
	id string
	ep *relayEndpoint

	mu     sync.Mutex
	closed bool
	inbox  chan protocol.Message
}

func (c *relayConn) RemoteID() string { return c.id }

func (c *relayConn) Send(msg protocol.Message) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrConnectionClosed
	}

	payload, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	data, err := protocol.EncodeFrame(protocol.Frame{Kind: protocol.FrameData, Conn: c.id, Data: payload})
	if err != nil {
		return err
	}
	return c.ep.enqueue(data)
}

func (c *relayConn) Recv() <-chan protocol.Message { return c.inbox }

func (c *relayConn) Close() error {
	c.ep.mu.Lock()
	delete(c.ep.conns, c.id)
	c.ep.mu.Unlock()

	if data, err := protocol.EncodeFrame(protocol.Frame{Kind: protocol.FrameClose, Conn: c.id}); err == nil {
		_ = c.ep.enqueue(data)
	}
	c.closeLocal()
	return nil
}

func (c *relayConn) push(msg protocol.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.inbox <- msg:
	default:
		// Reader stalled; the message is lost, which fire-and-forget allows.
	}
}

func (c *relayConn) closeLocal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.inbox)
}

// dialConn is the display's side: a plain socket speaking bare peer
// messages.
type dialConn struct {
	remote string
	sock   *websocket.Conn
	inbox  chan protocol.Message
	ctx    context.Context
	cancel context.CancelFunc
	log    *zap.Logger

	mu     sync.Mutex
	closed bool
}

func (c *dialConn) RemoteID() string { return c.remote }

func (c *dialConn) Send(msg protocol.Message) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.ctx, sendTimeout)
	defer cancel()
	if err := c.sock.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionClosed, err)
	}
	return nil
}

func (c *dialConn) Recv() <-chan protocol.Message { return c.inbox }

func (c *dialConn) Close() error {
	c.teardown(websocket.StatusNormalClosure, "bye")
	return nil
}

func (c *dialConn) readLoop() {
	defer c.teardown(websocket.StatusNormalClosure, "bye")
	for {
		_, data, err := c.sock.Read(c.ctx)
		if err != nil {
			return
		}
		msg, err := protocol.Decode(data)
		if err != nil {
			c.log.Warn("bad peer message", zap.Error(err))
			continue
		}
		c.push(msg)
	}
}

func (c *dialConn) push(msg protocol.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.inbox <- msg:
	default:
		c.log.Warn("inbox full, dropping message", zap.String("type", string(msg.Type)))
	}
}

func (c *dialConn) teardown(code websocket.StatusCode, reason string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.inbox)
	c.mu.Unlock()

	c.cancel()
	c.sock.Close(code, reason)
}
