package relay

import (
	"context"

	"github.com/TheJagStudio/Family-Fued/internal/protocol"
	"go.uber.org/zap"
)

const socketBuffer = 64

type sessionMsg interface{ isSessionMsg() }

// clientJoin attaches a display socket. Reply receives false when the
// session is already tearing down.
type clientJoin struct {
	ID     string
	Outbox chan []byte
	Reply  chan bool
}

type clientLeave struct {
	ID string
}

// fromHost is one decoded frame off the host socket.
type fromHost struct {
	Frame protocol.Frame
}

// fromClient is one raw message off a display socket, to be framed for the
// host.
type fromClient struct {
	ID   string
	Data []byte
}

type sessionShutdown struct{}

func (clientJoin) isSessionMsg()      {}
func (clientLeave) isSessionMsg()     {}
func (fromHost) isSessionMsg()        {}
func (fromClient) isSessionMsg()      {}
func (sessionShutdown) isSessionMsg() {}

// hostSession pipes frames between one host socket and its display sockets.
// All routing state lives inside the loop goroutine.
type hostSession struct {
	id      string
	inbox   chan sessionMsg
	hostOut chan []byte
	clients map[string]chan []byte
	ctx     context.Context
	cancel  context.CancelFunc
	log     *zap.Logger
}

func newHostSession(parent context.Context, id string, log *zap.Logger) *hostSession {
	ctx, cancel := context.WithCancel(parent)
	sess := &hostSession{
		id:      id,
		inbox:   make(chan sessionMsg, socketBuffer),
		hostOut: make(chan []byte, socketBuffer),
		clients: make(map[string]chan []byte),
		ctx:     ctx,
		cancel:  cancel,
		log:     log.With(zap.String("session", id)),
	}
	go sess.loop()
	return sess
}

func (s *hostSession) post(m sessionMsg) bool {
	select {
	case s.inbox <- m:
		return true
	case <-s.ctx.Done():
		return false
	}
}

func (s *hostSession) loop() {
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case clientJoin:
				s.clients[msg.ID] = msg.Outbox
				s.toHost(protocol.Frame{Kind: protocol.FrameOpen, Conn: msg.ID})
				s.log.Info("display joined", zap.String("conn", msg.ID), zap.Int("displays", len(s.clients)))
				msg.Reply <- true

			case clientLeave:
				if out, ok := s.clients[msg.ID]; ok {
					delete(s.clients, msg.ID)
					close(out)
					s.toHost(protocol.Frame{Kind: protocol.FrameClose, Conn: msg.ID})
					s.log.Info("display left", zap.String("conn", msg.ID), zap.Int("displays", len(s.clients)))
				}

			case fromClient:
				s.toHost(protocol.Frame{Kind: protocol.FrameData, Conn: msg.ID, Data: msg.Data})

			case fromHost:
				s.routeToClient(msg.Frame)

			case sessionShutdown:
				s.shutdown()
				return
			}
		}
	}
}

func (s *hostSession) routeToClient(f protocol.Frame) {
	out, ok := s.clients[f.Conn]
	if !ok {
		return
	}
	switch f.Kind {
	case protocol.FrameClose:
		delete(s.clients, f.Conn)
		close(out)
	case protocol.FrameData:
		select {
		case out <- f.Data:
		default:
			// Display is not draining; cut it loose rather than stall the
			// session loop.
			delete(s.clients, f.Conn)
			close(out)
			s.log.Warn("dropping slow display", zap.String("conn", f.Conn))
		}
	}
}

func (s *hostSession) toHost(f protocol.Frame) {
	data, err := protocol.EncodeFrame(f)
	if err != nil {
		s.log.Error("encode frame", zap.Error(err))
		return
	}
	select {
	case s.hostOut <- data:
	default:
		s.log.Warn("host socket not draining, dropping frame", zap.String("kind", string(f.Kind)))
	}
}

func (s *hostSession) shutdown() {
	for id, out := range s.clients {
		close(out)
		delete(s.clients, id)
	}
	close(s.hostOut)
	s.cancel()
}
