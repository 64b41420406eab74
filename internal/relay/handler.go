package relay

import (
	"context"
	"net/http"
	"time"

	"github.com/TheJagStudio/Family-Fued/internal/protocol"
	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const writeTimeout = 10 * time.Second

// handleListen binds a host to a session id. The socket carries framed
// traffic for every display attached to this session.
func (s *Server) handleListen(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "missing session id", http.StatusBadRequest)
		return
	}

	reply := make(chan *hostSession, 1)
	if !s.registry.post(claimSession{ID: id, Reply: reply}) {
		http.Error(w, "relay shutting down", http.StatusServiceUnavailable)
		return
	}
	sess := <-reply
	if sess == nil {
		// A claimed id is fatal for the host; 409 maps to
		// peer.ErrAddressUnavailable on the far side.
		http.Error(w, "session id already claimed", http.StatusConflict)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.registry.post(releaseSession{ID: id})
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")
	defer s.registry.post(releaseSession{ID: id})

	go writeSocket(r.Context(), conn, sess.hostOut)

	for {
		_, data, err := conn.Read(r.Context())
		if err != nil {
			return
		}
		frame, err := protocol.DecodeFrame(data)
		if err != nil {
			s.log.Warn("bad host frame", zap.String("session", id), zap.Error(err))
			continue
		}
		if !sess.post(fromHost{Frame: frame}) {
			return
		}
	}
}

// handleConnect attaches a display to a claimed session id. The socket
// carries bare peer messages; framing is the relay's business.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	reply := make(chan *hostSession, 1)
	if !s.registry.post(lookupSession{ID: id, Reply: reply}) {
		http.Error(w, "relay shutting down", http.StatusServiceUnavailable)
		return
	}
	sess := <-reply
	if sess == nil {
		http.Error(w, "no such session", http.StatusNotFound)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	connID := uuid.NewString()
	outbox := make(chan []byte, socketBuffer)
	joined := make(chan bool, 1)
	if !sess.post(clientJoin{ID: connID, Outbox: outbox, Reply: joined}) || !<-joined {
		conn.Close(websocket.StatusGoingAway, "host gone")
		return
	}
	defer sess.post(clientLeave{ID: connID})

	go writeSocket(r.Context(), conn, outbox)

	for {
		_, data, err := conn.Read(r.Context())
		if err != nil {
			return
		}
		if !sess.post(fromClient{ID: connID, Data: data}) {
			return
		}
	}
}

// writeSocket drains an outbox onto a websocket until either side goes away.
func writeSocket(parent context.Context, conn *websocket.Conn, outbox <-chan []byte) {
	for data := range outbox {
		ctx, cancel := context.WithTimeout(parent, writeTimeout)
		err := conn.Write(ctx, websocket.MessageText, data)
		cancel()
		if err != nil {
			return
		}
	}
	// Outbox closed: the session dropped this socket.
	conn.Close(websocket.StatusGoingAway, "session closed")
}
