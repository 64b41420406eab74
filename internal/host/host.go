package host

import (
	"context"
	"fmt"
	"time"

	"github.com/TheJagStudio/Family-Fued/internal/engine"
	"github.com/TheJagStudio/Family-Fued/internal/peer"
	"github.com/TheJagStudio/Family-Fued/internal/protocol"
	"github.com/TheJagStudio/Family-Fued/internal/session"
	"go.uber.org/zap"
)

// DefaultOverlayDuration is how long the host keeps ShowWrongOverlay raised.
// Clients run their own, shorter timer off SHOW_WRONG; the two are
// deliberately independent.
const DefaultOverlayDuration = 2500 * time.Millisecond

type Msg interface{ isHostMsg() }

type attach struct{ conn peer.Conn }

type detach struct{ conn peer.Conn }

// Do applies one state-machine command. Reply receives the engine's verdict.
type Do struct {
	Cmd   engine.Command
	Reply chan error
}

type GetView struct {
	Reply chan View
}

type overlayTimeout struct{ gen int }

type Shutdown struct{}

func (attach) isHostMsg()         {}
func (detach) isHostMsg()         {}
func (Do) isHostMsg()             {}
func (GetView) isHostMsg()        {}
func (overlayTimeout) isHostMsg() {}
func (Shutdown) isHostMsg()       {}

// View is a read-only reflection of the manager for operators and tests.
type View struct {
	RoomCode   string
	State      engine.State
	NumClients int
	RoundTotal int
}

// Manager owns the canonical GameState and the live connection set. All
// mutation funnels through the inbox loop; transport code never touches
// state directly.
type Manager struct {
	inbox    chan Msg
	state    engine.State
	conns    []peer.Conn // insertion-ordered
	code     string
	endpoint peer.Endpoint

	overlayGen      int
	overlayDuration time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	log    *zap.Logger
}

type Option func(*Manager)

func WithOverlayDuration(d time.Duration) Option {
	return func(m *Manager) { m.overlayDuration = d }
}

// Start generates a room code, claims its session id and goes live. A claim
// collision is fatal to session start: the caller surfaces it and the human
// retries, which regenerates the code.
func Start(ctx context.Context, transport peer.Transport, log *zap.Logger, opts ...Option) (*Manager, error) {
	code, err := session.GenerateRoomCode()
	if err != nil {
		return nil, fmt.Errorf("generate room code: %w", err)
	}

	endpoint, err := transport.Open(ctx, session.SessionID(code))
	if err != nil {
		return nil, fmt.Errorf("bind session %s: %w", code, err)
	}

	mgrCtx, cancel := context.WithCancel(ctx)
	m := &Manager{
		inbox:           make(chan Msg, 64),
		state:           engine.NewState(),
		code:            code,
		endpoint:        endpoint,
		overlayDuration: DefaultOverlayDuration,
		ctx:             mgrCtx,
		cancel:          cancel,
		log:             log.With(zap.String("room", code)),
	}
	for _, opt := range opts {
		opt(m)
	}

	go m.loop()
	go m.acceptLoop()
	m.log.Info("hosting session", zap.String("session", endpoint.ID()))
	return m, nil
}

func (m *Manager) Inbox() chan<- Msg { return m.inbox }

func (m *Manager) RoomCode() string { return m.code }

// Apply runs one command against the canonical state and waits for the
// verdict.
func (m *Manager) Apply(cmd engine.Command) error {
	reply := make(chan error, 1)
	select {
	case m.inbox <- Do{Cmd: cmd, Reply: reply}:
	case <-m.ctx.Done():
		return m.ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-m.ctx.Done():
		return m.ctx.Err()
	}
}

// View snapshots the manager without data races.
func (m *Manager) View() View {
	reply := make(chan View, 1)
	select {
	case m.inbox <- GetView{Reply: reply}:
	case <-m.ctx.Done():
		return View{RoomCode: m.code}
	}
	select {
	case v := <-reply:
		return v
	case <-m.ctx.Done():
		return View{RoomCode: m.code}
	}
}

func (m *Manager) Close() {
	select {
	case m.inbox <- Shutdown{}:
	case <-m.ctx.Done():
	}
}

// Done closes when the session has fully torn down.
func (m *Manager) Done() <-chan struct{} { return m.ctx.Done() }

func (m *Manager) acceptLoop() {
	for conn := range m.endpoint.Accept() {
		select {
		case m.inbox <- attach{conn: conn}:
		case <-m.ctx.Done():
			conn.Close()
			return
		}
	}
}

// watch drains a client connection; displays never speak, but the stream
// closing is how we learn the peer went away.
func (m *Manager) watch(conn peer.Conn) {
	for range conn.Recv() {
	}
	select {
	case m.inbox <- detach{conn: conn}:
	case <-m.ctx.Done():
	}
}

func (m *Manager) loop() {
	for {
		select {
		case <-m.ctx.Done():
			m.shutdown()
			return

		case raw := <-m.inbox:
			switch msg := raw.(type) {
			case attach:
				m.conns = append(m.conns, msg.conn)
				go m.watch(msg.conn)
				m.log.Info("display connected", zap.String("peer", msg.conn.RemoteID()), zap.Int("displays", len(m.conns)))
				// Catch-up sync: a late joiner gets the current state, not
				// an initial one.
				if err := m.sendSnapshot(msg.conn); err != nil {
					m.drop(msg.conn)
				}

			case detach:
				m.drop(msg.conn)

			case Do:
				msg.Reply <- m.apply(msg.Cmd)

			case overlayTimeout:
				if msg.gen != m.overlayGen {
					break // retriggered since; stale fire
				}
				if m.state.ShowWrongOverlay {
					_ = m.apply(engine.Command{Type: engine.CmdHideOverlay})
				}

			case GetView:
				msg.Reply <- View{
					RoomCode:   m.code,
					State:      m.state,
					NumClients: len(m.conns),
					RoundTotal: engine.RoundTotal(m.state),
				}

			case Shutdown:
				m.shutdown()
				return
			}
		}
	}
}

// apply runs the state machine and, on success, fans the new snapshot out to
// every open connection. Strikes additionally emit the ephemeral SHOW_WRONG
// signal and arm the hide timer.
func (m *Manager) apply(cmd engine.Command) error {
	events, newState, err := engine.Apply(m.state, cmd)
	if err != nil {
		return err
	}
	m.state = newState
	m.broadcastState()

	if engine.ContainsEvent(events, engine.EvtWrongShown) {
		m.broadcast(protocol.ShowWrong())
		m.armOverlayTimer()
	}
	for _, ev := range events {
		m.log.Info("state event", zap.String("event", string(ev.Type)))
	}
	return nil
}

func (m *Manager) armOverlayTimer() {
	m.overlayGen++
	gen := m.overlayGen
	go func() {
		select {
		case <-time.After(m.overlayDuration):
		case <-m.ctx.Done():
			return
		}
		select {
		case m.inbox <- overlayTimeout{gen: gen}:
		case <-m.ctx.Done():
		}
	}()
}

func (m *Manager) sendSnapshot(conn peer.Conn) error {
	msg, err := protocol.SyncState(m.state)
	if err != nil {
		return err
	}
	return conn.Send(msg)
}

func (m *Manager) broadcastState() {
	msg, err := protocol.SyncState(m.state)
	if err != nil {
		m.log.Error("marshal snapshot", zap.Error(err))
		return
	}
	m.broadcast(msg)
}

// broadcast sends independently to every open connection; one dead peer
// never blocks delivery to the rest.
func (m *Manager) broadcast(msg protocol.Message) {
	var dead []peer.Conn
	for _, conn := range m.conns {
		if err := conn.Send(msg); err != nil {
			dead = append(dead, conn)
			m.log.Warn("send failed, dropping display", zap.String("peer", conn.RemoteID()), zap.Error(err))
		}
	}
	for _, conn := range dead {
		m.drop(conn)
	}
}

func (m *Manager) drop(conn peer.Conn) {
	for i, c := range m.conns {
		if c == conn {
			m.conns = append(m.conns[:i], m.conns[i+1:]...)
			conn.Close()
			m.log.Info("display disconnected", zap.String("peer", conn.RemoteID()), zap.Int("displays", len(m.conns)))
			return
		}
	}
}

func (m *Manager) shutdown() {
	for _, conn := range m.conns {
		conn.Close()
	}
	m.conns = nil
	m.endpoint.Close()
	m.cancel()
	m.log.Info("session ended")
}
