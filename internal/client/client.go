package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/TheJagStudio/Family-Fued/internal/engine"
	"github.com/TheJagStudio/Family-Fued/internal/peer"
	"github.com/TheJagStudio/Family-Fued/internal/protocol"
	"github.com/TheJagStudio/Family-Fued/internal/session"
	"go.uber.org/zap"
)

var ErrEmptyRoomCode = errors.New("room code is empty")
var ErrAlreadyConnected = errors.New("already connected")

// DefaultOverlayDuration is the client-local strike flash time. Shorter than
// the host's on purpose; the overlay is a local animation hint, not a
// synchronized countdown.
const DefaultOverlayDuration = 2 * time.Second

type Phase string

const (
	PhaseDisconnected Phase = "DISCONNECTED"
	PhaseConnecting   Phase = "CONNECTING"
	PhaseConnected    Phase = "CONNECTED"
	PhaseFailed       Phase = "FAILED"
)

type EventType string

const (
	// EvtStateUpdated fires after a snapshot (or RESET) replaced local state.
	EvtStateUpdated EventType = "StateUpdated"
	// EvtWrongShown / EvtWrongCleared bracket the local overlay flash.
	EvtWrongShown   EventType = "WrongShown"
	EvtWrongCleared EventType = "WrongCleared"
	// EvtHostDisconnected fires once when the connection goes away. There is
	// no automatic reconnect.
	EvtHostDisconnected EventType = "HostDisconnected"
)

type Event struct {
	Type  EventType
	State engine.State
}

// Manager drives one display's connection to a host. It never mutates game
// state; snapshots replace the local copy wholesale.
type Manager struct {
	transport       peer.Transport
	log             *zap.Logger
	overlayDuration time.Duration

	mu         sync.Mutex
	phase      Phase
	state      engine.State
	conn       peer.Conn
	showWrong  bool
	overlayGen int

	events chan Event
}

type Option func(*Manager)

func WithOverlayDuration(d time.Duration) Option {
	return func(m *Manager) { m.overlayDuration = d }
}

func New(transport peer.Transport, log *zap.Logger, opts ...Option) *Manager {
	m := &Manager{
		transport:       transport,
		log:             log,
		overlayDuration: DefaultOverlayDuration,
		phase:           PhaseDisconnected,
		state:           engine.NewState(),
		events:          make(chan Event, 16),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Connect dials the host behind roomCode. The transport imposes no timeout
// of its own; bound the attempt through ctx. On failure the manager lands in
// PhaseFailed and a fresh Connect may be tried.
func (m *Manager) Connect(ctx context.Context, roomCode string) error {
	if roomCode == "" {
		return ErrEmptyRoomCode
	}

	m.mu.Lock()
	if m.phase == PhaseConnecting || m.phase == PhaseConnected {
		m.mu.Unlock()
		return ErrAlreadyConnected
	}
	m.phase = PhaseConnecting
	m.mu.Unlock()

	target := session.SessionID(roomCode)
	conn, err := m.transport.Dial(ctx, target)
	if err != nil {
		m.mu.Lock()
		m.phase = PhaseFailed
		m.mu.Unlock()
		return fmt.Errorf("connect %s: %w", target, err)
	}

	m.mu.Lock()
	m.phase = PhaseConnected
	m.conn = conn
	m.mu.Unlock()
	m.log.Info("connected to host", zap.String("session", target))

	go m.readLoop(conn)
	return nil
}

func (m *Manager) Events() <-chan Event { return m.events }

func (m *Manager) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// State returns the last applied snapshot.
func (m *Manager) State() engine.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// ShowWrong reports whether the local strike flash is currently raised.
func (m *Manager) ShowWrong() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.showWrong
}

func (m *Manager) Close() {
	m.mu.Lock()
	conn := m.conn
	m.conn = nil
	m.phase = PhaseDisconnected
	m.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

func (m *Manager) readLoop(conn peer.Conn) {
	for msg := range conn.Recv() {
		switch msg.Type {
		case protocol.TypeSyncState:
			snapshot, err := msg.State()
			if err != nil {
				m.log.Warn("bad snapshot", zap.Error(err))
				continue
			}
			// Replace wholesale; the host always sends complete snapshots,
			// so there is nothing to merge.
			m.mu.Lock()
			m.state = snapshot
			m.mu.Unlock()
			m.emit(Event{Type: EvtStateUpdated, State: snapshot})

		case protocol.TypeShowWrong:
			m.triggerWrong()

		case protocol.TypeReset:
			m.mu.Lock()
			m.state = engine.NewState()
			snapshot := m.state
			m.mu.Unlock()
			m.emit(Event{Type: EvtStateUpdated, State: snapshot})
		}
	}

	// Recv closed: the host went away or we hung up.
	m.mu.Lock()
	wasConnected := m.phase == PhaseConnected
	m.phase = PhaseDisconnected
	m.conn = nil
	m.mu.Unlock()
	if wasConnected {
		m.log.Info("host disconnected")
		m.emit(Event{Type: EvtHostDisconnected})
	}
}

// triggerWrong raises the local overlay and arms (or re-arms) the hide
// timer. Retriggering simply restarts the visible duration.
func (m *Manager) triggerWrong() {
	m.mu.Lock()
	m.showWrong = true
	m.overlayGen++
	gen := m.overlayGen
	m.mu.Unlock()
	m.emit(Event{Type: EvtWrongShown})

	time.AfterFunc(m.overlayDuration, func() {
		m.mu.Lock()
		if gen != m.overlayGen {
			m.mu.Unlock()
			return // retriggered since; stale timer
		}
		m.showWrong = false
		m.mu.Unlock()
		m.emit(Event{Type: EvtWrongCleared})
	})
}

// emit never blocks; a stalled renderer just misses an edge, and the latest
// state is always readable via State().
func (m *Manager) emit(ev Event) {
	select {
	case m.events <- ev:
	default:
	}
}
