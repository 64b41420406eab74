package host

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/TheJagStudio/Family-Fued/internal/engine"
	"github.com/TheJagStudio/Family-Fued/internal/peer"
	"github.com/TheJagStudio/Family-Fued/internal/protocol"
	"github.com/TheJagStudio/Family-Fued/internal/session"
	"go.uber.org/zap"
)

// helper: receive one message with a timeout so tests never hang
func recvMsg(t *testing.T, ch <-chan protocol.Message, within time.Duration) protocol.Message {
	t.Helper()
	select {
	case msg, ok := <-ch:
		if !ok {
			t.Fatalf("conn recv closed unexpectedly")
		}
		return msg
	case <-time.After(within):
		t.Fatalf("timed out waiting for message")
		return protocol.Message{} // unreachable
	}
}

func recvState(t *testing.T, ch <-chan protocol.Message, within time.Duration) engine.State {
	t.Helper()
	msg := recvMsg(t, ch, within)
	if msg.Type != protocol.TypeSyncState {
		t.Fatalf("want SYNC_STATE, got %s", msg.Type)
	}
	s, err := msg.State()
	if err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	return s
}

func startHost(t *testing.T, opts ...Option) (*Manager, *peer.MemoryTransport) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	transport := peer.NewMemoryTransport()
	m, err := Start(ctx, transport, zap.NewNop(), opts...)
	if err != nil {
		t.Fatalf("start host: %v", err)
	}
	t.Cleanup(m.Close)
	return m, transport
}

func dialHost(t *testing.T, transport *peer.MemoryTransport, m *Manager) peer.Conn {
	t.Helper()
	conn, err := transport.Dial(context.Background(), session.SessionID(m.RoomCode()))
	if err != nil {
		t.Fatalf("dial host: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func loadFruit(t *testing.T, m *Manager) {
	t.Helper()
	err := m.Apply(engine.Command{Type: engine.CmdLoadQuestions, Questions: []engine.Question{
		{Text: "Name a fruit", Answers: []engine.Answer{
			{Text: "Apple", Points: 40},
			{Text: "Banana", Points: 30},
		}},
	}})
	if err != nil {
		t.Fatalf("load questions: %v", err)
	}
}

func TestHost_NewConnectionGetsImmediateSnapshot(t *testing.T) {
	m, transport := startHost(t)
	conn := dialHost(t, transport, m)

	s := recvState(t, conn.Recv(), time.Second)
	if s.Status != engine.StatusIdle {
		t.Fatalf("want IDLE catch-up snapshot, got %v", s.Status)
	}
}

func TestHost_LateJoinerCatchesUpToCurrentState(t *testing.T) {
	m, transport := startHost(t)

	// Several mutations before anyone connects.
	loadFruit(t, m)
	if err := m.Apply(engine.Command{Type: engine.CmdStartGame}); err != nil {
		t.Fatalf("start game: %v", err)
	}
	if err := m.Apply(engine.Command{Type: engine.CmdRevealAnswer, AnswerIndex: 0}); err != nil {
		t.Fatalf("reveal: %v", err)
	}

	conn := dialHost(t, transport, m)
	s := recvState(t, conn.Recv(), time.Second)
	if s.Status != engine.StatusActive {
		t.Fatalf("want ACTIVE, got %v", s.Status)
	}
	if !s.Questions[0].Answers[0].Revealed {
		t.Fatalf("late joiner missed the reveal: %+v", s.Questions[0])
	}
}

func TestHost_MutationBroadcastsToAllConnections(t *testing.T) {
	m, transport := startHost(t)
	connA := dialHost(t, transport, m)
	connB := dialHost(t, transport, m)

	_ = recvState(t, connA.Recv(), time.Second) // catch-up
	_ = recvState(t, connB.Recv(), time.Second)

	loadFruit(t, m)

	for name, conn := range map[string]peer.Conn{"a": connA, "b": connB} {
		s := recvState(t, conn.Recv(), time.Second)
		if s.Status != engine.StatusWaiting {
			t.Fatalf("conn %s: want WAITING, got %v", name, s.Status)
		}
	}
}

func TestHost_StrikeDoubleSignals(t *testing.T) {
	m, transport := startHost(t, WithOverlayDuration(time.Hour))
	conn := dialHost(t, transport, m)
	_ = recvState(t, conn.Recv(), time.Second)

	loadFruit(t, m)
	_ = recvState(t, conn.Recv(), time.Second)
	if err := m.Apply(engine.Command{Type: engine.CmdStartGame}); err != nil {
		t.Fatalf("start game: %v", err)
	}
	_ = recvState(t, conn.Recv(), time.Second)

	if err := m.Apply(engine.Command{Type: engine.CmdStrike}); err != nil {
		t.Fatalf("strike: %v", err)
	}

	// The durable count rides the snapshot; the flash is its own message.
	s := recvState(t, conn.Recv(), time.Second)
	if s.WrongAnswerCount != 1 || !s.ShowWrongOverlay {
		t.Fatalf("snapshot missing strike: %+v", s)
	}
	flash := recvMsg(t, conn.Recv(), time.Second)
	if flash.Type != protocol.TypeShowWrong {
		t.Fatalf("want SHOW_WRONG after snapshot, got %s", flash.Type)
	}
}

func TestHost_OverlayHidesAfterDuration(t *testing.T) {
	m, transport := startHost(t, WithOverlayDuration(30*time.Millisecond))
	conn := dialHost(t, transport, m)
	_ = recvState(t, conn.Recv(), time.Second)

	loadFruit(t, m)
	_ = recvState(t, conn.Recv(), time.Second)
	_ = m.Apply(engine.Command{Type: engine.CmdStartGame})
	_ = recvState(t, conn.Recv(), time.Second)
	_ = m.Apply(engine.Command{Type: engine.CmdStrike})
	_ = recvState(t, conn.Recv(), time.Second) // strike snapshot
	_ = recvMsg(t, conn.Recv(), time.Second)   // SHOW_WRONG

	s := recvState(t, conn.Recv(), time.Second)
	if s.ShowWrongOverlay {
		t.Fatalf("overlay should have auto-hidden: %+v", s)
	}
	if s.WrongAnswerCount != 1 {
		t.Fatalf("hide must not reset the strike count: %+v", s)
	}
}

// failingConn accepts the catch-up snapshot, then errors on every later
// send, standing in for a transport that broke mid-session.
type failingConn struct {
	inbox chan protocol.Message
	sends int
}

func newFailingConn() *failingConn {
	return &failingConn{inbox: make(chan protocol.Message)}
}

func (c *failingConn) RemoteID() string { return "broken-peer" }

func (c *failingConn) Send(protocol.Message) error {
	c.sends++
	if c.sends == 1 {
		return nil
	}
	return fmt.Errorf("send: %w", peer.ErrConnectionClosed)
}

func (c *failingConn) Recv() <-chan protocol.Message { return c.inbox }
func (c *failingConn) Close() error                  { return nil }

func TestHost_BrokenConnectionDoesNotBlockBroadcast(t *testing.T) {
	m, transport := startHost(t)

	// A healthy display, then a broken one wedged into the middle of the
	// set, then another healthy one.
	connA := dialHost(t, transport, m)
	_ = recvState(t, connA.Recv(), time.Second)
	m.Inbox() <- attach{conn: newFailingConn()}
	connB := dialHost(t, transport, m)
	_ = recvState(t, connB.Recv(), time.Second)

	loadFruit(t, m)

	for name, conn := range map[string]peer.Conn{"a": connA, "b": connB} {
		s := recvState(t, conn.Recv(), time.Second)
		if s.Status != engine.StatusWaiting {
			t.Fatalf("conn %s: want WAITING, got %v", name, s.Status)
		}
	}

	// The broken conn is gone from the set.
	view := m.View()
	if view.NumClients != 2 {
		t.Fatalf("want 2 displays after dropping the broken one, got %d", view.NumClients)
	}
}

func TestHost_DisconnectRemovesConnection(t *testing.T) {
	m, transport := startHost(t)
	conn := dialHost(t, transport, m)
	_ = recvState(t, conn.Recv(), time.Second)

	if view := m.View(); view.NumClients != 1 {
		t.Fatalf("want 1 display, got %d", view.NumClients)
	}

	conn.Close()

	deadline := time.After(time.Second)
	for {
		if view := m.View(); view.NumClients == 0 {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("display was not removed after close")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestHost_RejectedCommandLeavesStateUntouched(t *testing.T) {
	m, _ := startHost(t)

	err := m.Apply(engine.Command{Type: engine.CmdStrike})
	if !errors.Is(err, engine.ErrGameNotActive) {
		t.Fatalf("want ErrGameNotActive, got %v", err)
	}
	if view := m.View(); view.State.Status != engine.StatusIdle {
		t.Fatalf("state changed on rejected command: %+v", view.State)
	}
}

// stubTransport fails every Open with ErrAddressUnavailable.
type stubTransport struct{}

func (stubTransport) Open(context.Context, string) (peer.Endpoint, error) {
	return nil, peer.ErrAddressUnavailable
}
func (stubTransport) Dial(context.Context, string) (peer.Conn, error) {
	return nil, peer.ErrConnectFailed
}

func TestHost_AddressCollisionIsFatalToStart(t *testing.T) {
	_, err := Start(context.Background(), stubTransport{}, zap.NewNop())
	if !errors.Is(err, peer.ErrAddressUnavailable) {
		t.Fatalf("want ErrAddressUnavailable, got %v", err)
	}
}

func TestHost_ViewExposesRoundTotal(t *testing.T) {
	m, _ := startHost(t)
	loadFruit(t, m)
	_ = m.Apply(engine.Command{Type: engine.CmdStartGame})
	_ = m.Apply(engine.Command{Type: engine.CmdRevealAnswer, AnswerIndex: 1})

	view := m.View()
	if view.RoundTotal != 30 {
		t.Fatalf("want round total 30, got %d", view.RoundTotal)
	}
	if view.RoomCode != m.RoomCode() {
		t.Fatalf("view room code mismatch")
	}
}
