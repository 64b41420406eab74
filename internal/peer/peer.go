package peer

import (
	"context"
	"errors"

	"github.com/TheJagStudio/Family-Fued/internal/protocol"
)

var ErrAddressUnavailable = errors.New("session id already claimed")
var ErrConnectFailed = errors.New("could not connect to session")
var ErrConnectionClosed = errors.New("connection closed")

// Transport is the minimal contract over a connection-oriented,
// message-framed peer channel. Delivery is ordered and reliable within one
// connection; nothing is guaranteed across connections.
type Transport interface {
	// Open claims a session id on the shared directory and returns a
	// listening endpoint. Fails with ErrAddressUnavailable when another live
	// endpoint holds the id.
	Open(ctx context.Context, id string) (Endpoint, error)
	// Dial connects an anonymous local endpoint to a claimed session id.
	// Fails with ErrConnectFailed when the target is absent or unreachable.
	Dial(ctx context.Context, target string) (Conn, error)
}

// Endpoint is a bound session id accepting inbound connections.
type Endpoint interface {
	ID() string
	// Accept yields inbound connections once their handshake completes. The
	// channel closes when the endpoint does.
	Accept() <-chan Conn
	Close() error
}

// Conn is one live peer connection. Send is fire-and-forget: a nil return
// means enqueued, never delivered.
type Conn interface {
	RemoteID() string
	Send(msg protocol.Message) error
	// Recv yields messages in the order the peer sent them. The channel
	// closes on teardown from either side.
	Recv() <-chan protocol.Message
	Close() error
}
