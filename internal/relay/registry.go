package relay

import (
	"context"

	"go.uber.org/zap"
)

type registryMsg interface{ isRegistryMsg() }

// claimSession registers a session id for a host. Reply receives nil when
// the id is already claimed by a live host.
type claimSession struct {
	ID    string
	Reply chan *hostSession
}

type releaseSession struct {
	ID string
}

type lookupSession struct {
	ID    string
	Reply chan *hostSession
}

type shutdownRegistry struct{}

func (claimSession) isRegistryMsg()     {}
func (releaseSession) isRegistryMsg()   {}
func (lookupSession) isRegistryMsg()    {}
func (shutdownRegistry) isRegistryMsg() {}

// registry is the directory of claimed session ids, one hostSession per
// live host endpoint.
type registry struct {
	inbox    chan registryMsg
	sessions map[string]*hostSession
	ctx      context.Context
	cancel   context.CancelFunc
	log      *zap.Logger
}

func newRegistry(parent context.Context, log *zap.Logger) *registry {
	ctx, cancel := context.WithCancel(parent)
	reg := &registry{
		inbox:    make(chan registryMsg, 64),
		sessions: make(map[string]*hostSession),
		ctx:      ctx,
		cancel:   cancel,
		log:      log,
	}
	go reg.loop()
	return reg
}

func (reg *registry) post(m registryMsg) bool {
	select {
	case reg.inbox <- m:
		return true
	case <-reg.ctx.Done():
		return false
	}
}

func (reg *registry) loop() {
	for {
		select {
		case <-reg.ctx.Done():
			reg.shutdown()
			return

		case m := <-reg.inbox:
			switch msg := m.(type) {
			case claimSession:
				if _, taken := reg.sessions[msg.ID]; taken {
					reg.log.Info("session id collision", zap.String("session", msg.ID))
					msg.Reply <- nil
					break
				}
				sess := newHostSession(reg.ctx, msg.ID, reg.log)
				reg.sessions[msg.ID] = sess
				reg.log.Info("session claimed", zap.String("session", msg.ID))
				msg.Reply <- sess

			case releaseSession:
				if sess, ok := reg.sessions[msg.ID]; ok {
					delete(reg.sessions, msg.ID)
					sess.post(sessionShutdown{})
					reg.log.Info("session released", zap.String("session", msg.ID))
				}

			case lookupSession:
				msg.Reply <- reg.sessions[msg.ID] // may be nil

			case shutdownRegistry:
				reg.shutdown()
				return
			}
		}
	}
}

func (reg *registry) shutdown() {
	for id, sess := range reg.sessions {
		sess.post(sessionShutdown{})
		delete(reg.sessions, id)
	}
	reg.cancel()
}
