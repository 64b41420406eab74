package relay

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/TheJagStudio/Family-Fued/internal/session"
	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Server is the rendezvous directory hosts and displays meet on. It holds no
// game state; it only claims session ids and pipes frames.
type Server struct {
	registry *registry
	log      *zap.Logger
}

func New(ctx context.Context, log *zap.Logger) *Server {
	return &Server{
		registry: newRegistry(ctx, log),
		log:      log,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealthz)
	r.Get("/v1/peers/{id}/listen", s.handleListen)
	r.Get("/v1/peers/{id}/connect", s.handleConnect)
	r.Get("/join/{code}", s.handleJoinQR)

	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// handleJoinQR renders the room code as a QR of its session id, for showing
// next to the projector.
func (s *Server) handleJoinQR(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(chi.URLParam(r, "code"))
	if len(code) != session.CodeLength {
		http.Error(w, "bad room code", http.StatusBadRequest)
		return
	}

	png, err := qrcode.Encode(session.SessionID(code), qrcode.Medium, 256)
	if err != nil {
		s.log.Error("encode join qr", zap.String("code", code), zap.Error(err))
		http.Error(w, "failed to render code", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// Run serves until ctx ends, then drains with a short grace period.
func Run(ctx context.Context, addr string, log *zap.Logger) error {
	srv := New(ctx, log)

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("relay listening", zap.String("addr", addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		srv.registry.post(shutdownRegistry{})
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
