// Package server exposes the coordinator over HTTP with JSON responses.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/life-stream-dev/life-stream-go-trivia-coordinator/internal/config"
	"github.com/life-stream-dev/life-stream-go-trivia-coordinator/internal/coordinator"
	"github.com/life-stream-dev/life-stream-go-trivia-coordinator/internal/logger"
	"github.com/life-stream-dev/life-stream-go-trivia-coordinator/internal/session"
)

// Coordinator is the set of operations the HTTP surface drives.
// *coordinator.Coordinator implements it.
type Coordinator interface {
	Defaults() session.Params
	List(ctx context.Context) []session.Snapshot
	Snapshot(id string) (session.Snapshot, error)
	Create(ctx context.Context, req coordinator.CreateRequest) (session.Snapshot, error)
	Join(ctx context.Context, id, player string) (session.Snapshot, error)
	Start(ctx context.Context, id string) (session.Snapshot, error)
	Lobby(ctx context.Context, id string) (coordinator.LobbyView, error)
	CheckReady(ctx context.Context, id string) (coordinator.ReadyView, error)
	FetchQuestion(ctx context.Context, id string) (coordinator.QuestionView, error)
	SubmitAnswer(ctx context.Context, req coordinator.AnswerRequest) (coordinator.Ack, error)
	CheckProgress(ctx context.Context, id string, question int) (coordinator.ProgressView, error)
	Results(ctx context.Context, id string, question int) (coordinator.ResultsView, error)
	End(ctx context.Context, id string) (coordinator.EndView, error)
}

// QRFiles locates join-link images. *artifact.Store implements it.
type QRFiles interface {
	Path(id string) string
	Exists(id string) bool
}

type Server struct {
	co  Coordinator
	qr  QRFiles
	cfg config.HTTP
	srv *http.Server
}

func New(co Coordinator, qr QRFiles, cfg config.HTTP) *Server {
	return &Server{co: co, qr: qr, cfg: cfg}
}

func (s *Server) Handler() http.Handler {
	return Chain(s.routes(), RequestID(), AccessLog(), RecoverPanic())
}

// StartServer binds the configured port and serves in the background.
func (s *Server) StartServer() error {
	ln, err := net.Listen("tcp", ":"+strconv.Itoa(s.cfg.Port))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", s.cfg.Port, err)
	}
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeoutDuration(),
	}
	logger.InfoF("HTTP Server Listen On %s", ln.Addr().String())
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorF("HTTP server stopped, details: %v", err)
		}
	}()
	return nil
}

// Invoke shuts the server down gracefully. It is registered with the cleaner.
func (s *Server) Invoke(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	logger.Info("Shutting down HTTP server")
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeoutDuration())
	defer cancel()
	return s.srv.Shutdown(ctx)
}
