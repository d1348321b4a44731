package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"

	"log/slog"

	"github.com/Compy/mpf-mc/internal/logging"
)

// Core is the controller surface the IPC server exposes. The
// controller implements it; keeping the interface here avoids a
// dependency cycle between the two packages.
type Core interface {
	Status(ctx context.Context) StatusResponse
	ReportRemoteProgress(total, remaining int) (ProgressInfo, error)
	LoadKey(key string) (int, error)
	ListAssets(attribute string) []AssetInfo
	RequestShutdown()
}

// Server exposes controller operations via JSON-RPC over a Unix
// domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, core Core, logger *slog.Logger) (*Server, error) {
	if core == nil {
		return nil, errors.New("ipc server requires a core")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	svc := &service{core: core, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName("MediaController", svc); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is
// canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed", logging.Error(err))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err))
	}
}

type service struct {
	core   Core
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String(logging.FieldComponent, "ipc"))
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	*resp = s.core.Status(s.ctx)
	return nil
}

func (s *service) ReportProgress(req ReportProgressRequest, resp *ReportProgressResponse) error {
	progress, err := s.core.ReportRemoteProgress(req.Total, req.Remaining)
	if err != nil {
		return err
	}
	resp.Progress = progress
	s.log().Debug("remote progress reported",
		logging.Int("total", req.Total),
		logging.Int("remaining", req.Remaining),
		logging.Int("percent", progress.Percent))
	return nil
}

func (s *service) LoadKey(req LoadKeyRequest, resp *LoadKeyResponse) error {
	if req.Key == "" {
		return errors.New("load key must not be empty")
	}
	matched, err := s.core.LoadKey(req.Key)
	if err != nil {
		return err
	}
	resp.Matched = matched
	s.log().Info("load key triggered",
		logging.String(logging.FieldLoadKey, req.Key),
		logging.Int("matched", matched))
	return nil
}

func (s *service) AssetList(req AssetListRequest, resp *AssetListResponse) error {
	resp.Assets = s.core.ListAssets(req.Attribute)
	return nil
}

func (s *service) Shutdown(_ ShutdownRequest, resp *ShutdownResponse) error {
	s.log().Info("shutdown requested via IPC")
	s.core.RequestShutdown()
	resp.Stopping = true
	return nil
}
