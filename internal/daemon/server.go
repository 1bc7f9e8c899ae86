package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"pkt.systems/pslog"
)

// HandlerFunc answers one request.
type HandlerFunc func(ctx context.Context, req Request) Response

// Server accepts stream connections on a unix socket and answers
// newline-delimited JSON requests with handler.
type Server struct {
	path    string
	handler HandlerFunc
	log     pslog.Logger

	mu       sync.Mutex
	listener net.Listener
	closed   bool
}

// NewServer creates a server for socketPath.
func NewServer(socketPath string, handler HandlerFunc, logger pslog.Logger) *Server {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Server{path: socketPath, handler: handler, log: logger.With("socket", socketPath)}
}

// SocketPath returns the socket path.
func (s *Server) SocketPath() string {
	return s.path
}

// Start binds the socket and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	if s.handler == nil {
		return fmt.Errorf("handler is required")
	}
	if s.path == "" {
		return fmt.Errorf("socket path is required")
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create socket dir: %w", err)
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket: %w", err)
	}

	ln, err := net.Listen("unix", s.path)
	if err != nil {
		return fmt.Errorf("listen unix: %w", err)
	}
	if err := os.Chmod(s.path, 0o600); err != nil {
		_ = ln.Close()
		return fmt.Errorf("chmod socket: %w", err)
	}

	s.mu.Lock()
	s.listener = ln
	s.closed = false
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.close()
	}()

	go s.acceptLoop(ctx, ln)

	return nil
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.isClosed() {
				return
			}
			s.log.Debug("accept failed", "err", err)
			continue
		}
		go s.serveConn(ctx, conn)
	}
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 4*1024), maxLineBytes)
	for scanner.Scan() {
		var req Request
		var resp Response
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			resp = Response{Output: fmt.Sprintf("invalid request: %v", err)}
		} else {
			resp = s.handler(ctx, req)
		}
		if err := writeLine(conn, resp); err != nil {
			s.log.Debug("reply failed", "err", err)
			return
		}
	}
	if err := scanner.Err(); err != nil && !s.isClosed() {
		s.log.Debug("connection read failed", "err", err)
	}
}

func writeLine(conn net.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(time.Second))
	_, err = conn.Write(append(data, '\n'))
	return err
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Server) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
	_ = os.Remove(s.path)
}
