// Package server exposes the engine over a line-oriented TCP protocol and an
// optional HTTP API.
package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"minidb/internal/engine"
	"minidb/internal/sql"
	"minidb/internal/storage"
)

// Welcome is the first line written to every TCP client.
const Welcome = "MiniDB server ready. Send semicolon-terminated commands."

// Goodbye answers exit; and quit;.
const Goodbye = "Goodbye"

const (
	maxCommandSize  = 16 << 20
	shutdownTimeout = 5 * time.Second
)

// Config holds configuration for the server.
type Config struct {
	// Addr is the TCP listen address, e.g. 127.0.0.1:5555.
	Addr string
	// HTTPAddr enables the HTTP API when non-empty.
	HTTPAddr string
	Logger   *slog.Logger
}

// Server serves engine sessions to TCP clients and HTTP requests.
type Server struct {
	engine   *engine.DBEngine
	addr     string
	httpAddr string
	logger   *slog.Logger

	wg     sync.WaitGroup
	mu     sync.Mutex
	conns  map[net.Conn]struct{}
	closed bool
}

// New creates a server instance. The engine must already be started.
func New(eng *engine.DBEngine, cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{
		engine:   eng,
		addr:     cfg.Addr,
		httpAddr: cfg.HTTPAddr,
		logger:   logger,
		conns:    make(map[net.Conn]struct{}),
	}
}

// ListenAndServe opens the configured listeners and blocks until ctx is
// cancelled or a listener fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}

	var httpLn net.Listener
	if s.httpAddr != "" {
		httpLn, err = net.Listen("tcp", s.httpAddr)
		if err != nil {
			_ = ln.Close()
			return fmt.Errorf("listen %s: %w", s.httpAddr, err)
		}
	}
	return s.Serve(ctx, ln, httpLn)
}

// Serve accepts TCP clients on ln and, when httpLn is non-nil, HTTP requests
// on httpLn. It returns after every connection handler has finished.
func (s *Server) Serve(ctx context.Context, ln, httpLn net.Listener) error {
	eg, egctx := errgroup.WithContext(ctx)

	s.logger.Info("starting server", "addr", ln.Addr().String())
	eg.Go(func() error {
		return s.acceptLoop(egctx, ln)
	})

	var srv *http.Server
	if httpLn != nil {
		s.logger.Info("starting HTTP API", "addr", httpLn.Addr().String())
		srv = &http.Server{
			Handler: s.Router(),
			BaseContext: func(_ net.Listener) context.Context {
				return egctx
			},
			ReadHeaderTimeout: 10 * time.Second,
		}
		eg.Go(func() error {
			if err := srv.Serve(httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
	}

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		s.logger.Debug("shutting down server")
		_ = ln.Close()
		s.closeConns()
		if srv == nil {
			return nil
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err := eg.Wait()
	s.wg.Wait()
	return err
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		if !s.track(conn) {
			_ = conn.Close()
			continue
		}
		s.wg.Add(1)
		go s.handleConn(ctx, conn)
	}
}

// track registers conn so shutdown can close it. It reports false once the
// server is closing.
func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

func (s *Server) closeConns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for c := range s.conns {
		_ = c.Close()
	}
}

// handleConn runs one client session until the peer leaves or the server
// shuts down.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()
	defer s.untrack(conn)
	defer func() { _ = conn.Close() }()

	sess := engine.NewSession()
	log := s.logger.With("session", sess.ID, "remote", conn.RemoteAddr().String())
	log.Info("client connected")
	defer log.Info("client disconnected")

	w := bufio.NewWriter(conn)
	if err := writeLine(w, []byte(Welcome)); err != nil {
		log.Debug("write welcome failed", "error", err)
		return
	}

	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 64*1024), maxCommandSize)
	sc.Split(sql.ScanStatements)

	for sc.Scan() {
		cmd := strings.TrimSpace(sc.Text())
		if cmd == "" {
			continue
		}
		switch strings.ToLower(cmd) {
		case "exit", "quit":
			_ = writeLine(w, []byte(Goodbye))
			return
		}

		res := s.execute(log, sess, cmd)
		line, err := json.Marshal(res)
		if err != nil {
			line, _ = json.Marshal(engine.ErrorResult(storage.Wrap(storage.CodeIOFailure, err, "encode result")))
		}
		if err := writeLine(w, line); err != nil {
			log.Debug("write failed", "error", err)
			return
		}
	}
	if err := sc.Err(); err != nil && ctx.Err() == nil {
		log.Warn("read failed", "error", err)
	}
}

// execute runs one command, turning a panic into an error result so one bad
// statement never takes the connection down.
func (s *Server) execute(log *slog.Logger, sess *engine.Session, cmd string) (res engine.Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic while executing command", "panic", r)
			res = engine.ErrorResult(storage.Errorf(storage.CodeIOFailure, "server error: %v", r))
		}
	}()
	return s.engine.ExecuteQuery(sess, cmd)
}

func writeLine(w *bufio.Writer, line []byte) error {
	if _, err := w.Write(line); err != nil {
		return err
	}
	if err := w.WriteByte('\n'); err != nil {
		return err
	}
	return w.Flush()
}
