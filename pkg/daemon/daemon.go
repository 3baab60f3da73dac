// Package daemon implements the stint coordination daemon: a unix-socket
// server that reads newline-delimited JSON frames and processes them one at
// a time. The single-writer loop is the concurrency model — every request
// runs to full completion, transaction included, before the next begins, so
// ordinal assignment, the open-session invariant, and agent binding are
// atomic without any explicit lock. The process is the lock.
package daemon

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"stint/pkg/dispatch"
	"stint/pkg/protocol"
)

// Config holds Server configuration.
type Config struct {
	SocketPath   string        // UDS socket path.
	DrainTimeout time.Duration // Max wait for queued requests on shutdown (default 10s).
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.DrainTimeout == 0 {
		out.DrainTimeout = 10 * time.Second
	}
	return out
}

// request is one frame waiting for its serialized turn.
type request struct {
	connID string
	frame  protocol.Request
	reply  chan protocol.Response
}

// Server owns the listener and the store handle. Construct once with New,
// run with Run; shutdown drains queued requests before releasing the store.
type Server struct {
	cfg      Config
	db       *sql.DB
	registry *dispatch.Registry

	mu       sync.Mutex
	listener net.Listener

	requests chan request
}

// New creates a Server. It does not start listening — call Run.
func New(cfg Config, db *sql.DB, registry *dispatch.Registry) *Server {
	return &Server{
		cfg:      cfg.withDefaults(),
		db:       db,
		registry: registry,
		requests: make(chan request, 64),
	}
}

// Run initializes the schema, binds the socket, and serves until ctx is
// cancelled. A request that has begun always runs to completion server-side
// even if the calling connection drops; cancellation is a caller concern.
func (s *Server) Run(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, protocol.SchemaDDL); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}

	if err := cleanStaleSocket(s.cfg.SocketPath); err != nil {
		return err
	}
	ln, err := net.Listen("unix", s.cfg.SocketPath) //nolint:noctx // UDS bind is instant
	if err != nil {
		return fmt.Errorf("listen unix %s: %w", s.cfg.SocketPath, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	go s.acceptLoop(ctx, ln)

	s.processLoop(ctx)

	_ = ln.Close()
	return nil
}

// acceptLoop accepts caller connections until the listener closes.
func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			continue
		}
		go s.handleConn(ctx, conn)
	}
}

// handleConn reads frames off one connection and forwards them to the
// serialized loop, writing each response back in order.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer func() { _ = conn.Close() }()

	connID := uuid.NewString()
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		var frame protocol.Request
		if err := json.Unmarshal(scanner.Bytes(), &frame); err != nil {
			s.writeResponse(conn, protocol.Response{
				OK:      false,
				Error:   protocol.ErrMalformedFrame,
				Message: err.Error(),
			})
			continue
		}

		reply := make(chan protocol.Response, 1)
		select {
		case s.requests <- request{connID: connID, frame: frame, reply: reply}:
		case <-ctx.Done():
			return
		}
		s.writeResponse(conn, <-reply)
	}
}

// writeResponse encodes one envelope and appends the frame delimiter.
func (s *Server) writeResponse(conn net.Conn, resp protocol.Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		log.Printf("marshal response: %v", err)
		return
	}
	data = append(data, '\n')
	if _, err := conn.Write(data); err != nil {
		log.Printf("write response: %v", err)
	}
}

// processLoop is the single writer. It processes exactly one request to
// full completion before beginning the next; on shutdown it drains what is
// already queued, bounded by DrainTimeout, before returning.
func (s *Server) processLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			deadline := time.NewTimer(s.cfg.DrainTimeout)
			defer deadline.Stop()
			for {
				select {
				case req := <-s.requests:
					s.process(req)
				case <-deadline.C:
					return
				default:
					return
				}
			}
		case req := <-s.requests:
			s.process(req)
		}
	}
}

// process executes one frame. Request execution deliberately uses a
// background context: a request that begins runs to completion even if the
// caller hung up.
func (s *Server) process(req request) {
	ctx := context.Background()
	var resp protocol.Response
	if req.frame.SQL != "" {
		resp = s.runQuery(ctx, req.frame)
	} else {
		resp = s.registry.Dispatch(ctx, req.connID, req.frame.Cmd, req.frame.Args)
	}
	req.reply <- resp
}

// SocketPath returns the configured socket path.
func (s *Server) SocketPath() string {
	return s.cfg.SocketPath
}
