// Package client provides the Go-side caller for the stint daemon. One
// client holds one unix-socket connection and issues framed round trips:
// write a JSON line, read the matching JSON line back. The daemon
// serializes all callers, so a client never needs its own coordination
// beyond not sharing one connection across goroutines mid-call.
package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"stint/pkg/protocol"
)

// Client is a connected caller. Safe for concurrent use; calls on the same
// client are serialized onto its single connection.
type Client struct {
	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Scanner
}

// Dial connects to the daemon socket.
func Dial(ctx context.Context, socketPath string) (*Client, error) {
	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("connect to daemon: %w", err)
	}
	return NewWithConn(conn), nil
}

// NewWithConn wraps an established connection (for testing).
func NewWithConn(conn net.Conn) *Client {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &Client{conn: conn, reader: scanner}
}

// Close releases the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// CallError is a non-ok envelope surfaced as a Go error.
type CallError struct {
	Code    string
	Message string
	Details []protocol.Issue
}

func (e *CallError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Code
}

// Call sends one typed command and returns the raw data payload. A non-ok
// envelope comes back as *CallError; transport failures as plain errors.
func (c *Client) Call(ctx context.Context, cmd string, args any) (json.RawMessage, error) {
	var rawArgs json.RawMessage
	if args != nil {
		data, err := json.Marshal(args)
		if err != nil {
			return nil, fmt.Errorf("marshal args: %w", err)
		}
		rawArgs = data
	}
	return c.roundTrip(ctx, protocol.Request{Cmd: cmd, Args: rawArgs})
}

// CallInto is Call plus decoding the data payload into out. A null payload
// leaves out untouched.
func (c *Client) CallInto(ctx context.Context, cmd string, args, out any) error {
	data, err := c.Call(ctx, cmd, args)
	if err != nil {
		return err
	}
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", cmd, err)
	}
	return nil
}

// Query runs an ad hoc read-only statement through the daemon's query path.
// Format is "objects" or "arrays"; single collapses the result to the first
// row or null.
func (c *Client) Query(ctx context.Context, sql string, params []any, format string, single bool) (json.RawMessage, error) {
	return c.roundTrip(ctx, protocol.Request{
		SQL:    sql,
		Params: params,
		Format: format,
		Single: single,
	})
}

// roundTrip writes one frame and reads one response line. The deadline from
// ctx, if any, bounds both halves.
func (c *Client) roundTrip(ctx context.Context, frame protocol.Request) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		if err := c.conn.SetDeadline(deadline); err != nil {
			return nil, fmt.Errorf("set deadline: %w", err)
		}
		defer func() { _ = c.conn.SetDeadline(time.Time{}) }()
	}

	data, err := json.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("marshal frame: %w", err)
	}
	data = append(data, '\n')
	if _, err := c.conn.Write(data); err != nil {
		return nil, fmt.Errorf("send frame: %w", err)
	}

	if !c.reader.Scan() {
		if err := c.reader.Err(); err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		return nil, fmt.Errorf("connection closed before response")
	}

	var resp protocol.Response
	if err := json.Unmarshal(c.reader.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if !resp.OK {
		return nil, &CallError{Code: resp.Error, Message: resp.Message, Details: resp.Details}
	}

	raw, err := json.Marshal(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("re-encode data: %w", err)
	}
	return raw, nil
}
