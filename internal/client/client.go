// Package client speaks the MiniDB line protocol.
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"minidb/internal/sql"
)

// ErrClosed is returned by Exec after the server has closed the session.
var ErrClosed = errors.New("client: connection closed")

// Response is one decoded server reply.
type Response struct {
	Success string
	Columns []string
	// Rows hold cell values in Columns order. Numbers are json.Number.
	Rows [][]any

	Error string
	Kind  string
	Code  string

	// Raw is the reply line as received.
	Raw string
}

// OK reports whether the command succeeded.
func (r *Response) OK() bool { return r.Error == "" }

// IsQuery reports whether the reply carries a result set.
func (r *Response) IsQuery() bool { return r.Columns != nil }

// Client is a connection to a MiniDB server. It is safe for concurrent use;
// commands are serialized.
type Client struct {
	mu      sync.Mutex
	conn    net.Conn
	r       *bufio.Reader
	welcome string
	closed  bool
}

// Dial connects to addr and reads the server's welcome line.
func Dial(ctx context.Context, addr string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	}
	r := bufio.NewReader(conn)
	line, err := r.ReadString('\n')
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("read welcome: %w", err)
	}
	_ = conn.SetReadDeadline(time.Time{})

	return &Client{
		conn:    conn,
		r:       r,
		welcome: strings.TrimRight(line, "\r\n"),
	}, nil
}

// Welcome returns the greeting sent by the server.
func (c *Client) Welcome() string { return c.welcome }

// Exec sends one command and waits for its reply. A trailing ';' is
// optional.
func (c *Client) Exec(cmd string) (*Response, error) {
	cmd = strings.TrimSpace(cmd)
	cmd = strings.TrimSpace(strings.TrimRight(cmd, ";"))
	if cmd == "" {
		return nil, fmt.Errorf("client: empty command")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}

	if _, err := c.conn.Write([]byte(cmd + ";\n")); err != nil {
		return nil, fmt.Errorf("send command: %w", err)
	}
	line, err := c.r.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("read reply: %w", err)
	}
	return Decode([]byte(strings.TrimRight(line, "\r\n")))
}

// ExecAll splits text into statements on ';' outside quotes and executes
// them in order, stopping at the first transport error. Command failures
// are returned as responses, not errors.
func (c *Client) ExecAll(text string) ([]*Response, error) {
	var out []*Response
	for _, stmt := range sql.SplitStatements(text) {
		resp, err := c.Exec(stmt)
		if err != nil {
			return out, err
		}
		out = append(out, resp)
	}
	return out, nil
}

// Close ends the session politely and closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	_ = c.conn.SetDeadline(time.Now().Add(time.Second))
	if _, err := c.conn.Write([]byte("exit;\n")); err == nil {
		_, _ = c.r.ReadString('\n')
	}
	return c.conn.Close()
}

type wireResponse struct {
	Success string                       `json:"success"`
	Columns []string                     `json:"columns"`
	Data    []map[string]json.RawMessage `json:"data"`
	Error   string                       `json:"error"`
	Kind    string                       `json:"kind"`
	Code    string                       `json:"code"`
}

// Decode parses one reply line.
func Decode(line []byte) (*Response, error) {
	var w wireResponse
	if err := json.Unmarshal(line, &w); err != nil {
		return nil, fmt.Errorf("decode reply %q: %w", line, err)
	}

	resp := &Response{
		Success: w.Success,
		Columns: w.Columns,
		Error:   w.Error,
		Kind:    w.Kind,
		Code:    w.Code,
		Raw:     string(line),
	}
	if w.Columns == nil {
		return resp, nil
	}

	resp.Rows = make([][]any, len(w.Data))
	for i, obj := range w.Data {
		row := make([]any, len(w.Columns))
		for j, col := range w.Columns {
			raw, ok := obj[col]
			if !ok {
				continue
			}
			v, err := decodeCell(raw)
			if err != nil {
				return nil, fmt.Errorf("decode row %d column %q: %w", i, col, err)
			}
			row[j] = v
		}
		resp.Rows[i] = row
	}
	return resp, nil
}

func decodeCell(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
