package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strings"
	"time"
)

const DefaultSockPath = "/tmp/sia.sock"

// SockPath resolves the socket path: SIA_SOCK overrides the default.
func SockPath() string {
	if v := strings.TrimSpace(os.Getenv("SIA_SOCK")); v != "" {
		return v
	}
	return DefaultSockPath
}

type Client struct {
	conn *net.UnixConn
	r    *bufio.Reader
}

func Dial(ctx context.Context, sockPath string) (*Client, error) {
	if strings.TrimSpace(sockPath) == "" {
		sockPath = SockPath()
	}
	d := net.Dialer{Timeout: 2 * time.Second}
	c, err := d.DialContext(ctx, "unix", sockPath)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", sockPath, err)
	}
	uc, ok := c.(*net.UnixConn)
	if !ok {
		_ = c.Close()
		return nil, fmt.Errorf("unexpected conn type %T", c)
	}
	return &Client{conn: uc, r: bufio.NewReaderSize(uc, 1<<20)}, nil
}

func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// Do sends one request and reads the response. The connection serves a
// single round trip; callers dial per request.
func (c *Client) Do(ctx context.Context, req Request) (Response, error) {
	var resp Response
	if c.conn == nil {
		return resp, fmt.Errorf("client closed")
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = c.conn.SetDeadline(dl)
	} else {
		_ = c.conn.SetDeadline(time.Now().Add(10 * time.Second))
	}

	b, err := json.Marshal(req)
	if err != nil {
		return resp, err
	}
	if _, err := c.conn.Write(append(b, '\n')); err != nil {
		return resp, err
	}
	line, err := c.r.ReadBytes('\n')
	if err != nil {
		return resp, err
	}
	if err := json.Unmarshal(line, &resp); err != nil {
		return resp, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}

func (c *Client) Status(ctx context.Context) (StatusData, error) {
	var out StatusData
	resp, err := c.Do(ctx, Request{Method: MethodStatus})
	if err != nil {
		return out, err
	}
	if !resp.Success {
		return out, fmt.Errorf("daemon error: %s", resp.ErrorData().Error)
	}
	err = json.Unmarshal(resp.Data, &out)
	return out, err
}

func (c *Client) List(ctx context.Context, limit int) (ListData, error) {
	var out ListData
	resp, err := c.Do(ctx, Request{Method: MethodList, Limit: &limit})
	if err != nil {
		return out, err
	}
	if !resp.Success {
		return out, fmt.Errorf("daemon error: %s", resp.ErrorData().Error)
	}
	err = json.Unmarshal(resp.Data, &out)
	return out, err
}

func (c *Client) Show(ctx context.Context, eventID string) (EventDetail, error) {
	var out EventDetail
	resp, err := c.Do(ctx, Request{Method: MethodShow, EventID: eventID})
	if err != nil {
		return out, err
	}
	if !resp.Success {
		return out, fmt.Errorf("daemon error: %s", resp.ErrorData().Error)
	}
	err = json.Unmarshal(resp.Data, &out)
	return out, err
}

// Analyze asks the daemon for an on-demand LLM suggestion. Enrichment may
// take a while, so callers should pass a generous context deadline.
func (c *Client) Analyze(ctx context.Context, eventID string) (AnalyzeData, error) {
	var out AnalyzeData
	resp, err := c.Do(ctx, Request{Method: MethodAnalyze, EventID: eventID})
	if err != nil {
		return out, err
	}
	if !resp.Success {
		ed := resp.ErrorData()
		return out, fmt.Errorf("daemon error: %s", ed.Error)
	}
	err = json.Unmarshal(resp.Data, &out)
	return out, err
}
