package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/gungi-arena/pkg/gungidto"
)

var ErrClosed = errors.New("gateway connection closed")

// HeaderProvider supplies per-request headers.
type HeaderProvider func() map[string]string

// Client talks to a running gateway: plain HTTP for /healthz, websocket for
// everything else.
type Client struct {
	baseURL string
	http    *fasthttp.Client
	headers HeaderProvider

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *Client) { c.headers = h }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

// NewClient takes the gateway base URL, e.g. http://localhost:8080.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 16},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Health fetches /healthz, retrying 5xx responses with backoff.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()
	req.Header.SetMethod(fasthttp.MethodGet)
	req.SetRequestURI(c.baseURL + "/healthz")
	c.applyHeaders(func(k, v string) { req.Header.Set(k, v) })

	attempts := c.retryMax
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := sleepWithContext(ctx, backoffDuration(attempt-1)); err != nil {
				return nil, lastErr
			}
		}
		if err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx)); err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}
		status := resp.StatusCode()
		if status < 200 || status >= 300 {
			lastErr = fmt.Errorf("healthz: status=%d body=%s", status, truncate(string(resp.Body()), 512))
			if !shouldRetryStatus(status) {
				return nil, lastErr
			}
			continue
		}
		var h Health
		if err := json.Unmarshal(resp.Body(), &h); err != nil {
			return nil, fmt.Errorf("decode healthz: %w", err)
		}
		return &h, nil
	}
	return nil, lastErr
}

// Dial opens a websocket to /ws.
func (c *Client) Dial(ctx context.Context) (*Conn, error) {
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/ws"
	dialCtx, cancel := context.WithTimeout(ctx, c.defaultTimeout)
	defer cancel()

	hdr := http.Header{}
	c.applyHeaders(hdr.Set)
	conn, _, err := websocket.Dial(dialCtx, wsURL, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      hdr,
	})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}
	conn.SetReadLimit(DefaultReadLimit)

	rootCtx, rootCancel := context.WithCancel(context.Background())
	wc := &Conn{
		conn:    conn,
		pending: make(map[string]chan Envelope),
		ctx:     rootCtx,
		cancel:  rootCancel,
		done:    make(chan struct{}),
	}
	go wc.listen()
	return wc, nil
}

func (c *Client) applyHeaders(set func(k, v string)) {
	if c.headers == nil {
		return
	}
	for k, v := range c.headers() {
		if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
			set(k, v)
		}
	}
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

// Conn is a request/reply websocket session. Replies are matched to calls by
// request_id, so Call may be used from several goroutines.
type Conn struct {
	conn *websocket.Conn

	mu      sync.Mutex
	pending map[string]chan Envelope
	err     error

	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// Call sends one request and decodes the reply payload into out (which may be
// nil). An error frame is returned as *gungidto.DomainError, after out has been
// filled from any payload that came with it.
func (c *Conn) Call(ctx context.Context, typ string, payload, out any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", typ, err)
	}
	id := uuid.NewString()
	ch := make(chan Envelope, 1)

	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return err
	}
	c.pending[id] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := wsjson.Write(ctx, c.conn, Envelope{Type: typ, RequestID: id, Payload: raw}); err != nil {
		return fmt.Errorf("write %s: %w", typ, err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return c.closedErr()
	case resp := <-ch:
		if out != nil && len(resp.Payload) > 0 {
			if err := json.Unmarshal(resp.Payload, out); err != nil {
				return fmt.Errorf("decode %s reply: %w", typ, err)
			}
		}
		if resp.Error != nil {
			return resp.Error
		}
		return nil
	}
}

func (c *Conn) listen() {
	defer close(c.done)
	for {
		var msg Envelope
		if err := wsjson.Read(c.ctx, c.conn, &msg); err != nil {
			c.mu.Lock()
			if c.err == nil {
				c.err = fmt.Errorf("%w: %v", ErrClosed, err)
			}
			c.mu.Unlock()
			return
		}
		c.mu.Lock()
		ch, ok := c.pending[msg.RequestID]
		c.mu.Unlock()
		if ok {
			ch <- msg
		}
	}
}

func (c *Conn) closedErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	return ErrClosed
}

// Close sends a normal closure and waits for the reader to stop.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.conn.Close(websocket.StatusNormalClosure, "close")
		c.cancel()
		<-c.done
	})
	return err
}

// RemoteError extracts the domain error from a Call result.
func RemoteError(err error) (*gungidto.DomainError, bool) {
	var de *gungidto.DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
