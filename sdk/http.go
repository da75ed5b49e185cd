package sdk

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aaricantto/GraphFS/internal/types"
	"go.uber.org/zap"
)

// errSessionGone stops the event stream for good
var errSessionGone = errors.New("session no longer exists")

// HTTPTransport talks to a GraphFS API server over REST and reads pushed
// events from its SSE stream
type HTTPTransport struct {
	baseURL      string
	client       *http.Client
	stream       *http.Client
	info         types.SessionInfo
	reconnectMin time.Duration
	reconnectMax time.Duration
	log          *zap.Logger
}

// HTTPOption configures an HTTPTransport
type HTTPOption func(*HTTPTransport)

// WithHTTPClient replaces the client used for requests
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(t *HTTPTransport) { t.client = c }
}

// WithReconnect sets the event stream backoff bounds
func WithReconnect(lo, hi time.Duration) HTTPOption {
	return func(t *HTTPTransport) {
		t.reconnectMin = lo
		t.reconnectMax = hi
	}
}

// WithLogger sets the transport logger
func WithLogger(log *zap.Logger) HTTPOption {
	return func(t *HTTPTransport) { t.log = log }
}

// DialHTTP opens a session on the server at baseURL
func DialHTTP(ctx context.Context, baseURL string, opts ...HTTPOption) (*HTTPTransport, error) {
	t := &HTTPTransport{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		client:       &http.Client{Timeout: 30 * time.Second},
		stream:       &http.Client{Timeout: 0}, // No timeout for SSE
		reconnectMin: 1 * time.Second,
		reconnectMax: 30 * time.Second,
		log:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}

	if err := t.do(ctx, http.MethodPost, "/api/v1/sessions", nil, &t.info); err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}
	return t, nil
}

func (t *HTTPTransport) SessionInfo() types.SessionInfo {
	return t.info
}

func (t *HTTPTransport) AddRoot(ctx context.Context, path string, excludes []string) (types.RootAdded, error) {
	var added types.RootAdded
	err := t.do(ctx, http.MethodPost, t.sessionPath("/roots"), map[string]any{
		"path":     path,
		"excludes": excludes,
	}, &added)
	return added, err
}

func (t *HTTPTransport) RemoveRoot(ctx context.Context, path string) (string, error) {
	var out struct {
		Root string `json:"root"`
	}
	err := t.do(ctx, http.MethodDelete, t.sessionPath("/roots?path="+url.QueryEscape(path)), nil, &out)
	return out.Root, err
}

func (t *HTTPTransport) ListDir(ctx context.Context, path string, excludes []string) (types.Listing, error) {
	var listing types.Listing
	err := t.do(ctx, http.MethodPost, t.sessionPath("/list"), map[string]any{
		"path":     path,
		"excludes": excludes,
	}, &listing)
	return listing, err
}

func (t *HTTPTransport) WatchEnable(ctx context.Context, path string, recursive bool, excludes []string) (types.WatchAck, error) {
	var ack types.WatchAck
	err := t.do(ctx, http.MethodPost, t.sessionPath("/watch"), map[string]any{
		"path":      path,
		"recursive": recursive,
		"excludes":  excludes,
	}, &ack)
	return ack, err
}

func (t *HTTPTransport) WatchDisable(ctx context.Context, path string) (types.WatchAck, error) {
	var ack types.WatchAck
	err := t.do(ctx, http.MethodDelete, t.sessionPath("/watch?path="+url.QueryEscape(path)), nil, &ack)
	return ack, err
}

// Close ends the server session
func (t *HTTPTransport) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return t.do(ctx, http.MethodDelete, t.sessionPath(""), nil, nil)
}

// Events subscribes to the session's SSE stream and reconnects with
// exponential backoff until ctx is done or the session is gone.
func (t *HTTPTransport) Events(ctx context.Context) (<-chan types.FsChangeEvent, <-chan types.ErrorInfo, error) {
	events := make(chan types.FsChangeEvent, 256)
	errs := make(chan types.ErrorInfo, 16)
	go t.subscribeLoop(ctx, events, errs)
	return events, errs, nil
}

func (t *HTTPTransport) subscribeLoop(ctx context.Context, events chan<- types.FsChangeEvent, errs chan<- types.ErrorInfo) {
	defer close(events)
	defer close(errs)

	reconnectDelay := t.reconnectMin
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		err := t.connect(ctx, events, errs)
		if ctx.Err() != nil || errors.Is(err, errSessionGone) {
			return
		}
		if err != nil {
			t.log.Warn("event stream error",
				zap.Error(err),
				zap.Duration("retry_in", reconnectDelay),
			)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}

		reconnectDelay *= 2
		if reconnectDelay > t.reconnectMax {
			reconnectDelay = t.reconnectMax
		}
	}
}

func (t *HTTPTransport) connect(ctx context.Context, events chan<- types.FsChangeEvent, errs chan<- types.ErrorInfo) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+t.sessionPath("/events"), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := t.stream.Do(req)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errSessionGone
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}
	t.log.Debug("event stream connected", zap.String("session", t.info.SessionID))

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	var eventType, data string

	for scanner.Scan() {
		line := scanner.Text()

		if line == "" {
			if data != "" {
				if err := t.emit(ctx, eventType, data, events, errs); err != nil {
					return err
				}
			}
			eventType, data = "", ""
			continue
		}

		switch {
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read: %w", err)
	}
	// A clean end of stream means the server closed the session.
	return errSessionGone
}

func (t *HTTPTransport) emit(ctx context.Context, eventType, data string, events chan<- types.FsChangeEvent, errs chan<- types.ErrorInfo) error {
	switch eventType {
	case "fs_event":
		var ev types.FsChangeEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			t.log.Debug("bad fs_event frame", zap.Error(err))
			return nil
		}
		select {
		case events <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	case "error":
		var info types.ErrorInfo
		if err := json.Unmarshal([]byte(data), &info); err != nil {
			return nil
		}
		select {
		case errs <- info:
		default:
			t.log.Warn("dropping pushed error", zap.String("message", info.Message))
		}
	}
	return nil
}

func (t *HTTPTransport) sessionPath(suffix string) string {
	return "/api/v1/sessions/" + url.PathEscape(t.info.SessionID) + suffix
}

// do sends a JSON request and decodes the envelope's data into out
func (t *HTTPTransport) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env struct {
		Success bool            `json:"success"`
		Message string          `json:"message"`
		Code    string          `json:"code"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return &APIError{Status: resp.StatusCode, Message: fmt.Sprintf("undecodable response: %v", err)}
	}
	if !env.Success {
		return &APIError{Status: resp.StatusCode, Code: env.Code, Message: env.Message}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
