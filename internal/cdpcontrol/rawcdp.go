package cdpcontrol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

var (
	errNotConnected = errors.New("rawcdp: not connected")
	errConnClosed   = errors.New("rawcdp: connection closed")
)

// connectionLost reports whether err means the browser socket is gone and
// only a reconnect can help.
func connectionLost(err error) bool {
	return errors.Is(err, errNotConnected) || errors.Is(err, errConnClosed)
}

// rawCDP speaks just enough of the DevTools protocol to list tabs, attach a
// flat session and evaluate a script. It skips chromedp's target
// auto-attach, which pulls in service workers and extension pages we never
// probe.
type rawCDP struct {
	httpBase string // e.g. "http://127.0.0.1:9222"

	mu   sync.Mutex // guards conn and serialises writes
	conn net.Conn
	seq  atomic.Int64

	pendingMu sync.Mutex
	pending   map[int64]chan json.RawMessage
}

// cdpReply is the response envelope for a command id.
type cdpReply struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newRawCDP(httpBase string) *rawCDP {
	return &rawCDP{
		httpBase: strings.TrimRight(httpBase, "/"),
		pending:  make(map[int64]chan json.RawMessage),
	}
}

func (r *rawCDP) connect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn != nil {
		return nil
	}

	wsURL, err := r.browserWSURL(ctx)
	if err != nil {
		return fmt.Errorf("rawcdp: browser ws url: %w", err)
	}

	slog.Debug("rawcdp dial", "ws_url", wsURL)
	conn, _, _, err := ws.Dial(ctx, wsURL)
	if err != nil {
		return fmt.Errorf("rawcdp: dial: %w", err)
	}
	r.conn = conn

	r.pendingMu.Lock()
	r.pending = make(map[int64]chan json.RawMessage)
	r.pendingMu.Unlock()

	go r.readLoop(conn)
	return nil
}

func (r *rawCDP) connected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conn != nil
}

func (r *rawCDP) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil {
		return
	}
	if err := r.conn.Close(); err != nil {
		slog.Debug("rawcdp close failed", "error", err)
	}
	r.conn = nil
}

// readLoop routes command replies to their waiters until the socket fails.
// Events are ignored; nothing here subscribes to any.
func (r *rawCDP) readLoop(conn net.Conn) {
	defer r.failPending()
	defer r.drop(conn)
	for {
		data, err := wsutil.ReadServerText(conn)
		if err != nil {
			slog.Debug("rawcdp read loop exit", "error", err)
			return
		}

		var head struct {
			ID int64 `json:"id"`
		}
		if json.Unmarshal(data, &head) != nil || head.ID == 0 {
			continue
		}

		r.pendingMu.Lock()
		ch, ok := r.pending[head.ID]
		delete(r.pending, head.ID)
		r.pendingMu.Unlock()
		if ok {
			ch <- json.RawMessage(data)
		}
	}
}

// drop forgets conn once its read loop has exited so later calls fail fast
// with errNotConnected.
func (r *rawCDP) drop(conn net.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn != conn {
		return
	}
	if err := conn.Close(); err != nil {
		slog.Debug("rawcdp close after read failure", "error", err)
	}
	r.conn = nil
}

func (r *rawCDP) failPending() {
	r.pendingMu.Lock()
	defer r.pendingMu.Unlock()
	for id, ch := range r.pending {
		close(ch)
		delete(r.pending, id)
	}
}

func (r *rawCDP) forget(id int64) {
	r.pendingMu.Lock()
	delete(r.pending, id)
	r.pendingMu.Unlock()
}

// call sends method (on sessionID when non-empty) and returns the decoded
// "result" member of the reply.
func (r *rawCDP) call(ctx context.Context, sessionID, method string, params any) (json.RawMessage, error) {
	id := r.seq.Add(1)
	req := struct {
		ID        int64  `json:"id"`
		Method    string `json:"method"`
		SessionID string `json:"sessionId,omitempty"`
		Params    any    `json:"params,omitempty"`
	}{ID: id, Method: method, SessionID: sessionID, Params: params}

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("rawcdp: marshal %s: %w", method, err)
	}

	r.mu.Lock()
	conn := r.conn
	if conn == nil {
		r.mu.Unlock()
		return nil, errNotConnected
	}
	ch := make(chan json.RawMessage, 1)
	r.pendingMu.Lock()
	r.pending[id] = ch
	r.pendingMu.Unlock()
	err = wsutil.WriteClientText(conn, data)
	r.mu.Unlock()
	if err != nil {
		r.forget(id)
		return nil, fmt.Errorf("rawcdp: send %s: %w: %w", method, errConnClosed, err)
	}

	var raw json.RawMessage
	select {
	case msg, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("%w during %s", errConnClosed, method)
		}
		raw = msg
	case <-ctx.Done():
		r.forget(id)
		return nil, ctx.Err()
	}

	var reply cdpReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, fmt.Errorf("rawcdp: unmarshal %s: %w", method, err)
	}
	if reply.Error != nil {
		return nil, fmt.Errorf("rawcdp: %s: %s", method, reply.Error.Message)
	}
	return reply.Result, nil
}

// attachToTarget opens a flat session on the target.
func (r *rawCDP) attachToTarget(ctx context.Context, targetID target.ID) (string, error) {
	params := struct {
		TargetID target.ID `json:"targetId"`
		Flatten  bool      `json:"flatten"`
	}{TargetID: targetID, Flatten: true}

	raw, err := r.call(ctx, "", "Target.attachToTarget", params)
	if err != nil {
		return "", err
	}
	var res struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return "", fmt.Errorf("rawcdp: unmarshal attach: %w", err)
	}
	return res.SessionID, nil
}

func (r *rawCDP) detachFromTarget(ctx context.Context, sessionID string) error {
	params := struct {
		SessionID string `json:"sessionId"`
	}{SessionID: sessionID}
	_, err := r.call(ctx, "", "Target.detachFromTarget", params)
	return err
}

// activateTarget brings the tab to the front of its window.
func (r *rawCDP) activateTarget(ctx context.Context, targetID target.ID) error {
	params := struct {
		TargetID target.ID `json:"targetId"`
	}{TargetID: targetID}
	_, err := r.call(ctx, "", "Target.activateTarget", params)
	return err
}

// evaluate runs js on the session and returns its string result. Scripts
// here always return JSON.stringify output.
func (r *rawCDP) evaluate(ctx context.Context, sessionID, js string) (string, error) {
	params := struct {
		Expression    string `json:"expression"`
		ReturnByValue bool   `json:"returnByValue"`
		AwaitPromise  bool   `json:"awaitPromise"`
	}{Expression: js, ReturnByValue: true, AwaitPromise: true}

	raw, err := r.call(ctx, sessionID, "Runtime.evaluate", params)
	if err != nil {
		return "", err
	}

	var res struct {
		Result struct {
			Type  string          `json:"type"`
			Value json.RawMessage `json:"value"`
		} `json:"result"`
		ExceptionDetails *struct {
			Text string `json:"text"`
		} `json:"exceptionDetails"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return "", fmt.Errorf("rawcdp: unmarshal eval: %w", err)
	}
	if res.ExceptionDetails != nil {
		return "", fmt.Errorf("rawcdp: eval exception: %s", res.ExceptionDetails.Text)
	}

	var s string
	if err := json.Unmarshal(res.Result.Value, &s); err != nil {
		return string(res.Result.Value), nil
	}
	return s, nil
}

// listTargets reads /json/list. It works without a websocket connection.
func (r *rawCDP) listTargets(ctx context.Context) ([]*target.Info, error) {
	var entries []struct {
		ID    string `json:"id"`
		Type  string `json:"type"`
		Title string `json:"title"`
		URL   string `json:"url"`
	}
	if err := r.getJSON(ctx, "/json/list", 10*time.Second, &entries); err != nil {
		return nil, err
	}

	out := make([]*target.Info, 0, len(entries))
	for _, e := range entries {
		out = append(out, &target.Info{
			TargetID: target.ID(e.ID),
			Type:     e.Type,
			Title:    e.Title,
			URL:      e.URL,
		})
	}
	return out, nil
}

func (r *rawCDP) browserWSURL(ctx context.Context) (string, error) {
	var info struct {
		WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
	}
	if err := r.getJSON(ctx, "/json/version", 5*time.Second, &info); err != nil {
		return "", err
	}
	if info.WebSocketDebuggerURL == "" {
		return "", errors.New("empty webSocketDebuggerUrl")
	}
	return info.WebSocketDebuggerURL, nil
}

func (r *rawCDP) getJSON(ctx context.Context, path string, timeout time.Duration, out any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.httpBase+path, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("rawcdp: %s: HTTP %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("rawcdp: decode %s: %w", path, err)
	}
	return nil
}
