package cdpcontrol

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/dgnsrekt/tabmemory/internal/probe"
)

// staleSessionHints are substrings in eval error causes that mean the flat
// session went away while the socket stayed up. One retry re-attaches.
var staleSessionHints = []string{
	"session closed",
	"no session with given id",
}

type tabSession struct {
	info      TabInfo
	mu        sync.Mutex // one evaluation per tab at a time
	sessionID string
}

// Client enumerates and probes video tabs of a browser over CDP.
type Client struct {
	cdpURL      string
	tabFilter   string
	evalTimeout time.Duration

	mu   sync.Mutex
	cdp  *rawCDP
	tabs map[target.ID]*tabSession
}

type evalEnvelope struct {
	OK           bool            `json:"ok"`
	Data         json.RawMessage `json:"data,omitempty"`
	ErrorCode    string          `json:"error_code,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

const defaultEvalTimeout = 5 * time.Second

func NewClient(cdpURL, tabFilter string, evalTimeout time.Duration) *Client {
	if evalTimeout <= 0 {
		evalTimeout = defaultEvalTimeout
	}
	return &Client{
		cdpURL:      cdpURL,
		tabFilter:   strings.ToLower(strings.TrimSpace(tabFilter)),
		evalTimeout: evalTimeout,
		tabs:        make(map[target.ID]*tabSession),
	}
}

func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx)
}

func (c *Client) connectLocked(ctx context.Context) error {
	if c.cdpURL == "" {
		return newError(CodeCDPUnavailable, "missing CDP URL", nil)
	}

	slog.Info("cdpcontrol connect start", "cdp_url", c.cdpURL)
	c.cleanupLocked()

	c.cdp = newRawCDP(c.cdpURL)
	if err := c.cdp.connect(ctx); err != nil {
		c.cdp = nil
		return newError(CodeCDPUnavailable, "connect to CDP failed", err)
	}

	if err := c.syncTabsLocked(ctx); err != nil {
		slog.Error("cdpcontrol initial tab sync failed", "error", err)
		c.cleanupLocked()
		return err
	}

	slog.Info("cdpcontrol connect ok", "cdp_url", c.cdpURL, "tabs", len(c.tabs))
	return nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanupLocked()
	return nil
}

func (c *Client) cleanupLocked() {
	if c.cdp != nil {
		for targetID, session := range c.tabs {
			if session == nil {
				continue
			}
			session.mu.Lock()
			if session.sessionID != "" {
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				if err := c.cdp.detachFromTarget(ctx, session.sessionID); err != nil {
					slog.Debug("cdpcontrol detach cleanup failed", "target_id", targetID, "error", err)
				}
				cancel()
				session.sessionID = ""
			}
			session.mu.Unlock()
		}
		c.cdp.close()
		c.cdp = nil
	}
	c.tabs = make(map[target.ID]*tabSession)
}

// ListTabs returns the open page targets matching the tab filter, sorted by
// target id so listings are stable.
func (c *Client) ListTabs(ctx context.Context) ([]TabInfo, error) {
	if err := c.refreshTabs(ctx); err != nil {
		slog.Warn("cdpcontrol list tabs failed", "error", err)
		return nil, err
	}

	c.mu.Lock()
	tabs := make([]TabInfo, 0, len(c.tabs))
	for _, s := range c.tabs {
		if s != nil {
			tabs = append(tabs, s.info)
		}
	}
	c.mu.Unlock()

	sort.Slice(tabs, func(i, j int) bool {
		return tabs[i].TargetID < tabs[j].TargetID
	})
	slog.Debug("cdpcontrol list tabs", "count", len(tabs))
	return tabs, nil
}

// ProbeVideo reads duration and title from the tab's player. In-page
// failures come back wrapping the matching probe sentinel error.
func (c *Client) ProbeVideo(ctx context.Context, tab probe.Tab) (probe.Metadata, error) {
	var data videoProbeData
	if err := c.evalOnTab(ctx, tab.ID, jsVideoProbe(c.tabFilter), &data); err != nil {
		return probe.Metadata{}, err
	}
	duration, err := probe.FormatDuration(data.DurationSeconds)
	if err != nil {
		return probe.Metadata{}, newError(CodeInvalidDuration, "invalid duration", err)
	}
	return probe.Metadata{Duration: duration, Title: data.Title}, nil
}

// FocusTab activates the tab in its window.
func (c *Client) FocusTab(ctx context.Context, tabID string) error {
	tabID = strings.TrimSpace(tabID)
	if tabID == "" {
		return newError(CodeValidation, "tab id is required", nil)
	}
	if _, _, err := c.resolveTab(ctx, tabID); err != nil {
		return err
	}

	c.mu.Lock()
	cdp := c.cdp
	c.mu.Unlock()
	if cdp == nil {
		return newError(CodeCDPUnavailable, "CDP client not connected", nil)
	}
	if err := cdp.activateTarget(ctx, target.ID(tabID)); err != nil {
		return newError(CodeCDPUnavailable, "activate target failed", err)
	}
	slog.Info("cdpcontrol tab focused", "target_id", tabID)
	return nil
}

func (c *Client) evalOnTab(ctx context.Context, tabID, js string, out any) error {
	if strings.TrimSpace(tabID) == "" {
		return newError(CodeValidation, "tab id is required", nil)
	}

	session, info, err := c.resolveTab(ctx, tabID)
	if err == nil {
		err = c.evalOnSession(ctx, session, info.TargetID, js, out)
	}
	if err == nil || !c.shouldRetry(err) {
		return err
	}

	slog.Warn("cdpcontrol eval retry after transient failure", "target_id", tabID, "error", err)
	if asCode(err, CodeCDPUnavailable) {
		if recErr := c.reconnectIfDead(ctx); recErr != nil {
			slog.Error("cdpcontrol reconnect failed during retry", "target_id", tabID, "error", recErr)
			return recErr
		}
	}

	session, info, err = c.resolveTab(ctx, tabID)
	if err != nil {
		return err
	}
	return c.evalOnSession(ctx, session, info.TargetID, js, out)
}

func (c *Client) evalOnSession(ctx context.Context, session *tabSession, targetID, js string, out any) error {
	c.mu.Lock()
	cdp := c.cdp
	c.mu.Unlock()
	if cdp == nil {
		return newError(CodeCDPUnavailable, "CDP client not connected", nil)
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.sessionID == "" {
		sid, err := cdp.attachToTarget(ctx, target.ID(targetID))
		if err != nil {
			if connectionLost(err) {
				return newError(CodeCDPUnavailable, "attach to target failed", err)
			}
			// Usually "No target with given id": the tab closed since the
			// last sync. The shared socket is fine.
			return newError(CodeTabNotFound, "attach to target failed", err)
		}
		session.sessionID = sid
		slog.Debug("cdpcontrol session attached", "target_id", targetID, "session_id", sid)
	}

	evalCtx, cancel := context.WithTimeout(ctx, c.evalTimeout)
	defer cancel()

	raw, err := cdp.evaluate(evalCtx, session.sessionID, js)
	if err != nil {
		slog.Warn("cdpcontrol eval failed", "target_id", targetID, "error", err)
		// Force a fresh attach next time.
		session.sessionID = ""
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(evalCtx.Err(), context.DeadlineExceeded) {
			return newError(CodeEvalTimeout, "evaluation timed out", err)
		}
		if connectionLost(err) {
			return newError(CodeCDPUnavailable, "CDP connection lost", err)
		}
		return newError(CodeEvalFailure, "evaluation failed", err)
	}

	var env evalEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return newError(CodeEvalFailure, "invalid evaluation envelope", err)
	}
	if !env.OK {
		return envelopeError(env)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return newError(CodeEvalFailure, "invalid evaluation data", err)
	}
	return nil
}

func envelopeError(env evalEnvelope) error {
	switch env.ErrorCode {
	case CodeNotVideoPage:
		return newError(env.ErrorCode, env.ErrorMessage, probe.ErrNotVideoPage)
	case CodeNoMedia:
		return newError(env.ErrorCode, env.ErrorMessage, probe.ErrNoMedia)
	case CodeInvalidDuration:
		return newError(env.ErrorCode, env.ErrorMessage, probe.ErrInvalidDuration)
	case "":
		return newError(CodeEvalFailure, env.ErrorMessage, nil)
	default:
		return newError(env.ErrorCode, env.ErrorMessage, nil)
	}
}

func (c *Client) resolveTab(ctx context.Context, tabID string) (*tabSession, TabInfo, error) {
	if session, info, ok := c.lookupTab(tabID); ok {
		return session, info, nil
	}
	if err := c.refreshTabs(ctx); err != nil {
		return nil, TabInfo{}, err
	}
	if session, info, ok := c.lookupTab(tabID); ok {
		return session, info, nil
	}
	return nil, TabInfo{}, newError(CodeTabNotFound, "tab not found: "+tabID, nil)
}

func (c *Client) lookupTab(tabID string) (*tabSession, TabInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	session := c.tabs[target.ID(tabID)]
	if session == nil {
		return nil, TabInfo{}, false
	}
	return session, session.info, true
}

func (c *Client) refreshTabs(ctx context.Context) error {
	if err := c.ensureConnected(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.syncTabsLocked(ctx)
}

func (c *Client) reconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx)
}

// reconnectIfDead reconnects unless another caller already replaced the dead
// socket with a live one.
func (c *Client) reconnectIfDead(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cdp != nil && c.cdp.connected() {
		return nil
	}
	return c.connectLocked(ctx)
}

func (c *Client) ensureConnected(ctx context.Context) error {
	c.mu.Lock()
	connected := c.cdp != nil
	c.mu.Unlock()
	if connected {
		return nil
	}
	return c.reconnect(ctx)
}

// syncTabsLocked replaces the tab set with the current matching targets,
// keeping attached sessions for tabs that are still open.
func (c *Client) syncTabsLocked(ctx context.Context) error {
	if c.cdp == nil {
		return newError(CodeCDPUnavailable, "CDP client not connected", nil)
	}

	targets, err := c.cdp.listTargets(ctx)
	if err != nil {
		return newError(CodeCDPUnavailable, "failed to list targets", err)
	}

	expected := make(map[target.ID]TabInfo)
	for _, t := range targets {
		if t.Type != "page" || !c.matchesTabURL(t.URL) {
			continue
		}
		expected[t.TargetID] = TabInfo{
			TargetID: string(t.TargetID),
			URL:      t.URL,
			Title:    t.Title,
		}
	}

	for targetID := range c.tabs {
		if _, ok := expected[targetID]; !ok {
			delete(c.tabs, targetID)
		}
	}
	for targetID, info := range expected {
		if session := c.tabs[targetID]; session != nil {
			session.info = info
			continue
		}
		c.tabs[targetID] = &tabSession{info: info}
	}

	slog.Debug("cdpcontrol tab sync", "targets", len(targets), "tabs", len(c.tabs))
	return nil
}

// matchesTabURL reports whether the tab's host is the filter domain or one
// of its subdomains.
func (c *Client) matchesTabURL(rawURL string) bool {
	if c.tabFilter == "" {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == c.tabFilter || strings.HasSuffix(host, "."+c.tabFilter)
}

func (c *Client) shouldRetry(err error) bool {
	var coded *CodedError
	if !errors.As(err, &coded) {
		return false
	}
	switch coded.Code {
	case CodeCDPUnavailable:
		// Only a dead socket is worth a reconnect.
		return coded.Cause == nil || connectionLost(coded.Cause)
	case CodeEvalFailure:
		if coded.Cause == nil {
			return false
		}
		cause := strings.ToLower(coded.Cause.Error())
		for _, hint := range staleSessionHints {
			if strings.Contains(cause, hint) {
				return true
			}
		}
	}
	return false
}

func asCode(err error, code string) bool {
	var coded *CodedError
	if !errors.As(err, &coded) {
		return false
	}
	return coded.Code == code
}
