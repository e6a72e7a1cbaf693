// SPDX-License-Identifier: MIT

// Package zapi is a client for the Zattoo web API endpoints used to build a
// program guide.
package zapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	xglog "github.com/domevanzy/Zattoo-EPG/internal/log"
	"github.com/domevanzy/Zattoo-EPG/internal/platform/httpx"
)

const (
	DefaultBaseURL    = "https://zattoo.com"
	DefaultUserAgent  = "Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:75.0) Gecko/20100101 Firefox/75.0"
	DefaultDeviceUUID = "d7512e98-38a0-4f01-b820-5a5cf98141fe"
	DefaultTimeout    = 30 * time.Second

	// SessionCookie carries the stateful session after hello.
	SessionCookie = "beaker.session.id"

	maxBodyBytes = 32 << 20
)

const (
	OpProbe        = "probe"
	OpToken        = "token"
	OpHello        = "hello"
	OpLogin        = "login"
	OpChannels     = "channels"
	OpPowerGuide   = "power_guide"
	OpPowerDetails = "power_details"
)

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	UserAgent  string
	Language   string
	RateLimit  float64 // requests per second; 0 disables the limiter
	Burst      int
	HTTPClient *http.Client
}

// Client talks to the upstream API. A Client keeps the session cookie between
// calls and must not be shared across concurrent grabs.
type Client struct {
	base      *url.URL
	http      *http.Client
	limiter   *rate.Limiter
	userAgent string
	language  string
	logger    zerolog.Logger
}

// New creates a client for the given options.
func New(opts Options) (*Client, error) {
	raw := strings.TrimSpace(opts.BaseURL)
	if raw == "" {
		raw = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("zapi: invalid base url %q", raw)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = httpx.NewClient(timeout, func(rt http.RoundTripper) http.RoundTripper {
			return otelhttp.NewTransport(rt)
		})
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	ua := opts.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	lang := opts.Language
	if lang == "" {
		lang = "de,en-US;q=0.7,en;q=0.3"
	}

	return &Client{
		base:      base,
		http:      hc,
		limiter:   limiter,
		userAgent: ua,
		language:  lang,
		logger:    xglog.WithComponent("zapi"),
	}, nil
}

// Probe checks that the service front page answers.
func (c *Client) Probe(ctx context.Context) error {
	resp, err := c.do(ctx, OpProbe, http.MethodGet, "/de", nil, nil)
	if err != nil {
		return err
	}
	drain(resp)
	return nil
}

// Token fetches the anonymous application token.
func (c *Client) Token(ctx context.Context) (string, error) {
	var out tokenResponse
	if err := c.getJSON(ctx, OpToken, "/token.json", nil, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.SessionToken) == "" {
		return "", newError(OpToken, ErrBadResponse, http.StatusOK, errors.New("missing session_token"))
	}
	return out.SessionToken, nil
}

// Hello opens a stateful session and returns the session cookie value.
func (c *Client) Hello(ctx context.Context, appToken, deviceUUID string) (string, error) {
	if deviceUUID == "" {
		deviceUUID = DefaultDeviceUUID
	}
	form := url.Values{
		"client_app_token": {appToken},
		"uuid":             {deviceUUID},
		"lang":             {"en"},
		"format":           {"json"},
	}
	resp, err := c.do(ctx, OpHello, http.MethodPost, "/zapi/session/hello", nil, form)
	if err != nil {
		return "", err
	}
	body, err := readBody(OpHello, resp)
	if err != nil {
		return "", err
	}

	// hello answers with an optional success flag; only an explicit false is rejected
	var env envelope
	if len(bytes.TrimSpace(body)) > 0 && json.Unmarshal(body, &env) == nil && env.Success != nil && !*env.Success {
		return "", newError(OpHello, ErrNotSuccessful, resp.StatusCode, nil)
	}

	if id := c.sessionCookie(resp); id != "" {
		return id, nil
	}
	return "", newError(OpHello, ErrBadResponse, resp.StatusCode, fmt.Errorf("missing %s cookie", SessionCookie))
}

// Login submits account credentials on the current session.
func (c *Client) Login(ctx context.Context, login, password string) (LoginSession, error) {
	form := url.Values{"login": {login}, "password": {password}}
	resp, err := c.do(ctx, OpLogin, http.MethodPost, "/zapi/v2/account/login", nil, form)
	if err != nil {
		return LoginSession{}, err
	}
	var out loginResponse
	if err := decode(OpLogin, resp, &out); err != nil {
		return LoginSession{}, err
	}
	if !out.ok() {
		return LoginSession{}, newError(OpLogin, ErrNotSuccessful, resp.StatusCode, nil)
	}
	return out.Session, nil
}

// SessionID returns the current session cookie value held by the client.
func (c *Client) SessionID() string {
	if c.http.Jar == nil {
		return ""
	}
	for _, ck := range c.http.Jar.Cookies(c.base) {
		if ck.Name == SessionCookie {
			return ck.Value
		}
	}
	return ""
}

// Channels lists the channels available to the account. Channels appearing in
// several groups are returned once, in first-seen order.
func (c *Client) Channels(ctx context.Context, hash string) ([]Channel, error) {
	var out channelsResponse
	q := url.Values{"details": {"False"}}
	if err := c.getJSON(ctx, OpChannels, "/zapi/v2/cached/channels/"+url.PathEscape(hash), q, &out); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	channels := make([]Channel, 0)
	for _, group := range out.ChannelGroups {
		for _, ch := range group.Channels {
			// entries without an id or a title cannot be listed
			if ch.CID == "" || strings.TrimSpace(ch.Title) == "" {
				continue
			}
			if _, dup := seen[ch.CID]; dup {
				continue
			}
			seen[ch.CID] = struct{}{}
			logo := ""
			if len(ch.Qualities) > 0 {
				logo = strings.Replace(ch.Qualities[0].LogoBlack84, "84x48.png", "210x120.png", 1)
			}
			channels = append(channels, Channel{CID: ch.CID, Title: ch.Title, Logo: logo})
		}
	}
	return channels, nil
}

// PowerGuide fetches all programs of all channels in [start, end).
func (c *Client) PowerGuide(ctx context.Context, hash string, start, end int64) ([]GuideChannel, error) {
	var out guideResponse
	q := url.Values{
		"start": {strconv.FormatInt(start, 10)},
		"end":   {strconv.FormatInt(end, 10)},
	}
	if err := c.getJSON(ctx, OpPowerGuide, "/zapi/v2/cached/program/power_guide/"+url.PathEscape(hash), q, &out); err != nil {
		return nil, err
	}
	return out.Channels, nil
}

// PowerDetails fetches detail records for the given program ids, keyed by the
// canonical id. Malformed entries are skipped.
func (c *Client) PowerDetails(ctx context.Context, hash string, ids []string) (map[string]ProgramDetails, error) {
	var out detailsResponse
	q := url.Values{"program_ids": {strings.Join(ids, ",")}}
	if err := c.getJSON(ctx, OpPowerDetails, "/zapi/v2/cached/program/power_details/"+url.PathEscape(hash), q, &out); err != nil {
		return nil, err
	}
	return decodeDetails(out.Programs), nil
}

// decodeDetails accepts programs as an id-keyed object or as an array.
func decodeDetails(raw json.RawMessage) map[string]ProgramDetails {
	result := make(map[string]ProgramDetails)
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return result
	}

	switch raw[0] {
	case '{':
		var byID map[string]json.RawMessage
		if err := json.Unmarshal(raw, &byID); err != nil {
			return result
		}
		for key, entry := range byID {
			var d ProgramDetails
			if err := json.Unmarshal(entry, &d); err != nil {
				continue
			}
			id := CanonicalID(key)
			if id == "" {
				continue
			}
			if d.ID == "" {
				d.ID = FlexString(id)
			}
			result[id] = d
		}
	case '[':
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil {
			return result
		}
		for _, entry := range list {
			var d ProgramDetails
			if err := json.Unmarshal(entry, &d); err != nil || d.ID == "" {
				continue
			}
			result[d.ID.String()] = d
		}
	}
	return result
}

func (c *Client) getJSON(ctx context.Context, op, path string, query url.Values, out any) error {
	resp, err := c.do(ctx, op, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	if err := decode(op, resp, out); err != nil {
		return err
	}
	if env, ok := out.(interface{ ok() bool }); ok && !env.ok() {
		return newError(op, ErrNotSuccessful, resp.StatusCode, nil)
	}
	return nil
}

// do sends one request and classifies transport and status failures. The
// caller owns the response body on success.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, form url.Values) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, newError(op, ErrUnavailable, 0, err)
		}
	}

	u := *c.base
	u.Path = strings.TrimRight(c.base.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, newError(op, ErrUnavailable, 0, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", c.language)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		e := classifyTransport(op, err)
		recordRequest(op, outcomeOf(e), elapsed)
		return nil, e
	}

	if resp.StatusCode != http.StatusOK {
		drain(resp)
		sentinel := ErrBadStatus
		if op == OpLogin && (resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			sentinel = ErrUnauthorized
		}
		e := newError(op, sentinel, resp.StatusCode, nil)
		recordRequest(op, outcomeOf(e), elapsed)
		return nil, e
	}

	recordRequest(op, "success", elapsed)
	c.logger.Debug().
		Str(xglog.FieldEvent, "zapi.request").
		Str(xglog.FieldOperation, op).
		Int64(xglog.FieldElapsed, elapsed.Milliseconds()).
		Msg("upstream request completed")
	return resp, nil
}

func (c *Client) sessionCookie(resp *http.Response) string {
	for _, ck := range resp.Cookies() {
		if ck.Name == SessionCookie && ck.Value != "" {
			return ck.Value
		}
	}
	return c.SessionID()
}

func classifyTransport(op string, err error) *Error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return newError(op, ErrTimeout, 0, err)
	}
	return newError(op, ErrUnavailable, 0, err)
}

func readBody(op string, resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, classifyTransport(op, err)
	}
	return body, nil
}

func decode(op string, resp *http.Response, out any) error {
	body, err := readBody(op, resp)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return newError(op, ErrBadResponse, resp.StatusCode, err)
	}
	return nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
