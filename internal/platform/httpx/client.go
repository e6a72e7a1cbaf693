// SPDX-License-Identifier: MIT

// Package httpx builds the HTTP clients used against the upstream guide API.
package httpx

import (
	"net"
	"net/http"
	"net/http/cookiejar"
	"time"
)

const (
	defaultClientTimeout         = 30 * time.Second
	defaultDialTimeout           = 5 * time.Second
	defaultIdleConnTimeout       = 90 * time.Second
	defaultExpectContinueTimeout = 1 * time.Second
	defaultMaxIdleConns          = 8
	defaultMaxIdleConnsPerHost   = 4
)

// NewTransport returns a tuned transport. Response headers may take as long
// as the overall timeout because cached guide endpoints answer slowly under load.
func NewTransport(timeout time.Duration) *http.Transport {
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}
	dialTimeout := timeout
	if dialTimeout > defaultDialTimeout {
		dialTimeout = defaultDialTimeout
	}

	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: dialTimeout, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          defaultMaxIdleConns,
		MaxIdleConnsPerHost:   defaultMaxIdleConnsPerHost,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   dialTimeout,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: defaultExpectContinueTimeout,
	}
}

// NewClient returns a client with its own cookie jar, so the session cookie
// set during the handshake is replayed on every later request.
func NewClient(timeout time.Duration, wrap func(http.RoundTripper) http.RoundTripper) *http.Client {
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}
	jar, _ := cookiejar.New(nil) // only errors on a non-nil options value

	var rt http.RoundTripper = NewTransport(timeout)
	if wrap != nil {
		rt = wrap(rt)
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: rt,
		Jar:       jar,
	}
}
