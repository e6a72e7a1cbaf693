package httpx

import (
	"net/http"
	"testing"
	"time"
)

func TestNewClient_DefaultTimeoutAndTransport(t *testing.T) {
	client := NewClient(0, nil)
	if client.Timeout != defaultClientTimeout {
		t.Fatalf("timeout = %v, want %v", client.Timeout, defaultClientTimeout)
	}
	if client.Jar == nil {
		t.Fatal("cookie jar must be set")
	}
	transport, ok := client.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("transport type = %T, want *http.Transport", client.Transport)
	}
	if transport.MaxIdleConnsPerHost != defaultMaxIdleConnsPerHost {
		t.Fatalf("MaxIdleConnsPerHost = %d, want %d", transport.MaxIdleConnsPerHost, defaultMaxIdleConnsPerHost)
	}
	if transport.ResponseHeaderTimeout != defaultClientTimeout {
		t.Fatalf("ResponseHeaderTimeout = %v, want %v", transport.ResponseHeaderTimeout, defaultClientTimeout)
	}
}

func TestNewClient_CapsDialTimeout(t *testing.T) {
	transport := NewTransport(20 * time.Second)
	if transport.TLSHandshakeTimeout != defaultDialTimeout {
		t.Fatalf("TLSHandshakeTimeout = %v, want %v", transport.TLSHandshakeTimeout, defaultDialTimeout)
	}
	if transport.ResponseHeaderTimeout != 20*time.Second {
		t.Fatalf("ResponseHeaderTimeout = %v, want 20s", transport.ResponseHeaderTimeout)
	}
}

type markerRT struct{ next http.RoundTripper }

func (m markerRT) RoundTrip(r *http.Request) (*http.Response, error) { return m.next.RoundTrip(r) }

func TestNewClient_WrapsTransport(t *testing.T) {
	client := NewClient(time.Second, func(rt http.RoundTripper) http.RoundTripper {
		return markerRT{next: rt}
	})
	if _, ok := client.Transport.(markerRT); !ok {
		t.Fatalf("transport type = %T, want markerRT", client.Transport)
	}
}
