package zapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, base string) *Client {
	t.Helper()
	c, err := New(Options{BaseURL: base, Timeout: 2 * time.Second})
	require.NoError(t, err)
	return c
}

func login(t *testing.T, c *Client, m *MockServer) LoginSession {
	t.Helper()
	ctx := context.Background()
	tok, err := c.Token(ctx)
	require.NoError(t, err)
	sid, err := c.Hello(ctx, tok, "")
	require.NoError(t, err)
	require.Equal(t, m.SessionID, sid)
	s, err := c.Login(ctx, m.Email, m.Password)
	require.NoError(t, err)
	return s
}

func TestNew_InvalidBaseURL(t *testing.T) {
	_, err := New(Options{BaseURL: "::not a url"})
	assert.Error(t, err)

	c, err := New(Options{})
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, c.base.String())
}

func TestClient_Handshake(t *testing.T) {
	m := NewMockServer()
	defer m.Close()
	c := newTestClient(t, m.URL)

	require.NoError(t, c.Probe(context.Background()))
	s := login(t, c, m)
	assert.Equal(t, "DE", s.ServiceRegionCountry)
	assert.Equal(t, "hash123", s.PowerGuideHash)
	assert.Equal(t, m.SessionID, c.SessionID())
}

func TestClient_LoginRejected(t *testing.T) {
	m := NewMockServer()
	defer m.Close()
	c := newTestClient(t, m.URL)
	ctx := context.Background()

	tok, err := c.Token(ctx)
	require.NoError(t, err)
	_, err = c.Hello(ctx, tok, "")
	require.NoError(t, err)

	_, err = c.Login(ctx, m.Email, "wrong")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnauthorized))

	var ze *Error
	require.ErrorAs(t, err, &ze)
	assert.Equal(t, OpLogin, ze.Operation)
	assert.Equal(t, http.StatusBadRequest, ze.Status)
}

func TestClient_HelloWithoutCookie(t *testing.T) {
	m := NewMockServer()
	defer m.Close()
	m.SessionID = ""
	c := newTestClient(t, m.URL)

	_, err := c.Hello(context.Background(), "app-token", "")
	assert.ErrorIs(t, err, ErrBadResponse)
}

func TestClient_Channels(t *testing.T) {
	m := NewMockServer()
	defer m.Close()
	m.Channels = []Channel{
		{CID: "ard", Title: "Das Erste", Logo: "/images/ard/84x48.png"},
		{CID: "zdf", Title: "ZDF"},
		{CID: "ard", Title: "Das Erste again"},
		{CID: "", Title: "No id"},
		{CID: "sat1", Title: ""},
		{CID: "sat1", Title: "SAT.1"},
		{CID: "blank", Title: "  "},
	}
	c := newTestClient(t, m.URL)
	s := login(t, c, m)

	got, err := c.Channels(context.Background(), s.PowerGuideHash)
	require.NoError(t, err)
	assert.Equal(t, []Channel{
		{CID: "ard", Title: "Das Erste", Logo: "/images/ard/210x120.png"},
		{CID: "zdf", Title: "ZDF"},
		{CID: "sat1", Title: "SAT.1"},
	}, got)
}

func TestClient_PowerGuide(t *testing.T) {
	m := NewMockServer()
	defer m.Close()
	m.Programs = []MockProgram{
		{ChannelID: "ard", ID: "1", NumericID: true, Start: 100, End: 200, Title: "A"},
		{ChannelID: "ard", ID: "2", Start: 200, End: 300, Title: "B"},
		{ChannelID: "zdf", ID: "3", Start: 500, End: 600, Title: "C"},
	}
	c := newTestClient(t, m.URL)
	s := login(t, c, m)

	got, err := c.PowerGuide(context.Background(), s.PowerGuideHash, 0, 400)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ard", got[0].ChannelID())
	require.Len(t, got[0].Programs, 2)
	assert.Equal(t, FlexString("1"), got[0].Programs[0].ID)
	assert.Equal(t, FlexString("2"), got[0].Programs[1].ID)
}

func TestClient_PowerDetails(t *testing.T) {
	for _, array := range []bool{false, true} {
		m := NewMockServer()
		m.DetailsArray = array
		m.AddDetails("10", map[string]any{"d": "ten", "g": []string{"News"}})
		m.AddDetails("11", map[string]any{"d": "eleven", "s_no": 1, "e_no": "3"})
		c := newTestClient(t, m.URL)
		s := login(t, c, m)

		got, err := c.PowerDetails(context.Background(), s.PowerGuideHash, []string{"10", "11", "12"})
		require.NoError(t, err)
		require.Len(t, got, 2, "array=%v", array)
		assert.Equal(t, "ten", got["10"].Description)
		assert.Equal(t, []string{"News"}, got["10"].Genres)
		assert.Equal(t, FlexInt(3), got["11"].Episode)
		assert.Equal(t, [][]string{{"10", "11", "12"}}, m.DetailBatches())
		m.Close()
	}
}

func TestClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		sentinel error
	}{
		{"bad status", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}, ErrBadStatus},
		{"malformed json", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("{not json"))
		}, ErrBadResponse},
		{"missing success", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"channels": []}`))
		}, ErrNotSuccessful},
		{"success false", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"success": false}`))
		}, ErrNotSuccessful},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()
			c := newTestClient(t, srv.URL)
			_, err := c.PowerGuide(context.Background(), "h", 0, 1)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)
		})
	}
}

func TestClient_Timeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	c, err := New(Options{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)
	_, err = c.Token(context.Background())
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := newTestClient(t, url)
	err := c.Probe(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestClient_RateLimiterHonoursContext(t *testing.T) {
	m := NewMockServer()
	defer m.Close()
	c, err := New(Options{BaseURL: m.URL, RateLimit: 0.001, Burst: 1})
	require.NoError(t, err)

	require.NoError(t, c.Probe(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = c.Probe(ctx)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 1, m.Requests(EndpointProbe))
}

func TestError_Message(t *testing.T) {
	err := newError(OpPowerGuide, ErrBadStatus, 503, nil)
	assert.Equal(t, "zapi: power_guide: zapi: unexpected HTTP status (HTTP 503)", err.Error())
	assert.True(t, errors.Is(err, ErrBadStatus))
	assert.Equal(t, "bad_status", outcomeOf(err))
}
