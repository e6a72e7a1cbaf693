// SPDX-License-Identifier: MIT

package zapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
)

// Mock endpoint keys for SetFailures and Requests.
const (
	EndpointProbe    = "/de"
	EndpointToken    = "/token.json"
	EndpointHello    = "/zapi/session/hello"
	EndpointLogin    = "/zapi/v2/account/login"
	EndpointChannels = "/zapi/v2/cached/channels/"
	EndpointGuide    = "/zapi/v2/cached/program/power_guide/"
	EndpointDetails  = "/zapi/v2/cached/program/power_details/"
)

// MockProgram is a listing served by the mock power guide. Its id is encoded
// as a JSON number when NumericID is set.
type MockProgram struct {
	ChannelID string
	ID        string
	NumericID bool
	Start     int64
	End       int64
	Title     string
}

// MockServer is a configurable upstream for tests.
type MockServer struct {
	*httptest.Server

	mu            sync.Mutex
	Email         string
	Password      string
	Region        string
	GuideHash     string
	SessionID     string
	Channels      []Channel
	Programs      []MockProgram
	Details       map[string]map[string]any
	DetailsArray  bool
	failures      map[string]int
	alwaysFail    map[string]bool
	guideFailures map[int64]bool
	requests      map[string]int
	detailBatches [][]string
}

// NewMockServer starts a mock upstream with one account and an empty guide.
func NewMockServer() *MockServer {
	m := &MockServer{
		Email:         "user@example.com",
		Password:      "secret",
		Region:        "DE",
		GuideHash:     "hash123",
		SessionID:     "sess-1",
		Details:       make(map[string]map[string]any),
		failures:      make(map[string]int),
		alwaysFail:    make(map[string]bool),
		guideFailures: make(map[int64]bool),
		requests:      make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(EndpointProbe, m.handleProbe)
	mux.HandleFunc(EndpointToken, m.handleToken)
	mux.HandleFunc(EndpointHello, m.handleHello)
	mux.HandleFunc(EndpointLogin, m.handleLogin)
	mux.HandleFunc(EndpointChannels, m.handleChannels)
	mux.HandleFunc(EndpointGuide, m.handleGuide)
	mux.HandleFunc(EndpointDetails, m.handleDetails)

	m.Server = httptest.NewServer(mux)
	return m
}

// SetFailures makes the next count requests to endpoint answer 500.
func (m *MockServer) SetFailures(endpoint string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[endpoint] = count
}

// FailAlways makes every request to endpoint answer 500.
func (m *MockServer) FailAlways(endpoint string, fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alwaysFail[endpoint] = fail
}

// FailGuideWindow makes the power guide window starting at start answer 500.
func (m *MockServer) FailGuideWindow(start int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.guideFailures[start] = true
}

// AddDetails registers a detail record for id.
func (m *MockServer) AddDetails(id string, fields map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Details[id] = fields
}

// Requests returns how many requests reached endpoint.
func (m *MockServer) Requests(endpoint string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[endpoint]
}

// DetailBatches returns the id lists of all detail requests in order.
func (m *MockServer) DetailBatches() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]string, len(m.detailBatches))
	copy(out, m.detailBatches)
	return out
}

// enter counts the request and reports whether an injected failure applies.
func (m *MockServer) enter(w http.ResponseWriter, endpoint string) bool {
	m.requests[endpoint]++
	if m.alwaysFail[endpoint] {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return false
	}
	if n := m.failures[endpoint]; n > 0 {
		m.failures[endpoint] = n - 1
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return false
	}
	return true
}

func (m *MockServer) handleProbe(w http.ResponseWriter, _ *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.enter(w, EndpointProbe) {
		return
	}
	w.Header().Set("Content-Type", "text/html")
	_, _ = w.Write([]byte("<html></html>"))
}

func (m *MockServer) handleToken(w http.ResponseWriter, _ *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.enter(w, EndpointToken) {
		return
	}
	writeJSON(w, map[string]any{"success": true, "session_token": "app-token"})
}

func (m *MockServer) handleHello(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.enter(w, EndpointHello) {
		return
	}
	if r.Method != http.MethodPost || r.FormValue("client_app_token") != "app-token" || r.FormValue("uuid") == "" {
		http.Error(w, "bad hello", http.StatusBadRequest)
		return
	}
	if m.SessionID != "" {
		http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: m.SessionID, Path: "/"})
	}
	writeJSON(w, map[string]any{"success": true})
}

func (m *MockServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.enter(w, EndpointLogin) {
		return
	}
	if !m.hasSession(r) {
		http.Error(w, "no session", http.StatusForbidden)
		return
	}
	if r.FormValue("login") != m.Email || r.FormValue("password") != m.Password {
		http.Error(w, `{"success": false}`, http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]any{
		"success": true,
		"session": map[string]any{
			"service_region_country": m.Region,
			"power_guide_hash":       m.GuideHash,
		},
	})
}

func (m *MockServer) handleChannels(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.enter(w, EndpointChannels) {
		return
	}
	if !m.authorized(w, r) {
		return
	}
	channels := make([]map[string]any, 0, len(m.Channels))
	for _, ch := range m.Channels {
		entry := map[string]any{"cid": ch.CID, "title": ch.Title}
		if ch.Logo != "" {
			entry["qualities"] = []map[string]any{{"logo_black_84": ch.Logo}}
		}
		channels = append(channels, entry)
	}
	writeJSON(w, map[string]any{
		"success":        true,
		"channel_groups": []map[string]any{{"name": "All", "channels": channels}},
	})
}

func (m *MockServer) handleGuide(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.enter(w, EndpointGuide) {
		return
	}
	if !m.authorized(w, r) {
		return
	}
	start, err1 := strconv.ParseInt(r.URL.Query().Get("start"), 10, 64)
	end, err2 := strconv.ParseInt(r.URL.Query().Get("end"), 10, 64)
	if err1 != nil || err2 != nil {
		http.Error(w, "bad window", http.StatusBadRequest)
		return
	}
	if m.guideFailures[start] {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	order := make([]string, 0)
	byChannel := make(map[string][]map[string]any)
	for _, p := range m.Programs {
		if p.Start < start || p.Start >= end {
			continue
		}
		if _, ok := byChannel[p.ChannelID]; !ok {
			order = append(order, p.ChannelID)
		}
		var id any = p.ID
		if p.NumericID {
			if n, err := strconv.ParseInt(p.ID, 10, 64); err == nil {
				id = n
			}
		}
		byChannel[p.ChannelID] = append(byChannel[p.ChannelID], map[string]any{
			"id": id, "s": p.Start, "e": p.End, "t": p.Title,
		})
	}
	channels := make([]map[string]any, 0, len(order))
	for _, cid := range order {
		channels = append(channels, map[string]any{"cid": cid, "programs": byChannel[cid]})
	}
	writeJSON(w, map[string]any{"success": true, "channels": channels})
}

func (m *MockServer) handleDetails(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.enter(w, EndpointDetails) {
		return
	}
	if !m.authorized(w, r) {
		return
	}
	ids := strings.Split(r.URL.Query().Get("program_ids"), ",")
	m.detailBatches = append(m.detailBatches, ids)

	if m.DetailsArray {
		programs := make([]map[string]any, 0, len(ids))
		for _, id := range ids {
			if d, ok := m.Details[id]; ok {
				entry := map[string]any{"id": id}
				for k, v := range d {
					entry[k] = v
				}
				programs = append(programs, entry)
			}
		}
		writeJSON(w, map[string]any{"success": true, "programs": programs})
		return
	}

	programs := make(map[string]any, len(ids))
	for _, id := range ids {
		if d, ok := m.Details[id]; ok {
			programs[id] = d
		}
	}
	writeJSON(w, map[string]any{"success": true, "programs": programs})
}

func (m *MockServer) hasSession(r *http.Request) bool {
	ck, err := r.Cookie(SessionCookie)
	return err == nil && ck.Value == m.SessionID
}

func (m *MockServer) authorized(w http.ResponseWriter, r *http.Request) bool {
	if !m.hasSession(r) {
		http.Error(w, "no session", http.StatusForbidden)
		return false
	}
	if !strings.HasSuffix(strings.TrimSuffix(r.URL.Path, "/"), "/"+m.GuideHash) {
		http.Error(w, "unknown hash", http.StatusNotFound)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
