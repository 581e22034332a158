// Package testutil provides testing utilities for the release attribute client.
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockPage describes one scripted page of release records. Each entry of
// Records is the attribute list of one record; nil or empty means the record
// carries no attributes.
type MockPage struct {
	Records    [][]string
	HasNext    bool
	NextCursor string
}

// MockResponse defines a raw response for one (id, cursor) request.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// RecordedRequest is a decoded request received by the mock.
type RecordedRequest struct {
	Header        http.Header
	OperationName string
	Variables     map[string]any
	Extensions    map[string]any
}

// ID returns the external id variable.
func (r RecordedRequest) ID() string {
	s, _ := r.Variables["const"].(string)
	return s
}

// Cursor returns the "after" variable, or "" when absent.
func (r RecordedRequest) Cursor() string {
	s, _ := r.Variables["after"].(string)
	return s
}

// MockAPI is a configurable mock of the GraphQL release-dates endpoint.
type MockAPI struct {
	server    *httptest.Server
	mu        sync.RWMutex
	responses map[string]MockResponse

	requests []RecordedRequest
	perID    map[string]int
}

// NewMockAPI creates and starts a new mock server.
func NewMockAPI() *MockAPI {
	mock := &MockAPI{
		responses: make(map[string]MockResponse),
		perID:     make(map[string]int),
	}
	mock.server = httptest.NewServer(http.HandlerFunc(mock.handle))
	return mock
}

// URL returns the mock server URL.
func (m *MockAPI) URL() string {
	return m.server.URL + "/"
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// Reset clears recorded requests but keeps scripted responses.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
	m.perID = make(map[string]int)
}

// SetResponse scripts the raw response for a request on id with cursor.
func (m *MockAPI) SetResponse(id, cursor string, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[responseKey(id, cursor)] = resp
}

// SetPage scripts a single page served for id at cursor.
func (m *MockAPI) SetPage(id, cursor string, page MockPage) {
	m.SetResponse(id, cursor, NewPageResponse(page))
}

// SetPages scripts a chain of pages for id. Cursors are generated unless a
// page already names its NextCursor. HasNext is set on every page except
// the last.
func (m *MockAPI) SetPages(id string, pages ...MockPage) {
	cursor := ""
	for i, page := range pages {
		last := i == len(pages)-1
		page.HasNext = !last
		if !last && page.NextCursor == "" {
			page.NextCursor = fmt.Sprintf("%s-p%d", id, i+2)
		}
		if last {
			page.NextCursor = ""
		}
		m.SetPage(id, cursor, page)
		cursor = page.NextCursor
	}
}

// FailAt makes the request for id at cursor return status.
func (m *MockAPI) FailAt(id, cursor string, status int) {
	m.SetResponse(id, cursor, MockResponse{
		StatusCode: status,
		Body:       `{"errors":[{"message":"scripted failure"}]}`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	})
}

// RequestCount returns the total number of requests received.
func (m *MockAPI) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

// RequestCountFor returns the number of requests received for id.
func (m *MockAPI) RequestCountFor(id string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.perID[id]
}

// Requests returns a copy of all recorded requests.
func (m *MockAPI) Requests() []RecordedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RecordedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

func (m *MockAPI) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}

	var payload struct {
		OperationName string         `json:"operationName"`
		Variables     map[string]any `json:"variables"`
		Extensions    map[string]any `json:"extensions"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	rec := RecordedRequest{
		Header:        r.Header.Clone(),
		OperationName: payload.OperationName,
		Variables:     payload.Variables,
		Extensions:    payload.Extensions,
	}

	m.mu.Lock()
	m.requests = append(m.requests, rec)
	m.perID[rec.ID()]++
	resp, ok := m.responses[responseKey(rec.ID(), rec.Cursor())]
	m.mu.Unlock()

	if !ok {
		// Unknown titles come back as an empty, final page.
		resp = NewPageResponse(MockPage{})
	}

	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// NewPageResponse renders a MockPage as a 200 GraphQL response.
func NewPageResponse(page MockPage) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       PageBody(page),
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

// PageBody renders the GraphQL JSON body for page.
func PageBody(page MockPage) string {
	type attribute struct {
		Text string `json:"text"`
	}
	type node struct {
		Attributes []attribute `json:"attributes"`
	}
	type edge struct {
		Node node `json:"node"`
	}

	edges := make([]edge, 0, len(page.Records))
	for _, attrs := range page.Records {
		n := node{Attributes: []attribute{}}
		for _, a := range attrs {
			n.Attributes = append(n.Attributes, attribute{Text: a})
		}
		edges = append(edges, edge{Node: n})
	}

	var endCursor any
	if page.NextCursor != "" {
		endCursor = page.NextCursor
	}

	body := map[string]any{
		"data": map[string]any{
			"title": map[string]any{
				"releaseDates": map[string]any{
					"edges": edges,
					"pageInfo": map[string]any{
						"hasNextPage": page.HasNext,
						"endCursor":   endCursor,
					},
				},
			},
		},
	}

	data, err := json.Marshal(body)
	if err != nil {
		panic(fmt.Sprintf("marshal mock page: %v", err))
	}
	return string(data)
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

// NewRateLimitResponse creates a 429 response with a Retry-After header.
func NewRateLimitResponse(retryAfterSeconds int) MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "Rate limit exceeded"}`,
		Headers: map[string]string{
			"Retry-After":  fmt.Sprintf("%d", retryAfterSeconds),
			"Content-Type": "application/json",
		},
	}
}

func responseKey(id, cursor string) string {
	return id + "\x00" + cursor
}
