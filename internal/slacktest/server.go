// Package slacktest runs an in-process fake of the Slack web API for tests.
package slacktest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
)

// Request is a recorded call to the fake API.
type Request struct {
	Method   string
	Endpoint string
	Params   url.Values
	Auth     string
	Cookie   string
}

// Handler produces the JSON body for one call. Returning nil yields an
// unknown_method error.
type Handler func(params url.Values) any

// Server is a fake Slack web API. Endpoints are registered by method name
// ("conversations.info") and receive merged query and form parameters.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	requests []Request
}

// NewServer starts a fake API. Close it with Server.Close.
func NewServer() *Server {
	s := &Server{handlers: make(map[string]http.HandlerFunc)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

// Handle registers a JSON handler for endpoint.
func (s *Server) Handle(endpoint string, h Handler) {
	s.HandleRaw(endpoint, func(w http.ResponseWriter, r *http.Request) {
		body := h(r.Form)
		if body == nil {
			body = Fail("unknown_method")
		}
		WriteJSON(w, body)
	})
}

// HandleRaw registers a plain HTTP handler for endpoint. The request's Form
// is already parsed.
func (s *Server) HandleRaw(endpoint string, h http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[endpoint] = h
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	endpoint := strings.TrimPrefix(r.URL.Path, "/")

	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Method:   r.Method,
		Endpoint: endpoint,
		Params:   cloneValues(r.Form),
		Auth:     r.Header.Get("Authorization"),
		Cookie:   r.Header.Get("Cookie"),
	})
	h := s.handlers[endpoint]
	s.mu.Unlock()

	if h == nil {
		WriteJSON(w, Fail("unknown_method"))
		return
	}
	h(w, r)
}

// Calls returns how many times endpoint was called.
func (s *Server) Calls(endpoint string) int {
	return s.CallsWhere(endpoint, func(url.Values) bool { return true })
}

// CallsWith counts calls to endpoint whose parameter key equals value.
func (s *Server) CallsWith(endpoint, key, value string) int {
	return s.CallsWhere(endpoint, func(p url.Values) bool { return p.Get(key) == value })
}

// CallsWhere counts calls to endpoint matching pred.
func (s *Server) CallsWhere(endpoint string, pred func(url.Values) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.Endpoint == endpoint && pred(r.Params) {
			n++
		}
	}
	return n
}

// Requests returns a copy of every recorded call.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// RequestsTo returns the recorded calls to endpoint.
func (s *Server) RequestsTo(endpoint string) []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.Endpoint == endpoint {
			out = append(out, r)
		}
	}
	return out
}

// OK builds a successful response body from fields.
func OK(fields map[string]any) map[string]any {
	body := map[string]any{"ok": true}
	for k, v := range fields {
		body[k] = v
	}
	return body
}

// Fail builds an error response body.
func Fail(code string) map[string]any {
	return map[string]any{"ok": false, "error": code}
}

// WriteJSON writes body with a 200 status.
func WriteJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
