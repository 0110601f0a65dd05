package rpc

import (
	"crypto/subtle"
	"net"
	"net/http"
	"net/url"
	"strings"
)

const rpcTokenHeader = "X-Atoll-RPC-Token"

// extensionSchemes are the origins browser extensions run under.
var extensionSchemes = map[string]struct{}{
	"chrome-extension":     {},
	"moz-extension":        {},
	"safari-web-extension": {},
	"ms-browser-extension": {},
}

func (s *Server) applyCORS(w http.ResponseWriter, r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin != "" && !s.isAllowedOrigin(origin) {
		http.Error(w, "origin is not allowed", http.StatusForbidden)
		return false
	}
	if origin != "" {
		w.Header().Set("Access-Control-Allow-Origin", origin)
	}
	w.Header().Set("Vary", "Origin")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization, "+rpcTokenHeader)
	return true
}

func (s *Server) isAllowedOrigin(raw string) bool {
	if _, ok := s.allowedOrigins[raw]; ok {
		return true
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if _, ok := extensionSchemes[strings.ToLower(u.Scheme)]; ok {
		return u.Host != ""
	}
	switch strings.TrimSpace(u.Hostname()) {
	case "localhost", "127.0.0.1", "::1":
		return true
	default:
		return false
	}
}

func (s *Server) authorizeRPC(w http.ResponseWriter, r *http.Request) bool {
	if s.rpcToken == "" {
		return true
	}
	token := s.extractRPCToken(r)
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.rpcToken)) != 1 {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return false
	}
	return true
}

func (s *Server) extractRPCToken(r *http.Request) string {
	token := strings.TrimSpace(r.Header.Get(rpcTokenHeader))
	if token != "" {
		return token
	}
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[len("bearer "):])
	}
	return ""
}

// rateLimitKey buckets callers by token only when auth is enabled, so the
// token has already been checked by authorizeRPC. Otherwise the header is
// caller controlled and the remote IP is used.
func (s *Server) rateLimitKey(r *http.Request) string {
	if s.rpcToken == "" {
		return rateLimitKey(r, "")
	}
	return rateLimitKey(r, s.extractRPCToken(r))
}

func rateLimitKey(r *http.Request, token string) string {
	if strings.TrimSpace(token) != "" {
		return "token:" + token
	}
	remote := strings.TrimSpace(r.RemoteAddr)
	if remote == "" {
		return "ip:unknown"
	}
	host, _, err := net.SplitHostPort(remote)
	if err != nil {
		return "ip:" + remote
	}
	if strings.TrimSpace(host) == "" {
		return "ip:unknown"
	}
	return "ip:" + host
}
