package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"atoll-wallet/go-core/internal/config"
	"atoll-wallet/go-core/internal/dispatch"
	"atoll-wallet/go-core/internal/metrics"
	"atoll-wallet/go-core/pkg/models"
)

type fakeWallet struct {
	calls []models.Request
}

func (f *fakeWallet) Handle(_ context.Context, req models.Request) models.Envelope {
	f.calls = append(f.calls, req)
	if req.Resource == "solana:fail" {
		return models.Fail("boom")
	}
	return models.Succeed(map[string]string{"echo": string(req.Data)})
}

func (f *fakeWallet) Describe() (models.AccountDescriptor, error) {
	return models.AccountDescriptor{Address: "addr"}, nil
}

func (f *fakeWallet) Resources() []string { return []string{"standard:connect"} }

func (f *fakeWallet) State() dispatch.State { return dispatch.Idle }

func newTestServer(t *testing.T, cfg config.ServerConfig) (*Server, *fakeWallet) {
	t.Helper()
	wallet := &fakeWallet{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(cfg, wallet, metrics.New(), logger, "test"), wallet
}

func rpcCall(t *testing.T, s *Server, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/rpc", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(rpcTokenHeader, token)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeRPCResponse(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return resp
}

func errorCode(t *testing.T, resp map[string]any) float64 {
	t.Helper()
	errObj, ok := resp["error"].(map[string]any)
	if !ok {
		t.Fatalf("expected error object, got %#v", resp)
	}
	return errObj["code"].(float64)
}

func TestRPCRoutesResourceToWallet(t *testing.T) {
	s, wallet := newTestServer(t, config.ServerConfig{})
	rec := rpcCall(t, s, `{"jsonrpc":"2.0","id":1,"method":"standard:connect","params":{"origin":"https://dapp.example"}}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	resp := decodeRPCResponse(t, rec)
	result, ok := resp["result"].(map[string]any)
	if !ok {
		t.Fatalf("missing result: %#v", resp)
	}
	if _, ok := result["success"]; !ok {
		t.Fatalf("expected success envelope, got %#v", result)
	}
	if len(wallet.calls) != 1 || wallet.calls[0].Resource != "standard:connect" {
		t.Fatalf("unexpected wallet calls: %#v", wallet.calls)
	}
	if !strings.Contains(string(wallet.calls[0].Data), "dapp.example") {
		t.Fatalf("params not forwarded: %s", wallet.calls[0].Data)
	}
}

func TestRPCFailureEnvelopeIsResult(t *testing.T) {
	s, _ := newTestServer(t, config.ServerConfig{})
	resp := decodeRPCResponse(t, rpcCall(t, s, `{"jsonrpc":"2.0","id":"a","method":"solana:fail"}`, ""))
	if resp["error"] != nil {
		t.Fatalf("wallet failures travel in the result: %#v", resp)
	}
	result := resp["result"].(map[string]any)
	if result["failure"] != "boom" {
		t.Fatalf("unexpected failure: %#v", result)
	}
}

func TestRPCFramingErrors(t *testing.T) {
	s, _ := newTestServer(t, config.ServerConfig{})
	cases := []struct {
		name string
		body string
		code float64
	}{
		{"parse", `{`, -32700},
		{"version", `{"jsonrpc":"1.0","id":1,"method":"standard:connect"}`, -32600},
		{"empty method", `{"jsonrpc":"2.0","id":1}`, -32600},
		{"trailing", `{"jsonrpc":"2.0","id":1,"method":"x:y"}{}`, -32600},
		{"unknown", `{"jsonrpc":"2.0","id":1,"method":"eth_sign"}`, -32601},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := decodeRPCResponse(t, rpcCall(t, s, tc.body, ""))
			if got := errorCode(t, resp); got != tc.code {
				t.Fatalf("expected code %v, got %v", tc.code, got)
			}
		})
	}
}

func TestRPCBuiltinMethods(t *testing.T) {
	s, _ := newTestServer(t, config.ServerConfig{})
	resp := decodeRPCResponse(t, rpcCall(t, s, `{"jsonrpc":"2.0","id":1,"method":"wallet_describe"}`, ""))
	info := resp["result"].(map[string]any)
	if info["name"] != walletName || info["version"] != "test" {
		t.Fatalf("unexpected describe result: %#v", info)
	}
	if accounts := info["accounts"].([]any); len(accounts) != 1 {
		t.Fatalf("expected one account, got %#v", accounts)
	}
	if chains := info["chains"].([]any); len(chains) != 4 {
		t.Fatalf("expected four chains, got %#v", chains)
	}

	resp = decodeRPCResponse(t, rpcCall(t, s, `{"jsonrpc":"2.0","id":2,"method":"health_check"}`, ""))
	if resp["result"].(map[string]any)["status"] != "ok" {
		t.Fatalf("unexpected health result: %#v", resp)
	}
}

func TestRPCTokenAuth(t *testing.T) {
	s, wallet := newTestServer(t, config.ServerConfig{Token: "secret"})
	body := `{"jsonrpc":"2.0","id":1,"method":"standard:connect","params":"https://a.example"}`

	if rec := rpcCall(t, s, body, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	if rec := rpcCall(t, s, body, "wrong"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", rec.Code)
	}
	if rec := rpcCall(t, s, body, "secret"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/rpc", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected bearer token to be accepted, got %d", rec.Code)
	}
	if len(wallet.calls) != 2 {
		t.Fatalf("expected two authorized calls, got %d", len(wallet.calls))
	}
}

func TestRPCOriginPolicy(t *testing.T) {
	s, _ := newTestServer(t, config.ServerConfig{AllowedOrigins: []string{"https://trusted.example"}})
	cases := []struct {
		origin string
		want   int
	}{
		{"chrome-extension://abcdef", http.StatusOK},
		{"moz-extension://1234-5678", http.StatusOK},
		{"http://localhost:3000", http.StatusOK},
		{"http://127.0.0.1:5173", http.StatusOK},
		{"https://trusted.example", http.StatusOK},
		{"https://evil.example", http.StatusForbidden},
		{"chrome-extension://", http.StatusForbidden},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/rpc", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"health_check"}`))
		req.Header.Set("Origin", tc.origin)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("origin %q: expected %d, got %d", tc.origin, tc.want, rec.Code)
		}
		if tc.want == http.StatusOK && rec.Header().Get("Access-Control-Allow-Origin") != tc.origin {
			t.Fatalf("origin %q not echoed", tc.origin)
		}
	}
}

func TestRPCPreflight(t *testing.T) {
	s, _ := newTestServer(t, config.ServerConfig{Token: "secret"})
	req := httptest.NewRequest(http.MethodOptions, "/rpc", nil)
	req.Header.Set("Origin", "chrome-extension://abcdef")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("Access-Control-Allow-Headers"), rpcTokenHeader) {
		t.Fatalf("token header not allowed: %q", rec.Header().Get("Access-Control-Allow-Headers"))
	}
}

func TestRPCBodyLimit(t *testing.T) {
	s, _ := newTestServer(t, config.ServerConfig{MaxBodyBytes: 64})
	body := `{"jsonrpc":"2.0","id":1,"method":"solana:signMessage","params":"` + strings.Repeat("a", 128) + `"}`
	if rec := rpcCall(t, s, body, ""); rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
}

func TestRPCRateLimit(t *testing.T) {
	s, _ := newTestServer(t, config.ServerConfig{RateLimitRPS: 1, RateLimitBurst: 1})
	body := `{"jsonrpc":"2.0","id":1,"method":"health_check"}`
	if rec := rpcCall(t, s, body, ""); rec.Code != http.StatusOK {
		t.Fatalf("expected first call to pass, got %d", rec.Code)
	}
	if rec := rpcCall(t, s, body, ""); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}

func TestRPCRateLimitIgnoresUnverifiedTokens(t *testing.T) {
	s, _ := newTestServer(t, config.ServerConfig{RateLimitRPS: 1, RateLimitBurst: 1})
	body := `{"jsonrpc":"2.0","id":1,"method":"health_check"}`
	passed := 0
	for i := 0; i < 20; i++ {
		if rec := rpcCall(t, s, body, fmt.Sprintf("rotated-%d", i)); rec.Code == http.StatusOK {
			passed++
		}
	}
	if passed != 1 {
		t.Fatalf("expected one request through with rotating tokens, got %d", passed)
	}
	if n := s.limiter.Len(); n != 1 {
		t.Fatalf("expected a single bucket for one remote, got %d", n)
	}
}

func TestRPCRateLimitPerVerifiedToken(t *testing.T) {
	s, _ := newTestServer(t, config.ServerConfig{Token: "secret", RateLimitRPS: 1, RateLimitBurst: 1})
	req := httptest.NewRequest(http.MethodPost, "/rpc", nil)
	req.Header.Set(rpcTokenHeader, "secret")
	if got := s.rateLimitKey(req); got != "token:secret" {
		t.Fatalf("unexpected key %q", got)
	}
	body := `{"jsonrpc":"2.0","id":1,"method":"health_check"}`
	if rec := rpcCall(t, s, body, "secret"); rec.Code != http.StatusOK {
		t.Fatalf("expected first call to pass, got %d", rec.Code)
	}
	if rec := rpcCall(t, s, body, "secret"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}

func TestRPCRejectsGet(t *testing.T) {
	s, _ := newTestServer(t, config.ServerConfig{})
	req := httptest.NewRequest(http.MethodGet, "/rpc", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestHealthzAndMetrics(t *testing.T) {
	s, _ := newTestServer(t, config.ServerConfig{})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"state":"idle"`) {
		t.Fatalf("unexpected healthz: %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected metrics status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "atoll_wallet_http_requests_total") {
		t.Fatalf("http metrics missing from exposition")
	}
}

func TestRateLimitKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/rpc", nil)
	req.RemoteAddr = "10.0.0.7:5555"
	if got := rateLimitKey(req, ""); got != "ip:10.0.0.7" {
		t.Fatalf("unexpected key %q", got)
	}
	if got := rateLimitKey(req, "tok"); got != "token:tok" {
		t.Fatalf("unexpected key %q", got)
	}
	req.RemoteAddr = ""
	if got := rateLimitKey(req, ""); got != "ip:unknown" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestRunReturnsOnCancelledContext(t *testing.T) {
	s, _ := newTestServer(t, config.ServerConfig{Addr: "127.0.0.1:0"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Run(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
