package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"atoll-wallet/go-core/internal/chain"
	"atoll-wallet/go-core/pkg/models"
)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

const (
	methodHealthCheck    = "health_check"
	methodWalletDescribe = "wallet_describe"
	walletName           = "Atoll"
)

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	if !s.applyCORS(w, r) {
		return
	}
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if !s.authorizeRPC(w, r) {
		return
	}
	if !s.limiter.Allow(s.rateLimitKey(r), time.Now()) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
		return
	}
	if s.wallet == nil {
		writeRPC(w, rpcResponse{JSONRPC: "2.0", Error: errServiceUnavailable()})
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	var req rpcRequest
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		writeRPC(w, rpcResponse{JSONRPC: "2.0", Error: errParse()})
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeRPC(w, rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: errInvalidRequest()})
		return
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		writeRPC(w, rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: errInvalidRequest()})
		return
	}

	reqID := fmt.Sprintf("rpc_%d", time.Now().UnixNano())
	started := time.Now()
	s.logger.Info("rpc request", "request_id", reqID, "method", req.Method, "rpc_id", string(req.ID))

	result, rpcErr := s.dispatchRPC(r, req.Method, req.Params)
	if rpcErr != nil {
		s.logger.Error("rpc failed", "request_id", reqID, "method", req.Method, "rpc_code", rpcErr.Code, "latency_ms", time.Since(started).Milliseconds())
	} else {
		s.logger.Info("rpc response", "request_id", reqID, "method", req.Method, "latency_ms", time.Since(started).Milliseconds())
	}
	writeRPC(w, rpcResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  result,
		Error:   rpcErr,
	})
}

// dispatchRPC maps wallet-standard resource tags ("solana:signMessage")
// straight onto the dispatcher; params are the request data and the
// result is the success/failure envelope.
func (s *Server) dispatchRPC(r *http.Request, method string, params json.RawMessage) (any, *rpcError) {
	switch method {
	case methodHealthCheck:
		return s.health(), nil
	case methodWalletDescribe:
		return s.describe(), nil
	}
	if !strings.Contains(method, ":") {
		return nil, errMethodNotFound()
	}
	return s.wallet.Handle(r.Context(), models.Request{Resource: method, Data: params}), nil
}

func (s *Server) describe() models.WalletInfo {
	info := models.WalletInfo{
		Name:     walletName,
		Version:  s.version,
		Features: s.wallet.Resources(),
		Accounts: []models.AccountDescriptor{},
		State:    s.wallet.State().String(),
	}
	for _, c := range chain.AllClusters() {
		info.Chains = append(info.Chains, c.Chain())
	}
	if account, err := s.wallet.Describe(); err == nil {
		info.Accounts = append(info.Accounts, account)
	}
	return info
}

func writeRPC(w http.ResponseWriter, resp rpcResponse) {
	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
