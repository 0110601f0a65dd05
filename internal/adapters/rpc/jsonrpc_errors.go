package rpc

func errParse() *rpcError {
	return &rpcError{Code: -32700, Message: "parse error"}
}

func errInvalidRequest() *rpcError {
	return &rpcError{Code: -32600, Message: "invalid request"}
}

func errMethodNotFound() *rpcError {
	return &rpcError{Code: -32601, Message: "method not found"}
}

func errServiceUnavailable() *rpcError {
	return &rpcError{Code: -32099, Message: "wallet is not initialized"}
}
