package solanarpc

import (
	"context"
	"time"

	"atoll-wallet/go-core/internal/walleterr"

	"github.com/go-resty/resty/v2"
)

const DefaultTimeout = 30 * time.Second

// Transport posts a JSON body to an RPC endpoint and returns the raw
// response body. Status codes are not interpreted; RPC nodes report errors
// inside the JSON envelope.
type Transport interface {
	Post(ctx context.Context, endpoint string, body []byte) ([]byte, error)
}

type RestyTransport struct {
	client *resty.Client
}

func NewRestyTransport(timeout time.Duration) *RestyTransport {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	cl := resty.New().SetTimeout(timeout)
	cl.SetHeader("Content-Type", "application/json")
	cl.SetHeader("Accept", "application/json")
	cl.SetHeader("User-Agent", "atoll-walletd/1.0")
	return &RestyTransport{client: cl}
}

// Client exposes the underlying resty client, mainly so tests can attach
// httpmock to it.
func (t *RestyTransport) Client() *resty.Client {
	return t.client
}

func (t *RestyTransport) Post(ctx context.Context, endpoint string, body []byte) ([]byte, error) {
	resp, err := t.client.R().SetContext(ctx).SetBody(body).Post(endpoint)
	if err != nil {
		return nil, walleterr.Cast("Unable to send request to the RPC endpoint %s: %v", endpoint, err)
	}
	return resp.Body(), nil
}
