// Package dispatch routes tagged wallet requests to the signing pipelines
// and wraps every result in a success/failure envelope.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"sync/atomic"
	"time"

	"atoll-wallet/go-core/internal/broadcast"
	"atoll-wallet/go-core/internal/chain"
	"atoll-wallet/go-core/internal/metrics"
	"atoll-wallet/go-core/internal/siws"
	"atoll-wallet/go-core/internal/vault"
	"atoll-wallet/go-core/internal/walleterr"
	"atoll-wallet/go-core/pkg/models"

	"github.com/go-playground/validator/v10"
)

type State uint8

const (
	Idle State = iota
	Handling
)

func (s State) String() string {
	if s == Handling {
		return "handling"
	}
	return "idle"
}

// Broadcaster signs and submits a transaction.
type Broadcaster interface {
	SignAndSend(ctx context.Context, req broadcast.Request) (broadcast.Result, error)
}

// Account controls how the active keypair is presented to dapps.
type Account struct {
	Label          string
	Icon           string
	MainnetEnabled bool
}

type Options struct {
	Account Account
	Clock   siws.Clock
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

type handlerFunc func(ctx context.Context, data json.RawMessage) (any, error)

type Dispatcher struct {
	vault       *vault.Vault
	sessions    *vault.SessionRegistry
	broadcaster Broadcaster
	validate    *validator.Validate
	account     Account
	clock       siws.Clock
	metrics     *metrics.Metrics
	logger      *slog.Logger
	routes      map[string]handlerFunc
	inflight    atomic.Int64
}

func New(v *vault.Vault, sessions *vault.SessionRegistry, b Broadcaster, opts Options) *Dispatcher {
	if opts.Clock == nil {
		opts.Clock = siws.SystemClock
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	d := &Dispatcher{
		vault:       v,
		sessions:    sessions,
		broadcaster: b,
		validate:    newValidator(),
		account:     opts.Account,
		clock:       opts.Clock,
		metrics:     opts.Metrics,
		logger:      opts.Logger,
	}
	d.routes = map[string]handlerFunc{
		chain.StandardConnect:        d.connect,
		chain.SignIn:                 d.signIn,
		chain.SignMessage:            d.signMessage,
		chain.SignTransaction:        d.signTransaction,
		chain.SignAndSendTransaction: d.signAndSendTransaction,
	}
	return d
}

// Resources lists the accepted resource tags.
func (d *Dispatcher) Resources() []string {
	return []string{
		chain.StandardConnect,
		chain.SignIn,
		chain.SignMessage,
		chain.SignTransaction,
		chain.SignAndSendTransaction,
	}
}

func (d *Dispatcher) State() State {
	if d.inflight.Load() > 0 {
		return Handling
	}
	return Idle
}

// Handle runs one request. The resource tag is checked before anything
// else happens; errors never escape as anything but a failure message.
func (d *Dispatcher) Handle(ctx context.Context, req models.Request) models.Envelope {
	handler, ok := d.routes[req.Resource]
	if !ok {
		err := walleterr.UnsupportedMessage(req.Resource)
		d.metrics.ObserveRequest("unsupported", "failure", 0)
		d.logger.Warn("dispatch.unsupported", "resource", req.Resource)
		return models.Fail(err.Error())
	}

	d.inflight.Add(1)
	d.metrics.RequestStarted()
	defer func() {
		d.inflight.Add(-1)
		d.metrics.RequestFinished()
	}()

	started := time.Now()
	result, err := handler(ctx, req.Data)
	latency := time.Since(started)
	if err != nil {
		d.metrics.ObserveRequest(req.Resource, "failure", latency)
		d.logger.Warn("dispatch.failed",
			"resource", req.Resource,
			"kind", walleterr.KindOf(err).String(),
			"latency_ms", latency.Milliseconds(),
			"error", err.Error(),
		)
		return models.Fail(err.Error())
	}
	d.metrics.ObserveRequest(req.Resource, "success", latency)
	d.logger.Debug("dispatch.handled", "resource", req.Resource, "latency_ms", latency.Milliseconds())
	return models.Succeed(result)
}

// Describe returns the account descriptor of the active keypair.
func (d *Dispatcher) Describe() (models.AccountDescriptor, error) {
	kp, err := d.vault.ActiveKeypair()
	if err != nil {
		return models.AccountDescriptor{}, err
	}
	return d.descriptor(kp.Identity()), nil
}

func (d *Dispatcher) descriptor(id vault.Identity) models.AccountDescriptor {
	chains := make([]string, 0, len(chain.AllClusters()))
	for _, c := range chain.AllClusters() {
		if c == chain.Mainnet && !d.account.MainnetEnabled {
			continue
		}
		chains = append(chains, c.Chain())
	}
	return models.AccountDescriptor{
		Address:   id.Address,
		PublicKey: models.Bytes(append([]byte(nil), id.PublicKey[:]...)),
		Chains:    chains,
		Features:  chain.AccountFeatures(),
		Icon:      d.account.Icon,
		Label:     d.account.Label,
	}
}

// decode parses data into out and runs the struct validation rules.
func (d *Dispatcher) decode(resource string, data json.RawMessage, out any) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return walleterr.MissingField("data")
	}
	if err := json.Unmarshal(data, out); err != nil {
		return walleterr.Cast("The `data` for `%s` has an unexpected shape: %v", resource, err)
	}
	if err := d.validate.Struct(out); err != nil {
		return validationError(resource, err)
	}
	return nil
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validationError(resource string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return walleterr.Input("Invalid `data` for `%s`: %v", resource, err)
	}
	first := verrs[0]
	field := first.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	switch first.Tag() {
	case "required":
		return walleterr.MissingField(field)
	case "len":
		return walleterr.Input("`%s` for `%s` must be %s bytes long", field, resource, first.Param())
	default:
		return walleterr.Input("`%s` for `%s` failed the `%s` check", field, resource, first.Tag())
	}
}
