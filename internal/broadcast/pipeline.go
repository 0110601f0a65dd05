// Package broadcast implements sign-and-send: a decoded transaction gets a
// fresh blockhash, the active keypair's signature and is submitted to the
// cluster RPC. Stages run strictly in order and nothing is retried here.
package broadcast

import (
	"context"
	"log/slog"

	"atoll-wallet/go-core/internal/chain"
	"atoll-wallet/go-core/internal/signing"
	"atoll-wallet/go-core/internal/solanarpc"
	"atoll-wallet/go-core/internal/vault"

	"github.com/gagliardetto/solana-go"
)

type Stage string

const (
	StageDecode         Stage = "decode"
	StageFetchBlockhash Stage = "fetch_blockhash"
	StageSign           Stage = "sign"
	StageSubmit         Stage = "submit"
	StageClassify       Stage = "classify"
)

// RPC is the subset of solanarpc.Client the pipeline needs.
type RPC interface {
	LatestBlockhash(ctx context.Context, endpoint string) (solana.Hash, error)
	SendTransaction(ctx context.Context, endpoint string, wire []byte, opts solanarpc.SendOptions) (solanarpc.Outcome, error)
}

// StageObserver is notified after every stage.
type StageObserver interface {
	ObserveBroadcastStage(stage string, err error)
}

type Request struct {
	// Claimed is the public key the dapp addressed. It is not enforced.
	Claimed     []byte
	Transaction []byte
	Cluster     chain.Cluster
	Options     solanarpc.SendOptions
}

// Result carries either the decoded signature of an accepted transaction
// or, when the RPC answered with an unrecognized shape, its raw body.
type Result struct {
	Signature         []byte
	SignedTransaction []byte
	RawResponse       string
}

type Pipeline struct {
	vault     *vault.Vault
	rpc       RPC
	endpoints chain.Endpoints
	observer  StageObserver
	logger    *slog.Logger
}

func NewPipeline(v *vault.Vault, rpc RPC, endpoints chain.Endpoints, observer StageObserver, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		vault:     v,
		rpc:       rpc,
		endpoints: endpoints,
		observer:  observer,
		logger:    logger,
	}
}

// SignAndSend runs the pipeline. No vault lock is held while the RPC is
// being called; a failure at any stage leaves the vault untouched.
func (p *Pipeline) SignAndSend(ctx context.Context, req Request) (Result, error) {
	tx, err := signing.DecodeTransaction(req.Transaction)
	p.observe(StageDecode, err)
	if err != nil {
		return Result{}, err
	}

	kp, err := p.vault.ActiveKeypair()
	if err != nil {
		return Result{}, err
	}
	fp := kp.Fingerprint()
	endpoint := p.endpoints.Resolve(req.Cluster)

	blockhash, err := p.rpc.LatestBlockhash(ctx, endpoint)
	p.observe(StageFetchBlockhash, err)
	if err != nil {
		p.logger.Warn("broadcast.blockhash.failed", "cluster", req.Cluster.String(), "error", err.Error())
		return Result{}, err
	}

	signing.StampBlockhash(tx, blockhash)
	err = p.vault.View(fp, func(kp *vault.Keypair) error {
		return signing.Sign(tx, kp)
	})
	p.observe(StageSign, err)
	if err != nil {
		return Result{}, err
	}
	wire, err := signing.EncodeTransaction(tx)
	if err != nil {
		p.observe(StageSubmit, err)
		return Result{}, err
	}

	outcome, err := p.rpc.SendTransaction(ctx, endpoint, wire, req.Options)
	p.observe(StageSubmit, err)
	if err != nil {
		p.logger.Warn("broadcast.submit.failed", "cluster", req.Cluster.String(), "error", err.Error())
		return Result{}, err
	}

	res, err := classify(outcome, wire)
	p.observe(StageClassify, err)
	if err != nil {
		return Result{}, err
	}
	p.logger.Info("broadcast.submitted", "cluster", req.Cluster.String(), "outcome", outcome.Kind.String())
	return res, nil
}

func classify(outcome solanarpc.Outcome, wire []byte) (Result, error) {
	switch outcome.Kind {
	case solanarpc.OutcomeSuccess:
		sig, err := outcome.Signature()
		if err != nil {
			return Result{}, err
		}
		return Result{Signature: sig[:], SignedTransaction: wire}, nil
	case solanarpc.OutcomeFailure:
		return Result{}, outcome.Err()
	default:
		return Result{SignedTransaction: wire, RawResponse: string(outcome.Raw)}, nil
	}
}

func (p *Pipeline) observe(stage Stage, err error) {
	if p.observer == nil {
		return
	}
	p.observer.ObserveBroadcastStage(string(stage), err)
}
