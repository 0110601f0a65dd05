package dispatch

import (
	"context"
	"encoding/json"

	"atoll-wallet/go-core/internal/broadcast"
	"atoll-wallet/go-core/internal/chain"
	"atoll-wallet/go-core/internal/signing"
	"atoll-wallet/go-core/internal/siws"
	"atoll-wallet/go-core/internal/solanarpc"
	"atoll-wallet/go-core/internal/vault"
	"atoll-wallet/go-core/internal/walleterr"
	"atoll-wallet/go-core/pkg/models"
)

func (d *Dispatcher) connect(_ context.Context, data json.RawMessage) (any, error) {
	var in models.ConnectData
	if err := d.decode(chain.StandardConnect, data, &in); err != nil {
		return nil, err
	}
	id, err := d.sessions.Connect(d.vault.Active(), in.Origin)
	if err != nil {
		return nil, err
	}
	return d.descriptor(id), nil
}

func (d *Dispatcher) signIn(_ context.Context, data json.RawMessage) (any, error) {
	var in models.SignInData
	if err := d.decode(chain.SignIn, data, &in); err != nil {
		return nil, err
	}
	var fields siws.Fields
	if err := json.Unmarshal(in.RequestData, &fields); err != nil {
		return nil, walleterr.Cast("The `requestData` for `%s` has an unexpected shape: %v", chain.SignIn, err)
	}
	req, err := siws.Parse(fields, d.clock)
	if err != nil {
		return nil, err
	}

	var (
		id        vault.Identity
		message   = req.Format()
		signature []byte
	)
	err = d.vault.ViewActive(func(kp *vault.Keypair) error {
		id = kp.Identity()
		if req.Address != "" && req.Address != id.Address {
			return walleterr.Input("The `address` %s does not belong to the active account", req.Address)
		}
		var err error
		signature, err = kp.Sign([]byte(message))
		return err
	})
	if err != nil {
		return nil, err
	}

	if origin := signInOrigin(in.Origin, req); origin != "" {
		fp := vault.FingerprintOf(id.PublicKey[:])
		err := d.sessions.RecordSignIn(fp, origin, vault.SignInRecord{
			Message:   message,
			Signature: signature,
		})
		if err != nil {
			return nil, err
		}
	}

	return []models.SignInOutput{{
		Account:       d.descriptor(id),
		SignedMessage: models.Bytes(message),
		Signature:     signature,
		SignatureType: chain.SignatureType,
	}}, nil
}

// signInOrigin picks the session key for a sign-in: the host supplied
// origin, else the URI the dapp put in the message, else its domain.
func signInOrigin(origin string, req *siws.Request) string {
	switch {
	case origin != "":
		return origin
	case req.URI != "":
		return req.URI
	default:
		return req.Domain
	}
}

func (d *Dispatcher) signMessage(_ context.Context, data json.RawMessage) (any, error) {
	var in models.SignMessageData
	if err := d.decode(chain.SignMessage, data, &in); err != nil {
		return nil, err
	}
	msg := in.RequestData.Message
	// TODO: reject signing for origins without a DappSession once sign
	// requests carry the caller origin.
	var signature []byte
	err := d.vault.ViewActive(func(kp *vault.Keypair) error {
		var err error
		signature, err = signing.SignMessage(kp, in.RequestData.Account.PublicKey, msg)
		return err
	})
	if err != nil {
		return nil, err
	}
	return []models.SignedOutput{{
		SignedMessage: msg,
		Signature:     signature,
		SignatureType: chain.SignatureType,
	}}, nil
}

func (d *Dispatcher) signTransaction(_ context.Context, data json.RawMessage) (any, error) {
	var in models.SignTransactionData
	if err := d.decode(chain.SignTransaction, data, &in); err != nil {
		return nil, err
	}
	var signed []byte
	err := d.vault.ViewActive(func(kp *vault.Keypair) error {
		var err error
		signed, err = signing.SignTransaction(kp, in.RequestData.Account.PublicKey, in.RequestData.Transaction)
		return err
	})
	if err != nil {
		return nil, err
	}
	return []models.SignedOutput{{
		SignatureType:     chain.SignatureType,
		SignedTransaction: signed,
	}}, nil
}

func (d *Dispatcher) signAndSendTransaction(ctx context.Context, data json.RawMessage) (any, error) {
	var in models.SignTransactionData
	if err := d.decode(chain.SignAndSendTransaction, data, &in); err != nil {
		return nil, err
	}
	if d.broadcaster == nil {
		return nil, walleterr.UnsupportedMessage(chain.SignAndSendTransaction)
	}
	res, err := d.broadcaster.SignAndSend(ctx, broadcast.Request{
		Claimed:     in.RequestData.Account.PublicKey,
		Transaction: in.RequestData.Transaction,
		Cluster:     chain.ParseCluster(in.RequestData.Chain),
		Options:     solanarpc.ParseSendOptions(in.RequestData.Options),
	})
	if err != nil {
		return nil, err
	}
	return []models.SignedOutput{{
		Signature:         res.Signature,
		SignatureType:     chain.SignatureType,
		SignedTransaction: res.SignedTransaction,
		RawResponse:       res.RawResponse,
	}}, nil
}
