package models

import "encoding/json"

// Request is an inbound wallet request from the host.
type Request struct {
	Resource string          `json:"resource"`
	Data     json.RawMessage `json:"data"`
}

// Envelope is the only shape a caller ever receives: exactly one of
// Success or Failure is set.
type Envelope struct {
	Success any     `json:"success,omitempty"`
	Failure *string `json:"failure,omitempty"`
}

func Succeed(value any) Envelope {
	return Envelope{Success: value}
}

func Fail(message string) Envelope {
	return Envelope{Failure: &message}
}

func (e Envelope) OK() bool {
	return e.Failure == nil
}

// AccountDescriptor is the wallet-standard account returned by connect and
// sign-in.
type AccountDescriptor struct {
	Address   string   `json:"address"`
	PublicKey Bytes    `json:"publicKey"`
	Chains    []string `json:"chains"`
	Features  []string `json:"features"`
	Icon      string   `json:"icon,omitempty"`
	Label     string   `json:"label,omitempty"`
}

type SignInOutput struct {
	Account       AccountDescriptor `json:"account"`
	SignedMessage Bytes             `json:"signedMessage"`
	Signature     Bytes             `json:"signature"`
	SignatureType string            `json:"signatureType"`
}

// SignedOutput is one element of a sign-message, sign-transaction or
// sign-and-send result. RawResponse carries an RPC body that could not be
// classified.
type SignedOutput struct {
	SignedMessage     Bytes  `json:"signedMessage,omitempty"`
	Signature         Bytes  `json:"signature,omitempty"`
	SignatureType     string `json:"signatureType"`
	SignedTransaction Bytes  `json:"signedTransaction,omitempty"`
	RawResponse       string `json:"rawResponse,omitempty"`
}

// ConnectData is accepted either as a bare origin string or as
// {"origin": "..."}.
type ConnectData struct {
	Origin string `json:"origin" validate:"required"`
}

func (c *ConnectData) UnmarshalJSON(data []byte) error {
	var origin string
	if err := json.Unmarshal(data, &origin); err == nil {
		c.Origin = origin
		return nil
	}
	type plain ConnectData
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*c = ConnectData(p)
	return nil
}

type AccountRef struct {
	Address   string `json:"address,omitempty"`
	PublicKey Bytes  `json:"publicKey" validate:"required,len=32"`
}

type SignInData struct {
	// Origin of the requesting page, when the host forwards it.
	Origin      string          `json:"origin,omitempty"`
	RequestData json.RawMessage `json:"requestData" validate:"required"`
}

type SignMessageData struct {
	RequestData *SignMessageRequest `json:"requestData" validate:"required"`
}

type SignMessageRequest struct {
	Account *AccountRef `json:"account" validate:"required"`
	Message Bytes       `json:"message" validate:"required"`
}

type SignTransactionData struct {
	RequestData *SignTransactionRequest `json:"requestData" validate:"required"`
}

type SignTransactionRequest struct {
	Account     *AccountRef     `json:"account" validate:"required"`
	Transaction Bytes           `json:"transaction" validate:"required"`
	Chain       string          `json:"chain,omitempty"`
	Options     json.RawMessage `json:"options,omitempty"`
}

// WalletInfo is returned by wallet_describe.
type WalletInfo struct {
	Name     string              `json:"name"`
	Version  string              `json:"version"`
	Chains   []string            `json:"chains"`
	Features []string            `json:"features"`
	Accounts []AccountDescriptor `json:"accounts"`
	State    string              `json:"state"`
}
