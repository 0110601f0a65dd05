// Package chain holds the chain-level vocabulary of the wallet: clusters,
// commitment levels and the wallet-standard feature identifiers.
package chain

const Namespace = "solana"

// Wallet-standard feature identifiers. They double as the resource tags of
// inbound requests.
const (
	StandardConnect        = "standard:connect"
	StandardDisconnect     = "standard:disconnect"
	StandardEvents         = "standard:events"
	SignIn                 = "solana:signIn"
	SignMessage            = "solana:signMessage"
	SignTransaction        = "solana:signTransaction"
	SignAndSendTransaction = "solana:signAndSendTransaction"
)

// SignatureType is reported alongside every signature the wallet produces.
const SignatureType = "ed25519"

// AccountFeatures lists the features an account advertises, in wallet-standard order.
func AccountFeatures() []string {
	return []string{SignIn, SignMessage, SignTransaction, SignAndSendTransaction}
}
