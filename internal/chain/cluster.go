package chain

import "strings"

type Cluster uint8

const (
	Mainnet Cluster = iota + 1
	Testnet
	Devnet
	Localnet
)

// DefaultCluster is used whenever a cluster identifier is not recognized.
const DefaultCluster = Devnet

const (
	MainnetEndpoint  = "https://api.mainnet-beta.solana.com"
	TestnetEndpoint  = "https://api.testnet.solana.com"
	DevnetEndpoint   = "https://api.devnet.solana.com"
	LocalnetEndpoint = "http://localhost:8899"
)

// ParseCluster accepts both bare identifiers ("devnet") and chain ids
// ("solana:devnet"). Unknown values resolve to DefaultCluster.
func ParseCluster(raw string) Cluster {
	c, ok := LookupCluster(raw)
	if !ok {
		return DefaultCluster
	}
	return c
}

// LookupCluster is ParseCluster without the fallback.
func LookupCluster(raw string) (Cluster, bool) {
	id := strings.ToLower(strings.TrimSpace(raw))
	id = strings.TrimPrefix(id, Namespace+":")
	switch id {
	case "mainnet", "mainnet-beta":
		return Mainnet, true
	case "testnet":
		return Testnet, true
	case "devnet":
		return Devnet, true
	case "localnet", "localhost":
		return Localnet, true
	default:
		return 0, false
	}
}

func AllClusters() []Cluster {
	return []Cluster{Mainnet, Testnet, Devnet, Localnet}
}

func (c Cluster) Identifier() string {
	switch c {
	case Mainnet:
		return "mainnet"
	case Testnet:
		return "testnet"
	case Devnet:
		return "devnet"
	case Localnet:
		return "localnet"
	default:
		return DefaultCluster.Identifier()
	}
}

// Chain returns the wallet-standard chain id, e.g. "solana:devnet".
func (c Cluster) Chain() string {
	return Namespace + ":" + c.Identifier()
}

func (c Cluster) Endpoint() string {
	switch c {
	case Mainnet:
		return MainnetEndpoint
	case Testnet:
		return TestnetEndpoint
	case Devnet:
		return DevnetEndpoint
	case Localnet:
		return LocalnetEndpoint
	default:
		return DefaultCluster.Endpoint()
	}
}

func (c Cluster) String() string {
	return c.Identifier()
}

// Endpoints resolves cluster RPC URLs, preferring configured overrides.
type Endpoints map[Cluster]string

func (e Endpoints) Resolve(c Cluster) string {
	if url := strings.TrimSpace(e[c]); url != "" {
		return url
	}
	return c.Endpoint()
}
