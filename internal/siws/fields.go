package siws

import (
	"encoding/json"
	"strings"
)

// Fields is the untrusted sign-in input as sent by a dapp. A nil pointer
// means the field was not supplied.
type Fields struct {
	Domain         *string   `json:"domain,omitempty"`
	Address        *string   `json:"address,omitempty"`
	Statement      *string   `json:"statement,omitempty"`
	URI            *string   `json:"uri,omitempty"`
	Version        *string   `json:"version,omitempty"`
	ChainID        *string   `json:"chainId,omitempty"`
	Nonce          *string   `json:"nonce,omitempty"`
	IssuedAt       *string   `json:"issuedAt,omitempty"`
	ExpirationTime *string   `json:"expirationTime,omitempty"`
	NotBefore      *string   `json:"notBefore,omitempty"`
	RequestID      *string   `json:"requestId,omitempty"`
	Resources      Resources `json:"resources,omitempty"`
}

// Resources accepts either a JSON string array or a single newline
// separated string.
type Resources []string

func (r *Resources) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*r = list
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = strings.Split(raw, "\n")
	return nil
}
