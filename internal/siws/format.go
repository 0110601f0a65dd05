package siws

import "strings"

// Format renders the message that gets signed:
//
//	${domain} wants you to sign in with your Solana account:
//	${address}
//
//	${statement}
//
//	URI: ${uri}
//	Version: ${version}
//	Chain ID: ${chain-id}
//	Nonce: ${nonce}
//	Issued At: ${issued-at}
//	Expiration Time: ${expiration-time}
//	Not Before: ${not-before}
//	Request ID: ${request-id}
//	Resources:
//	- ${resources[0]}
//	- ${resources[n]}
//
// Absent fields produce no line at all. The header keeps its trailing space
// before the newline; verifiers rebuild this byte for byte.
func (r *Request) Format() string {
	var b strings.Builder
	if r.Domain != "" {
		b.WriteString(r.Domain)
		b.WriteString(" wants you to sign in with your Solana account: \n")
	}
	if r.Address != "" {
		b.WriteString(r.Address)
		b.WriteString("\n\n")
	}
	if r.Statement != "" {
		b.WriteString(r.Statement)
		b.WriteString("\n\n")
	}
	writeField(&b, "URI", r.URI)
	writeField(&b, "Version", r.Version)
	writeField(&b, "Chain ID", r.ChainID)
	writeField(&b, "Nonce", r.Nonce)
	writeField(&b, "Issued At", r.IssuedAt)
	writeField(&b, "Expiration Time", r.ExpirationTime)
	writeField(&b, "Not Before", r.NotBefore)
	writeField(&b, "Request ID", r.RequestID)
	if len(r.Resources) > 0 {
		b.WriteString("Resources:\n")
		for _, res := range r.Resources {
			b.WriteString("- ")
			b.WriteString(res)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func writeField(b *strings.Builder, key, value string) {
	if value == "" {
		return
	}
	b.WriteString(key)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteByte('\n')
}
