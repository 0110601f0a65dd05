package chain

import "strings"

// Commitment is the finality level of a query or transaction.
type Commitment uint8

const (
	Finalized Commitment = iota
	Confirmed
	Processed
)

// DefaultCommitment is the zero value.
const DefaultCommitment = Finalized

// ParseCommitment maps deprecated names onto supported levels: "recent" is
// processed, "single"/"singleGossip" are confirmed and "root"/"max" are
// finalized. Anything else yields DefaultCommitment.
func ParseCommitment(raw string) Commitment {
	switch strings.TrimSpace(raw) {
	case "processed", "recent":
		return Processed
	case "confirmed", "single", "singleGossip":
		return Confirmed
	case "finalized", "root", "max":
		return Finalized
	default:
		return DefaultCommitment
	}
}

func (c Commitment) String() string {
	switch c {
	case Processed:
		return "processed"
	case Confirmed:
		return "confirmed"
	default:
		return "finalized"
	}
}
