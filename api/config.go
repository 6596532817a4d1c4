package api

import "time"

// Commitment is the finality level requested from the history service.
type Commitment string

// commitment levels understood by the service
const (
	CommitmentProcessed Commitment = "processed"
	CommitmentConfirmed Commitment = "confirmed"
	CommitmentFinalized Commitment = "finalized"
)

// client defaults
const (
	DefaultTimeout        = 10 * time.Second
	DefaultCommitment     = CommitmentFinalized
	DefaultSignatureLimit = 100

	// DefaultBaseURL is where a locally running history service listens.
	DefaultBaseURL = "http://localhost:8080"
)

// endpoint prefixes, relative to the base URL
const (
	blockPath       = "/block/"
	transactionPath = "/tx/"
	signaturesPath  = "/sigs/"
)

func (c Commitment) orDefault() Commitment {
	if c == "" {
		return DefaultCommitment
	}
	return c
}
