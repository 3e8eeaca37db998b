// Package receipt maintains the append-only, hash-chained audit log of
// enforcement decisions, and verifies its integrity.
//
// Receipts are grouped into one JSONL file per UTC calendar day. Each
// day-file carries its own hash chain, starting from the genesis
// sentinel; within a file, every record's prev_hash is the hash of the
// record before it. A record's own hash is the SHA-256 digest of its
// canonical JSON with the hash field omitted, so writer and verifier
// can derive it independently.
package receipt

import (
	"github.com/RazorglintLabs/command-guardian/internal/canonical"
	"github.com/RazorglintLabs/command-guardian/internal/classify"
	"github.com/RazorglintLabs/command-guardian/internal/policy"
)

// GenesisHash is the prev_hash of the first receipt in a day-file.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// Receipt is one immutable audit record. TokenID and ExpiresAt are nil
// unless the run was token-authorized; they serialize as JSON null so
// the canonical form is identical whether read back or freshly built.
type Receipt struct {
	Timestamp string  `json:"ts"`
	Intent    string  `json:"intent"`
	Command   string  `json:"command"`
	Decision  string  `json:"decision"`
	Reason    string  `json:"reason"`
	TokenID   *string `json:"token_id"`
	ExpiresAt *string `json:"expires_at"`
	PrevHash  string  `json:"prev_hash"`
	Hash      string  `json:"hash,omitempty"`
}

// Entry is the caller-supplied portion of a receipt. TokenID and
// ExpiresAt are empty unless a token authorized the run.
type Entry struct {
	Intent    classify.Intent
	Command   string
	Decision  policy.Decision
	Reason    string
	TokenID   string
	ExpiresAt string
}

// ComputeHash returns the digest over every field of r except Hash.
func ComputeHash(r Receipt) (string, error) {
	r.Hash = ""
	return canonical.Hash(r)
}
