package util

import (
	"strings"

	"github.com/google/uuid"
)

// Name prefixes for generated resources.
const (
	NetworkPrefix = "bns-nw-"
	RouterPrefix  = "bns-router-"
	NodePrefix    = "bns-node-"
	DebugSuffix   = "-debug"
)

func hexUUID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// Nonce returns 8 random hex characters. Good enough to avoid name clashes
// between concurrent invocations, not a collision-proof allocator.
func Nonce() string {
	h := hexUUID()
	return h[len(h)-8:]
}

// GenerateName appends a nonce to prefix.
func GenerateName(prefix string) string {
	return prefix + Nonce()
}

// GenerateKey returns a 64 hex character secret built from two random UUIDs.
func GenerateKey() string {
	return hexUUID() + hexUUID()
}
