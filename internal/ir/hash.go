package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content digests.
// Version suffix enables future algorithm migration.
const (
	DomainMapping = "rxnmap/mapping/v1"
	DomainRuleSet = "rxnmap/ruleset/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// RuleSetDigest computes the content address of a rule set.
// Equal sets always produce equal digests regardless of construction order.
func RuleSetDigest(rs RuleSet) (string, error) {
	canonical, err := MarshalCanonical(rs.IRValue())
	if err != nil {
		return "", fmt.Errorf("RuleSetDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainRuleSet, canonical), nil
}

// MustRuleSetDigest is like RuleSetDigest but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustRuleSetDigest(rs RuleSet) string {
	d, err := RuleSetDigest(rs)
	if err != nil {
		panic(err)
	}
	return d
}
