package ir

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainInvocation = "factory/invocation/v1"
	DomainContract   = "factory/contract/v1"
	DomainCode       = "factory/code/v1"
)

// AddressLength is the size in bytes of a canonical contract address.
const AddressLength = 20

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) []byte {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return h.Sum(nil)
}

// InvocationID computes the content-addressed ID of a logged invocation.
// The ID is stable across restarts given the same inputs.
func InvocationID(txToken, entry, contract string, msg []byte, seq int64) (string, error) {
	obj := map[string]any{
		"tx_token": txToken,
		"entry":    entry,
		"contract": contract,
		"msg":      string(msg),
		"seq":      seq,
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("InvocationID: failed to marshal: %w", err)
	}

	return hex.EncodeToString(hashWithDomain(DomainInvocation, canonical)), nil
}

// ContractAddress derives the canonical address of the instanceSeq-th
// contract the host creates from codeID. Distinct inputs give distinct
// addresses, which is what makes registry keys unique by construction.
func ContractAddress(codeID, instanceSeq uint64) []byte {
	var data [16]byte
	binary.BigEndian.PutUint64(data[:8], codeID)
	binary.BigEndian.PutUint64(data[8:], instanceSeq)
	return hashWithDomain(DomainContract, data[:])[:AddressLength]
}

// CodeHash computes the content hash reported for an uploaded program.
func CodeHash(code []byte) string {
	return hex.EncodeToString(hashWithDomain(DomainCode, code))
}

// MustInvocationID is like InvocationID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustInvocationID(txToken, entry, contract string, msg []byte, seq int64) string {
	id, err := InvocationID(txToken, entry, contract, msg, seq)
	if err != nil {
		panic(err)
	}
	return id
}
