package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed ids.
// The version suffix leaves room for an algorithm change.
const (
	DomainSnapshot = "viewq/snapshot/v1"
	DomainQuery    = "viewq/query/v1"
	DomainMutation = "viewq/mutation/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SnapshotHash computes the content id of a store snapshot.
func SnapshotHash(snapshot Object) (string, error) {
	canonical, err := MarshalCanonical(snapshot)
	if err != nil {
		return "", fmt.Errorf("SnapshotHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSnapshot, canonical), nil
}

// QueryHash computes the content id of a serialized query. Callers pass the
// query's plain-data form (see query.Query.ToAny) so this package stays free
// of query types.
func QueryHash(queryData any) (string, error) {
	canonical, err := MarshalCanonical(queryData)
	if err != nil {
		return "", fmt.Errorf("QueryHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainQuery, canonical), nil
}

// MutationID computes the content id of one applied mutation. The sequence
// number keeps two identical mutations in one session distinct.
func MutationID(name string, params Object, seq int64) (string, error) {
	if params == nil {
		params = Object{}
	}
	obj := Object{
		"name":   String(name),
		"params": params,
		"seq":    Int(seq),
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("MutationID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainMutation, canonical), nil
}

// MustSnapshotHash is like SnapshotHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustSnapshotHash(snapshot Object) string {
	h, err := SnapshotHash(snapshot)
	if err != nil {
		panic(err)
	}
	return h
}
