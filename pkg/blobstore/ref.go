package blobstore

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Scheme is the prefix written in front of a content identifier when it is stored in the registry.
const Scheme = "ipfs://"

// contentIDPrefixes are sniffed to tell a stored reference from inline data:
// CIDv0 (base58 sha2-256), CIDv1 base32 dag-pb, and the explicit scheme. Raw-leaf CIDv1
// ("bafk") is deliberately absent: existing inline records may start with it, and uploads
// always store the scheme form anyway.
var contentIDPrefixes = []string{"Qm", "bafy", Scheme}

// IsContentID classifies s as a content identifier by prefix. This is a heuristic,
// not a parser: inline base64 that happens to start with one of the prefixes is misread.
// Records already on chain rely on exactly this rule, so it must not change.
func IsContentID(s string) bool {
	for _, p := range contentIDPrefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// StripScheme removes the ipfs:// prefix if present.
func StripScheme(ref string) string {
	return strings.TrimPrefix(ref, Scheme)
}

// RefKind tells how a file's bytes are held
type RefKind int

const (
	// RefInline means the bytes live base64-encoded inside the registry record.
	RefInline RefKind = iota
	// RefRemote means the registry record holds a content identifier.
	RefRemote
)

func (k RefKind) String() string {
	switch k {
	case RefInline:
		return "inline"
	case RefRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// Ref is the content reference of a registry record: either inline bytes or a remote CID.
type Ref struct {
	Kind   RefKind
	Inline []byte
	CID    string
}

// InlineRef wraps bytes stored directly in the record
func InlineRef(data []byte) Ref {
	return Ref{Kind: RefInline, Inline: data}
}

// RemoteRef wraps a content identifier returned by the blob store
func RemoteRef(cid string) Ref {
	return Ref{Kind: RefRemote, CID: StripScheme(cid)}
}

// Encode renders the reference in its on-chain form.
func (r Ref) Encode() string {
	if r.Kind == RefRemote {
		return Scheme + r.CID
	}
	return base64.StdEncoding.EncodeToString(r.Inline)
}

// ParseRef reads an on-chain content string using the IsContentID rule.
func ParseRef(s string) (Ref, error) {
	if IsContentID(s) {
		return RemoteRef(s), nil
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return Ref{}, fmt.Errorf("inline content is not valid base64: %w", err)
	}
	return InlineRef(data), nil
}
