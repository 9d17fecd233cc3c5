package upload

// StorageDecision is where a file's bytes go
type StorageDecision int

const (
	// Inline stores the bytes base64-encoded inside the registry record.
	Inline StorageDecision = iota
	// BlobStore pins the bytes and stores only the content identifier.
	BlobStore
	// Rejected files are too large to store at all.
	Rejected
)

func (d StorageDecision) String() string {
	switch d {
	case Inline:
		return "on-chain"
	case BlobStore:
		return "ipfs"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Limits are the two size thresholds, in bytes
type Limits struct {
	Inline int64
	Blob   int64
}

// Classify decides storage by size: up to Inline bytes on chain, up to Blob bytes
// in the blob store, anything larger is rejected.
func Classify(size int64, limits Limits) StorageDecision {
	switch {
	case size <= limits.Inline:
		return Inline
	case size <= limits.Blob:
		return BlobStore
	default:
		return Rejected
	}
}
