package ledger

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// FileRecord is one registry entry. Content is either base64 data or ipfs://<cid>.
type FileRecord struct {
	ID        uint64
	Name      string
	Content   string
	MediaType string
	Size      uint64
	Uploader  common.Address
	Timestamp time.Time
}

// FileMetadata is a registry entry without its content
type FileMetadata struct {
	ID        uint64
	Name      string
	MediaType string
	Size      uint64
	Uploader  common.Address
	Timestamp time.Time
}

// Registration is the outcome of a successful uploadFile transaction
type Registration struct {
	ID     uint64
	TxHash common.Hash
	// IDFromCount is set when the id was read from getFileCount because the
	// FileUploaded log could not be parsed. Such ids are not reliable under
	// concurrent registrations.
	IDFromCount bool
	GasUsed     uint64
}

// FileUploaded is the decoded registration event
type FileUploaded struct {
	FileId    *big.Int
	Uploader  common.Address
	FileName  string
	Timestamp *big.Int
	Raw       types.Log
}

// FileRetrieved is the decoded retrieval event
type FileRetrieved struct {
	FileId    *big.Int
	Retriever common.Address
	Timestamp *big.Int
	Raw       types.Log
}
