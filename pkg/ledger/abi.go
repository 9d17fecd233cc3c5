package ledger

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// RegistryABI is the interface of the deployed file registry contract.
const RegistryABI = `[
	{"anonymous":false,"inputs":[
		{"indexed":true,"internalType":"uint256","name":"fileId","type":"uint256"},
		{"indexed":true,"internalType":"address","name":"uploader","type":"address"},
		{"indexed":false,"internalType":"string","name":"fileName","type":"string"},
		{"indexed":false,"internalType":"uint256","name":"timestamp","type":"uint256"}
	],"name":"FileUploaded","type":"event"},
	{"anonymous":false,"inputs":[
		{"indexed":true,"internalType":"uint256","name":"fileId","type":"uint256"},
		{"indexed":true,"internalType":"address","name":"retriever","type":"address"},
		{"indexed":false,"internalType":"uint256","name":"timestamp","type":"uint256"}
	],"name":"FileRetrieved","type":"event"},
	{"inputs":[
		{"internalType":"string","name":"_fileName","type":"string"},
		{"internalType":"string","name":"_fileContent","type":"string"},
		{"internalType":"string","name":"_fileType","type":"string"},
		{"internalType":"uint256","name":"_fileSize","type":"uint256"}
	],"name":"uploadFile","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"internalType":"uint256","name":"_fileId","type":"uint256"}],"name":"getFile","outputs":[
		{"internalType":"string","name":"fileName","type":"string"},
		{"internalType":"string","name":"fileContent","type":"string"},
		{"internalType":"string","name":"fileType","type":"string"},
		{"internalType":"uint256","name":"fileSize","type":"uint256"},
		{"internalType":"address","name":"uploader","type":"address"},
		{"internalType":"uint256","name":"timestamp","type":"uint256"}
	],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"internalType":"uint256","name":"","type":"uint256"}],"name":"files","outputs":[
		{"internalType":"uint256","name":"id","type":"uint256"},
		{"internalType":"string","name":"fileName","type":"string"},
		{"internalType":"string","name":"fileContent","type":"string"},
		{"internalType":"string","name":"fileType","type":"string"},
		{"internalType":"uint256","name":"fileSize","type":"uint256"},
		{"internalType":"address","name":"uploader","type":"address"},
		{"internalType":"uint256","name":"timestamp","type":"uint256"}
	],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"uint256","name":"_fileId","type":"uint256"}],"name":"getFileMetadata","outputs":[
		{"internalType":"string","name":"fileName","type":"string"},
		{"internalType":"string","name":"fileType","type":"string"},
		{"internalType":"uint256","name":"fileSize","type":"uint256"},
		{"internalType":"address","name":"uploader","type":"address"},
		{"internalType":"uint256","name":"timestamp","type":"uint256"}
	],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"getMyFiles","outputs":[{"internalType":"uint256[]","name":"","type":"uint256[]"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"address","name":"_user","type":"address"}],"name":"getUserFiles","outputs":[{"internalType":"uint256[]","name":"","type":"uint256[]"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"getFileCount","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

// Contract methods and events
const (
	MethodUploadFile      = "uploadFile"
	MethodGetFile         = "getFile"
	MethodFiles           = "files"
	MethodGetFileMetadata = "getFileMetadata"
	MethodGetMyFiles      = "getMyFiles"
	MethodGetUserFiles    = "getUserFiles"
	MethodGetFileCount    = "getFileCount"

	EventFileUploaded  = "FileUploaded"
	EventFileRetrieved = "FileRetrieved"
)

var registryABI = mustParseABI(RegistryABI)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic("ledger: invalid registry ABI: " + err.Error())
	}
	return parsed
}

// ABI returns the parsed registry interface.
func ABI() abi.ABI {
	return registryABI
}
