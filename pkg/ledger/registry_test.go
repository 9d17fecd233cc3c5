package ledger

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

func TestParseFileUploaded(t *testing.T) {
	ev, err := ParseFileUploaded(*uploadedLog(t, 17, "photo.jpg"))
	if err != nil {
		t.Fatalf("ParseFileUploaded: %v", err)
	}
	if ev.FileId.Int64() != 17 || ev.Uploader != uploader || ev.FileName != "photo.jpg" || ev.Timestamp.Int64() != 1700000000 {
		t.Errorf("event = %+v", ev)
	}
}

func TestParseFileRetrieved(t *testing.T) {
	abiEv := registryABI.Events[EventFileRetrieved]
	data, err := abiEv.Inputs.NonIndexed().Pack(big.NewInt(1700000100))
	if err != nil {
		t.Fatal(err)
	}
	log := types.Log{
		Topics: []common.Hash{abiEv.ID, common.BigToHash(big.NewInt(5)), common.BytesToHash(uploader.Bytes())},
		Data:   data,
	}
	ev, err := ParseFileRetrieved(log)
	if err != nil {
		t.Fatalf("ParseFileRetrieved: %v", err)
	}
	if ev.FileId.Int64() != 5 || ev.Retriever != uploader {
		t.Errorf("event = %+v", ev)
	}

	if _, err := ParseFileUploaded(log); err == nil {
		t.Error("a FileRetrieved log is not a FileUploaded event")
	}
}

func TestFindFileUploaded(t *testing.T) {
	if _, err := FindFileUploaded(nil); err == nil {
		t.Error("expected error for empty logs")
	}

	bad := uploadedLog(t, 1, "x")
	bad.Data = []byte{0x01}
	if _, err := FindFileUploaded([]*types.Log{bad}); err == nil {
		t.Error("expected error for corrupt data")
	}

	ev, err := FindFileUploaded([]*types.Log{nil, bad, uploadedLog(t, 8, "y")})
	if err != nil || ev.FileId.Int64() != 8 {
		t.Errorf("FindFileUploaded = %+v, %v", ev, err)
	}
}

func TestABIMethods(t *testing.T) {
	parsed := ABI()
	for _, m := range []string{MethodUploadFile, MethodGetFile, MethodFiles, MethodGetFileMetadata, MethodGetMyFiles, MethodGetUserFiles, MethodGetFileCount} {
		if _, ok := parsed.Methods[m]; !ok {
			t.Errorf("method %s missing", m)
		}
	}
	if _, err := parsed.Pack(MethodUploadFile, "a", "b", "c", big.NewInt(1)); err != nil {
		t.Errorf("pack uploadFile: %v", err)
	}
}
