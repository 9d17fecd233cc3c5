// Package blobstoretest provides an in-memory pinning service and gateway for tests.
package blobstoretest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// Upload is one pin request received by the server
type Upload struct {
	FileName      string
	ContentType   string
	Data          []byte
	Metadata      string
	Options       string
	Authorization string
}

// Server speaks the pinning API (pinFileToIPFS, testAuthentication), the proxy
// endpoints and the gateway (/ipfs/<cid>) over one httptest server.
type Server struct {
	*httptest.Server

	mu      sync.Mutex
	blobs   map[string][]byte
	types   map[string]string
	uploads []Upload

	// FailUpload, when non-zero, makes every pin request answer with this status and FailBody.
	FailUpload int
	FailBody   string
	// JWT, when set, is required as a bearer token on pinning API calls.
	JWT string
}

// NewServer starts a fake pinning service.
func NewServer() *Server {
	s := &Server{
		blobs: make(map[string][]byte),
		types: make(map[string]string),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/pinning/pinFileToIPFS", s.handlePin)
	mux.HandleFunc("/api/pinata-upload", s.handlePin)
	mux.HandleFunc("/data/testAuthentication", s.handleTestAuth)
	mux.HandleFunc("/api/pinata-status", s.handleProxyStatus)
	mux.HandleFunc("/api/ipfs-download", s.handleProxyDownload)
	mux.HandleFunc("/ipfs/", s.handleGateway)
	s.Server = httptest.NewServer(mux)
	return s
}

// CIDFor returns the CIDv1 the server assigns to data.
func CIDFor(data []byte) string {
	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		panic(err)
	}
	return cid.NewCidV1(cid.DagProtobuf, mh).String()
}

// Uploads returns the pin requests received so far.
func (s *Server) Uploads() []Upload {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Upload, len(s.uploads))
	copy(out, s.uploads)
	return out
}

// Put stores a blob directly, bypassing the pin endpoint.
func (s *Server) Put(data []byte, contentType string) string {
	id := CIDFor(data)
	s.mu.Lock()
	s.blobs[id] = data
	s.types[id] = contentType
	s.mu.Unlock()
	return id
}

func (s *Server) authorized(r *http.Request) bool {
	if s.JWT == "" || strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	return r.Header.Get("Authorization") == "Bearer "+s.JWT
}

func (s *Server) handlePin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "Method not allowed"})
		return
	}
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": map[string]any{"reason": "INVALID_CREDENTIALS", "details": "Invalid API key"}})
		return
	}
	if s.FailUpload != 0 {
		w.WriteHeader(s.FailUpload)
		_, _ = io.WriteString(w, s.FailBody)
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	defer file.Close()
	data, _ := io.ReadAll(file)

	id := s.Put(data, header.Header.Get("Content-Type"))
	s.mu.Lock()
	s.uploads = append(s.uploads, Upload{
		FileName:      header.Filename,
		ContentType:   header.Header.Get("Content-Type"),
		Data:          data,
		Metadata:      r.FormValue("pinataMetadata"),
		Options:       r.FormValue("pinataOptions"),
		Authorization: r.Header.Get("Authorization"),
	})
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"IpfsHash":  id,
		"PinSize":   len(data),
		"Timestamp": "2026-01-01T00:00:00Z",
	})
}

func (s *Server) handleTestAuth(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Congratulations! You are communicating with the Pinata API!"})
}

func (s *Server) handleProxyStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"authenticated": s.FailUpload == 0})
}

func (s *Server) lookup(id string) ([]byte, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[id]
	return data, s.types[id], ok
}

func (s *Server) handleGateway(w http.ResponseWriter, r *http.Request) {
	data, ct, ok := s.lookup(strings.TrimPrefix(r.URL.Path, "/ipfs/"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	_, _ = w.Write(data)
}

func (s *Server) handleProxyDownload(w http.ResponseWriter, r *http.Request) {
	data, ct, ok := s.lookup(r.URL.Query().Get("hash"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "Failed to fetch from IPFS"})
		return
	}
	name := r.URL.Query().Get("fileName")
	if name == "" {
		name = "download"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
