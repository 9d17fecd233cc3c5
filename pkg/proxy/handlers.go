package proxy

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/DeBrosOfficial/chainfiles/pkg/blobstore"
	apperrors "github.com/DeBrosOfficial/chainfiles/pkg/errors"
	"github.com/DeBrosOfficial/chainfiles/pkg/httputil"
	"github.com/DeBrosOfficial/chainfiles/pkg/logging"
	"go.uber.org/zap"
)

// handleUpload forwards a multipart pin request to the pinning API with the server credential.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if !httputil.CheckMethod(w, r, http.MethodPost) {
		return
	}
	if s.cfg.PinataJWT == "" {
		httputil.WriteError(w, http.StatusInternalServerError, "Pinata JWT not configured")
		return
	}
	if !httputil.IsMultipart(r) {
		httputil.WriteError(w, http.StatusBadRequest, "Invalid request format. Content-Type must be multipart/form-data")
		return
	}
	if r.ContentLength > s.cfg.MaxUploadBytes {
		apperrors.WriteHTTPError(w, apperrors.NewSizeExceededError(r.ContentLength, s.cfg.MaxUploadBytes))
		return
	}

	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, s.cfg.PinataAPIURL+blobstore.PinFilePath, body)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	req.ContentLength = r.ContentLength
	req.Header.Set("Content-Type", r.Header.Get("Content-Type"))
	req.Header.Set("Authorization", "Bearer "+s.cfg.PinataJWT)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apperrors.WriteHTTPError(w, apperrors.NewSizeExceededError(r.ContentLength, tooLarge.Limit))
			return
		}
		s.logger.ComponentError(logging.ComponentProxy, "Pinata upload failed", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		httputil.WriteError(w, http.StatusBadGateway, "failed to read pinning response")
		return
	}

	var data json.RawMessage
	if err := json.Unmarshal(raw, &data); err != nil {
		// relay non-JSON upstream bodies as an error message
		msg := string(bytes.TrimSpace(raw))
		if msg == "" {
			msg = httputil.StatusLine(resp.StatusCode)
		}
		data, _ = json.Marshal(map[string]string{"error": msg})
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.logger.ComponentWarn(logging.ComponentProxy, "Pinata API error",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", data),
		)
	} else {
		s.logger.ComponentInfo(logging.ComponentProxy, "File pinned", zap.ByteString("response", data))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(data)
}

// handleDownload fetches a blob from the gateway and serves it as an attachment.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if !httputil.CheckMethod(w, r, http.MethodGet) {
		return
	}
	hash := httputil.QueryParam(r, "hash", "")
	if !httputil.RequireNotEmpty(w, hash, "IPFS hash is required") {
		return
	}
	hash = blobstore.StripScheme(hash)
	if !httputil.ValidateCID(hash) {
		httputil.WriteError(w, http.StatusBadRequest, "invalid IPFS hash")
		return
	}
	fileName := httputil.QueryParam(r, "fileName", "download")

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, blobstore.GatewayURL(s.cfg.Gateway, hash), nil)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.ComponentError(logging.ComponentProxy, "IPFS download error", zap.String("cid", hash), zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.ComponentWarn(logging.ComponentProxy, "IPFS fetch failed", zap.String("cid", hash), zap.Int("status", resp.StatusCode))
		httputil.WriteError(w, resp.StatusCode, "Failed to fetch from IPFS")
		return
	}

	httputil.SetAttachment(w, fileName, resp.Header.Get("Content-Type"))
	if resp.ContentLength >= 0 {
		w.Header().Set("Content-Length", resp.Header.Get("Content-Length"))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, resp.Body); err != nil {
		s.logger.ComponentWarn(logging.ComponentProxy, "Download interrupted", zap.String("cid", hash), zap.Error(err))
	}
}

// handleStatus checks the proxy's own pinning credential. It always answers 200; the
// outcome is the authenticated field, with error set when it is false.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !httputil.CheckMethod(w, r, http.MethodGet) {
		return
	}
	if err := s.checkCredential(r); err != nil {
		s.logger.ComponentWarn(logging.ComponentProxy, "Pinning credential check failed", zap.Error(err))
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"authenticated": false, "error": err.Error()})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"authenticated": true})
}

func (s *Server) checkCredential(r *http.Request) error {
	if s.cfg.PinataJWT == "" {
		return errors.New("Pinata JWT not configured")
	}
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, s.cfg.PinataAPIURL+blobstore.TestAuthPath, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.PinataJWT)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return errors.New(httputil.StatusLine(resp.StatusCode))
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"jwt_configured": s.cfg.PinataJWT != "",
	})
}
