package blobstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	apperrors "github.com/DeBrosOfficial/chainfiles/pkg/errors"
	"github.com/DeBrosOfficial/chainfiles/pkg/httputil"
	"github.com/DeBrosOfficial/chainfiles/pkg/logging"
	"go.uber.org/zap"
)

// Proxy endpoints served by cmd/proxy.
const (
	ProxyUploadPath   = "/api/pinata-upload"
	ProxyDownloadPath = "/api/ipfs-download"
	ProxyStatusPath   = "/api/pinata-status"
)

// Pinning API endpoints used in direct mode.
const (
	PinFilePath  = "/pinning/pinFileToIPFS"
	TestAuthPath = "/data/testAuthentication"
)

// Config holds configuration for the blob store client
type Config struct {
	// Gateway is the gateway host used to build fetch URLs, e.g. "gateway.pinata.cloud".
	// A value with a scheme ("http://127.0.0.1:8080") is used as-is.
	Gateway string

	// ProxyURL is the trusted proxy base URL. Empty selects direct mode.
	ProxyURL string

	// APIURL is the pinning API base, direct mode only. Defaults to https://api.pinata.cloud
	APIURL string

	// JWT authenticates direct-mode requests.
	JWT string

	// Timeout bounds each HTTP exchange. If zero, defaults to 2 minutes.
	Timeout time.Duration
}

// UploadResponse is the pinning service answer to a file pin
type UploadResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

type pinMetadata struct {
	Name      string            `json:"name"`
	KeyValues map[string]string `json:"keyvalues"`
}

type pinOptions struct {
	CIDVersion int `json:"cidVersion"`
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Client uploads blobs to the pinning service and reads them back from the gateway.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *logging.ColoredLogger
	now        func() time.Time
}

// NewClient creates a new blob store client
func NewClient(cfg Config, logger *logging.ColoredLogger) *Client {
	if cfg.APIURL == "" {
		cfg.APIURL = "https://api.pinata.cloud"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Minute
	}
	cfg.ProxyURL = strings.TrimSuffix(cfg.ProxyURL, "/")
	cfg.APIURL = strings.TrimSuffix(cfg.APIURL, "/")

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
		now:        time.Now,
	}
}

// Proxied reports whether requests go through the trusted proxy.
func (c *Client) Proxied() bool {
	return c.cfg.ProxyURL != ""
}

// UploadOption customizes a single upload
type UploadOption func(*uploadOptions)

type uploadOptions struct {
	uploadID string
}

// WithUploadID tags the pin with a correlation id so orphaned blobs can be traced.
func WithUploadID(id string) UploadOption {
	return func(o *uploadOptions) { o.uploadID = id }
}

// Upload pins data and returns its content identifier.
func (c *Client) Upload(ctx context.Context, data []byte, name, mediaType string, opts ...UploadOption) (string, error) {
	var o uploadOptions
	for _, opt := range opts {
		opt(&o)
	}

	endpoint := c.cfg.ProxyURL + ProxyUploadPath
	if !c.Proxied() {
		if c.cfg.JWT == "" {
			return "", apperrors.NewUploadFailedError("IPFS storage requires pinning API credentials", 0)
		}
		endpoint = c.cfg.APIURL + PinFilePath
	}

	body, contentType, err := c.buildUploadBody(data, name, mediaType, o)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if !c.Proxied() {
		req.Header.Set("Authorization", "Bearer "+c.cfg.JWT)
	}

	c.logger.ComponentInfo(logging.ComponentBlobStore, "Uploading blob",
		zap.String("name", name),
		zap.Int("size", len(data)),
		zap.Bool("proxied", c.Proxied()),
		zap.String("upload_id", o.uploadID),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		reason := failureReason(resp)
		c.logger.ComponentError(logging.ComponentBlobStore, "Blob upload rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("reason", reason),
		)
		return "", apperrors.NewUploadFailedError(reason, resp.StatusCode)
	}

	var result UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", apperrors.NewUploadFailedError(fmt.Sprintf("failed to decode upload response: %v", err), resp.StatusCode)
	}
	if result.IpfsHash == "" {
		return "", apperrors.NewUploadFailedError("upload response missing IpfsHash", resp.StatusCode)
	}

	c.logger.ComponentInfo(logging.ComponentBlobStore, "Blob pinned",
		zap.String("cid", result.IpfsHash),
		zap.String("upload_id", o.uploadID),
	)
	return result.IpfsHash, nil
}

func (c *Client) buildUploadBody(data []byte, name, mediaType string, o uploadOptions) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(name)))
	header.Set("Content-Type", mediaType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", fmt.Errorf("failed to copy data: %w", err)
	}

	meta := pinMetadata{
		Name: name,
		KeyValues: map[string]string{
			"uploadedAt": c.now().UTC().Format(time.RFC3339),
			"fileType":   mediaType,
			"fileSize":   fmt.Sprintf("%d", len(data)),
		},
	}
	if o.uploadID != "" {
		meta.KeyValues["uploadId"] = o.uploadID
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode pin metadata: %w", err)
	}
	if err := writer.WriteField("pinataMetadata", string(metaJSON)); err != nil {
		return nil, "", fmt.Errorf("failed to write pin metadata: %w", err)
	}

	optsJSON, _ := json.Marshal(pinOptions{CIDVersion: 1})
	if err := writer.WriteField("pinataOptions", string(optsJSON)); err != nil {
		return nil, "", fmt.Errorf("failed to write pin options: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close writer: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}

// failureReason surfaces the provider's error text when parseable, else the raw body,
// else the status line.
func failureReason(resp *http.Response) string {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(bytes.TrimSpace(raw)) == 0 {
		return httputil.StatusLine(resp.StatusCode)
	}

	var parsed map[string]any
	if err := json.Unmarshal(raw, &parsed); err == nil {
		switch v := parsed["error"].(type) {
		case string:
			if v != "" {
				return v
			}
		case map[string]any:
			// pinning API shape: {"error": {"reason": "...", "details": "..."}}
			if d, ok := v["details"].(string); ok && d != "" {
				return d
			}
			if r, ok := v["reason"].(string); ok && r != "" {
				return r
			}
		}
		if m, ok := parsed["message"].(string); ok && m != "" {
			return m
		}
	}

	return strings.TrimSpace(string(raw))
}

// TestConnection checks that the pinning credentials are accepted.
// Through the proxy this asks the proxy to check its own credentials.
func (c *Client) TestConnection(ctx context.Context) bool {
	endpoint := c.cfg.ProxyURL + ProxyStatusPath
	if !c.Proxied() {
		if c.cfg.JWT == "" {
			return false
		}
		endpoint = c.cfg.APIURL + TestAuthPath
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false
	}
	if !c.Proxied() {
		req.Header.Set("Authorization", "Bearer "+c.cfg.JWT)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ComponentWarn(logging.ComponentBlobStore, "Pinning connection test failed", zap.Error(err))
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return false
	}
	if !c.Proxied() {
		_, _ = io.Copy(io.Discard, resp.Body)
		return true
	}

	// the proxy always answers 200 and reports the upstream check in the body
	var status struct {
		Authenticated bool `json:"authenticated"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&status); err != nil {
		return false
	}
	return status.Authenticated
}
