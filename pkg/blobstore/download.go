package blobstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	apperrors "github.com/DeBrosOfficial/chainfiles/pkg/errors"
	"github.com/DeBrosOfficial/chainfiles/pkg/httputil"
	"github.com/DeBrosOfficial/chainfiles/pkg/logging"
	"go.uber.org/zap"
)

// DownloadInfo describes a completed download
type DownloadInfo struct {
	FileName    string
	ContentType string
	Bytes       int64
	Proxied     bool
}

// ResolveURL builds a fetchable gateway URL for a stored reference.
func (c *Client) ResolveURL(ref string) string {
	return GatewayURL(c.cfg.Gateway, ref)
}

// GatewayURL joins a gateway host and a reference into https://<host>/ipfs/<cid>.
func GatewayURL(gateway, ref string) string {
	base := strings.TrimSuffix(gateway, "/")
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}
	return base + "/ipfs/" + StripScheme(ref)
}

// DownloadURL returns the URL a download of ref is served from: the proxy, which forces
// an attachment disposition, or the gateway when no proxy is configured.
func (c *Client) DownloadURL(ref, name string) string {
	if !c.Proxied() {
		return c.ResolveURL(ref)
	}
	q := url.Values{}
	q.Set("hash", StripScheme(ref))
	if name != "" {
		q.Set("fileName", name)
	}
	return c.cfg.ProxyURL + ProxyDownloadPath + "?" + q.Encode()
}

// Download streams the blob behind ref into w.
func (c *Client) Download(ctx context.Context, ref, name string, w io.Writer) (*DownloadInfo, error) {
	target := c.DownloadURL(ref, name)

	c.logger.ComponentInfo(logging.ComponentBlobStore, "Downloading blob",
		zap.String("cid", StripScheme(ref)),
		zap.Bool("proxied", c.Proxied()),
	)

	resp, err := c.get(ctx, target)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to write content: %w", err)
	}

	info := &DownloadInfo{
		FileName:    name,
		ContentType: resp.Header.Get("Content-Type"),
		Bytes:       n,
		Proxied:     c.Proxied(),
	}
	if fn := httputil.AttachmentFileName(resp.Header.Get("Content-Disposition")); fn != "" {
		info.FileName = fn
	}
	if info.FileName == "" {
		info.FileName = "download"
	}
	return info, nil
}

// Fetch reads the whole blob behind ref from the gateway.
func (c *Client) Fetch(ctx context.Context, ref string) ([]byte, error) {
	resp, err := c.get(ctx, c.ResolveURL(ref))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}
	return data, nil
}

func (c *Client) get(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create get request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			return nil, apperrors.NewNotFoundError("content", target)
		}
		return nil, apperrors.NewServiceError("gateway", fmt.Sprintf("failed to fetch content: %s", failureReason(resp)), resp.StatusCode, nil)
	}
	return resp, nil
}
