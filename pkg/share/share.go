// Package share builds and reads share links. The file id in a link is only base64
// encoded: anyone with the link, or the id, can read the file.
package share

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/skip2/go-qrcode"
)

// Param is the query parameter holding the encoded file id.
const Param = "share"

// ErrNoToken is returned by ParseLink when the URL has no share parameter.
var ErrNoToken = errors.New("link has no share parameter")

// Token encodes a file id for a share link.
func Token(id uint64) string {
	return base64.StdEncoding.EncodeToString([]byte(strconv.FormatUint(id, 10)))
}

// Link returns base with the query replaced by ?share=<token>.
func Link(base string, id uint64) string {
	if i := strings.IndexAny(base, "?#"); i >= 0 {
		base = base[:i]
	}
	return base + "?" + Param + "=" + Token(id)
}

// DecodeToken reads a file id back from a share token.
func DecodeToken(tok string) (uint64, error) {
	tok = strings.TrimSpace(tok)
	raw, err := base64.StdEncoding.DecodeString(tok)
	if err != nil {
		// tolerate tokens whose padding was dropped in transit
		if raw, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(tok, "=")); err != nil {
			return 0, fmt.Errorf("invalid share token: %w", err)
		}
	}
	id, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid share token: %q is not a file id", raw)
	}
	return id, nil
}

// ParseLink extracts the file id from a share link. A bare token is accepted too.
func ParseLink(link string) (uint64, error) {
	if !strings.Contains(link, "?") && !strings.Contains(link, "://") {
		return DecodeToken(link)
	}
	u, err := url.Parse(link)
	if err != nil {
		return 0, fmt.Errorf("invalid share link: %w", err)
	}
	q, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return 0, fmt.Errorf("invalid share link: %w", err)
	}
	tok := q.Get(Param)
	if tok == "" {
		return 0, ErrNoToken
	}
	// an unescaped '+' in the token arrives as a space
	return DecodeToken(strings.ReplaceAll(tok, " ", "+"))
}

// QR renders link as a QR code made of terminal block characters.
func QR(link string) (string, error) {
	code, err := qrcode.New(link, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("failed to encode QR code: %w", err)
	}
	return code.ToSmallString(false), nil
}

// QRPNG renders link as a PNG image of size pixels.
func QRPNG(link string, size int) ([]byte, error) {
	png, err := qrcode.Encode(link, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}
	return png, nil
}
