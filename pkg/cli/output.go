package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	apperrors "github.com/DeBrosOfficial/chainfiles/pkg/errors"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)

func walletUnavailable(cause error) error {
	return fmt.Errorf("%w: %v", apperrors.NewWalletUnavailableError(""), cause)
}

// formatFileSize renders a byte count as Bytes, KB or MB with up to two decimals.
func formatFileSize(n int64) string {
	if n <= 0 {
		return "0 Bytes"
	}
	sizes := []string{"Bytes", "KB", "MB"}
	i := int(math.Floor(math.Log(float64(n)) / math.Log(1024)))
	if i >= len(sizes) {
		i = len(sizes) - 1
	}
	v := math.Round(float64(n)/math.Pow(1024, float64(i))*100) / 100
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + sizes[i]
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func printJSON(w io.Writer, data interface{}) error {
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

func renderTable(w io.Writer, headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers(headers...).
		Rows(rows...)
	fmt.Fprintln(w, t.Render())
}

// userMessage turns a failure into the text shown in the error banner.
func userMessage(action string, err error) string {
	switch {
	case apperrors.IsWalletRejected(err):
		var e *apperrors.WalletRejectedError
		if apperrors.As(err, &e) && e.Action == "connection request" {
			return "Wallet connection rejected by user"
		}
		return "Transaction rejected by user"
	case apperrors.IsInsufficientFunds(err):
		return "Insufficient funds for gas"
	case apperrors.IsSizeExceeded(err):
		var e *apperrors.SizeExceededError
		apperrors.As(err, &e)
		return fmt.Sprintf("File too large! Maximum size is %s", formatFileSize(e.Limit))
	case apperrors.IsUploadFailed(err):
		var e *apperrors.UploadFailedError
		apperrors.As(err, &e)
		return "IPFS upload failed: " + e.Reason
	case apperrors.IsWalletUnavailable(err):
		return "Please connect your wallet first: " + apperrors.GetErrorMessage(err)
	case apperrors.IsNetworkMismatch(err):
		return "Please switch your wallet network: " + apperrors.GetErrorMessage(err)
	}
	if action == "" {
		return err.Error()
	}
	return action + ": " + err.Error()
}

func shortHash(h string) string {
	if len(h) <= 12 {
		return h
	}
	return h[:12] + "..."
}
