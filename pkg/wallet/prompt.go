package wallet

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/term"
)

// readPassword is swapped out in tests to avoid touching the terminal.
var readPassword = term.ReadPassword

// isTerminal is swapped out in tests.
var isTerminal = term.IsTerminal

// TerminalPrompt reads account passphrases from the terminal without echo.
// An empty passphrase declines the request.
func TerminalPrompt(in *os.File, out io.Writer) PassphraseFunc {
	return func(account common.Address) (string, error) {
		return readSecret(in, out, fmt.Sprintf("Passphrase for %s (empty to cancel): ", FormatAddress(account)))
	}
}

// ReadNewPassphrase asks for a passphrase twice, for encrypting a new key.
func ReadNewPassphrase(in *os.File, out io.Writer) (string, error) {
	first, err := readSecret(in, out, "New passphrase: ")
	if err != nil {
		return "", err
	}
	second, err := readSecret(in, out, "Repeat passphrase: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errors.New("passphrases do not match")
	}
	return first, nil
}

func readSecret(in *os.File, out io.Writer, label string) (string, error) {
	fd := int(in.Fd())
	if !isTerminal(fd) {
		return "", errors.New("cannot ask for a passphrase: stdin is not a terminal")
	}
	fmt.Fprint(out, label)
	pw, err := readPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	passphrase := strings.TrimRight(string(pw), "\r\n")
	if passphrase == "" {
		return "", ErrUserRejected
	}
	return passphrase, nil
}

// StaticPassphrase always answers with the same passphrase, e.g. from an environment variable.
func StaticPassphrase(passphrase string) PassphraseFunc {
	return func(common.Address) (string, error) {
		if passphrase == "" {
			return "", ErrUserRejected
		}
		return passphrase, nil
	}
}
