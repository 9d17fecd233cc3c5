package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ValidationError represents a single validation error with context.
type ValidationError struct {
	Path    string // e.g., "storage.inline_limit"
	Message string
	Hint    string
}

func (e ValidationError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s; %s", e.Path, e.Message, e.Hint)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Validate checks the whole config and returns every problem at once.
func (c *Config) Validate() []error {
	var errs []error
	errs = append(errs, c.validateContract()...)
	errs = append(errs, c.validateNetwork()...)
	errs = append(errs, c.validateStorage()...)
	errs = append(errs, c.validatePinning()...)
	return errs
}

func (c *Config) validateContract() []error {
	if !common.IsHexAddress(c.Contract.Address) {
		return []error{ValidationError{
			Path:    "contract.address",
			Message: fmt.Sprintf("invalid address %q", c.Contract.Address),
			Hint:    "expected 0x followed by 40 hex characters",
		}}
	}
	return nil
}

func (c *Config) validateNetwork() []error {
	var errs []error
	nc := c.Network

	if nc.ChainID == 0 {
		errs = append(errs, ValidationError{Path: "network.chain_id", Message: "must be > 0"})
	}
	if strings.TrimSpace(nc.Name) == "" {
		errs = append(errs, ValidationError{Path: "network.name", Message: "must not be empty"})
	}
	if len(nc.RPCURLs) == 0 {
		errs = append(errs, ValidationError{Path: "network.rpc_urls", Message: "must not be empty"})
	}
	for i, raw := range nc.RPCURLs {
		if err := validateURL(raw); err != nil {
			errs = append(errs, ValidationError{
				Path:    fmt.Sprintf("network.rpc_urls[%d]", i),
				Message: err.Error(),
			})
		}
	}
	return errs
}

func (c *Config) validateStorage() []error {
	var errs []error
	sc := c.Storage

	if sc.InlineLimit < 0 {
		errs = append(errs, ValidationError{
			Path:    "storage.inline_limit",
			Message: fmt.Sprintf("must be >= 0; got %d", sc.InlineLimit),
		})
	}
	if sc.BlobLimit < sc.InlineLimit {
		errs = append(errs, ValidationError{
			Path:    "storage.blob_limit",
			Message: fmt.Sprintf("must be >= inline_limit (%d); got %d", sc.InlineLimit, sc.BlobLimit),
		})
	}
	return errs
}

func (c *Config) validatePinning() []error {
	var errs []error
	pc := c.Pinning

	if strings.TrimSpace(pc.Gateway) == "" {
		errs = append(errs, ValidationError{Path: "pinning.gateway", Message: "must not be empty"})
	}
	if pc.ProxyURL != "" {
		if err := validateURL(pc.ProxyURL); err != nil {
			errs = append(errs, ValidationError{Path: "pinning.proxy_url", Message: err.Error()})
		}
	} else if pc.JWT == "" {
		errs = append(errs, ValidationError{
			Path:    "pinning.jwt",
			Message: "required when pinning.proxy_url is empty",
			Hint:    "set CHAINFILES_PINATA_JWT or configure a proxy",
		})
	}
	return errs
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %v", raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid URL %q: scheme and host required", raw)
	}
	return nil
}
