package errors

// Error codes for categorizing errors.
const (
	CodeOK       = "OK"
	CodeUnknown  = "UNKNOWN"
	CodeInternal = "INTERNAL"

	// CodeValidation indicates input validation failed.
	CodeValidation = "VALIDATION_ERROR"

	// CodeNotFound indicates a resource was not found.
	CodeNotFound = "NOT_FOUND"

	// CodeRateLimit indicates rate limit was exceeded.
	CodeRateLimit = "RATE_LIMIT_EXCEEDED"

	// CodeServiceUnavailable indicates a downstream service is unavailable.
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"

	// CodeConfigError indicates a configuration problem.
	CodeConfigError = "CONFIG_ERROR"

	// Wallet and chain codes

	// CodeWalletUnavailable indicates no wallet capability is present or connected.
	CodeWalletUnavailable = "WALLET_UNAVAILABLE"

	// CodeWalletRejected indicates the user declined a connection or signature request.
	CodeWalletRejected = "WALLET_REJECTED"

	// CodeNetworkMismatch indicates the wallet refused to move to the target network.
	CodeNetworkMismatch = "NETWORK_MISMATCH"

	// CodeInsufficientFunds indicates the account cannot pay for gas.
	CodeInsufficientFunds = "INSUFFICIENT_FUNDS"

	// CodeRegistrationFailed indicates the registry call reverted or was not confirmed.
	CodeRegistrationFailed = "REGISTRATION_FAILED"

	// Storage codes

	// CodeUploadFailed indicates the pinning proxy or gateway answered with a non-success status.
	CodeUploadFailed = "UPLOAD_FAILED"

	// CodeSizeExceeded indicates a file is larger than the configured maximum.
	CodeSizeExceeded = "SIZE_EXCEEDED"
)
