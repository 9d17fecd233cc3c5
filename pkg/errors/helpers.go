package errors

import "errors"

// IsNotFound checks if an error indicates a resource was not found.
func IsNotFound(err error) bool {
	var notFoundErr *NotFoundError
	return errors.As(err, &notFoundErr) || errors.Is(err, ErrNotFound)
}

// IsValidation checks if an error is a validation error.
func IsValidation(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

// IsWalletUnavailable checks if an error means there is no usable wallet.
func IsWalletUnavailable(err error) bool {
	var e *WalletUnavailableError
	return errors.As(err, &e)
}

// IsWalletRejected checks if the user declined a wallet request.
func IsWalletRejected(err error) bool {
	var e *WalletRejectedError
	return errors.As(err, &e)
}

// IsNetworkMismatch checks if the wallet refused to switch networks.
func IsNetworkMismatch(err error) bool {
	var e *NetworkMismatchError
	return errors.As(err, &e)
}

// IsInsufficientFunds checks if gas could not be paid.
func IsInsufficientFunds(err error) bool {
	var e *InsufficientFundsError
	return errors.As(err, &e)
}

// IsRegistrationFailed checks if the registry call failed.
func IsRegistrationFailed(err error) bool {
	var e *RegistrationFailedError
	return errors.As(err, &e)
}

// IsUploadFailed checks if the blob store rejected an upload.
func IsUploadFailed(err error) bool {
	var e *UploadFailedError
	return errors.As(err, &e)
}

// IsSizeExceeded checks if a file was rejected for size.
func IsSizeExceeded(err error) bool {
	var e *SizeExceededError
	return errors.As(err, &e)
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) string {
	if err == nil {
		return CodeOK
	}

	var customErr Error
	if errors.As(err, &customErr) {
		return customErr.Code()
	}

	return CodeUnknown
}

// GetErrorMessage extracts a user-facing message from an error.
func GetErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var customErr Error
	if errors.As(err, &customErr) {
		return customErr.Message()
	}

	return err.Error()
}

// StackTraceOf returns the stack captured where the first typed error in err's chain
// was created, or "" for untyped errors.
func StackTraceOf(err error) string {
	var traced interface{ StackTrace() string }
	if errors.As(err, &traced) {
		return traced.StackTrace()
	}
	return ""
}
