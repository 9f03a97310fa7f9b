package provider

import "errors"

// Sentinel errors for provider operations.
var (
	// ErrRateLimit indicates the provider returned a rate limit response.
	ErrRateLimit = errors.New("provider rate limited")

	// ErrProviderDown indicates the provider is temporarily unavailable.
	ErrProviderDown = errors.New("provider unavailable")

	// ErrAuthentication indicates the provider rejected the credentials.
	// Never retried: a bad key stays bad.
	ErrAuthentication = errors.New("provider authentication failed")

	// ErrEmptyCompletion indicates the provider returned no text.
	ErrEmptyCompletion = errors.New("empty completion")

	// ErrAllProviders indicates every provider in the chain has been exhausted.
	ErrAllProviders = errors.New("all providers failed")
)

// IsRetryable reports whether the error is transient and the request can
// be retried against the next provider in the chain. Empty completions
// count as retryable: another provider may produce usable text.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimit) ||
		errors.Is(err, ErrProviderDown) ||
		errors.Is(err, ErrEmptyCompletion)
}
