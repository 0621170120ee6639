package core

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingConfig is returned when a required endpoint or credential is not configured
	ErrMissingConfig = errors.New("missing required configuration")

	// ErrMalformedToken is returned when the returned identity token cannot be decoded
	ErrMalformedToken = errors.New("malformed identity token")

	// ErrNonceMismatch is returned when the token echoes a nonce other than the session's
	ErrNonceMismatch = errors.New("identity token nonce does not match session nonce")

	// ErrLoginAborted is returned for any operation after a fatal login error until reset
	ErrLoginAborted = errors.New("login aborted, reset required")

	// ErrInvalidTransition is returned when an identity phase transition skips a state
	ErrInvalidTransition = errors.New("invalid identity phase transition")

	// ErrNotFound is returned by stores when a key is absent or expired
	ErrNotFound = errors.New("key not found")

	// ErrStoreOperationFailed is returned when a store operation fails
	ErrStoreOperationFailed = errors.New("store operation failed")

	// ErrUnsupportedAudience is returned when a token carries several audiences
	ErrUnsupportedAudience = errors.New("identity token must carry exactly one audience")

	// ErrInsufficientFunds is returned when gas coins cannot cover amount and budget
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrUnknownIntent is returned for an intent kind the engine cannot build
	ErrUnknownIntent = errors.New("unknown transaction intent")
)

// SubmissionKind classifies a failed submission
type SubmissionKind string

const (
	SubmissionNetwork      SubmissionKind = "network"
	SubmissionRejected     SubmissionKind = "rejected"
	SubmissionInsufficient SubmissionKind = "insufficient_funds"
	SubmissionBuild        SubmissionKind = "build"
)

// SubmissionError is returned when a transaction could not be executed.
// It is never retried automatically.
type SubmissionError struct {
	Kind SubmissionKind
	Err  error
}

// Error implements error
func (e *SubmissionError) Error() string {
	return fmt.Sprintf("transaction submission failed (%s): %v", e.Kind, e.Err)
}

// Unwrap returns the ledger error
func (e *SubmissionError) Unwrap() error {
	return e.Err
}
