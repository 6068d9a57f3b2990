package domain

import (
	"errors"
	"fmt"
)

var (
	ErrPlatformUnavailable  = errors.New("platform unavailable")
	ErrNotAuthenticated     = errors.New("not authenticated")
	ErrNotConnected         = errors.New("not connected")
	ErrNoAccessToken        = errors.New("no access token")
	ErrLoginInProgress      = errors.New("login already in progress")
	ErrLogoutInProgress     = errors.New("logout already in progress")
	ErrAlreadyAuthenticated = errors.New("already authenticated")
	ErrPortalActive         = errors.New("account portal already active")
	ErrNotInLobby           = errors.New("not in a lobby")
	ErrAlreadyInLobby       = errors.New("already in a lobby")
	ErrLobbyOpInProgress    = errors.New("lobby create or join already in progress")
	ErrNotLobbyOwner        = errors.New("not the lobby owner")
	ErrEmptyLobbyID         = errors.New("lobby id is empty")
	ErrInvalidAccountID     = errors.New("account id is empty")
	ErrSecretNotFound       = errors.New("secret not found")
	ErrEmptyToken           = errors.New("token is empty")
	ErrOperationFailed      = errors.New("operation failed")
)

// OperationError reports a non-success platform result for a named operation.
type OperationError struct {
	Op     string
	Result Result
}

func NewOperationError(op string, result Result) *OperationError {
	return &OperationError{Op: op, Result: result}
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Op, e.Result)
}

func (e *OperationError) Unwrap() error {
	return ErrOperationFailed
}
