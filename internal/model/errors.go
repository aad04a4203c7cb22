package model

import (
	"errors"
	"fmt"
)

var (
	ErrAuthRequired       = errors.New("not authenticated")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionNotFound    = errors.New("session not found")
	ErrMessageRequired    = errors.New("message is required")
	ErrModelRequired      = errors.New("model is required")
	ErrUnknownModel       = errors.New("invalid model")
	ErrInvalidIndex       = errors.New("invalid index")
	ErrHistoryCorrupted   = errors.New("history document is corrupted")
)

type ProviderErrorKind string

const (
	ProviderErrorTimeout    = ProviderErrorKind("timeout")
	ProviderErrorConnection = ProviderErrorKind("connection")
	ProviderErrorProtocol   = ProviderErrorKind("protocol")
)

// ProviderError is returned by upstream adapters. Message is safe to show to users.
type ProviderError struct {
	Provider Provider
	Kind     ProviderErrorKind
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s error: %s: %v", e.Provider, e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s %s error: %s", e.Provider, e.Kind, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ProviderErrorKindOf returns the kind of the first ProviderError in err's chain.
func ProviderErrorKindOf(err error) (ProviderErrorKind, bool) {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Kind, true
	}
	return "", false
}
