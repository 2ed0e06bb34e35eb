package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorKind tags an Error with its meaning
type ErrorKind string

const (
	KindConfiguration   ErrorKind = "configuration"
	KindAdapterNotFound ErrorKind = "adapter_not_found"
	KindAdapterLoad     ErrorKind = "adapter_load"
	KindAuthentication  ErrorKind = "authentication"
	KindProvider        ErrorKind = "provider"
	KindNotFound        ErrorKind = "not_found"
	KindRateLimited     ErrorKind = "rate_limited"
)

// Code returns the upper-case code used in audit lines (e.g. NOT_FOUND)
func (k ErrorKind) Code() string {
	if k == "" {
		return "ERROR"
	}
	return strings.ToUpper(string(k))
}

// Sentinels for errors.Is; they match any Error of the same kind
var (
	ErrConfiguration   = &Error{Kind: KindConfiguration}
	ErrAdapterNotFound = &Error{Kind: KindAdapterNotFound}
	ErrAdapterLoad     = &Error{Kind: KindAdapterLoad}
	ErrAuthentication  = &Error{Kind: KindAuthentication}
	ErrProvider        = &Error{Kind: KindProvider}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrRateLimited     = &Error{Kind: KindRateLimited}
)

// Error is the single error type raised by the provider layer.
// Domain, adapter and entity are carried as data.
type Error struct {
	Kind       ErrorKind
	Domain     Domain
	Adapter    string
	Entity     string        // NotFound: kind of entity (secret, issue, run)
	ID         string        // NotFound: entity identifier
	RetryAfter time.Duration // RateLimited: hint from the platform, zero if unknown
	Msg        string
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Domain != "" {
		b.WriteString(string(e.Domain))
		b.WriteString(": ")
	}
	switch {
	case e.Msg != "":
		b.WriteString(e.Msg)
	case e.Kind == KindNotFound:
		fmt.Fprintf(&b, "%s %q not found", e.Entity, e.ID)
	case e.Kind == KindAdapterNotFound:
		fmt.Fprintf(&b, "adapter %q not found", e.Adapter)
	default:
		b.WriteString(strings.ReplaceAll(string(e.Kind), "_", " "))
		b.WriteString(" error")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinels by kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Domain == "" && t.Adapter == "" && t.Msg == "" && t.Err == nil
}

// KindOf returns the kind of the outermost Error in the chain, or "" if none
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// ConfigurationError reports missing or invalid configuration
func ConfigurationError(d Domain, format string, args ...any) *Error {
	return &Error{Kind: KindConfiguration, Domain: d, Msg: fmt.Sprintf(format, args...)}
}

// AdapterNotFound reports an adapter name absent from discovery
func AdapterNotFound(d Domain, name string) *Error {
	return &Error{Kind: KindAdapterNotFound, Domain: d, Adapter: name}
}

// AdapterLoadError reports an adapter whose entry point could not be resolved or constructed
func AdapterLoadError(d Domain, name string, err error) *Error {
	return &Error{
		Kind:    KindAdapterLoad,
		Domain:  d,
		Adapter: name,
		Msg:     fmt.Sprintf("load adapter %q", name),
		Err:     err,
	}
}

// AuthenticationFailed reports a credential rejected by the wrapped platform
func AuthenticationFailed(d Domain, adapter string, err error) *Error {
	return &Error{
		Kind:    KindAuthentication,
		Domain:  d,
		Adapter: adapter,
		Msg:     fmt.Sprintf("%s: authentication failed", adapter),
		Err:     err,
	}
}

// ProviderFailed reports a failed call to the wrapped platform
func ProviderFailed(d Domain, adapter string, err error) *Error {
	return &Error{
		Kind:    KindProvider,
		Domain:  d,
		Adapter: adapter,
		Msg:     adapter,
		Err:     err,
	}
}

// NotFound reports a missing entity
func NotFound(d Domain, entity, id string) *Error {
	return &Error{Kind: KindNotFound, Domain: d, Entity: entity, ID: id}
}

// RateLimited reports platform throttling
func RateLimited(d Domain, adapter string, retryAfter time.Duration) *Error {
	msg := fmt.Sprintf("%s: rate limited", adapter)
	if retryAfter > 0 {
		msg = fmt.Sprintf("%s (retry after %s)", msg, retryAfter)
	}
	return &Error{
		Kind:       KindRateLimited,
		Domain:     d,
		Adapter:    adapter,
		RetryAfter: retryAfter,
		Msg:        msg,
	}
}
