// Package audit records one entry per provider operation.
//
// Entries render as single lines:
//
//	[SECRETS] 2026-01-02T15:04:05Z GET provider=mock target=API_KEY status=SUCCESS latency=3ms
//	[CICD] 2026-01-02T15:04:05Z CANCEL provider=github target=42 status=FAILED(NOT_FOUND) latency=120ms
//
// Entries are write-once. Retention is left to the Logger implementation.
package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"pai/internal/domain"
)

// NoTarget is rendered when an operation has no target identifier
const NoTarget = "-"

// Entry is one audited provider operation
type Entry struct {
	ID        string        `json:"id" yaml:"id"`
	Timestamp time.Time     `json:"timestamp" yaml:"timestamp"`
	Domain    domain.Domain `json:"domain" yaml:"domain"`
	Operation string        `json:"operation" yaml:"operation"`
	Provider  string        `json:"provider" yaml:"provider"`
	Target    string        `json:"target" yaml:"target"`
	Success   bool          `json:"success" yaml:"success"`
	ErrorCode string        `json:"errorCode,omitempty" yaml:"errorCode,omitempty"`
	Latency   time.Duration `json:"-" yaml:"-"`
}

// NewEntry builds an entry for an operation that started at start and
// finished with err
func NewEntry(d domain.Domain, op, provider, target string, start time.Time, err error) Entry {
	e := Entry{
		ID:        uuid.NewString(),
		Timestamp: start.UTC(),
		Domain:    d,
		Operation: strings.ToUpper(op),
		Provider:  provider,
		Target:    target,
		Success:   err == nil,
		Latency:   time.Since(start),
	}
	if err != nil {
		e.ErrorCode = ErrorCode(err)
	}
	return e
}

// ErrorCode maps an error to the code shown in FAILED(<code>)
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "TIMEOUT"
	case errors.Is(err, context.Canceled):
		return "CANCELED"
	}
	return domain.KindOf(err).Code()
}

// LatencyMs reports latency in whole milliseconds
func (e Entry) LatencyMs() int64 {
	return e.Latency.Milliseconds()
}

// Status renders SUCCESS or FAILED(<code>)
func (e Entry) Status() string {
	if e.Success {
		return "SUCCESS"
	}
	code := e.ErrorCode
	if code == "" {
		code = "ERROR"
	}
	return "FAILED(" + code + ")"
}

// String renders the audit line
func (e Entry) String() string {
	provider := e.Provider
	if provider == "" {
		provider = NoTarget
	}
	target := e.Target
	if target == "" {
		target = NoTarget
	}
	return fmt.Sprintf("[%s] %s %s provider=%s target=%s status=%s latency=%dms",
		e.Domain.Label(),
		e.Timestamp.UTC().Format(time.RFC3339),
		e.Operation,
		provider,
		target,
		e.Status(),
		e.LatencyMs(),
	)
}

// Logger receives audit entries
type Logger interface {
	Log(ctx context.Context, e Entry) error
}

// Query filters stored entries
type Query struct {
	Domain     domain.Domain
	FailedOnly bool
	Since      time.Time
	Limit      int
}

// Store is a Logger that can be read back, newest first
type Store interface {
	Logger
	Recent(ctx context.Context, q Query) ([]Entry, error)
}
