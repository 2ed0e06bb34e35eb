package cli

import (
	"pai/internal/domain"
)

// Process exit codes
const (
	ExitOK       = 0
	ExitError    = 1 // generic and configuration errors
	ExitAuth     = 2
	ExitProvider = 3 // platform failures, rate limiting included
	ExitNotFound = 4
)

// ExitCode maps err to a process exit code by its kind
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch domain.KindOf(err) {
	case domain.KindAuthentication:
		return ExitAuth
	case domain.KindProvider, domain.KindRateLimited:
		return ExitProvider
	case domain.KindNotFound:
		return ExitNotFound
	}
	return ExitError
}
