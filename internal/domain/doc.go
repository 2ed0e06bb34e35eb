// Package domain defines the provider vocabulary shared by every layer of pai.
//
// A Domain names a category of capability (secrets, observability, issues,
// containers, network, CI/CD). Each domain has a narrow capability interface
// that embeds Provider, so every adapter can be health-checked the same way
// regardless of which platform backs it.
//
// # Core Types
//
// Provider is the minimum every adapter implements: a Name and a HealthCheck
// returning a HealthStatus.
//
// SecretsProvider, ObservabilityProvider, CICDProvider, IssuesProvider,
// ContainersProvider and NetworkProvider are the per-domain capability sets.
//
// # Errors
//
// Error is a single tagged error type. Its Kind (configuration, adapter not
// found, authentication, provider, not found, rate limited) carries the
// meaning; the domain, adapter and entity are data on the error rather than
// separate types. Use errors.Is against the Err* sentinels or KindOf to branch.
//
// # Design Principles
//
// - No infrastructure dependencies
// - Interfaces are defined here and implemented under internal/adapter
package domain
