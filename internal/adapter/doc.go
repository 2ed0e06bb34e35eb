// Package adapter discovers and loads provider adapters.
//
// An adapter is a concrete implementation of one domain's capability
// interface backed by a single platform (GitHub Actions, Prometheus,
// Kubernetes, ...). Adapters are described by a Manifest and built by a
// Factory registered in a Catalog.
//
// # Manifests
//
// Every compiled-in adapter carries a builtin manifest. Additional manifests
// are read from disk: each subdirectory of an adapter dir may hold an
// adapter.yaml declaring name, domain, semver version, entry (the catalog
// key of the factory to build), capabilities and default options. This lets
// an installation alias a compiled-in adapter under a new name with its own
// defaults:
//
//	name: prod-prometheus
//	domain: observability
//	version: 1.2.0
//	entry: observability/prometheus
//	defaults:
//	  url: https://prometheus.internal:9090
//
// When two manifests in one domain share a name the higher version wins; on
// a tie the on-disk manifest wins over the builtin one.
//
// # Registry
//
// Registry.Discover lists the manifests for a domain sorted by name and
// caches the result per domain until Invalidate. Registry.Load merges the
// manifest defaults with caller options and runs the factory.
package adapter
