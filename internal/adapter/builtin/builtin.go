// Package builtin assembles the catalog of adapters compiled into pai.
package builtin

import (
	"pai/internal/adapter"
	"pai/internal/adapter/github"
	"pai/internal/adapter/kubernetes"
	"pai/internal/adapter/localsecrets"
	"pai/internal/adapter/mock"
	"pai/internal/adapter/netprobe"
	"pai/internal/adapter/prometheus"
)

// NewCatalog returns a catalog with every built-in adapter registered
func NewCatalog() *adapter.Catalog {
	c := adapter.NewCatalog()
	mock.Register(c)
	localsecrets.Register(c)
	prometheus.Register(c)
	github.Register(c)
	kubernetes.Register(c)
	netprobe.Register(c)
	return c
}
