package domain

import (
	"context"
	"time"
)

// NetworkProvider discovers hosts and probes services
type NetworkProvider interface {
	Provider

	// ListHosts discovers live hosts in target (a host, an IP, or a CIDR range)
	ListHosts(ctx context.Context, target string) ([]Host, error)

	// Probe checks a single TCP port on host
	Probe(ctx context.Context, host string, port int) (*ProbeResult, error)
}

// Host is a discovered network host
type Host struct {
	Address   string `json:"address" yaml:"address"`
	Hostname  string `json:"hostname,omitempty" yaml:"hostname,omitempty"`
	Up        bool   `json:"up" yaml:"up"`
	OpenPorts []int  `json:"openPorts,omitempty" yaml:"openPorts,omitempty"`
	MAC       string `json:"mac,omitempty" yaml:"mac,omitempty"`
}

// ProbeResult is the outcome of one port probe
type ProbeResult struct {
	Host    string            `json:"host" yaml:"host"`
	Port    int               `json:"port" yaml:"port"`
	Open    bool              `json:"open" yaml:"open"`
	Service string            `json:"service,omitempty" yaml:"service,omitempty"`
	Banner  string            `json:"banner,omitempty" yaml:"banner,omitempty"`
	Details map[string]string `json:"details,omitempty" yaml:"details,omitempty"`
	Latency time.Duration     `json:"-" yaml:"-"`
}
