package netprobe

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	nmap "github.com/Ullaakut/nmap/v3"

	"pai/internal/adapter"
	"pai/internal/domain"
)

// NmapName is the nmap adapter name
const NmapName = "nmap"

const defaultNmapPorts = "22,25,53,80,443,445,3389,5432,5900,6443,8080,8443,9090,9100"

// Nmap is the network provider backed by the nmap binary
//
//	binary: /usr/bin/nmap      # default: nmap from PATH
//	ports: 22,80,443,8000-8100
//	service_detection: true    # -sV
//	skip_host_discovery: false # -Pn, for networks that drop ICMP
//	timeout: 10m
type Nmap struct {
	name              string
	binary            string
	ports             string
	serviceDetection  bool
	skipHostDiscovery bool
	timeout           time.Duration
	logger            *slog.Logger
}

// NewNmap builds an Nmap provider
func NewNmap(p adapter.Params) (*Nmap, error) {
	name := p.Name(NmapName)
	ports, err := portsOption(p.Options, "ports", nil)
	if err != nil {
		return nil, domain.ConfigurationError(domain.Network, "adapter %s: %v", name, err)
	}
	portRange := defaultNmapPorts
	if len(ports) > 0 {
		portRange = joinPorts(ports)
	}
	return &Nmap{
		name:              name,
		binary:            p.Options.String("binary", ""),
		ports:             portRange,
		serviceDetection:  p.Options.Bool("service_detection", true),
		skipHostDiscovery: p.Options.Bool("skip_host_discovery", false),
		timeout:           p.Options.Duration("timeout", 10*time.Minute),
		logger:            p.Log(),
	}, nil
}

func (n *Nmap) Name() string { return n.name }

// HealthCheck runs a list scan of localhost, which needs no privileges
// and sends no packets
func (n *Nmap) HealthCheck(ctx context.Context) domain.HealthStatus {
	start := time.Now()
	if _, err := n.run(ctx, nmap.WithTargets("localhost"), nmap.WithListScan()); err != nil {
		return domain.Unhealthy("nmap unavailable: %v", err)
	}
	status := domain.Healthy("nmap available")
	status.Latency = time.Since(start)
	return status
}

func (n *Nmap) ListHosts(ctx context.Context, target string) ([]domain.Host, error) {
	if _, err := expandTarget(target); err != nil {
		return nil, targetError(n.name, err)
	}

	opts := []nmap.Option{nmap.WithTargets(target), nmap.WithPorts(n.ports)}
	if n.serviceDetection {
		opts = append(opts, nmap.WithServiceInfo())
	}
	if n.skipHostDiscovery {
		opts = append(opts, nmap.WithSkipHostDiscovery())
	}

	result, err := n.run(ctx, opts...)
	if err != nil {
		return nil, domain.ProviderFailed(domain.Network, n.name, err)
	}
	hosts := hostsFromRun(result)
	n.logger.Debug("nmap scan complete", "target", target, "hosts", len(hosts))
	return hosts, nil
}

func (n *Nmap) Probe(ctx context.Context, host string, port int) (*domain.ProbeResult, error) {
	if port < 1 || port > 65535 {
		return nil, targetError(n.name, fmt.Errorf("invalid port number: %d", port))
	}
	opts := []nmap.Option{
		nmap.WithTargets(host),
		nmap.WithPorts(strconv.Itoa(port)),
		nmap.WithSkipHostDiscovery(),
	}
	if n.serviceDetection {
		opts = append(opts, nmap.WithServiceInfo())
	}

	start := time.Now()
	result, err := n.run(ctx, opts...)
	if err != nil {
		return nil, domain.ProviderFailed(domain.Network, n.name, err)
	}
	probe := probeFromRun(result, host, port)
	probe.Latency = time.Since(start)
	return probe, nil
}

func (n *Nmap) run(ctx context.Context, opts ...nmap.Option) (*nmap.Run, error) {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	if n.binary != "" {
		opts = append(opts, nmap.WithBinaryPath(n.binary))
	}
	scanner, err := nmap.NewScanner(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create scanner: %w", err)
	}
	result, warnings, err := scanner.Run()
	if warnings != nil && len(*warnings) > 0 {
		n.logger.Debug("nmap warnings", "warnings", *warnings)
	}
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	if result == nil {
		return nil, fmt.Errorf("nil scan result")
	}
	return result, nil
}

// hostsFromRun converts the up hosts of a scan, ordered by address
func hostsFromRun(result *nmap.Run) []domain.Host {
	hosts := []domain.Host{}
	for _, h := range result.Hosts {
		if len(h.Addresses) == 0 || h.Status.State != "up" {
			continue
		}
		host := domain.Host{Address: primaryAddress(h), Up: true}
		if len(h.Hostnames) > 0 {
			host.Hostname = h.Hostnames[0].Name
		}
		for _, addr := range h.Addresses {
			if addr.AddrType == "mac" {
				host.MAC = strings.ToUpper(addr.Addr)
			}
		}
		for _, p := range h.Ports {
			if p.State.State == "open" {
				host.OpenPorts = append(host.OpenPorts, int(p.ID))
			}
		}
		slices.Sort(host.OpenPorts)
		hosts = append(hosts, host)
	}
	slices.SortFunc(hosts, func(a, b domain.Host) int { return compareAddr(a.Address, b.Address) })
	return hosts
}

// primaryAddress prefers the IPv4 address of a host
func primaryAddress(h nmap.Host) string {
	for _, addr := range h.Addresses {
		if addr.AddrType == "ipv4" {
			return addr.Addr
		}
	}
	return h.Addresses[0].Addr
}

// probeFromRun extracts port from a single-port scan of host
func probeFromRun(result *nmap.Run, host string, port int) *domain.ProbeResult {
	probe := &domain.ProbeResult{Host: host, Port: port}
	for _, h := range result.Hosts {
		for _, p := range h.Ports {
			if int(p.ID) != port {
				continue
			}
			details := map[string]string{"state": p.State.State, "protocol": p.Protocol}
			if len(h.Hostnames) > 0 {
				details["hostname"] = h.Hostnames[0].Name
			}
			probe.Details = details
			if p.State.State != "open" {
				return probe
			}
			probe.Open = true
			probe.Service = p.Service.Name
			if probe.Service == "" {
				probe.Service = serviceName(port)
			}
			probe.Banner = serviceBanner(p.Service)
			if p.Service.Product != "" {
				details["product"] = p.Service.Product
			}
			if p.Service.Version != "" {
				details["version"] = p.Service.Version
			}
			return probe
		}
	}
	return probe
}

// serviceBanner renders nmap's version detection as "<product> <version> (<extra>)"
func serviceBanner(s nmap.Service) string {
	if s.Product == "" {
		return ""
	}
	banner := s.Product
	if s.Version != "" {
		banner += " " + s.Version
	}
	if s.ExtraInfo != "" {
		banner += " (" + s.ExtraInfo + ")"
	}
	return banner
}

func joinPorts(ports []int) string {
	parts := make([]string, len(ports))
	for i, p := range ports {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ",")
}
