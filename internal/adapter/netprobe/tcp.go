package netprobe

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"pai/internal/adapter"
	"pai/internal/domain"
)

// TCPName is the tcp adapter name
const TCPName = "tcp"

// maxBanner bounds a grabbed banner
const maxBanner = 100

// ScanConfig controls a TCP sweep
type ScanConfig struct {
	// DiscoveryPorts are probed to find live hosts
	DiscoveryPorts []int
	// ScanPorts are probed on live hosts
	ScanPorts []int
	// Timeout for individual connection attempts
	Timeout time.Duration
	// BannerTimeout for reading service banners
	BannerTimeout time.Duration
	// Concurrency limits parallel connection attempts
	Concurrency int
	// Resolve enables reverse DNS for live hosts
	Resolve bool
}

// DefaultScanConfig returns defaults suited to a home network
func DefaultScanConfig() ScanConfig {
	return ScanConfig{
		DiscoveryPorts: []int{22, 80, 443, 445, 3389, 5900, 8080},
		ScanPorts: []int{
			21, 22, 23, 25, 53, 80, 110, 143, 443, 445,
			993, 995, 3306, 3389, 5432, 5900, 6443,
			8080, 8443, 9090, 9100,
		},
		Timeout:       time.Second,
		BannerTimeout: time.Second,
		Concurrency:   200,
		Resolve:       true,
	}
}

// scanConfig reads ScanConfig overrides from adapter options:
//
//	discovery_ports: 22,80,443
//	ports: 1-1024
//	timeout: 1s
//	banner_timeout: 1s
//	concurrency: 200
//	resolve: true
func scanConfig(o adapter.Options) (ScanConfig, error) {
	cfg := DefaultScanConfig()
	var err error
	if cfg.DiscoveryPorts, err = portsOption(o, "discovery_ports", cfg.DiscoveryPorts); err != nil {
		return cfg, err
	}
	if cfg.ScanPorts, err = portsOption(o, "ports", cfg.ScanPorts); err != nil {
		return cfg, err
	}
	cfg.Timeout = o.Duration("timeout", cfg.Timeout)
	cfg.BannerTimeout = o.Duration("banner_timeout", cfg.BannerTimeout)
	cfg.Concurrency = max(o.Int("concurrency", cfg.Concurrency), 1)
	cfg.Resolve = o.Bool("resolve", cfg.Resolve)
	return cfg, nil
}

// Scanner sweeps addresses with TCP connects
type Scanner struct {
	config ScanConfig
	dialer net.Dialer
	logger *slog.Logger
}

// NewScanner creates a Scanner
func NewScanner(config ScanConfig, logger *slog.Logger) *Scanner {
	if config.Concurrency < 1 {
		config.Concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{config: config, dialer: net.Dialer{Timeout: config.Timeout}, logger: logger}
}

// Sweep finds live hosts among addrs, then scans their service ports.
// Only live hosts are returned, ordered by address.
func (s *Scanner) Sweep(ctx context.Context, addrs []string) ([]domain.Host, error) {
	live, err := s.discover(ctx, addrs)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("host discovery complete", "addresses", len(addrs), "live", len(live))

	hosts := make([]domain.Host, len(live))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.config.Concurrency/max(len(s.config.ScanPorts), 1), 1))
	for i, addr := range live {
		g.Go(func() error {
			hosts[i] = s.scanHost(gctx, addr)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return hosts, nil
}

// discover returns the addresses with at least one open discovery port
func (s *Scanner) discover(ctx context.Context, addrs []string) ([]string, error) {
	var (
		mu   sync.Mutex
		live = make(map[string]bool)
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Concurrency)
	for _, addr := range addrs {
		for _, port := range s.config.DiscoveryPorts {
			g.Go(func() error {
				mu.Lock()
				known := live[addr]
				mu.Unlock()
				if known || !s.open(gctx, addr, port) {
					return nil
				}
				mu.Lock()
				live[addr] = true
				mu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(live))
	for addr := range live {
		out = append(out, addr)
	}
	slices.SortFunc(out, compareAddr)
	return out, nil
}

func (s *Scanner) scanHost(ctx context.Context, addr string) domain.Host {
	host := domain.Host{Address: addr, Up: true}
	if s.config.Resolve {
		host.Hostname = reverseDNS(addr)
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, port := range s.config.ScanPorts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.open(ctx, addr, port) {
				mu.Lock()
				host.OpenPorts = append(host.OpenPorts, port)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	slices.Sort(host.OpenPorts)
	return host
}

// open attempts a TCP connection
func (s *Scanner) open(ctx context.Context, host string, port int) bool {
	conn, err := s.dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// Probe connects to host:port and reads the first line the service sends.
// HTTP ports are sent a HEAD request first.
func (s *Scanner) Probe(ctx context.Context, host string, port int) (*domain.ProbeResult, error) {
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("invalid port number: %d", port)
	}
	result := &domain.ProbeResult{Host: host, Port: port}

	start := time.Now()
	conn, err := s.dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	result.Latency = time.Since(start)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		result.Details = map[string]string{"error": err.Error()}
		return result, nil
	}
	defer conn.Close()

	result.Open = true
	result.Service = serviceName(port)
	result.Banner = s.banner(conn, host, port)
	return result, nil
}

func (s *Scanner) banner(conn net.Conn, host string, port int) string {
	_ = conn.SetDeadline(time.Now().Add(s.config.BannerTimeout))
	if port == 80 || port == 8080 {
		fmt.Fprintf(conn, "HEAD / HTTP/1.0\r\nHost: %s\r\n\r\n", host)
	}

	buf := make([]byte, 256)
	n, err := conn.Read(buf)
	if n == 0 && err != nil {
		return ""
	}
	banner, _, _ := strings.Cut(string(buf[:n]), "\n")
	banner = strings.TrimSpace(banner)
	if len(banner) > maxBanner {
		banner = banner[:maxBanner] + "..."
	}
	return banner
}

// TCP is the connect-scan network provider
type TCP struct {
	name    string
	scanner *Scanner
}

// NewTCP builds a TCP provider
func NewTCP(p adapter.Params) (*TCP, error) {
	cfg, err := scanConfig(p.Options)
	if err != nil {
		return nil, domain.ConfigurationError(domain.Network, "adapter %s: %v", p.Name(TCPName), err)
	}
	return &TCP{name: p.Name(TCPName), scanner: NewScanner(cfg, p.Log())}, nil
}

func (t *TCP) Name() string { return t.name }

// HealthCheck verifies the local stack can open and dial a socket
func (t *TCP) HealthCheck(ctx context.Context) domain.HealthStatus {
	start := time.Now()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return domain.Unhealthy("listen: %v", err)
	}
	defer ln.Close()

	port := ln.Addr().(*net.TCPAddr).Port
	if !t.scanner.open(ctx, "127.0.0.1", port) {
		return domain.Unhealthy("loopback connect failed")
	}
	status := domain.Healthy("tcp connect available")
	status.Latency = time.Since(start)
	return status
}

func (t *TCP) ListHosts(ctx context.Context, target string) ([]domain.Host, error) {
	addrs, err := expandTarget(target)
	if err != nil {
		return nil, targetError(t.name, err)
	}
	hosts, err := t.scanner.Sweep(ctx, addrs)
	if err != nil {
		return nil, targetError(t.name, err)
	}
	return hosts, nil
}

func (t *TCP) Probe(ctx context.Context, host string, port int) (*domain.ProbeResult, error) {
	result, err := t.scanner.Probe(ctx, host, port)
	if err != nil {
		return nil, targetError(t.name, err)
	}
	return result, nil
}
