// Package netprobe implements the network domain with three adapters:
// tcp (connect scans and banner grabs from this host), nmap (the nmap
// binary) and ssh (port 22 sweeps plus fact gathering over SSH).
//
// Targets are a hostname, an IP address or a CIDR prefix. Port lists are
// given as "22,80,8000-8010" or a YAML list.
package netprobe

import (
	"fmt"
	"net"
	"net/netip"
	"slices"
	"strconv"
	"strings"

	"pai/internal/adapter"
	"pai/internal/domain"
)

// MaxTargets bounds the hosts one ListHosts call may expand to
const MaxTargets = 1024

// Register adds the nmap, ssh and tcp adapters to c
func Register(c *adapter.Catalog) {
	c.MustRegister(adapter.Manifest{
		Name:         TCPName,
		Domain:       domain.Network,
		Description:  "TCP connect scans from this host",
		Capabilities: []string{"hosts", "probe", "banner"},
	}, adapter.Typed(NewTCP))
	c.MustRegister(adapter.Manifest{
		Name:         NmapName,
		Domain:       domain.Network,
		Description:  "nmap host discovery and service detection",
		Capabilities: []string{"hosts", "probe", "service-detection"},
	}, adapter.Typed(NewNmap))
	c.MustRegister(adapter.Manifest{
		Name:         SSHName,
		Domain:       domain.Network,
		Description:  "SSH reachability and host facts",
		Capabilities: []string{"hosts", "probe", "facts"},
	}, adapter.Typed(NewSSH))
}

// Common service ports with their typical service names
var wellKnownPorts = map[int]string{
	21:   "ftp",
	22:   "ssh",
	23:   "telnet",
	25:   "smtp",
	53:   "dns",
	80:   "http",
	110:  "pop3",
	143:  "imap",
	443:  "https",
	445:  "smb",
	993:  "imaps",
	995:  "pop3s",
	3306: "mysql",
	3389: "rdp",
	5432: "postgres",
	5900: "vnc",
	6443: "k8s-api",
	8080: "http-alt",
	8443: "https-alt",
	9090: "prometheus",
	9100: "node-exporter",
}

// serviceName returns the conventional service on port, or unknown-<port>
func serviceName(port int) string {
	if name, ok := wellKnownPorts[port]; ok {
		return name
	}
	return fmt.Sprintf("unknown-%d", port)
}

// parsePorts expands a port list such as "22,80-82" into sorted unique
// port numbers
func parsePorts(specs []string) ([]int, error) {
	seen := make(map[int]bool)
	for _, spec := range specs {
		for _, part := range strings.Split(spec, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			lo, hi, isRange := strings.Cut(part, "-")
			start, err := parsePort(lo)
			if err != nil {
				return nil, err
			}
			end := start
			if isRange {
				if end, err = parsePort(hi); err != nil {
					return nil, err
				}
				if end < start {
					return nil, fmt.Errorf("invalid port range: %s", part)
				}
			}
			for p := start; p <= end; p++ {
				seen[p] = true
			}
		}
	}
	ports := make([]int, 0, len(seen))
	for p := range seen {
		ports = append(ports, p)
	}
	slices.Sort(ports)
	return ports, nil
}

func parsePort(s string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || port < 1 || port > 65535 {
		return 0, fmt.Errorf("invalid port number: %s", s)
	}
	return port, nil
}

// portsOption reads a port list option, falling back to def
func portsOption(o adapter.Options, key string, def []int) ([]int, error) {
	specs := o.StringSlice(key)
	if len(specs) == 0 {
		return def, nil
	}
	ports, err := parsePorts(specs)
	if err != nil {
		return nil, fmt.Errorf("option %s: %w", key, err)
	}
	return ports, nil
}

// expandTarget turns a host, address or CIDR prefix into the addresses to
// scan. Network and broadcast addresses are skipped for IPv4 prefixes of
// /24 and wider.
func expandTarget(target string) ([]string, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, fmt.Errorf("empty target")
	}
	if !strings.Contains(target, "/") {
		if addr, err := netip.ParseAddr(target); err == nil {
			return []string{addr.String()}, nil
		}
		return []string{target}, nil
	}

	prefix, err := netip.ParsePrefix(target)
	if err != nil {
		return nil, fmt.Errorf("invalid CIDR %s: %w", target, err)
	}
	prefix = prefix.Masked()
	hostBits := prefix.Addr().BitLen() - prefix.Bits()
	if hostBits > 16 || 1<<hostBits > MaxTargets+2 {
		return nil, fmt.Errorf("CIDR range %s too large (max %d addresses)", target, MaxTargets)
	}

	var addrs []string
	for addr := prefix.Addr(); addr.IsValid() && prefix.Contains(addr); addr = addr.Next() {
		addrs = append(addrs, addr.String())
	}
	if prefix.Addr().Is4() && prefix.Bits() <= 24 && len(addrs) > 2 {
		addrs = addrs[1 : len(addrs)-1]
	}
	if len(addrs) > MaxTargets {
		return nil, fmt.Errorf("CIDR range %s too large (max %d addresses)", target, MaxTargets)
	}
	return addrs, nil
}

// compareAddr orders IP addresses numerically and hostnames lexically
func compareAddr(a, b string) int {
	ipA, errA := netip.ParseAddr(a)
	ipB, errB := netip.ParseAddr(b)
	if errA == nil && errB == nil {
		return ipA.Compare(ipB)
	}
	return strings.Compare(a, b)
}

// reverseDNS returns the first PTR name for ip without its trailing dot
func reverseDNS(ip string) string {
	names, err := net.LookupAddr(ip)
	if err != nil || len(names) == 0 {
		return ""
	}
	return strings.TrimSuffix(names[0], ".")
}

// targetError reports an unusable target as a provider failure
func targetError(adapterName string, err error) error {
	return domain.ProviderFailed(domain.Network, adapterName, err)
}
