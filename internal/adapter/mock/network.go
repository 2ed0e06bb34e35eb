package mock

import (
	"context"
	"net/netip"
	"slices"
	"strings"

	"github.com/spf13/cast"

	"pai/internal/adapter"
	"pai/internal/domain"
)

// Network reports the hosts in the "hosts" option (address to open
// ports). ListHosts matches a single address or a CIDR prefix.
//
//	hosts:
//	  192.168.1.10: [22, 80]
//	  192.168.1.20: [443]
type Network struct {
	base
	hosts map[string][]int
}

// NewNetwork builds a Network mock
func NewNetwork(p adapter.Params) (*Network, error) {
	hosts := make(map[string][]int)
	for addr, ports := range cast.ToStringMap(p.Options["hosts"]) {
		list := cast.ToIntSlice(ports)
		slices.Sort(list)
		hosts[addr] = list
	}
	return &Network{base: newBase(p), hosts: hosts}, nil
}

func (n *Network) ListHosts(ctx context.Context, target string) ([]domain.Host, error) {
	match := func(addr string) bool { return addr == target }
	if prefix, err := netip.ParsePrefix(target); err == nil {
		match = func(addr string) bool {
			ip, err := netip.ParseAddr(addr)
			return err == nil && prefix.Contains(ip)
		}
	}

	out := []domain.Host{}
	for addr, ports := range n.hosts {
		if !match(addr) {
			continue
		}
		out = append(out, domain.Host{Address: addr, Up: true, OpenPorts: ports})
	}
	slices.SortFunc(out, func(a, b domain.Host) int { return compareAddr(a.Address, b.Address) })
	return out, nil
}

func (n *Network) Probe(ctx context.Context, host string, port int) (*domain.ProbeResult, error) {
	ports, ok := n.hosts[host]
	if !ok {
		return &domain.ProbeResult{Host: host, Port: port}, nil
	}
	return &domain.ProbeResult{Host: host, Port: port, Open: slices.Contains(ports, port)}, nil
}

func compareAddr(a, b string) int {
	ipA, errA := netip.ParseAddr(a)
	ipB, errB := netip.ParseAddr(b)
	if errA == nil && errB == nil {
		return ipA.Compare(ipB)
	}
	return strings.Compare(a, b)
}
