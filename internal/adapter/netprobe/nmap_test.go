package netprobe

import (
	"context"
	"testing"

	nmap "github.com/Ullaakut/nmap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pai/internal/adapter"
	"pai/internal/domain"
)

func sampleRun() *nmap.Run {
	return &nmap.Run{Hosts: []nmap.Host{
		{
			Status: nmap.Status{State: "up"},
			Addresses: []nmap.Address{
				{Addr: "aa:bb:cc:dd:ee:ff", AddrType: "mac", Vendor: "Synology"},
				{Addr: "192.168.1.10", AddrType: "ipv4"},
			},
			Hostnames: []nmap.Hostname{{Name: "nas.local"}},
			Ports: []nmap.Port{
				{ID: 443, Protocol: "tcp", State: nmap.State{State: "open"}, Service: nmap.Service{Name: "https", Product: "nginx", Version: "1.27.0", ExtraInfo: "Ubuntu"}},
				{ID: 22, Protocol: "tcp", State: nmap.State{State: "open"}},
				{ID: 23, Protocol: "tcp", State: nmap.State{State: "closed"}},
			},
		},
		{
			Status:    nmap.Status{State: "down"},
			Addresses: []nmap.Address{{Addr: "192.168.1.11", AddrType: "ipv4"}},
		},
		{
			Status:    nmap.Status{State: "up"},
			Addresses: []nmap.Address{{Addr: "192.168.1.2", AddrType: "ipv4"}},
		},
		{Status: nmap.Status{State: "up"}},
	}}
}

func TestHostsFromRun(t *testing.T) {
	hosts := hostsFromRun(sampleRun())
	require.Len(t, hosts, 2)
	assert.Equal(t, domain.Host{Address: "192.168.1.2", Up: true}, hosts[0])
	assert.Equal(t, domain.Host{
		Address:   "192.168.1.10",
		Hostname:  "nas.local",
		Up:        true,
		OpenPorts: []int{22, 443},
		MAC:       "AA:BB:CC:DD:EE:FF",
	}, hosts[1])

	assert.Empty(t, hostsFromRun(&nmap.Run{}))
}

func TestProbeFromRun(t *testing.T) {
	probe := probeFromRun(sampleRun(), "192.168.1.10", 443)
	assert.True(t, probe.Open)
	assert.Equal(t, "https", probe.Service)
	assert.Equal(t, "nginx 1.27.0 (Ubuntu)", probe.Banner)
	assert.Equal(t, map[string]string{
		"state":    "open",
		"protocol": "tcp",
		"hostname": "nas.local",
		"product":  "nginx",
		"version":  "1.27.0",
	}, probe.Details)

	probe = probeFromRun(sampleRun(), "192.168.1.10", 22)
	assert.True(t, probe.Open)
	assert.Equal(t, "ssh", probe.Service, "falls back to the well-known name")
	assert.Empty(t, probe.Banner)

	probe = probeFromRun(sampleRun(), "192.168.1.10", 23)
	assert.False(t, probe.Open)
	assert.Equal(t, "closed", probe.Details["state"])

	probe = probeFromRun(sampleRun(), "192.168.1.10", 8080)
	assert.False(t, probe.Open)
	assert.Nil(t, probe.Details)
}

func TestNewNmap(t *testing.T) {
	n, err := NewNmap(adapter.Params{})
	require.NoError(t, err)
	assert.Equal(t, defaultNmapPorts, n.ports)
	assert.True(t, n.serviceDetection)
	assert.False(t, n.skipHostDiscovery)

	n, err = NewNmap(adapter.Params{Options: adapter.Options{
		"ports":               "443,20-22",
		"service_detection":   false,
		"skip_host_discovery": "true",
	}})
	require.NoError(t, err)
	assert.Equal(t, "20,21,22,443", n.ports)
	assert.False(t, n.serviceDetection)
	assert.True(t, n.skipHostDiscovery)

	_, err = NewNmap(adapter.Params{Options: adapter.Options{"ports": "0"}})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestNmapMissingBinary(t *testing.T) {
	n, err := NewNmap(adapter.Params{Options: adapter.Options{"binary": "/nonexistent/nmap"}})
	require.NoError(t, err)

	h := n.HealthCheck(context.Background())
	assert.False(t, h.Healthy)
	assert.Contains(t, h.Message, "nmap unavailable")

	_, err = n.ListHosts(context.Background(), "127.0.0.1")
	assert.ErrorIs(t, err, domain.ErrProvider)

	_, err = n.ListHosts(context.Background(), "10.0.0.0/8")
	assert.ErrorIs(t, err, domain.ErrProvider)

	_, err = n.Probe(context.Background(), "127.0.0.1", 70000)
	assert.ErrorIs(t, err, domain.ErrProvider)
}
