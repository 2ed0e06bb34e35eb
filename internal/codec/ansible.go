package codec

import (
	"fmt"
	"io"
	"slices"

	"gopkg.in/yaml.v3"

	"pai/internal/domain"
)

// AnsibleCodec writes discovered hosts as an Ansible inventory. Hosts are
// grouped by the services their open ports suggest.
type AnsibleCodec struct{}

// NewAnsibleCodec creates a new Ansible codec
func NewAnsibleCodec() *AnsibleCodec {
	return &AnsibleCodec{}
}

// Format returns the codec format identifier
func (c *AnsibleCodec) Format() string {
	return "ansible-inventory"
}

// ansibleInventory represents the Ansible inventory structure
type ansibleInventory struct {
	All ansibleGroup `yaml:"all"`
}

type ansibleGroup struct {
	Hosts    map[string]ansibleHost     `yaml:"hosts,omitempty"`
	Children map[string]ansibleGroupDef `yaml:"children,omitempty"`
}

type ansibleGroupDef struct {
	Hosts map[string]ansibleHost `yaml:"hosts"`
}

type ansibleHost struct {
	AnsibleHost string `yaml:"ansible_host,omitempty"`
	MAC         string `yaml:"mac_address,omitempty"`
	OpenPorts   []int  `yaml:"open_ports,omitempty"`
}

// portGroups maps a well-known port to an inventory group
var portGroups = map[int]string{
	22:    "ssh",
	80:    "web",
	443:   "web",
	5432:  "postgres",
	6443:  "kubernetes",
	9090:  "prometheus",
	9100:  "node_exporter",
	10250: "kubernetes",
}

// Encode writes v, which must be []domain.Host, as an inventory
func (c *AnsibleCodec) Encode(w io.Writer, v any) error {
	hosts, ok := v.([]domain.Host)
	if !ok {
		return fmt.Errorf("ansible-inventory: %T: %w", v, ErrUnsupported)
	}

	inv := ansibleInventory{
		All: ansibleGroup{
			Hosts:    make(map[string]ansibleHost),
			Children: make(map[string]ansibleGroupDef),
		},
	}

	for _, h := range hosts {
		if !h.Up {
			continue
		}
		name := h.Hostname
		if name == "" {
			name = h.Address
		}
		host := ansibleHost{MAC: h.MAC, OpenPorts: slices.Clone(h.OpenPorts)}
		if name != h.Address {
			host.AnsibleHost = h.Address
		}
		inv.All.Hosts[name] = host

		for _, port := range h.OpenPorts {
			group, ok := portGroups[port]
			if !ok {
				continue
			}
			if inv.All.Children[group].Hosts == nil {
				inv.All.Children[group] = ansibleGroupDef{Hosts: make(map[string]ansibleHost)}
			}
			// group membership only; vars live under all.hosts
			inv.All.Children[group].Hosts[name] = ansibleHost{}
		}
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(&inv); err != nil {
		return fmt.Errorf("failed to encode Ansible inventory: %w", err)
	}

	return nil
}
