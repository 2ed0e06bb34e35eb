package netprobe

import (
	"fmt"
	"strings"
)

// FactCommand is a command run over SSH whose output becomes host facts
type FactCommand struct {
	Name    string
	Command string
	Parse   func(output string) (map[string]string, error)
}

// DefaultFactCommands gather identity, OS and runtime facts
var DefaultFactCommands = []FactCommand{
	{Name: "hostname", Command: "hostname -f 2>/dev/null || hostname", Parse: parseHostname},
	{Name: "os_release", Command: "cat /etc/os-release 2>/dev/null", Parse: parseOSRelease},
	{Name: "uname", Command: "uname -a", Parse: parseUname},
	{Name: "docker", Command: "docker --version 2>/dev/null", Parse: parseDockerVersion},
	{Name: "k8s", Command: "kubectl version --client=true --output=yaml 2>/dev/null || ls /etc/rancher/k3s 2>/dev/null", Parse: parseK8sCheck},
	{Name: "systemd", Command: "systemctl list-units --type=service --state=running --no-legend --plain 2>/dev/null | head -50", Parse: parseSystemctl},
}

func parseHostname(output string) (map[string]string, error) {
	hostname := strings.TrimSpace(output)
	if hostname == "" {
		return nil, fmt.Errorf("empty hostname")
	}
	facts := map[string]string{"hostname": hostname}
	if short, domain, ok := strings.Cut(hostname, "."); ok && short != "" {
		facts["hostname_short"] = short
		facts["domain"] = domain
	}
	return facts, nil
}

// parseOSRelease reads KEY=value lines from /etc/os-release
func parseOSRelease(output string) (map[string]string, error) {
	release := make(map[string]string)
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		release[strings.TrimSpace(key)] = strings.Trim(strings.TrimSpace(value), `"'`)
	}
	if len(release) == 0 {
		return nil, fmt.Errorf("no OS information found")
	}

	facts := make(map[string]string)
	for key, fact := range map[string]string{
		"NAME":        "os_name",
		"VERSION":     "os_version",
		"ID":          "os_id",
		"VERSION_ID":  "os_version_id",
		"PRETTY_NAME": "os_pretty_name",
	} {
		if v, ok := release[key]; ok {
			facts[fact] = v
		}
	}
	return facts, nil
}

// parseUname reads `uname -a`:
// Linux host 5.15.0-76-generic #83-Ubuntu SMP ... x86_64 GNU/Linux
func parseUname(output string) (map[string]string, error) {
	output = strings.TrimSpace(output)
	parts := strings.Fields(output)
	if len(parts) < 3 {
		return nil, fmt.Errorf("invalid uname output format")
	}
	facts := map[string]string{
		"kernel_name":    parts[0],
		"kernel_release": parts[2],
	}
	for i := len(parts) - 1; i >= 0 && facts["architecture"] == ""; i-- {
		switch parts[i] {
		case "x86_64", "aarch64", "armv7l", "riscv64":
			facts["architecture"] = parts[i]
		}
	}
	return facts, nil
}

// parseDockerVersion reads "Docker version 27.1.1, build 6312585"
func parseDockerVersion(output string) (map[string]string, error) {
	facts := map[string]string{"has_docker": "false"}
	parts := strings.Fields(output)
	for i, part := range parts {
		if part == "version" && i+1 < len(parts) {
			facts["has_docker"] = "true"
			facts["docker_version"] = strings.TrimSuffix(parts[i+1], ",")
			break
		}
	}
	return facts, nil
}

// parseK8sCheck accepts kubectl's YAML version output or a k3s config listing
func parseK8sCheck(output string) (map[string]string, error) {
	output = strings.TrimSpace(output)
	facts := map[string]string{"has_k8s": "false"}
	switch {
	case output == "":
	case strings.Contains(output, "clientVersion") || strings.Contains(output, "gitVersion"):
		facts["has_k8s"] = "true"
		facts["k8s_distribution"] = "k8s"
		for _, line := range strings.Split(output, "\n") {
			key, value, ok := strings.Cut(strings.TrimSpace(line), ":")
			if ok && key == "gitVersion" {
				facts["k8s_version"] = strings.Trim(strings.TrimSpace(value), `"`)
				break
			}
		}
	case strings.Contains(output, "k3s"):
		facts["has_k8s"] = "true"
		facts["k8s_distribution"] = "k3s"
	}
	return facts, nil
}

// parseSystemctl lists running units from `systemctl list-units --plain`
func parseSystemctl(output string) (map[string]string, error) {
	output = strings.TrimSpace(output)
	if output == "" {
		return nil, fmt.Errorf("empty systemctl output")
	}
	var services []string
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) > 0 && strings.HasSuffix(fields[0], ".service") {
			services = append(services, strings.TrimSuffix(fields[0], ".service"))
		}
	}
	facts := map[string]string{"systemd": "true"}
	if len(services) > 0 {
		facts["running_services"] = strings.Join(services, ",")
	}
	return facts, nil
}
