package netprobe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOSRelease(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
		checks  map[string]string
	}{
		{
			name: "ubuntu",
			input: `NAME="Ubuntu"
VERSION="22.04.3 LTS (Jammy Jellyfish)"
ID=ubuntu
ID_LIKE=debian
PRETTY_NAME="Ubuntu 22.04.3 LTS"
VERSION_ID="22.04"
HOME_URL="https://www.ubuntu.com/"`,
			checks: map[string]string{
				"os_name":        "Ubuntu",
				"os_id":          "ubuntu",
				"os_version_id":  "22.04",
				"os_pretty_name": "Ubuntu 22.04.3 LTS",
			},
		},
		{
			name: "debian",
			input: `PRETTY_NAME="Debian GNU/Linux 12 (bookworm)"
NAME="Debian GNU/Linux"
VERSION_ID="12"
VERSION="12 (bookworm)"
ID=debian`,
			checks: map[string]string{
				"os_name":       "Debian GNU/Linux",
				"os_id":         "debian",
				"os_version_id": "12",
				"os_version":    "12 (bookworm)",
			},
		},
		{name: "empty", input: "", wantErr: true},
		{name: "invalid", input: "not a valid os-release file", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			facts, err := parseOSRelease(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			for key, want := range tt.checks {
				assert.Equal(t, want, facts[key], key)
			}
		})
	}
}

func TestParseUname(t *testing.T) {
	facts, err := parseUname("Linux pve 6.8.12-4-pve #1 SMP PREEMPT_DYNAMIC PMX 6.8.12-4 x86_64 GNU/Linux\n")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"kernel_name":    "Linux",
		"kernel_release": "6.8.12-4-pve",
		"architecture":   "x86_64",
	}, facts)

	facts, err = parseUname("Linux pi 6.1.21-v8+ #1642 SMP PREEMPT aarch64 GNU/Linux")
	require.NoError(t, err)
	assert.Equal(t, "aarch64", facts["architecture"])

	_, err = parseUname("Linux")
	assert.Error(t, err)
}

func TestParseHostname(t *testing.T) {
	facts, err := parseHostname("nas.home.lan\n")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"hostname":       "nas.home.lan",
		"hostname_short": "nas",
		"domain":         "home.lan",
	}, facts)

	facts, err = parseHostname("nas")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"hostname": "nas"}, facts)

	_, err = parseHostname("  \n")
	assert.Error(t, err)
}

func TestParseDockerVersion(t *testing.T) {
	facts, err := parseDockerVersion("Docker version 27.1.1, build 6312585\n")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"has_docker": "true", "docker_version": "27.1.1"}, facts)

	facts, err = parseDockerVersion("")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"has_docker": "false"}, facts)
}

func TestParseK8sCheck(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[string]string
	}{
		{
			name: "kubectl",
			input: `clientVersion:
  buildDate: "2024-08-14T10:45:26Z"
  gitVersion: v1.31.0
  major: "1"
kustomizeVersion: v5.4.2`,
			want: map[string]string{"has_k8s": "true", "k8s_distribution": "k8s", "k8s_version": "v1.31.0"},
		},
		{
			name:  "k3s directory",
			input: "config.yaml\nk3s.yaml\n",
			want:  map[string]string{"has_k8s": "true", "k8s_distribution": "k3s"},
		},
		{
			name:  "none",
			input: "",
			want:  map[string]string{"has_k8s": "false"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			facts, err := parseK8sCheck(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, facts)
		})
	}
}

func TestParseSystemctl(t *testing.T) {
	facts, err := parseSystemctl(`cron.service loaded active running Regular background program processing daemon
docker.service loaded active running Docker Application Container Engine
ssh.service loaded active running OpenBSD Secure Shell server`)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"systemd": "true", "running_services": "cron,docker,ssh"}, facts)

	_, err = parseSystemctl("")
	assert.Error(t, err)
}
