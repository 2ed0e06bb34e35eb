package netprobe

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"pai/internal/adapter"
	"pai/internal/domain"
)

// testSSHServer is an in-process SSH server that answers exec requests
// from a fixed table of command outputs
type testSSHServer struct {
	addr    string
	port    int
	hostKey ssh.Signer
}

func newTestSSHServer(t *testing.T, clientKey ssh.PublicKey, outputs map[string]string) *testSSHServer {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	hostKey, err := ssh.NewSignerFromKey(priv)
	require.NoError(t, err)

	config := &ssh.ServerConfig{
		ServerVersion: "SSH-2.0-OpenSSH_9.6",
		PasswordCallback: func(c ssh.ConnMetadata, password []byte) (*ssh.Permissions, error) {
			if c.User() == "pai" && string(password) == "hunter2" {
				return nil, nil
			}
			return nil, errors.New("denied")
		},
		PublicKeyCallback: func(c ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			if clientKey != nil && c.User() == "pai" && bytes.Equal(key.Marshal(), clientKey.Marshal()) {
				return nil, nil
			}
			return nil, errors.New("unknown key")
		},
	}
	config.AddHostKey(hostKey)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go serveSSH(conn, config, outputs)
		}
	}()

	return &testSSHServer{
		addr:    ln.Addr().String(),
		port:    ln.Addr().(*net.TCPAddr).Port,
		hostKey: hostKey,
	}
}

func serveSSH(conn net.Conn, config *ssh.ServerConfig, outputs map[string]string) {
	defer conn.Close()
	_, chans, reqs, err := ssh.NewServerConn(conn, config)
	if err != nil {
		return
	}
	go ssh.DiscardRequests(reqs)

	for nc := range chans {
		if nc.ChannelType() != "session" {
			_ = nc.Reject(ssh.UnknownChannelType, "session only")
			continue
		}
		ch, requests, err := nc.Accept()
		if err != nil {
			continue
		}
		go func() {
			defer ch.Close()
			for req := range requests {
				if req.Type != "exec" {
					_ = req.Reply(false, nil)
					continue
				}
				var payload struct{ Command string }
				if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
					_ = req.Reply(false, nil)
					return
				}
				_ = req.Reply(true, nil)

				status := uint32(0)
				out, ok := outputs[payload.Command]
				if !ok {
					status = 127
				}
				_, _ = io.WriteString(ch, out)
				_, _ = ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{status}))
				return
			}
		}()
	}
}

func factOutputs() map[string]string {
	outputs := map[string]string{}
	for _, cmd := range DefaultFactCommands {
		switch cmd.Name {
		case "hostname":
			outputs[cmd.Command] = "nas.home.lan\n"
		case "os_release":
			outputs[cmd.Command] = "NAME=\"Debian GNU/Linux\"\nID=debian\nVERSION_ID=\"12\"\n"
		case "uname":
			outputs[cmd.Command] = "Linux nas 6.1.0-18-amd64 #1 SMP PREEMPT_DYNAMIC Debian 6.1.76-1 x86_64 GNU/Linux\n"
		case "docker":
			outputs[cmd.Command] = "Docker version 27.1.1, build 6312585\n"
		}
	}
	return outputs
}

func TestNewSSHOptions(t *testing.T) {
	_, err := NewSSH(adapter.Params{Options: adapter.Options{"password": "x"}})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.ErrorContains(t, err, `"user" is required`)

	_, err = NewSSH(adapter.Params{Options: adapter.Options{"user": "pai"}})
	assert.ErrorContains(t, err, "password or private_key is required")

	_, err = NewSSH(adapter.Params{Options: adapter.Options{"user": "pai", "private_key": "not a key"}})
	assert.ErrorContains(t, err, "parse private key")

	_, err = NewSSH(adapter.Params{Options: adapter.Options{"user": "pai", "password": "x", "port": 0}})
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	s, err := NewSSH(adapter.Params{Options: adapter.Options{"user": "pai", "password": "x"}})
	require.NoError(t, err)
	h := s.HealthCheck(context.Background())
	assert.True(t, h.Healthy)
	assert.Equal(t, "credentials configured for pai", h.Message)
}

func TestSSHProbePassword(t *testing.T) {
	srv := newTestSSHServer(t, nil, factOutputs())
	s, err := NewSSH(adapter.Params{Options: adapter.Options{
		"user":     "pai",
		"password": "hunter2",
		"timeout":  "2s",
	}})
	require.NoError(t, err)

	result, err := s.Probe(context.Background(), "127.0.0.1", srv.port)
	require.NoError(t, err)
	assert.True(t, result.Open)
	assert.Equal(t, "ssh", result.Service)
	assert.Equal(t, "SSH-2.0-OpenSSH_9.6", result.Banner)
	assert.Equal(t, "nas.home.lan", result.Details["hostname"])
	assert.Equal(t, "debian", result.Details["os_id"])
	assert.Equal(t, "x86_64", result.Details["architecture"])
	assert.Equal(t, "27.1.1", result.Details["docker_version"])
	assert.Equal(t, "false", result.Details["has_k8s"], "unknown commands still yield parsed output")
	assert.NotContains(t, result.Details, "systemd")
}

func TestSSHProbePrivateKey(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	clientPub, err := ssh.NewPublicKey(pub)
	require.NoError(t, err)
	block, err := ssh.MarshalPrivateKey(priv, "")
	require.NoError(t, err)
	keyFile := filepath.Join(t.TempDir(), "id_ed25519")
	require.NoError(t, os.WriteFile(keyFile, pem.EncodeToMemory(block), 0o600))

	srv := newTestSSHServer(t, clientPub, factOutputs())
	knownHosts := filepath.Join(t.TempDir(), "known_hosts")
	line := knownhosts.Line([]string{srv.addr}, srv.hostKey.PublicKey())
	require.NoError(t, os.WriteFile(knownHosts, []byte(line+"\n"), 0o600))

	s, err := NewSSH(adapter.Params{Options: adapter.Options{
		"user":        "pai",
		"private_key": "file:" + keyFile,
		"known_hosts": knownHosts,
		"health_host": "127.0.0.1",
		"port":        srv.port,
	}})
	require.NoError(t, err)

	result, err := s.Probe(context.Background(), "127.0.0.1", 0)
	require.NoError(t, err)
	assert.True(t, result.Open)
	assert.Equal(t, srv.port, result.Port)

	h := s.HealthCheck(context.Background())
	assert.True(t, h.Healthy, h.Message)
	assert.Equal(t, "login to 127.0.0.1 ok", h.Message)
}

func TestSSHProbeFailures(t *testing.T) {
	srv := newTestSSHServer(t, nil, factOutputs())

	wrong, err := NewSSH(adapter.Params{Options: adapter.Options{"user": "pai", "password": "wrong"}})
	require.NoError(t, err)
	_, err = wrong.Probe(context.Background(), "127.0.0.1", srv.port)
	assert.ErrorIs(t, err, domain.ErrAuthentication)

	other := newTestSSHServer(t, nil, nil)
	knownHosts := filepath.Join(t.TempDir(), "known_hosts")
	line := knownhosts.Line([]string{srv.addr}, other.hostKey.PublicKey())
	require.NoError(t, os.WriteFile(knownHosts, []byte(line+"\n"), 0o600))
	pinned, err := NewSSH(adapter.Params{Options: adapter.Options{
		"user":        "pai",
		"password":    "hunter2",
		"known_hosts": knownHosts,
	}})
	require.NoError(t, err)
	_, err = pinned.Probe(context.Background(), "127.0.0.1", srv.port)
	assert.ErrorContains(t, err, "key mismatch")

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	closed := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	result, err := wrong.Probe(context.Background(), "127.0.0.1", closed)
	require.NoError(t, err)
	assert.False(t, result.Open)
	assert.Contains(t, result.Details, "error")
}

func TestSSHListHosts(t *testing.T) {
	srv := newTestSSHServer(t, nil, nil)
	s, err := NewSSH(adapter.Params{Options: adapter.Options{
		"user":     "pai",
		"password": "hunter2",
		"port":     strconv.Itoa(srv.port),
	}})
	require.NoError(t, err)

	hosts, err := s.ListHosts(context.Background(), "127.0.0.1")
	require.NoError(t, err)
	require.Len(t, hosts, 1)
	assert.Equal(t, []int{srv.port}, hosts[0].OpenPorts)
}
