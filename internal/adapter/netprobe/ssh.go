package netprobe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"pai/internal/adapter"
	"pai/internal/domain"
)

// SSHName is the ssh adapter name
const SSHName = "ssh"

// SSH is the network provider that reaches hosts over SSH. ListHosts
// sweeps for an open SSH port; Probe logs in and gathers host facts.
//
//	user: admin
//	password: env:SSH_PASSWORD
//	private_key: file:/home/me/.ssh/id_ed25519
//	passphrase: env:SSH_KEY_PASSPHRASE
//	known_hosts: /home/me/.ssh/known_hosts # default: host keys are not verified
//	port: 22
//	timeout: 10s
//	command_timeout: 30s
//	health_host: 192.168.1.10              # optional login check for HealthCheck
type SSH struct {
	name           string
	config         *ssh.ClientConfig
	port           int
	timeout        time.Duration
	commandTimeout time.Duration
	healthHost     string
	commands       []FactCommand
	scanner        *Scanner
	logger         *slog.Logger
}

// NewSSH builds an SSH provider
func NewSSH(p adapter.Params) (*SSH, error) {
	name := p.Name(SSHName)
	config, err := clientConfig(p.Options)
	if err != nil {
		return nil, domain.ConfigurationError(domain.Network, "adapter %s: %v", name, err)
	}

	port := p.Options.Int("port", 22)
	if port < 1 || port > 65535 {
		return nil, domain.ConfigurationError(domain.Network, "adapter %s: invalid port %d", name, port)
	}
	timeout := p.Options.Duration("timeout", 10*time.Second)
	config.Timeout = timeout

	sweep := DefaultScanConfig()
	sweep.DiscoveryPorts = []int{port}
	sweep.ScanPorts = []int{port}
	sweep.Timeout = min(timeout, sweep.Timeout)
	sweep.Concurrency = max(p.Options.Int("concurrency", sweep.Concurrency), 1)

	if !p.Options.Has("known_hosts") {
		p.Log().Warn("ssh host keys are not verified; set known_hosts", "adapter", name)
	}

	return &SSH{
		name:           name,
		config:         config,
		port:           port,
		timeout:        timeout,
		commandTimeout: p.Options.Duration("command_timeout", 30*time.Second),
		healthHost:     p.Options.String("health_host", ""),
		commands:       DefaultFactCommands,
		scanner:        NewScanner(sweep, p.Log()),
		logger:         p.Log(),
	}, nil
}

// clientConfig builds key and/or password authentication
func clientConfig(o adapter.Options) (*ssh.ClientConfig, error) {
	user := o.String("user", "")
	if user == "" {
		return nil, errors.New(`option "user" is required`)
	}

	var auth []ssh.AuthMethod
	key, err := o.Secret("private_key")
	if err != nil {
		return nil, err
	}
	if key != "" {
		passphrase, err := o.Secret("passphrase")
		if err != nil {
			return nil, err
		}
		var signer ssh.Signer
		if passphrase != "" {
			signer, err = ssh.ParsePrivateKeyWithPassphrase([]byte(key), []byte(passphrase))
		} else {
			signer, err = ssh.ParsePrivateKey([]byte(key))
		}
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}

	password, err := o.Secret("password")
	if err != nil {
		return nil, err
	}
	if password != "" {
		auth = append(auth, ssh.Password(password))
	}
	if len(auth) == 0 {
		return nil, errors.New("password or private_key is required")
	}

	hostKey := ssh.InsecureIgnoreHostKey()
	if path := o.String("known_hosts", ""); path != "" {
		if hostKey, err = knownhosts.New(path); err != nil {
			return nil, fmt.Errorf("known_hosts: %w", err)
		}
	}

	return &ssh.ClientConfig{User: user, Auth: auth, HostKeyCallback: hostKey}, nil
}

func (s *SSH) Name() string { return s.name }

// HealthCheck logs in to health_host when set; otherwise it only reports
// the configured credentials
func (s *SSH) HealthCheck(ctx context.Context) domain.HealthStatus {
	if s.healthHost == "" {
		return domain.Healthy(fmt.Sprintf("credentials configured for %s", s.config.User))
	}
	start := time.Now()
	client, err := s.connect(ctx, s.healthHost, s.port)
	if err != nil {
		return domain.Unhealthy("%v", s.wrap(err))
	}
	client.Close()
	status := domain.Healthy("login to " + s.healthHost + " ok")
	status.Latency = time.Since(start)
	return status
}

// ListHosts returns the hosts in target with the SSH port open
func (s *SSH) ListHosts(ctx context.Context, target string) ([]domain.Host, error) {
	addrs, err := expandTarget(target)
	if err != nil {
		return nil, targetError(s.name, err)
	}
	hosts, err := s.scanner.Sweep(ctx, addrs)
	if err != nil {
		return nil, targetError(s.name, err)
	}
	return hosts, nil
}

// Probe logs in to host:port and runs the fact commands. A closed port is
// reported as a result, a rejected login as an authentication error.
func (s *SSH) Probe(ctx context.Context, host string, port int) (*domain.ProbeResult, error) {
	if port == 0 {
		port = s.port
	}
	result := &domain.ProbeResult{Host: host, Port: port}

	start := time.Now()
	client, err := s.connect(ctx, host, port)
	result.Latency = time.Since(start)
	if err != nil {
		var opErr *net.OpError
		if errors.As(err, &opErr) && opErr.Op == "dial" {
			result.Details = map[string]string{"error": opErr.Err.Error()}
			return result, nil
		}
		return nil, s.wrap(err)
	}
	defer client.Close()

	result.Open = true
	result.Service = "ssh"
	result.Banner = string(client.ServerVersion())
	result.Details = s.gatherFacts(ctx, client, host)
	return result, nil
}

func (s *SSH) connect(ctx context.Context, host string, port int) (*ssh.Client, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	dialer := &net.Dialer{Timeout: s.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(s.timeout))
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, s.config)
	if err != nil {
		conn.Close()
		return nil, err
	}
	_ = conn.SetDeadline(time.Time{})
	return ssh.NewClient(sshConn, chans, reqs), nil
}

func (s *SSH) gatherFacts(ctx context.Context, client *ssh.Client, host string) map[string]string {
	facts := make(map[string]string)
	for _, cmd := range s.commands {
		output, err := s.runCommand(ctx, client, cmd.Command)
		if err != nil {
			s.logger.Debug("fact command failed", "host", host, "fact", cmd.Name, "error", err)
			continue
		}
		parsed, err := cmd.Parse(output)
		if err != nil {
			s.logger.Debug("fact parse failed", "host", host, "fact", cmd.Name, "error", err)
			continue
		}
		maps.Copy(facts, parsed)
	}
	return facts
}

// runCommand returns the combined output of cmd. A non-zero exit status
// still yields the output.
func (s *SSH) runCommand(ctx context.Context, client *ssh.Client, cmd string) (string, error) {
	session, err := client.NewSession()
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	defer session.Close()

	ctx, cancel := context.WithTimeout(ctx, s.commandTimeout)
	defer cancel()

	type result struct {
		output []byte
		err    error
	}
	done := make(chan result, 1)
	go func() {
		out, err := session.CombinedOutput(cmd)
		done <- result{out, err}
	}()

	select {
	case r := <-done:
		var exitErr *ssh.ExitError
		if r.err != nil && !errors.As(r.err, &exitErr) {
			return "", fmt.Errorf("command failed: %w", r.err)
		}
		return string(r.output), nil
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		return "", fmt.Errorf("command %q: %w", cmd, ctx.Err())
	}
}

// wrap maps rejected credentials and unknown host keys to authentication
// errors
func (s *SSH) wrap(err error) error {
	var keyErr *knownhosts.KeyError
	if errors.As(err, &keyErr) || strings.Contains(err.Error(), "unable to authenticate") {
		return domain.AuthenticationFailed(domain.Network, s.name, err)
	}
	return domain.ProviderFailed(domain.Network, s.name, err)
}
