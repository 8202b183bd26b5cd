// Package ssh checks that a BMC accepts SSH logins.
package ssh

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"golang.org/x/crypto/ssh"
)

const (
	DefaultPort    = 22
	defaultTimeout = 10 * time.Second
)

// Probe logs in to the BMC shell and disconnects.
type Probe struct {
	host     string
	port     int
	username string
	password string
	timeout  time.Duration
}

// NewProbe creates a new SSH probe. A zero port means 22.
func NewProbe(host string, port int, username, password string) *Probe {
	if port == 0 {
		port = DefaultPort
	}
	return &Probe{
		host:     host,
		port:     port,
		username: username,
		password: password,
		timeout:  defaultTimeout,
	}
}

// WithTimeout bounds the dial and the handshake.
func (p *Probe) WithTimeout(timeout time.Duration) *Probe {
	p.timeout = timeout
	return p
}

// Login authenticates with the configured password and returns the server
// version banner.
func (p *Probe) Login(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	config := &ssh.ClientConfig{
		User: p.username,
		Auth: []ssh.AuthMethod{
			ssh.Password(p.password),
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // BMC host keys are regenerated on reflash
		Timeout:         p.timeout,
	}

	addr := net.JoinHostPort(p.host, strconv.Itoa(p.port))
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return "", fmt.Errorf("SSH connect to %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		_ = conn.Close()
		return "", fmt.Errorf("SSH login to %s as %s: %w", addr, p.username, err)
	}
	client := ssh.NewClient(c, chans, reqs)
	defer client.Close()

	return string(client.ServerVersion()), nil
}
