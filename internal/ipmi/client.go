// Package ipmi reads chassis state from a BMC over IPMI 2.0 using bougou/go-ipmi.
package ipmi

import (
	"context"
	"fmt"
	"time"

	goipmi "github.com/bougou/go-ipmi"
)

const (
	DefaultPort    = 623
	defaultTimeout = 10 * time.Second
)

// Client opens a short-lived RMCP+ session per call.
type Client struct {
	host     string
	port     int
	username string
	password string
	timeout  time.Duration
}

// NewClient creates a new IPMI client. A zero port means 623.
func NewClient(host string, port int, username, password string) *Client {
	if port == 0 {
		port = DefaultPort
	}
	return &Client{
		host:     host,
		port:     port,
		username: username,
		password: password,
		timeout:  defaultTimeout,
	}
}

// WithTimeout bounds each session, connect included.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.timeout = timeout
	return c
}

// ChassisStatus is the subset of Get Chassis Status reported by the API.
type ChassisStatus struct {
	PowerOn bool `json:"powerOn"`
}

func (c *Client) connect(ctx context.Context) (*goipmi.Client, error) {
	client, err := goipmi.NewClient(c.host, c.port, c.username, c.password)
	if err != nil {
		return nil, fmt.Errorf("creating IPMI client: %w", err)
	}

	client.WithInterface(goipmi.InterfaceLanplus).WithTimeout(c.timeout)

	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("IPMI connect to %s:%d: %w", c.host, c.port, err)
	}

	return client, nil
}

// ChassisStatus returns the chassis power state. A successful call also
// proves IPMI over LAN is enabled on the BMC.
func (c *Client) ChassisStatus(ctx context.Context) (*ChassisStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	client, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer client.Close(ctx) //nolint:errcheck

	status, err := client.GetChassisStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("IPMI chassis status: %w", err)
	}

	return &ChassisStatus{PowerOn: status.PowerIsOn}, nil
}
