package channel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/duopath-network/duopath/pkg/util"
)

// SSHConfig holds the credentials used to reach nodes over SSH. The node's
// management handle is its "host" or "host:port" address.
type SSHConfig struct {
	User        string
	Password    string
	Port        int           // used when the handle carries no port; defaults to 22
	DialTimeout time.Duration // defaults to 10s
}

// SSHChannel executes commands on remote nodes over SSH. One Apply call is
// one SSH connection; each command runs in its own session on it.
type SSHChannel struct {
	cfg SSHConfig
}

// NewSSHChannel returns a channel that dials nodes with the given credentials.
func NewSSHChannel(cfg SSHConfig) *SSHChannel {
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	return &SSHChannel{cfg: cfg}
}

// Apply dials the node and runs the commands in order, stopping at the first
// failure. A dial failure is transport-level and retryable; a command exiting
// non-zero is a rejection and is not.
func (c *SSHChannel) Apply(ctx context.Context, node string, commands []string) (*Response, error) {
	resp := &Response{Node: node}

	addr := node
	if !strings.Contains(addr, ":") {
		addr = fmt.Sprintf("%s:%d", addr, c.cfg.Port)
	}

	config := &ssh.ClientConfig{
		User: c.cfg.User,
		Auth: []ssh.AuthMethod{
			ssh.Password(c.cfg.Password),
		},
		// Lab environment only. Production would verify host keys.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         c.cfg.DialTimeout,
	}

	client, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return resp, util.NewChannelError(node, 1, err)
	}
	defer client.Close()

	for _, command := range commands {
		if err := ctx.Err(); err != nil {
			return resp, util.NewChannelError(node, 1, err)
		}
		output, err := runSession(client, command)
		if err != nil {
			var exitErr *ssh.ExitError
			if errors.As(err, &exitErr) {
				return resp, util.NewRejectedError(node, command, output)
			}
			return resp, util.NewChannelError(node, 1, err)
		}
		resp.Results = append(resp.Results, CommandResult{
			Command: command,
			Output:  strings.TrimRight(output, "\n"),
		})
	}
	return resp, nil
}

// runSession executes one command in a fresh session and returns the
// combined output.
func runSession(client *ssh.Client, command string) (string, error) {
	session, err := client.NewSession()
	if err != nil {
		return "", err
	}
	defer session.Close()

	output, err := session.CombinedOutput(command)
	return string(output), err
}
