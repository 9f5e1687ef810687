package channel

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"

	"github.com/duopath-network/duopath/pkg/util"
)

// dockerDaemonExit is the exit code `docker exec` reserves for its own
// failures (daemon unreachable, container not running), as opposed to the
// exit code of the command inside the container.
const dockerDaemonExit = 125

// DockerChannel executes commands inside containers via `docker exec`.
// The node's management handle is its container name.
type DockerChannel struct {
	// Binary overrides the docker executable path; defaults to "docker".
	Binary string
}

// NewDockerChannel returns a channel backed by the local docker CLI.
func NewDockerChannel() *DockerChannel {
	return &DockerChannel{Binary: "docker"}
}

// Apply runs each command with `docker exec <node> sh -c <cmd>`, in order,
// stopping at the first failure.
func (c *DockerChannel) Apply(ctx context.Context, node string, commands []string) (*Response, error) {
	resp := &Response{Node: node}
	bin := c.Binary
	if bin == "" {
		bin = "docker"
	}

	for _, command := range commands {
		cmd := exec.CommandContext(ctx, bin, "exec", node, "sh", "-c", command)
		var out bytes.Buffer
		cmd.Stdout = &out
		cmd.Stderr = &out

		err := cmd.Run()
		if err != nil {
			return resp, classifyDockerError(node, command, out.String(), err)
		}
		resp.Results = append(resp.Results, CommandResult{
			Command: command,
			Output:  strings.TrimRight(out.String(), "\n"),
		})
		util.WithNode(node).Debugf("ran %q (%d bytes output)", command, out.Len())
	}
	return resp, nil
}

// classifyDockerError separates transport failures (retryable) from commands
// the node itself refused (not retryable).
func classifyDockerError(node, command, output string, err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if exitErr.ExitCode() == dockerDaemonExit || looksUnreachable(output) {
			return util.NewChannelError(node, 1, err)
		}
		return util.NewRejectedError(node, command, output)
	}
	// Failed to launch docker at all: treat as a transport failure.
	return util.NewChannelError(node, 1, err)
}

func looksUnreachable(output string) bool {
	for _, marker := range []string{
		"Cannot connect to the Docker daemon",
		"is not running",
		"No such container",
	} {
		if strings.Contains(output, marker) {
			return true
		}
	}
	return false
}
