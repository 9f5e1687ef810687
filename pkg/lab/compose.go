// Package lab manages the container lab's lifecycle through docker
// compose. It shells out to the docker CLI rather than linking the
// daemon API: the lab definition lives in a compose file an operator
// can also drive by hand.
package lab

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/duopath-network/duopath/pkg/util"
)

// Compose drives a docker compose project.
type Compose struct {
	// Dir is the directory holding the compose file.
	Dir string

	// runner executes the docker CLI. Swapped out in tests.
	runner func(ctx context.Context, dir string, args ...string) ([]byte, error)
}

// NewCompose creates a lifecycle manager for the compose project in dir.
func NewCompose(dir string) *Compose {
	return &Compose{Dir: dir, runner: runDocker}
}

func runDocker(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "docker", args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// Up starts all lab containers in the background.
func (c *Compose) Up(ctx context.Context) error {
	util.WithOperation("lab").Info("starting containers")
	output, err := c.runner(ctx, c.Dir, "compose", "up", "-d")
	if err != nil {
		return fmt.Errorf("docker compose up: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Down stops and removes all lab containers.
func (c *Compose) Down(ctx context.Context) error {
	util.WithOperation("lab").Info("stopping containers")
	output, err := c.runner(ctx, c.Dir, "compose", "down")
	if err != nil {
		return fmt.Errorf("docker compose down: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Running reports whether the named container is up.
func (c *Compose) Running(ctx context.Context, node string) (bool, error) {
	output, err := c.runner(ctx, c.Dir, "inspect", "-f", "{{.State.Running}}", node)
	if err != nil {
		return false, nil // not created counts as not running
	}
	return strings.TrimSpace(string(output)) == "true", nil
}

// WaitRunning polls until every named container is up or the context
// expires.
func (c *Compose) WaitRunning(ctx context.Context, nodes []string, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second
	}
	for {
		pending := make([]string, 0, len(nodes))
		for _, node := range nodes {
			up, err := c.Running(ctx, node)
			if err != nil {
				return err
			}
			if !up {
				pending = append(pending, node)
			}
		}
		if len(pending) == 0 {
			return nil
		}
		util.WithOperation("lab").Debugf("waiting for containers: %s", strings.Join(pending, ", "))

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for containers %s: %w", strings.Join(pending, ", "), ctx.Err())
		case <-time.After(interval):
		}
	}
}
