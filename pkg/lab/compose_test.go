package lab

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type call struct {
	dir  string
	args []string
}

func recordingCompose(responses map[string]string) (*Compose, *[]call) {
	var calls []call
	c := &Compose{Dir: "/lab"}
	c.runner = func(_ context.Context, dir string, args ...string) ([]byte, error) {
		calls = append(calls, call{dir: dir, args: args})
		key := strings.Join(args, " ")
		if out, ok := responses[key]; ok {
			return []byte(out), nil
		}
		return nil, errors.New("no such container")
	}
	return c, &calls
}

func TestUpDownCommands(t *testing.T) {
	c, calls := recordingCompose(map[string]string{
		"compose up -d": "",
		"compose down":  "",
	})

	if err := c.Up(context.Background()); err != nil {
		t.Fatalf("Up: %v", err)
	}
	if err := c.Down(context.Background()); err != nil {
		t.Fatalf("Down: %v", err)
	}

	if len(*calls) != 2 {
		t.Fatalf("calls = %d, want 2", len(*calls))
	}
	if got := strings.Join((*calls)[0].args, " "); got != "compose up -d" {
		t.Errorf("up args = %q", got)
	}
	if (*calls)[0].dir != "/lab" {
		t.Errorf("dir = %q, want /lab", (*calls)[0].dir)
	}
}

func TestUpSurfacesOutputOnFailure(t *testing.T) {
	c := &Compose{Dir: "/lab"}
	c.runner = func(context.Context, string, ...string) ([]byte, error) {
		return []byte("no configuration file provided"), errors.New("exit status 14")
	}

	err := c.Up(context.Background())
	if err == nil || !strings.Contains(err.Error(), "no configuration file provided") {
		t.Errorf("err = %v, want compose output included", err)
	}
}

func TestWaitRunning(t *testing.T) {
	attempts := 0
	c := &Compose{Dir: "/lab"}
	c.runner = func(_ context.Context, _ string, args ...string) ([]byte, error) {
		// r1 comes up on the second poll.
		if args[len(args)-1] == "r1" {
			attempts++
			if attempts < 2 {
				return []byte("false\n"), nil
			}
		}
		return []byte("true\n"), nil
	}

	err := c.WaitRunning(context.Background(), []string{"r1", "r2"}, time.Millisecond)
	if err != nil {
		t.Fatalf("WaitRunning: %v", err)
	}
	if attempts < 2 {
		t.Errorf("r1 polled %d times, want at least 2", attempts)
	}
}

func TestWaitRunningHonorsContext(t *testing.T) {
	c := &Compose{Dir: "/lab"}
	c.runner = func(context.Context, string, ...string) ([]byte, error) {
		return []byte("false\n"), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := c.WaitRunning(ctx, []string{"r1"}, time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want DeadlineExceeded", err)
	}
}
