package channel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/duopath-network/duopath/pkg/util"
)

// scriptedChannel fails the first n Apply calls with the given error, then
// succeeds.
type scriptedChannel struct {
	failures int
	err      error
	calls    int
}

func (c *scriptedChannel) Apply(ctx context.Context, node string, commands []string) (*Response, error) {
	c.calls++
	if c.calls <= c.failures {
		return &Response{Node: node}, c.err
	}
	resp := &Response{Node: node}
	for _, cmd := range commands {
		resp.Results = append(resp.Results, CommandResult{Command: cmd, Output: "ok"})
	}
	return resp, nil
}

func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond}
}

func TestRetryRecoversFromTransientFailure(t *testing.T) {
	inner := &scriptedChannel{failures: 2, err: util.NewChannelError("r1", 1, errors.New("dial refused"))}
	ch := WithRetry(inner, fastPolicy(4))

	resp, err := ch.Apply(context.Background(), "r1", []string{"a", "b"})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if inner.calls != 3 {
		t.Errorf("calls = %d, want 3", inner.calls)
	}
	if resp.Completed() != 2 {
		t.Errorf("Completed = %d, want 2", resp.Completed())
	}
}

func TestRetryExhaustsAttemptBudget(t *testing.T) {
	inner := &scriptedChannel{failures: 10, err: util.NewChannelError("r1", 1, errors.New("dial refused"))}
	ch := WithRetry(inner, fastPolicy(3))

	_, err := ch.Apply(context.Background(), "r1", []string{"a"})
	if !errors.Is(err, util.ErrChannelUnavailable) {
		t.Fatalf("error = %v, want ErrChannelUnavailable", err)
	}
	if inner.calls != 3 {
		t.Errorf("calls = %d, want 3", inner.calls)
	}
}

func TestRetryDoesNotRetryRejection(t *testing.T) {
	inner := &scriptedChannel{failures: 10, err: util.NewRejectedError("r1", "bad cmd", "syntax error")}
	ch := WithRetry(inner, fastPolicy(5))

	_, err := ch.Apply(context.Background(), "r1", []string{"bad cmd"})
	if !errors.Is(err, util.ErrCommandRejected) {
		t.Fatalf("error = %v, want ErrCommandRejected", err)
	}
	if inner.calls != 1 {
		t.Errorf("calls = %d, want 1 (rejections must not be retried)", inner.calls)
	}
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	inner := &scriptedChannel{failures: 10, err: util.NewChannelError("r1", 1, errors.New("dial refused"))}
	ch := WithRetry(inner, RetryPolicy{MaxAttempts: 5, BaseDelay: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ch.Apply(ctx, "r1", []string{"a"})
	if !errors.Is(err, util.ErrChannelUnavailable) {
		t.Fatalf("error = %v, want ErrChannelUnavailable", err)
	}
	if inner.calls != 1 {
		t.Errorf("calls = %d, want 1", inner.calls)
	}
}
