package channel

import (
	"context"
	"errors"
	"time"

	"github.com/duopath-network/duopath/pkg/util"
)

// RetryPolicy bounds the retry behavior for transient transport failures.
type RetryPolicy struct {
	MaxAttempts int           // total attempts including the first
	BaseDelay   time.Duration // delay before the second attempt; doubles each retry
	MaxDelay    time.Duration // backoff ceiling
}

// DefaultRetryPolicy matches the control loop's tolerance for a node that is
// briefly unreachable: four attempts, 500ms/1s/2s pauses.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 4,
	BaseDelay:   500 * time.Millisecond,
	MaxDelay:    5 * time.Second,
}

// retryChannel wraps another channel with bounded exponential backoff.
// Only transport failures are retried; rejected commands surface immediately.
type retryChannel struct {
	inner  Channel
	policy RetryPolicy
}

// WithRetry wraps ch so that Apply retries on util.ErrChannelUnavailable.
// Since callers are required to issue idempotent commands, the whole ordered
// sequence is re-issued on retry.
func WithRetry(ch Channel, policy RetryPolicy) Channel {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &retryChannel{inner: ch, policy: policy}
}

func (c *retryChannel) Apply(ctx context.Context, node string, commands []string) (*Response, error) {
	delay := c.policy.BaseDelay
	var resp *Response
	var err error

	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		resp, err = c.inner.Apply(ctx, node, commands)
		if err == nil || !errors.Is(err, util.ErrChannelUnavailable) {
			return resp, err
		}
		if attempt == c.policy.MaxAttempts {
			break
		}

		util.WithNode(node).Warnf("unreachable (attempt %d/%d), retrying in %s",
			attempt, c.policy.MaxAttempts, delay)
		select {
		case <-ctx.Done():
			return resp, util.NewChannelError(node, attempt, ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
		if c.policy.MaxDelay > 0 && delay > c.policy.MaxDelay {
			delay = c.policy.MaxDelay
		}
	}

	return resp, util.NewChannelError(node, c.policy.MaxAttempts, err)
}
