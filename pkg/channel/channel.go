// Package channel sends ordered command sequences to network nodes and
// captures their output. The contract is transport-agnostic: one Apply call
// is one remote session, commands execute strictly in order, and a failure
// partway reports which commands succeeded.
package channel

import (
	"context"
	"strings"
)

// CommandResult is the captured outcome of a single command.
type CommandResult struct {
	Command string
	Output  string
}

// Response reports the outcome of one Apply call. Results holds an entry for
// every command that ran to completion, in order. When Apply returns an
// error, len(Results) tells the caller how far the sequence got.
type Response struct {
	Node    string
	Results []CommandResult
}

// Completed returns the number of commands that succeeded.
func (r *Response) Completed() int {
	return len(r.Results)
}

// Output returns the concatenated captured output of all completed commands.
func (r *Response) Output() string {
	var sb strings.Builder
	for i, res := range r.Results {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(res.Output)
	}
	return sb.String()
}

// Channel delivers ordered commands to a node identified by its management
// handle. Implementations make no idempotence guarantee: callers must issue
// idempotent commands (absolute assignments, not relative deltas).
//
// Errors are classified through pkg/util sentinels: transport failures
// unwrap to util.ErrChannelUnavailable (retryable), refused commands unwrap
// to util.ErrCommandRejected (never retried).
type Channel interface {
	Apply(ctx context.Context, node string, commands []string) (*Response, error)
}
