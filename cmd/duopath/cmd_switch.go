package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/duopath-network/duopath/pkg/orch"
	"github.com/duopath-network/duopath/pkg/topology"
	"github.com/duopath-network/duopath/pkg/util"
)

func parsePreference(arg string) (topology.Preference, error) {
	p := topology.Preference(strings.ToUpper(arg))
	if !p.Valid() {
		return "", fmt.Errorf("%w: path must be A or B, got %q", util.ErrValidationFailed, arg)
	}
	return p, nil
}

func newSwitchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "switch <A|B>",
		Short: "Make a path the preferred one",
		Long: `Rewrite the OSPF interface costs so the named path carries the
monitored traffic, then wait until both boundary routers' routing
tables confirm it.

The downstream boundary router is mutated first and the upstream one
last. A rejected command rolls the applied mutations back; a
convergence timeout leaves them in place for 'duopath reconcile'.

  duopath switch B`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parsePreference(args[0])
			if err != nil {
				return err
			}

			r, cleanup, err := buildRig(cmd, orch.Options{})
			if err != nil {
				return err
			}
			defer cleanup()

			if err := r.orch.Adopt(cmd.Context()); err != nil {
				return err
			}
			result, err := r.orch.SwitchTo(cmd.Context(), target)
			if err != nil {
				return err
			}

			if result.Noop {
				fmt.Printf("path %s already active\n", target)
				return nil
			}
			fmt.Printf("path %s active: %d cost mutations, converged in %s\n",
				target, len(result.Mutations), result.Duration.Round(time.Millisecond))
			return nil
		},
	}
}

func newReconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Repair state after a crash or partial switch",
		Long: `Read the authoritative costs from the routers. When they coherently
prefer one path, adopt it. When they disagree (an interrupted switch),
force the last recorded intent back on, falling back to the topology's
default preference.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, cleanup, err := buildRig(cmd, orch.Options{})
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := r.orch.Reconcile(cmd.Context())
			if err != nil {
				return err
			}
			if result == nil {
				fmt.Printf("costs coherent, state %s\n", r.orch.State())
				return nil
			}
			fmt.Printf("forced %d cost mutations, state %s\n", len(result.Mutations), r.orch.State())
			return nil
		},
	}
}
