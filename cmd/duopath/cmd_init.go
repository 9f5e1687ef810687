package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/duopath-network/duopath/pkg/orch"
)

func newInitCmd() *cobra.Command {
	var installDaemons bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Start the lab and converge on the default path",
		Long: `Start the lab containers, configure OSPF with the topology's default
costs, install static routes on the edge hosts, and wait until both
boundary routers forward over the default preferred path.

  duopath init                      # containers already ship FRR
  duopath init --install-daemons    # provision FRR first (slow)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, cleanup, err := buildRig(cmd, orch.Options{InstallDaemons: installDaemons})
			if err != nil {
				return err
			}
			defer cleanup()

			if err := r.orch.Initialize(cmd.Context()); err != nil {
				return err
			}
			fmt.Printf("lab %s ready, path %s active\n", r.topo.Name, r.topo.Defaults.PreferredPath)
			return nil
		},
	}

	cmd.Flags().BoolVar(&installDaemons, "install-daemons", false, "install FRR on the routers before configuring")
	return cmd
}

func newDownCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Stop and remove the lab containers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, cleanup, err := buildRig(cmd, orch.Options{})
			if err != nil {
				return err
			}
			defer cleanup()

			if err := r.orch.Stop(cmd.Context()); err != nil {
				return err
			}
			fmt.Printf("lab %s stopped\n", r.topo.Name)
			return nil
		},
	}
}
