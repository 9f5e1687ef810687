package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/duopath-network/duopath/pkg/orch"
	"github.com/duopath-network/duopath/pkg/vtysh"
)

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show routing state from the lab routers",
	}
	cmd.AddCommand(
		newShowRoutesCmd(),
		newShowNeighborsCmd(),
	)
	return cmd
}

// routerQuery runs one vtysh show command on a router (or all routers)
// and prints the raw output.
func routerQuery(cmd *cobra.Command, args []string, query string) error {
	r, cleanup, err := buildRig(cmd, orch.Options{})
	if err != nil {
		return err
	}
	defer cleanup()

	var routers []string
	if len(args) == 1 {
		node, err := r.topo.NodeByID(args[0])
		if err != nil {
			return err
		}
		routers = []string{node.ID}
	} else {
		for _, router := range r.topo.Routers() {
			routers = append(routers, router.ID)
		}
	}

	for _, router := range routers {
		resp, err := r.ch.Apply(cmd.Context(), r.topo.Handle(router), []string{query})
		if err != nil {
			return err
		}
		fmt.Printf("--- %s ---\n%s\n", router, resp.Output())
	}
	return nil
}

func newShowRoutesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes [router]",
		Short: "Show OSPF-learned routes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return routerQuery(cmd, args, vtysh.ShowOSPFRoutes())
		},
	}
}

func newShowNeighborsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "neighbors [router]",
		Short: "Show OSPF adjacencies",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return routerQuery(cmd, args, vtysh.ShowNeighbors())
		},
	}
}
