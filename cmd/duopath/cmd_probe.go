package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/duopath-network/duopath/pkg/orch"
	"github.com/duopath-network/duopath/pkg/topology"
	"github.com/duopath-network/duopath/pkg/vtysh"
)

func newProbeCmd() *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Measure the live traffic path end to end",
		Long: `Run a ping and a traceroute from the source host to the destination
host, report packet loss, and name the path each traceroute hop
belongs to. This is the ground truth the cost assignment only
promises.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, cleanup, err := buildRig(cmd, orch.Options{})
			if err != nil {
				return err
			}
			defer cleanup()

			src, dst := r.topo.Hosts()
			target, err := r.topo.HostAddress(dst.ID)
			if err != nil {
				return err
			}

			resp, err := r.ch.Apply(cmd.Context(), src.Mgmt, []string{vtysh.Ping(target, count)})
			if err != nil {
				return err
			}
			stats, err := vtysh.ParsePingStats(resp.Output())
			if err != nil {
				return fmt.Errorf("parsing ping output: %w", err)
			}
			fmt.Printf("ping %s -> %s: %d/%d received, %.0f%% loss\n",
				src.ID, dst.ID, stats.Received, stats.Transmitted, stats.Loss()*100)

			resp, err = r.ch.Apply(cmd.Context(), src.Mgmt, []string{vtysh.Traceroute(target)})
			if err != nil {
				return err
			}
			hops := vtysh.ParseTracerouteHops(resp.Output())
			if len(hops) == 0 {
				return fmt.Errorf("traceroute returned no hops")
			}

			fmt.Println("route taken:")
			for i, hop := range hops {
				node, path := locateAddress(r.topo, hop)
				label := ""
				if node != "" {
					label = "  " + node
					if path != "" {
						label += fmt.Sprintf(" (path %s)", path)
					}
				}
				fmt.Printf("  %2d  %-15s%s\n", i+1, hop, label)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&count, "count", 4, "ping packet count")
	return cmd
}

// locateAddress finds which node owns an address and, when the address
// sits on a labelled link, which path that link belongs to.
func locateAddress(topo *topology.Topology, addr string) (node string, path topology.Preference) {
	for _, link := range topo.Links {
		for _, ep := range link.Endpoints() {
			if ep.Address == addr {
				return ep.Node, link.Path
			}
		}
	}
	return "", ""
}
