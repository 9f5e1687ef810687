package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/duopath-network/duopath/pkg/orch"
)

func newStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show lifecycle state and cost assignment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, cleanup, err := buildRig(cmd, orch.Options{})
			if err != nil {
				return err
			}
			defer cleanup()

			if err := r.orch.Adopt(cmd.Context()); err != nil {
				return err
			}
			status, err := r.orch.Status(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(statusView(status))
			}

			fmt.Printf("lab:    %s\n", r.topo.Name)
			fmt.Printf("state:  %s\n", status.State)
			if status.Coherent {
				fmt.Printf("active: path %s\n", status.Active)
			} else {
				fmt.Println("active: INCOHERENT (run 'duopath reconcile')")
			}
			if status.Intent != nil {
				fmt.Printf("intent: path %s (recorded %s)\n",
					status.Intent.Preference, status.Intent.UpdatedAt.Format("2006-01-02 15:04:05"))
			}

			fmt.Println()
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ROUTER\tINTERFACE\tCOST")
			for _, key := range status.Assignment.Keys() {
				fmt.Fprintf(w, "%s\t%s\t%d\n", key.Router, key.Interface, status.Assignment[key])
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "JSON output")
	return cmd
}

// statusView flattens Status for JSON output.
func statusView(s *orch.Status) map[string]interface{} {
	costs := make(map[string]int, len(s.Assignment))
	for _, key := range s.Assignment.Keys() {
		costs[key.Router+"/"+key.Interface] = s.Assignment[key]
	}
	view := map[string]interface{}{
		"state":    string(s.State),
		"coherent": s.Coherent,
		"costs":    costs,
	}
	if s.Coherent {
		view["active"] = string(s.Active)
	}
	if s.Intent != nil {
		view["intent"] = s.Intent
	}
	return view
}
