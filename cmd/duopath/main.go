// Duopath - deterministic path switching for a dual-path OSPF lab
//
// duopath drives a containerized network with two disjoint router paths
// between a pair of edge hosts. It steers traffic by rewriting OSPF
// interface costs, verifies the routing tables actually converged, and
// recovers coherent state after an interrupted switch.
//
// Usage:
//
//	duopath init                  Start containers, configure OSPF, converge
//	duopath switch A|B            Make a path the preferred one
//	duopath reconcile             Repair state after a crash or partial switch
//	duopath status                Show lifecycle state and cost assignment
//	duopath show costs|routes|neighbors [router]
//	duopath probe [ping|trace]    Measure the live traffic path end to end
//	duopath journal               Show recent switch outcomes
//	duopath audit                 Query the audit log
//	duopath down                  Stop and remove the lab containers
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/duopath-network/duopath/pkg/audit"
	"github.com/duopath-network/duopath/pkg/channel"
	"github.com/duopath-network/duopath/pkg/lab"
	"github.com/duopath-network/duopath/pkg/orch"
	"github.com/duopath-network/duopath/pkg/pathswitch"
	"github.com/duopath-network/duopath/pkg/store"
	"github.com/duopath-network/duopath/pkg/topology"
	"github.com/duopath-network/duopath/pkg/util"
	"github.com/duopath-network/duopath/pkg/verify"
	"github.com/duopath-network/duopath/pkg/version"
)

var (
	topologyPath string
	verbose      bool
	transport    string
	sshUser      string
	sshPassword  string
	redisAddr    string
	labDir       string
	auditPath    string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               "duopath",
	Short:             "Deterministic path switching for a dual-path OSPF lab",
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	Long: `Duopath steers traffic between two disjoint router paths by rewriting
OSPF interface costs, then verifies the routing tables converged.

The lab is described by a YAML topology file (-t, DUOPATH_TOPOLOGY, or
./topology.yaml).

  duopath init
  duopath switch B
  duopath probe`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			return util.SetLogLevel("debug")
		}
		return util.SetLogLevel("info")
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&topologyPath, "topology", "t", "", "topology descriptor file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&transport, "transport", "docker", "command transport: docker or ssh")
	rootCmd.PersistentFlags().StringVar(&sshUser, "ssh-user", "root", "SSH user (ssh transport)")
	rootCmd.PersistentFlags().StringVar(&sshPassword, "ssh-password", "", "SSH password (ssh transport; prompts when empty)")
	rootCmd.PersistentFlags().StringVar(&redisAddr, "redis", "", "redis address for shared intent state (host:port)")
	rootCmd.PersistentFlags().StringVar(&labDir, "lab-dir", ".", "directory holding the compose file")
	rootCmd.PersistentFlags().StringVar(&auditPath, "audit-log", "", "audit log file (JSON lines)")

	rootCmd.AddCommand(
		newInitCmd(),
		newSwitchCmd(),
		newReconcileCmd(),
		newStatusCmd(),
		newShowCmd(),
		newProbeCmd(),
		newJournalCmd(),
		newAuditCmd(),
		newDownCmd(),
		newVersionCmd(),
	)
}

// loadTopology resolves the descriptor from: -t flag > DUOPATH_TOPOLOGY
// env > ./topology.yaml.
func loadTopology() (*topology.Topology, error) {
	path := topologyPath
	if path == "" {
		path = os.Getenv("DUOPATH_TOPOLOGY")
	}
	if path == "" {
		path = "topology.yaml"
	}
	return topology.Load(path)
}

func buildChannel() (channel.Channel, error) {
	var base channel.Channel
	switch transport {
	case "docker":
		base = channel.NewDockerChannel()
	case "ssh":
		password := sshPassword
		if password == "" {
			fmt.Fprint(os.Stderr, "SSH password: ")
			raw, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Fprintln(os.Stderr)
			if err != nil {
				return nil, fmt.Errorf("reading password: %w", err)
			}
			password = string(raw)
		}
		base = channel.NewSSHChannel(channel.SSHConfig{User: sshUser, Password: password})
	default:
		return nil, fmt.Errorf("%w: unknown transport %q", util.ErrInvalidConfig, transport)
	}
	return channel.WithRetry(base, channel.DefaultRetryPolicy), nil
}

// buildStore returns the redis-backed store when --redis is set, the
// in-process store otherwise. Without redis the switch lease only
// guards against concurrent switches inside this process.
func buildStore(cmd *cobra.Command, topo *topology.Topology) (store.Store, error) {
	if redisAddr == "" {
		util.Debug("no redis configured, intent state is process-local")
		return store.NewMemoryStore(), nil
	}
	rs := store.NewRedisStore(redisAddr, topo.Name)
	if err := rs.Connect(cmd.Context()); err != nil {
		return nil, fmt.Errorf("connecting to redis at %s: %w", redisAddr, err)
	}
	return rs, nil
}

func buildAuditor() (audit.Logger, error) {
	if auditPath == "" {
		return audit.NopLogger{}, nil
	}
	return audit.NewFileLogger(auditPath, audit.RotationConfig{
		MaxSize:    10 << 20,
		MaxBackups: 5,
	})
}

// rig bundles everything a command needs, with a cleanup for the
// store and audit backends.
type rig struct {
	topo  *topology.Topology
	ch    channel.Channel
	ctrl  *pathswitch.Controller
	store store.Store
	orch  *orch.Orchestrator
}

func buildRig(cmd *cobra.Command, opts orch.Options) (*rig, func(), error) {
	topo, err := loadTopology()
	if err != nil {
		return nil, nil, err
	}
	ch, err := buildChannel()
	if err != nil {
		return nil, nil, err
	}
	st, err := buildStore(cmd, topo)
	if err != nil {
		return nil, nil, err
	}
	auditor, err := buildAuditor()
	if err != nil {
		st.Close()
		return nil, nil, err
	}

	verifier := verify.New(topo, ch, verify.Config{})
	ctrl := pathswitch.NewController(topo, ch, verifier, pathswitch.Options{})
	life := lab.NewCompose(labDir)
	o := orch.New(topo, ch, ctrl, verifier, life, st, auditor, opts)

	cleanup := func() {
		if err := auditor.Close(); err != nil {
			util.Warnf("closing audit log: %v", err)
		}
		if err := st.Close(); err != nil {
			util.Warnf("closing store: %v", err)
		}
	}
	return &rig{topo: topo, ch: ch, ctrl: ctrl, store: st, orch: o}, cleanup, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			if version.Version == "dev" {
				fmt.Println("duopath dev build (use 'make build' for version info)")
			} else {
				fmt.Printf("duopath %s (%s)\n", version.Version, version.GitCommit)
			}
		},
	}
}
