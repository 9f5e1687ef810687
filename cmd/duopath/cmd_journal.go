package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/duopath-network/duopath/pkg/audit"
	"github.com/duopath-network/duopath/pkg/orch"
)

func newJournalCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Show recent switch outcomes",
		Long: `List the most recent switch attempts and how they ended: committed,
rolled-back, inconsistent, or noop. With --redis the journal is shared
across machines; without it only this invocation's history exists.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, cleanup, err := buildRig(cmd, orch.Options{})
			if err != nil {
				return err
			}
			defer cleanup()

			entries, err := r.store.Journal(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("no switch history")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "WHEN\tFROM\tTO\tOUTCOME\tDETAIL")
			for _, e := range entries {
				from := string(e.From)
				if from == "" {
					from = "?"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					e.Timestamp.Format("2006-01-02 15:04:05"), from, e.To, e.Outcome, e.Detail)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "max entries to show")
	return cmd
}

func newAuditCmd() *cobra.Command {
	var (
		operation  string
		failedOnly bool
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Query the audit log",
		Long: `Query the JSON-lines audit log written when --audit-log is set.

  duopath --audit-log duopath-audit.log audit --failed`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if auditPath == "" {
				return fmt.Errorf("audit log not configured: pass --audit-log")
			}
			logger, err := audit.NewFileLogger(auditPath, audit.RotationConfig{})
			if err != nil {
				return err
			}
			defer logger.Close()

			events, err := logger.Query(audit.Filter{
				Operation:   operation,
				FailureOnly: failedOnly,
				Limit:       limit,
			})
			if err != nil {
				return err
			}
			if len(events) == 0 {
				fmt.Println("no matching events")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "WHEN\tUSER\tOPERATION\tPATHS\tOK\tERROR")
			for _, e := range events {
				paths := ""
				if e.ToPath != "" {
					paths = e.FromPath + ">" + e.ToPath
				}
				ok := "yes"
				if !e.Success {
					ok = "no"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					e.Timestamp.Format("2006-01-02 15:04:05"), e.User, e.Operation, paths, ok, e.Error)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&operation, "op", "", "filter by operation (initialize, switch, reconcile, teardown)")
	cmd.Flags().BoolVar(&failedOnly, "failed", false, "only failed operations")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "max events to show")
	return cmd
}
