package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"sigs.k8s.io/cli-utils/pkg/object"

	"github.com/shipcat/shipcat/internal/printer"
	"github.com/shipcat/shipcat/internal/reconcile"
)

type reconcileFlags struct {
	globalFlags
	workers int
}

// newClusterCmd builds `shipcat cluster crd reconcile`: the bounded-
// parallelism worker-pool sweep over every service bound to a region
// (spec §4.5).
func newClusterCmd() *cobra.Command {
	rf := &reconcileFlags{}
	reconcileCmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Apply every service bound to a region, installing/updating its ShipcatManifest CRD",
		RunE: runE("cluster crd reconcile", func(cmd *cobra.Command, args []string) error {
			return runReconcileCmd(cmd, rf)
		}),
	}
	reconcileCmd.Flags().IntVarP(&rf.workers, "workers", "j", reconcile.DefaultWorkers, "maximum number of services applied concurrently")

	crdCmd := &cobra.Command{Use: "crd", Short: "CRD schema/instance maintenance"}
	crdCmd.AddCommand(reconcileCmd)

	clusterCmd := &cobra.Command{Use: "cluster", Short: "Cluster-wide maintenance operations"}
	addGlobalFlags(clusterCmd, &rf.globalFlags)
	clusterCmd.AddCommand(crdCmd)
	return clusterCmd
}

func runReconcileCmd(cmd *cobra.Command, rf *reconcileFlags) error {
	if err := rf.requireRegion(); err != nil {
		return err
	}
	log := newLogger()
	defer log.Sync() //nolint:errcheck

	conf, err := rf.loadConfig()
	if err != nil {
		return err
	}
	kubeClient, err := rf.kubeClient()
	if err != nil {
		return err
	}
	store, err := rf.store()
	if err != nil {
		return err
	}

	reconciler := reconcile.New(rf.servicesDir(), rf.configDir(), conf, kubeClient, store, rf.renderer(), log, rf.originator)
	report, err := reconciler.Run(cmd.Context(), rf.region, rf.workers)
	if err != nil {
		for _, o := range report.Failed() {
			printf("%s: FAILED: %s\n", o.Service, o.Err)
		}
		return err
	}
	printReconcileReport(report)
	return nil
}

// printReconcileReport prints one aligned row per outcome: kind/name padded
// to the widest entry, then namespace, then a status word. A service whose
// workload kind is unknown (e.g. skipped before resolution reached the
// manifest) still gets a row, just with an empty kind/namespace.
func printReconcileReport(report reconcile.Report) {
	objs := make([]object.ObjMetadata, len(report.Outcomes))
	for i, o := range report.Outcomes {
		objs[i] = object.ObjMetadata{
			GroupKind: schema.GroupKind{Kind: o.Workload},
			Name:      o.Service,
			Namespace: o.Namespace,
		}
	}
	l := printer.CalcLen(objs)
	for i, o := range report.Outcomes {
		status := "unchanged"
		switch {
		case o.Ignored:
			status = fmt.Sprintf("skipped (%s)", o.Err)
		case o.Applied:
			status = "applied"
		}
		if o.RolledBack {
			status += ", rolled back"
		}
		printf("%s\n", printer.ReportLine(l, objs[i], status))
	}
	printf("reconcile of %s complete: %d services\n", report.Region, len(report.Outcomes))
}
