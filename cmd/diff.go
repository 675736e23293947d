package cmd

import (
	"github.com/spf13/cobra"

	"github.com/shipcat/shipcat/internal/apply"
)

// newDiffCmd builds `shipcat diff <service>`: a DiffOnly apply, printing
// the rendered diff against the cluster without ever touching it.
func newDiffCmd() *cobra.Command {
	gf := &globalFlags{}
	cmd := &cobra.Command{
		Use:   "diff <service>",
		Short: "Show what `shipcat apply` would change, without applying it",
		Args:  cobra.ExactArgs(1),
		RunE: runE("diff", func(cmd *cobra.Command, args []string) error {
			return runDiffCmd(cmd, gf, args[0])
		}),
	}
	addGlobalFlags(cmd, gf)
	return cmd
}

func runDiffCmd(cmd *cobra.Command, gf *globalFlags, service string) error {
	if err := gf.requireRegion(); err != nil {
		return err
	}
	log := newLogger()
	defer log.Sync() //nolint:errcheck

	conf, err := gf.loadConfig()
	if err != nil {
		return err
	}
	kubeClient, err := gf.kubeClient()
	if err != nil {
		return err
	}
	store, err := gf.store()
	if err != nil {
		return err
	}

	applier := apply.New(gf.servicesDir(), gf.configDir(), conf, kubeClient, store, gf.renderer(), log, gf.originator)
	result, err := applier.Apply(cmd.Context(), service, gf.region, apply.Options{Mode: apply.DiffOnly})
	if err != nil {
		return err
	}
	if result.Diff == "" {
		printf("%s: no changes\n", service)
		return nil
	}
	printf("%s\n", result.Diff)
	return nil
}
