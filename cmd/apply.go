package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shipcat/shipcat/internal/apply"
)

type applyFlags struct {
	globalFlags
	tag      string
	force    bool
	install  bool
	noWait   bool
	recreate bool
	rollback bool
}

// newApplyCmd builds the `shipcat apply <service>` subcommand: the §4.3
// single-service apply pipeline. Flag combinations map onto one of the
// eight apply.Mode values; the default (no flags) is UpgradeWait.
func newApplyCmd() *cobra.Command {
	af := &applyFlags{}
	cmd := &cobra.Command{
		Use:   "apply <service>",
		Short: "Resolve, render and apply a service's manifest to its region",
		Args:  cobra.ExactArgs(1),
		RunE: runE("apply", func(cmd *cobra.Command, args []string) error {
			return runApplyCmd(cmd.Context(), af, args[0])
		}),
	}
	addGlobalFlags(cmd, &af.globalFlags)
	f := cmd.Flags()
	f.StringVarP(&af.tag, "tag", "t", "", "version/tag to apply (defaults to the manifest's declared version, then the running version)")
	f.BoolVar(&af.force, "force", false, "apply even when the rendered diff is empty")
	f.BoolVar(&af.install, "install", false, "allow creating the service for the first time")
	f.BoolVar(&af.noWait, "no-wait", false, "do not wait for the rollout to converge")
	f.BoolVar(&af.recreate, "recreate", false, "force pod recreation instead of a rolling update")
	f.BoolVar(&af.rollback, "rollback", false, "automatically roll back if the rollout times out")
	return cmd
}

func applyMode(af *applyFlags) apply.Mode {
	switch {
	case af.install && af.noWait:
		return apply.UpgradeInstallNoWait
	case af.install:
		return apply.UpgradeInstallWait
	case af.recreate:
		return apply.UpgradeRecreateWait
	case af.rollback:
		return apply.UpgradeWaitMaybeRollback
	case af.noWait:
		return apply.UpgradeNoWait
	default:
		return apply.UpgradeWait
	}
}

func runApplyCmd(ctx context.Context, af *applyFlags, service string) error {
	if err := af.requireRegion(); err != nil {
		return err
	}
	log := newLogger()
	defer log.Sync() //nolint:errcheck

	conf, err := af.loadConfig()
	if err != nil {
		return err
	}
	kubeClient, err := af.kubeClient()
	if err != nil {
		return err
	}
	store, err := af.store()
	if err != nil {
		return err
	}

	applier := apply.New(af.servicesDir(), af.configDir(), conf, kubeClient, store, af.renderer(), log, af.originator)
	result, err := applier.Apply(ctx, service, af.region, apply.Options{Version: af.tag, Force: af.force, Mode: applyMode(af)})
	if err != nil {
		return err
	}

	printf("%s: %s (upgrade %s)\n", service, result.Outcome, result.UpgradeID)
	if result.Diff != "" {
		printf("%s\n", result.Diff)
	}
	if result.Outcome == apply.Applied && applyMode(af).WaitsForRollout() {
		if result.RolledOut {
			log.Info("rollout complete", zap.String("service", service), zap.String("version", result.Manifest.Version))
		} else {
			log.Warn("rollout did not converge in time", zap.String("service", service), zap.Bool("rolled_back", result.RolledBack))
			return fmt.Errorf("rollout of %s did not converge", service)
		}
	}
	return nil
}
