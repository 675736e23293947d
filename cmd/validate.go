package cmd

import (
	"github.com/spf13/cobra"

	"github.com/shipcat/shipcat/internal/manifest"
)

type validateFlags struct {
	globalFlags
	stubbed bool
}

// newValidateCmd builds `shipcat validate <service...>`: runs the merge/
// implicits/validate pipeline (spec §4.1 steps 1-5) for each service, and
// with -s additionally renders templates and resolves secrets against the
// mocked store (step 6), catching template and secret-shape errors too.
func newValidateCmd() *cobra.Command {
	vf := &validateFlags{}
	cmd := &cobra.Command{
		Use:   "validate <service...>",
		Short: "Validate one or more service manifests",
		Args:  cobra.MinimumNArgs(1),
		RunE: runE("validate", func(cmd *cobra.Command, args []string) error {
			return runValidateCmd(vf, args)
		}),
	}
	addGlobalFlags(cmd, &vf.globalFlags)
	cmd.Flags().BoolVarP(&vf.stubbed, "stubbed", "s", false, "also template and resolve secrets against the mocked store")
	return cmd
}

func runValidateCmd(vf *validateFlags, services []string) error {
	if err := vf.requireRegion(); err != nil {
		return err
	}
	conf, err := vf.loadConfig()
	if err != nil {
		return err
	}

	for _, svc := range services {
		if vf.stubbed {
			if _, err := manifest.Stub(vf.servicesDir(), vf.configDir(), svc, vf.region, conf); err != nil {
				return err
			}
		} else if _, _, err := manifest.Resolve(vf.servicesDir(), vf.configDir(), svc, vf.region, conf); err != nil {
			return err
		}
		printf("%s: valid\n", svc)
	}
	return nil
}
