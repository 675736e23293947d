package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/shipcat/shipcat/internal/apply"
	"github.com/shipcat/shipcat/internal/config"
	shipcaterrors "github.com/shipcat/shipcat/internal/errors"
	"github.com/shipcat/shipcat/internal/manifest"
)

type renderFlags struct {
	globalFlags
	stubbed bool
}

func addRenderFlags(cmd *cobra.Command, rf *renderFlags) {
	addGlobalFlags(cmd, &rf.globalFlags)
	cmd.Flags().BoolVarP(&rf.stubbed, "stubbed", "s", false, "resolve against the mocked secret store instead of the real one")
}

// resolveCompleted runs the full §4.1 pipeline through step 6, stubbed or
// completed depending on rf.stubbed, for every output subcommand.
func (rf *renderFlags) resolveCompleted(service string) (*manifest.Manifest, *config.Region, error) {
	conf, err := rf.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	region, ok := conf.Regions[rf.region]
	if !ok {
		return nil, nil, shipcaterrors.New(shipcaterrors.InvalidManifest, rf.region, "unknown region", nil)
	}
	if rf.stubbed {
		m, err := manifest.Stub(rf.servicesDir(), rf.configDir(), service, rf.region, conf)
		if err != nil {
			return nil, nil, err
		}
		return m, &region, nil
	}
	store, err := rf.store()
	if err != nil {
		return nil, nil, err
	}
	m, err := manifest.Complete(rf.servicesDir(), rf.configDir(), service, rf.region, conf, store)
	if err != nil {
		return nil, nil, err
	}
	return m, &region, nil
}

// newValuesCmd builds `shipcat values <service>`: prints the resolved
// manifest in the same shape WriteValuesFile hands the chart renderer.
func newValuesCmd() *cobra.Command {
	rf := &renderFlags{}
	cmd := &cobra.Command{
		Use:   "values <service>",
		Short: "Print the resolved helm values for a service",
		Args:  cobra.ExactArgs(1),
		RunE: runE("values", func(cmd *cobra.Command, args []string) error {
			if err := rf.requireRegion(); err != nil {
				return err
			}
			m, _, err := rf.resolveCompleted(args[0])
			if err != nil {
				return err
			}
			raw, err := yaml.Marshal(m)
			if err != nil {
				return err
			}
			os.Stdout.Write(raw)
			return nil
		}),
	}
	addRenderFlags(cmd, rf)
	return cmd
}

// newTemplateCmd builds `shipcat template <service>`: renders the final
// Kubernetes objects through the chart renderer subprocess and prints them.
func newTemplateCmd() *cobra.Command {
	rf := &renderFlags{}
	cmd := &cobra.Command{
		Use:   "template <service>",
		Short: "Render a service's chart to Kubernetes manifests",
		Args:  cobra.ExactArgs(1),
		RunE: runE("template", func(cmd *cobra.Command, args []string) error {
			return runTemplateCmd(cmd.Context(), rf, args[0])
		}),
	}
	addRenderFlags(cmd, rf)
	return cmd
}

func runTemplateCmd(ctx context.Context, rf *renderFlags, service string) error {
	if err := rf.requireRegion(); err != nil {
		return err
	}
	m, region, err := rf.resolveCompleted(service)
	if err != nil {
		return err
	}
	valuesPath, err := apply.WriteValuesFile(m)
	if err != nil {
		return err
	}
	defer os.Remove(valuesPath)

	objs, err := rf.renderer().Render(ctx, m, region, valuesPath)
	if err != nil {
		return err
	}
	for i, obj := range objs {
		if i > 0 {
			printf("---\n")
		}
		raw, err := yaml.Marshal(obj.Object)
		if err != nil {
			return err
		}
		os.Stdout.Write(raw)
	}
	return nil
}

// newCRDCmd builds `shipcat crd <service>`: prints the ShipcatManifest CRD
// body apply.Apply would server-side-apply for this service.
func newCRDCmd() *cobra.Command {
	rf := &renderFlags{}
	cmd := &cobra.Command{
		Use:   "crd <service>",
		Short: "Print the ShipcatManifest CRD body for a service",
		Args:  cobra.ExactArgs(1),
		RunE: runE("crd", func(cmd *cobra.Command, args []string) error {
			if err := rf.requireRegion(); err != nil {
				return err
			}
			m, region, err := rf.resolveCompleted(args[0])
			if err != nil {
				return err
			}
			obj, err := apply.ToCRD(m, region.Namespace)
			if err != nil {
				return err
			}
			raw, err := yaml.Marshal(obj.Object)
			if err != nil {
				return err
			}
			os.Stdout.Write(raw)
			return nil
		}),
	}
	addRenderFlags(cmd, rf)
	return cmd
}
