package cmd

import (
	"context"
	"os"
	"sort"

	"github.com/aquasecurity/table"
	"github.com/spf13/cobra"

	"github.com/shipcat/shipcat/internal/apply"
	shipcaterrors "github.com/shipcat/shipcat/internal/errors"
	"github.com/shipcat/shipcat/internal/kube"
	"github.com/shipcat/shipcat/internal/manifest"
)

// newGetCmd builds `shipcat get <versions|images|codeowners|apistatus|
// clusterinfo|vault-url>`, the read-only fleet-inspection subcommands.
func newGetCmd() *cobra.Command {
	gf := &globalFlags{}
	cmd := &cobra.Command{Use: "get", Short: "Inspect fleet-wide or region-wide state"}
	addGlobalFlags(cmd, gf)

	cmd.AddCommand(&cobra.Command{
		Use:   "versions",
		Short: "List every service's currently deployed version",
		RunE:  runE("get versions", func(cmd *cobra.Command, args []string) error { return getFromCRDs(cmd.Context(), gf, "Version") }),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "images",
		Short: "List every service's currently deployed image",
		RunE:  runE("get images", func(cmd *cobra.Command, args []string) error { return getFromCRDs(cmd.Context(), gf, "Image") }),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "codeowners",
		Short: "List every service's owning team and contacts",
		RunE:  runE("get codeowners", func(cmd *cobra.Command, args []string) error { return getCodeowners(gf) }),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "apistatus",
		Short: "Print the cluster's discovered API server version",
		RunE:  runE("get apistatus", func(cmd *cobra.Command, args []string) error { return getAPIStatus(gf) }),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clusterinfo",
		Short: "Print the cluster serving a region",
		RunE:  runE("get clusterinfo", func(cmd *cobra.Command, args []string) error { return getClusterInfo(gf) }),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "vault-url",
		Short: "Print a region's Vault URL",
		RunE:  runE("get vault-url", func(cmd *cobra.Command, args []string) error { return getVaultURL(gf) }),
	})
	return cmd
}

// getFromCRDs lists every ShipcatManifest CRD in the region and prints the
// requested field ("Version" or "Image") per service, reading the same
// CRD body persistManifestCRD writes.
func getFromCRDs(ctx context.Context, gf *globalFlags, field string) error {
	if err := gf.requireRegion(); err != nil {
		return err
	}
	conf, err := gf.loadConfig()
	if err != nil {
		return err
	}
	region, ok := conf.Regions[gf.region]
	if !ok {
		return shipcaterrors.New(shipcaterrors.InvalidManifest, gf.region, "unknown region", nil)
	}
	kubeClient, err := gf.kubeClient()
	if err != nil {
		return err
	}
	list, err := kubeClient.List(ctx, kube.ShipcatManifestGVK, region.Namespace, "")
	if err != nil {
		return err
	}

	t := table.New(os.Stdout)
	t.SetHeaders("Service", field)
	names := make([]string, 0, len(list.Items))
	values := make(map[string]string, len(list.Items))
	for _, obj := range list.Items {
		m, err := apply.FromCRD(&obj)
		if err != nil {
			continue
		}
		names = append(names, m.Name)
		if field == "Image" {
			values[m.Name] = m.Image
		} else {
			values[m.Name] = m.Version
		}
	}
	sort.Strings(names)
	for _, n := range names {
		t.AddRow(n, values[n])
	}
	t.Render()
	return nil
}

func getCodeowners(gf *globalFlags) error {
	if err := gf.requireRegion(); err != nil {
		return err
	}
	conf, err := gf.loadConfig()
	if err != nil {
		return err
	}
	names, err := manifest.ListServices(gf.servicesDir())
	if err != nil {
		return err
	}
	sort.Strings(names)

	t := table.New(os.Stdout)
	t.SetHeaders("Service", "Team", "Contacts")
	for _, name := range names {
		regions, err := manifest.SourceRegions(gf.servicesDir(), name)
		if err != nil {
			return err
		}
		if !contains(regions, gf.region) {
			continue
		}
		m, _, err := manifest.Resolve(gf.servicesDir(), gf.configDir(), name, gf.region, conf)
		if err != nil {
			return err
		}
		var team, contacts string
		if m.Metadata != nil {
			team = m.Metadata.Team
			contacts = joinComma(m.Metadata.Contacts)
		}
		t.AddRow(name, team, contacts)
	}
	t.Render()
	return nil
}

func getAPIStatus(gf *globalFlags) error {
	kubeClient, err := gf.kubeClient()
	if err != nil {
		return err
	}
	v, err := kubeClient.Clientset.Discovery().ServerVersion()
	if err != nil {
		return shipcaterrors.New(shipcaterrors.KubeAPIFailure, "", "failed to query API server version", err)
	}
	printf("%s (platform %s)\n", v.GitVersion, v.Platform)
	return nil
}

func getClusterInfo(gf *globalFlags) error {
	if err := gf.requireRegion(); err != nil {
		return err
	}
	conf, err := gf.loadConfig()
	if err != nil {
		return err
	}
	cl, err := conf.ResolveCluster(gf.region, "")
	if err != nil {
		return err
	}
	printf("cluster=%s apiUrl=%s regions=%v\n", cl.Name, cl.APIURL, cl.Regions)
	return nil
}

func getVaultURL(gf *globalFlags) error {
	if err := gf.requireRegion(); err != nil {
		return err
	}
	conf, err := gf.loadConfig()
	if err != nil {
		return err
	}
	region, ok := conf.Regions[gf.region]
	if !ok {
		return shipcaterrors.New(shipcaterrors.InvalidManifest, gf.region, "unknown region", nil)
	}
	printf("%s\n", region.VaultURL)
	return nil
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

func joinComma(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}
