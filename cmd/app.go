// Package cmd wires shipcat's cobra subcommands (apply, diff, validate,
// status, values/template/crd, get, graph, cluster) onto the manifest
// resolution, applier, reconciler and kube packages. Grounded on the
// teacher's single NewRootCmd-plus-one-file-per-subcommand layout.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shipcat/shipcat/internal/apply"
	"github.com/shipcat/shipcat/internal/config"
	shipcaterrors "github.com/shipcat/shipcat/internal/errors"
	"github.com/shipcat/shipcat/internal/kube"
	"github.com/shipcat/shipcat/internal/logging"
	"github.com/shipcat/shipcat/internal/secrets"
)

// Version is shipcat's own semver, checked against a region's
// minShipcatVersion (spec §4.2).
const Version = "1.0.0"

// globalFlags carries the connection details every subcommand shares:
// where the manifests repo lives, and which region to operate against.
type globalFlags struct {
	manifestDir string
	region      string
	kubeconfig  string
	originator  string
}

func addGlobalFlags(cmd *cobra.Command, g *globalFlags) {
	f := cmd.PersistentFlags()
	f.StringVar(&g.manifestDir, "manifests-dir", envOr("SHIPCAT_MANIFEST_DIR", "."), "root of the manifests repo (services/, charts/, shipcat.conf)")
	f.StringVarP(&g.region, "region", "r", os.Getenv("REGION_NAME"), "region/context to operate against")
	f.StringVar(&g.kubeconfig, "kubeconfig", os.Getenv("KUBECONFIG"), "path to kubeconfig (defaults to in-cluster, then client-go defaults)")
	f.StringVar(&g.originator, "originator", defaultOriginator(), "identity recorded on status conditions")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func defaultOriginator() string {
	if v := os.Getenv("SHIPCAT_AUTOUPGRADE_TOKEN"); v != "" {
		return "autoupgrade"
	}
	if v := os.Getenv("USER"); v != "" {
		return v
	}
	return "shipcat"
}

func (g *globalFlags) servicesDir() string { return filepath.Join(g.manifestDir, "services") }
func (g *globalFlags) configDir() string   { return g.manifestDir }
func (g *globalFlags) chartsDir() string   { return filepath.Join(g.manifestDir, "charts") }
func (g *globalFlags) confPath() string    { return filepath.Join(g.manifestDir, "shipcat.conf") }

// requireRegion fails fast with a clear message when no region was given,
// rather than letting config.FilterFor report an opaque "unknown region".
func (g *globalFlags) requireRegion() error {
	if g.region == "" {
		return shipcaterrors.New(shipcaterrors.InvalidManifest, "", "no region given: pass -r/--region or set REGION_NAME", nil)
	}
	return nil
}

// loadConfig reads and verifies shipcat.conf, per spec §4.2.
func (g *globalFlags) loadConfig() (*config.Config, error) {
	conf, err := config.Load(g.confPath())
	if err != nil {
		return nil, err
	}
	if err := conf.Verify(Version); err != nil {
		return nil, err
	}
	return conf, nil
}

// kubeClient builds a kube.Client, lazily, for the subset of commands that
// actually touch a cluster (apply, diff, status, cluster crd reconcile).
func (g *globalFlags) kubeClient() (*kube.Client, error) {
	return kube.NewClient(g.kubeconfig)
}

// store resolves the secret backend: a live Vault store when VAULT_ADDR and
// VAULT_TOKEN are both set, a Mock store otherwise. Commands that must
// never touch real secrets (validate, values -s) force the Mock
// explicitly rather than calling this.
func (g *globalFlags) store() (secrets.Store, error) {
	addr, token := os.Getenv("VAULT_ADDR"), os.Getenv("VAULT_TOKEN")
	if addr == "" || token == "" {
		return secrets.NewMock(), nil
	}
	mount := envOr("SHIPCAT_VAULT_MOUNT", "secret")
	return secrets.NewVaultStore(addr, token, mount)
}

func (g *globalFlags) renderer() apply.ChartRenderer {
	return apply.NewRenderer(g.chartsDir())
}

func newLogger() *zap.Logger {
	return logging.New()
}

// runE wraps a subcommand's body so cobra prints nothing itself (root
// disables its own usage/error printing) and every failure funnels through
// shipcaterrors.PrintCLI for the spec §7/§8 stderr/CI-chain contract.
func runE(subcommand string, body func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := body(cmd, args); err != nil {
			shipcaterrors.PrintCLI(subcommand, err)
			return silentErr{}
		}
		return nil
	}
}

// silentErr is returned to cobra so it exits non-zero without printing its
// own "Error: ..." line on top of PrintCLI's already-printed message.
type silentErr struct{}

func (silentErr) Error() string { return "" }

func printf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stdout, format, args...)
}
