package cmd

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/shipcat/shipcat/internal/config"
	"github.com/shipcat/shipcat/internal/manifest"
)

type graphFlags struct {
	globalFlags
	dot     bool
	reverse bool
}

// newGraphCmd builds `shipcat graph [<service>]`: prints the service
// dependency graph for a region, or the edges touching a single service
// when one is given. --reverse inverts edge direction (who depends on
// this, instead of what this depends on); --dot emits Graphviz DOT.
func newGraphCmd() *cobra.Command {
	gf := &graphFlags{}
	cmd := &cobra.Command{
		Use:   "graph [<service>]",
		Short: "Print the service dependency graph for a region",
		Args:  cobra.MaximumNArgs(1),
		RunE: runE("graph", func(cmd *cobra.Command, args []string) error {
			var service string
			if len(args) == 1 {
				service = args[0]
			}
			return runGraphCmd(gf, service)
		}),
	}
	addGlobalFlags(cmd, &gf.globalFlags)
	cmd.Flags().BoolVar(&gf.dot, "dot", false, "emit Graphviz DOT instead of a plain edge list")
	cmd.Flags().BoolVar(&gf.reverse, "reverse", false, "invert edges: show what depends on a service, not what it depends on")
	return cmd
}

func runGraphCmd(gf *graphFlags, service string) error {
	if err := gf.requireRegion(); err != nil {
		return err
	}
	conf, err := gf.loadConfig()
	if err != nil {
		return err
	}
	edges, err := buildDependencyEdges(gf, conf)
	if err != nil {
		return err
	}
	if gf.reverse {
		edges = reverseEdges(edges)
	}
	if service != "" {
		edges = filterEdges(edges, service)
	}

	if gf.dot {
		printDOT(edges)
		return nil
	}
	for _, e := range edges {
		printf("%s -> %s\n", e.from, e.to)
	}
	return nil
}

type edge struct{ from, to string }

// buildDependencyEdges resolves every service bound to the region and
// walks each one's declared dependencies, the same O(N) approach the read
// server's ReverseDeps uses against its cache, but run directly over the
// manifest pipeline instead of a CRD cache.
func buildDependencyEdges(gf *graphFlags, conf *config.Config) ([]edge, error) {
	names, err := manifest.ListServices(gf.servicesDir())
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	var edges []edge
	for _, name := range names {
		regions, err := manifest.SourceRegions(gf.servicesDir(), name)
		if err != nil {
			return nil, err
		}
		if !contains(regions, gf.region) {
			continue
		}
		m, _, err := manifest.Resolve(gf.servicesDir(), gf.configDir(), name, gf.region, conf)
		if err != nil {
			return nil, err
		}
		for _, dep := range m.Dependencies {
			edges = append(edges, edge{from: m.Name, to: dep.Name})
		}
	}
	return edges, nil
}

func reverseEdges(in []edge) []edge {
	out := make([]edge, len(in))
	for i, e := range in {
		out[i] = edge{from: e.to, to: e.from}
	}
	return out
}

func filterEdges(in []edge, service string) []edge {
	var out []edge
	for _, e := range in {
		if e.from == service || e.to == service {
			out = append(out, e)
		}
	}
	return out
}

func printDOT(edges []edge) {
	printf("digraph shipcat {\n")
	for _, e := range edges {
		printf("  %q -> %q;\n", e.from, e.to)
	}
	printf("}\n")
}
