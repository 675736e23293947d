// Command shipcat is the declarative deployment orchestrator's CLI:
// manifest resolution, apply, diff, validate, status and fleet-wide
// reconciliation against a multi-region Kubernetes cluster.
package main

import (
	"os"

	"github.com/shipcat/shipcat/cmd"
)

func main() {
	root := cmd.NewRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
