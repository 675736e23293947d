package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/shipcat/shipcat/internal/apply"
	shipcaterrors "github.com/shipcat/shipcat/internal/errors"
	"github.com/shipcat/shipcat/internal/kube"
	"github.com/shipcat/shipcat/internal/rollout"
	"github.com/shipcat/shipcat/internal/status"
)

type statusFlags struct {
	globalFlags
	pods bool
}

// newStatusCmd builds `shipcat status <service>`: reads the cluster's
// ShipcatManifest CRD for service and prints the status conditions
// persistManifestCRD last attached to it. --pods additionally lists the
// live Deployment/StatefulSet, its ReplicaSets and pods, using the same pod
// summaries the rollout tracker logs when a rollout doesn't converge.
func newStatusCmd() *cobra.Command {
	sf := &statusFlags{}
	cmd := &cobra.Command{
		Use:   "status <service>",
		Short: "Show the last recorded apply/rollout status of a service",
		Args:  cobra.ExactArgs(1),
		RunE: runE("status", func(cmd *cobra.Command, args []string) error {
			return runStatusCmd(cmd, sf, args[0])
		}),
	}
	addGlobalFlags(cmd, &sf.globalFlags)
	cmd.Flags().BoolVar(&sf.pods, "pods", false, "also print live Deployment/StatefulSet, ReplicaSet and pod summaries")
	return cmd
}

func runStatusCmd(cmd *cobra.Command, gf *statusFlags, service string) error {
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

	obj, err := kubeClient.Get(cmd.Context(), kube.ShipcatManifestGVK, region.Namespace, service)
	if err != nil {
		return err
	}
	if obj == nil {
		printf("%s: no ShipcatManifest found in %s\n", service, region.Namespace)
		return nil
	}

	st, err := decodeStatus(obj)
	if err != nil {
		return err
	}
	printf("%s: lastAction=%s complete=%v\n", service, st.Summary.LastAction, st.IsComplete())
	for _, typ := range []status.ConditionType{status.Generated, status.Applied, status.RolledOut} {
		c, ok := st.Conditions[typ]
		if !ok {
			continue
		}
		printf("  %-10s status=%-5v reason=%s %s\n", c.Type, c.Status, c.Reason, c.Message)
	}
	if !gf.pods {
		return nil
	}

	m, err := apply.FromCRD(obj)
	if err != nil {
		return err
	}
	lines, err := rollout.Describe(cmd.Context(), kubeClient, m)
	if err != nil {
		return err
	}
	for _, line := range lines {
		printf("%s\n", line)
	}
	return nil
}

func decodeStatus(obj *unstructured.Unstructured) (*status.Status, error) {
	raw, found, err := unstructured.NestedMap(obj.Object, "status")
	if err != nil {
		return nil, shipcaterrors.New(shipcaterrors.InvalidManifest, obj.GetName(), "failed to read status field", err)
	}
	st := status.NewStatus()
	if !found {
		return st, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, shipcaterrors.New(shipcaterrors.InvalidManifest, obj.GetName(), "failed to marshal status", err)
	}
	if err := json.Unmarshal(data, st); err != nil {
		return nil, shipcaterrors.New(shipcaterrors.InvalidManifest, obj.GetName(), "failed to decode status", err)
	}
	return st, nil
}
