// Package apply implements the per-service Applier (spec §4.3): resolve
// a Completed manifest, render it through the chart subprocess, diff
// against current cluster state, server-side apply, and hand off to the
// rollout tracker. Grounded on the teacher's RunApply pipeline
// (internal/apply/apply.go in the pre-transform tree) generalized from an
// all-or-nothing multi-file apply into a single-service, diff-gated one.
package apply

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	appsv1 "k8s.io/api/apps/v1"

	"github.com/shipcat/shipcat/internal/config"
	"github.com/shipcat/shipcat/internal/diff"
	shipcaterrors "github.com/shipcat/shipcat/internal/errors"
	"github.com/shipcat/shipcat/internal/kube"
	"github.com/shipcat/shipcat/internal/manifest"
	"github.com/shipcat/shipcat/internal/metrics"
	"github.com/shipcat/shipcat/internal/notify"
	"github.com/shipcat/shipcat/internal/rollout"
	"github.com/shipcat/shipcat/internal/secrets"
	"github.com/shipcat/shipcat/internal/status"
)

// Mode names one of the eight apply behaviors from spec §4.3. The only
// axes of variation are: install permitted, wait for rollout, force pod
// recreation, auto-rollback on timeout.
type Mode string

const (
	DiffOnly                 Mode = "DiffOnly"
	UpgradeWait              Mode = "UpgradeWait"
	UpgradeNoWait            Mode = "UpgradeNoWait"
	UpgradeInstall           Mode = "UpgradeInstall"
	UpgradeInstallNoWait     Mode = "UpgradeInstallNoWait"
	UpgradeInstallWait       Mode = "UpgradeInstallWait"
	UpgradeRecreateWait      Mode = "UpgradeRecreateWait"
	UpgradeWaitMaybeRollback Mode = "UpgradeWaitMaybeRollback"
)

func (m Mode) AllowsInstall() bool {
	switch m {
	case UpgradeInstall, UpgradeInstallNoWait, UpgradeInstallWait:
		return true
	}
	return false
}

func (m Mode) WaitsForRollout() bool {
	switch m {
	case UpgradeWait, UpgradeInstallWait, UpgradeRecreateWait, UpgradeWaitMaybeRollback:
		return true
	}
	return false
}

func (m Mode) ForcesRecreate() bool { return m == UpgradeRecreateWait }

func (m Mode) AutoRollback() bool { return m == UpgradeWaitMaybeRollback }

// Outcome classifies how an Apply call concluded.
type Outcome string

const (
	Applied Outcome = "Applied"
	Skipped Outcome = "Skipped"
)

// Options parameterizes a single Apply call.
type Options struct {
	Version string
	Force   bool
	Mode    Mode
}

// Result is returned by Apply; Diff is always populated (even for a noop)
// so callers can render or log it.
type Result struct {
	Outcome    Outcome
	Manifest   *manifest.Manifest
	Diff       string
	RolledOut  bool
	RolledBack bool
	UpgradeID  string
}

// Applier wires together the manifest resolver, chart renderer, diff
// engine, kube client and rollout tracker for one service.
type Applier struct {
	ServicesDir string
	ConfigDir   string
	Conf        *config.Config
	Kube        *kube.Client
	Store       secrets.Store
	Diff        *diff.Runner
	Renderer    ChartRenderer
	Log         *zap.Logger

	// Originator is recorded on patched status conditions (spec §3), e.g.
	// a CI job id or local username.
	Originator string
}

func New(servicesDir, configDir string, conf *config.Config, kubeClient *kube.Client, store secrets.Store, renderer ChartRenderer, log *zap.Logger, originator string) *Applier {
	return &Applier{
		ServicesDir: servicesDir,
		ConfigDir:   configDir,
		Conf:        conf,
		Kube:        kubeClient,
		Store:       store,
		Diff:        diff.NewRunner(),
		Renderer:    renderer,
		Log:         log,
		Originator:  originator,
	}
}

// Apply implements the §4.3 contract for a single service in a single
// region.
func (a *Applier) Apply(ctx context.Context, service, regionName string, opts Options) (result *Result, err error) {
	upgradeID := uuid.NewString()
	log := a.Log.With(zap.String("service", service), zap.String("region", regionName), zap.String("upgrade_id", upgradeID))

	start := time.Now()
	defer func() {
		outcome := "Error"
		if err == nil && result != nil {
			outcome = string(result.Outcome)
		}
		metrics.ObserveApply(regionName, outcome, time.Since(start))
	}()

	// 1. Resolve the Base manifest, then decide the version.
	base, region, err := manifest.Resolve(a.ServicesDir, a.ConfigDir, service, regionName, a.Conf)
	if err != nil {
		return nil, err
	}

	version, err := a.resolveVersion(ctx, base, region, opts)
	if err != nil {
		return nil, err
	}
	base.Version = version

	// 2. Validate version against the region's scheme.
	if err := config.ValidateVersion(base.Version, region.VersionScheme); err != nil {
		return nil, shipcaterrors.New(shipcaterrors.InvalidManifest, service, err.Error(), nil)
	}

	completed := base
	if err := manifest.Upgrade(completed, manifest.Completed, a.Store, region); err != nil {
		return nil, err
	}

	st := status.NewStatus()
	now := time.Now().UTC()
	st.Patch(status.Generated, true, "", "", a.Originator, now, "")

	if opts.Mode != DiffOnly {
		defer func() {
			if a.Kube == nil {
				return
			}
			if perr := persistManifestCRD(ctx, a.Kube, completed, region, st); perr != nil {
				log.Warn("failed to persist manifest status", zap.Error(perr))
			}
		}()
	}

	if opts.Mode == DiffOnly {
		minified, changed, err := a.diffAgainstCluster(ctx, completed, region)
		if err != nil {
			return nil, err
		}
		return &Result{Outcome: Skipped, Manifest: completed, Diff: minified, RolledOut: !changed, UpgradeID: upgradeID}, nil
	}

	a.notifyPending(completed, upgradeID)

	// 3/4. Render and diff.
	minified, changed, err := a.diffAgainstCluster(ctx, completed, region)
	if err != nil {
		a.patchApplied(st, false, err, now)
		return nil, err
	}

	if !changed && !opts.Force && !massReconcileForced() {
		st.Patch(status.Applied, true, "", "noop", a.Originator, now, "")
		return &Result{Outcome: Skipped, Manifest: completed, Diff: minified, UpgradeID: upgradeID}, nil
	}

	// 5. Invoke the chart renderer and apply with server-side merge.
	valuesPath, err := WriteValuesFile(completed)
	if err != nil {
		a.patchApplied(st, false, err, now)
		a.notifyFailed(completed, upgradeID, err)
		return nil, err
	}
	defer os.Remove(valuesPath)

	objs, err := a.Renderer.Render(ctx, completed, region, valuesPath)
	if err != nil {
		a.patchApplied(st, false, err, now)
		a.notifyFailed(completed, upgradeID, err)
		return nil, err
	}

	for _, obj := range objs {
		kube.StripServerFields(obj.Object)
		if _, err := a.Kube.Apply(ctx, obj); err != nil {
			wrapped := shipcaterrors.New(shipcaterrors.KubeApplyFailure, service, err.Error(), err)
			a.patchApplied(st, false, wrapped, now)
			a.notifyFailed(completed, upgradeID, wrapped)
			return nil, wrapped
		}
	}
	st.Patch(status.Applied, true, "", "", a.Originator, now, "")

	pinnedHash, err := a.pinnedHashAfterApply(ctx, completed)
	if err != nil {
		log.Warn("could not determine pinned hash for rollout tracking", zap.Error(err))
	}

	result = &Result{Outcome: Applied, Manifest: completed, Diff: minified, UpgradeID: upgradeID}

	// 6. Rollout tracking.
	if opts.Mode.WaitsForRollout() {
		tracker := rollout.New(a.Kube, a.Log)
		ok, err := tracker.Track(ctx, completed, pinnedHash, func(p rollout.Progress) {
			log.Info("rollout progress", zap.Int("ready", p.Ready), zap.Int("desired", p.Desired), zap.Int("attempt", p.Attempt))
		})
		if err != nil {
			a.patchRolledOut(st, false, err, now)
			a.notifyFailed(completed, upgradeID, err)
			return nil, err
		}
		result.RolledOut = ok
		if !ok {
			timeoutErr := shipcaterrors.New(shipcaterrors.RolloutTimeout, service, fmt.Sprintf("%ds", rollout.EstimateWaitSeconds(completed)), nil)
			a.patchRolledOut(st, false, timeoutErr, now)
			if opts.Mode.AutoRollback() {
				result.RolledBack = a.bestEffortRollback(ctx, completed, region, log)
			}
			a.notifyFailed(completed, upgradeID, timeoutErr)
			return result, nil
		}
		a.patchRolledOut(st, true, nil, now)
		a.notifyCompleted(completed, upgradeID)
	} else {
		a.notifyCompleted(completed, upgradeID)
	}

	return result, nil
}

// resolveVersion implements step 1's version precedence: explicit
// argument, then the manifest's own declared version, then the version
// recorded on the currently-deployed ShipcatManifest CRD (the "rolling"
// path). If none is found, install modes fail fatally while non-install
// modes report the ignorable MissingRollingVersion.
func (a *Applier) resolveVersion(ctx context.Context, m *manifest.Manifest, region *config.Region, opts Options) (string, error) {
	if opts.Version != "" {
		return opts.Version, nil
	}
	if m.Version != "" {
		return m.Version, nil
	}
	if a.Kube != nil {
		obj, err := a.Kube.Get(ctx, kube.ShipcatManifestGVK, region.Namespace, m.Name)
		if err != nil {
			return "", err
		}
		if obj != nil {
			if running, ferr := FromCRD(obj); ferr == nil && running.Version != "" {
				return running.Version, nil
			}
		}
	}
	if opts.Mode.AllowsInstall() {
		return "", shipcaterrors.New(shipcaterrors.MissingVersion, m.Name, "no version declared and no install target to infer from", nil)
	}
	return "", shipcaterrors.New(shipcaterrors.MissingRollingVersion, m.Name, "no version declared and no running instance to infer from", nil)
}

// diffAgainstCluster renders the completed manifest's CRD body, compares
// it against the cluster's current ShipcatManifest CRD object (stripped
// of server fields), and returns the minified, secret-obfuscated diff.
func (a *Applier) diffAgainstCluster(ctx context.Context, m *manifest.Manifest, region *config.Region) (string, bool, error) {
	desired, err := ToCRD(m, region.Namespace)
	if err != nil {
		return "", false, err
	}

	var currentObj map[string]interface{}
	if a.Kube != nil {
		existing, err := a.Kube.Get(ctx, kube.ShipcatManifestGVK, region.Namespace, m.Name)
		if err != nil {
			return "", false, err
		}
		if existing != nil {
			kube.StripServerFields(existing.Object)
			currentObj = existing.Object
		}
	}
	kube.StripServerFields(desired.Object)

	beforePath, afterPath, cleanup, err := writeDiffFiles(m.Name, currentObj, desired.Object)
	if err != nil {
		return "", false, err
	}
	defer cleanup()

	minified, changed, err := diff.DiffFor(ctx, a.Diff, beforePath, afterPath)
	if err != nil {
		return "", false, err
	}
	return diff.ObfuscateSecrets(minified, m.EnvSecrets), changed, nil
}

func (a *Applier) patchApplied(st *status.Status, ok bool, err error, now time.Time) {
	if ok {
		st.Patch(status.Applied, true, "", "", a.Originator, now, "")
		return
	}
	reason, msg := shipcaterrors.ReasonAndMessage(err)
	st.Patch(status.Applied, false, reason, msg, a.Originator, now, "")
}

func (a *Applier) patchRolledOut(st *status.Status, ok bool, err error, now time.Time) {
	if ok {
		st.Patch(status.RolledOut, true, "", "", a.Originator, now, "")
		return
	}
	reason, msg := shipcaterrors.ReasonAndMessage(err)
	st.Patch(status.RolledOut, false, reason, msg, a.Originator, now, "")
}

func (a *Applier) notifyPending(m *manifest.Manifest, upgradeID string) {
	a.send(notify.Message{Text: fmt.Sprintf("pending upgrade of %s to %s (%s)", m.Name, m.Version, upgradeID), Metadata: m.Metadata, Version: m.Version, Color: "#dfa12c"})
}

func (a *Applier) notifyCompleted(m *manifest.Manifest, upgradeID string) {
	a.send(notify.Message{Text: fmt.Sprintf("upgraded %s to %s (%s)", m.Name, m.Version, upgradeID), Metadata: m.Metadata, Version: m.Version, Color: "good"})
}

func (a *Applier) notifyFailed(m *manifest.Manifest, upgradeID string, err error) {
	a.send(notify.Message{Text: fmt.Sprintf("failed to upgrade %s (%s): %s", m.Name, upgradeID, err.Error()), Metadata: m.Metadata, Version: m.Version, Color: "danger"})
}

// send is fire-and-forget: notification failures are logged, never
// propagated, per spec §4.3 step 7 / §5.
func (a *Applier) send(msg notify.Message) {
	if err := notify.Send(msg); err != nil {
		a.Log.Warn("slack notification failed", zap.Error(err))
	}
}

// bestEffortRollback implements the legacy rollback-on-timeout path
// (spec §4.3 "Failure semantics"): re-apply the last-known CRD spec,
// without blocking on whether the rollback itself succeeds.
func (a *Applier) bestEffortRollback(ctx context.Context, m *manifest.Manifest, region *config.Region, log *zap.Logger) bool {
	obj, err := a.Kube.Get(ctx, kube.ShipcatManifestGVK, region.Namespace, m.Name)
	if err != nil || obj == nil {
		log.Warn("rollback skipped: no prior CRD state available", zap.Error(err))
		return false
	}
	previous, err := FromCRD(obj)
	if err != nil {
		log.Warn("rollback skipped: could not decode prior CRD state", zap.Error(err))
		return false
	}
	valuesPath, err := WriteValuesFile(previous)
	if err != nil {
		log.Warn("rollback skipped: could not write previous values", zap.Error(err))
		return false
	}
	defer os.Remove(valuesPath)
	objs, err := a.Renderer.Render(ctx, previous, region, valuesPath)
	if err != nil {
		log.Warn("rollback render failed", zap.Error(err))
		return false
	}
	for _, o := range objs {
		kube.StripServerFields(o.Object)
		if _, err := a.Kube.Apply(ctx, o); err != nil {
			log.Warn("rollback apply failed", zap.Error(err))
			return false
		}
	}
	return true
}

func massReconcileForced() bool {
	return os.Getenv("SHIPCAT_MASS_RECONCILE") == "1"
}

// pinnedHashAfterApply captures the identifier the rollout tracker pins
// its success predicate to, read immediately after apply (spec §4.3 step
// 6): for a Deployment, the pod-template-hash of its newest ReplicaSet;
// for a StatefulSet, the update-revision off its status.
func (a *Applier) pinnedHashAfterApply(ctx context.Context, m *manifest.Manifest) (string, error) {
	if m.Workload == manifest.WorkloadStatefulSet {
		s, err := a.Kube.GetStatefulSet(ctx, m.Namespace, m.Name)
		if err != nil || s == nil {
			return "", err
		}
		return s.Status.UpdateRevision, nil
	}

	replicaSets, err := a.Kube.ListReplicaSetsForApp(ctx, m.Namespace, m.Name)
	if err != nil {
		return "", err
	}
	var newest *appsv1.ReplicaSet
	for i := range replicaSets {
		rs := &replicaSets[i]
		if newest == nil || rs.CreationTimestamp.After(newest.CreationTimestamp.Time) {
			newest = rs
		}
	}
	if newest == nil {
		return "", nil
	}
	return newest.Labels["pod-template-hash"], nil
}
