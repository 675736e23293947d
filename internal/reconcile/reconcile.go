// Package reconcile implements the bounded-parallelism worker pool that
// sweeps every service configured for a region, applying each one and
// classifying the resulting errors as ignorable or fatal, per spec §4.5.
package reconcile

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/shipcat/shipcat/internal/apply"
	"github.com/shipcat/shipcat/internal/config"
	shipcaterrors "github.com/shipcat/shipcat/internal/errors"
	"github.com/shipcat/shipcat/internal/kube"
	"github.com/shipcat/shipcat/internal/manifest"
	"github.com/shipcat/shipcat/internal/metrics"
	"github.com/shipcat/shipcat/internal/notify"
	"github.com/shipcat/shipcat/internal/secrets"
)

// DefaultWorkers is used when a caller passes workers <= 0.
const DefaultWorkers = 8

// Outcome records the per-service result of one reconcile pass. Workload
// and Namespace are left zero when the service couldn't be resolved far
// enough to know its target object (e.g. an ignored first-time install).
type Outcome struct {
	Service    string
	Workload   string
	Namespace  string
	Applied    bool
	Skipped    bool
	Ignored    bool
	Err        error
	RolledBack bool
}

// Report summarizes a full reconcile pass over a region.
type Report struct {
	Region   string
	Outcomes []Outcome
}

// Failed returns the outcomes whose error was not ignorable.
func (r Report) Failed() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Err != nil && !o.Ignored {
			out = append(out, o)
		}
	}
	return out
}

// Reconciler sweeps every service bound to a region through an Applier,
// bounded to a fixed worker count via golang.org/x/sync/semaphore, the
// idiomatic Go substitute for a thread-pool-plus-channel fan-out.
type Reconciler struct {
	ServicesDir string
	ConfigDir   string
	Conf        *config.Config
	Kube        *kube.Client
	Store       secrets.Store
	Renderer    apply.ChartRenderer
	Log         *zap.Logger
	Originator  string
}

// New builds a Reconciler sharing its dependencies with a single Applier
// construction, so every worker goroutine applies through the same wiring.
func New(servicesDir, configDir string, conf *config.Config, kubeClient *kube.Client, store secrets.Store, renderer apply.ChartRenderer, log *zap.Logger, originator string) *Reconciler {
	return &Reconciler{
		ServicesDir: servicesDir,
		ConfigDir:   configDir,
		Conf:        conf,
		Kube:        kubeClient,
		Store:       store,
		Renderer:    renderer,
		Log:         log,
		Originator:  originator,
	}
}

// servicesForRegion enumerates every service directory under ServicesDir
// whose source manifest.yml declares membership in regionName.
func (r *Reconciler) servicesForRegion(regionName string) ([]string, error) {
	all, err := manifest.ListServices(r.ServicesDir)
	if err != nil {
		return nil, err
	}
	var matched []string
	for _, name := range all {
		regions, err := manifest.SourceRegions(r.ServicesDir, name)
		if err != nil {
			return nil, shipcaterrors.Wrap(err, fmt.Sprintf("reading regions for %s", name))
		}
		for _, reg := range regions {
			if reg == regionName {
				matched = append(matched, name)
				break
			}
		}
	}
	sort.Strings(matched)
	return matched, nil
}

// ensureCRDSchemasAndConfig implements step 2 of the reconciler's protocol:
// install/update the CRD schemas both ShipcatManifest and ShipcatConfig
// need, then apply the region's own ShipcatConfig instance.
func (r *Reconciler) ensureCRDSchemasAndConfig(ctx context.Context, regionName string) error {
	if r.Kube.CRDs != nil {
		if err := r.Kube.CRDs.EnsureSchemas(ctx); err != nil {
			return shipcaterrors.Wrap(err, "ensuring CRD schemas")
		}
	}
	obj, err := apply.ToConfigCRD(r.Conf, regionName)
	if err != nil {
		return err
	}
	if _, err := r.Kube.Apply(ctx, obj); err != nil {
		return shipcaterrors.Wrap(err, "applying ShipcatConfig CRD")
	}
	return nil
}

// pruneOrphans deletes every ShipcatManifest CRD instance in the region's
// namespace whose name does not match a service still bound to the
// region, per spec §4.5's "delete orphaned manifests" step.
func (r *Reconciler) pruneOrphans(ctx context.Context, region *config.Region, live []string) error {
	list, err := r.Kube.List(ctx, kube.ShipcatManifestGVK, region.Namespace, "")
	if err != nil {
		return err
	}
	keep := make(map[string]bool, len(live))
	for _, name := range live {
		keep[name] = true
	}
	for _, obj := range list.Items {
		if keep[obj.GetName()] {
			continue
		}
		r.Log.Info("deleting orphaned manifest", zap.String("name", obj.GetName()), zap.String("namespace", region.Namespace))
		if err := r.Kube.Delete(ctx, kube.ShipcatManifestGVK, region.Namespace, obj.GetName()); err != nil {
			return err
		}
	}
	return nil
}

// massReconcileForced mirrors apply.massReconcileForced: when set, every
// service is applied even if its rendered diff is empty, used to force a
// fleet-wide resync after a shipcat or cluster-wide config change.
func massReconcileForced() bool {
	return os.Getenv("SHIPCAT_MASS_RECONCILE") == "1"
}

// Run sweeps every service bound to regionName through an Applier, at most
// workers running concurrently. A per-service MissingRollingVersion error
// is ignorable (spec §4.5/§8 scenario 2: a service present in the region
// with no prior deploy yet is skipped, not fatal); any other error is
// recorded but does not stop the other workers from finishing their pass.
func (r *Reconciler) Run(ctx context.Context, regionName string, workers int) (Report, error) {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	region, ok := r.Conf.Regions[regionName]
	if !ok {
		return Report{}, shipcaterrors.New(shipcaterrors.InvalidManifest, regionName, "unknown region", nil)
	}

	services, err := r.servicesForRegion(regionName)
	if err != nil {
		return Report{}, err
	}
	log := r.Log.With(zap.String("region", regionName), zap.Int("services", len(services)), zap.Int("workers", workers))
	log.Info("starting reconcile pass")
	passStart := time.Now()
	defer func() { metrics.ObserveReconcileDuration(regionName, time.Since(passStart)) }()
	r.notify(notify.Message{Text: fmt.Sprintf("reconcile of %s started (%d services)", regionName, len(services))})

	if err := r.ensureCRDSchemasAndConfig(ctx, regionName); err != nil {
		log.Error("failed to ensure CRD schemas/config", zap.Error(err))
		r.notify(notify.Message{Text: fmt.Sprintf("reconcile of %s failed: %s", regionName, err.Error()), Color: "danger"})
		return Report{}, err
	}

	if err := r.pruneOrphans(ctx, &region, services); err != nil {
		log.Warn("failed to prune orphaned manifests", zap.Error(err))
	}

	mode := apply.UpgradeWaitMaybeRollback
	if massReconcileForced() {
		log.Info("SHIPCAT_MASS_RECONCILE set, forcing apply of every service regardless of diff")
	}

	applier := apply.New(r.ServicesDir, r.ConfigDir, r.Conf, r.Kube, r.Store, r.Renderer, r.Log, r.Originator)

	sem := semaphore.NewWeighted(int64(workers))
	outcomes := make([]Outcome, len(services))
	var wg sync.WaitGroup
	for i, svc := range services {
		i, svc := i, svc
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				outcomes[i] = Outcome{Service: svc, Err: err}
				return
			}
			defer sem.Release(1)
			outcomes[i] = reconcileOne(ctx, applier, svc, regionName, mode, r.Log)
		}()
	}
	wg.Wait()

	report := Report{Region: regionName, Outcomes: outcomes}
	for _, o := range report.Outcomes {
		metrics.ObserveReconcileOutcome(regionName, outcomeLabel(o))
	}
	failed := report.Failed()
	log.Info("reconcile pass complete", zap.Int("failed", len(failed)))
	if len(failed) > 0 {
		r.notify(notify.Message{Text: fmt.Sprintf("reconcile of %s failed: %d of %d services failed", regionName, len(failed), len(services)), Color: "danger"})
		return report, fmt.Errorf("reconcile: %d of %d services failed", len(failed), len(services))
	}
	r.notify(notify.Message{Text: fmt.Sprintf("reconcile of %s completed (%d services)", regionName, len(services)), Color: "good"})
	return report, nil
}

// outcomeLabel classifies an Outcome into the fixed label set the
// reconcile_outcomes_total counter is keyed on.
func outcomeLabel(o Outcome) string {
	switch {
	case o.Err != nil && o.Ignored:
		return "ignored"
	case o.Err != nil:
		return "failed"
	case o.Applied:
		return "applied"
	default:
		return "skipped"
	}
}

// notify is a fire-and-forget wrapper around notify.Send, matching the
// Applier's own never-block-on-notification discipline (spec §5 "shared-
// resource policy").
func (r *Reconciler) notify(msg notify.Message) {
	if err := notify.Send(msg); err != nil {
		r.Log.Warn("failed to send reconcile notification", zap.Error(err))
	}
}

// reconcileOne applies a single service through the shared Applier. The
// Applier holds no mutable state across calls, so every worker goroutine
// is free to invoke Apply concurrently on the same instance.
func reconcileOne(ctx context.Context, applier *apply.Applier, service, regionName string, mode apply.Mode, log *zap.Logger) Outcome {
	result, err := applier.Apply(ctx, service, regionName, apply.Options{Mode: mode})
	if err != nil {
		if shipcaterrors.Ignorable(err) {
			log.Info("skipping service with no prior deploy", zap.String("service", service), zap.Error(err))
			return Outcome{Service: service, Ignored: true, Err: err}
		}
		log.Error("failed to reconcile service", zap.String("service", service), zap.Error(err))
		return Outcome{Service: service, Err: err}
	}
	workload := string(result.Manifest.Workload)
	if workload == "" {
		workload = string(manifest.WorkloadDeployment)
	}
	return Outcome{
		Service:    service,
		Workload:   workload,
		Namespace:  result.Manifest.Namespace,
		Applied:    result.Outcome == apply.Applied,
		Skipped:    result.Outcome == apply.Skipped,
		RolledBack: result.RolledBack,
	}
}
