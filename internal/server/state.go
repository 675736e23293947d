// Package server implements the raftcat read model: a chi-based HTTP API
// serving a cached, region-scoped view of ShipcatManifest/ShipcatConfig
// CRDs, kept current by a background refresher, per spec §4.7.
package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	apimachinerywatch "k8s.io/apimachinery/pkg/watch"

	"github.com/shipcat/shipcat/internal/apply"
	"github.com/shipcat/shipcat/internal/config"
	shipcaterrors "github.com/shipcat/shipcat/internal/errors"
	"github.com/shipcat/shipcat/internal/kube"
	"github.com/shipcat/shipcat/internal/manifest"
)

// RefreshInterval is the background refresher's wake period (spec §4.7).
const RefreshInterval = 10 * time.Second

// watchWindow bounds how long a single incremental-watch attempt collects
// events before swapping in whatever it accumulated.
const watchWindow = 5 * time.Second

// snapshot is the immutable value readers observe; swapped wholesale by
// the refresher so a reader never sees a partially-updated map.
type snapshot struct {
	manifests map[string]*manifest.Manifest
	config    *config.Config
	relics    map[string]string
	sentries  map[string]string
}

// State is the single-writer/many-reader cache backing every read-server
// endpoint. Exactly one background goroutine (RefreshLoop) holds the write
// lock; every HTTP handler takes the read lock.
type State struct {
	mu   sync.RWMutex
	data snapshot

	Kube      *kube.Client
	Region    string
	Namespace string
	Log       *zap.Logger
}

// NewState builds an unpopulated State; callers must call Bootstrap before
// serving any request.
func NewState(kubeClient *kube.Client, region, namespace string, log *zap.Logger) *State {
	return &State{
		Kube:      kubeClient,
		Region:    region,
		Namespace: namespace,
		Log:       log,
		data: snapshot{
			manifests: map[string]*manifest.Manifest{},
			relics:    map[string]string{},
			sentries:  map[string]string{},
		},
	}
}

// Bootstrap performs the initial full load the constructor used to do
// synchronously in the teacher's Rust original, kept as an explicit call so
// callers can fail fast before starting to serve traffic.
func (s *State) Bootstrap(ctx context.Context) error {
	if err := s.fullRefresh(ctx); err != nil {
		return shipcaterrors.Wrap(err, "bootstrapping read-server state")
	}
	return nil
}

func (s *State) snapshotCopy() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data
}

// Config returns the cached region Config.
func (s *State) Config() *config.Config {
	return s.snapshotCopy().config
}

// Manifests returns the full cached manifest map.
func (s *State) Manifests() map[string]*manifest.Manifest {
	return s.snapshotCopy().manifests
}

// Manifest returns a single cached manifest, or (nil, false) if unknown.
func (s *State) Manifest(name string) (*manifest.Manifest, bool) {
	m, ok := s.snapshotCopy().manifests[name]
	return m, ok
}

// ManifestsForTeam lists service names owned by teamName.
func (s *State) ManifestsForTeam(teamName string) []string {
	var names []string
	for _, m := range s.snapshotCopy().manifests {
		if m.Metadata != nil && m.Metadata.Team == teamName {
			names = append(names, m.Name)
		}
	}
	return names
}

// ReverseDeps performs the O(N) scan for every manifest depending on
// service, per spec §4.7 "Reverse deps".
func (s *State) ReverseDeps(service string) []string {
	var res []string
	for _, m := range s.snapshotCopy().manifests {
		for _, dep := range m.Dependencies {
			if dep.Name == service {
				res = append(res, m.Name)
				break
			}
		}
	}
	return res
}

// NewRelicLink and SentrySlug surface the cached third-party integration
// slugs for a service, populated by the slow cache refresh.
func (s *State) NewRelicLink(service string) (string, bool) {
	v, ok := s.snapshotCopy().relics[service]
	return v, ok
}

func (s *State) SentrySlug(service string) (string, bool) {
	v, ok := s.snapshotCopy().sentries[service]
	return v, ok
}

// fullRefresh lists every ShipcatManifest and the region's ShipcatConfig
// from the cluster and swaps the whole snapshot atomically.
func (s *State) fullRefresh(ctx context.Context) error {
	list, err := s.Kube.List(ctx, kube.ShipcatManifestGVK, s.Namespace, "")
	if err != nil {
		return err
	}
	manifests := make(map[string]*manifest.Manifest, len(list.Items))
	for i := range list.Items {
		m, err := apply.FromCRD(&list.Items[i])
		if err != nil {
			s.Log.Warn("skipping malformed manifest CRD", zap.String("name", list.Items[i].GetName()), zap.Error(err))
			continue
		}
		manifests[m.Name] = m
	}

	confObj, err := s.Kube.Get(ctx, kube.ShipcatConfigGVK, s.Namespace, s.Region)
	if err != nil {
		return err
	}
	var conf *config.Config
	if confObj != nil {
		conf, err = apply.FromConfigCRD(confObj)
		if err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.data.manifests = manifests
	if conf != nil {
		s.data.config = conf
	}
	s.mu.Unlock()
	return nil
}

// watchRefresh attempts an incremental update: opens a short-lived watch
// over ShipcatManifest objects in the namespace and folds Added/Modified/
// Deleted events into a copy of the current manifest map, swapping it in
// only if at least one event was observed.
func (s *State) watchRefresh(ctx context.Context) error {
	w, err := s.Kube.Watch(ctx, kube.ShipcatManifestGVK, s.Namespace)
	if err != nil {
		return err
	}
	defer w.Stop()

	wctx, cancel := context.WithTimeout(ctx, watchWindow)
	defer cancel()

	next := make(map[string]*manifest.Manifest, len(s.snapshotCopy().manifests))
	for k, v := range s.snapshotCopy().manifests {
		next[k] = v
	}
	changed := false

	for {
		select {
		case <-wctx.Done():
			if changed {
				s.mu.Lock()
				s.data.manifests = next
				s.mu.Unlock()
			}
			return nil
		case ev, ok := <-w.ResultChan():
			if !ok {
				return fmt.Errorf("watch channel closed before window elapsed")
			}
			if ev.Type == apimachinerywatch.Error {
				return fmt.Errorf("watch error event received")
			}
			obj, ok := asUnstructured(ev.Object)
			if !ok {
				continue
			}
			m, err := apply.FromCRD(obj)
			if err != nil {
				continue
			}
			switch ev.Type {
			case apimachinerywatch.Added, apimachinerywatch.Modified:
				next[m.Name] = m
			case apimachinerywatch.Deleted:
				delete(next, m.Name)
			}
			changed = true
		}
	}
}

// RefreshLoop runs until ctx is cancelled, implementing spec §4.7's refresh
// contract: every RefreshInterval, try an incremental watch; on failure,
// sleep and fall back to a full list; terminate the process after two
// consecutive full-refresh failures so the orchestrator restarts it.
func (s *State) RefreshLoop(ctx context.Context) {
	consecutiveFailures := 0
	ticker := time.NewTicker(RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.watchRefresh(ctx); err == nil {
				consecutiveFailures = 0
				s.updateSlowCache(ctx)
				continue
			} else {
				s.Log.Warn("incremental watch refresh failed, falling back to full list", zap.Error(err))
			}

			time.Sleep(RefreshInterval)
			if err := s.fullRefresh(ctx); err != nil {
				consecutiveFailures++
				s.Log.Error("full refresh failed", zap.Error(err), zap.Int("consecutive_failures", consecutiveFailures))
				if consecutiveFailures >= 2 {
					s.Log.Fatal("two consecutive refresh failures, exiting for restart")
				}
				continue
			}
			consecutiveFailures = 0
			s.updateSlowCache(ctx)
		}
	}
}
