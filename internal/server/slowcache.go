package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
)

// slowCacheClient is a short-timeout client for the best-effort third-party
// integration lookups below. Neither Sentry nor New Relic have a wired
// client library anywhere in the examples pack, so this is the one corner
// of the read server that reaches for net/http directly rather than an
// ecosystem HTTP client.
var slowCacheClient = &http.Client{Timeout: 5 * time.Second}

// TeamSlug normalizes a team name into the URL-safe form /teams/{name}
// looks up by, matching the Rust original's team_slug().
func TeamSlug(name string) string {
	s := strings.ToLower(name)
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}

// updateSlowCache refreshes the Sentry/New Relic integration slugs for
// every cached manifest. It is best-effort: a single service's lookup
// failing never aborts the pass, matching the Rust original's
// update_slow_cache treating each fetch independently.
func (s *State) updateSlowCache(ctx context.Context) {
	snap := s.snapshotCopy()
	if snap.config == nil {
		return
	}
	region, ok := snap.config.Regions[s.Region]
	if !ok {
		return
	}

	sentries := make(map[string]string, len(snap.manifests))
	relics := make(map[string]string, len(snap.manifests))
	for name, m := range snap.manifests {
		if region.SentryURL != "" {
			if slug, err := sentrySlug(ctx, region.SentryURL, region.Environment, m.Name); err == nil {
				sentries[name] = slug
			}
		}
		if link, err := newRelicLink(ctx, s.Region, m.Name); err == nil {
			relics[name] = link
		}
	}

	s.mu.Lock()
	s.data.sentries = sentries
	s.data.relics = relics
	s.mu.Unlock()
}

type sentryProject struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// sentrySlug looks up the Sentry project slug for svc under the given
// team environment, grounded on original_source/raftcat/src/kube.rs's
// get_sentry_slug.
func sentrySlug(ctx context.Context, sentryURL, env, svc string) (string, error) {
	token := os.Getenv("SENTRY_TOKEN")
	if token == "" {
		return "", fmt.Errorf("SENTRY_TOKEN is not set")
	}
	url := fmt.Sprintf("%s/api/0/teams/sentry/%s/projects/", sentryURL, env)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := slowCacheClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("sentry projects fetch failed: %s", resp.Status)
	}
	var projects []sentryProject
	if err := json.NewDecoder(resp.Body).Decode(&projects); err != nil {
		return "", err
	}
	for _, p := range projects {
		if p.Name == svc {
			return p.Slug, nil
		}
	}
	return "", fmt.Errorf("project %s not found in team %s", svc, env)
}

type newRelicApplication struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type newRelicApplications struct {
	Applications []newRelicApplication `json:"applications"`
}

// newRelicLink looks up the New Relic dashboard URL for svc in region,
// grounded on original_source/raftcat/src/kube.rs's get_newrelic_link.
func newRelicLink(ctx context.Context, region, svc string) (string, error) {
	apiKey := os.Getenv("NEWRELIC_API_KEY")
	accountID := os.Getenv("NEWRELIC_ACCOUNT_ID")
	if apiKey == "" || accountID == "" {
		return "", fmt.Errorf("NEWRELIC_API_KEY/NEWRELIC_ACCOUNT_ID are not set")
	}
	search := fmt.Sprintf("%s (%s)", svc, region)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.newrelic.com/v2/applications.json", nil)
	if err != nil {
		return "", err
	}
	q := req.URL.Query()
	q.Set("filter[name]", search)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("X-Api-Key", apiKey)

	resp, err := slowCacheClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("newrelic applications fetch failed: %s", resp.Status)
	}
	var apps newRelicApplications
	if err := json.NewDecoder(resp.Body).Decode(&apps); err != nil {
		return "", err
	}
	for _, a := range apps.Applications {
		if a.Name == search {
			return fmt.Sprintf("https://rpm.newrelic.com/accounts/%s/applications/%d", accountID, a.ID), nil
		}
	}
	return "", fmt.Errorf("application %s not found in newrelic", svc)
}

// asUnstructured adapts a watch event's runtime.Object into the
// *unstructured.Unstructured the CRD decoders expect; the dynamic client
// always delivers unstructured objects but the watch.Interface type is
// declared against the broader runtime.Object interface.
func asUnstructured(obj runtime.Object) (*unstructured.Unstructured, bool) {
	u, ok := obj.(*unstructured.Unstructured)
	return u, ok
}
