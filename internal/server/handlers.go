package server

import (
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/shipcat/shipcat/internal/config"
	"github.com/shipcat/shipcat/internal/manifest"
)

type handlers struct {
	state *State
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// health reports liveness; a Kubernetes-style readiness check that returns
// ok the moment the process can accept HTTP traffic, mirroring the Rust
// original's bare "/health" 200 with a plain-text "healthy" body.
func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("healthy"))
}

// config serves the cached region Config.
func (h *handlers) config(w http.ResponseWriter, r *http.Request) {
	conf := h.state.Config()
	if conf == nil {
		writeError(w, http.StatusServiceUnavailable, "config not yet loaded")
		return
	}
	writeJSON(w, http.StatusOK, conf)
}

// listManifests serves the full cached manifest map, keyed by name.
func (h *handlers) listManifests(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.state.Manifests())
}

// manifest serves one cached manifest by name.
func (h *handlers) manifest(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	m, ok := h.state.Manifest(name)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("manifest %s not found", name))
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// manifestResources serves the computed resource totals for one manifest,
// per spec §4.7/§8.
func (h *handlers) manifestResources(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	m, ok := h.state.Manifest(name)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("manifest %s not found", name))
		return
	}
	totals, err := m.ComputeResourceTotals()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

// listTeams serves the cached config's team list, sorted by name.
func (h *handlers) listTeams(w http.ResponseWriter, r *http.Request) {
	conf := h.state.Config()
	if conf == nil {
		writeError(w, http.StatusServiceUnavailable, "config not yet loaded")
		return
	}
	teams := append([]config.Team(nil), conf.Teams...)
	sort.Slice(teams, func(i, j int) bool { return teams[i].Name < teams[j].Name })
	writeJSON(w, http.StatusOK, teams)
}

// team looks a team up by its slug (spec §4.7's /teams/{name}), along with
// the services it owns.
func (h *handlers) team(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "name")
	conf := h.state.Config()
	if conf == nil {
		writeError(w, http.StatusServiceUnavailable, "config not yet loaded")
		return
	}
	var found *config.Team
	for i := range conf.Teams {
		if TeamSlug(conf.Teams[i].Name) == slug {
			found = &conf.Teams[i]
			break
		}
	}
	if found == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("team %s not found", slug))
		return
	}
	services := h.state.ManifestsForTeam(found.Name)
	sort.Strings(services)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"team":     found,
		"services": services,
	})
}

var serviceTemplate = template.Must(template.New("service").Parse(`<!DOCTYPE html>
<html>
<head><title>{{.Manifest.Name}}</title></head>
<body>
<h1>{{.Manifest.Name}}</h1>
<p>Image: {{.Manifest.Image}}:{{.Manifest.Version}}</p>
<p>Team: {{.Manifest.Metadata.Team}}</p>
{{if .SentrySlug}}<p>Sentry: {{.SentrySlug}}</p>{{end}}
{{if .NewRelicLink}}<p><a href="{{.NewRelicLink}}">New Relic</a></p>{{end}}
<h2>Depended on by</h2>
<ul>
{{range .ReverseDeps}}<li>{{.}}</li>{{end}}
</ul>
</body>
</html>
`))

// serviceHTML renders the service detail page the Rust original's
// get_service handler served, combining the manifest with its reverse
// dependents and third-party integration links.
func (h *handlers) serviceHTML(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	m, ok := h.state.Manifest(name)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("manifest %s not found", name))
		return
	}
	sentrySlug, _ := h.state.SentrySlug(name)
	newRelicLink, _ := h.state.NewRelicLink(name)
	deps := h.state.ReverseDeps(name)
	sort.Strings(deps)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := struct {
		Manifest     *manifest.Manifest
		SentrySlug   string
		NewRelicLink string
		ReverseDeps  []string
	}{m, sentrySlug, newRelicLink, deps}
	if err := serviceTemplate.Execute(w, data); err != nil {
		h.state.Log.Warn("failed to render service page")
	}
}
