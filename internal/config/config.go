// Package config implements the region/cluster/team model (spec §3
// "Region", "Config") and its internal-consistency verification (§4.2).
package config

import (
	"fmt"
	"strings"

	shipcaterrors "github.com/shipcat/shipcat/internal/errors"
	"github.com/shipcat/shipcat/internal/resolve"
	"sigs.k8s.io/yaml"
)

// VersionScheme selects how a region validates the `version` field of a
// manifest (spec §3 invariant g).
type VersionScheme string

const (
	SchemeSemver       VersionScheme = "Semver"
	SchemeGitShaOrSemver VersionScheme = "GitShaOrSemver"
)

// EnvironmentClass tags a region as a development or production target.
type EnvironmentClass string

const (
	EnvDev  EnvironmentClass = "Dev"
	EnvProd EnvironmentClass = "Prod"
)

// Region is a named deployment target.
type Region struct {
	Name             string            `json:"name"`
	Namespace        string            `json:"namespace"`
	Environment      string            `json:"environment"`
	VersionScheme    VersionScheme     `json:"versionScheme"`
	BaseURLs         map[string]string `json:"baseUrls,omitempty"`
	Env              map[string]string `json:"env,omitempty"`
	SecretPrefix     string            `json:"secretPrefix"`
	KongURL          string            `json:"kongUrl,omitempty"`
	KafkaURL         string            `json:"kafkaUrl,omitempty"`
	SentryURL        string            `json:"sentryUrl,omitempty"`
	GrafanaURL       string            `json:"grafanaUrl,omitempty"`
	LogzIOURL        string            `json:"logzioUrl,omitempty"`
	VaultURL         string            `json:"vaultUrl"`
	Locations        []string          `json:"locations,omitempty"`
	EnvironmentClass EnvironmentClass  `json:"environmentClass"`
}

// Cluster is a Kubernetes API endpoint serving one or more regions.
type Cluster struct {
	Name    string   `json:"name"`
	APIURL  string   `json:"apiUrl"`
	Regions []string `json:"regions"`
}

// Team owns a set of services and has support/notification defaults.
type Team struct {
	Name          string `json:"name"`
	Owner         string `json:"owner"` // stable identity attribute, e.g. an email or slack id
	Support       string `json:"support,omitempty"`
	Notifications string `json:"notifications,omitempty"`
}

// Defaults are the global manifest defaults merged in under source values.
type Defaults struct {
	ImagePrefix  string `json:"imagePrefix"`
	Chart        string `json:"chart"`
	ReplicaCount int    `json:"replicaCount"`
}

// State tags which pipeline stage a Config value represents.
type State string

const (
	StateFile           State = "File"
	StateBase           State = "Base"
	StateFiltered       State = "Filtered"
	StateUnionisedBase  State = "UnionisedBase"
)

// Config is the full shipcat.conf model.
type Config struct {
	Regions           map[string]Region `json:"regions"`
	Clusters          map[string]Cluster `json:"clusters"`
	ContextAliases    map[string]string `json:"contextAliases,omitempty"`
	Teams             []Team            `json:"teams"`
	Defaults          Defaults          `json:"defaults"`
	MinShipcatVersion string            `json:"minShipcatVersion,omitempty"`

	state State `json:"-"`
}

// State reports the pipeline stage this Config value is in.
func (c *Config) State() State { return c.state }

// Load reads shipcat.conf from path and returns a File-state Config. path
// may be a local file or an http(s) URL, for fleets that host their config
// centrally rather than checking it into every service's working copy.
func Load(path string) (*Config, error) {
	raw, err := resolve.ReadFileContent(path)
	if err != nil {
		return nil, shipcaterrors.New(shipcaterrors.InvalidManifest, path, "failed to read config", err)
	}
	var c Config
	if err := yaml.UnmarshalStrict(raw, &c); err != nil {
		return nil, shipcaterrors.New(shipcaterrors.InvalidManifest, path, "failed to parse shipcat.conf", err)
	}
	c.state = StateFile
	return &c, nil
}

// Verify checks internal consistency per spec §4.2. runningVersion is the
// shipcat binary's own semver, checked against MinShipcatVersion.
func (c *Config) Verify(runningVersion string) error {
	for cname, cl := range c.Clusters {
		for _, r := range cl.Regions {
			if _, ok := c.Regions[r]; !ok {
				return shipcaterrors.New(shipcaterrors.InvalidManifest, cname, fmt.Sprintf("cluster references unknown region %q", r), nil)
			}
		}
	}
	for alias, target := range c.ContextAliases {
		if alias == target {
			return shipcaterrors.New(shipcaterrors.InvalidManifest, alias, "context alias cannot self-alias", nil)
		}
		if _, ok := c.Regions[target]; !ok {
			return shipcaterrors.New(shipcaterrors.InvalidManifest, alias, fmt.Sprintf("context alias points to unknown region %q", target), nil)
		}
	}
	for name, r := range c.Regions {
		if r.Name != name {
			return shipcaterrors.New(shipcaterrors.InvalidManifest, name, "region name must equal its key", nil)
		}
		if r.Namespace == "" {
			return shipcaterrors.New(shipcaterrors.InvalidManifest, name, "region namespace must not be empty", nil)
		}
		if r.VaultURL == "" {
			return shipcaterrors.New(shipcaterrors.InvalidManifest, name, "region vault url must not be empty", nil)
		}
		for svc, base := range r.BaseURLs {
			if strings.HasSuffix(base, "/") {
				return shipcaterrors.New(shipcaterrors.InvalidManifest, name, fmt.Sprintf("base url for %q must not end with /", svc), nil)
			}
		}
	}
	for _, t := range c.Teams {
		if t.Owner == "" {
			return shipcaterrors.New(shipcaterrors.InvalidManifest, t.Name, "team owner must have a stable identity attribute", nil)
		}
	}
	if c.MinShipcatVersion != "" && runningVersion != "" {
		newer, err := versionAtLeast(runningVersion, c.MinShipcatVersion)
		if err != nil {
			return shipcaterrors.New(shipcaterrors.ConfigOutOfDate, "", "invalid version comparison", err)
		}
		if !newer {
			return shipcaterrors.New(shipcaterrors.ConfigOutOfDate, "",
				fmt.Sprintf("shipcat.conf requires shipcat >= %s, running %s; upgrade via the release channel", c.MinShipcatVersion, runningVersion), nil)
		}
	}
	return nil
}

// FilterFor resolves a context string (region name or alias) to the
// matching Region and returns a Base-state Config containing only that
// region. Secrets are never embedded in a Base config.
func (c *Config) FilterFor(context string) (*Config, *Region, error) {
	name := context
	if _, ok := c.Regions[name]; !ok {
		if target, ok := c.ContextAliases[context]; ok {
			name = target
		}
	}
	r, ok := c.Regions[name]
	if !ok {
		return nil, nil, shipcaterrors.New(shipcaterrors.InvalidManifest, context, "unknown region or context alias", nil)
	}
	filtered := &Config{
		Regions:           map[string]Region{name: r},
		Clusters:          c.Clusters,
		ContextAliases:    c.ContextAliases,
		Teams:             c.Teams,
		Defaults:          c.Defaults,
		MinShipcatVersion: c.MinShipcatVersion,
		state:             StateBase,
	}
	return filtered, &r, nil
}

// ResolveCluster finds the unique cluster serving the given region name.
// If more than one cluster lists the region, hint disambiguates; an empty
// hint with more than one match is an error requiring an explicit hint.
func (c *Config) ResolveCluster(region, hint string) (*Cluster, error) {
	var matches []Cluster
	for _, cl := range c.Clusters {
		for _, r := range cl.Regions {
			if r == region {
				matches = append(matches, cl)
				break
			}
		}
	}
	switch {
	case len(matches) == 0:
		return nil, shipcaterrors.New(shipcaterrors.InvalidManifest, region, "no cluster serves this region", nil)
	case len(matches) == 1:
		return &matches[0], nil
	default:
		if hint == "" {
			return nil, shipcaterrors.New(shipcaterrors.InvalidManifest, region, "region is served by multiple clusters; pass an explicit cluster hint", nil)
		}
		for i := range matches {
			if matches[i].Name == hint {
				return &matches[i], nil
			}
		}
		return nil, shipcaterrors.New(shipcaterrors.InvalidManifest, region, fmt.Sprintf("cluster hint %q does not serve this region", hint), nil)
	}
}

// TeamByName finds a team by its manifest-declared name.
func (c *Config) TeamByName(name string) (*Team, bool) {
	for i := range c.Teams {
		if c.Teams[i].Name == name {
			return &c.Teams[i], true
		}
	}
	return nil, false
}

// TeamSlug computes the read-server's team slug: lowercase, "/" -> "-",
// space -> "_" (spec §4.7).
func TeamSlug(name string) string {
	s := strings.ToLower(name)
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
