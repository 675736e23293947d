package manifest

import (
	"fmt"

	"github.com/shipcat/shipcat/internal/config"
)

// ApplyImplicits performs the post-merge implicit computation of spec
// §4.1 step 4: region env defaults, Kong host derivation, image/chart/
// imageSize defaults, and environment/namespace/region injection.
func ApplyImplicits(m *Manifest, conf *config.Config, region *config.Region) {
	if m.Env == nil {
		m.Env = map[string]string{}
	}
	for k, v := range region.Env {
		if _, ok := m.Env[k]; !ok {
			m.Env[k] = v
		}
	}

	if m.Kong != nil && m.Kong.Host != "" && len(m.Kong.Hosts) == 0 {
		if base, ok := region.BaseURLs["services"]; ok {
			m.Kong.Hosts = []string{base + "/" + m.Kong.Host}
		}
	}

	if m.Image == "" {
		m.Image = fmt.Sprintf("%s/%s", conf.Defaults.ImagePrefix, m.Name)
	}
	if m.Chart == "" {
		m.Chart = conf.Defaults.Chart
	}
	if m.ImageSize == 0 {
		m.ImageSize = 512
	}

	m.Environment = region.Environment
	m.Namespace = region.Namespace
	m.Region = region.Name

	if m.Metadata != nil {
		if team, ok := conf.TeamByName(m.Metadata.Team); ok {
			if m.Metadata.Support == "" {
				m.Metadata.Support = team.Support
			}
			if m.Metadata.Notifications == "" {
				m.Metadata.Notifications = team.Notifications
			}
		}
	}
}
