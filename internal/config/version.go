package config

import (
	"fmt"
	"regexp"

	"github.com/blang/semver/v4"
)

var gitShaRe = regexp.MustCompile(`^[0-9a-f]{40}$`)

// versionAtLeast reports whether running is >= min, both parsed as semver.
func versionAtLeast(running, min string) (bool, error) {
	r, err := semver.Parse(running)
	if err != nil {
		return false, fmt.Errorf("running version %q: %w", running, err)
	}
	m, err := semver.Parse(min)
	if err != nil {
		return false, fmt.Errorf("min version %q: %w", min, err)
	}
	return r.GE(m), nil
}

// ValidateVersion checks a manifest's version field against the region's
// declared scheme (spec §3 invariant g). SchemeSemver requires strict
// semver; SchemeGitShaOrSemver additionally accepts a 40-hex-char git sha.
func ValidateVersion(version string, scheme VersionScheme) error {
	if version == "" {
		return nil
	}
	if _, err := semver.Parse(version); err == nil {
		return nil
	}
	if scheme == SchemeGitShaOrSemver && gitShaRe.MatchString(version) {
		return nil
	}
	return fmt.Errorf("version %q does not match scheme %s", version, scheme)
}
