// Package diff implements the render-then-diff engine (spec §4.6): shell
// out to a diff subprocess against a rendered-state file, minify the
// output to the lines that matter, and classify whether a change is a
// pure version bump.
package diff

import (
	"bytes"
	"context"
	"os/exec"
	"regexp"
	"strings"

	shipcaterrors "github.com/shipcat/shipcat/internal/errors"
)

// Runner invokes the external diff program against two rendered-state
// files and returns its combined stdout (diff tools conventionally exit
// non-zero when inputs differ, which is not itself a failure).
type Runner struct {
	// Command is the diff executable; "diff" unless overridden, matching
	// how the chart renderer subprocess is configured in internal/apply.
	Command string
	Args    []string
}

func NewRunner() *Runner {
	return &Runner{Command: "diff", Args: []string{"-u"}}
}

// Run executes the diff subprocess between beforePath and afterPath.
func (r *Runner) Run(ctx context.Context, beforePath, afterPath string) (string, error) {
	args := append(append([]string{}, r.Args...), beforePath, afterPath)
	cmd := exec.CommandContext(ctx, r.Command, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	if err != nil {
		// diff exits 1 when files differ; only treat exec failures (not
		// found, killed, non-diff exit codes >1) as real errors.
		if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
			return out.String(), nil
		}
		return "", shipcaterrors.New(shipcaterrors.HelmRenderFailure, beforePath, "diff subprocess failed", err)
	}
	return out.String(), nil
}

var (
	changedLineRe = regexp.MustCompile(`^[-+]`)
	generationRe  = regexp.MustCompile(`^[-+]\s*generation:\s*\d+\s*$`)
	imageVersionRe = regexp.MustCompile(`[^:]+:(?P<version>[a-z0-9.\-]+)`)
)

// Minify retains only lines matching `^[-+]` or containing the literal
// "has changed", dropping hunks that change only the integer after
// "generation:" (those are apiserver bookkeeping, not real changes).
func Minify(text string) string {
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		if generationRe.MatchString(line) {
			continue
		}
		if changedLineRe.MatchString(line) || strings.Contains(line, "has changed") {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// VersionPair is an (old,new) version extracted from a diff's image: lines.
type VersionPair struct {
	Old string
	New string
}

// InferVersionChange extracts version pairs from `image:` lines using the
// `[^:]+:(?P<version>[a-z0-9.-]+)` capture; it requires at least two
// captures across the text and takes the first two as (old,new).
func InferVersionChange(text string) (*VersionPair, bool) {
	var versions []string
	for _, line := range strings.Split(text, "\n") {
		if !strings.Contains(line, "image:") {
			continue
		}
		m := imageVersionRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		versions = append(versions, m[1])
		if len(versions) >= 2 {
			break
		}
	}
	if len(versions) < 2 {
		return nil, false
	}
	return &VersionPair{Old: versions[0], New: versions[1]}, true
}

// IsVersionOnly returns true iff every non-header minified line contains
// either the old or the new version string — i.e. the only substantive
// change in the diff is the version bump itself.
func IsVersionOnly(minified string, pair VersionPair) bool {
	for _, line := range strings.Split(minified, "\n") {
		if line == "" || isHeaderLine(line) {
			continue
		}
		if !strings.Contains(line, pair.Old) && !strings.Contains(line, pair.New) {
			return false
		}
	}
	return true
}

func isHeaderLine(line string) bool {
	return strings.HasPrefix(line, "+++") || strings.HasPrefix(line, "---")
}

const obfuscatedSecret = "************"

// minSecretLength is the minimum length of a secret value worth
// obfuscating; shorter values are assumed to be non-sensitive enums/flags
// that would otherwise make the diff unreadable if blanked.
const minSecretLength = 8

// ObfuscateSecrets replaces every occurrence of a secret value at least
// minSecretLength characters long with a fixed-width placeholder, so a
// diff can be safely logged or posted to Slack.
func ObfuscateSecrets(text string, secrets map[string]string) string {
	out := text
	for _, v := range secrets {
		if len(v) < minSecretLength {
			continue
		}
		out = strings.ReplaceAll(out, v, obfuscatedSecret)
	}
	return out
}

// DiffFor renders the current and desired states to beforePath/afterPath
// (the caller is responsible for producing them) and returns the minified
// diff text plus whether anything changed.
func DiffFor(ctx context.Context, runner *Runner, beforePath, afterPath string) (string, bool, error) {
	raw, err := runner.Run(ctx, beforePath, afterPath)
	if err != nil {
		return "", false, err
	}
	minified := Minify(raw)
	return minified, strings.TrimSpace(minified) != "", nil
}
