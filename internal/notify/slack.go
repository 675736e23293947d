// Package notify implements shipcat's fire-and-forget Slack notification
// sink; the Sentry/NewRelic integration lookups the read server shows live
// in internal/server. Grounded on
// original_source/shipcat_cli/src/slack.rs, reworked from the
// slack_hook/PayloadBuilder attachment API onto slack-go/slack's webhook
// client.
package notify

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/slack-go/slack"

	"github.com/shipcat/shipcat/internal/diff"
	shipcaterrors "github.com/shipcat/shipcat/internal/errors"
	"github.com/shipcat/shipcat/internal/manifest"
)

// Message mirrors the original Rust notifier's parameter struct: the main
// text, the manifest's metadata for CC'ing the owning team, an optional
// explicit link, an optional color, and either a code diff or a bare
// version to report.
type Message struct {
	Text     string
	Metadata *manifest.Metadata
	Quiet    bool
	Link     string
	Color    string
	Diff     string
	Version  string
}

var channelRe = regexp.MustCompile(`^#[a-z0-9_-]+$`)

// ValidateChannel enforces the Slack channel naming rule from spec §8
// scenario 5: a leading "#" followed by lowercase alphanumerics, dashes
// and underscores — no embedded spaces.
func ValidateChannel(channel string) error {
	if !channelRe.MatchString(channel) {
		return shipcaterrors.New(shipcaterrors.InvalidManifest, channel, "channel is invalid", nil)
	}
	return nil
}

// EnvHookURL reads the webhook URL, failing with MissingSlackURL if unset.
func EnvHookURL() (string, error) {
	v := os.Getenv("SLACK_SHIPCAT_HOOK_URL")
	if v == "" {
		return "", shipcaterrors.New(shipcaterrors.MissingSlackURL, "", "SLACK_SHIPCAT_HOOK_URL is not set", nil)
	}
	return v, nil
}

// EnvChannel reads the destination channel, failing with
// MissingSlackChannel if unset, and validating its shape.
func EnvChannel() (string, error) {
	v := os.Getenv("SLACK_SHIPCAT_CHANNEL")
	if v == "" {
		return "", shipcaterrors.New(shipcaterrors.MissingSlackChannel, "", "SLACK_SHIPCAT_CHANNEL is not set", nil)
	}
	if err := ValidateChannel(v); err != nil {
		return "", err
	}
	return v, nil
}

func envUsername() string {
	if v := os.Getenv("SLACK_SHIPCAT_NAME"); v != "" {
		return v
	}
	return "shipcat"
}

// HaveCredentials checks that both the channel and hook URL are
// configured.
func HaveCredentials() error {
	if _, err := EnvChannel(); err != nil {
		return err
	}
	if _, err := EnvHookURL(); err != nil {
		return err
	}
	return nil
}

// Send posts msg to the configured Slack destination. Per spec §5,
// notification sinks are fire-and-forget: callers log and discard errors
// rather than failing the apply/rollout they're reporting on.
func Send(msg Message) error {
	hookURL, err := EnvHookURL()
	if err != nil {
		return err
	}
	channel, err := EnvChannel()
	if err != nil {
		return err
	}

	attachment := slack.Attachment{
		Fallback: msg.Text,
		Color:    msg.Color,
		Text:     msg.Text,
	}

	var versionOnly bool
	if msg.Diff != "" {
		if pair, ok := diff.InferVersionChange(msg.Diff); ok {
			attachment.Fields = append(attachment.Fields, slack.AttachmentField{
				Title: "compare",
				Value: githubCompareURL(msg.Metadata, *pair),
			})
			versionOnly = diff.IsVersionOnly(msg.Diff, *pair)
		}
	} else if msg.Version != "" && msg.Metadata != nil {
		attachment.Fields = append(attachment.Fields, slack.AttachmentField{
			Title: "version",
			Value: versionLink(msg.Metadata, msg.Version),
		})
	}

	if msg.Link != "" {
		attachment.Fields = append(attachment.Fields, slack.AttachmentField{Title: "link", Value: msg.Link})
	} else {
		attachment.Fields = append(attachment.Fields, slack.AttachmentField{Title: "origin", Value: inferCILink()})
	}

	if msg.Metadata != nil && !msg.Quiet {
		attachment.Fields = append(attachment.Fields, slack.AttachmentField{
			Title: "cc",
			Value: strings.Join(msg.Metadata.Contacts, ", "),
		})
	}

	attachments := []slack.Attachment{attachment}
	if msg.Diff != "" && !versionOnly {
		attachments = append(attachments, slack.Attachment{
			Color: "#439FE0",
			Text:  msg.Diff,
		})
	}

	payload := &slack.WebhookMessage{
		Channel:     channel,
		Username:    envUsername(),
		IconEmoji:   ":ship:",
		Attachments: attachments,
	}

	if err := slack.PostWebhook(hookURL, payload); err != nil {
		return shipcaterrors.New(shipcaterrors.UnexpectedHTTPStatus, hookURL, "slack webhook post failed", err)
	}
	return nil
}

func shortVersion(v string) string {
	if len(v) == 40 && !isSemver(v) {
		return v[:8]
	}
	return v
}

func isSemver(v string) bool {
	return regexp.MustCompile(`^\d+\.\d+\.\d+`).MatchString(v)
}

func versionLink(md *manifest.Metadata, version string) string {
	if isSemver(version) {
		tag := version
		if md.GitTagTemplate != "" {
			tag = strings.ReplaceAll(md.GitTagTemplate, "{{ version }}", version)
		}
		return fmt.Sprintf("%s/releases/tag/%s (%s)", md.RepoURL, tag, shortVersion(version))
	}
	return fmt.Sprintf("%s/commit/%s (%s)", md.RepoURL, version, shortVersion(version))
}

func githubCompareURL(md *manifest.Metadata, pair diff.VersionPair) string {
	if md == nil {
		return fmt.Sprintf("%s...%s", pair.Old, pair.New)
	}
	v0, v1 := pair.Old, pair.New
	if isSemver(pair.Old) && md.GitTagTemplate != "" {
		v0 = strings.ReplaceAll(md.GitTagTemplate, "{{ version }}", pair.Old)
		v1 = strings.ReplaceAll(md.GitTagTemplate, "{{ version }}", pair.New)
	}
	return fmt.Sprintf("%s/compare/%s...%s (%s)", md.RepoURL, v0, v1, shortVersion(pair.New))
}

func inferCILink() string {
	if url, name, num := os.Getenv("BUILD_URL"), os.Getenv("JOB_NAME"), os.Getenv("BUILD_NUMBER"); url != "" && name != "" && num != "" {
		return fmt.Sprintf("%s (%s#%s)", url, name, num)
	}
	if url, name, num := os.Getenv("CIRCLE_BUILD_URL"), os.Getenv("CIRCLE_JOB"), os.Getenv("CIRCLE_BUILD_NUM"); url != "" && name != "" && num != "" {
		return fmt.Sprintf("%s (%s#%s)", url, name, num)
	}
	if user := os.Getenv("USER"); user != "" {
		return "via " + user
	}
	return "via unknown user"
}
