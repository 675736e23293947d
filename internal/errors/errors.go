// Package errors implements the §7 error taxonomy as tagged variants that
// carry service/key context and can be classified (ignorable vs fatal) by
// the reconciler.
package errors

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Kind identifies one of the named error effects from spec §7.
type Kind string

const (
	InvalidManifest       Kind = "InvalidManifest"
	MissingSecret         Kind = "MissingSecret"
	InvalidSecretShape    Kind = "InvalidSecretShape"
	MissingVersion        Kind = "MissingVersion"
	MissingRollingVersion Kind = "MissingRollingVersion"
	HelmRenderFailure     Kind = "HelmRenderFailure"
	KubeApplyFailure      Kind = "KubeApplyFailure"
	KubeAPIFailure        Kind = "KubeApiFailure"
	RolloutTimeout        Kind = "RolloutTimeout"
	InvalidTemplate       Kind = "InvalidTemplate"
	ConfigOutOfDate       Kind = "ConfigOutOfDate"
	UnexpectedHTTPStatus  Kind = "UnexpectedHttpStatus"
	MissingSlackURL       Kind = "MissingSlackUrl"
	MissingSlackChannel   Kind = "MissingSlackChannel"
	SelfUpgradeError      Kind = "SelfUpgradeError"
	MissingVaultConfig    Kind = "MissingVaultConfig"
	VaultReadFailure      Kind = "VaultReadFailure"
)

// Error is a tagged error carrying a service/key context and an optional
// wrapped cause. It satisfies errors.Unwrap so the standard library's
// errors.Is/errors.As work across propagation boundaries.
type Error struct {
	Kind    Kind
	Context string // service name or secret key, depending on Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Context != "" {
		b.WriteString(" ")
		b.WriteString(e.Context)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds a tagged error with context and an optional cause.
func New(kind Kind, context, message string, cause error) *Error {
	return &Error{Kind: kind, Context: context, Message: message, Cause: cause}
}

// Wrap attaches additional message context at a propagation point without
// stripping the original kind/cause.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var te *Error
	if errors.As(err, &te) {
		return &Error{Kind: te.Kind, Context: te.Context, Message: message + ": " + te.Message, Cause: te.Cause}
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is reports whether err is (or wraps) a tagged error of the given kind.
func Is(err error, kind Kind) bool {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind == kind
	}
	return false
}

// Ignorable reports whether this error kind does not fail a reconcile pass.
// Currently only MissingRollingVersion is ignorable (spec §4.5).
func Ignorable(err error) bool {
	return Is(err, MissingRollingVersion)
}

// ReasonAndMessage returns the (reason, message) pair used to patch a
// status condition: the tagged Kind as reason, full error text as message.
func ReasonAndMessage(err error) (string, string) {
	var te *Error
	if errors.As(err, &te) {
		return string(te.Kind), te.Error()
	}
	return "Unknown", err.Error()
}

// PrintCLI writes the CLI's standard "<subcommand> error: <message>" line to
// stderr, and under CIRCLECI additionally prints the full causal chain, one
// cause per line, matching spec §7 / §8 "user-visible behavior".
func PrintCLI(subcommand string, err error) {
	fmt.Fprintf(os.Stderr, "%s error: %s\n", subcommand, err.Error())
	if os.Getenv("CIRCLECI") == "" {
		return
	}
	cur := err
	for cur != nil {
		fmt.Fprintf(os.Stderr, "caused by: %s\n", cur.Error())
		cur = errors.Unwrap(cur)
	}
}
