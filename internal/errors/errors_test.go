package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapPreservesKind(t *testing.T) {
	base := New(MissingRollingVersion, "fake-ask", "no version and not installed", nil)
	wrapped := Wrap(base, "reconcile dev-uk")
	assert.True(t, Is(wrapped, MissingRollingVersion))
	assert.True(t, Ignorable(wrapped))

	var te *Error
	assert.True(t, errors.As(wrapped, &te))
	assert.Equal(t, "fake-ask", te.Context)
}

func TestIgnorableOnlyMissingRollingVersion(t *testing.T) {
	assert.False(t, Ignorable(New(KubeApplyFailure, "svc", "boom", nil)))
	assert.True(t, Ignorable(New(MissingRollingVersion, "svc", "", nil)))
}

func TestReasonAndMessage(t *testing.T) {
	reason, msg := ReasonAndMessage(New(RolloutTimeout, "svc", "300s", nil))
	assert.Equal(t, "RolloutTimeout", reason)
	assert.Contains(t, msg, "300s")
}
