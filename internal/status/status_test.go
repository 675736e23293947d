package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPatchSuccessSequence(t *testing.T) {
	s := NewStatus()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	s.Patch(Generated, true, "", "", "ci-job-1", now, "")
	s.Patch(Applied, true, "", "", "ci-job-1", now, "")
	s.Patch(RolledOut, true, "", "", "ci-job-1", now, "1.6.0")

	assert.True(t, s.IsComplete())
	assert.Equal(t, "1.6.0", s.Summary.LastSuccessfulRolloutVersion)
	assert.NotNil(t, s.Summary.LastSuccessfulRollout)
}

func TestPatchFailureRecordsReason(t *testing.T) {
	s := NewStatus()
	now := time.Now().UTC()
	s.Patch(Applied, false, "KubeApplyFailure", "boom", "local-user", now, "")
	assert.False(t, s.IsComplete())
	assert.Equal(t, "KubeApplyFailure", s.Summary.LastFailureReason)
}

func TestNoopApplyLeavesRolledOutUnchanged(t *testing.T) {
	s := NewStatus()
	now := time.Now().UTC()
	s.Patch(Generated, true, "", "", "local-user", now, "")
	s.Patch(Applied, true, "", "", "local-user", now, "")
	s.Patch(RolledOut, true, "", "", "local-user", now, "1.0.0")

	// second apply: empty diff -> applied=true, message noop, rolledout untouched
	before := s.Conditions[RolledOut]
	s.Patch(Applied, true, "", "noop", "local-user", now, "")
	after := s.Conditions[RolledOut]
	assert.Equal(t, before, after)
}
